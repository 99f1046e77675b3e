package blocking

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/raphaelreyna/igd/pkg/net/upnp-igd/transport"
)

func loopback() *net.UDPAddr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)}
}

func TestDatagramRoundTrip(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	tr := New(time.Second)

	a, err := tr.ListenDatagram(ctx, loopback())
	is.NoErr(err)
	defer a.Close()
	b, err := tr.ListenDatagram(ctx, loopback())
	is.NoErr(err)
	defer b.Close()

	bAddr := b.(*conn).c.LocalAddr().(*net.UDPAddr)
	is.NoErr(a.SendTo(ctx, []byte("hello"), bAddr))

	buf := make([]byte, 64)
	n, from, err := b.ReceiveFrom(ctx, buf, time.Second)
	is.NoErr(err)
	is.Equal(string(buf[:n]), "hello")
	is.Equal(from.Port, a.(*conn).c.LocalAddr().(*net.UDPAddr).Port)
}

func TestReceiveTimeout(t *testing.T) {
	is := is.New(t)
	tr := New(time.Second)

	c, err := tr.ListenDatagram(context.Background(), loopback())
	is.NoErr(err)
	defer c.Close()

	_, _, err = c.ReceiveFrom(context.Background(), make([]byte, 8), 20*time.Millisecond)
	is.Equal(err, transport.ErrTimeout)
}

func TestReceiveContextDeadline(t *testing.T) {
	is := is.New(t)
	tr := New(time.Second)

	c, err := tr.ListenDatagram(context.Background(), loopback())
	is.NoErr(err)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err = c.ReceiveFrom(ctx, make([]byte, 8), time.Minute)
	is.Equal(err, context.DeadlineExceeded)
}

func TestDo(t *testing.T) {
	is := is.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Action", r.Header.Get("SOAPAction"))
		w.WriteHeader(http.StatusAccepted)
		w.Write(append([]byte("echo:"), body...))
	}))
	defer srv.Close()

	tr := New(time.Second)
	resp, err := tr.Do(context.Background(), &transport.Request{
		Method: http.MethodPost,
		URL:    srv.URL,
		Header: http.Header{"SOAPAction": {"x"}},
		Body:   []byte("ping"),
	})
	is.NoErr(err)
	is.Equal(resp.StatusCode, http.StatusAccepted)
	is.Equal(resp.Header.Get("X-Action"), "x")
	is.Equal(string(resp.Body), "echo:ping")
}
