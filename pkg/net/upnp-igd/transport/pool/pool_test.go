package pool

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
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
	tr := New(time.Second, 2)

	a, err := tr.ListenDatagram(ctx, loopback())
	is.NoErr(err)
	defer a.Close()
	b, err := tr.ListenDatagram(ctx, loopback())
	is.NoErr(err)
	defer b.Close()

	is.NoErr(a.SendTo(ctx, []byte("hello"), b.(*conn).c.LocalAddr().(*net.UDPAddr)))

	buf := make([]byte, 64)
	n, _, err := b.ReceiveFrom(ctx, buf, time.Second)
	is.NoErr(err)
	is.Equal(string(buf[:n]), "hello")
}

func TestReceiveTimeout(t *testing.T) {
	is := is.New(t)
	c, err := New(time.Second, 1).ListenDatagram(context.Background(), loopback())
	is.NoErr(err)
	defer c.Close()

	_, _, err = c.ReceiveFrom(context.Background(), make([]byte, 8), 20*time.Millisecond)
	is.Equal(err, transport.ErrTimeout)
}

func TestCancelReleasesWorker(t *testing.T) {
	is := is.New(t)
	tr := New(time.Second, 1)
	c, err := tr.ListenDatagram(context.Background(), loopback())
	is.NoErr(err)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err = c.ReceiveFrom(ctx, make([]byte, 8), time.Minute)
	is.Equal(err, context.DeadlineExceeded)

	// The abandoned read is unblocked, so the single slot frees up.
	_, _, err = c.ReceiveFrom(context.Background(), make([]byte, 8), 20*time.Millisecond)
	is.Equal(err, transport.ErrTimeout)
}

func TestPoolBoundsConcurrency(t *testing.T) {
	is := is.New(t)

	var inFlight, peak atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
	}))
	defer srv.Close()

	tr := New(time.Second, 2)
	var wg sync.WaitGroup
	errs := make(chan error, 6)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := tr.Do(context.Background(), &transport.Request{Method: http.MethodGet, URL: srv.URL})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		is.NoErr(err)
	}

	is.True(peak.Load() <= 2)
}
