package upnpigd_test

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	upnpigd "github.com/raphaelreyna/igd/pkg/net/upnp-igd"
	"github.com/raphaelreyna/igd/pkg/net/upnp-igd/igdtest"
	"github.com/raphaelreyna/igd/pkg/net/upnp-igd/ssdp"
	"github.com/raphaelreyna/igd/pkg/net/upnp-igd/transport"
)

var loopback = &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)}

func collect(t *testing.T, d *upnpigd.Discovery) []string {
	t.Helper()

	var urls []string
	for loc := range d.Locations {
		urls = append(urls, loc.String())
	}
	require.NoError(t, d.Err())
	return urls
}

// scriptedTransport serves datagrams from a fixed list and advances a mock
// clock on every receive timeout.
type scriptedTransport struct {
	transport.Transport

	clock   *clock.Mock
	replies [][]byte
	sendErr error

	mu    sync.Mutex
	sent  [][]byte
	waits []time.Duration
	opens int
}

func (s *scriptedTransport) ListenDatagram(context.Context, *net.UDPAddr) (transport.DatagramConn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opens++
	return &scriptedConn{s: s}, nil
}

type scriptedConn struct {
	s *scriptedTransport
}

func (c *scriptedConn) SendTo(_ context.Context, b []byte, _ *net.UDPAddr) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if c.s.sendErr != nil {
		return c.s.sendErr
	}
	c.s.sent = append(c.s.sent, append([]byte(nil), b...))
	return nil
}

func (c *scriptedConn) ReceiveFrom(_ context.Context, b []byte, timeout time.Duration) (int, *net.UDPAddr, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	if len(c.s.replies) != 0 {
		n := copy(b, c.s.replies[0])
		c.s.replies = c.s.replies[1:]
		return n, loopback, nil
	}
	c.s.waits = append(c.s.waits, timeout)
	c.s.clock.Add(timeout)
	return 0, nil, transport.ErrTimeout
}

func (c *scriptedConn) Close() error { return nil }

func reply(st, location string) []byte {
	return []byte("HTTP/1.1 200 OK\r\n" +
		"ST: " + st + "\r\n" +
		"USN: uuid:7f8f3c5e-6a7b-4c2d-9e1f-0a1b2c3d4e5f::" + st + "\r\n" +
		"LOCATION: " + location + "\r\n\r\n")
}

func TestDiscoverZeroTimeout(t *testing.T) {
	s := &scriptedTransport{clock: clock.NewMock()}
	c := upnpigd.NewClient(upnpigd.WithTransport(s))

	for _, timeout := range []time.Duration{0, -time.Second} {
		d, err := c.Discover(context.Background(), timeout)
		require.NoError(t, err)
		assert.Empty(t, collect(t, d))
	}
	assert.Zero(t, s.opens)
}

func TestDiscoverWindow(t *testing.T) {
	mock := clock.NewMock()
	s := &scriptedTransport{
		clock: mock,
		replies: [][]byte{
			[]byte("garbage"),
			reply(ssdp.DefaultSearchTarget, "http://192.168.1.1:5000/rootDesc.xml"),
			reply("urn:schemas-upnp-org:device:MediaServer:1", "http://192.168.1.9/desc.xml"),
			reply(ssdp.DefaultSearchTarget, "http://192.168.1.1:5000/rootDesc.xml"),
			reply("urn:schemas-upnp-org:device:InternetGatewayDevice:2", "http://192.168.1.254/igd.xml"),
		},
	}
	c := upnpigd.NewClient(
		upnpigd.WithTransport(s),
		upnpigd.WithClock(mock),
		upnpigd.WithResponseTimeout(5*time.Second),
	)

	d, err := c.Discover(context.Background(), 12*time.Second)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"http://192.168.1.1:5000/rootDesc.xml",
		"http://192.168.1.254/igd.xml",
	}, collect(t, d))

	// Reads wait for the response timeout, capped by what is left of the window.
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second, 2 * time.Second}, s.waits)

	require.Len(t, s.sent, 1)
	req := string(s.sent[0])
	assert.True(t, strings.HasPrefix(req, "M-SEARCH * HTTP/1.1\r\n"))
	assert.Contains(t, req, "ST: "+ssdp.DefaultSearchTarget+"\r\n")
	assert.Contains(t, req, "MX: 5\r\n")
	assert.Contains(t, req, "HOST: 239.255.255.250:1900\r\n")
}

func TestDiscoverSendFailure(t *testing.T) {
	s := &scriptedTransport{clock: clock.NewMock(), sendErr: errors.New("network is unreachable")}
	c := upnpigd.NewClient(upnpigd.WithTransport(s))

	_, err := c.Discover(context.Background(), time.Second)
	assert.ErrorIs(t, err, upnpigd.ErrTransport)
}

func TestDiscoverOverLoopback(t *testing.T) {
	g := igdtest.New(t, igdtest.WithSearchNoise())
	addr := g.ServeSSDP(t)

	c := upnpigd.NewClient(
		upnpigd.WithBroadcastAddr(addr),
		upnpigd.WithBindAddr(loopback),
		upnpigd.WithSearchTargets(ssdp.DefaultSearchTarget, upnpigd.URN_InternetGatewayDevice2),
	)

	d, err := c.Discover(context.Background(), 500*time.Millisecond)
	require.NoError(t, err)

	// Both searches are answered with the same location.
	assert.Equal(t, []string{g.Location()}, collect(t, d))
}

func TestDiscoverCanceled(t *testing.T) {
	g := igdtest.New(t)
	addr := g.ServeSSDP(t)
	c := upnpigd.NewClient(
		upnpigd.WithBroadcastAddr(addr),
		upnpigd.WithBindAddr(loopback),
		upnpigd.WithResponseTimeout(100*time.Millisecond),
	)

	ctx, cancel := context.WithCancel(context.Background())
	d, err := c.Discover(ctx, time.Minute)
	require.NoError(t, err)

	loc := <-d.Locations
	assert.Equal(t, g.Location(), loc.String())
	cancel()

	for range d.Locations {
	}
	assert.ErrorIs(t, d.Err(), context.Canceled)
	assert.Equal(t, upnpigd.KindTransport, upnpigd.KindOf(d.Err()))
}

func TestSearch(t *testing.T) {
	g := igdtest.New(t)
	addr := g.ServeSSDP(t)
	c := upnpigd.NewClient(upnpigd.WithBroadcastAddr(addr), upnpigd.WithBindAddr(loopback))

	start := time.Now()
	gw, err := c.Search(context.Background(), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, g.Location(), gw.RootURL())
	// Search returns at the first usable reply, not at the end of the window.
	assert.Less(t, time.Since(start), 30*time.Second)

	ip, err := gw.ExternalIP(context.Background())
	require.NoError(t, err)
	assert.Equal(t, igdtest.DefaultExternalIP, ip.String())
}

func TestSearchNoGateway(t *testing.T) {
	silent, err := net.ListenUDP("udp4", loopback)
	require.NoError(t, err)
	defer silent.Close()

	c := upnpigd.NewClient(
		upnpigd.WithBroadcastAddr(silent.LocalAddr().(*net.UDPAddr)),
		upnpigd.WithBindAddr(loopback),
	)

	_, err = c.Search(context.Background(), 200*time.Millisecond)
	assert.ErrorIs(t, err, upnpigd.ErrNoGatewayFound)
	assert.NotErrorIs(t, err, upnpigd.ErrUnsupportedGateway)
}

func TestSearchDeadline(t *testing.T) {
	silent, err := net.ListenUDP("udp4", loopback)
	require.NoError(t, err)
	defer silent.Close()

	c := upnpigd.NewClient(
		upnpigd.WithBroadcastAddr(silent.LocalAddr().(*net.UDPAddr)),
		upnpigd.WithBindAddr(loopback),
		upnpigd.WithResponseTimeout(50*time.Millisecond),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	_, err = c.Search(ctx, time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, upnpigd.KindTransport, upnpigd.KindOf(err))
}

func TestSearchUnsupportedGateway(t *testing.T) {
	g := igdtest.New(t, igdtest.WithServiceType("urn:schemas-upnp-org:service:WANIPv6FirewallControl:1"))
	addr := g.ServeSSDP(t)
	c := upnpigd.NewClient(upnpigd.WithBroadcastAddr(addr), upnpigd.WithBindAddr(loopback))

	_, err := c.Search(context.Background(), 300*time.Millisecond)
	assert.Equal(t, upnpigd.KindUnsupportedGateway, upnpigd.KindOf(err))
	assert.NotErrorIs(t, err, upnpigd.ErrNoGatewayFound)
}
