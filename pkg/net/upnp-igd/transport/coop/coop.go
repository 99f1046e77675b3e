// Package coop is the cooperative transport: calls suspend on a completion
// channel and return as soon as their context is done, leaving the
// abandoned I/O to finish in the background.
package coop

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/ipv4"

	"github.com/raphaelreyna/igd/pkg/net/upnp-igd/transport"
)

const (
	// MulticastTTL keeps searches on the local link and one hop beyond.
	MulticastTTL = 2

	queueSize = 16
)

type Transport struct {
	Client *http.Client
	TTL    int
}

func New(timeout time.Duration) *Transport {
	return &Transport{
		Client: &http.Client{Timeout: timeout},
		TTL:    MulticastTTL,
	}
}

type result struct {
	resp *transport.Response
	err  error
}

func (t *Transport) Do(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	hreq, err := transport.HTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	done := make(chan result, 1)
	go func() {
		resp, err := t.Client.Do(hreq)
		if err != nil {
			done <- result{err: fmt.Errorf("error making http call: %w", err)}
			return
		}
		r, err := transport.ReadResponse(resp)
		done <- result{resp: r, err: err}
	}()

	select {
	case r := <-done:
		return r.resp, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *Transport) ListenDatagram(ctx context.Context, laddr *net.UDPAddr) (transport.DatagramConn, error) {
	addr := "0.0.0.0:0"
	if laddr != nil {
		addr = laddr.String()
	}

	var lc net.ListenConfig
	pc, err := lc.ListenPacket(ctx, "udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("unable to listen on %s: %w", addr, err)
	}

	p := ipv4.NewPacketConn(pc)
	if err := p.SetMulticastTTL(t.TTL); err != nil {
		pc.Close()
		return nil, fmt.Errorf("unable to set multicast ttl: %w", err)
	}
	if err := p.SetMulticastLoopback(true); err != nil {
		pc.Close()
		return nil, fmt.Errorf("unable to enable multicast loopback: %w", err)
	}

	c := &conn{
		p:       p,
		packets: make(chan packet, queueSize),
		closed:  make(chan struct{}),
	}
	go c.readLoop()

	return c, nil
}

type packet struct {
	data []byte
	from *net.UDPAddr
}

// conn reads on its own goroutine so ReceiveFrom can select on the context.
type conn struct {
	p       *ipv4.PacketConn
	packets chan packet

	closeOnce sync.Once
	closed    chan struct{}
	err       error
}

func (c *conn) readLoop() {
	defer close(c.packets)

	buf := make([]byte, 65535)
	for {
		n, _, from, err := c.p.ReadFrom(buf)
		if err != nil {
			c.err = err
			return
		}

		udpAddr, _ := from.(*net.UDPAddr)
		pkt := packet{
			data: append([]byte(nil), buf[:n]...),
			from: udpAddr,
		}
		select {
		case c.packets <- pkt:
		case <-c.closed:
			return
		}
	}
}

func (c *conn) SendTo(ctx context.Context, b []byte, addr *net.UDPAddr) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.p.WriteTo(b, nil, addr); err != nil {
		return fmt.Errorf("unable to write to %s: %w", addr, err)
	}
	return nil
}

func (c *conn) ReceiveFrom(ctx context.Context, b []byte, timeout time.Duration) (int, *net.UDPAddr, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case pkt, ok := <-c.packets:
		if !ok {
			// c.err is written before packets is closed.
			if c.err != nil && !errors.Is(c.err, net.ErrClosed) {
				return 0, nil, fmt.Errorf("unable to read: %w", c.err)
			}
			return 0, nil, net.ErrClosed
		}
		return copy(b, pkt.data), pkt.from, nil
	case <-timer.C:
		return 0, nil, transport.ErrTimeout
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	}
}

func (c *conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.p.Close()
	})
	return err
}
