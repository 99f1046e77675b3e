// Package pool is the cooperative transport backed by a bounded set of I/O
// workers. Callers submit an operation and suspend until it completes or
// their context is done; at most Size operations touch the network at once.
package pool

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/raphaelreyna/igd/pkg/net/upnp-igd/transport"
)

const DefaultSize = 4

type Transport struct {
	Client *http.Client
	sem    *semaphore.Weighted
}

func New(timeout time.Duration, size int) *Transport {
	if size <= 0 {
		size = DefaultSize
	}
	return &Transport{
		Client: &http.Client{Timeout: timeout},
		sem:    semaphore.NewWeighted(int64(size)),
	}
}

// submit runs op on a worker slot. If ctx ends first, cancel is called so the
// worker stops early, and submit returns without waiting for it.
func (t *Transport) submit(ctx context.Context, op func() error, cancel func()) error {
	if err := t.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		defer t.sem.Release(1)
		done <- op()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if cancel != nil {
			cancel()
		}
		return ctx.Err()
	}
}

func (t *Transport) Do(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	hreq, err := transport.HTTPRequest(reqCtx, req)
	if err != nil {
		return nil, err
	}

	var resp *transport.Response
	err = t.submit(ctx, func() error {
		hresp, err := t.Client.Do(hreq)
		if err != nil {
			return fmt.Errorf("error making http call: %w", err)
		}
		resp, err = transport.ReadResponse(hresp)
		return err
	}, cancel)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (t *Transport) ListenDatagram(_ context.Context, laddr *net.UDPAddr) (transport.DatagramConn, error) {
	c, err := net.ListenUDP("udp4", laddr)
	if err != nil {
		return nil, fmt.Errorf("unable to listen on %s: %w", laddr, err)
	}
	return &conn{t: t, c: c}, nil
}

type conn struct {
	t *Transport
	c *net.UDPConn
}

func (c *conn) SendTo(ctx context.Context, b []byte, addr *net.UDPAddr) error {
	return c.t.submit(ctx, func() error {
		if _, err := c.c.WriteToUDP(b, addr); err != nil {
			return fmt.Errorf("unable to write to %s: %w", addr, err)
		}
		return nil
	}, func() {
		c.c.SetWriteDeadline(time.Now())
	})
}

func (c *conn) ReceiveFrom(ctx context.Context, b []byte, timeout time.Duration) (int, *net.UDPAddr, error) {
	var (
		n    int
		from *net.UDPAddr
		// The worker owns buf until it returns; an abandoned read must not
		// write into the caller's slice.
		buf = make([]byte, len(b))
	)
	err := c.t.submit(ctx, func() error {
		if err := c.c.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
		var err error
		n, from, err = c.c.ReadFromUDP(buf)
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return transport.ErrTimeout
		}
		if err != nil {
			return fmt.Errorf("unable to read: %w", err)
		}
		return nil
	}, func() {
		c.c.SetReadDeadline(time.Now())
	})
	if err != nil {
		return 0, nil, err
	}

	return copy(b, buf[:n]), from, nil
}

func (c *conn) Close() error {
	return c.c.Close()
}
