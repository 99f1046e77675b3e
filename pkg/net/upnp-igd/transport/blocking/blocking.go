// Package blocking is the synchronous transport: every call blocks the
// calling goroutine on the socket until it completes or its deadline passes.
package blocking

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/raphaelreyna/igd/pkg/net/upnp-igd/transport"
)

type Transport struct {
	Client *http.Client
}

func New(timeout time.Duration) *Transport {
	return &Transport{
		Client: &http.Client{Timeout: timeout},
	}
}

func (t *Transport) Do(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	hreq, err := transport.HTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := t.Client.Do(hreq)
	if err != nil {
		return nil, fmt.Errorf("error making http call: %w", err)
	}

	return transport.ReadResponse(resp)
}

func (t *Transport) ListenDatagram(_ context.Context, laddr *net.UDPAddr) (transport.DatagramConn, error) {
	c, err := net.ListenUDP("udp4", laddr)
	if err != nil {
		return nil, fmt.Errorf("unable to listen on %s: %w", laddr, err)
	}
	return &conn{c: c}, nil
}

// conn observes context cancellation only through its socket deadlines.
type conn struct {
	c *net.UDPConn
}

func (c *conn) SendTo(ctx context.Context, b []byte, addr *net.UDPAddr) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline, _ := ctx.Deadline()
	if err := c.c.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if _, err := c.c.WriteToUDP(b, addr); err != nil {
		return fmt.Errorf("unable to write to %s: %w", addr, err)
	}
	return nil
}

func (c *conn) ReceiveFrom(ctx context.Context, b []byte, timeout time.Duration) (int, *net.UDPAddr, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.c.SetReadDeadline(deadline); err != nil {
		return 0, nil, err
	}

	n, from, err := c.c.ReadFromUDP(b)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return 0, nil, ctxErr
			}
			return 0, nil, transport.ErrTimeout
		}
		return 0, nil, fmt.Errorf("unable to read: %w", err)
	}

	return n, from, nil
}

func (c *conn) Close() error {
	return c.c.Close()
}
