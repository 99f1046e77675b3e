// Package transport declares the only places the IGD client blocks or
// suspends: sending and receiving datagrams, and HTTP round trips.
//
// Protocol logic is written once against Transport. The blocking, coop and
// pool subpackages provide one implementation per concurrency model.
package transport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

// ErrTimeout is returned by DatagramConn.ReceiveFrom when nothing arrived in time.
var ErrTimeout = errors.New("transport: receive timeout")

// MaxBodySize bounds response bodies read by the HTTP implementations.
const MaxBodySize = 1 << 20

type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
	ListenDatagram(ctx context.Context, laddr *net.UDPAddr) (DatagramConn, error)
}

type DatagramConn interface {
	SendTo(ctx context.Context, b []byte, addr *net.UDPAddr) error
	// ReceiveFrom waits at most timeout for one datagram.
	ReceiveFrom(ctx context.Context, b []byte, timeout time.Duration) (int, *net.UDPAddr, error)
	Close() error
}
