package upnpigd

import (
	"net"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/raphaelreyna/igd/pkg/net/upnp-igd/ssdp"
	"github.com/raphaelreyna/igd/pkg/net/upnp-igd/transport"
)

type Option func(*Client)

// WithTransport replaces the backend selected at build time.
func WithTransport(t transport.Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// WithLogger makes the client log to l instead of the logger carried by
// each call's context.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = &l
	}
}

// WithRequestTimeout bounds each HTTP round trip. Non-positive values keep
// the default.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if 0 < d {
			c.requestTimeout = d
		}
	}
}

// WithResponseTimeout bounds a single discovery read.
func WithResponseTimeout(d time.Duration) Option {
	return func(c *Client) {
		if 0 < d {
			c.responseTimeout = d
		}
	}
}

// WithSearchTargets sets the ST values searched for; one search socket is
// opened per target.
func WithSearchTargets(targets ...string) Option {
	return func(c *Client) {
		if len(targets) != 0 {
			c.searchTargets = append([]string(nil), targets...)
		}
	}
}

// WithBroadcastAddr sets where M-SEARCH requests are sent.
func WithBroadcastAddr(addr *net.UDPAddr) Option {
	return func(c *Client) {
		if addr != nil {
			c.broadcastAddr = addr
		}
	}
}

// WithBindAddr sets the local address search sockets listen on.
func WithBindAddr(addr *net.UDPAddr) Option {
	return func(c *Client) {
		c.bindAddr = addr
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

func WithAnyPortPolicy(p AnyPortPolicy) Option {
	return func(c *Client) {
		c.anyPort = p.normalize()
	}
}

// WithPortSource sets where the any-port fallback draws candidate ports from.
func WithPortSource(s PortSource) Option {
	return func(c *Client) {
		if s != nil {
			c.ports = s
		}
	}
}

// WithClock sets the clock measuring discovery windows and request latency.
func WithClock(clk clock.Clock) Option {
	return func(c *Client) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithDescriptionCache keeps up to size resolved gateways for ttl, keyed by
// location URL, so repeated Resolve calls skip the description fetch.
func WithDescriptionCache(size int, ttl time.Duration) Option {
	return func(c *Client) {
		if size <= 0 {
			c.cache = nil
			return
		}
		c.cache = expirable.NewLRU[string, *Gateway](size, nil, ttl)
	}
}

// WithMetrics registers the client's collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Client) {
		c.metrics = newMetrics(reg)
	}
}

// WithAcceptedServiceTypes sets the service types a gateway may be driven
// through, in order of preference.
func WithAcceptedServiceTypes(types ...string) Option {
	return func(c *Client) {
		if len(types) != 0 {
			c.accepted = append([]string(nil), types...)
		}
	}
}

func defaultBroadcastAddr() *net.UDPAddr {
	addr, err := net.ResolveUDPAddr("udp4", ssdp.MulticastAddr)
	if err != nil {
		panic(err)
	}
	return addr
}
