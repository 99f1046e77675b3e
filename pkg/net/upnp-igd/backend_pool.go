//go:build igd_pool

package upnpigd

import (
	"time"

	"github.com/raphaelreyna/igd/pkg/net/upnp-igd/transport"
	"github.com/raphaelreyna/igd/pkg/net/upnp-igd/transport/pool"
)

const Backend = "pool"

func defaultTransport(timeout time.Duration) transport.Transport {
	return pool.New(timeout, pool.DefaultSize)
}
