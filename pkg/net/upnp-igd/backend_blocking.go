//go:build !igd_coop && !igd_pool

package upnpigd

import (
	"time"

	"github.com/raphaelreyna/igd/pkg/net/upnp-igd/transport"
	"github.com/raphaelreyna/igd/pkg/net/upnp-igd/transport/blocking"
)

// Backend names the transport compiled in as the default.
const Backend = "blocking"

func defaultTransport(timeout time.Duration) transport.Transport {
	return blocking.New(timeout)
}
