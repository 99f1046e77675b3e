//go:build igd_coop

package upnpigd

import (
	"time"

	"github.com/raphaelreyna/igd/pkg/net/upnp-igd/transport"
	"github.com/raphaelreyna/igd/pkg/net/upnp-igd/transport/coop"
)

const Backend = "coop"

func defaultTransport(timeout time.Duration) transport.Transport {
	return coop.New(timeout)
}
