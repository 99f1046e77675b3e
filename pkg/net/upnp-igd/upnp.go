// Package upnpigd is a UPnP Internet Gateway Device control point. It finds a
// gateway on the local network and drives its WAN connection service to
// query the external address and manage port mappings.
//
// All network I/O goes through a transport.Transport chosen at build time:
// the default build blocks the calling goroutine, the igd_coop and igd_pool
// build tags select the cooperative backends.
package upnpigd

import (
	"time"

	"github.com/raphaelreyna/igd/pkg/net/upnp-igd/ssdp"
)

const (
	URN_InternetGatewayDevice1 = "urn:schemas-upnp-org:device:InternetGatewayDevice:1"
	URN_InternetGatewayDevice2 = "urn:schemas-upnp-org:device:InternetGatewayDevice:2"

	URN_WANIPConnection1  = "urn:schemas-upnp-org:service:WANIPConnection:1"
	URN_WANIPConnection2  = "urn:schemas-upnp-org:service:WANIPConnection:2"
	URN_WANPPPConnection1 = "urn:schemas-upnp-org:service:WANPPPConnection:1"
)

const (
	DefaultSearchTimeout   = 10 * time.Second
	DefaultResponseTimeout = 5 * time.Second
	DefaultRequestTimeout  = 10 * time.Second

	// maxEntries bounds PortMappings against gateways that never report the
	// end of their table.
	maxEntries = 1024
)

// AcceptedServiceTypes are tried in order when selecting the control service.
var AcceptedServiceTypes = []string{
	URN_WANIPConnection1,
	URN_WANIPConnection2,
	URN_WANPPPConnection1,
}

var DefaultSearchTargets = []string{ssdp.DefaultSearchTarget}

// action names
const (
	actionGetExternalIPAddress       = "GetExternalIPAddress"
	actionAddPortMapping             = "AddPortMapping"
	actionAddAnyPortMapping          = "AddAnyPortMapping"
	actionDeletePortMapping          = "DeletePortMapping"
	actionGetGenericPortMappingEntry = "GetGenericPortMappingEntry"
	actionGetSpecificPortMapping     = "GetSpecificPortMappingEntry"
)
