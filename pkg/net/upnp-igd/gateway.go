package upnpigd

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/raphaelreyna/igd/pkg/net/upnp-igd/description"
	"github.com/raphaelreyna/igd/pkg/net/upnp-igd/soap"
)

// Gateway is a resolved WAN connection service. It holds no mutable state
// and may be used from several goroutines at once; every call is a fresh
// round trip to the device.
type Gateway struct {
	client      *Client
	root        *url.URL
	control     *url.URL
	serviceType string
	serviceID   string
	device      description.Device
	// actions is nil when the service description could not be read.
	actions description.Actions
}

// Addr is the device's host:port as seen in its location URL.
func (g *Gateway) Addr() string {
	if g.root.Port() != "" {
		return g.root.Host
	}
	port := "80"
	if g.root.Scheme == "https" {
		port = "443"
	}
	return net.JoinHostPort(g.root.Hostname(), port)
}

func (g *Gateway) RootURL() string     { return g.root.String() }
func (g *Gateway) ControlURL() string  { return g.control.String() }
func (g *Gateway) ServiceType() string { return g.serviceType }
func (g *Gateway) ServiceID() string   { return g.serviceID }

// FriendlyName is the device's self-reported name, possibly empty.
func (g *Gateway) FriendlyName() string { return g.device.FriendlyName }

// Actions returns the action directory of the service, or nil if it is
// unknown. The returned map must not be modified.
func (g *Gateway) Actions() description.Actions {
	return g.actions
}

func (g *Gateway) String() string {
	name := g.device.FriendlyName
	if name == "" {
		name = g.Addr()
	}
	return fmt.Sprintf("%s (%s at %s)", name, g.serviceType, g.control)
}

// LocalIP returns the local address the host uses to reach the gateway.
// No packets are sent.
func (g *Gateway) LocalIP(ctx context.Context) (net.IP, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp4", g.Addr())
	if err != nil {
		return nil, newError(KindTransport, "local ip", err)
	}
	defer conn.Close()

	return conn.LocalAddr().(*net.UDPAddr).IP, nil
}

func (g *Gateway) ExternalIP(ctx context.Context) (net.IP, error) {
	const op = "get external ip"

	r, f, err := g.perform(ctx, op, actionGetExternalIPAddress)
	if err != nil {
		return nil, err
	}
	if f != nil {
		return nil, protocolFault(op, f)
	}

	raw, _ := r.Field("NewExternalIPAddress")
	ip := net.ParseIP(strings.TrimSpace(raw)).To4()
	if ip == nil {
		return nil, malformed(op, "NewExternalIPAddress", fmt.Errorf("invalid ipv4 address %q", raw))
	}

	return ip, nil
}

// AddPort maps externalPort to internalAddr:internalPort. A lease of zero
// asks for a mapping without expiry. ErrPortInUse is returned when the
// external port is already mapped; AddPort never retries.
func (g *Gateway) AddPort(ctx context.Context, proto Protocol, externalPort uint16, internalAddr net.IP, internalPort uint16, lease time.Duration, desc string) error {
	const op = "add port"

	if externalPort == 0 {
		return invalidArgument(op, "external port must not be 0, use AddAnyPort")
	}
	args, err := mappingArgs(op, proto, internalAddr, internalPort, lease)
	if err != nil {
		return err
	}

	return g.addPortMapping(ctx, op, externalPort, args, desc)
}

type mappingRequest struct {
	proto        Protocol
	internalAddr net.IP
	internalPort uint16
	lease        uint64
}

func mappingArgs(op string, proto Protocol, internalAddr net.IP, internalPort uint16, lease time.Duration) (mappingRequest, error) {
	var (
		m   mappingRequest
		err error
	)
	if !proto.valid() {
		return m, invalidArgument(op, "invalid protocol %q", proto)
	}
	if internalPort == 0 {
		return m, invalidArgument(op, "internal port must not be 0")
	}
	if m.internalAddr, err = internalIPv4(op, internalAddr); err != nil {
		return m, err
	}
	if m.lease, err = leaseSeconds(op, lease); err != nil {
		return m, err
	}
	m.proto = proto
	m.internalPort = internalPort
	return m, nil
}

func (m mappingRequest) soapArgs(externalPort uint16, desc string) []soap.Arg {
	return []soap.Arg{
		soap.String("NewRemoteHost", ""),
		soap.Uint("NewExternalPort", uint64(externalPort)),
		soap.String("NewProtocol", string(m.proto)),
		soap.Uint("NewInternalPort", uint64(m.internalPort)),
		soap.String("NewInternalClient", m.internalAddr.String()),
		soap.Bool("NewEnabled", true),
		soap.String("NewPortMappingDescription", desc),
		soap.Uint("NewLeaseDuration", m.lease),
	}
}

func (g *Gateway) addPortMapping(ctx context.Context, op string, externalPort uint16, m mappingRequest, desc string) error {
	_, f, err := g.perform(ctx, op, actionAddPortMapping, m.soapArgs(externalPort, desc)...)
	if err != nil {
		return err
	}
	if f == nil {
		return nil
	}

	switch f.Code {
	case CodeConflictInMappingEntry, CodeConflictWithOtherMechanisms:
		return faultError(KindPortInUse, op, f.Code, f.Description)
	default:
		return protocolFault(op, f)
	}
}

// AddAnyPort maps some free external port to internalAddr:internalPort and
// returns it. The gateway's AddAnyPortMapping action is used when the
// service offers it; otherwise candidate ports are proposed from the
// client's PortSource, within its AnyPortPolicy.
func (g *Gateway) AddAnyPort(ctx context.Context, proto Protocol, internalAddr net.IP, internalPort uint16, lease time.Duration, desc string) (uint16, error) {
	const op = "add any port"

	m, err := mappingArgs(op, proto, internalAddr, internalPort, lease)
	if err != nil {
		return 0, err
	}

	if g.actions == nil || g.actions.Has(actionAddAnyPortMapping) {
		port, err := g.addAnyPortMapping(ctx, op, m, desc)
		switch {
		case err == nil:
			return port, nil
		case g.actions == nil && isUnsupportedAction(err):
			g.client.log(ctx).Debug().
				Msg("gateway does not implement AddAnyPortMapping, proposing ports")
		default:
			return 0, err
		}
	}

	return g.addAnyPortFallback(ctx, op, m, desc)
}

func (g *Gateway) addAnyPortMapping(ctx context.Context, op string, m mappingRequest, desc string) (uint16, error) {
	// The external port is only a hint for this action.
	r, f, err := g.perform(ctx, op, actionAddAnyPortMapping, m.soapArgs(m.internalPort, desc)...)
	if err != nil {
		return 0, err
	}
	if f != nil {
		if f.Code == CodeNoPortMapsAvailable {
			return 0, faultError(KindNoPortsAvailable, op, f.Code, f.Description)
		}
		return 0, protocolFault(op, f)
	}

	raw, _ := r.Field("NewReservedPort")
	port, err := parsePort(strings.TrimSpace(raw))
	if err != nil || port == 0 {
		return 0, malformed(op, "NewReservedPort", fmt.Errorf("invalid port %q", raw))
	}

	return port, nil
}

func isUnsupportedAction(err error) bool {
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindProtocolFault {
		return false
	}
	return e.Code == CodeInvalidAction || e.Code == CodeOptionalActionNotImplemented
}

func (g *Gateway) addAnyPortFallback(ctx context.Context, op string, m mappingRequest, desc string) (uint16, error) {
	var (
		c        = g.client
		log      = c.log(ctx)
		policy   = c.anyPort
		samePort = false
		attempts = 0
	)
	defer func() {
		c.metrics.observeAnyPortAttempts(attempts)
	}()

	for attempts < policy.Attempts {
		if err := ctx.Err(); err != nil {
			return 0, newError(KindTransport, op, err)
		}

		port := m.internalPort
		if !samePort {
			port = c.ports.Port(policy.MinPort, policy.MaxPort)
		}
		attempts++

		err := g.addPortMapping(ctx, op, port, m, desc)
		if err == nil {
			return port, nil
		}

		var e *Error
		errors.As(err, &e)
		switch {
		case e != nil && e.Kind == KindPortInUse && !samePort:
			log.Debug().
				Uint16("port", port).
				Int("attempt", attempts).
				Msg("proposed port is in use")
		case e != nil && e.Code == CodeSamePortValuesRequired && !samePort:
			log.Debug().
				Uint16("port", m.internalPort).
				Msg("gateway requires external port to equal internal port")
			samePort = true
		case e != nil && e.Kind == KindPortInUse:
			// Only the internal port is acceptable and it is taken.
			return 0, newError(KindNoPortsAvailable, op, err)
		default:
			return 0, err
		}
	}

	return 0, newError(KindNoPortsAvailable, op,
		fmt.Errorf("no free port in %d attempts", attempts))
}

// RemovePort deletes a mapping. Removing a mapping that does not exist
// succeeds.
func (g *Gateway) RemovePort(ctx context.Context, proto Protocol, externalPort uint16) error {
	const op = "remove port"

	if !proto.valid() {
		return invalidArgument(op, "invalid protocol %q", proto)
	}
	if externalPort == 0 {
		return invalidArgument(op, "external port must not be 0")
	}

	_, f, err := g.perform(ctx, op, actionDeletePortMapping,
		soap.String("NewRemoteHost", ""),
		soap.Uint("NewExternalPort", uint64(externalPort)),
		soap.String("NewProtocol", string(proto)),
	)
	if err != nil {
		return err
	}
	if f == nil {
		return nil
	}
	if f.Code == CodeNoSuchEntryInArray {
		g.client.log(ctx).Debug().
			Str("protocol", string(proto)).
			Uint16("port", externalPort).
			Msg("no mapping to remove")
		return nil
	}

	return protocolFault(op, f)
}

// GenericPortMappingEntry returns the mapping at index. Indexes are not
// stable across calls: the table may change between them. An index past
// the end yields ErrEnumerationComplete.
func (g *Gateway) GenericPortMappingEntry(ctx context.Context, index int) (PortMapping, error) {
	const op = "get generic port mapping entry"

	if index < 0 || math.MaxUint16 < index {
		return PortMapping{}, invalidArgument(op, "index %d out of range", index)
	}

	r, f, err := g.perform(ctx, op, actionGetGenericPortMappingEntry,
		soap.Uint("NewPortMappingIndex", uint64(index)),
	)
	if err != nil {
		return PortMapping{}, err
	}
	if f != nil {
		switch f.Code {
		case CodeSpecifiedArrayIndexInvalid, CodeNoSuchEntryInArray:
			return PortMapping{}, faultError(KindEnumerationComplete, op, f.Code, f.Description)
		default:
			return PortMapping{}, protocolFault(op, f)
		}
	}

	return parseGenericEntry(op, r)
}

// SpecificPortMappingEntry looks up the mapping for proto and externalPort.
// A missing mapping is a ProtocolFault with code 714.
func (g *Gateway) SpecificPortMappingEntry(ctx context.Context, proto Protocol, externalPort uint16) (PortMapping, error) {
	const op = "get specific port mapping entry"

	if !proto.valid() {
		return PortMapping{}, invalidArgument(op, "invalid protocol %q", proto)
	}
	if externalPort == 0 {
		return PortMapping{}, invalidArgument(op, "external port must not be 0")
	}

	r, f, err := g.perform(ctx, op, actionGetSpecificPortMapping,
		soap.String("NewRemoteHost", ""),
		soap.Uint("NewExternalPort", uint64(externalPort)),
		soap.String("NewProtocol", string(proto)),
	)
	if err != nil {
		return PortMapping{}, err
	}
	if f != nil {
		return PortMapping{}, protocolFault(op, f)
	}

	m := PortMapping{
		ExternalPort: externalPort,
		Protocol:     proto,
	}
	if err := mappingFields(op, r, &m); err != nil {
		return PortMapping{}, err
	}
	return m, nil
}

// PortMappings enumerates the gateway's table from index 0 until the
// gateway reports the end. The result is a snapshot at best.
func (g *Gateway) PortMappings(ctx context.Context) ([]PortMapping, error) {
	var mappings []PortMapping
	for i := 0; i < maxEntries; i++ {
		m, err := g.GenericPortMappingEntry(ctx, i)
		if errors.Is(err, ErrEnumerationComplete) {
			return mappings, nil
		}
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}

	g.client.log(ctx).Warn().
		Int("entries", maxEntries).
		Msg("stopped enumerating port mappings before the gateway reported the end")

	return mappings, nil
}
