package upnpigd

import (
	"fmt"
	"math"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/raphaelreyna/igd/pkg/net/upnp-igd/soap"
)

type Protocol string

const (
	TCP Protocol = "TCP"
	UDP Protocol = "UDP"
)

// ParseProtocol accepts "tcp" and "udp" in any case.
func ParseProtocol(s string) (Protocol, error) {
	switch p := Protocol(strings.ToUpper(strings.TrimSpace(s))); p {
	case TCP, UDP:
		return p, nil
	default:
		return "", fmt.Errorf("invalid protocol: %q", s)
	}
}

func (p Protocol) valid() bool {
	return p == TCP || p == UDP
}

// PortMapping is one row of the gateway's mapping table, as the gateway
// reported it at the time of the call.
type PortMapping struct {
	// RemoteHost is empty when the mapping accepts any remote host.
	RemoteHost     string
	ExternalPort   uint16
	Protocol       Protocol
	InternalPort   uint16
	InternalClient net.IP
	Enabled        bool
	Description    string
	// LeaseDuration is zero for mappings without expiry.
	LeaseDuration time.Duration
}

func (m PortMapping) String() string {
	return fmt.Sprintf("%s %d -> %s (%s)",
		m.Protocol,
		m.ExternalPort,
		net.JoinHostPort(m.InternalClient.String(), strconv.Itoa(int(m.InternalPort))),
		m.Description,
	)
}

const maxLease = time.Duration(math.MaxUint32) * time.Second

func leaseSeconds(op string, lease time.Duration) (uint64, error) {
	if lease < 0 || lease > maxLease {
		return 0, invalidArgument(op, "lease duration %s out of range", lease)
	}
	// zero on the wire means no expiry
	if lease > 0 && lease < time.Second {
		return 1, nil
	}
	return uint64(lease / time.Second), nil
}

func internalIPv4(op string, addr net.IP) (net.IP, error) {
	ip4 := addr.To4()
	if ip4 == nil {
		return nil, invalidArgument(op, "internal address %v is not an IPv4 address", addr)
	}
	return ip4, nil
}

// mappingFields reads the result fields shared by the generic and specific
// entry actions into m.
func mappingFields(op string, r *soap.Response, m *PortMapping) error {
	var err error
	field := func(name string) string {
		v, _ := r.Field(name)
		return strings.TrimSpace(v)
	}

	if m.InternalPort, err = parsePort(field("NewInternalPort")); err != nil {
		return malformed(op, "NewInternalPort", err)
	}
	if v := field("NewInternalClient"); v != "" {
		if m.InternalClient = net.ParseIP(v); m.InternalClient == nil {
			return malformed(op, "NewInternalClient", fmt.Errorf("invalid address %q", v))
		}
	}
	if m.Enabled, err = parseBool(field("NewEnabled")); err != nil {
		return malformed(op, "NewEnabled", err)
	}
	lease, err := strconv.ParseUint(orZero(field("NewLeaseDuration")), 10, 32)
	if err != nil {
		return malformed(op, "NewLeaseDuration", err)
	}
	m.LeaseDuration = time.Duration(lease) * time.Second
	m.Description, _ = r.Field("NewPortMappingDescription")

	return nil
}

func parseGenericEntry(op string, r *soap.Response) (PortMapping, error) {
	var (
		m   PortMapping
		err error
	)
	v, _ := r.Field("NewRemoteHost")
	m.RemoteHost = strings.TrimSpace(v)

	v, _ = r.Field("NewExternalPort")
	if m.ExternalPort, err = parsePort(strings.TrimSpace(v)); err != nil {
		return m, malformed(op, "NewExternalPort", err)
	}
	v, _ = r.Field("NewProtocol")
	if m.Protocol, err = ParseProtocol(v); err != nil {
		return m, malformed(op, "NewProtocol", err)
	}

	return m, mappingFields(op, r, &m)
}

func parsePort(s string) (uint16, error) {
	p, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, err
	}
	return uint16(p), nil
}

// parseBool accepts the lexical forms gateways are seen to use.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "true", "yes":
		return true, nil
	case "0", "false", "no", "":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", s)
	}
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

func malformed(op, field string, err error) *Error {
	return newError(KindMalformedResponse, op, fmt.Errorf("field %s: %w", field, err))
}
