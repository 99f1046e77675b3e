package network

import (
	"fmt"
	"net"
	"strconv"

	"github.com/jackpal/gateway"
)

// GetSourceIP returns the local IPv4 address used to reach target:port.
// If target is the empty string then the default gateway ip is used.
// If the port is 0, then 80 is used.
func GetSourceIP(target string, port int) (net.IP, error) {
	if target == "" {
		ip, err := gateway.DiscoverGateway()
		if err != nil {
			return nil, fmt.Errorf("unable to find default gateway: %w", err)
		}
		target = ip.String()
	}
	if port <= 0 {
		port = 80
	}

	// No packets are sent, the kernel only picks a route.
	conn, err := net.Dial("udp4", net.JoinHostPort(target, strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	return conn.LocalAddr().(*net.UDPAddr).IP, nil
}

// SplitHostPort is like net.SplitHostPort but accepts a bare host,
// returning port 0 for it. ":9000" yields a nil host.
func SplitHostPort(addr string) (net.IP, uint16, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		host, portStr = addr, ""
	}

	var ip net.IP
	if host != "" {
		if ip = net.ParseIP(host); ip == nil {
			return nil, 0, fmt.Errorf("invalid ip address %q", host)
		}
	}

	var port uint16
	if portStr != "" {
		n, err := strconv.ParseUint(portStr, 10, 16)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid port %q", portStr)
		}
		port = uint16(n)
	}
	return ip, port, nil
}
