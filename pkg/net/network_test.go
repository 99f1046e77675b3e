package network

import (
	"net"
	"testing"

	"github.com/matryer/is"
)

func TestGetSourceIPLoopback(t *testing.T) {
	is := is.New(t)

	ip, err := GetSourceIP("127.0.0.1", 0)
	is.NoErr(err)
	is.True(ip.IsLoopback())
}

func TestSplitHostPort(t *testing.T) {
	is := is.New(t)

	ip, port, err := SplitHostPort("192.168.1.50:51413")
	is.NoErr(err)
	is.True(ip.Equal(net.IPv4(192, 168, 1, 50)))
	is.Equal(port, uint16(51413))

	ip, port, err = SplitHostPort(":9000")
	is.NoErr(err)
	is.True(ip == nil)
	is.Equal(port, uint16(9000))

	ip, port, err = SplitHostPort("10.0.0.2")
	is.NoErr(err)
	is.True(ip.Equal(net.IPv4(10, 0, 0, 2)))
	is.Equal(port, uint16(0))

	_, _, err = SplitHostPort("router:80")
	is.True(err != nil)
	_, _, err = SplitHostPort("10.0.0.2:http")
	is.True(err != nil)
}
