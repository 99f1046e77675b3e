// Package ssdp encodes M-SEARCH requests and decodes the unicast replies
// gateways send back. It performs no I/O.
package ssdp

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MulticastAddr = "239.255.255.250:1900"

	DefaultSearchTarget = "urn:schemas-upnp-org:device:InternetGatewayDevice:1"
	SearchAll           = "ssdp:all"
	RootDevice          = "upnp:rootdevice"

	// MaxDatagramSize bounds a single reply.
	MaxDatagramSize = 65535

	minMX = 1
	maxMX = 5
)

var (
	ErrNotSearchResponse = errors.New("not a search response")
	ErrTargetMismatch    = errors.New("search target mismatch")
	ErrNoLocation        = errors.New("missing location")
)

// Location is a gateway description URL announced in a search reply.
type Location struct {
	URL          *url.URL
	SearchTarget string
	USN          string
	// UUID is parsed from USN; it is uuid.Nil when the device sent something else.
	UUID   uuid.UUID
	Server string
	From   *net.UDPAddr
}

func (l Location) String() string {
	if l.URL == nil {
		return ""
	}
	return l.URL.String()
}

// ParseLocation builds a Location from a description URL, bypassing discovery.
func ParseLocation(raw string) (Location, error) {
	u, err := parseLocationURL(raw)
	if err != nil {
		return Location{}, err
	}
	return Location{URL: u}, nil
}

// MX converts a search window into the MX header value, clamped to 1-5s.
func MX(window time.Duration) int {
	mx := int(window / time.Second)
	if mx < minMX {
		return minMX
	}
	if mx > maxMX {
		return maxMX
	}
	return mx
}

// SearchRequest renders an M-SEARCH request for st.
func SearchRequest(host, st string, mx int, userAgent string) []byte {
	var b strings.Builder
	b.WriteString("M-SEARCH * HTTP/1.1\r\n")
	fmt.Fprintf(&b, "HOST: %s\r\n", host)
	fmt.Fprintf(&b, "ST: %s\r\n", st)
	b.WriteString("MAN: \"ssdp:discover\"\r\n")
	fmt.Fprintf(&b, "MX: %d\r\n", mx)
	if userAgent != "" {
		fmt.Fprintf(&b, "USER-AGENT: %s\r\n", userAgent)
	}
	b.WriteString("\r\n")
	return []byte(b.String())
}

// ParseResponse decodes a search reply and checks it answers st.
func ParseResponse(raw []byte, st string) (Location, error) {
	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(raw)), nil)
	if err != nil {
		return Location{}, fmt.Errorf("%w: %v", ErrNotSearchResponse, err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("%w: status %d", ErrNotSearchResponse, resp.StatusCode)
	}

	respST := strings.TrimSpace(resp.Header.Get("St"))
	if !Matches(st, respST) {
		return Location{}, fmt.Errorf("%w: %q", ErrTargetMismatch, respST)
	}

	rawLocation := strings.TrimSpace(resp.Header.Get("Location"))
	if rawLocation == "" {
		return Location{}, ErrNoLocation
	}
	u, err := parseLocationURL(rawLocation)
	if err != nil {
		return Location{}, err
	}

	usn := strings.TrimSpace(resp.Header.Get("Usn"))
	return Location{
		URL:          u,
		SearchTarget: respST,
		USN:          usn,
		UUID:         usnUUID(usn),
		Server:       resp.Header.Get("Server"),
	}, nil
}

func parseLocationURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("error parsing location url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid location scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid location %q: no host", raw)
	}
	return u, nil
}

func usnUUID(usn string) uuid.UUID {
	head, _, _ := strings.Cut(usn, "::")
	if !strings.HasPrefix(head, "uuid:") {
		return uuid.Nil
	}
	id, err := uuid.Parse(strings.TrimPrefix(head, "uuid:"))
	if err != nil {
		return uuid.Nil
	}
	return id
}

// Matches reports whether a reply with search target reply answers a search
// for target. "ssdp:all" and "upnp:rootdevice" searches accept any reply. A
// URN matches the same type at the requested version or a later one, since
// later versions of a UPnP type keep the earlier ones' actions.
func Matches(target, reply string) bool {
	if reply == "" {
		return false
	}
	if target == SearchAll || target == RootDevice || target == reply {
		return true
	}

	tType, tVersion, ok := splitURN(target)
	if !ok {
		return false
	}
	rType, rVersion, ok := splitURN(reply)
	if !ok {
		return false
	}
	return tType == rType && tVersion > 0 && rVersion >= tVersion
}

// splitURN splits "urn:domain:device:Type:2" into its type and version.
func splitURN(s string) (string, int, bool) {
	if !strings.HasPrefix(s, "urn:") {
		return "", 0, false
	}
	i := strings.LastIndexByte(s, ':')
	if i < 0 {
		return "", 0, false
	}
	v, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return "", 0, false
	}
	return s[:i], v, true
}
