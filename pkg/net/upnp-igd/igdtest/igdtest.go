// Package igdtest runs an in-process Internet Gateway Device for tests.
//
// The gateway serves a description document with the WAN connection service
// nested two devices deep, answers control requests from an in-memory port
// mapping table, and records every request it receives. Individual actions
// can be scripted with Handle.
package igdtest

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/raphaelreyna/igd/pkg/net/upnp-igd/soap"
	"github.com/raphaelreyna/igd/pkg/net/upnp-igd/ssdp"
)

const (
	ServiceType = "urn:schemas-upnp-org:service:WANIPConnection:1"
	RootPath    = "/rootDesc.xml"
	ControlPath = "/ctl/IPConn"
	SCPDPath    = "/WANIPCn.xml"

	DefaultExternalIP = "203.0.113.7"
)

// StandardActions are the actions WANIPConnection:1 declares for port
// mapping. AddAnyPortMapping only exists from version 2 on.
var StandardActions = []string{
	"GetExternalIPAddress",
	"AddPortMapping",
	"DeletePortMapping",
	"GetGenericPortMappingEntry",
	"GetSpecificPortMappingEntry",
}

// Request is a control request as the gateway received it.
type Request struct {
	Action     string
	SOAPAction string
	Args       []soap.Arg
}

func (r Request) Arg(name string) string {
	for _, a := range r.Args {
		if a.Name == name {
			return a.Value
		}
	}
	return ""
}

// Reply is what a Handler answers with.
type Reply struct {
	Fields []soap.Arg
	Code   int
	Desc   string
	// Status overrides the HTTP status; 200 for results and 500 for faults
	// when zero.
	Status int
	// Raw, when set, is sent as the body verbatim.
	Raw []byte
}

func OK(fields ...soap.Arg) Reply {
	return Reply{Fields: fields}
}

func Fault(code int, desc string) Reply {
	return Reply{Code: code, Desc: desc}
}

func (r Reply) WithStatus(status int) Reply {
	r.Status = status
	return r
}

type Handler func(Request) Reply

// Echo answers with the request's own arguments.
func Echo(r Request) Reply {
	return OK(r.Args...)
}

type Option func(*Gateway)

func WithServiceType(st string) Option {
	return func(g *Gateway) {
		g.serviceType = st
	}
}

// WithActions sets the action list of the service description.
func WithActions(actions ...string) Option {
	return func(g *Gateway) {
		g.actions = actions
	}
}

// WithoutSCPD makes the service description unavailable.
func WithoutSCPD() Option {
	return func(g *Gateway) {
		g.noSCPD = true
	}
}

// WithDescription replaces the generated root description document.
func WithDescription(doc string) Option {
	return func(g *Gateway) {
		g.description = doc
	}
}

func WithExternalIP(ip string) Option {
	return func(g *Gateway) {
		g.externalIP = ip
	}
}

// WithSearchNoise makes the search responder send a malformed datagram and
// a reply for another device type before the real reply.
func WithSearchNoise() Option {
	return func(g *Gateway) {
		g.noise = true
	}
}

type mappingKey struct {
	proto string
	port  string
}

type Gateway struct {
	Server *httptest.Server
	UUID   uuid.UUID

	serviceType string
	actions     []string
	noSCPD      bool
	description string
	externalIP  string
	noise       bool

	mu       sync.Mutex
	handlers map[string]Handler
	requests []Request
	table    []map[string]string
}

// New starts a gateway that is shut down when t's test ends.
func New(t testing.TB, opts ...Option) *Gateway {
	t.Helper()

	g := Gateway{
		UUID:        uuid.New(),
		serviceType: ServiceType,
		actions:     StandardActions,
		externalIP:  DefaultExternalIP,
		handlers:    make(map[string]Handler),
	}
	for _, opt := range opts {
		opt(&g)
	}
	if g.description == "" {
		g.description = rootDescription(g.serviceType, g.UUID)
	}

	r := mux.NewRouter()
	r.HandleFunc(RootPath, g.serveDescription).Methods(http.MethodGet)
	r.HandleFunc(SCPDPath, g.serveSCPD).Methods(http.MethodGet)
	r.HandleFunc(ControlPath, g.serveControl).Methods(http.MethodPost)

	g.Server = httptest.NewServer(r)
	t.Cleanup(g.Server.Close)

	return &g
}

// Location is the URL of the root description document.
func (g *Gateway) Location() string {
	return g.Server.URL + RootPath
}

func (g *Gateway) LocationURL() *url.URL {
	u, _ := url.Parse(g.Location())
	return u
}

// Handle scripts action; it replaces the table-backed behaviour.
func (g *Gateway) Handle(action string, h Handler) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.handlers[action] = h
}

// Requests returns every control request received so far.
func (g *Gateway) Requests() []Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Request(nil), g.requests...)
}

// RequestsFor returns the received requests for action.
func (g *Gateway) RequestsFor(action string) []Request {
	var out []Request
	for _, r := range g.Requests() {
		if r.Action == action {
			out = append(out, r)
		}
	}
	return out
}

// Mappings returns the table as result fields keyed by argument name.
func (g *Gateway) Mappings() []map[string]string {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]map[string]string, 0, len(g.table))
	for _, m := range g.table {
		c := make(map[string]string, len(m))
		for k, v := range m {
			c[k] = v
		}
		out = append(out, c)
	}
	return out
}

func (g *Gateway) serveDescription(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", `text/xml; charset="utf-8"`)
	io.WriteString(w, g.description)
}

func (g *Gateway) serveSCPD(w http.ResponseWriter, r *http.Request) {
	if g.noSCPD {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", `text/xml; charset="utf-8"`)
	io.WriteString(w, scpd(g.actions))
}

func (g *Gateway) serveControl(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	action, args, err := soap.ParseRequest(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	req := Request{
		Action:     action,
		SOAPAction: r.Header.Get(soap.ActionHeader),
		Args:       args,
	}

	g.mu.Lock()
	g.requests = append(g.requests, req)
	h, scripted := g.handlers[action]
	g.mu.Unlock()

	var reply Reply
	switch {
	case req.SOAPAction != soap.ActionValue(g.serviceType, action):
		reply = Fault(401, "Invalid Action")
	case scripted:
		reply = h(req)
	default:
		reply = g.fromTable(req)
	}

	g.write(w, action, reply)
}

func (g *Gateway) write(w http.ResponseWriter, action string, reply Reply) {
	var (
		body   = reply.Raw
		status = reply.Status
		err    error
	)
	if body == nil {
		if reply.Code != 0 {
			body, err = soap.BuildFault(reply.Code, reply.Desc)
		} else {
			body, err = soap.BuildResponse(g.serviceType, action, reply.Fields...)
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	if status == 0 {
		status = http.StatusOK
		if reply.Code != 0 {
			status = http.StatusInternalServerError
		}
	}

	w.Header().Set("Content-Type", soap.ContentType)
	w.WriteHeader(status)
	w.Write(body)
}

var mappingFields = []string{
	"NewRemoteHost",
	"NewExternalPort",
	"NewProtocol",
	"NewInternalPort",
	"NewInternalClient",
	"NewEnabled",
	"NewPortMappingDescription",
	"NewLeaseDuration",
}

// fromTable answers from the in-memory mapping table.
func (g *Gateway) fromTable(r Request) Reply {
	if !g.declares(r.Action) {
		return Fault(401, "Invalid Action")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	key := mappingKey{proto: r.Arg("NewProtocol"), port: r.Arg("NewExternalPort")}
	find := func(k mappingKey) int {
		for i, m := range g.table {
			if m["NewProtocol"] == k.proto && m["NewExternalPort"] == k.port {
				return i
			}
		}
		return -1
	}

	switch r.Action {
	case "GetExternalIPAddress":
		return OK(soap.String("NewExternalIPAddress", g.externalIP))

	case "AddPortMapping":
		if i := find(key); i >= 0 {
			if g.table[i]["NewInternalClient"] != r.Arg("NewInternalClient") {
				return Fault(718, "ConflictInMappingEntry")
			}
			g.table = append(g.table[:i], g.table[i+1:]...)
		}
		g.table = append(g.table, argMap(r))
		return OK()

	case "AddAnyPortMapping":
		port, _ := strconv.Atoi(key.port)
		for ; port <= 65535; port++ {
			if find(mappingKey{proto: key.proto, port: strconv.Itoa(port)}) < 0 {
				break
			}
		}
		if 65535 < port {
			return Fault(728, "NoPortMapsAvailable")
		}
		m := argMap(r)
		m["NewExternalPort"] = strconv.Itoa(port)
		g.table = append(g.table, m)
		return OK(soap.String("NewReservedPort", strconv.Itoa(port)))

	case "DeletePortMapping":
		i := find(key)
		if i < 0 {
			return Fault(714, "NoSuchEntryInArray")
		}
		g.table = append(g.table[:i], g.table[i+1:]...)
		return OK()

	case "GetGenericPortMappingEntry":
		i, err := strconv.Atoi(r.Arg("NewPortMappingIndex"))
		if err != nil {
			return Fault(402, "Invalid Args")
		}
		if i < 0 || len(g.table) <= i {
			return Fault(713, "SpecifiedArrayIndexInvalid")
		}
		return OK(fields(g.table[i], mappingFields)...)

	case "GetSpecificPortMappingEntry":
		i := find(key)
		if i < 0 {
			return Fault(714, "NoSuchEntryInArray")
		}
		return OK(fields(g.table[i], mappingFields[3:])...)

	default:
		return Fault(401, "Invalid Action")
	}
}

func (g *Gateway) declares(action string) bool {
	for _, a := range g.actions {
		if a == action {
			return true
		}
	}
	return false
}

func argMap(r Request) map[string]string {
	m := make(map[string]string, len(mappingFields))
	for _, f := range mappingFields {
		m[f] = r.Arg(f)
	}
	return m
}

func fields(m map[string]string, names []string) []soap.Arg {
	args := make([]soap.Arg, 0, len(names))
	for _, n := range names {
		args = append(args, soap.String(n, m[n]))
	}
	return args
}

func rootDescription(serviceType string, id uuid.UUID) string {
	return fmt.Sprintf(`<?xml version="1.0"?>
<root xmlns="urn:schemas-upnp-org:device-1-0">
  <specVersion><major>1</major><minor>0</minor></specVersion>
  <device>
    <deviceType>urn:schemas-upnp-org:device:InternetGatewayDevice:1</deviceType>
    <friendlyName>igdtest gateway</friendlyName>
    <manufacturer>igdtest</manufacturer>
    <modelName>fixture</modelName>
    <UDN>uuid:%[2]s</UDN>
    <serviceList>
      <service>
        <serviceType>urn:schemas-upnp-org:service:Layer3Forwarding:1</serviceType>
        <serviceId>urn:upnp-org:serviceId:L3Forwarding1</serviceId>
        <controlURL>/ctl/L3F</controlURL>
        <eventSubURL>/evt/L3F</eventSubURL>
        <SCPDURL>/L3F.xml</SCPDURL>
      </service>
    </serviceList>
    <deviceList>
      <device>
        <deviceType>urn:schemas-upnp-org:device:WANDevice:1</deviceType>
        <friendlyName>WANDevice</friendlyName>
        <serviceList>
          <service>
            <serviceType>urn:schemas-upnp-org:service:WANCommonInterfaceConfig:1</serviceType>
            <serviceId>urn:upnp-org:serviceId:WANCommonIFC1</serviceId>
            <controlURL>/ctl/CmnIfCfg</controlURL>
            <eventSubURL>/evt/CmnIfCfg</eventSubURL>
            <SCPDURL>/WANCfg.xml</SCPDURL>
          </service>
        </serviceList>
        <deviceList>
          <device>
            <deviceType>urn:schemas-upnp-org:device:WANConnectionDevice:1</deviceType>
            <friendlyName>WANConnectionDevice</friendlyName>
            <serviceList>
              <service>
                <serviceType>%[1]s</serviceType>
                <serviceId>urn:upnp-org:serviceId:WANIPConn1</serviceId>
                <controlURL>%[3]s</controlURL>
                <eventSubURL>/evt/IPConn</eventSubURL>
                <SCPDURL>%[4]s</SCPDURL>
              </service>
            </serviceList>
          </device>
        </deviceList>
      </device>
    </deviceList>
  </device>
</root>
`, serviceType, id, ControlPath, SCPDPath)
}

func scpd(actions []string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?>
<scpd xmlns="urn:schemas-upnp-org:service-1-0">
  <specVersion><major>1</major><minor>0</minor></specVersion>
  <actionList>
`)
	for _, a := range actions {
		fmt.Fprintf(&b, "    <action><name>%s</name><argumentList>\n", a)
		for _, arg := range actionArgs[a] {
			fmt.Fprintf(&b, "      <argument><name>%s</name></argument>\n", arg)
		}
		b.WriteString("    </argumentList></action>\n")
	}
	b.WriteString("  </actionList>\n</scpd>\n")
	return b.String()
}

var actionArgs = map[string][]string{
	"GetExternalIPAddress":        {"NewExternalIPAddress"},
	"AddPortMapping":              mappingFields,
	"AddAnyPortMapping":           append(append([]string(nil), mappingFields...), "NewReservedPort"),
	"DeletePortMapping":           {"NewRemoteHost", "NewExternalPort", "NewProtocol"},
	"GetGenericPortMappingEntry":  append([]string{"NewPortMappingIndex"}, mappingFields...),
	"GetSpecificPortMappingEntry": mappingFields,
}

// ServeSSDP answers M-SEARCH requests sent to the returned unicast address
// with this gateway's location. It stops when t's test ends.
func (g *Gateway) ServeSSDP(t testing.TB) *net.UDPAddr {
	t.Helper()

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("unable to listen for search requests: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	go func() {
		buf := make([]byte, ssdp.MaxDatagramSize)
		for {
			n, from, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			st, ok := searchTarget(buf[:n])
			if !ok {
				continue
			}
			if g.noise {
				conn.WriteToUDP([]byte("this is not http\r\n\r\n"), from)
				conn.WriteToUDP(searchReply("urn:schemas-upnp-org:device:MediaServer:1", g.UUID, "http://127.0.0.1:1/other.xml"), from)
			}
			conn.WriteToUDP(searchReply(st, g.UUID, g.Location()), from)
		}
	}()

	return conn.LocalAddr().(*net.UDPAddr)
}

func searchTarget(raw []byte) (string, bool) {
	lines := strings.Split(string(raw), "\r\n")
	if len(lines) == 0 || !strings.HasPrefix(lines[0], "M-SEARCH ") {
		return "", false
	}
	for _, l := range lines[1:] {
		name, value, ok := strings.Cut(l, ":")
		if ok && strings.EqualFold(strings.TrimSpace(name), "ST") {
			return strings.TrimSpace(value), true
		}
	}
	return "", false
}

func searchReply(st string, id uuid.UUID, location string) []byte {
	return []byte(fmt.Sprintf("HTTP/1.1 200 OK\r\n"+
		"CACHE-CONTROL: max-age=120\r\n"+
		"ST: %s\r\n"+
		"USN: uuid:%s::%s\r\n"+
		"EXT:\r\n"+
		"SERVER: igdtest/1.0 UPnP/1.1\r\n"+
		"LOCATION: %s\r\n"+
		"\r\n", st, id, st, location))
}
