// Package soap builds and parses the SOAP 1.1 envelopes UPnP control points
// exchange with a service's control URL.
//
// Everything here works on bytes; sending the envelope is the caller's job.
package soap

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/raphaelreyna/igd/pkg/net/upnp-igd/xmltree"
)

const (
	EnvelopeNamespace = "http://schemas.xmlsoap.org/soap/envelope/"
	EncodingStyle     = "http://schemas.xmlsoap.org/soap/encoding/"
	ControlNamespace  = "urn:schemas-upnp-org:control-1-0"

	ContentType = `text/xml; charset="utf-8"`
	// ActionHeader names the header carrying "<service-type>#<action>".
	// Gateways reject requests without it.
	ActionHeader = "SOAPAction"
)

// ErrMalformed wraps every parse failure in this package.
var ErrMalformed = errors.New("malformed soap envelope")

// Arg is a named action argument or result field. Order matters on the wire.
type Arg struct {
	Name  string
	Value string
}

func String(name, value string) Arg {
	return Arg{Name: name, Value: value}
}

func Uint(name string, value uint64) Arg {
	return Arg{Name: name, Value: strconv.FormatUint(value, 10)}
}

func Int(name string, value int64) Arg {
	return Arg{Name: name, Value: strconv.FormatInt(value, 10)}
}

// Bool uses the "1"/"0" lexical form, which is what the WAN connection
// services declare for NewEnabled.
func Bool(name string, value bool) Arg {
	if value {
		return Arg{Name: name, Value: "1"}
	}
	return Arg{Name: name, Value: "0"}
}

// Request is a serialized action invocation.
type Request struct {
	Action string
	Header http.Header
	Body   []byte
}

// ActionValue renders the quoted SOAPAction header value.
func ActionValue(serviceType, action string) string {
	return fmt.Sprintf(`"%s#%s"`, serviceType, action)
}

func BuildRequest(serviceType, action string, args ...Arg) (*Request, error) {
	if serviceType == "" {
		return nil, errors.New("empty service type")
	}
	if action == "" {
		return nil, errors.New("empty action name")
	}

	call := xmltree.Element("u:"+action).Attr("xmlns:u", serviceType)
	for _, a := range args {
		if a.Name == "" {
			return nil, fmt.Errorf("unnamed argument in %s", action)
		}
		call.Children = append(call.Children, xmltree.TextElement(a.Name, a.Value))
	}

	body, err := xmltree.Marshal(envelope(call))
	if err != nil {
		return nil, fmt.Errorf("error encoding %s request: %w", action, err)
	}

	h := make(http.Header)
	h.Set("Content-Type", ContentType)
	h[ActionHeader] = []string{ActionValue(serviceType, action)}

	return &Request{
		Action: action,
		Header: h,
		Body:   body,
	}, nil
}

func envelope(body *xmltree.Node) *xmltree.Node {
	return xmltree.Element("s:Envelope",
		xmltree.Element("s:Body", body),
	).
		Attr("xmlns:s", EnvelopeNamespace).
		Attr("s:encodingStyle", EncodingStyle)
}

// Response holds the result fields of a successful action. Values are left
// as strings; their types depend on the action.
type Response struct {
	Action string
	Fields map[string]string
	// Order lists field names as they appeared.
	Order []string
}

func (r *Response) Field(name string) (string, bool) {
	v, ok := r.Fields[name]
	return v, ok
}

// Fault is a SOAP fault carrying a UPnPError detail.
type Fault struct {
	// FaultCode is the SOAP faultcode QName, normally "s:Client".
	FaultCode   string
	FaultString string
	// Code is the UPnP errorCode, 0 when the gateway omitted it.
	Code        int
	Description string
}

func (f *Fault) Error() string {
	if f.Description != "" {
		return fmt.Sprintf("upnp error %d: %s", f.Code, f.Description)
	}
	return fmt.Sprintf("upnp error %d (%s)", f.Code, f.FaultString)
}

// ParseResponse classifies body by structure. Exactly one of the returned
// response and fault is non-nil when err is nil.
func ParseResponse(body []byte) (*Response, *Fault, error) {
	root, err := xmltree.Parse(body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	b, err := envelopeBody(root)
	if err != nil {
		return nil, nil, err
	}

	if f := b.Child("Fault"); f != nil {
		return nil, parseFault(f), nil
	}

	resp := Response{Fields: make(map[string]string)}
	for _, c := range b.Children {
		resp.Action = strings.TrimSuffix(c.Name, "Response")
		for _, field := range c.Children {
			if _, dup := resp.Fields[field.Name]; !dup {
				resp.Order = append(resp.Order, field.Name)
			}
			resp.Fields[field.Name] = field.Text
		}
		break
	}

	return &resp, nil, nil
}

func envelopeBody(root *xmltree.Node) (*xmltree.Node, error) {
	if root.Name != "Envelope" {
		return nil, fmt.Errorf("%w: root element is <%s>", ErrMalformed, root.Name)
	}
	b := root.Child("Body")
	if b == nil {
		return nil, fmt.Errorf("%w: missing Body", ErrMalformed)
	}
	return b, nil
}

func parseFault(n *xmltree.Node) *Fault {
	f := Fault{
		FaultCode:   n.ChildText("faultcode"),
		FaultString: n.ChildText("faultstring"),
	}

	detail := n.Find("detail", "UPnPError")
	if detail == nil {
		return &f
	}
	f.Code, _ = strconv.Atoi(detail.ChildText("errorCode"))
	f.Description = detail.ChildText("errorDescription")

	return &f
}

// ParseRequest is the service side of BuildRequest.
func ParseRequest(body []byte) (string, []Arg, error) {
	root, err := xmltree.Parse(body)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	b, err := envelopeBody(root)
	if err != nil {
		return "", nil, err
	}
	if len(b.Children) == 0 {
		return "", nil, fmt.Errorf("%w: empty Body", ErrMalformed)
	}

	call := b.Children[0]
	args := make([]Arg, 0, len(call.Children))
	for _, c := range call.Children {
		args = append(args, Arg{Name: c.Name, Value: c.Text})
	}

	return call.Name, args, nil
}

// BuildResponse renders a successful result envelope for action.
func BuildResponse(serviceType, action string, fields ...Arg) ([]byte, error) {
	result := xmltree.Element("u:"+action+"Response").Attr("xmlns:u", serviceType)
	for _, f := range fields {
		result.Children = append(result.Children, xmltree.TextElement(f.Name, f.Value))
	}
	return xmltree.Marshal(envelope(result))
}

// BuildFault renders a UPnPError fault envelope.
func BuildFault(code int, description string) ([]byte, error) {
	detail := xmltree.Element("UPnPError",
		xmltree.TextElement("errorCode", strconv.Itoa(code)),
		xmltree.TextElement("errorDescription", description),
	).Attr("xmlns", ControlNamespace)

	fault := xmltree.Element("s:Fault",
		xmltree.TextElement("faultcode", "s:Client"),
		xmltree.TextElement("faultstring", "UPnPError"),
		xmltree.Element("detail", detail),
	)

	return xmltree.Marshal(envelope(fault))
}
