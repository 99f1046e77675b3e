// Package description reads UPnP device and service description documents.
//
// The reader is permissive: unknown elements are ignored, missing optional
// elements become empty strings and embedded devices are searched at any
// depth. Only documents that are not well-formed XML are rejected.
package description

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/raphaelreyna/igd/pkg/net/upnp-igd/xmltree"
)

var ErrMalformed = errors.New("malformed description document")

// ServiceDescriptor is one <service> entry of a device description.
type ServiceDescriptor struct {
	ServiceType string
	ServiceID   string
	ControlPath string
	EventPath   string
	SCPDPath    string
}

// Device is the subset of the root device's fields used for logging.
type Device struct {
	DeviceType   string
	FriendlyName string
	Manufacturer string
	ModelName    string
	UDN          string
}

type Document struct {
	Device Device
	// Services lists every service of the root device and its embedded
	// devices in document order.
	Services []ServiceDescriptor
}

func Parse(doc []byte) (*Document, error) {
	root, err := xmltree.Parse(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var d Document
	if dev := root.Child("device"); dev != nil {
		d.Device = Device{
			DeviceType:   dev.ChildText("deviceType"),
			FriendlyName: dev.ChildText("friendlyName"),
			Manufacturer: dev.ChildText("manufacturer"),
			ModelName:    dev.ChildText("modelName"),
			UDN:          dev.ChildText("UDN"),
		}
	}

	root.Walk(func(n, parent *xmltree.Node) bool {
		if n.Name != "service" || parent == nil || parent.Name != "serviceList" {
			return true
		}
		d.Services = append(d.Services, ServiceDescriptor{
			ServiceType: n.ChildText("serviceType"),
			ServiceID:   n.ChildText("serviceId"),
			ControlPath: n.ChildText("controlURL"),
			EventPath:   n.ChildText("eventSubURL"),
			SCPDPath:    n.ChildText("SCPDURL"),
		})
		return false
	})

	return &d, nil
}

// Select returns the first service, in document order, whose type is one of
// accepted.
func Select(services []ServiceDescriptor, accepted []string) (ServiceDescriptor, bool) {
	for _, s := range services {
		for _, a := range accepted {
			if s.ServiceType == a {
				return s, true
			}
		}
	}
	return ServiceDescriptor{}, false
}

// ResolveURL resolves a control, event or SCPD path against the location the
// description was served from. Only the path and query of absolute URLs are
// kept: devices sometimes advertise a wrong host in their own documents.
func ResolveURL(location *url.URL, p string) (*url.URL, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return nil, errors.New("empty path")
	}

	ref, err := url.Parse(p)
	if err != nil {
		return nil, fmt.Errorf("error parsing path %q: %w", p, err)
	}

	base := *location
	base.RawQuery = ""
	base.Fragment = ""
	if ref.IsAbs() || ref.Host != "" {
		ref = &url.URL{
			Path:     ref.Path,
			RawPath:  ref.RawPath,
			RawQuery: ref.RawQuery,
		}
		if ref.Path == "" {
			ref.Path = "/"
		}
	}

	resolved := base.ResolveReference(ref)
	resolved.Scheme = location.Scheme
	resolved.Host = location.Host
	resolved.User = nil

	return resolved, nil
}

// Actions maps an action name to its argument names in declaration order.
type Actions map[string][]string

func (a Actions) Has(action string) bool {
	_, ok := a[action]
	return ok
}

// ParseSCPD reads the action list of a service control protocol description.
func ParseSCPD(doc []byte) (Actions, error) {
	root, err := xmltree.Parse(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	actions := make(Actions)
	for _, a := range root.Find("actionList").ChildrenNamed("action") {
		name := a.ChildText("name")
		if name == "" {
			continue
		}
		var args []string
		for _, arg := range a.Find("argumentList").ChildrenNamed("argument") {
			args = append(args, arg.ChildText("name"))
		}
		actions[name] = args
	}

	return actions, nil
}
