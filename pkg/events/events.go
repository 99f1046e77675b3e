package events

import (
	"context"
	"net"
	"sync"
	"time"

	upnpigd "github.com/raphaelreyna/igd/pkg/net/upnp-igd"
)

// Event represents something igdctl should report to the user.
type Event interface {
	_event
}

type _event interface {
	isEvent()
}

type SetEventChanFunc func(context.Context, chan Event)

func RegisterEventListener(ctx context.Context, f SetEventChanFunc) {
	b := bndl(ctx)
	f(ctx, b.eventsChan)
}

// LocationFound is raised for each distinct gateway location seen during discovery.
type LocationFound struct {
	URL          string `json:"url"`
	SearchTarget string `json:"searchTarget"`
	USN          string `json:"usn,omitempty"`
	UUID         string `json:"uuid,omitempty"`
	Server       string `json:"server,omitempty"`
}

func (*LocationFound) isEvent() {}

// GatewayResolved is raised once the gateway a command talks to is known.
type GatewayResolved struct {
	Name        string `json:"name,omitempty"`
	RootURL     string `json:"rootURL"`
	ControlURL  string `json:"controlURL"`
	ServiceType string `json:"serviceType"`
}

func (*GatewayResolved) isEvent() {}

type ExternalIP struct {
	IP net.IP `json:"externalIP"`
}

func (*ExternalIP) isEvent() {}

// Mapping reports a port mapping, either one read from the gateway or one
// that was just created.
type Mapping struct {
	RemoteHost     string        `json:"remoteHost,omitempty"`
	ExternalPort   uint16        `json:"externalPort"`
	Protocol       string        `json:"protocol"`
	InternalClient string        `json:"internalClient"`
	InternalPort   uint16        `json:"internalPort"`
	Enabled        bool          `json:"enabled"`
	Description    string        `json:"description,omitempty"`
	Lease          time.Duration `json:"lease"`
	Created        bool          `json:"created,omitempty"`
}

func (*Mapping) isEvent() {}

func NewMapping(m upnpigd.PortMapping) *Mapping {
	e := Mapping{
		RemoteHost:   m.RemoteHost,
		ExternalPort: m.ExternalPort,
		Protocol:     string(m.Protocol),
		InternalPort: m.InternalPort,
		Enabled:      m.Enabled,
		Description:  m.Description,
		Lease:        m.LeaseDuration,
	}
	if m.InternalClient != nil {
		e.InternalClient = m.InternalClient.String()
	}
	return &e
}

type MappingRemoved struct {
	Protocol     string `json:"protocol"`
	ExternalPort uint16 `json:"externalPort"`
}

func (*MappingRemoved) isEvent() {}

// CommandFailed carries the error a command returned.
type CommandFailed struct {
	Err error
}

func (*CommandFailed) isEvent() {}

func (c *CommandFailed) Error() string {
	return c.Err.Error()
}

func WithEvents(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	b := bundle{
		eventsChan: make(chan Event, 1),
		cancel:     cancel,
		exitCode:   -1,
	}
	ctx = context.WithValue(ctx, bundleKey{}, &b)

	return ctx
}

func Raise(ctx context.Context, e Event) {
	bndl(ctx).eventsChan <- e
}

// Stop closes the event stream; no event may be raised afterwards.
func Stop(ctx context.Context) {
	b := bndl(ctx)
	b.stopOnce.Do(func() {
		close(b.eventsChan)
	})
}

// Cancel cancels the context returned by WithEvents.
func Cancel(ctx context.Context) {
	bndl(ctx).cancel()
}

type bundleKey struct{}
type bundle struct {
	eventsChan chan Event
	stopOnce   sync.Once
	cancel     func()
	exitCode   int
}

func bndl(ctx context.Context) *bundle {
	b, ok := ctx.Value(bundleKey{}).(*bundle)
	if !ok {
		panic("missing event bundle missing from context")
	}
	return b
}

func SetExitCode(ctx context.Context, code int) {
	b := bndl(ctx)
	b.exitCode = code
}

func GetExitCode(ctx context.Context) int {
	b := bndl(ctx)
	return b.exitCode
}
