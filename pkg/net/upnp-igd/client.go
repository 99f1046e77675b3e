package upnpigd

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/raphaelreyna/igd/pkg/net/upnp-igd/description"
	"github.com/raphaelreyna/igd/pkg/net/upnp-igd/ssdp"
	"github.com/raphaelreyna/igd/pkg/net/upnp-igd/transport"
)

// Location is a candidate gateway description URL.
type Location = ssdp.Location

const DefaultUserAgent = "upnpigd UPnP/1.1"

// Client finds and resolves gateways. It is safe for concurrent use and
// must not be modified after NewClient returns.
type Client struct {
	transport       transport.Transport
	logger          *zerolog.Logger
	requestTimeout  time.Duration
	responseTimeout time.Duration
	searchTargets   []string
	broadcastAddr   *net.UDPAddr
	bindAddr        *net.UDPAddr
	userAgent       string
	anyPort         AnyPortPolicy
	ports           PortSource
	clock           clock.Clock
	cache           *expirable.LRU[string, *Gateway]
	metrics         *metrics
	accepted        []string
}

func NewClient(opts ...Option) *Client {
	c := Client{
		requestTimeout:  DefaultRequestTimeout,
		responseTimeout: DefaultResponseTimeout,
		searchTargets:   DefaultSearchTargets,
		broadcastAddr:   defaultBroadcastAddr(),
		userAgent:       DefaultUserAgent,
		anyPort:         DefaultAnyPortPolicy(),
		clock:           clock.New(),
		accepted:        AcceptedServiceTypes,
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.transport == nil {
		c.transport = defaultTransport(c.requestTimeout)
	}
	if c.ports == nil {
		c.ports = NewRandomPortSource(rand.Uint64(), rand.Uint64())
	}
	return &c
}

func (c *Client) log(ctx context.Context) *zerolog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return zerolog.Ctx(ctx)
}

// Discovery is a running search. Locations yields each distinct location
// once and is closed when the search window ends or the context is done.
type Discovery struct {
	Locations <-chan Location

	done chan struct{}
	err  error
}

// Err waits for the search to end and reports why it failed, if it did.
// Locations must be drained, or the context canceled, before calling Err.
func (d *Discovery) Err() error {
	<-d.done
	return d.err
}

// Discover multicasts one search per configured search target and collects
// replies for timeout. Replies that are malformed or answer a different
// search target are dropped. A non-positive timeout yields no locations.
func (c *Client) Discover(ctx context.Context, timeout time.Duration) (*Discovery, error) {
	var (
		out  = make(chan Location)
		disc = Discovery{Locations: out, done: make(chan struct{})}
	)
	if timeout <= 0 {
		close(out)
		close(disc.done)
		return &disc, nil
	}

	var (
		log      = c.log(ctx)
		deadline = c.clock.Now().Add(timeout)
		mx       = ssdp.MX(timeout)
		conns    = make([]transport.DatagramConn, 0, len(c.searchTargets))
	)
	closeAll := func() {
		for _, conn := range conns {
			conn.Close()
		}
	}

	// Sends happen before returning so the caller sees socket failures.
	for _, st := range c.searchTargets {
		conn, err := c.transport.ListenDatagram(ctx, c.bindAddr)
		if err != nil {
			closeAll()
			return nil, newError(KindTransport, "discover", err)
		}
		conns = append(conns, conn)

		req := ssdp.SearchRequest(c.broadcastAddr.String(), st, mx, c.userAgent)
		if err := conn.SendTo(ctx, req, c.broadcastAddr); err != nil {
			closeAll()
			return nil, newError(KindTransport, "discover", err)
		}
		log.Debug().
			Str("st", st).
			Str("addr", c.broadcastAddr.String()).
			Msg("sent search request")
	}

	found := make(chan Location)
	g, gctx := errgroup.WithContext(ctx)
	for i, st := range c.searchTargets {
		conn := conns[i]
		st := st
		g.Go(func() error {
			defer conn.Close()
			return c.receive(gctx, conn, st, deadline, found)
		})
	}

	go func() {
		err := g.Wait()
		close(found)
		if err != nil && ctx.Err() == nil {
			disc.err = newError(KindTransport, "discover", err)
		} else if ctx.Err() != nil {
			disc.err = newError(KindTransport, "discover", ctx.Err())
		}
		close(disc.done)
	}()

	go func() {
		defer close(out)
		seen := make(map[string]struct{})
		for loc := range found {
			key := loc.URL.String()
			if _, already := seen[key]; already {
				continue
			}
			seen[key] = struct{}{}
			c.metrics.observeLocation()

			select {
			case out <- loc:
			case <-ctx.Done():
				// drain so the receive loops can exit
				for range found {
				}
				return
			}
		}
	}()

	return &disc, nil
}

// receive reads replies on conn until deadline passes.
func (c *Client) receive(ctx context.Context, conn transport.DatagramConn, st string, deadline time.Time, found chan<- Location) error {
	log := c.log(ctx)
	buf := make([]byte, ssdp.MaxDatagramSize)

	for {
		remaining := deadline.Sub(c.clock.Now())
		if remaining <= 0 {
			return nil
		}
		wait := min(remaining, c.responseTimeout)

		n, from, err := conn.ReceiveFrom(ctx, buf, wait)
		switch {
		case errors.Is(err, transport.ErrTimeout):
			continue
		case ctx.Err() != nil:
			return nil
		case err != nil:
			return err
		}

		loc, err := ssdp.ParseResponse(buf[:n], st)
		if err != nil {
			log.Debug().Err(err).
				Str("from", from.String()).
				Msg("dropping search reply")
			continue
		}
		loc.From = from

		select {
		case found <- loc:
		case <-ctx.Done():
			return nil
		}
	}
}

// Resolve fetches and parses the description at loc and selects the service
// to control. A gateway that lists none of the accepted service types is
// reported as ErrUnsupportedGateway.
func (c *Client) Resolve(ctx context.Context, loc Location) (*Gateway, error) {
	const op = "resolve"
	if loc.URL == nil {
		return nil, invalidArgument(op, "location has no url")
	}

	key := loc.URL.String()
	if c.cache != nil {
		if g, ok := c.cache.Get(key); ok {
			return g, nil
		}
	}

	log := c.log(ctx).With().Str("location", key).Logger()

	body, err := c.get(ctx, op, key)
	if err != nil {
		return nil, err
	}

	doc, err := description.Parse(body)
	if err != nil {
		return nil, newError(KindMalformedDescription, op, err)
	}

	svc, ok := description.Select(doc.Services, c.accepted)
	if !ok {
		return nil, newError(KindUnsupportedGateway, op,
			fmt.Errorf("none of %d services is an accepted wan connection service", len(doc.Services)))
	}

	control, err := description.ResolveURL(loc.URL, svc.ControlPath)
	if err != nil {
		return nil, newError(KindMalformedDescription, op, fmt.Errorf("control url: %w", err))
	}

	g := Gateway{
		client:      c,
		root:        loc.URL,
		control:     control,
		serviceType: svc.ServiceType,
		serviceID:   svc.ServiceID,
		device:      doc.Device,
	}

	if svc.SCPDPath != "" {
		actions, err := c.actions(ctx, loc, svc.SCPDPath)
		if err != nil {
			log.Debug().Err(err).
				Msg("unable to read service control protocol description")
		} else {
			g.actions = actions
		}
	}

	log.Debug().
		Str("device", doc.Device.FriendlyName).
		Str("service", svc.ServiceType).
		Str("control", control.String()).
		Msg("resolved gateway")

	if c.cache != nil {
		c.cache.Add(key, &g)
	}

	return &g, nil
}

func (c *Client) actions(ctx context.Context, loc Location, scpdPath string) (description.Actions, error) {
	u, err := description.ResolveURL(loc.URL, scpdPath)
	if err != nil {
		return nil, err
	}
	body, err := c.get(ctx, "resolve", u.String())
	if err != nil {
		return nil, err
	}
	return description.ParseSCPD(body)
}

// Search returns the first discovered gateway that resolves. Candidates are
// tried as they arrive and discovery stops at the first success.
func (c *Client) Search(ctx context.Context, timeout time.Duration) (*Gateway, error) {
	const op = "search"

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	d, err := c.Discover(ctx, timeout)
	if err != nil {
		return nil, err
	}

	var errs error
	for loc := range d.Locations {
		g, err := c.Resolve(ctx, loc)
		if err == nil {
			return g, nil
		}
		c.log(ctx).Debug().Err(err).
			Str("location", loc.String()).
			Msg("skipping gateway candidate")
		errs = multierr.Append(errs, err)
	}
	if err := d.Err(); err != nil {
		return nil, newError(KindTransport, op, multierr.Append(err, errs))
	}

	if errs == nil {
		return nil, newError(KindNoGatewayFound, op, fmt.Errorf("no reply within %s", timeout))
	}

	kind := KindUnsupportedGateway
	for _, err := range multierr.Errors(errs) {
		if k := KindOf(err); k != KindUnsupportedGateway {
			kind = k
			break
		}
	}

	return nil, newError(kind, op, errs)
}
