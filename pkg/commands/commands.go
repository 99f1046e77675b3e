package commands

import (
	"context"
	"fmt"
	"net"

	"github.com/rs/zerolog"

	"github.com/raphaelreyna/igd/pkg/configuration"
	"github.com/raphaelreyna/igd/pkg/events"
	network "github.com/raphaelreyna/igd/pkg/net"
	upnpigd "github.com/raphaelreyna/igd/pkg/net/upnp-igd"
	"github.com/raphaelreyna/igd/pkg/net/upnp-igd/ssdp"
)

type clientKey struct{}

// WithClient overrides the client built from the configuration.
func WithClient(ctx context.Context, c *upnpigd.Client) context.Context {
	return context.WithValue(ctx, clientKey{}, c)
}

func Client(ctx context.Context, config *configuration.Root) *upnpigd.Client {
	if c, ok := ctx.Value(clientKey{}).(*upnpigd.Client); ok {
		return c
	}
	return upnpigd.NewClient(config.ClientOptions(nil)...)
}

// Gateway resolves the configured location, or searches for a gateway when
// none is configured, and raises a GatewayResolved event.
func Gateway(ctx context.Context, config *configuration.Root) (*upnpigd.Gateway, error) {
	var (
		log    = zerolog.Ctx(ctx)
		client = Client(ctx, config)
		gw     *upnpigd.Gateway
		err    error
	)

	if raw := config.Discovery.Location; raw != "" {
		loc, perr := ssdp.ParseLocation(raw)
		if perr != nil {
			return nil, fmt.Errorf("invalid location: %w", perr)
		}
		log.Debug().Str("location", raw).
			Msg("resolving configured gateway")
		gw, err = client.Resolve(ctx, loc)
	} else {
		log.Debug().Dur("timeout", config.Discovery.Timeout).
			Msg("searching for gateway")
		gw, err = client.Search(ctx, config.Discovery.Timeout)
	}
	if err != nil {
		return nil, err
	}

	log.Info().Stringer("gateway", gw).
		Msg("using gateway")
	events.Raise(ctx, &events.GatewayResolved{
		Name:        gw.FriendlyName(),
		RootURL:     gw.RootURL(),
		ControlURL:  gw.ControlURL(),
		ServiceType: gw.ServiceType(),
	})

	return gw, nil
}

// InternalAddr parses an "ip:port", ":port" or "ip" argument. A missing ip is
// replaced by the local address used to reach the gateway, falling back to
// the one used to reach the default route.
func InternalAddr(ctx context.Context, gw *upnpigd.Gateway, addr string) (net.IP, uint16, error) {
	ip, port, err := network.SplitHostPort(addr)
	if err != nil {
		return nil, 0, err
	}
	if ip != nil {
		return ip, port, nil
	}

	if ip, err = gw.LocalIP(ctx); err == nil {
		return ip, port, nil
	}
	zerolog.Ctx(ctx).Debug().Err(err).
		Msg("falling back to default route address")

	if ip, err = network.GetSourceIP("", 0); err != nil {
		return nil, 0, fmt.Errorf("unable to determine internal address: %w", err)
	}
	return ip, port, nil
}
