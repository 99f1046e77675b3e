package add

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/raphaelreyna/igd/pkg/commands"
	"github.com/raphaelreyna/igd/pkg/configuration"
	"github.com/raphaelreyna/igd/pkg/events"
	"github.com/raphaelreyna/igd/pkg/flagargs"
	upnpigd "github.com/raphaelreyna/igd/pkg/net/upnp-igd"
)

func New(config *configuration.Root) *Cmd {
	return &Cmd{
		config: config,
		proto:  flagargs.Protocol(upnpigd.TCP),
	}
}

type Cmd struct {
	cobraCommand *cobra.Command
	config       *configuration.Root

	proto flagargs.Protocol
}

func (c *Cmd) Cobra() *cobra.Command {
	if c.cobraCommand != nil {
		return c.cobraCommand
	}

	c.cobraCommand = &cobra.Command{
		Use:   "add",
		Short: "Map an external port to an internal address",
		Long: `Map an external port to an internal address.
The mapping fails if another host already holds the external port.`,
		Example: `  igdctl add --proto tcp --external 51413 --internal 192.168.1.50:51413
  igdctl add --external 8080 --internal :80 --lease 1h`,
		Args: cobra.NoArgs,
		RunE: c.run,
	}

	flags := c.cobraCommand.Flags()
	flags.Var(&c.proto, "proto", `Protocol to map, "tcp" or "udp".`)
	flags.Uint16("external", 0, "External port to map.")
	flags.String("internal", "", `Internal address as ip:port, :port or ip.
A missing ip defaults to this host's address, a missing port to the external port.`)
	flags.Duration("lease", 0, "Lease duration, 0 for a mapping that does not expire.")
	flags.String("description", "igdctl", "Description stored with the mapping.")
	c.cobraCommand.MarkFlagRequired("external")

	return c.cobraCommand
}

func (c *Cmd) run(cmd *cobra.Command, args []string) error {
	var (
		ctx   = cmd.Context()
		log   = zerolog.Ctx(ctx)
		flags = cmd.Flags()

		external, _    = flags.GetUint16("external")
		internal, _    = flags.GetString("internal")
		lease, _       = flags.GetDuration("lease")
		description, _ = flags.GetString("description")
		proto          = upnpigd.Protocol(c.proto)
	)
	if external == 0 {
		return fmt.Errorf("--external must be between 1 and 65535")
	}

	gw, err := commands.Gateway(ctx, c.config)
	if err != nil {
		return err
	}

	ip, port, err := commands.InternalAddr(ctx, gw, internal)
	if err != nil {
		return err
	}
	if port == 0 {
		port = external
	}

	log.Debug().
		Str("proto", string(proto)).
		Uint16("external", external).
		Stringer("client", ip).
		Uint16("internal", port).
		Msg("adding port mapping")

	if err := gw.AddPort(ctx, proto, external, ip, port, lease, description); err != nil {
		return err
	}

	events.Raise(ctx, &events.Mapping{
		ExternalPort:   external,
		Protocol:       string(proto),
		InternalClient: ip.String(),
		InternalPort:   port,
		Enabled:        true,
		Description:    description,
		Lease:          lease,
		Created:        true,
	})
	return nil
}
