package addany

import (
	"fmt"

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
		Use:   "add-any",
		Short: "Map any free external port to an internal address",
		Long: `Map any free external port to an internal address and print the port.
The gateway picks the port when it supports doing so; otherwise random ports from the --any-port range are tried.`,
		Example: `  igdctl add-any --proto udp --internal :9000`,
		Args:    cobra.NoArgs,
		RunE:    c.run,
	}

	flags := c.cobraCommand.Flags()
	flags.Var(&c.proto, "proto", `Protocol to map, "tcp" or "udp".`)
	flags.String("internal", "", `Internal address as ip:port or :port.
A missing ip defaults to this host's address.`)
	flags.Duration("lease", 0, "Lease duration, 0 for a mapping that does not expire.")
	flags.String("description", "igdctl", "Description stored with the mapping.")
	c.cobraCommand.MarkFlagRequired("internal")

	return c.cobraCommand
}

func (c *Cmd) run(cmd *cobra.Command, args []string) error {
	var (
		ctx   = cmd.Context()
		flags = cmd.Flags()

		internal, _    = flags.GetString("internal")
		lease, _       = flags.GetDuration("lease")
		description, _ = flags.GetString("description")
		proto          = upnpigd.Protocol(c.proto)
	)

	gw, err := commands.Gateway(ctx, c.config)
	if err != nil {
		return err
	}

	ip, port, err := commands.InternalAddr(ctx, gw, internal)
	if err != nil {
		return err
	}
	if port == 0 {
		return fmt.Errorf("--internal must include a port")
	}

	external, err := gw.AddAnyPort(ctx, proto, ip, port, lease, description)
	if err != nil {
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
