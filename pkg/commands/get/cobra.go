package get

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
		Use:   "get",
		Short: "Show the mapping for an external port",
		Args:  cobra.NoArgs,
		RunE:  c.run,
	}

	flags := c.cobraCommand.Flags()
	flags.Var(&c.proto, "proto", `Protocol of the mapping, "tcp" or "udp".`)
	flags.Uint16("external", 0, "External port of the mapping.")
	c.cobraCommand.MarkFlagRequired("external")

	return c.cobraCommand
}

func (c *Cmd) run(cmd *cobra.Command, args []string) error {
	var (
		ctx         = cmd.Context()
		external, _ = cmd.Flags().GetUint16("external")
	)
	if external == 0 {
		return fmt.Errorf("--external must be between 1 and 65535")
	}

	gw, err := commands.Gateway(ctx, c.config)
	if err != nil {
		return err
	}

	m, err := gw.SpecificPortMappingEntry(ctx, upnpigd.Protocol(c.proto), external)
	if err != nil {
		return err
	}

	events.Raise(ctx, events.NewMapping(m))
	return nil
}
