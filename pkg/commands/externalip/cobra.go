package externalip

import (
	"github.com/spf13/cobra"

	"github.com/raphaelreyna/igd/pkg/commands"
	"github.com/raphaelreyna/igd/pkg/configuration"
	"github.com/raphaelreyna/igd/pkg/events"
)

func New(config *configuration.Root) *Cmd {
	return &Cmd{
		config: config,
	}
}

type Cmd struct {
	cobraCommand *cobra.Command
	config       *configuration.Root
}

func (c *Cmd) Cobra() *cobra.Command {
	if c.cobraCommand != nil {
		return c.cobraCommand
	}

	c.cobraCommand = &cobra.Command{
		Use:   "external-ip",
		Short: "Print the gateway's external IPv4 address",
		Args:  cobra.NoArgs,
		RunE:  c.run,
	}

	return c.cobraCommand
}

func (c *Cmd) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	gw, err := commands.Gateway(ctx, c.config)
	if err != nil {
		return err
	}

	ip, err := gw.ExternalIP(ctx)
	if err != nil {
		return err
	}

	events.Raise(ctx, &events.ExternalIP{IP: ip})
	return nil
}
