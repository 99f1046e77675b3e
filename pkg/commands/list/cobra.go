package list

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
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the gateway's port mappings",
		Args:    cobra.NoArgs,
		RunE:    c.run,
	}

	return c.cobraCommand
}

func (c *Cmd) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	gw, err := commands.Gateway(ctx, c.config)
	if err != nil {
		return err
	}

	mappings, err := gw.PortMappings(ctx)
	if err != nil {
		return err
	}

	for _, m := range mappings {
		events.Raise(ctx, events.NewMapping(m))
	}
	return nil
}
