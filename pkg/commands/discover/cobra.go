package discover

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/raphaelreyna/igd/pkg/commands"
	"github.com/raphaelreyna/igd/pkg/configuration"
	"github.com/raphaelreyna/igd/pkg/events"
	upnpigd "github.com/raphaelreyna/igd/pkg/net/upnp-igd"
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
		Use:   "discover",
		Short: "List the gateways that answer a search",
		Long: `List the gateways that answer a search.
Every distinct description URL seen before --timeout elapses is printed, whether or not it offers a usable connection service.`,
		Args: cobra.NoArgs,
		RunE: c.run,
	}

	return c.cobraCommand
}

func (c *Cmd) run(cmd *cobra.Command, args []string) error {
	var (
		ctx    = cmd.Context()
		client = commands.Client(ctx, c.config)
	)

	d, err := client.Discover(ctx, c.config.Discovery.Timeout)
	if err != nil {
		return err
	}

	found := 0
	for loc := range d.Locations {
		found++
		e := events.LocationFound{
			URL:          loc.String(),
			SearchTarget: loc.SearchTarget,
			USN:          loc.USN,
			Server:       loc.Server,
		}
		if id := loc.UUID; id != uuid.Nil {
			e.UUID = id.String()
		}
		events.Raise(ctx, &e)
	}
	if err := d.Err(); err != nil {
		return err
	}
	if found == 0 {
		return upnpigd.ErrNoGatewayFound
	}

	return nil
}
