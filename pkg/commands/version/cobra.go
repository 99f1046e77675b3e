package version

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelreyna/igd/pkg/flagargs"
	"github.com/raphaelreyna/igd/pkg/version"
)

func New() *Cmd {
	return &Cmd{}
}

type Cmd struct {
	cobraCommand *cobra.Command
}

func (c *Cmd) Cobra() *cobra.Command {
	if c.cobraCommand != nil {
		return c.cobraCommand
	}
	c.cobraCommand = &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				out = cmd.OutOrStdout()
				ofa = &flagargs.OutputFormat{}
			)
			if f := cmd.Flags().Lookup("output"); f != nil {
				ofa, _ = f.Value.(*flagargs.OutputFormat)
			}

			if ofa != nil && ofa.Format == "json" {
				payload := map[string]string{}
				if ver := version.Version; ver != "" {
					payload["version"] = ver
				}
				if license := version.License; license != "" {
					payload["license"] = license
				}
				if credit := version.Credit; credit != "" {
					payload["credit"] = credit
				}

				enc := json.NewEncoder(out)
				if !ofa.Has("compact") {
					enc.SetIndent("", "  ")
				}
				return enc.Encode(payload)
			}

			if ver := version.Version; ver != "" {
				fmt.Fprintf(out, "version: %s\n", ver)
			}
			if license := version.License; license != "" {
				fmt.Fprintf(out, "license: %s\n", license)
			}
			if credit := version.Credit; credit != "" {
				fmt.Fprintf(out, "credit: %s\n", credit)
			}
			return nil
		},
	}

	return c.cobraCommand
}
