package configuration

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/raphaelreyna/igd/pkg/flagargs"
)

type Output struct {
	Quiet  bool                  `yaml:"quiet"`
	Format flagargs.OutputFormat `yaml:"format"`

	fs *pflag.FlagSet
}

func (c *Output) init() {
	c.fs = pflag.NewFlagSet("Output Flags", pflag.ExitOnError)

	c.fs.BoolP("quiet", "q", false, "Disable all output.")
	c.fs.VarP(&flagargs.OutputFormat{}, "output", "o", `Set output format. Valid formats are: text, json[=opts].
Text tables carry a header row only when stdout is a terminal.
Valid json opts are:
	- compact
		Disables tabbed, pretty printed json.`)

	cobra.AddTemplateFunc("outputFlags", func() *pflag.FlagSet {
		return c.fs
	})
}

func (c *Output) setFlags(cmd *cobra.Command, fs *pflag.FlagSet) {
	fs.AddFlagSet(c.fs)
}

func (c *Output) mergeFlags() {
	if c.fs.Changed("quiet") {
		c.Quiet, _ = c.fs.GetBool("quiet")
	}
	if c.fs.Changed("output") {
		of, ok := c.fs.Lookup("output").Value.(*flagargs.OutputFormat)
		if !ok {
			panic("output flag is not an OutputFormat")
		}
		c.Format = *of
	}
}

func (c *Output) validate() error {
	switch c.Format.Format {
	case "", "text":
		if 0 < len(c.Format.Opts) {
			return fmt.Errorf("text output takes no options")
		}
	case "json":
		for _, opt := range c.Format.Opts {
			if opt != "compact" {
				return fmt.Errorf("invalid output format option: %s", opt)
			}
		}
	default:
		return fmt.Errorf("invalid output format: %s", c.Format.String())
	}

	return nil
}
