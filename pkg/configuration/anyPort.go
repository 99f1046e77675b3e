package configuration

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	upnpigd "github.com/raphaelreyna/igd/pkg/net/upnp-igd"
)

// AnyPort configures the client side search used when the gateway cannot
// pick a free external port itself.
type AnyPort struct {
	Attempts int    `yaml:"attempts"`
	MinPort  uint16 `yaml:"minPort"`
	MaxPort  uint16 `yaml:"maxPort"`

	fs *pflag.FlagSet
}

func (c *AnyPort) init() {
	c.fs = pflag.NewFlagSet("Any Port Flags", pflag.ExitOnError)

	c.fs.Int("any-port-attempts", upnpigd.DefaultAnyPortAttempts, "How many random external ports to try.")
	c.fs.Uint16("any-port-min", upnpigd.DefaultAnyPortMin, "Lowest external port to try.")
	c.fs.Uint16("any-port-max", upnpigd.DefaultAnyPortMax, "Highest external port to try.")

	cobra.AddTemplateFunc("anyPortFlags", func() *pflag.FlagSet {
		return c.fs
	})
}

func (c *AnyPort) setFlags(cmd *cobra.Command, fs *pflag.FlagSet) {
	fs.AddFlagSet(c.fs)
}

func (c *AnyPort) mergeFlags() {
	if c.fs.Changed("any-port-attempts") {
		c.Attempts, _ = c.fs.GetInt("any-port-attempts")
	}
	if c.fs.Changed("any-port-min") {
		c.MinPort, _ = c.fs.GetUint16("any-port-min")
	}
	if c.fs.Changed("any-port-max") {
		c.MaxPort, _ = c.fs.GetUint16("any-port-max")
	}
}

func (c *AnyPort) validate() error {
	if c.Attempts < 0 {
		return errors.New("attempts must not be negative")
	}
	if c.MinPort != 0 && c.MaxPort != 0 && c.MaxPort < c.MinPort {
		return errors.New("any-port-max is below any-port-min")
	}
	return nil
}
