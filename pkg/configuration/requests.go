package configuration

import (
	"errors"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	upnpigd "github.com/raphaelreyna/igd/pkg/net/upnp-igd"
)

type Requests struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"userAgent"`

	fs *pflag.FlagSet
}

func (c *Requests) init() {
	c.fs = pflag.NewFlagSet("Request Flags", pflag.ExitOnError)

	c.fs.Duration("request-timeout", upnpigd.DefaultRequestTimeout, "Timeout for each HTTP request made to the gateway.")
	c.fs.String("user-agent", "", "User-Agent header sent to the gateway.")

	cobra.AddTemplateFunc("requestFlags", func() *pflag.FlagSet {
		return c.fs
	})
}

func (c *Requests) setFlags(cmd *cobra.Command, fs *pflag.FlagSet) {
	fs.AddFlagSet(c.fs)
}

func (c *Requests) mergeFlags() {
	if c.fs.Changed("request-timeout") || c.Timeout == 0 {
		c.Timeout, _ = c.fs.GetDuration("request-timeout")
	}
	if c.fs.Changed("user-agent") {
		c.UserAgent, _ = c.fs.GetString("user-agent")
	}
}

func (c *Requests) validate() error {
	if c.Timeout <= 0 {
		return errors.New("request timeout must be positive")
	}
	return nil
}
