package configuration

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	upnpigd "github.com/raphaelreyna/igd/pkg/net/upnp-igd"
)

type Root struct {
	Discovery Discovery `yaml:"discovery"`
	Requests  Requests  `yaml:"requests"`
	AnyPort   AnyPort   `yaml:"anyPort"`
	Output    Output    `yaml:"output"`
}

func (c *Root) sections() []section {
	return []section{&c.Discovery, &c.Requests, &c.AnyPort, &c.Output}
}

func (c *Root) Init() {
	for _, s := range c.sections() {
		s.init()
	}
}

func (c *Root) SetFlags(cmd *cobra.Command, fs *pflag.FlagSet) {
	for _, s := range c.sections() {
		s.setFlags(cmd, fs)
	}
}

func (c *Root) MergeFlags() {
	for _, s := range c.sections() {
		s.mergeFlags()
	}
}

func (c *Root) Validate() error {
	if err := c.Discovery.validate(); err != nil {
		return fmt.Errorf("invalid discovery configuration: %w", err)
	}
	if err := c.Requests.validate(); err != nil {
		return fmt.Errorf("invalid requests configuration: %w", err)
	}
	if err := c.AnyPort.validate(); err != nil {
		return fmt.Errorf("invalid any-port configuration: %w", err)
	}
	if err := c.Output.validate(); err != nil {
		return err
	}

	return nil
}

// ClientOptions translates the configuration into client options.
// reg may be nil.
func (c *Root) ClientOptions(reg prometheus.Registerer) []upnpigd.Option {
	opts := []upnpigd.Option{
		upnpigd.WithResponseTimeout(c.Discovery.ResponseTimeout),
		upnpigd.WithRequestTimeout(c.Requests.Timeout),
		upnpigd.WithAnyPortPolicy(upnpigd.AnyPortPolicy{
			Attempts: c.AnyPort.Attempts,
			MinPort:  c.AnyPort.MinPort,
			MaxPort:  c.AnyPort.MaxPort,
		}),
	}
	if 0 < len(c.Discovery.SearchTargets) {
		opts = append(opts, upnpigd.WithSearchTargets(c.Discovery.SearchTargets...))
	}
	if c.Discovery.broadcastAddr != nil {
		opts = append(opts, upnpigd.WithBroadcastAddr(c.Discovery.broadcastAddr))
	}
	if c.Discovery.bindAddr != nil {
		opts = append(opts, upnpigd.WithBindAddr(c.Discovery.bindAddr))
	}
	if c.Requests.UserAgent != "" {
		opts = append(opts, upnpigd.WithUserAgent(c.Requests.UserAgent))
	}
	if reg != nil {
		opts = append(opts, upnpigd.WithMetrics(reg))
	}
	return opts
}
