package configuration

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	upnpigd "github.com/raphaelreyna/igd/pkg/net/upnp-igd"
)

type Discovery struct {
	Timeout         time.Duration `yaml:"timeout"`
	ResponseTimeout time.Duration `yaml:"responseTimeout"`
	SearchTargets   []string      `yaml:"searchTargets"`
	BroadcastAddr   string        `yaml:"broadcastAddr"`
	BindAddr        string        `yaml:"bindAddr"`
	// Location skips discovery and resolves this description URL directly.
	Location string `yaml:"location"`

	broadcastAddr *net.UDPAddr
	bindAddr      *net.UDPAddr

	fs *pflag.FlagSet
}

func (c *Discovery) init() {
	c.fs = pflag.NewFlagSet("Discovery Flags", pflag.ExitOnError)

	c.fs.DurationP("timeout", "t", upnpigd.DefaultSearchTimeout, "How long to search for gateways.")
	c.fs.Duration("response-timeout", upnpigd.DefaultResponseTimeout, "How long a single read waits for a search reply.")
	c.fs.StringSlice("search-target", nil, `Search target to send, may be repeated.
Defaults to the InternetGatewayDevice:1 device type.`)
	c.fs.String("broadcast-addr", "", `Address searches are sent to.
Defaults to 239.255.255.250:1900.`)
	c.fs.String("bind-addr", "", "Local address the search sockets bind to.")
	c.fs.StringP("location", "l", "", "Gateway description URL to use instead of searching.")

	cobra.AddTemplateFunc("discoveryFlags", func() *pflag.FlagSet {
		return c.fs
	})
}

func (c *Discovery) setFlags(cmd *cobra.Command, fs *pflag.FlagSet) {
	fs.AddFlagSet(c.fs)
	cmd.MarkFlagsMutuallyExclusive("location", "search-target")
}

func (c *Discovery) mergeFlags() {
	if c.fs.Changed("timeout") || c.Timeout == 0 {
		c.Timeout, _ = c.fs.GetDuration("timeout")
	}
	if c.fs.Changed("response-timeout") || c.ResponseTimeout == 0 {
		c.ResponseTimeout, _ = c.fs.GetDuration("response-timeout")
	}
	if c.fs.Changed("search-target") {
		c.SearchTargets, _ = c.fs.GetStringSlice("search-target")
	}
	if c.fs.Changed("broadcast-addr") {
		c.BroadcastAddr, _ = c.fs.GetString("broadcast-addr")
	}
	if c.fs.Changed("bind-addr") {
		c.BindAddr, _ = c.fs.GetString("bind-addr")
	}
	if c.fs.Changed("location") {
		c.Location, _ = c.fs.GetString("location")
	}
}

func (c *Discovery) validate() error {
	if c.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}
	if c.ResponseTimeout <= 0 {
		return errors.New("response timeout must be positive")
	}

	var err error
	if c.BroadcastAddr != "" {
		if c.broadcastAddr, err = net.ResolveUDPAddr("udp4", c.BroadcastAddr); err != nil {
			return fmt.Errorf("invalid broadcast address: %w", err)
		}
	}
	if c.BindAddr != "" {
		if c.bindAddr, err = net.ResolveUDPAddr("udp4", c.BindAddr); err != nil {
			return fmt.Errorf("invalid bind address: %w", err)
		}
	}

	return nil
}
