package flagargs

import (
	"errors"
	"strings"

	upnpigd "github.com/raphaelreyna/igd/pkg/net/upnp-igd"
)

type OutputFormat struct {
	Format string   `yaml:"format"`
	Opts   []string `yaml:"opts"`
}

func (o *OutputFormat) String() string {
	s := o.Format
	if 0 < len(o.Opts) {
		s += "=" + strings.Join(o.Opts, ",")
	}
	return s
}

func (o *OutputFormat) Set(v string) error {
	switch {
	case v == "text":
		o.Format = "text"
		o.Opts = nil
		return nil
	case strings.HasPrefix(v, "json"):
		o.Format = "json"
		o.Opts = nil
		parts := strings.Split(v, "=")
		if len(parts) < 2 {
			return nil
		}
		o.Opts = strings.Split(parts[1], ",")
		return nil
	}
	return errors.New(`must be "text" or "json[=opts...]"`)
}

func (o *OutputFormat) Type() string {
	return "string"
}

func (o *OutputFormat) Has(opt string) bool {
	for _, x := range o.Opts {
		if x == opt {
			return true
		}
	}
	return false
}

// Protocol is a pflag.Value accepting "tcp" or "udp" in any case.
type Protocol upnpigd.Protocol

func (p *Protocol) String() string {
	return string(*p)
}

func (p *Protocol) Set(v string) error {
	proto, err := upnpigd.ParseProtocol(v)
	if err != nil {
		return err
	}
	*p = Protocol(proto)
	return nil
}

func (p *Protocol) Type() string {
	return "protocol"
}
