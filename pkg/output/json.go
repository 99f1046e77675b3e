package output

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/raphaelreyna/igd/pkg/events"
)

type report struct {
	Command    string                   `json:"command,omitempty"`
	Gateway    *events.GatewayResolved  `json:"gateway,omitempty"`
	Locations  []*events.LocationFound  `json:"locations,omitempty"`
	ExternalIP string                   `json:"externalIP,omitempty"`
	Mappings   []*events.Mapping        `json:"mappings,omitempty"`
	Removed    []*events.MappingRemoved `json:"removed,omitempty"`
	Error      string                   `json:"error,omitempty"`
}

func runJSON(ctx context.Context, o *output) {
	for event := range o.events {
		_json_handleEvent(o, event)
	}

	enc := json.NewEncoder(o.stdout)
	if _, compact := o.FormatOpts["compact"]; !compact {
		enc.SetIndent("", "\t")
	}
	if err := enc.Encode(o.report); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).
			Msg("error encoding json report")
	}
}

func _json_handleEvent(o *output, e events.Event) {
	switch event := e.(type) {
	case *events.GatewayResolved:
		o.report.Gateway = event
	case *events.LocationFound:
		o.report.Locations = append(o.report.Locations, event)
	case *events.ExternalIP:
		o.report.ExternalIP = event.IP.String()
	case *events.Mapping:
		o.report.Mappings = append(o.report.Mappings, event)
	case *events.MappingRemoved:
		o.report.Removed = append(o.report.Removed, event)
	case *events.CommandFailed:
		o.report.Error = event.Err.Error()
	}
}
