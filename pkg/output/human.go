package output

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/raphaelreyna/igd/pkg/events"
)

type table struct {
	tw      *tabwriter.Writer
	started bool
}

func (o *output) table(name string, header ...any) *table {
	t, ok := o.tables[name]
	if !ok {
		t = &table{tw: tabwriter.NewWriter(o.stdout, 0, 4, 2, ' ', 0)}
		o.tables[name] = t
	}
	if !t.started {
		t.started = true
		if o.stdoutTTY {
			t.row(header...)
		}
	}
	return t
}

func (t *table) row(cols ...any) {
	for i, c := range cols {
		if 0 < i {
			io.WriteString(t.tw, "\t")
		}
		fmt.Fprint(t.tw, c)
	}
	io.WriteString(t.tw, "\n")
}

func runHuman(_ context.Context, o *output) {
	for event := range o.events {
		switch event := event.(type) {
		case *events.LocationFound:
			o.table("locations", "LOCATION", "TARGET", "SERVER").
				row(event.URL, event.SearchTarget, orDash(event.Server))
		case *events.ExternalIP:
			fmt.Fprintln(o.stdout, event.IP)
		case *events.Mapping:
			if event.Created && o.cmdName == "add-any" {
				fmt.Fprintln(o.stdout, event.ExternalPort)
				continue
			}
			o.table("mappings", "PROTO", "EXTERNAL", "INTERNAL", "ENABLED", "LEASE", "DESCRIPTION").
				row(event.Protocol,
					event.ExternalPort,
					fmt.Sprintf("%s:%d", event.InternalClient, event.InternalPort),
					event.Enabled,
					leaseString(event.Lease),
					orDash(event.Description),
				)
		case *events.MappingRemoved:
			fmt.Fprintf(o.stdout, "removed %s %d\n", event.Protocol, event.ExternalPort)
		case *events.CommandFailed:
			fmt.Fprintf(o.stderr, "Error: %v\n", event.Err)
		default:
		}
	}

	for _, t := range o.tables {
		t.tw.Flush()
	}
}

func leaseString(d time.Duration) string {
	if d == 0 {
		return "permanent"
	}
	return d.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
