package output

import (
	"context"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/raphaelreyna/igd/pkg/events"
)

type key struct{}

func getOutput(ctx context.Context) *output {
	o, _ := ctx.Value(key{}).(*output)
	if o == nil {
		panic("no output set")
	}
	return o
}

type output struct {
	events chan events.Event

	stdout io.Writer
	stderr io.Writer
	// stdoutTTY is true when stdout is a terminal.
	stdoutTTY bool

	Format     string
	FormatOpts map[string]struct{}

	quiet bool

	report   report
	tables   map[string]*table
	doneChan chan struct{}

	cmdName string
}

func newOutput(stdout, stderr io.Writer) *output {
	o := output{
		stdout:     stdout,
		stderr:     stderr,
		FormatOpts: make(map[string]struct{}),
		tables:     make(map[string]*table),
		doneChan:   make(chan struct{}),
	}
	if f, ok := stdout.(*os.File); ok {
		o.stdoutTTY = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &o
}

func (o *output) run(ctx context.Context) {
	log := zerolog.Ctx(ctx)

	switch {
	case o.quiet:
		log.Debug().
			Msg("output running in quiet mode")
		runQuiet(o)
	case o.Format == "json":
		log.Debug().
			Msg("output running in json mode")
		runJSON(ctx, o)
	default:
		log.Debug().
			Msg("output running in human mode")
		runHuman(ctx, o)
	}

	log.Debug().
		Msg("output system shut down")

	close(o.doneChan)
}
