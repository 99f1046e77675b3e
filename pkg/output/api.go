package output

import (
	"context"
	"io"
	"os"

	"github.com/raphaelreyna/igd/pkg/events"
)

// WithOutput attaches an output system writing to stdout and stderr.
func WithOutput(ctx context.Context) context.Context {
	return WithWriters(ctx, os.Stdout, os.Stderr)
}

func WithWriters(ctx context.Context, stdout, stderr io.Writer) context.Context {
	return context.WithValue(ctx, key{}, newOutput(stdout, stderr))
}

// Init starts consuming events; call it once the format is settled.
func Init(ctx context.Context) {
	o := getOutput(ctx)
	events.RegisterEventListener(ctx, SetEventsChan)
	go o.run(ctx)
}

// Wait blocks until every raised event has been written.
func Wait(ctx context.Context) {
	<-getOutput(ctx).doneChan
}

func SetEventsChan(ctx context.Context, ec chan events.Event) {
	getOutput(ctx).events = ec
}

func InvocationInfo(ctx context.Context, cmdName string) {
	o := getOutput(ctx)
	o.cmdName = cmdName
	o.report.Command = cmdName
}

func Quiet(ctx context.Context) {
	getOutput(ctx).quiet = true
}

func SetFormat(ctx context.Context, f string) {
	getOutput(ctx).Format = f
}

func SetFormatOpts(ctx context.Context, opts ...string) {
	o := getOutput(ctx)
	for _, opt := range opts {
		o.FormatOpts[opt] = struct{}{}
	}
}

func GetFormatAndOpts(ctx context.Context) (string, []string) {
	o := getOutput(ctx)
	opts := make([]string, 0, len(o.FormatOpts))
	for opt := range o.FormatOpts {
		opts = append(opts, opt)
	}
	return o.Format, opts
}

func Raise(ctx context.Context, e events.Event) {
	events.Raise(ctx, e)
}

func Failed(ctx context.Context, err error) {
	if err == nil {
		return
	}
	events.Raise(ctx, &events.CommandFailed{Err: err})
}

// Stderr is where errors go before the output system has started.
func Stderr(ctx context.Context) io.Writer {
	return getOutput(ctx).stderr
}
