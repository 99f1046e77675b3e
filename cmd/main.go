package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/raphaelreyna/igd/pkg/commands/root"
	"github.com/raphaelreyna/igd/pkg/events"
	"github.com/raphaelreyna/igd/pkg/log"
	"github.com/raphaelreyna/igd/pkg/output"
	"github.com/raphaelreyna/igd/pkg/sys"
)

func main() {
	ctx := context.Background()
	ctx = events.WithEvents(ctx)

	status := events.ExitCodeGenericFailure
	defer func() {
		if r := recover(); r != nil {
			panic(r)
		} else {
			if ec := events.GetExitCode(ctx); -1 < ec {
				status = ec
			}
			os.Exit(status)
		}
	}()

	ctx, cancel := signal.NotifyContext(ctx, sys.ShutdownSignals()...)
	defer cancel()

	ctx, cleanup, err := log.Logging(ctx)
	defer cleanup()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}

	ctx = output.WithOutput(ctx)

	if err := root.ExecuteContext(ctx); err == nil {
		status = events.ExitCodeSuccess
	}
}
