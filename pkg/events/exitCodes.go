package events

import (
	"context"
	"errors"

	upnpigd "github.com/raphaelreyna/igd/pkg/net/upnp-igd"
)

const (
	// ExitCodeSuccess is the exit code for a successful run.
	ExitCodeSuccess = iota
	ExitCodeGenericFailure
	ExitCodeTimeoutFailure
	ExitCodeNoGatewayFound
	ExitCodeUnsupportedGateway
	ExitCodePortInUse
)

// ExitCodeFor maps a command error onto the process exit code.
func ExitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitCodeSuccess
	case errors.Is(err, context.DeadlineExceeded):
		return ExitCodeTimeoutFailure
	}

	switch upnpigd.KindOf(err) {
	case upnpigd.KindNoGatewayFound:
		return ExitCodeNoGatewayFound
	case upnpigd.KindUnsupportedGateway:
		return ExitCodeUnsupportedGateway
	case upnpigd.KindPortInUse, upnpigd.KindNoPortsAvailable:
		return ExitCodePortInUse
	}
	return ExitCodeGenericFailure
}
