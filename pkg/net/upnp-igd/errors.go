package upnpigd

import (
	"errors"
	"fmt"
)

// Kind classifies every error returned by this package.
type Kind int

const (
	KindUnknown Kind = iota
	KindTransport
	KindMalformedDescription
	KindMalformedResponse
	KindNoGatewayFound
	KindUnsupportedGateway
	KindPortInUse
	KindNoPortsAvailable
	KindEnumerationComplete
	KindProtocolFault
	KindInvalidArgument
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport error"
	case KindMalformedDescription:
		return "malformed description"
	case KindMalformedResponse:
		return "malformed response"
	case KindNoGatewayFound:
		return "no gateway found"
	case KindUnsupportedGateway:
		return "unsupported gateway"
	case KindPortInUse:
		return "port in use"
	case KindNoPortsAvailable:
		return "no ports available"
	case KindEnumerationComplete:
		return "enumeration complete"
	case KindProtocolFault:
		return "protocol fault"
	case KindInvalidArgument:
		return "invalid argument"
	default:
		return "unknown error"
	}
}

// UPnP error codes returned in fault details.
const (
	CodeInvalidAction                = 401
	CodeInvalidArgs                  = 402
	CodeActionFailed                 = 501
	CodeOptionalActionNotImplemented = 602
	CodeActionNotAuthorized          = 606
	CodeSpecifiedArrayIndexInvalid   = 713
	CodeNoSuchEntryInArray           = 714
	CodeConflictInMappingEntry       = 718
	CodeSamePortValuesRequired       = 724
	CodeOnlyPermanentLeasesSupported = 725
	CodeNoPortMapsAvailable          = 728
	CodeConflictWithOtherMechanisms  = 729
)

// Error is the concrete error type. Code and Description are set when the
// error came from a gateway fault.
type Error struct {
	Kind        Kind
	Op          string
	Code        int
	Description string
	Err         error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Code != 0 {
		msg = fmt.Sprintf("%s (upnp error %d", msg, e.Code)
		if e.Description != "" {
			msg += ": " + e.Description
		}
		msg += ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind. A target with a non-zero Code
// also requires the codes to be equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == 0 || t.Code == e.Code
}

var (
	ErrTransport            = &Error{Kind: KindTransport}
	ErrMalformedDescription = &Error{Kind: KindMalformedDescription}
	ErrMalformedResponse    = &Error{Kind: KindMalformedResponse}
	ErrNoGatewayFound       = &Error{Kind: KindNoGatewayFound}
	ErrUnsupportedGateway   = &Error{Kind: KindUnsupportedGateway}
	ErrPortInUse            = &Error{Kind: KindPortInUse}
	ErrNoPortsAvailable     = &Error{Kind: KindNoPortsAvailable}
	ErrEnumerationComplete  = &Error{Kind: KindEnumerationComplete}
	ErrProtocolFault        = &Error{Kind: KindProtocolFault}
	ErrInvalidArgument      = &Error{Kind: KindInvalidArgument}
)

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func invalidArgument(op, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidArgument, Op: op, Err: fmt.Errorf(format, args...)}
}

func faultError(kind Kind, op string, code int, description string) *Error {
	return &Error{Kind: kind, Op: op, Code: code, Description: description}
}
