// Package errs defines the closed set of error kinds that cross every
// internal boundary in the download manager, from the store up through the
// REST adapter.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies the category of a ManagerError. The set is closed: new
// failure modes get mapped onto one of these, they never grow the set ad hoc.
type Kind int

const (
	IO Kind = iota
	InvalidAddress
	InvalidMessage
	DecodingError
	DatabaseError
	ChannelError
	HTTPError
	DownloadJobNotFound
	DownloadJobNameAlreadyExist
)

func (k Kind) String() string {
	switch k {
	case IO:
		return "io error"
	case InvalidAddress:
		return "invalid address error"
	case InvalidMessage:
		return "invalid message"
	case DecodingError:
		return "decoding error"
	case DatabaseError:
		return "db error"
	case ChannelError:
		return "channel error"
	case HTTPError:
		return "http error"
	case DownloadJobNotFound:
		return "download job not found"
	case DownloadJobNameAlreadyExist:
		return "download job already exists"
	default:
		return "unknown error"
	}
}

// ManagerError is the single error type that crosses the store/state/manager
// boundaries. It carries a closed Kind plus a human-readable message, and
// optionally wraps an underlying cause for diagnostics.
type ManagerError struct {
	Kind  Kind
	Msg   string
	cause error
}

func New(kind Kind, msg string) *ManagerError {
	return &ManagerError{Kind: kind, Msg: msg}
}

func Newf(kind Kind, format string, args ...interface{}) *ManagerError {
	return &ManagerError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches cause to a new ManagerError of the given kind, keeping the
// cause's message and stack trace available via Unwrap/Cause.
func Wrap(kind Kind, cause error) *ManagerError {
	if cause == nil {
		return nil
	}
	return &ManagerError{Kind: kind, Msg: cause.Error(), cause: errors.WithStack(cause)}
}

func (e *ManagerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *ManagerError) Unwrap() error {
	return e.cause
}

// Is reports whether err is a *ManagerError of the given kind.
func Is(err error, kind Kind) bool {
	me, ok := err.(*ManagerError)
	return ok && me.Kind == kind
}

// KindOf extracts the Kind from err, defaulting to IO for anything that
// isn't a *ManagerError (e.g. a bare context or driver error that slipped
// through uncategorized).
func KindOf(err error) Kind {
	if me, ok := err.(*ManagerError); ok {
		return me.Kind
	}
	return IO
}
