package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// Kind classifies a transport failure so boundary callers can distinguish
// a timeout from a connection failure from a protocol problem.
type Kind int

const (
	KindTimeout Kind = iota
	KindConnect
	KindProtocol
	KindTooManyRedirects
)

// String returns the wire spelling of the failure kind.
func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindConnect:
		return "connect"
	case KindTooManyRedirects:
		return "too_many_redirects"
	default:
		return "protocol"
	}
}

// Error is a classified transport failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("transport %s error during %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("transport %s error during %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// classify converts an error from net/http into a *Error. Already
// classified errors pass through unchanged.
func classify(op string, err error) *Error {
	var te *Error
	if errors.As(err, &te) {
		return te
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Kind: KindTimeout, Op: op, Err: err}
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &Error{Kind: KindTimeout, Op: op, Err: err}
	}

	var oe *net.OpError
	if errors.As(err, &oe) {
		return &Error{Kind: KindConnect, Op: op, Err: err}
	}

	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return &Error{Kind: KindTimeout, Op: op, Err: err}
	}

	return &Error{Kind: KindProtocol, Op: op, Err: err}
}
