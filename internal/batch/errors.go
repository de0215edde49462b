package batch

import (
	"context"
	"strconv"

	"github.com/cockroachdb/errors"
)

// Kind classifies the error a batch read fails with.
type Kind uint8

const (
	// KindInvalidParameter is a malformed key list, bin filter or policy.
	KindInvalidParameter Kind = iota + 1
	// KindConnection means the client holds no active cluster session.
	KindConnection
	// KindCluster is a node or partition failure during the batch.
	KindCluster
	// KindTimeout means a policy timeout expired.
	KindTimeout
	// KindAggregation is a broken invariant while collecting results.
	KindAggregation
)

func (k Kind) String() string {
	switch k {
	case KindInvalidParameter:
		return "InvalidParameter"
	case KindConnection:
		return "ConnectionError"
	case KindCluster:
		return "ClusterError"
	case KindTimeout:
		return "TimeoutError"
	case KindAggregation:
		return "AggregationError"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Markers for each Kind. Internal errors are tagged with errors.Mark, and the
// *Error returned by Translate matches the marker of its Kind under errors.Is.
var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrConnection       = errors.New("not connected to cluster")
	ErrCluster          = errors.New("cluster failure")
	ErrTimeout          = errors.New("timeout")
	ErrAggregation      = errors.New("aggregation failure")
)

func (k Kind) marker() error {
	switch k {
	case KindInvalidParameter:
		return ErrInvalidParameter
	case KindConnection:
		return ErrConnection
	case KindTimeout:
		return ErrTimeout
	case KindAggregation:
		return ErrAggregation
	default:
		return ErrCluster
	}
}

func invalidParameter(msg string) error { return errors.Mark(errors.New(msg), ErrInvalidParameter) }

func invalidParameterf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalidParameter)
}

// Error is the single error a failed batch read returns.
type Error struct {
	Kind    Kind
	Message string
	// Key echoes the key collection the caller passed in.
	Key interface{}
	// Bin is the bin the error relates to. Batch reads fail as a whole, so it is
	// always nil.
	Bin   *string
	cause error
}

func (e *Error) Error() string { return e.Kind.String() + ": " + e.Message }

func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is the marker of the error's Kind.
func (e *Error) Is(target error) bool { return target == e.Kind.marker() }

// Translate converts an internal error into an *Error carrying keys as context.
// It returns nil for a nil err.
func Translate(err error, keys interface{}) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: kindOf(err), Message: err.Error(), Key: keys, cause: err}
}

func kindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrInvalidParameter):
		return KindInvalidParameter
	case errors.Is(err, ErrConnection):
		return KindConnection
	case errors.Is(err, ErrAggregation):
		return KindAggregation
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	default:
		return KindCluster
	}
}
