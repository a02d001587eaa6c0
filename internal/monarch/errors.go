package monarch

import (
	"context"
	"errors"
)

var (
	// ErrDecode means the service answered but the body could not be decoded.
	ErrDecode = errors.New("monarch: malformed response")
	// ErrTransport covers network failures, 5xx and 429 responses.
	ErrTransport = errors.New("monarch: transport error")
	// ErrNotFound is a 404 for the requested node.
	ErrNotFound = errors.New("monarch: node not found")
	// ErrRejected is any other 4xx response.
	ErrRejected = errors.New("monarch: request rejected")
)

// FailureKind names the class of a failed fetch in reports and logs.
type FailureKind string

const (
	KindDecode    FailureKind = "decode"
	KindTransport FailureKind = "transport"
	KindNotFound  FailureKind = "not_found"
	KindRejected  FailureKind = "rejected"
	KindCanceled  FailureKind = "canceled"
	KindUnknown   FailureKind = "unknown"
)

// Kind classifies err against the error taxonomy of the client.
func Kind(err error) FailureKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrTransport):
		return KindCanceled
	case errors.Is(err, ErrDecode):
		return KindDecode
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrRejected):
		return KindRejected
	case errors.Is(err, ErrTransport):
		return KindTransport
	}
	return KindUnknown
}

// retryable reports whether another attempt may succeed.
func retryable(err error) bool {
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrDecode)
}
