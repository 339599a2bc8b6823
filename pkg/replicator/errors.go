package replicator

import (
	"errors"
	"fmt"
	"net"
	"syscall"
)

var (
	// ErrDisposed is returned when Start or Stop is called after Dispose
	ErrDisposed = errors.New("replicator has been disposed")
	// ErrAlreadyRunning is returned by collaborators when a session already exists
	ErrAlreadyRunning = errors.New("replication session already running")
	// ErrNoEngine is returned when a replicator is constructed without an engine
	ErrNoEngine = errors.New("replicator requires a sync engine")
	// ErrDocumentConflict marks a pulled revision conflicting with a local one.
	// Engines report conflicts by wrapping this sentinel in the doc-error callback.
	ErrDocumentConflict = errors.New("document conflict")
)

// Well-known error codes
const (
	codeAuthFailed = 401
)

// isConflict reports whether a document error is a pull conflict
func isConflict(err error) bool {
	return errors.Is(err, ErrDocumentConflict)
}

// ErrorKind classifies a session-terminating error for retry purposes
type ErrorKind int

const (
	// ErrorPermanent errors terminate the session and are never retried
	ErrorPermanent ErrorKind = iota
	// ErrorTransient errors are expected to resolve themselves given time
	ErrorTransient
	// ErrorNetwork errors are expected to resolve when connectivity changes
	ErrorNetwork
)

// String returns the string representation of an error kind
func (k ErrorKind) String() string {
	switch k {
	case ErrorTransient:
		return "transient"
	case ErrorNetwork:
		return "network"
	default:
		return "permanent"
	}
}

// ReplicationError is a classified session error reported by the engine
// or synthesized by the controller.
type ReplicationError struct {
	Code int
	Kind ErrorKind
	Msg  string
	Err  error
}

// Error implements the error interface
func (e *ReplicationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (code=%d): %v", e.Msg, e.Code, e.Err)
	}
	return fmt.Sprintf("%s (code=%d)", e.Msg, e.Code)
}

// Unwrap returns the wrapped error
func (e *ReplicationError) Unwrap() error {
	return e.Err
}

// NewPermanentError creates a permanent (never retried) replication error
func NewPermanentError(code int, msg string, err error) *ReplicationError {
	return &ReplicationError{Code: code, Kind: ErrorPermanent, Msg: msg, Err: err}
}

// NewTransientError creates a transient (retryable with backoff) replication error
func NewTransientError(code int, msg string, err error) *ReplicationError {
	return &ReplicationError{Code: code, Kind: ErrorTransient, Msg: msg, Err: err}
}

// NewNetworkError creates a network-dependent replication error
func NewNetworkError(code int, msg string, err error) *ReplicationError {
	return &ReplicationError{Code: code, Kind: ErrorNetwork, Msg: msg, Err: err}
}

// classifyError maps an arbitrary error to its retry classification.
//
// Precedence: an explicit *ReplicationError kind wins; otherwise the error
// chain is inspected for well-known network conditions (DNS failure, host or
// network unreachable, connection refused) and timeouts. Anything else is
// permanent.
func classifyError(err error) ErrorKind {
	if err == nil {
		return ErrorPermanent
	}

	var repErr *ReplicationError
	if errors.As(err, &repErr) {
		return repErr.Kind
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrorNetwork
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNREFUSED, syscall.EHOSTUNREACH, syscall.ENETUNREACH, syscall.ENETDOWN:
			return ErrorNetwork
		case syscall.ECONNRESET, syscall.EPIPE, syscall.ETIMEDOUT:
			return ErrorTransient
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTransient
	}

	return ErrorPermanent
}
