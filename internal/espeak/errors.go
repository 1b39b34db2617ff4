package espeak

import (
	"errors"
	"fmt"
)

// Status is an espeak_ERROR code returned by the engine.
type Status int

const (
	StatusOK            Status = 0
	StatusInternalError Status = -1
	StatusBufferFull    Status = 1
	StatusNotFound      Status = 2
)

// String describes the status. Every code has a description.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusInternalError:
		return "internal error"
	case StatusBufferFull:
		return "buffer full"
	case StatusNotFound:
		return "not found"
	}
	return "unknown error"
}

var (
	// ErrInternal is the cause of an EngineError carrying StatusInternalError.
	ErrInternal = errors.New("espeak: internal error")
	// ErrBufferFull is the cause of an EngineError carrying StatusBufferFull.
	ErrBufferFull = errors.New("espeak: buffer full")
	// ErrNotFound is the cause of an EngineError carrying StatusNotFound.
	ErrNotFound = errors.New("espeak: not found")
	// ErrUnknownStatus is the cause of an EngineError with an unmapped code.
	ErrUnknownStatus = errors.New("espeak: unknown error")

	// ErrNoVoicesAvailable is returned when the engine reports no voice list.
	ErrNoVoicesAvailable = errors.New("no voices available")

	ErrEmbeddedNul = errors.New("text contains an embedded NUL byte")
	ErrInvalidUTF8 = errors.New("text is not valid UTF-8")

	ErrDataDirNotFound    = errors.New("espeak-ng-data directory does not exist")
	ErrInitialize         = errors.New("espeak initialization failed")
	ErrAlreadyInitialized = errors.New("espeak session already active in this process")
	ErrClosed             = errors.New("espeak session closed")
	ErrNilBuffer          = errors.New("espeak: nil output buffer")
	ErrUnavailable        = errors.New("espeak engine not compiled in (build with -tags espeak)")
)

// EngineError wraps a non-success status code returned by an engine call.
type EngineError struct {
	Code Status
}

func (e *EngineError) Error() string {
	return "espeak operation failed: " + e.Code.String()
}

// Unwrap exposes the sentinel for the code so callers can use errors.Is.
func (e *EngineError) Unwrap() error {
	switch e.Code {
	case StatusInternalError:
		return ErrInternal
	case StatusBufferFull:
		return ErrBufferFull
	case StatusNotFound:
		return ErrNotFound
	}
	return ErrUnknownStatus
}

// InvalidParameterError reports a value outside the parameter's range.
// It is raised before the engine is called.
type InvalidParameterError struct {
	Parameter Parameter
	Value     int
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid value for '%s': %d", e.Parameter, e.Value)
}

// TextEncodingError reports text that cannot cross the C boundary: outbound
// text with an embedded NUL, or inbound text that is not valid UTF-8.
type TextEncodingError struct {
	Op     string
	Offset int
	Err    error
}

func (e *TextEncodingError) Error() string {
	return fmt.Sprintf("%s: byte %d: %v", e.Op, e.Offset, e.Err)
}

func (e *TextEncodingError) Unwrap() error { return e.Err }

func statusError(code Status) error {
	if code == StatusOK {
		return nil
	}
	return &EngineError{Code: code}
}
