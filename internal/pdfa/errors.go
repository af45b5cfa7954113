package pdfa

import (
	"errors"
	"fmt"
)

// ErrorCode is a stable numeric error code. Callers print it as 0x%08x.
type ErrorCode uint32

const (
	CodeSuccess         ErrorCode = 0x00000000
	CodeGeneric         ErrorCode = 0x00000001
	CodeIllegalArgument ErrorCode = 0x00000002
	CodeIllegalState    ErrorCode = 0x00000003
	CodeIO              ErrorCode = 0x00000004
	CodeCorrupt         ErrorCode = 0x00000010
	CodePassword        ErrorCode = 0x00000011
	CodeUnsupported     ErrorCode = 0x00000012
	CodeConformance     ErrorCode = 0x00000020
	CodeCancelled       ErrorCode = 0x00000030
)

// String returns the symbolic name of the code.
func (c ErrorCode) String() string {
	switch c {
	case CodeSuccess:
		return "SUCCESS"
	case CodeGeneric:
		return "GENERIC"
	case CodeIllegalArgument:
		return "ILLEGAL_ARGUMENT"
	case CodeIllegalState:
		return "ILLEGAL_STATE"
	case CodeIO:
		return "IO"
	case CodeCorrupt:
		return "CORRUPT"
	case CodePassword:
		return "PASSWORD"
	case CodeUnsupported:
		return "UNSUPPORTED"
	case CodeConformance:
		return "CONFORMANCE"
	case CodeCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// Sentinel errors for use with errors.Is().
var (
	// ErrCorrupt indicates the input could not be parsed as a PDF document.
	ErrCorrupt = errors.New("corrupt document")

	// ErrPassword indicates a missing or wrong password for an encrypted document.
	ErrPassword = errors.New("invalid password")

	// ErrUnsupported indicates a document feature the library cannot process.
	ErrUnsupported = errors.New("unsupported document")

	// ErrLibraryClosed indicates use of a library after Close.
	ErrLibraryClosed = errors.New("library closed")

	// ErrCancelled indicates the caller's context ended the operation.
	ErrCancelled = errors.New("operation cancelled")
)

// Error is returned by every library operation that fails. It carries the
// code and message a caller prints for diagnostics.
type Error struct {
	// Code classifies the failure
	Code ErrorCode
	// Op names the library operation, e.g. "open" or "convert"
	Op string
	// Message is a human-readable description
	Message string
	// Cause is the underlying error, if any
	Cause error
}

// Error returns a human-readable error message.
func (e *Error) Error() string {
	msg := e.Op
	if msg == "" {
		msg = "pdfa"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel that corresponds to the error code.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrCorrupt:
		return e.Code == CodeCorrupt
	case ErrPassword:
		return e.Code == CodePassword
	case ErrUnsupported:
		return e.Code == CodeUnsupported
	case ErrCancelled:
		return e.Code == CodeCancelled
	case ErrLibraryClosed:
		return e.Code == CodeIllegalState && e.Message == ErrLibraryClosed.Error()
	}
	return false
}

// ErrorCodeOf extracts the code from err. Nil yields CodeSuccess, errors not
// produced by this package yield CodeGeneric.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeSuccess
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeGeneric
}

// MessageOf returns the message part of err without the operation prefix.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	msg := e.Message
	if e.Cause != nil {
		if msg != "" {
			msg += ": "
		}
		msg += e.Cause.Error()
	}
	return msg
}

func errClosed(op string) error {
	return &Error{Code: CodeIllegalState, Op: op, Message: ErrLibraryClosed.Error()}
}

func errCancelled(op string, cause error) error {
	return &Error{Code: CodeCancelled, Op: op, Message: "operation cancelled", Cause: cause}
}

func errArgument(op, format string, args ...any) error {
	return &Error{Code: CodeIllegalArgument, Op: op, Message: fmt.Sprintf(format, args...)}
}
