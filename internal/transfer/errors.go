package transfer

import "fmt"

// Outcome is the terminal state of one request.
type Outcome string

const (
	OutcomeOK             Outcome = "ok"
	OutcomeBadRequest     Outcome = "error-bad-request"
	OutcomeNoDevice       Outcome = "error-no-device"
	OutcomeDeviceReported Outcome = "error-device-reported"
)

// Kind classifies request failures.
type Kind int

const (
	KindMissingField Kind = iota + 1
	KindInvalidRequest
	KindUnsupportedTarget
	KindNoFilesMatched
	KindDeviceNotFound
	KindToolReported
	KindDeviceIO
)

func (k Kind) String() string {
	switch k {
	case KindMissingField:
		return "missing-field"
	case KindInvalidRequest:
		return "invalid-request"
	case KindUnsupportedTarget:
		return "unsupported-target"
	case KindNoFilesMatched:
		return "no-files-matched"
	case KindDeviceNotFound:
		return "device-not-found"
	case KindToolReported:
		return "tool-reported"
	case KindDeviceIO:
		return "device-io"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Outcome maps a failure kind to the outcome reported for it.
func (k Kind) Outcome() Outcome {
	switch k {
	case KindMissingField, KindInvalidRequest, KindUnsupportedTarget, KindNoFilesMatched:
		return OutcomeBadRequest
	case KindDeviceNotFound:
		return OutcomeNoDevice
	default:
		return OutcomeDeviceReported
	}
}

// Error is a request failure. Msg is shown to the user as the response
// message; Err, if set, is the underlying cause for the log.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Msg + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func fail(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}
