package wire

import (
	"errors"
	"fmt"
)

// Kind classifies why a wire operation failed.
type Kind int

const (
	// KindTerminated means the connection is unusable and has been closed.
	KindTerminated Kind = iota + 1
	// KindCorruptMessage means framing or decoding failed; the connection has been closed.
	KindCorruptMessage
	// KindEmpty means a read produced no data because the peer ended the stream.
	KindEmpty
)

var (
	ErrTerminated     = errors.New("wire: terminated")
	ErrCorruptMessage = errors.New("wire: corrupt message")
	ErrEmpty          = errors.New("wire: empty read")

	errUseOfClosedWire      = errors.New("use of closed wire")
	errMaxBackoffRetries    = errors.New("max backoff retries")
	errMaxPartialRetries    = errors.New("max partial write retries")
	errMaxReadRetries       = errors.New("max read retries")
	errUnexpectedEndOfFrame = errors.New("unexpected end of stream inside frame")
)

func (k Kind) String() string {
	switch k {
	case KindTerminated:
		return "terminated"
	case KindCorruptMessage:
		return "corrupt_message"
	case KindEmpty:
		return "empty"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindTerminated:
		return ErrTerminated
	case KindCorruptMessage:
		return ErrCorruptMessage
	case KindEmpty:
		return ErrEmpty
	default:
		return errors.New("wire: " + k.String())
	}
}

// Error is the tagged failure returned by every Wire operation.
//
// errors.Is matches both the kind sentinel (ErrTerminated, ...) and the cause.
type Error struct {
	Kind Kind
	Err  error
}

func NewError(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Err: cause}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.sentinel().Error()
	}
	return fmt.Sprintf("%s: %v", e.Kind.sentinel(), e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

// KindOf reports the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var werr *Error
	if errors.As(err, &werr) {
		return werr.Kind, true
	}
	return 0, false
}

func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

func terminated(cause error) error {
	return NewError(KindTerminated, cause)
}

func corrupt(cause error) error {
	return NewError(KindCorruptMessage, cause)
}

func empty(cause error) error {
	return NewError(KindEmpty, cause)
}
