package client

import (
	"errors"
	"fmt"

	"github.com/danmuck/dicewire/internal/protocol/wire"
)

var (
	ErrClientClosed  = errors.New("client: closed")
	ErrEmptyResponse = errors.New("client: response carried no payload")
	ErrWatchActive   = errors.New("client: a subscription is already streaming")
)

// CommandError is a server-side rejection. It is never retried.
type CommandError struct {
	Command string
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("client: %s: %s", e.Command, e.Message)
}

// MismatchError means the server answered in a different slot than the command
// expects.
type MismatchError struct {
	Command  string
	Expected string
	Got      string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("client: %s: expected %s, got %s", e.Command, e.Expected, e.Got)
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var cmdErr *CommandError
	var mismatch *MismatchError
	switch {
	case errors.As(err, &cmdErr):
		return "err"
	case errors.As(err, &mismatch), errors.Is(err, ErrEmptyResponse):
		return "mismatch"
	case errors.Is(err, ErrClientClosed):
		return "closed"
	}
	if kind, ok := wire.KindOf(err); ok {
		return kind.String()
	}
	return "error"
}

func isTerminated(err error) bool {
	return wire.IsKind(err, wire.KindTerminated)
}
