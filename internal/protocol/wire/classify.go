package wire

import (
	"errors"
	"io"
	"net"
	"os"
	"syscall"
)

type errClass int

const (
	classOther errClass = iota
	classTimeout
	classClosed
	classEOF
)

func (c errClass) String() string {
	switch c {
	case classTimeout:
		return "timeout"
	case classClosed:
		return "closed"
	case classEOF:
		return "eof"
	default:
		return "other"
	}
}

// classify maps a socket error onto the handling the resilient loops apply to it.
func classify(err error) errClass {
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return classEOF
	case errors.Is(err, net.ErrClosed),
		errors.Is(err, io.ErrClosedPipe),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNABORTED):
		return classClosed
	case errors.Is(err, os.ErrDeadlineExceeded),
		errors.Is(err, syscall.EAGAIN),
		errors.Is(err, syscall.EINTR):
		return classTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return classTimeout
	}
	return classOther
}
