package wire

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/dicewire/internal/protocol/frame"
	"github.com/rs/zerolog"
)

// Wire is a closeable, length-prefixed message channel.
type Wire interface {
	Send(ctx context.Context, payload []byte) error
	Receive(ctx context.Context) ([]byte, error)
	Close()
	Closed() bool
}

const (
	stateOpen int32 = iota
	stateClosed
)

type readPhase int

const (
	phasePrefix readPhase = iota
	phaseBody
)

func (p readPhase) String() string {
	if p == phasePrefix {
		return "prefix"
	}
	return "body"
}

// aLongTimeAgo is a deadline in the past used to unblock pending socket calls.
var aLongTimeAgo = time.Unix(1, 0)

// TCPWire owns exactly one net.Conn. Reads and writes are serialized independently,
// so one reader and one writer may proceed concurrently.
type TCPWire struct {
	conn   net.Conn
	reader *bufio.Reader
	cfg    Config
	log    zerolog.Logger

	state   atomic.Int32
	readMu  sync.Mutex
	writeMu sync.Mutex
}

var _ Wire = (*TCPWire)(nil)

func New(conn net.Conn, cfg Config) *TCPWire {
	cfg = cfg.WithDefaults()
	remote := ""
	if addr := conn.RemoteAddr(); addr != nil {
		remote = addr.String()
	}
	return &TCPWire{
		conn:   conn,
		reader: bufio.NewReader(conn),
		cfg:    cfg,
		log:    cfg.Logger.With().Str("remote", remote).Logger(),
	}
}

func (w *TCPWire) Closed() bool {
	return w.state.Load() == stateClosed
}

// Close closes the socket at most once. Close errors are logged, not returned.
func (w *TCPWire) Close() {
	if !w.state.CompareAndSwap(stateOpen, stateClosed) {
		return
	}
	if err := w.conn.Close(); err != nil {
		w.log.Warn().Err(err).Msg("wire close")
		return
	}
	w.log.Debug().Msg("wire closed")
}

func (w *TCPWire) Send(ctx context.Context, payload []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	if w.Closed() {
		return terminated(errUseOfClosedWire)
	}
	buf, err := frame.Encode(payload, w.cfg.Limits)
	if err != nil {
		return corrupt(err)
	}

	stop := interruptOn(ctx, w.conn.SetWriteDeadline)
	defer stop()
	return w.write(ctx, buf)
}

func (w *TCPWire) Receive(ctx context.Context) ([]byte, error) {
	w.readMu.Lock()
	defer w.readMu.Unlock()

	if w.Closed() {
		return nil, terminated(errUseOfClosedWire)
	}

	stop := interruptOn(ctx, w.conn.SetReadDeadline)
	defer stop()

	var prefix [frame.PrefixLen]byte
	if err := w.readFull(ctx, prefix[:], phasePrefix, w.cfg.PrefixReadRetries); err != nil {
		return nil, err
	}
	size, err := frame.DecodePrefix(prefix[:], w.cfg.Limits)
	if err != nil {
		w.Close()
		return nil, corrupt(err)
	}

	payload := make([]byte, size)
	if err := w.readFull(ctx, payload, phaseBody, w.cfg.BodyReadRetries); err != nil {
		return nil, err
	}
	return payload, nil
}

// write keeps partial progress across retries so a frame is never resent from the start.
func (w *TCPWire) write(ctx context.Context, buf []byte) error {
	var written, partialRetries, backoffRetries int
	for written < len(buf) {
		if err := w.setWriteDeadline(ctx); err != nil {
			w.Close()
			return terminated(err)
		}
		if err := ctx.Err(); err != nil {
			if written > 0 {
				w.Close()
			}
			return terminated(err)
		}

		n, err := w.conn.Write(buf[written:])
		written += n
		if err == nil {
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			w.Close()
			return terminated(ctxErr)
		}

		switch class := classify(err); class {
		case classClosed, classEOF:
			w.Close()
			return terminated(err)
		case classTimeout:
			backoffRetries++
			if backoffRetries > w.cfg.MaxBackoffRetries {
				w.Close()
				return terminated(fmt.Errorf("%w: %w", errMaxBackoffRetries, err))
			}
			w.log.Debug().Err(err).Int("attempt", backoffRetries).Int("written", written).Msg("wire write backoff")
			if err := sleepBackoff(ctx, w.cfg.Backoff, backoffRetries); err != nil {
				w.Close()
				return terminated(err)
			}
		default:
			partialRetries++
			if partialRetries > w.cfg.MaxPartialWriteRetries {
				w.Close()
				return terminated(fmt.Errorf("%w: %w", errMaxPartialRetries, err))
			}
			w.log.Debug().Err(err).Int("attempt", partialRetries).Int("written", written).Msg("wire write retry")
		}
	}
	return nil
}

func (w *TCPWire) readFull(ctx context.Context, buf []byte, phase readPhase, maxRetries int) error {
	var read, retries int
	for read < len(buf) {
		if err := w.setReadDeadline(ctx); err != nil {
			w.Close()
			return terminated(err)
		}
		if err := ctx.Err(); err != nil {
			if read > 0 || phase == phaseBody {
				w.Close()
			}
			return terminated(err)
		}

		n, err := w.reader.Read(buf[read:])
		read += n
		if err == nil {
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			w.Close()
			return terminated(ctxErr)
		}

		switch class := classify(err); class {
		case classEOF:
			w.Close()
			if phase == phasePrefix {
				return empty(err)
			}
			return terminated(fmt.Errorf("%w: %w", errUnexpectedEndOfFrame, err))
		case classClosed:
			w.Close()
			return terminated(err)
		default:
			retries++
			if retries > maxRetries {
				w.Close()
				return terminated(fmt.Errorf("%w: %s: %w", errMaxReadRetries, phase, err))
			}
			w.log.Debug().Err(err).Str("phase", phase.String()).Str("class", class.String()).Int("attempt", retries).Msg("wire read retry")
			if class == classTimeout {
				if err := sleepBackoff(ctx, w.cfg.Backoff, retries); err != nil {
					w.Close()
					return terminated(err)
				}
			}
		}
	}
	return nil
}

// interruptOn unblocks a pending socket call once ctx is done.
func interruptOn(ctx context.Context, setDeadline func(time.Time) error) func() bool {
	return context.AfterFunc(ctx, func() {
		_ = setDeadline(aLongTimeAgo)
	})
}

func (w *TCPWire) setWriteDeadline(ctx context.Context) error {
	return w.conn.SetWriteDeadline(deadline(ctx, w.cfg.WriteTimeout))
}

func (w *TCPWire) setReadDeadline(ctx context.Context) error {
	return w.conn.SetReadDeadline(deadline(ctx, w.cfg.ReadTimeout))
}

func deadline(ctx context.Context, timeout time.Duration) time.Time {
	var d time.Time
	if timeout > 0 {
		d = time.Now().Add(timeout)
	}
	if ctxDeadline, ok := ctx.Deadline(); ok && (d.IsZero() || ctxDeadline.Before(d)) {
		d = ctxDeadline
	}
	return d
}
