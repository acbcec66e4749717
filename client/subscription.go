package client

import (
	"context"
	"errors"
	"iter"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/danmuck/dicewire/command"
	"github.com/danmuck/dicewire/internal/observability"
	"github.com/danmuck/dicewire/internal/protocol/codec"
	"github.com/danmuck/dicewire/internal/protocol/wire"
	"github.com/danmuck/dicewire/proto"
)

// Subscription is a pull-driven stream of push updates. It ends on the first
// receive failure, server error, or unexpected payload and cannot be restarted.
type Subscription[U proto.Response] struct {
	c    *Client
	w    *codec.ProtoWire
	name string
	op   command.Op
	log  zerolog.Logger
	stop func() bool

	value       U
	err         error
	fingerprint uint64

	once  sync.Once
	ended atomic.Bool

	mu    sync.Mutex
	cause error
}

// Watch starts a subscription on the watch connection. A connection left closed by
// an earlier subscription is replaced first. Cancelling ctx ends the subscription.
func Watch[U proto.Response](ctx context.Context, c *Client, cmd command.WatchCommand[U]) (*Subscription[U], error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	if c.closed.Load() {
		return nil, ErrClientClosed
	}

	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	if !c.watchActive.CompareAndSwap(false, true) {
		return nil, ErrWatchActive
	}

	w, err := c.watchWire(ctx)
	if err != nil {
		c.watchActive.Store(false)
		return nil, err
	}
	if err := w.Send(ctx, cmd.Proto()); err != nil {
		c.recordWireError(command.ChannelWatch, err)
		c.watchActive.Store(false)
		return nil, err
	}
	c.watchState.Store(int32(StateStreaming))

	s := &Subscription[U]{
		c:    c,
		w:    w,
		name: cmd.String(),
		op:   cmd.Op(),
		log:  c.log.With().Str("channel", string(command.ChannelWatch)).Str("op", string(cmd.Op())).Logger(),
	}
	s.stop = context.AfterFunc(ctx, func() { s.cancel(context.Cause(ctx)) })
	s.log.Debug().Msg("subscription started")
	return s, nil
}

// watchWire returns the live watch connection, re-dialing if the last one closed.
// Callers hold c.watchMu.
func (c *Client) watchWire(ctx context.Context) (*codec.ProtoWire, error) {
	if w := c.watch.Load(); w != nil && !w.Closed() {
		return w, nil
	}
	observability.RecordReconnect(string(command.ChannelWatch))
	c.log.Info().Msg("reconnecting watch channel")
	w, err := c.connect(ctx, command.ChannelWatch)
	if err != nil {
		return nil, wire.NewError(wire.KindTerminated, err)
	}
	c.watch.Store(w)
	if c.closed.Load() {
		w.Close()
		return nil, ErrClientClosed
	}
	return w, nil
}

// Next blocks for the next update. It returns false once the stream has ended;
// Err then reports why.
func (s *Subscription[U]) Next(ctx context.Context) bool {
	for {
		if s.ended.Load() {
			s.finish(nil)
			return false
		}
		res, err := codec.Receive[proto.Result](ctx, s.w)
		if err != nil {
			s.c.recordWireError(command.ChannelWatch, err)
			s.finish(err)
			return false
		}
		if !res.OK() {
			s.finish(&CommandError{Command: s.name, Message: res.Message})
			return false
		}
		if res.Response == nil {
			s.finish(ErrEmptyResponse)
			return false
		}
		if _, ack := res.Response.(proto.WatchAck); ack {
			s.fingerprint = res.Fingerprint64
			continue
		}
		update, ok := res.Response.(U)
		if !ok {
			s.finish(&MismatchError{Command: s.name, Expected: typeName[U](), Got: res.Response.Slot().String()})
			return false
		}
		if res.Fingerprint64 != 0 {
			s.fingerprint = res.Fingerprint64
		}
		s.value = update
		observability.RecordWatchUpdate(string(s.op))
		return true
	}
}

func (s *Subscription[U]) Value() U { return s.value }

// Err is nil when the stream was ended by Close.
func (s *Subscription[U]) Err() error { return s.err }

// Fingerprint identifies the subscription server-side; pass it to command.Unwatch.
func (s *Subscription[U]) Fingerprint() uint64 { return s.fingerprint }

// Close ends the stream and closes the watch connection, unblocking a pending Next.
func (s *Subscription[U]) Close() {
	s.cancel(nil)
}

// All yields updates until the stream ends or the loop breaks.
func (s *Subscription[U]) All(ctx context.Context) iter.Seq[U] {
	return func(yield func(U) bool) {
		for s.Next(ctx) {
			if !yield(s.value) {
				s.Close()
				return
			}
		}
	}
}

// cancel records why the stream is being stopped from outside and closes the wire
// so a blocked receive returns.
func (s *Subscription[U]) cancel(cause error) {
	s.mu.Lock()
	if s.cause == nil {
		s.cause = cause
	}
	s.mu.Unlock()
	s.ended.Store(true)
	s.w.Close()
	s.finish(nil)
}

func (s *Subscription[U]) finish(err error) {
	s.once.Do(func() {
		s.mu.Lock()
		cause := s.cause
		s.mu.Unlock()

		switch {
		case cause != nil:
			err = cause
		case s.ended.Load():
			err = nil
		}
		s.err = err
		s.ended.Store(true)
		s.w.Close()
		if s.stop != nil {
			s.stop()
		}
		if !s.c.closed.Load() {
			s.c.watchState.Store(int32(StateReady))
		}
		s.c.watchActive.Store(false)

		switch {
		case err == nil:
			s.log.Debug().Msg("subscription closed")
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			s.log.Info().Err(err).Msg("subscription cancelled")
		default:
			s.log.Warn().Err(err).Msg("subscription ended")
		}
	})
}
