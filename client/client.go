// Package client is a DiceDB client over the binary wire protocol.
//
// A Client owns two connections: a command connection carrying strictly paired
// request/response round trips, and a watch connection carrying push updates for
// one subscription at a time.
package client

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/danmuck/dicewire/command"
	"github.com/danmuck/dicewire/internal/observability"
	"github.com/danmuck/dicewire/internal/protocol/codec"
	"github.com/danmuck/dicewire/internal/protocol/wire"
	"github.com/danmuck/dicewire/internal/retry"
	"github.com/danmuck/dicewire/proto"
)

type State int32

const (
	StateConstructing State = iota
	StateHandshaking
	StateReady
	StateBusy
	StateStreaming
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConstructing:
		return "constructing"
	case StateHandshaking:
		return "handshaking"
	case StateReady:
		return "ready"
	case StateBusy:
		return "busy"
	case StateStreaming:
		return "streaming"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

type Client struct {
	cfg Config
	id  string
	log zerolog.Logger

	// mu serializes command round trips; a request and its reply are never split.
	mu  sync.Mutex
	cmd atomic.Pointer[codec.ProtoWire]

	watchMu     sync.Mutex
	watch       atomic.Pointer[codec.ProtoWire]
	watchActive atomic.Bool

	state      atomic.Int32
	watchState atomic.Int32
	closed     atomic.Bool
}

// New dials both connections and handshakes each one.
func New(ctx context.Context, cfg Config) (*Client, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	id := strings.TrimSpace(cfg.ClientID)
	if id == "" {
		id = cfg.IDSource()
	}
	c := &Client{
		cfg: cfg,
		id:  id,
		log: cfg.Logger.With().Str("component", "client").Str("addr", cfg.Addr).Str("client_id", id).Logger(),
	}
	c.state.Store(int32(StateConstructing))
	c.watchState.Store(int32(StateConstructing))

	c.state.Store(int32(StateHandshaking))
	cmdWire, err := c.connect(ctx, command.ChannelCommand)
	if err != nil {
		c.state.Store(int32(StateClosed))
		return nil, err
	}
	c.cmd.Store(cmdWire)
	c.state.Store(int32(StateReady))

	c.watchState.Store(int32(StateHandshaking))
	watchWire, err := c.connect(ctx, command.ChannelWatch)
	if err != nil {
		cmdWire.Close()
		c.state.Store(int32(StateClosed))
		c.watchState.Store(int32(StateClosed))
		return nil, err
	}
	c.watch.Store(watchWire)
	c.watchState.Store(int32(StateReady))

	c.log.Info().Msg("client connected")
	return c, nil
}

func (c *Client) ID() string { return c.id }

func (c *Client) State() State { return State(c.state.Load()) }

func (c *Client) WatchState() State { return State(c.watchState.Load()) }

// Close closes both connections. It is safe to call more than once.
func (c *Client) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.state.Store(int32(StateClosed))
	c.watchState.Store(int32(StateClosed))
	if w := c.cmd.Load(); w != nil {
		w.Close()
	}
	if w := c.watch.Load(); w != nil {
		w.Close()
	}
	c.log.Info().Msg("client closed")
}

// connect dials and handshakes one channel, retrying the pair as a unit. A rejected
// handshake is not retried.
func (c *Client) connect(ctx context.Context, ch command.Channel) (*codec.ProtoWire, error) {
	r := retry.Retrier{
		MaxAttempts: c.cfg.HandshakeAttempts,
		Delay:       c.cfg.Wire.Backoff.InitialDelay,
		ShouldRetry: func(err error) bool {
			var cmdErr *CommandError
			return !errors.As(err, &cmdErr)
		},
		OnRetry: func(attempt int, err error) {
			c.log.Warn().Err(err).Str("channel", string(ch)).Int("attempt", attempt).Msg("connect retry")
		},
	}
	return retry.Run(ctx, r, func(ctx context.Context) (*codec.ProtoWire, error) {
		conn, err := c.dialConn(ctx)
		if err != nil {
			return nil, err
		}
		wcfg := c.cfg.Wire
		if ch == command.ChannelWatch {
			wcfg.ReadTimeout = c.cfg.WatchReadTimeout
		}
		l := c.log.With().Str("channel", string(ch)).Logger()
		wcfg.Logger = &l
		w := codec.New(wire.New(conn, wcfg))

		hsCtx, cancel := context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
		defer cancel()
		if err := handshake(hsCtx, w, command.Handshake(c.id, ch)); err != nil {
			w.Close()
			return nil, err
		}
		return w, nil
	})
}

func handshake(ctx context.Context, w *codec.ProtoWire, cmd command.Command[*proto.HandshakeRes]) error {
	if err := w.Send(ctx, cmd.Proto()); err != nil {
		return err
	}
	res, err := codec.Receive[proto.Result](ctx, w)
	if err != nil {
		return err
	}
	if !res.OK() {
		return &CommandError{Command: cmd.String(), Message: res.Message}
	}
	switch res.Response.(type) {
	case nil, *proto.HandshakeRes:
		return nil
	default:
		return &MismatchError{Command: cmd.String(), Expected: proto.SlotHandshake.String(), Got: res.Response.Slot().String()}
	}
}

// commandWire returns the live command connection, re-dialing if the last one closed.
// Callers hold c.mu.
func (c *Client) commandWire(ctx context.Context) (*codec.ProtoWire, error) {
	if w := c.cmd.Load(); w != nil && !w.Closed() {
		return w, nil
	}
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	observability.RecordReconnect(string(command.ChannelCommand))
	c.log.Info().Msg("reconnecting command channel")
	w, err := c.connect(ctx, command.ChannelCommand)
	if err != nil {
		return nil, wire.NewError(wire.KindTerminated, fmt.Errorf("reconnect: %w", err))
	}
	c.cmd.Store(w)
	if c.closed.Load() {
		w.Close()
		return nil, ErrClientClosed
	}
	return w, nil
}

func (c *Client) roundTrip(ctx context.Context, msg *proto.Command) (*proto.Result, error) {
	w, err := c.commandWire(ctx)
	if err != nil {
		return nil, err
	}
	if err := w.Send(ctx, msg); err != nil {
		c.recordWireError(command.ChannelCommand, err)
		return nil, err
	}
	res, err := codec.Receive[proto.Result](ctx, w)
	if err != nil {
		// The reply to this request may still arrive; the next caller must not read it.
		w.Close()
		c.recordWireError(command.ChannelCommand, err)
		// A hang-up after the request was sent is a dropped connection, not an
		// empty reply.
		if wire.IsKind(err, wire.KindEmpty) {
			err = wire.NewError(wire.KindTerminated, err)
		}
		return nil, err
	}
	return res, nil
}

func (c *Client) recordWireError(ch command.Channel, err error) {
	if kind, ok := wire.KindOf(err); ok {
		observability.RecordWireError(string(ch), kind.String())
	}
}

func (c *Client) retrier(op command.Op) retry.Retrier {
	return retry.Retrier{
		MaxAttempts: c.cfg.MaxAttempts,
		Delay:       c.cfg.RetryDelay,
		ShouldRetry: isTerminated,
		OnRetry: func(attempt int, err error) {
			observability.RecordRetry(string(op))
			c.log.Warn().Err(err).Str("op", string(op)).Int("attempt", attempt).Msg("command retry")
		},
	}
}

// Fire sends cmd and waits for its reply. Only a dropped connection is retried; the
// connection is re-dialed before the next attempt.
func Fire[R proto.Response](ctx context.Context, c *Client, cmd command.Command[R]) (R, error) {
	var zero R
	if err := cmd.Validate(); err != nil {
		return zero, err
	}
	if c.closed.Load() {
		return zero, ErrClientClosed
	}

	start := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.CompareAndSwap(int32(StateReady), int32(StateBusy))
	defer c.state.CompareAndSwap(int32(StateBusy), int32(StateReady))

	msg := cmd.Proto()
	res, err := retry.Run(ctx, c.retrier(cmd.Op()), func(ctx context.Context) (*proto.Result, error) {
		return c.roundTrip(ctx, msg)
	})
	out, err := unwrap[R](cmd.String(), res, err)
	observability.RecordCommand(string(cmd.Op()), outcome(err), time.Since(start))
	if err != nil {
		c.log.Debug().Err(err).Str("op", string(cmd.Op())).Msg("command failed")
	}
	return out, err
}

func unwrap[R proto.Response](name string, res *proto.Result, err error) (R, error) {
	var zero R
	if err != nil {
		return zero, err
	}
	if !res.OK() {
		return zero, &CommandError{Command: name, Message: res.Message}
	}
	if res.Response == nil {
		return zero, fmt.Errorf("%w: %s", ErrEmptyResponse, name)
	}
	out, ok := res.Response.(R)
	if !ok {
		return zero, &MismatchError{Command: name, Expected: typeName[R](), Got: res.Response.Slot().String()}
	}
	return out, nil
}

func typeName[R any]() string {
	t := reflect.TypeFor[R]()
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// Ping returns the server's reply message.
func (c *Client) Ping(ctx context.Context) (string, error) {
	res, err := Fire(ctx, c, command.Ping())
	if err != nil {
		return "", err
	}
	return res.Message, nil
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	res, err := Fire(ctx, c, command.Get(key))
	if err != nil {
		return "", err
	}
	return res.Value, nil
}

func (c *Client) Set(ctx context.Context, key, value string) error {
	_, err := Fire(ctx, c, command.Set(key, value))
	return err
}

func (c *Client) Del(ctx context.Context, keys ...string) (int64, error) {
	res, err := Fire(ctx, c, command.Del(keys...))
	if err != nil {
		return 0, err
	}
	return res.Count, nil
}
