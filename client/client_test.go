package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danmuck/dicewire/command"
	"github.com/danmuck/dicewire/internal/protocol/wire"
	"github.com/danmuck/dicewire/internal/testutil/diceserver"
	"github.com/danmuck/dicewire/internal/testutil/testlog"
	"github.com/danmuck/dicewire/proto"
)

func testConfig(addr string) Config {
	cfg := DefaultConfig()
	cfg.Addr = addr
	cfg.RetryDelay = 10 * time.Millisecond
	cfg.ConnectTimeout = 2 * time.Second
	cfg.HandshakeTimeout = 2 * time.Second
	cfg.Wire.ReadTimeout = 2 * time.Second
	cfg.Wire.WriteTimeout = 2 * time.Second
	return cfg
}

func newTestClient(t *testing.T, srv *diceserver.Server, mutate func(*Config)) *Client {
	t.Helper()
	cfg := testConfig(srv.Addr())
	if mutate != nil {
		mutate(&cfg)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func countOp(cmds []proto.Command, op string) int {
	n := 0
	for _, c := range cmds {
		if c.Cmd == op {
			n++
		}
	}
	return n
}

func TestNewHandshakesBothChannels(t *testing.T) {
	testlog.Start(t)
	srv := diceserver.Start(t)
	c := newTestClient(t, srv, func(cfg *Config) {
		cfg.IDSource = func() string { return "injected-id" }
	})

	hs := srv.Handshakes()
	if len(hs) != 2 {
		t.Fatalf("expected two handshakes, got %+v", hs)
	}
	if hs[0] != (diceserver.Handshake{ClientID: "injected-id", Channel: "command"}) ||
		hs[1] != (diceserver.Handshake{ClientID: "injected-id", Channel: "watch"}) {
		t.Fatalf("unexpected handshakes: %+v", hs)
	}
	if c.ID() != "injected-id" || c.State() != StateReady || c.WatchState() != StateReady {
		t.Fatalf("unexpected client identity/state id=%q state=%s watch=%s", c.ID(), c.State(), c.WatchState())
	}
}

func TestExplicitClientIDWinsOverSource(t *testing.T) {
	testlog.Start(t)
	srv := diceserver.Start(t)
	called := false
	c := newTestClient(t, srv, func(cfg *Config) {
		cfg.ClientID = "fixed"
		cfg.IDSource = func() string { called = true; return "other" }
	})
	if c.ID() != "fixed" || called {
		t.Fatalf("expected explicit id to be used, id=%q source_called=%v", c.ID(), called)
	}
}

func TestFireSetThenGet(t *testing.T) {
	testlog.Start(t)
	srv := diceserver.Start(t)
	c := newTestClient(t, srv, nil)
	ctx := context.Background()

	if err := c.Set(ctx, "k1", "v1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := c.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "v1" {
		t.Fatalf("expected v1, got %q", got)
	}
	pong, err := c.Ping(ctx)
	if err != nil || pong != "PONG" {
		t.Fatalf("ping: %q %v", pong, err)
	}
	n, err := c.Del(ctx, "k1", "missing")
	if err != nil || n != 1 {
		t.Fatalf("del: n=%d err=%v", n, err)
	}
}

func TestFireServerErrorIsNotRetried(t *testing.T) {
	testlog.Start(t)
	srv := diceserver.Start(t)
	c := newTestClient(t, srv, func(cfg *Config) { cfg.MaxAttempts = 5 })

	_, err := Fire(context.Background(), c, command.Raw("SET onlykey"))
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected CommandError, got %v", err)
	}
	if cmdErr.Message != "wrong number of arguments for 'SET' command" {
		t.Fatalf("unexpected message %q", cmdErr.Message)
	}
	if n := countOp(srv.Commands(), "SET"); n != 1 {
		t.Fatalf("expected exactly one SET on the wire, got %d", n)
	}
}

func TestFireConcurrentCallersGetTheirOwnReplies(t *testing.T) {
	testlog.Start(t)
	srv := diceserver.Start(t)
	c := newTestClient(t, srv, nil)

	const callers = 32
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			want := fmt.Sprintf("msg-%d", i)
			res, err := Fire(context.Background(), c, command.Echo(want))
			if err != nil {
				errs <- err
				return
			}
			if res.Message != want {
				errs <- fmt.Errorf("caller %d got %q", i, res.Message)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}

func TestFireReconnectsAfterDroppedConnection(t *testing.T) {
	testlog.Start(t)
	srv := diceserver.Start(t)
	var dropped atomic.Bool
	srv.SetHook(func(channel string, cmd *proto.Command) diceserver.Action {
		if cmd.Cmd == "GET" && dropped.CompareAndSwap(false, true) {
			return diceserver.Action{Drop: true}
		}
		return diceserver.Action{}
	})
	c := newTestClient(t, srv, nil)
	ctx := context.Background()
	if err := c.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if got != "v" {
		t.Fatalf("expected v, got %q", got)
	}
	if n := countOp(srv.Commands(), "GET"); n != 2 {
		t.Fatalf("expected two GET attempts, got %d", n)
	}
	if hs := srv.Handshakes(); len(hs) != 3 || hs[2].Channel != "command" {
		t.Fatalf("expected a command channel re-handshake, got %+v", hs)
	}
}

func TestFireSurfacesTerminatedWhenAttemptsSpent(t *testing.T) {
	testlog.Start(t)
	srv := diceserver.Start(t)
	srv.SetHook(func(channel string, cmd *proto.Command) diceserver.Action {
		if cmd.Cmd == "GET" {
			return diceserver.Action{Drop: true}
		}
		return diceserver.Action{}
	})
	c := newTestClient(t, srv, func(cfg *Config) { cfg.MaxAttempts = 1 })

	_, err := c.Get(context.Background(), "k")
	if !errors.Is(err, wire.ErrTerminated) {
		t.Fatalf("expected terminated, got %v", err)
	}
	if n := countOp(srv.Commands(), "GET"); n != 1 {
		t.Fatalf("expected a single attempt, got %d", n)
	}

	srv.SetHook(nil)
	if err := c.Set(context.Background(), "k", "v"); err != nil {
		t.Fatalf("expected next call to reconnect, got %v", err)
	}
}

func TestFireReportsMismatchedAndEmptyPayloads(t *testing.T) {
	testlog.Start(t)
	srv := diceserver.Start(t)
	srv.SetHook(func(channel string, cmd *proto.Command) diceserver.Action {
		switch cmd.Cmd {
		case "PING":
			return diceserver.Action{Result: &proto.Result{Response: &proto.GetRes{Value: "x"}}}
		case "ECHO":
			// Message keeps the frame non-empty; no payload slot is set.
			return diceserver.Action{Result: &proto.Result{Message: "OK"}}
		}
		return diceserver.Action{}
	})
	c := newTestClient(t, srv, nil)

	_, err := Fire(context.Background(), c, command.Ping())
	var mismatch *MismatchError
	if !errors.As(err, &mismatch) || mismatch.Expected != "PingRes" || mismatch.Got != "GETRes" {
		t.Fatalf("expected mismatch error, got %v", err)
	}
	if _, err := Fire(context.Background(), c, command.Echo("hi")); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected empty response, got %v", err)
	}
}

func TestFireRawReturnsUntypedPayload(t *testing.T) {
	testlog.Start(t)
	srv := diceserver.Start(t)
	c := newTestClient(t, srv, nil)

	res, err := Fire(context.Background(), c, command.Raw("incrby counter 5"))
	if err != nil {
		t.Fatalf("raw fire: %v", err)
	}
	if got, ok := res.(*proto.IncrByRes); !ok || got.Value != 5 {
		t.Fatalf("unexpected payload %#v", res)
	}
}

func TestFireRejectsInvalidCommandLocally(t *testing.T) {
	testlog.Start(t)
	srv := diceserver.Start(t)
	c := newTestClient(t, srv, nil)

	if _, err := Fire(context.Background(), c, command.Del()); !errors.Is(err, command.ErrArity) {
		t.Fatalf("expected arity error, got %v", err)
	}
	if len(srv.Commands()) != 0 {
		t.Fatalf("expected nothing sent, got %+v", srv.Commands())
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	testlog.Start(t)
	srv := diceserver.Start(t)
	c := newTestClient(t, srv, nil)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Close()
		}()
	}
	wg.Wait()
	if c.State() != StateClosed {
		t.Fatalf("expected closed state, got %s", c.State())
	}
	if _, err := c.Get(context.Background(), "k"); !errors.Is(err, ErrClientClosed) {
		t.Fatalf("expected ErrClientClosed, got %v", err)
	}
	if _, err := Watch(context.Background(), c, command.GetWatch("k")); !errors.Is(err, ErrClientClosed) {
		t.Fatalf("expected ErrClientClosed from watch, got %v", err)
	}
}

func TestFireCancellationIsNotRetried(t *testing.T) {
	testlog.Start(t)
	srv := diceserver.Start(t)
	release := make(chan struct{})
	srv.SetHook(func(channel string, cmd *proto.Command) diceserver.Action {
		if cmd.Cmd == "GET" {
			<-release
		}
		return diceserver.Action{}
	})
	t.Cleanup(func() { close(release) })
	c := newTestClient(t, srv, func(cfg *Config) { cfg.MaxAttempts = 5 })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Get(ctx, "k")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if n := countOp(srv.Commands(), "GET"); n != 1 {
		t.Fatalf("expected no retry after cancellation, got %d attempts", n)
	}
}

// cancelOnWrite cancels the armed context as soon as a request has been written,
// before its reply can be read.
type cancelOnWrite struct {
	net.Conn
	armed *atomic.Pointer[context.CancelFunc]
}

func (c *cancelOnWrite) Write(b []byte) (int, error) {
	n, err := c.Conn.Write(b)
	if cancel := c.armed.Swap(nil); cancel != nil {
		(*cancel)()
	}
	return n, err
}

func TestFireCancelledAfterSendDoesNotLeakReply(t *testing.T) {
	testlog.Start(t)
	srv := diceserver.Start(t)
	var armed atomic.Pointer[context.CancelFunc]
	c := newTestClient(t, srv, func(cfg *Config) {
		cfg.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			var d net.Dialer
			conn, err := d.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			return &cancelOnWrite{Conn: conn, armed: &armed}, nil
		}
	})
	bg := context.Background()
	if err := c.Set(bg, "a", "AAA"); err != nil {
		t.Fatalf("set a: %v", err)
	}
	if err := c.Set(bg, "b", "BBB"); err != nil {
		t.Fatalf("set b: %v", err)
	}

	ctx, cancel := context.WithCancel(bg)
	defer cancel()
	armed.Store(&cancel)
	if _, err := c.Get(ctx, "a"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}

	got, err := c.Get(bg, "b")
	if err != nil || got != "BBB" {
		t.Fatalf("expected BBB for the next call, got %q %v", got, err)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	testlog.Start(t)
	if _, err := New(context.Background(), Config{}); !errors.Is(err, ErrAddressRequired) {
		t.Fatalf("expected ErrAddressRequired, got %v", err)
	}
	cfg := testConfig("127.0.0.1:1")
	cfg.TLS.Enabled = true
	if _, err := New(context.Background(), cfg); !errors.Is(err, ErrTLSCAFileRequired) {
		t.Fatalf("expected ErrTLSCAFileRequired, got %v", err)
	}
	cfg.TLS = TLSConfig{Mutual: true}
	if err := cfg.Validate(); !errors.Is(err, ErrTLSRequired) {
		t.Fatalf("expected ErrTLSRequired, got %v", err)
	}
}
