package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danmuck/dicewire/command"
	"github.com/danmuck/dicewire/internal/protocol/wire"
	"github.com/danmuck/dicewire/internal/testutil/diceserver"
	"github.com/danmuck/dicewire/internal/testutil/testlog"
	"github.com/danmuck/dicewire/proto"
)

func nextWithin[U proto.Response](t *testing.T, sub *Subscription[U], d time.Duration) bool {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return sub.Next(ctx)
}

func TestWatchSkipsAckAndStreamsUpdates(t *testing.T) {
	testlog.Start(t)
	srv := diceserver.Start(t)
	c := newTestClient(t, srv, nil)
	ctx := context.Background()
	if err := c.Set(ctx, "k", "v0"); err != nil {
		t.Fatalf("set: %v", err)
	}

	sub, err := Watch(ctx, c, command.GetWatch("k"))
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if c.WatchState() != StateStreaming {
		t.Fatalf("expected streaming watch state, got %s", c.WatchState())
	}
	if !nextWithin(t, sub, 2*time.Second) {
		t.Fatalf("expected initial snapshot, err=%v", sub.Err())
	}
	if sub.Value().Value != "v0" {
		t.Fatalf("expected v0 snapshot, got %q", sub.Value().Value)
	}
	if sub.Fingerprint() == 0 {
		t.Fatal("expected fingerprint from ack")
	}

	if err := c.Set(ctx, "k", "v1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !nextWithin(t, sub, 2*time.Second) {
		t.Fatalf("expected pushed update, err=%v", sub.Err())
	}
	if sub.Value().Value != "v1" {
		t.Fatalf("expected v1, got %q", sub.Value().Value)
	}

	sub.Close()
	if sub.Next(ctx) {
		t.Fatal("expected closed subscription to stop")
	}
	if sub.Err() != nil {
		t.Fatalf("expected nil error after Close, got %v", sub.Err())
	}
	if c.WatchState() != StateReady {
		t.Fatalf("expected ready watch state, got %s", c.WatchState())
	}
}

func TestWatchEndsWhenServerHangsUpAndResubscribes(t *testing.T) {
	testlog.Start(t)
	srv := diceserver.Start(t)
	c := newTestClient(t, srv, nil)
	ctx := context.Background()

	sub, err := Watch(ctx, c, command.ZCardWatch("board"))
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if !nextWithin(t, sub, 2*time.Second) || sub.Value().Count != 0 {
		t.Fatalf("expected empty cardinality snapshot, err=%v", sub.Err())
	}

	srv.CloseWatchers()
	if nextWithin(t, sub, 2*time.Second) {
		t.Fatal("expected stream to end")
	}
	if !errors.Is(sub.Err(), wire.ErrEmpty) {
		t.Fatalf("expected empty-read error, got %v", sub.Err())
	}
	if sub.Next(ctx) {
		t.Fatal("ended subscription must stay ended")
	}

	again, err := Watch(ctx, c, command.ZCardWatch("board"))
	if err != nil {
		t.Fatalf("resubscribe: %v", err)
	}
	defer again.Close()
	if !nextWithin(t, again, 2*time.Second) {
		t.Fatalf("expected snapshot after resubscribe, err=%v", again.Err())
	}
	hs := srv.Handshakes()
	if len(hs) != 3 || hs[2].Channel != "watch" {
		t.Fatalf("expected watch channel re-handshake, got %+v", hs)
	}
}

func TestWatchRejectsSecondSubscriber(t *testing.T) {
	testlog.Start(t)
	srv := diceserver.Start(t)
	c := newTestClient(t, srv, nil)
	ctx := context.Background()

	sub, err := Watch(ctx, c, command.GetWatch("a"))
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if _, err := Watch(ctx, c, command.GetWatch("b")); !errors.Is(err, ErrWatchActive) {
		t.Fatalf("expected ErrWatchActive, got %v", err)
	}
	sub.Close()

	next, err := Watch(ctx, c, command.GetWatch("b"))
	if err != nil {
		t.Fatalf("watch after close: %v", err)
	}
	next.Close()
}

func TestWatchContextCancellationEndsStream(t *testing.T) {
	testlog.Start(t)
	srv := diceserver.Start(t)
	c := newTestClient(t, srv, nil)

	ctx, cancel := context.WithCancelCause(context.Background())
	sub, err := Watch(ctx, c, command.GetWatch("k"))
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if !nextWithin(t, sub, 2*time.Second) {
		t.Fatalf("expected snapshot, err=%v", sub.Err())
	}

	shutdown := errors.New("shutting down")
	done := make(chan bool, 1)
	go func() { done <- sub.Next(context.Background()) }()
	time.Sleep(20 * time.Millisecond)
	cancel(shutdown)

	select {
	case got := <-done:
		if got {
			t.Fatal("expected Next to report the end of the stream")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Next did not unblock after cancellation")
	}
	if !errors.Is(sub.Err(), shutdown) {
		t.Fatalf("expected cancellation cause, got %v", sub.Err())
	}
}

func TestWatchServerErrorEndsStream(t *testing.T) {
	testlog.Start(t)
	srv := diceserver.Start(t)
	c := newTestClient(t, srv, nil)

	sub, err := Watch(context.Background(), c, command.HGetWatch("h", "f"))
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if nextWithin(t, sub, 2*time.Second) {
		t.Fatal("expected unsupported watch to end the stream")
	}
	var cmdErr *CommandError
	if !errors.As(sub.Err(), &cmdErr) || cmdErr.Message != "unknown command 'HGET.WATCH'" {
		t.Fatalf("expected server error, got %v", sub.Err())
	}
}

func TestWatchMismatchedPushEndsStream(t *testing.T) {
	testlog.Start(t)
	srv := diceserver.Start(t)
	srv.SetHook(func(channel string, cmd *proto.Command) diceserver.Action {
		if cmd.Cmd == "GET.WATCH" {
			return diceserver.Action{Result: &proto.Result{Response: &proto.ZCardRes{Count: 1}}}
		}
		return diceserver.Action{}
	})
	c := newTestClient(t, srv, nil)

	sub, err := Watch(context.Background(), c, command.GetWatch("k"))
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if nextWithin(t, sub, 2*time.Second) {
		t.Fatal("expected mismatch to end the stream")
	}
	var mismatch *MismatchError
	if !errors.As(sub.Err(), &mismatch) || mismatch.Expected != "GetRes" {
		t.Fatalf("expected mismatch error, got %v", sub.Err())
	}
}

func TestWatchAllYieldsSortedSetUpdates(t *testing.T) {
	testlog.Start(t)
	srv := diceserver.Start(t)
	c := newTestClient(t, srv, nil)
	ctx := context.Background()

	if _, err := Fire(ctx, c, command.ZAdd("board", []command.ZMember{{Score: 10, Member: "ada"}})); err != nil {
		t.Fatalf("zadd: %v", err)
	}
	sub, err := Watch(ctx, c, command.ZRangeWatch("board", 0, 10, command.ByRank))
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	wctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var sizes []int
	for update := range sub.All(wctx) {
		sizes = append(sizes, len(update.Elements))
		if len(sizes) == 2 {
			break
		}
		if _, err := Fire(ctx, c, command.ZAdd("board", []command.ZMember{{Score: 5, Member: "bob"}})); err != nil {
			t.Fatalf("zadd: %v", err)
		}
	}
	if len(sizes) != 2 || sizes[0] != 1 || sizes[1] != 2 {
		t.Fatalf("unexpected update sizes %v (err=%v)", sizes, sub.Err())
	}
	if sub.Err() != nil {
		t.Fatalf("expected clean stop after break, got %v", sub.Err())
	}

	rank, err := Fire(ctx, c, command.ZRange("board", 0, 0, command.ByRank))
	if err != nil {
		t.Fatalf("zrange: %v", err)
	}
	if len(rank.Elements) != 1 || rank.Elements[0].Member != "bob" || rank.Elements[0].Rank != 0 {
		t.Fatalf("unexpected lowest element %+v", rank.Elements)
	}
}

func TestWatchAfterClientCloseUnblocksNext(t *testing.T) {
	testlog.Start(t)
	srv := diceserver.Start(t)
	c := newTestClient(t, srv, nil)

	sub, err := Watch(context.Background(), c, command.GetWatch("k"))
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if !nextWithin(t, sub, 2*time.Second) {
		t.Fatalf("expected snapshot, err=%v", sub.Err())
	}
	c.Close()
	if nextWithin(t, sub, 2*time.Second) {
		t.Fatal("expected stream to end with the client")
	}
	if sub.Err() == nil {
		t.Fatal("expected a receive error after the client closed")
	}
	if c.WatchState() != StateClosed {
		t.Fatalf("expected closed watch state, got %s", c.WatchState())
	}
}
