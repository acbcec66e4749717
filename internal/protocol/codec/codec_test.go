package codec

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/danmuck/dicewire/internal/protocol/frame"
	"github.com/danmuck/dicewire/internal/protocol/wire"
	"github.com/danmuck/dicewire/internal/testutil/testlog"
	"github.com/danmuck/dicewire/proto"
)

func newPair(t *testing.T) (*ProtoWire, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() { _ = server.Close() })
	cfg := wire.DefaultConfig()
	cfg.ReadTimeout = 2 * time.Second
	cfg.WriteTimeout = 2 * time.Second
	p := New(wire.New(client, cfg))
	t.Cleanup(p.Close)
	return p, server
}

func TestSendEncodesCommand(t *testing.T) {
	testlog.Start(t)
	p, server := newPair(t)

	go func() {
		_ = p.Send(context.Background(), &proto.Command{Cmd: "GET", Args: []string{"k"}})
	}()

	payload, err := frame.ReadFrame(server, frame.DefaultLimits())
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var got proto.Command
	if err := got.UnmarshalProto(payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Cmd != "GET" || len(got.Args) != 1 || got.Args[0] != "k" {
		t.Fatalf("unexpected command: %+v", got)
	}
}

func TestReceiveDecodesResult(t *testing.T) {
	testlog.Start(t)
	p, server := newPair(t)

	go func() {
		body, _ := (&proto.Result{Status: proto.StatusOK, Response: &proto.GetRes{Value: "v"}}).MarshalProto()
		_ = frame.WriteFrame(server, body, frame.DefaultLimits())
	}()

	res, err := Receive[proto.Result](context.Background(), p)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	get, ok := res.Response.(*proto.GetRes)
	if !ok || get.Value != "v" {
		t.Fatalf("unexpected response: %#v", res.Response)
	}
}

func TestDecodeFailureClosesWire(t *testing.T) {
	testlog.Start(t)
	p, server := newPair(t)

	go func() {
		// varint tag with no value
		_ = frame.WriteFrame(server, []byte{0x08}, frame.DefaultLimits())
	}()

	_, err := Receive[proto.Result](context.Background(), p)
	if !wire.IsKind(err, wire.KindCorruptMessage) {
		t.Fatalf("expected corrupt message, got %v", err)
	}
	if !errors.Is(err, proto.ErrTruncated) {
		t.Fatalf("expected decode cause to be preserved, got %v", err)
	}
	if !p.Closed() {
		t.Fatalf("expected wire to close after a decode failure")
	}
}

type failingMessage struct{}

func (failingMessage) MarshalProto() ([]byte, error) { return nil, errors.New("cannot encode") }

func TestEncodeFailureClosesWire(t *testing.T) {
	testlog.Start(t)
	p, _ := newPair(t)

	err := p.Send(context.Background(), failingMessage{})
	if !wire.IsKind(err, wire.KindCorruptMessage) {
		t.Fatalf("expected corrupt message, got %v", err)
	}
	if !p.Closed() {
		t.Fatalf("expected wire to close after an encode failure")
	}
}
