// Package codec serializes proto messages onto a wire.Wire.
//
// A codec failure means the stream can no longer be trusted, so the wire is closed and
// the caller sees wire.KindCorruptMessage. Nothing here retries.
package codec

import (
	"context"

	"github.com/danmuck/dicewire/internal/protocol/wire"
	"github.com/danmuck/dicewire/proto"
)

type ProtoWire struct {
	wire wire.Wire
}

func New(w wire.Wire) *ProtoWire {
	return &ProtoWire{wire: w}
}

func (p *ProtoWire) Send(ctx context.Context, msg proto.Marshaler) error {
	payload, err := msg.MarshalProto()
	if err != nil {
		p.wire.Close()
		return wire.NewError(wire.KindCorruptMessage, err)
	}
	return p.wire.Send(ctx, payload)
}

// ReceiveInto reads one frame and decodes it into dst.
func (p *ProtoWire) ReceiveInto(ctx context.Context, dst proto.Unmarshaler) error {
	payload, err := p.wire.Receive(ctx)
	if err != nil {
		return err
	}
	if err := dst.UnmarshalProto(payload); err != nil {
		p.wire.Close()
		return wire.NewError(wire.KindCorruptMessage, err)
	}
	return nil
}

func (p *ProtoWire) Close() {
	p.wire.Close()
}

func (p *ProtoWire) Closed() bool {
	return p.wire.Closed()
}

// Receive reads one frame and decodes it into a fresh T.
func Receive[T any, PT interface {
	*T
	proto.Unmarshaler
}](ctx context.Context, p *ProtoWire) (*T, error) {
	msg := PT(new(T))
	if err := p.ReceiveInto(ctx, msg); err != nil {
		return nil, err
	}
	return (*T)(msg), nil
}
