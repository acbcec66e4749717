// Package proto holds the DiceDB wire messages: the Command request, the Result
// envelope, and the response payloads carried in the envelope's slots.
//
// Messages are encoded with the protobuf wire format. Field numbers match the
// server's schema.
package proto

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

type Marshaler interface {
	MarshalProto() ([]byte, error)
}

type Unmarshaler interface {
	UnmarshalProto(b []byte) error
}

type Message interface {
	Marshaler
	Unmarshaler
}

var (
	ErrTruncated        = errors.New("proto: truncated message")
	ErrWireType         = errors.New("proto: unexpected wire type")
	ErrMultiplePayloads = errors.New("proto: more than one response payload")
	ErrUnknownStatus    = errors.New("proto: unknown status")
)

type field struct {
	num protowire.Number
	typ protowire.Type
	raw []byte
}

func walkFields(b []byte, visit func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: tag: %v", ErrTruncated, protowire.ParseError(n))
		}
		b = b[n:]
		m := protowire.ConsumeFieldValue(num, typ, b)
		if m < 0 {
			return fmt.Errorf("%w: field %d: %v", ErrTruncated, num, protowire.ParseError(m))
		}
		if err := visit(field{num: num, typ: typ, raw: b[:m]}); err != nil {
			return err
		}
		b = b[m:]
	}
	return nil
}

func (f field) bytes() ([]byte, error) {
	if f.typ != protowire.BytesType {
		return nil, fmt.Errorf("%w: field %d is %v", ErrWireType, f.num, f.typ)
	}
	v, n := protowire.ConsumeBytes(f.raw)
	if n < 0 {
		return nil, fmt.Errorf("%w: field %d: %v", ErrTruncated, f.num, protowire.ParseError(n))
	}
	return v, nil
}

func (f field) string() (string, error) {
	v, err := f.bytes()
	return string(v), err
}

func (f field) uint64() (uint64, error) {
	if f.typ != protowire.VarintType {
		return 0, fmt.Errorf("%w: field %d is %v", ErrWireType, f.num, f.typ)
	}
	v, n := protowire.ConsumeVarint(f.raw)
	if n < 0 {
		return 0, fmt.Errorf("%w: field %d: %v", ErrTruncated, f.num, protowire.ParseError(n))
	}
	return v, nil
}

func (f field) int64() (int64, error) {
	v, err := f.uint64()
	return int64(v), err
}

func (f field) bool() (bool, error) {
	v, err := f.uint64()
	return v != 0, err
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

// appendRepeatedString keeps empty elements; their position is meaningful.
func appendRepeatedString(b []byte, num protowire.Number, vs []string) []byte {
	for _, v := range vs {
		b = protowire.AppendTag(b, num, protowire.BytesType)
		b = protowire.AppendString(b, v)
	}
	return b
}

func appendUint64(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendInt64(b []byte, num protowire.Number, v int64) []byte {
	return appendUint64(b, num, uint64(v))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	return appendUint64(b, num, 1)
}

// appendMessage always emits the field, so an empty nested message stays present.
func appendMessage(b []byte, num protowire.Number, body []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, body)
}

func decodeString(b []byte, num protowire.Number, dst *string) error {
	return walkFields(b, func(f field) error {
		if f.num != num {
			return nil
		}
		v, err := f.string()
		if err != nil {
			return err
		}
		*dst = v
		return nil
	})
}

func decodeInt64(b []byte, num protowire.Number, dst *int64) error {
	return walkFields(b, func(f field) error {
		if f.num != num {
			return nil
		}
		v, err := f.int64()
		if err != nil {
			return err
		}
		*dst = v
		return nil
	})
}

func decodeBool(b []byte, num protowire.Number, dst *bool) error {
	return walkFields(b, func(f field) error {
		if f.num != num {
			return nil
		}
		v, err := f.bool()
		if err != nil {
			return err
		}
		*dst = v
		return nil
	})
}

func decodeRepeatedString(b []byte, num protowire.Number, dst *[]string) error {
	*dst = nil
	return walkFields(b, func(f field) error {
		if f.num != num {
			return nil
		}
		v, err := f.string()
		if err != nil {
			return err
		}
		*dst = append(*dst, v)
		return nil
	})
}

func skipAll(b []byte) error {
	return walkFields(b, func(field) error { return nil })
}
