package proto

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

type Status int32

const (
	StatusOK  Status = 0
	StatusERR Status = 1
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusERR:
		return "ERR"
	default:
		return fmt.Sprintf("Status(%d)", int32(s))
	}
}

// Result is the reply envelope. At most one payload slot is populated; Response is
// nil when the server sent none.
type Result struct {
	Status        Status
	Message       string
	Fingerprint64 uint64
	Response      Response
}

func (r *Result) OK() bool {
	return r.Status == StatusOK
}

func (r *Result) MarshalProto() ([]byte, error) {
	b := appendUint64(nil, 1, uint64(r.Status))
	b = appendString(b, 2, r.Message)
	b = appendUint64(b, 3, r.Fingerprint64)
	if r.Response != nil {
		body, err := r.Response.MarshalProto()
		if err != nil {
			return nil, fmt.Errorf("proto: marshal %s: %w", r.Response.Slot(), err)
		}
		b = appendMessage(b, protowire.Number(r.Response.Slot()), body)
	}
	return b, nil
}

// UnmarshalProto rejects envelopes with two different populated slots. Repeated
// occurrences of the same slot merge, as protobuf embedded messages do. Unknown slots
// are skipped so a newer server does not break the stream.
func (r *Result) UnmarshalProto(b []byte) error {
	*r = Result{}
	var (
		slot Slot
		body []byte
	)
	err := walkFields(b, func(f field) error {
		switch {
		case f.num == 1:
			v, err := f.uint64()
			if err != nil {
				return err
			}
			r.Status = Status(v)
			if r.Status != StatusOK && r.Status != StatusERR {
				return fmt.Errorf("%w: %d", ErrUnknownStatus, v)
			}
		case f.num == 2:
			v, err := f.string()
			if err != nil {
				return err
			}
			r.Message = v
		case f.num == 3:
			v, err := f.uint64()
			if err != nil {
				return err
			}
			r.Fingerprint64 = v
		default:
			next := Slot(f.num)
			if !next.Valid() {
				return nil
			}
			if slot != 0 && slot != next {
				return fmt.Errorf("%w: %s and %s", ErrMultiplePayloads, slot, next)
			}
			v, err := f.bytes()
			if err != nil {
				return err
			}
			slot = next
			body = append(body, v...)
		}
		return nil
	})
	if err != nil || slot == 0 {
		return err
	}
	resp, _ := NewResponse(slot)
	if err := resp.UnmarshalProto(body); err != nil {
		return fmt.Errorf("proto: decode %s: %w", slot, err)
	}
	r.Response = resp
	return nil
}
