package proto

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// ZElement is one sorted-set entry. Rank is only meaningful in rank-bearing replies.
type ZElement struct {
	Score  int64
	Member string
	Rank   int64
}

func (e *ZElement) MarshalProto() ([]byte, error) {
	b := appendInt64(nil, 1, e.Score)
	b = appendString(b, 2, e.Member)
	return appendInt64(b, 3, e.Rank), nil
}

func (e *ZElement) UnmarshalProto(b []byte) error {
	*e = ZElement{}
	return walkFields(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			e.Score, err = f.int64()
		case 2:
			e.Member, err = f.string()
		case 3:
			e.Rank, err = f.int64()
		}
		return err
	})
}

type HElement struct {
	Key   string
	Value string
}

func (e *HElement) MarshalProto() ([]byte, error) {
	b := appendString(nil, 1, e.Key)
	return appendString(b, 2, e.Value), nil
}

func (e *HElement) UnmarshalProto(b []byte) error {
	*e = HElement{}
	return walkFields(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			e.Key, err = f.string()
		case 2:
			e.Value, err = f.string()
		}
		return err
	})
}

func appendElements[E any, PE interface {
	*E
	Marshaler
}](b []byte, num protowire.Number, elems []E) ([]byte, error) {
	for i := range elems {
		body, err := PE(&elems[i]).MarshalProto()
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, num, body)
	}
	return b, nil
}

func decodeElements[E any, PE interface {
	*E
	Unmarshaler
}](b []byte, num protowire.Number, dst *[]E) error {
	*dst = nil
	return walkFields(b, func(f field) error {
		if f.num != num {
			return nil
		}
		body, err := f.bytes()
		if err != nil {
			return err
		}
		var e E
		if err := PE(&e).UnmarshalProto(body); err != nil {
			return err
		}
		*dst = append(*dst, e)
		return nil
	})
}
