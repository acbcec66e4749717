package proto

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// Response is a payload carried in one Result slot.
type Response interface {
	Message
	Slot() Slot
	isResponse()
}

// WatchAck marks the payloads a server sends to confirm a subscription. They carry
// no data; push updates arrive in the base command's slot.
type WatchAck interface {
	Response
	watchAck()
}

type unitPayload struct{}

func (unitPayload) MarshalProto() ([]byte, error) { return nil, nil }
func (unitPayload) UnmarshalProto(b []byte) error { return skipAll(b) }
func (unitPayload) isResponse()                   {}

type ackPayload struct{ unitPayload }

func (ackPayload) watchAck() {}

type TypeRes struct{ Type string }

func (*TypeRes) Slot() Slot                      { return SlotType }
func (*TypeRes) isResponse()                     {}
func (r *TypeRes) MarshalProto() ([]byte, error) { return appendString(nil, 1, r.Type), nil }
func (r *TypeRes) UnmarshalProto(b []byte) error { *r = TypeRes{}; return decodeString(b, 1, &r.Type) }

type PingRes struct{ Message string }

func (*PingRes) Slot() Slot                      { return SlotPing }
func (*PingRes) isResponse()                     {}
func (r *PingRes) MarshalProto() ([]byte, error) { return appendString(nil, 1, r.Message), nil }
func (r *PingRes) UnmarshalProto(b []byte) error { *r = PingRes{}; return decodeString(b, 1, &r.Message) }

type EchoRes struct{ Message string }

func (*EchoRes) Slot() Slot                      { return SlotEcho }
func (*EchoRes) isResponse()                     {}
func (r *EchoRes) MarshalProto() ([]byte, error) { return appendString(nil, 1, r.Message), nil }
func (r *EchoRes) UnmarshalProto(b []byte) error { *r = EchoRes{}; return decodeString(b, 1, &r.Message) }

type HandshakeRes struct{ unitPayload }

func (*HandshakeRes) Slot() Slot { return SlotHandshake }

type ExistsRes struct{ Count int64 }

func (*ExistsRes) Slot() Slot                      { return SlotExists }
func (*ExistsRes) isResponse()                     {}
func (r *ExistsRes) MarshalProto() ([]byte, error) { return appendInt64(nil, 1, r.Count), nil }
func (r *ExistsRes) UnmarshalProto(b []byte) error { *r = ExistsRes{}; return decodeInt64(b, 1, &r.Count) }

type GetRes struct{ Value string }

func (*GetRes) Slot() Slot                      { return SlotGet }
func (*GetRes) isResponse()                     {}
func (r *GetRes) MarshalProto() ([]byte, error) { return appendString(nil, 1, r.Value), nil }
func (r *GetRes) UnmarshalProto(b []byte) error { *r = GetRes{}; return decodeString(b, 1, &r.Value) }

type SetRes struct{ unitPayload }

func (*SetRes) Slot() Slot { return SlotSet }

type DelRes struct{ Count int64 }

func (*DelRes) Slot() Slot                      { return SlotDel }
func (*DelRes) isResponse()                     {}
func (r *DelRes) MarshalProto() ([]byte, error) { return appendInt64(nil, 1, r.Count), nil }
func (r *DelRes) UnmarshalProto(b []byte) error { *r = DelRes{}; return decodeInt64(b, 1, &r.Count) }

type KeysRes struct{ Keys []string }

func (*KeysRes) Slot() Slot                      { return SlotKeys }
func (*KeysRes) isResponse()                     {}
func (r *KeysRes) MarshalProto() ([]byte, error) { return appendRepeatedString(nil, 1, r.Keys), nil }
func (r *KeysRes) UnmarshalProto(b []byte) error { return decodeRepeatedString(b, 1, &r.Keys) }

// optionalValue distinguishes a missing key (Found false) from an empty string.
type optionalValue struct {
	Value string
	Found bool
}

func (v *optionalValue) marshal() []byte {
	if !v.Found {
		return nil
	}
	b := protowire.AppendTag(nil, 1, protowire.BytesType)
	return protowire.AppendString(b, v.Value)
}

func (v *optionalValue) unmarshal(b []byte) error {
	*v = optionalValue{}
	return walkFields(b, func(f field) error {
		if f.num != 1 {
			return nil
		}
		s, err := f.string()
		if err != nil {
			return err
		}
		v.Value, v.Found = s, true
		return nil
	})
}

type GetDelRes struct{ optionalValue }

func (*GetDelRes) Slot() Slot                      { return SlotGetDel }
func (*GetDelRes) isResponse()                     {}
func (r *GetDelRes) MarshalProto() ([]byte, error) { return r.marshal(), nil }
func (r *GetDelRes) UnmarshalProto(b []byte) error { return r.unmarshal(b) }

type GetExRes struct{ optionalValue }

func (*GetExRes) Slot() Slot                      { return SlotGetEx }
func (*GetExRes) isResponse()                     {}
func (r *GetExRes) MarshalProto() ([]byte, error) { return r.marshal(), nil }
func (r *GetExRes) UnmarshalProto(b []byte) error { return r.unmarshal(b) }

type GetSetRes struct{ Value string }

func (*GetSetRes) Slot() Slot                      { return SlotGetSet }
func (*GetSetRes) isResponse()                     {}
func (r *GetSetRes) MarshalProto() ([]byte, error) { return appendString(nil, 1, r.Value), nil }
func (r *GetSetRes) UnmarshalProto(b []byte) error { *r = GetSetRes{}; return decodeString(b, 1, &r.Value) }

type IncrRes struct{ Value int64 }

func (*IncrRes) Slot() Slot                      { return SlotIncr }
func (*IncrRes) isResponse()                     {}
func (r *IncrRes) MarshalProto() ([]byte, error) { return appendInt64(nil, 1, r.Value), nil }
func (r *IncrRes) UnmarshalProto(b []byte) error { *r = IncrRes{}; return decodeInt64(b, 1, &r.Value) }

type DecrRes struct{ Value int64 }

func (*DecrRes) Slot() Slot                      { return SlotDecr }
func (*DecrRes) isResponse()                     {}
func (r *DecrRes) MarshalProto() ([]byte, error) { return appendInt64(nil, 1, r.Value), nil }
func (r *DecrRes) UnmarshalProto(b []byte) error { *r = DecrRes{}; return decodeInt64(b, 1, &r.Value) }

type IncrByRes struct{ Value int64 }

func (*IncrByRes) Slot() Slot                      { return SlotIncrBy }
func (*IncrByRes) isResponse()                     {}
func (r *IncrByRes) MarshalProto() ([]byte, error) { return appendInt64(nil, 1, r.Value), nil }
func (r *IncrByRes) UnmarshalProto(b []byte) error { *r = IncrByRes{}; return decodeInt64(b, 1, &r.Value) }

type DecrByRes struct{ Value int64 }

func (*DecrByRes) Slot() Slot                      { return SlotDecrBy }
func (*DecrByRes) isResponse()                     {}
func (r *DecrByRes) MarshalProto() ([]byte, error) { return appendInt64(nil, 1, r.Value), nil }
func (r *DecrByRes) UnmarshalProto(b []byte) error { *r = DecrByRes{}; return decodeInt64(b, 1, &r.Value) }

type FlushDBRes struct{ unitPayload }

func (*FlushDBRes) Slot() Slot { return SlotFlushDB }

type ExpireRes struct{ IsChanged bool }

func (*ExpireRes) Slot() Slot                      { return SlotExpire }
func (*ExpireRes) isResponse()                     {}
func (r *ExpireRes) MarshalProto() ([]byte, error) { return appendBool(nil, 1, r.IsChanged), nil }
func (r *ExpireRes) UnmarshalProto(b []byte) error { *r = ExpireRes{}; return decodeBool(b, 1, &r.IsChanged) }

type ExpireAtRes struct{ IsChanged bool }

func (*ExpireAtRes) Slot() Slot                      { return SlotExpireAt }
func (*ExpireAtRes) isResponse()                     {}
func (r *ExpireAtRes) MarshalProto() ([]byte, error) { return appendBool(nil, 1, r.IsChanged), nil }
func (r *ExpireAtRes) UnmarshalProto(b []byte) error {
	*r = ExpireAtRes{}
	return decodeBool(b, 1, &r.IsChanged)
}

// ExpireTimeRes reports -1 for a key without expiry and -2 for a missing key; an
// absent field decodes as -2.
type ExpireTimeRes struct{ UnixSec int64 }

func (*ExpireTimeRes) Slot() Slot  { return SlotExpireTime }
func (*ExpireTimeRes) isResponse() {}
func (r *ExpireTimeRes) MarshalProto() ([]byte, error) {
	return appendPresentInt64(nil, 1, r.UnixSec, missingKeyTTL), nil
}
func (r *ExpireTimeRes) UnmarshalProto(b []byte) error {
	r.UnixSec = missingKeyTTL
	return decodeInt64(b, 1, &r.UnixSec)
}

// TTLRes uses the same -1/-2 convention as ExpireTimeRes.
type TTLRes struct{ Seconds int64 }

func (*TTLRes) Slot() Slot  { return SlotTTL }
func (*TTLRes) isResponse() {}
func (r *TTLRes) MarshalProto() ([]byte, error) {
	return appendPresentInt64(nil, 1, r.Seconds, missingKeyTTL), nil
}
func (r *TTLRes) UnmarshalProto(b []byte) error {
	r.Seconds = missingKeyTTL
	return decodeInt64(b, 1, &r.Seconds)
}

type GetWatchRes struct{ ackPayload }

func (*GetWatchRes) Slot() Slot { return SlotGetWatch }

type UnwatchRes struct{ unitPayload }

func (*UnwatchRes) Slot() Slot { return SlotUnwatch }

type HGetRes struct{ Value string }

func (*HGetRes) Slot() Slot                      { return SlotHGet }
func (*HGetRes) isResponse()                     {}
func (r *HGetRes) MarshalProto() ([]byte, error) { return appendString(nil, 1, r.Value), nil }
func (r *HGetRes) UnmarshalProto(b []byte) error { *r = HGetRes{}; return decodeString(b, 1, &r.Value) }

type HSetRes struct{ Count int64 }

func (*HSetRes) Slot() Slot                      { return SlotHSet }
func (*HSetRes) isResponse()                     {}
func (r *HSetRes) MarshalProto() ([]byte, error) { return appendInt64(nil, 1, r.Count), nil }
func (r *HSetRes) UnmarshalProto(b []byte) error { *r = HSetRes{}; return decodeInt64(b, 1, &r.Count) }

type HGetAllRes struct{ Elements []HElement }

func (*HGetAllRes) Slot() Slot                      { return SlotHGetAll }
func (*HGetAllRes) isResponse()                     {}
func (r *HGetAllRes) MarshalProto() ([]byte, error) { return appendElements(nil, 1, r.Elements) }
func (r *HGetAllRes) UnmarshalProto(b []byte) error { return decodeElements(b, 1, &r.Elements) }

// Map flattens the elements; a repeated key keeps its last value.
func (r *HGetAllRes) Map() map[string]string {
	out := make(map[string]string, len(r.Elements))
	for _, e := range r.Elements {
		out[e.Key] = e.Value
	}
	return out
}

type HGetWatchRes struct{ ackPayload }

func (*HGetWatchRes) Slot() Slot { return SlotHGetWatch }

type HGetAllWatchRes struct{ ackPayload }

func (*HGetAllWatchRes) Slot() Slot { return SlotHGetAllWatch }

type ZAddRes struct{ Count int64 }

func (*ZAddRes) Slot() Slot                      { return SlotZAdd }
func (*ZAddRes) isResponse()                     {}
func (r *ZAddRes) MarshalProto() ([]byte, error) { return appendInt64(nil, 1, r.Count), nil }
func (r *ZAddRes) UnmarshalProto(b []byte) error { *r = ZAddRes{}; return decodeInt64(b, 1, &r.Count) }

type ZCountRes struct{ Count int64 }

func (*ZCountRes) Slot() Slot                      { return SlotZCount }
func (*ZCountRes) isResponse()                     {}
func (r *ZCountRes) MarshalProto() ([]byte, error) { return appendInt64(nil, 1, r.Count), nil }
func (r *ZCountRes) UnmarshalProto(b []byte) error { *r = ZCountRes{}; return decodeInt64(b, 1, &r.Count) }

type ZRangeRes struct{ Elements []ZElement }

func (*ZRangeRes) Slot() Slot                      { return SlotZRange }
func (*ZRangeRes) isResponse()                     {}
func (r *ZRangeRes) MarshalProto() ([]byte, error) { return appendElements(nil, 1, r.Elements) }
func (r *ZRangeRes) UnmarshalProto(b []byte) error { return decodeElements(b, 1, &r.Elements) }

type ZPopMaxRes struct{ Elements []ZElement }

func (*ZPopMaxRes) Slot() Slot                      { return SlotZPopMax }
func (*ZPopMaxRes) isResponse()                     {}
func (r *ZPopMaxRes) MarshalProto() ([]byte, error) { return appendElements(nil, 1, r.Elements) }
func (r *ZPopMaxRes) UnmarshalProto(b []byte) error { return decodeElements(b, 1, &r.Elements) }

type ZRemRes struct{ Count int64 }

func (*ZRemRes) Slot() Slot                      { return SlotZRem }
func (*ZRemRes) isResponse()                     {}
func (r *ZRemRes) MarshalProto() ([]byte, error) { return appendInt64(nil, 1, r.Count), nil }
func (r *ZRemRes) UnmarshalProto(b []byte) error { *r = ZRemRes{}; return decodeInt64(b, 1, &r.Count) }

type ZPopMinRes struct{ Elements []ZElement }

func (*ZPopMinRes) Slot() Slot                      { return SlotZPopMin }
func (*ZPopMinRes) isResponse()                     {}
func (r *ZPopMinRes) MarshalProto() ([]byte, error) { return appendElements(nil, 1, r.Elements) }
func (r *ZPopMinRes) UnmarshalProto(b []byte) error { return decodeElements(b, 1, &r.Elements) }

// ZRankRes carries its element in field 2. A missing member leaves Found false.
type ZRankRes struct {
	Element ZElement
	Found   bool
}

func (*ZRankRes) Slot() Slot  { return SlotZRank }
func (*ZRankRes) isResponse() {}
func (r *ZRankRes) MarshalProto() ([]byte, error) {
	if !r.Found {
		return nil, nil
	}
	body, err := r.Element.MarshalProto()
	if err != nil {
		return nil, err
	}
	return appendMessage(nil, 2, body), nil
}
func (r *ZRankRes) UnmarshalProto(b []byte) error {
	*r = ZRankRes{}
	return walkFields(b, func(f field) error {
		if f.num != 2 {
			return nil
		}
		body, err := f.bytes()
		if err != nil {
			return err
		}
		r.Found = true
		return r.Element.UnmarshalProto(body)
	})
}

type ZCardRes struct{ Count int64 }

func (*ZCardRes) Slot() Slot                      { return SlotZCard }
func (*ZCardRes) isResponse()                     {}
func (r *ZCardRes) MarshalProto() ([]byte, error) { return appendInt64(nil, 1, r.Count), nil }
func (r *ZCardRes) UnmarshalProto(b []byte) error { *r = ZCardRes{}; return decodeInt64(b, 1, &r.Count) }

type ZRangeWatchRes struct{ ackPayload }

func (*ZRangeWatchRes) Slot() Slot { return SlotZRangeWatch }

type ZCountWatchRes struct{ ackPayload }

func (*ZCountWatchRes) Slot() Slot { return SlotZCountWatch }

type ZCardWatchRes struct{ ackPayload }

func (*ZCardWatchRes) Slot() Slot { return SlotZCardWatch }

type ZRankWatchRes struct{ ackPayload }

func (*ZRankWatchRes) Slot() Slot { return SlotZRankWatch }

const missingKeyTTL = -2

// appendPresentInt64 writes v unless it equals the decoder's default, so zero
// survives a round trip.
func appendPresentInt64(b []byte, num protowire.Number, v, def int64) []byte {
	if v == def {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}
