package proto

import (
	"fmt"
)

// Slot is the Result field number that carries a response payload.
type Slot int32

const (
	SlotType           Slot = 11
	SlotPing           Slot = 12
	SlotEcho           Slot = 13
	SlotHandshake      Slot = 14
	SlotExists         Slot = 15
	SlotGet            Slot = 16
	SlotSet            Slot = 17
	SlotDel            Slot = 18
	SlotKeys           Slot = 19
	SlotGetDel         Slot = 20
	SlotGetEx          Slot = 21
	SlotGetSet         Slot = 22
	SlotIncr           Slot = 23
	SlotDecr           Slot = 24
	SlotIncrBy         Slot = 25
	SlotDecrBy         Slot = 26
	SlotFlushDB        Slot = 27
	SlotExpire         Slot = 28
	SlotExpireAt       Slot = 29
	SlotExpireTime     Slot = 30
	SlotTTL            Slot = 31
	SlotGetWatch       Slot = 32
	SlotUnwatch        Slot = 33
	SlotHGet           Slot = 34
	SlotHSet           Slot = 35
	SlotHGetAll        Slot = 36
	SlotHGetWatch      Slot = 37
	SlotHGetAllWatch   Slot = 38
	SlotZAdd           Slot = 39
	SlotZCount         Slot = 40
	SlotZRange         Slot = 41
	SlotZPopMax        Slot = 42
	SlotZRem           Slot = 43
	SlotZPopMin        Slot = 44
	SlotZRank          Slot = 45
	SlotZCard          Slot = 46
	SlotZRangeWatch    Slot = 47
	SlotZCountWatch    Slot = 48
	SlotZCardWatch     Slot = 49
	SlotZRankWatch     Slot = 50
	firstSlot               = SlotType
	lastSlot                = SlotZRankWatch
)

type slotEntry struct {
	name string
	new  func() Response
}

// slotTable is the single mapping between envelope field numbers and payload types.
var slotTable = map[Slot]slotEntry{
	SlotType:         {"TYPERes", func() Response { return new(TypeRes) }},
	SlotPing:         {"PINGRes", func() Response { return new(PingRes) }},
	SlotEcho:         {"ECHORes", func() Response { return new(EchoRes) }},
	SlotHandshake:    {"HANDSHAKERes", func() Response { return new(HandshakeRes) }},
	SlotExists:       {"EXISTSRes", func() Response { return new(ExistsRes) }},
	SlotGet:          {"GETRes", func() Response { return new(GetRes) }},
	SlotSet:          {"SETRes", func() Response { return new(SetRes) }},
	SlotDel:          {"DELRes", func() Response { return new(DelRes) }},
	SlotKeys:         {"KEYSRes", func() Response { return new(KeysRes) }},
	SlotGetDel:       {"GETDELRes", func() Response { return new(GetDelRes) }},
	SlotGetEx:        {"GETEXRes", func() Response { return new(GetExRes) }},
	SlotGetSet:       {"GETSETRes", func() Response { return new(GetSetRes) }},
	SlotIncr:         {"INCRRes", func() Response { return new(IncrRes) }},
	SlotDecr:         {"DECRRes", func() Response { return new(DecrRes) }},
	SlotIncrBy:       {"INCRBYRes", func() Response { return new(IncrByRes) }},
	SlotDecrBy:       {"DECRBYRes", func() Response { return new(DecrByRes) }},
	SlotFlushDB:      {"FLUSHDBRes", func() Response { return new(FlushDBRes) }},
	SlotExpire:       {"EXPIRERes", func() Response { return new(ExpireRes) }},
	SlotExpireAt:     {"EXPIREATRes", func() Response { return new(ExpireAtRes) }},
	SlotExpireTime:   {"EXPIRETIMERes", func() Response { return new(ExpireTimeRes) }},
	SlotTTL:          {"TTLRes", func() Response { return new(TTLRes) }},
	SlotGetWatch:     {"GETWATCHRes", func() Response { return new(GetWatchRes) }},
	SlotUnwatch:      {"UNWATCHRes", func() Response { return new(UnwatchRes) }},
	SlotHGet:         {"HGETRes", func() Response { return new(HGetRes) }},
	SlotHSet:         {"HSETRes", func() Response { return new(HSetRes) }},
	SlotHGetAll:      {"HGETALLRes", func() Response { return new(HGetAllRes) }},
	SlotHGetWatch:    {"HGETWATCHRes", func() Response { return new(HGetWatchRes) }},
	SlotHGetAllWatch: {"HGETALLWATCHRes", func() Response { return new(HGetAllWatchRes) }},
	SlotZAdd:         {"ZADDRes", func() Response { return new(ZAddRes) }},
	SlotZCount:       {"ZCOUNTRes", func() Response { return new(ZCountRes) }},
	SlotZRange:       {"ZRANGERes", func() Response { return new(ZRangeRes) }},
	SlotZPopMax:      {"ZPOPMAXRes", func() Response { return new(ZPopMaxRes) }},
	SlotZRem:         {"ZREMRes", func() Response { return new(ZRemRes) }},
	SlotZPopMin:      {"ZPOPMINRes", func() Response { return new(ZPopMinRes) }},
	SlotZRank:        {"ZRANKRes", func() Response { return new(ZRankRes) }},
	SlotZCard:        {"ZCARDRes", func() Response { return new(ZCardRes) }},
	SlotZRangeWatch:  {"ZRANGEWATCHRes", func() Response { return new(ZRangeWatchRes) }},
	SlotZCountWatch:  {"ZCOUNTWATCHRes", func() Response { return new(ZCountWatchRes) }},
	SlotZCardWatch:   {"ZCARDWATCHRes", func() Response { return new(ZCardWatchRes) }},
	SlotZRankWatch:   {"ZRANKWATCHRes", func() Response { return new(ZRankWatchRes) }},
}

func (s Slot) String() string {
	if e, ok := slotTable[s]; ok {
		return e.name
	}
	return fmt.Sprintf("Slot(%d)", int32(s))
}

func (s Slot) Valid() bool {
	_, ok := slotTable[s]
	return ok
}

// NewResponse returns an empty payload for the slot, or false for a field number
// outside the table.
func NewResponse(s Slot) (Response, bool) {
	e, ok := slotTable[s]
	if !ok {
		return nil, false
	}
	return e.new(), true
}

// Slots lists every known slot in field-number order.
func Slots() []Slot {
	out := make([]Slot, 0, len(slotTable))
	for s := firstSlot; s <= lastSlot; s++ {
		if _, ok := slotTable[s]; ok {
			out = append(out, s)
		}
	}
	return out
}
