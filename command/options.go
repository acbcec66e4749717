package command

import (
	"time"
)

type SetCondition string

const (
	IfNotExists SetCondition = "NX"
	IfExists    SetCondition = "XX"
)

type ExpireType string

const (
	ExpireSeconds      ExpireType = "EX"
	ExpireMillis       ExpireType = "PX"
	ExpireAtUnixSec    ExpireType = "EXAT"
	ExpireAtUnixMillis ExpireType = "PXAT"
)

// Expiry is an optional expiry clause. The zero value adds nothing.
type Expiry struct {
	Type  ExpireType
	Value int64
}

func In(d time.Duration) Expiry {
	if d%time.Second == 0 {
		return Expiry{Type: ExpireSeconds, Value: int64(d / time.Second)}
	}
	return Expiry{Type: ExpireMillis, Value: d.Milliseconds()}
}

func At(t time.Time) Expiry {
	return Expiry{Type: ExpireAtUnixMillis, Value: t.UnixMilli()}
}

func (e Expiry) append(args []string) []string {
	if e.Type == "" {
		return args
	}
	return append(args, string(e.Type), itoa(e.Value))
}

type SetOptions struct {
	Condition SetCondition
	Expiry    Expiry
	KeepTTL   bool
}

type ZAddFlag string

const (
	ZAddNX   ZAddFlag = "NX"
	ZAddXX   ZAddFlag = "XX"
	ZAddCH   ZAddFlag = "CH"
	ZAddIncr ZAddFlag = "INCR"
)

type ZMember struct {
	Score  int64
	Member string
}

type ZRangeMode string

const (
	ByRank  ZRangeMode = "BYRANK"
	ByScore ZRangeMode = "BYSCORE"
)
