// Package leaderboard keeps a live top-N view of a sorted set by subscribing to
// ZRANGE.WATCH and serves it over HTTP.
package leaderboard

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/danmuck/dicewire/proto"
)

type Entry struct {
	Rank   int    `json:"rank"`
	Player string `json:"player"`
	Score  int64  `json:"score"`
}

type Snapshot struct {
	Key       string    `json:"key"`
	Entries   []Entry   `json:"entries"`
	Players   int       `json:"players"`
	Updates   uint64    `json:"updates"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Board holds the most recent ranking pushed by the server.
type Board struct {
	mu   sync.RWMutex
	topN int
	snap Snapshot
}

func NewBoard(key string, topN int) *Board {
	return &Board{topN: topN, snap: Snapshot{Key: key, Entries: []Entry{}}}
}

// Apply replaces the ranking with elements, highest score first. Ties go to the
// lexically smaller member.
func (b *Board) Apply(elements []proto.ZElement, at time.Time) {
	sorted := slices.Clone(elements)
	slices.SortFunc(sorted, func(x, y proto.ZElement) int {
		return cmp.Or(cmp.Compare(y.Score, x.Score), cmp.Compare(x.Member, y.Member))
	})
	n := min(len(sorted), b.topN)
	entries := make([]Entry, 0, n)
	for i, e := range sorted[:n] {
		entries = append(entries, Entry{Rank: i + 1, Player: e.Member, Score: e.Score})
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.snap.Entries = entries
	b.snap.Players = len(elements)
	b.snap.Updates++
	b.snap.UpdatedAt = at
}

func (b *Board) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := b.snap
	out.Entries = slices.Clone(b.snap.Entries)
	return out
}
