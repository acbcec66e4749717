package leaderboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danmuck/dicewire/client"
	"github.com/danmuck/dicewire/internal/config"
	"github.com/danmuck/dicewire/internal/testutil/diceserver"
	"github.com/danmuck/dicewire/internal/testutil/testlog"
	"github.com/danmuck/dicewire/proto"
)

func TestBoardRanksHighestFirstAndTrims(t *testing.T) {
	testlog.Start(t)
	b := NewBoard("k", 2)
	b.Apply([]proto.ZElement{
		{Score: 10, Member: "cam"},
		{Score: 30, Member: "bob"},
		{Score: 30, Member: "ada"},
	}, time.Unix(100, 0))

	snap := b.Snapshot()
	assert.Equal(t, []Entry{
		{Rank: 1, Player: "ada", Score: 30},
		{Rank: 2, Player: "bob", Score: 30},
	}, snap.Entries)
	assert.Equal(t, 3, snap.Players)
	assert.Equal(t, uint64(1), snap.Updates)

	snap.Entries[0].Player = "mutated"
	assert.Equal(t, "ada", b.Snapshot().Entries[0].Player)
}

func newTestService(t *testing.T) (*Service, *diceserver.Server) {
	t.Helper()
	srv := diceserver.Start(t)
	ccfg := client.DefaultConfig()
	ccfg.Addr = srv.Addr()
	ccfg.RetryDelay = 10 * time.Millisecond
	c, err := client.New(context.Background(), ccfg)
	require.NoError(t, err)
	t.Cleanup(c.Close)

	cfg := config.DefaultLeaderboardConfig()
	cfg.Key = "test:board"
	cfg.Players = []string{"bot"}
	cfg.TopN = 3
	s := NewService(cfg, c)
	s.ResubscribeDelay = 10 * time.Millisecond
	return s, srv
}

func runService(t *testing.T, s *Service) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestServiceFollowsSubmittedScores(t *testing.T) {
	testlog.Start(t)
	s, _ := newTestService(t)
	runService(t, s)

	require.NoError(t, s.Submit(context.Background(), "ada", 42))
	snap := eventually(t, s.Board(), func(snap Snapshot) bool {
		return containsPlayer(snap, "ada", 42)
	})
	assert.Equal(t, "test:board", snap.Key)
	assert.ErrorIs(t, s.Submit(context.Background(), "  ", 1), ErrPlayerRequired)
}

func TestServiceResubscribesAfterServerHangsUp(t *testing.T) {
	testlog.Start(t)
	s, srv := newTestService(t)
	runService(t, s)

	require.NoError(t, s.Submit(context.Background(), "ada", 1))
	eventually(t, s.Board(), func(snap Snapshot) bool { return containsPlayer(snap, "ada", 1) })

	srv.CloseWatchers()
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, s.Submit(context.Background(), "ada", 7))
	eventually(t, s.Board(), func(snap Snapshot) bool { return containsPlayer(snap, "ada", 7) })
}

func TestBumpScoresConfiguredPlayer(t *testing.T) {
	testlog.Start(t)
	s, srv := newTestService(t)

	player, score, err := s.Bump(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "bot", player)
	assert.True(t, score >= 1 && score <= s.cfg.MaxScore, "score %d out of range", score)

	cmds := srv.Commands()
	require.NotEmpty(t, cmds)
	last := cmds[len(cmds)-1]
	assert.Equal(t, "ZADD", last.Cmd)
	assert.Equal(t, "test:board", last.Args[0])
}

func TestRouter(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	s, _ := newTestService(t)
	runService(t, s)
	r := NewRouter(s, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var health map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, s.client.ID(), health["client_id"])

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/scores", strings.NewReader(`{"player":"ada"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/scores", strings.NewReader(`{"player":"ada","score":0}`)))
	require.Equal(t, http.StatusAccepted, rec.Code)

	eventually(t, s.Board(), func(snap Snapshot) bool { return containsPlayer(snap, "ada", 0) })
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leaderboard", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var snap Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.True(t, containsPlayer(snap, "ada", 0), "leaderboard: %+v", snap)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dicewire_client_commands_total")
}

func eventually(t *testing.T, b *Board, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		snap := b.Snapshot()
		if cond(snap) {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("condition not met, last snapshot %+v", snap)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func containsPlayer(snap Snapshot, player string, score int64) bool {
	for _, e := range snap.Entries {
		if e.Player == player && e.Score == score {
			return true
		}
	}
	return false
}
