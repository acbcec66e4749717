package leaderboard

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/dicewire/client"
	"github.com/danmuck/dicewire/command"
	"github.com/danmuck/dicewire/internal/config"
)

var ErrPlayerRequired = errors.New("leaderboard: player required")

// Service drives a Board from one client: a ticker writes random scores while a
// subscription feeds every change back into the board.
type Service struct {
	cfg    config.LeaderboardConfig
	client *client.Client
	board  *Board
	log    zerolog.Logger

	// ResubscribeDelay spaces attempts to restart an ended subscription.
	ResubscribeDelay time.Duration

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewService(cfg config.LeaderboardConfig, c *client.Client) *Service {
	return &Service{
		cfg:              cfg,
		client:           c,
		board:            NewBoard(cfg.Key, cfg.TopN),
		log:              log.With().Str("component", "leaderboard").Str("key", cfg.Key).Logger(),
		ResubscribeDelay: time.Second,
		rng:              rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
	}
}

func (s *Service) Board() *Board { return s.board }

// Run blocks until ctx ends.
func (s *Service) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.watchLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		s.updateLoop(ctx)
	}()
	wg.Wait()
}

// Submit sets player's score.
func (s *Service) Submit(ctx context.Context, player string, score int64) error {
	player = strings.TrimSpace(player)
	if player == "" {
		return ErrPlayerRequired
	}
	_, err := client.Fire(ctx, s.client, command.ZAdd(s.cfg.Key, []command.ZMember{{Score: score, Member: player}}))
	return err
}

// Bump gives a random configured player a random score.
func (s *Service) Bump(ctx context.Context) (string, int64, error) {
	if len(s.cfg.Players) == 0 {
		return "", 0, ErrPlayerRequired
	}
	s.rngMu.Lock()
	player := s.cfg.Players[s.rng.IntN(len(s.cfg.Players))]
	score := s.rng.Int64N(s.cfg.MaxScore) + 1
	s.rngMu.Unlock()
	return player, score, s.Submit(ctx, player, score)
}

func (s *Service) updateLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.UpdateEvery())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			player, score, err := s.Bump(ctx)
			if err != nil {
				if ctx.Err() == nil {
					s.log.Warn().Err(err).Msg("score update failed")
				}
				continue
			}
			s.log.Debug().Str("player", player).Int64("score", score).Msg("score updated")
		}
	}
}

func (s *Service) watchLoop(ctx context.Context) {
	for {
		err := s.follow(ctx)
		if ctx.Err() != nil {
			return
		}
		s.log.Warn().Err(err).Dur("retry_in", s.ResubscribeDelay).Msg("leaderboard subscription ended")
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.ResubscribeDelay):
		}
	}
}

// follow streams one subscription into the board until it ends.
func (s *Service) follow(ctx context.Context) error {
	sub, err := client.Watch(ctx, s.client, command.ZRangeWatch(s.cfg.Key, 0, -1, command.ByRank))
	if err != nil {
		return err
	}
	defer sub.Close()
	s.log.Info().Msg("leaderboard subscription started")
	for update := range sub.All(ctx) {
		s.board.Apply(update.Elements, time.Now())
	}
	return sub.Err()
}
