package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/dicewire/client"
	"github.com/danmuck/dicewire/internal/config"
	"github.com/danmuck/dicewire/internal/leaderboard"
	"github.com/danmuck/dicewire/internal/observability"
)

func main() {
	path := flag.String("config", "", "leaderboard config (TOML); defaults apply when empty")
	flag.Parse()

	if err := run(*path); err != nil {
		fmt.Fprintf(os.Stderr, "leaderboard: %v\n", err)
		os.Exit(1)
	}
}

func run(path string) error {
	logger := observability.InitLogger("leaderboard")

	cfg := config.DefaultLeaderboardConfig()
	if path != "" {
		var err error
		if cfg, err = config.LoadLeaderboardConfig(path); err != nil {
			return err
		}
	}
	ccfg, err := clientConfig(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := client.New(ctx, ccfg)
	if err != nil {
		return fmt.Errorf("connect %s: %w", ccfg.Addr, err)
	}
	defer c.Close()

	svc := leaderboard.NewService(cfg, c)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           leaderboard.NewRouter(svc, cfg.CorsOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("dicedb", ccfg.Addr).Msg("leaderboard listening")
		serveErr <- srv.ListenAndServe()
	}()
	go svc.Run(ctx)

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func clientConfig(cfg config.LeaderboardConfig) (client.Config, error) {
	if cfg.Profile != "" {
		return config.LoadClientProfile(cfg.Profile)
	}
	ccfg := client.DefaultConfig()
	ccfg.Addr = cfg.DiceAddr
	return ccfg, nil
}
