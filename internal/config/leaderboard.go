package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// LeaderboardConfig is the file schema of cmd/leaderboard.
type LeaderboardConfig struct {
	Name           string   `toml:"name"`
	Addr           string   `toml:"addr"`
	Profile        string   `toml:"profile"`
	DiceAddr       string   `toml:"dice_addr"`
	Key            string   `toml:"key"`
	TopN           int      `toml:"top_n"`
	Players        []string `toml:"players"`
	MaxScore       int64    `toml:"max_score"`
	UpdateInterval string   `toml:"update_interval"`
	CorsOrigins    []string `toml:"cors_origins"`

	updateEvery time.Duration
}

func DefaultLeaderboardConfig() LeaderboardConfig {
	return LeaderboardConfig{
		Name:           "leaderboard",
		Addr:           ":8080",
		DiceAddr:       "localhost:7379",
		Key:            "match:leaderboard",
		TopN:           5,
		Players:        []string{"ada", "bob", "cam", "dee", "eve"},
		MaxScore:       100,
		UpdateInterval: "1s",
		CorsOrigins:    []string{"http://localhost:3000"},
		updateEvery:    time.Second,
	}
}

// LoadLeaderboardConfig reads path over the defaults. A relative profile path is
// resolved against the directory holding path.
func LoadLeaderboardConfig(path string) (LeaderboardConfig, error) {
	cfg := DefaultLeaderboardConfig()
	if err := loadToml(path, &cfg); err != nil {
		return LeaderboardConfig{}, err
	}
	if p := strings.TrimSpace(cfg.Profile); p != "" && !filepath.IsAbs(p) {
		cfg.Profile = filepath.Join(filepath.Dir(path), p)
	}
	if err := cfg.normalize(); err != nil {
		return LeaderboardConfig{}, err
	}
	return cfg, nil
}

// UpdateEvery is the parsed update_interval.
func (c LeaderboardConfig) UpdateEvery() time.Duration { return c.updateEvery }

func (c *LeaderboardConfig) normalize() error {
	c.Name = strings.TrimSpace(c.Name)
	c.Addr = strings.TrimSpace(c.Addr)
	c.Key = strings.TrimSpace(c.Key)
	c.Players = normalizeList(c.Players)
	c.CorsOrigins = normalizeList(c.CorsOrigins)

	d, err := parseDuration("update_interval", c.UpdateInterval)
	if err != nil {
		return err
	}
	c.updateEvery = d
	return ValidateLeaderboardConfig(*c)
}

func ValidateLeaderboardConfig(cfg LeaderboardConfig) error {
	if cfg.Name == "" {
		return fmt.Errorf("leaderboard config missing name")
	}
	if cfg.Addr == "" {
		return fmt.Errorf("leaderboard config missing addr")
	}
	if cfg.Key == "" {
		return fmt.Errorf("leaderboard config missing key")
	}
	if strings.TrimSpace(cfg.Profile) == "" && strings.TrimSpace(cfg.DiceAddr) == "" {
		return fmt.Errorf("leaderboard config needs profile or dice_addr")
	}
	if cfg.TopN <= 0 {
		return fmt.Errorf("leaderboard config top_n must be positive, got %d", cfg.TopN)
	}
	if cfg.MaxScore <= 0 {
		return fmt.Errorf("leaderboard config max_score must be positive, got %d", cfg.MaxScore)
	}
	if cfg.updateEvery <= 0 {
		return fmt.Errorf("leaderboard config update_interval must be positive")
	}
	return nil
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
