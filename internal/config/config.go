// Package config loads the TOML files read by the dicewire commands.
package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	gotoml "github.com/pelletier/go-toml/v2"

	"github.com/danmuck/dicewire/client"
)

// clientFile mirrors the on-disk client profile. Durations are Go duration strings.
type clientFile struct {
	Addr              string  `toml:"addr"`
	ClientID          string  `toml:"client_id"`
	ConnectTimeout    string  `toml:"connect_timeout"`
	HandshakeTimeout  string  `toml:"handshake_timeout"`
	HandshakeAttempts int     `toml:"handshake_attempts"`
	MaxAttempts       int     `toml:"max_attempts"`
	RetryDelay        string  `toml:"retry_delay"`
	RetryDelayMS      int64   `toml:"retry_delay_ms"`
	ReadTimeout       string  `toml:"read_timeout"`
	WriteTimeout      string  `toml:"write_timeout"`
	WatchReadTimeout  string  `toml:"watch_read_timeout"`
	MaxFrameBytes     int     `toml:"max_frame_bytes"`
	TLS               tlsFile `toml:"tls"`
}

type tlsFile struct {
	Enabled            bool   `toml:"enabled"`
	Mutual             bool   `toml:"mutual"`
	ServerName         string `toml:"server_name"`
	CAFile             string `toml:"ca_file"`
	CertFile           string `toml:"cert_file"`
	KeyFile            string `toml:"key_file"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
}

// LoadClientProfile overlays the keys present in path onto client.DefaultConfig.
// Keys absent from the file keep their defaults, so an explicit zero is honored.
func LoadClientProfile(path string) (client.Config, error) {
	cfg := client.DefaultConfig()

	var raw clientFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return client.Config{}, fmt.Errorf("load client profile: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return client.Config{}, fmt.Errorf("load client profile: unknown key %q", undecoded[0].String())
	}
	if err := raw.apply(meta, &cfg); err != nil {
		return client.Config{}, err
	}
	if err := cfg.WithDefaults().Validate(); err != nil {
		return client.Config{}, fmt.Errorf("client profile %s: %w", path, err)
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	dec := gotoml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}
