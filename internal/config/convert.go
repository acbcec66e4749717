package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/dicewire/client"
)

func (f clientFile) apply(meta toml.MetaData, cfg *client.Config) error {
	if meta.IsDefined("addr") {
		cfg.Addr = strings.TrimSpace(f.Addr)
	}
	if meta.IsDefined("client_id") {
		cfg.ClientID = strings.TrimSpace(f.ClientID)
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"connect_timeout", f.ConnectTimeout, &cfg.ConnectTimeout},
		{"handshake_timeout", f.HandshakeTimeout, &cfg.HandshakeTimeout},
		{"retry_delay", f.RetryDelay, &cfg.RetryDelay},
		{"read_timeout", f.ReadTimeout, &cfg.Wire.ReadTimeout},
		{"write_timeout", f.WriteTimeout, &cfg.Wire.WriteTimeout},
		{"watch_read_timeout", f.WatchReadTimeout, &cfg.WatchReadTimeout},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := parseDuration(d.key, d.raw)
		if err != nil {
			return err
		}
		*d.dst = v
	}
	if meta.IsDefined("retry_delay_ms") {
		cfg.RetryDelay = time.Duration(f.RetryDelayMS) * time.Millisecond
	}

	if meta.IsDefined("handshake_attempts") {
		cfg.HandshakeAttempts = f.HandshakeAttempts
	}
	if meta.IsDefined("max_attempts") {
		cfg.MaxAttempts = f.MaxAttempts
	}
	if meta.IsDefined("max_frame_bytes") {
		cfg.Wire.Limits.MaxPayloadBytes = f.MaxFrameBytes
	}

	if meta.IsDefined("tls") {
		cfg.TLS = client.TLSConfig{
			Enabled:            f.TLS.Enabled,
			Mutual:             f.TLS.Mutual,
			ServerName:         strings.TrimSpace(f.TLS.ServerName),
			CAFile:             strings.TrimSpace(f.TLS.CAFile),
			CertFile:           strings.TrimSpace(f.TLS.CertFile),
			KeyFile:            strings.TrimSpace(f.TLS.KeyFile),
			InsecureSkipVerify: f.TLS.InsecureSkipVerify,
		}
	}
	return nil
}

func parseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("parse %s: negative duration %s", key, raw)
	}
	return d, nil
}
