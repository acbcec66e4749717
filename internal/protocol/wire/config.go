package wire

import (
	"time"

	"github.com/danmuck/dicewire/internal/protocol/frame"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// BackoffConfig defines the delay schedule between retried I/O attempts.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config defines framing limits, socket deadlines, and the retry budgets of one wire.
//
// The three budgets are independent because the prefix read, the body read, and the
// write path fail in different ways; none of the default counts is load-bearing.
type Config struct {
	Limits frame.Limits

	// ReadTimeout and WriteTimeout bound one socket call. Zero disables the deadline,
	// which is what a long-lived push channel wants for reads.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Each budget counts retries after the first failure, so a budget of N allows
	// N+1 attempts. PrefixReadRetries and BodyReadRetries cover failed reads of
	// the length prefix and of the payload. MaxBackoffRetries covers write
	// timeouts and MaxPartialWriteRetries covers other failed writes.
	PrefixReadRetries      int
	BodyReadRetries        int
	MaxBackoffRetries      int
	MaxPartialWriteRetries int
	Backoff                BackoffConfig

	Logger *zerolog.Logger
}

func DefaultConfig() Config {
	return Config{
		Limits:                 frame.DefaultLimits(),
		ReadTimeout:            15 * time.Second,
		WriteTimeout:           15 * time.Second,
		PrefixReadRetries:      5,
		BodyReadRetries:        5,
		MaxBackoffRetries:      5,
		MaxPartialWriteRetries: 10,
		Backoff: BackoffConfig{
			InitialDelay: 5 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     time.Second,
		},
	}
}

// WithDefaults fills zero budgets from DefaultConfig. Timeouts are left alone since
// zero is meaningful for them.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	c.Limits = c.Limits.WithDefaults()
	if c.PrefixReadRetries <= 0 {
		c.PrefixReadRetries = def.PrefixReadRetries
	}
	if c.BodyReadRetries <= 0 {
		c.BodyReadRetries = def.BodyReadRetries
	}
	if c.MaxBackoffRetries <= 0 {
		c.MaxBackoffRetries = def.MaxBackoffRetries
	}
	if c.MaxPartialWriteRetries <= 0 {
		c.MaxPartialWriteRetries = def.MaxPartialWriteRetries
	}
	if c.Backoff.InitialDelay <= 0 {
		c.Backoff.InitialDelay = def.Backoff.InitialDelay
	}
	if c.Backoff.Multiplier < 1.0 {
		c.Backoff.Multiplier = def.Backoff.Multiplier
	}
	if c.Logger == nil {
		logger := log.Logger
		c.Logger = &logger
	}
	return c
}
