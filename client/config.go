package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/dicewire/internal/protocol/wire"
)

var (
	ErrAddressRequired     = errors.New("client: address required")
	ErrTLSRequired         = errors.New("client: tls required")
	ErrTLSCAFileRequired   = errors.New("client: tls ca file required")
	ErrTLSCertFileRequired = errors.New("client: tls cert file required")
	ErrTLSKeyFileRequired  = errors.New("client: tls key file required")
)

type TLSConfig struct {
	Enabled            bool
	Mutual             bool
	ServerName         string
	CAFile             string
	CertFile           string
	KeyFile            string
	InsecureSkipVerify bool
}

// Config describes one server and how hard to try reaching it.
type Config struct {
	Addr string

	// ClientID is sent in both handshakes. When empty, IDSource is called once.
	ClientID string
	IDSource func() string

	ConnectTimeout    time.Duration
	HandshakeTimeout  time.Duration
	HandshakeAttempts int

	// MaxAttempts and RetryDelay bound Fire's retries after a dropped connection.
	MaxAttempts int
	RetryDelay  time.Duration

	// Wire applies to the command connection. The watch connection uses the same
	// settings with WatchReadTimeout as its read deadline; zero waits indefinitely.
	Wire             wire.Config
	WatchReadTimeout time.Duration

	TLS TLSConfig

	Logger      *zerolog.Logger
	DialContext func(ctx context.Context, network, addr string) (net.Conn, error)
}

func DefaultConfig() Config {
	return Config{
		IDSource:          uuid.NewString,
		ConnectTimeout:    5 * time.Second,
		HandshakeTimeout:  5 * time.Second,
		HandshakeAttempts: 3,
		MaxAttempts:       3,
		RetryDelay:        5 * time.Second,
		Wire:              wire.DefaultConfig(),
	}
}

// WithDefaults fills unset fields. A zero RetryDelay is kept; it means retry at once.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	c.Addr = strings.TrimSpace(c.Addr)
	if c.IDSource == nil {
		c.IDSource = def.IDSource
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.HandshakeAttempts <= 0 {
		c.HandshakeAttempts = def.HandshakeAttempts
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = def.RetryDelay
	}
	if c.Logger == nil {
		l := log.Logger
		c.Logger = &l
	}
	c.Wire = c.Wire.WithDefaults()
	return c
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return ErrAddressRequired
	}
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return fmt.Errorf("client: address %q: %w", c.Addr, err)
	}
	return c.TLS.validate()
}

func (t TLSConfig) validate() error {
	if t.Mutual && !t.Enabled {
		return ErrTLSRequired
	}
	if t.Enabled && strings.TrimSpace(t.CAFile) == "" && !t.InsecureSkipVerify {
		return ErrTLSCAFileRequired
	}
	if t.Mutual {
		if strings.TrimSpace(t.CertFile) == "" {
			return ErrTLSCertFileRequired
		}
		if strings.TrimSpace(t.KeyFile) == "" {
			return ErrTLSKeyFileRequired
		}
	}
	return nil
}
