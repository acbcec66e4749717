package client

import (
	"context"
	"testing"
	"time"

	"github.com/danmuck/dicewire/internal/testutil/diceserver"
	"github.com/danmuck/dicewire/internal/testutil/testlog"
	"github.com/danmuck/dicewire/internal/testutil/tlstest"
)

func TestClientOverTLS(t *testing.T) {
	testlog.Start(t)
	bundle := tlstest.Loopback(t)
	srv := diceserver.StartTLS(t, bundle.ServerCert, bundle.ServerKey, "")

	c := newTestClient(t, srv, func(cfg *Config) {
		cfg.TLS = TLSConfig{Enabled: true, CAFile: bundle.CAFile}
	})
	if err := c.Set(context.Background(), "secure", "yes"); err != nil {
		t.Fatalf("set over tls: %v", err)
	}
	got, err := c.Get(context.Background(), "secure")
	if err != nil || got != "yes" {
		t.Fatalf("get over tls: %q %v", got, err)
	}
}

func TestClientOverMutualTLS(t *testing.T) {
	testlog.Start(t)
	bundle := tlstest.Loopback(t)
	srv := diceserver.StartTLS(t, bundle.ServerCert, bundle.ServerKey, bundle.CAFile)

	c := newTestClient(t, srv, func(cfg *Config) {
		cfg.TLS = TLSConfig{
			Enabled:  true,
			Mutual:   true,
			CAFile:   bundle.CAFile,
			CertFile: bundle.ClientCert,
			KeyFile:  bundle.ClientKey,
		}
	})
	if _, err := c.Ping(context.Background()); err != nil {
		t.Fatalf("ping over mutual tls: %v", err)
	}
}

func TestClientRejectsUntrustedServer(t *testing.T) {
	testlog.Start(t)
	bundle := tlstest.Loopback(t)
	other := tlstest.Loopback(t)
	srv := diceserver.StartTLS(t, bundle.ServerCert, bundle.ServerKey, "")

	cfg := testConfig(srv.Addr())
	cfg.HandshakeAttempts = 1
	cfg.TLS = TLSConfig{Enabled: true, CAFile: other.CAFile}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if c, err := New(ctx, cfg); err == nil {
		c.Close()
		t.Fatal("expected certificate verification failure")
	}
}

func TestClientTLSConfigServerName(t *testing.T) {
	testlog.Start(t)
	cfg, err := clientTLSConfig("127.0.0.1:7379", TLSConfig{Enabled: true, InsecureSkipVerify: true})
	if err != nil {
		t.Fatalf("tls config: %v", err)
	}
	if cfg.ServerName != "127.0.0.1" {
		t.Fatalf("expected host as server name, got %q", cfg.ServerName)
	}
	cfg, err = clientTLSConfig("127.0.0.1:7379", TLSConfig{Enabled: true, ServerName: "dicedb.internal", InsecureSkipVerify: true})
	if err != nil || cfg.ServerName != "dicedb.internal" {
		t.Fatalf("expected explicit server name, got %q %v", cfg.ServerName, err)
	}
}
