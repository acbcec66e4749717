package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":       zerolog.TraceLevel,
		"diagnostics": zerolog.TraceLevel,
		" DEBUG ":     zerolog.DebugLevel,
		"warning":     zerolog.WarnLevel,
		"off":         zerolog.Disabled,
	}
	for raw, want := range cases {
		got, ok := parseLevel(raw)
		if !ok || got != want {
			t.Fatalf("parseLevel(%q) = %v,%v want %v", raw, got, ok, want)
		}
	}
	if _, ok := parseLevel("loud"); ok {
		t.Fatalf("expected unknown level to be ignored")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogTimestamp, "true")
	t.Setenv(EnvLogNoColor, "1")
	t.Setenv(EnvLogBypass, "nope")

	cfg := defaultConfig(ProfileTest)
	applyEnvOverrides(&cfg)
	if cfg.Level != zerolog.ErrorLevel || !cfg.Timestamp || !cfg.NoColor || cfg.Bypass {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestNewBypassWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: zerolog.InfoLevel, Bypass: true, Out: &buf, App: "dicectl"})
	logger.Debug().Msg("hidden")
	logger.Info().Str("op", "GET").Msg("sent")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug event leaked at info level: %s", out)
	}
	if !strings.Contains(out, `"app":"dicectl"`) || !strings.Contains(out, `"op":"GET"`) {
		t.Fatalf("missing fields: %s", out)
	}
}

func TestProfileLevels(t *testing.T) {
	for profile, want := range map[Profile]zerolog.Level{
		ProfileRuntime: zerolog.InfoLevel,
		ProfileTest:    zerolog.DebugLevel,
		ProfileCLI:     zerolog.WarnLevel,
	} {
		if got := defaultConfig(profile).Level; got != want {
			t.Fatalf("profile %d level = %v want %v", profile, got, want)
		}
	}
}
