package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Vansh-Raja/mremote-sync/internal/config"
)

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, config.LogWarn)

	log.Info().Msg("hidden")
	log.Warn().Str("source", "a.xml").Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info message should be filtered: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "a.xml") {
		t.Fatalf("warn message missing: %q", out)
	}
}

func TestNewUnknownLevelFallsBackToWarn(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, config.LogLevel("chatty"))
	log.Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected nothing logged, got %q", buf.String())
	}

	verbose := Verbose(log, true)
	verbose.Debug().Msg("debugging")
	if !strings.Contains(buf.String(), "debugging") {
		t.Fatalf("verbose logger should log debug: %q", buf.String())
	}
}
