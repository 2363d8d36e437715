package logging

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"info":    zerolog.InfoLevel,
		"warn":    zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestConsoleLoggerWritesToGivenWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(LogConfig{Level: "debug", Console: true}, &buf)

	LogValuation(logger, "fixed", 97.7, 95.2, 0.93, time.Millisecond)

	out := buf.String()
	if !strings.Contains(out, "Bond valued") || !strings.Contains(out, "dirty_price") {
		t.Errorf("unexpected log output: %q", out)
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(LogConfig{Level: "info", Console: true}, &buf)

	LogCurve(logger, 0.001, 0.25, 60, time.Millisecond, nil)

	if buf.Len() != 0 {
		t.Errorf("debug event leaked at info level: %q", buf.String())
	}
}

func TestFileLoggerRotatesIntoDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "bondval.log")
	logger := newLogger(LogConfig{Level: "debug", File: true, FilePath: path, MaxSize: 1}, nil)

	LogCurve(logger, 0.001, 0.25, 60, time.Millisecond, errors.New("boom"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "Curve generation failed") {
		t.Errorf("log file missing event: %q", data)
	}
}

func TestContextLogger(t *testing.T) {
	if got := FromContext(context.Background()); got.GetLevel() != zerolog.Disabled {
		t.Errorf("empty context should yield a disabled logger, got level %v", got.GetLevel())
	}

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	ctx := WithLogger(context.Background(), WithInstrument(logger, "row-1", "zero"))

	l := FromContext(ctx)
	l.Info().Msg("hello")
	if !strings.Contains(buf.String(), `"instrument":"row-1"`) || !strings.Contains(buf.String(), `"kind":"zero"`) {
		t.Errorf("context fields missing: %q", buf.String())
	}
}
