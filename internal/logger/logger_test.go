package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fd1az/dex-spread-monitor/internal/logger"
)

func TestLogger_WritesJSONWithServiceAndTrace(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, logger.LevelInfo, "spread-monitor", func(ctx context.Context) string {
		return "abc123"
	})

	log.Info(context.Background(), "cycle complete", "checks", 4)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("invalid json %q: %v", buf.String(), err)
	}

	if rec["msg"] != "cycle complete" {
		t.Errorf("msg = %v", rec["msg"])
	}
	if rec["service"] != "spread-monitor" {
		t.Errorf("service = %v", rec["service"])
	}
	if rec["trace_id"] != "abc123" {
		t.Errorf("trace_id = %v", rec["trace_id"])
	}
	if rec["checks"] != float64(4) {
		t.Errorf("checks = %v", rec["checks"])
	}
	if file, _ := rec["file"].(string); !strings.HasPrefix(file, "logger_test.go:") {
		t.Errorf("file = %v, want logger_test.go:<line>", rec["file"])
	}
}

func TestLogger_RespectsMinLevel(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, logger.LevelWarn, "", nil)

	log.Debug(context.Background(), "hidden")
	log.Info(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below warn, got %q", buf.String())
	}

	log.Warn(context.Background(), "shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected warn record, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want logger.Level
	}{
		{"debug", logger.LevelDebug},
		{"INFO", logger.LevelInfo},
		{"warn", logger.LevelWarn},
		{"warning", logger.LevelWarn},
		{"error", logger.LevelError},
		{"", logger.LevelInfo},
		{"verbose", logger.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := logger.ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
