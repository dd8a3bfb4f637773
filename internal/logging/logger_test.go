package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/bankquality/internal/core"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-1")
	ctx = core.ContextWithRunID(ctx, "run-1")

	WithFields(ctx, "stage", "validate").Info("stage completed")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v (%s)", err, buf.String())
	}
	for key, want := range map[string]string{"request_id": "req-1", "run_id": "run-1", "stage": "validate"} {
		if entry[key] != want {
			t.Errorf("%s = %v, want %s", key, entry[key], want)
		}
	}
}

func TestFromContext_Bare(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	FromContext(context.Background()).Info("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if _, ok := entry["run_id"]; ok {
		t.Error("run_id should be absent without a run")
	}
	if _, ok := entry["request_id"]; ok {
		t.Error("request_id should be absent without a request")
	}
}

func TestNewHandler(t *testing.T) {
	tests := []struct {
		level, format string
		wantJSON      bool
		wantSource    bool
		debugEnabled  bool
	}{
		{"info", "json", true, false, false},
		{"debug", "JSON", true, true, true},
		{"warn", "text", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			h := NewHandler(&buf, tt.level, tt.format)

			if got := h.Enabled(context.Background(), slog.LevelDebug); got != tt.debugEnabled {
				t.Errorf("debug enabled = %v, want %v", got, tt.debugEnabled)
			}

			slog.New(h).Error("boom")
			out := buf.String()
			if isJSON := json.Valid(bytes.TrimSpace(buf.Bytes())); isJSON != tt.wantJSON {
				t.Errorf("JSON output = %v, want %v: %s", isJSON, tt.wantJSON, out)
			}
			if hasSource := bytes.Contains(buf.Bytes(), []byte("source")); hasSource != tt.wantSource {
				t.Errorf("source = %v, want %v: %s", hasSource, tt.wantSource, out)
			}
		})
	}
}
