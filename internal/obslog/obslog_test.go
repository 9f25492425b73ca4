package obslog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestBuildWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "client.log")
	logger, err := Build(Options{Level: "debug", File: path, Format: "json"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	logger.Debug("engine_move", zap.String("move_uci", "e2e4"))
	_ = logger.Sync()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(raw))), &entry); err != nil {
		t.Fatalf("not json: %v (%s)", err, raw)
	}
	if entry["msg"] != "engine_move" || entry["move_uci"] != "e2e4" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestBuildLevelFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.log")
	logger, err := Build(Options{Level: "warn", File: path, Format: "legacy"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	_ = logger.Sync()
	raw, _ := os.ReadFile(path)
	if strings.Contains(string(raw), "hidden") || !strings.Contains(string(raw), "shown") {
		t.Fatalf("unexpected log contents: %s", raw)
	}
}

func TestNoSinksIsNop(t *testing.T) {
	logger, err := Build(Options{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if logger.Core().Enabled(zap.ErrorLevel) {
		t.Fatalf("expected a no-op logger")
	}
}
