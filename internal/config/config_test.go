package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaultsLocal(t *testing.T) {
	t.Setenv("STOCKFISH_PATH", "/usr/bin/stockfish")
	t.Setenv("ENGINE_BACKEND", "")
	t.Setenv("API_BASE_URL", "")
	t.Setenv("CONFIRM_MOVES", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.EngineBackend != EngineLocal || cfg.SkillLevel != 5 || cfg.HumanSide != "white" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.EvalCacheTTL != 24*time.Hour {
		t.Fatalf("unexpected ttl %v", cfg.EvalCacheTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENGINE_BACKEND", "remote")
	t.Setenv("API_BASE_URL", "http://backend:8080/")
	t.Setenv("API_TIMEOUT", "3")
	t.Setenv("SKILL_LEVEL", "17")
	t.Setenv("TIME_CONTROL", "5+3")
	t.Setenv("EVAL_CACHE_TTL", "90m")
	t.Setenv("CONFIRM_MOVES", "true")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIBaseURL != "http://backend:8080" {
		t.Fatalf("trailing slash not trimmed: %q", cfg.APIBaseURL)
	}
	if cfg.APITimeout != 3*time.Second || cfg.EvalCacheTTL != 90*time.Minute {
		t.Fatalf("unexpected durations: %v %v", cfg.APITimeout, cfg.EvalCacheTTL)
	}
	if cfg.SkillLevel != 17 || !cfg.ConfirmMoves {
		t.Fatalf("unexpected values: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  AppConfig
		want string
	}{
		{"local without binary", AppConfig{EngineBackend: EngineLocal, HumanSide: "white"}, "STOCKFISH_PATH"},
		{"remote without url", AppConfig{EngineBackend: EngineRemote, HumanSide: "white"}, "API_BASE_URL"},
		{"unknown backend", AppConfig{EngineBackend: "cloud", HumanSide: "white"}, "ENGINE_BACKEND"},
		{"confirm without url", AppConfig{EngineBackend: EngineLocal, StockfishPath: "sf", ConfirmMoves: true, HumanSide: "white"}, "CONFIRM_MOVES"},
		{"bad side", AppConfig{EngineBackend: EngineLocal, StockfishPath: "sf", HumanSide: "red"}, "HUMAN_SIDE"},
		{"bad control", AppConfig{EngineBackend: EngineLocal, StockfishPath: "sf", HumanSide: "both", TimeControl: "x+1"}, "TIME_CONTROL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %s, got %v", tc.want, err)
			}
		})
	}
	ok := AppConfig{EngineBackend: EngineLocal, StockfishPath: "sf", HumanSide: "both", TimeControl: "none"}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}
