package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/park285/Cheese-chess-client/internal/clock"
)

const (
	EngineLocal  = "local"
	EngineRemote = "remote"
)

type AppConfig struct {
	APIBaseURL string
	APITimeout time.Duration

	ConfirmPath      string
	MovePath         string
	EvaluatePath     string
	AnalyzeImagePath string
	ChatPath         string

	XUserID    string
	XSessionID string

	EngineBackend  string
	EngineName     string
	StockfishPath  string
	SkillLevel     int
	MoveTimeMillis int
	DeepEvalMillis int

	HumanSide     string
	TimeControl   string
	MateThreshold float64
	ConfirmMoves  bool

	RedisURL     string
	EvalCacheTTL time.Duration
	DatabaseURL  string

	FeedAddr    string
	MessagesDir string
	SnapshotDir string
	Unicode     bool
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		APITimeout:     10 * time.Second,
		EngineBackend:  EngineLocal,
		EngineName:     "stockfish",
		SkillLevel:     5,
		MoveTimeMillis: 500,
		DeepEvalMillis: 1500,
		HumanSide:      "white",
		TimeControl:    "none",
		MateThreshold:  900,
		EvalCacheTTL:   24 * time.Hour,
	}

	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("API_BASE_URL")), "/")
	if d, ok := getDuration("API_TIMEOUT"); ok {
		cfg.APITimeout = d
	}
	cfg.ConfirmPath = strings.TrimSpace(os.Getenv("API_CONFIRM_PATH"))
	cfg.MovePath = strings.TrimSpace(os.Getenv("API_MOVE_PATH"))
	cfg.EvaluatePath = strings.TrimSpace(os.Getenv("API_EVALUATE_PATH"))
	cfg.AnalyzeImagePath = strings.TrimSpace(os.Getenv("API_ANALYZE_IMAGE_PATH"))
	cfg.ChatPath = strings.TrimSpace(os.Getenv("API_CHAT_PATH"))

	cfg.XUserID = strings.TrimSpace(os.Getenv("X_USER_ID"))
	cfg.XSessionID = strings.TrimSpace(os.Getenv("X_SESSION_ID"))

	if v := strings.ToLower(strings.TrimSpace(os.Getenv("ENGINE_BACKEND"))); v != "" {
		cfg.EngineBackend = v
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_NAME")); v != "" {
		cfg.EngineName = v
	}
	cfg.StockfishPath = strings.TrimSpace(os.Getenv("STOCKFISH_PATH"))
	if n, ok := getInt("SKILL_LEVEL"); ok && n >= 0 && n <= 20 {
		cfg.SkillLevel = n
	}
	if n, ok := getInt("MOVE_TIME_MS"); ok && n > 0 {
		cfg.MoveTimeMillis = n
	}
	if n, ok := getInt("DEEP_EVAL_MS"); ok && n > 0 {
		cfg.DeepEvalMillis = n
	}

	if v := strings.ToLower(strings.TrimSpace(os.Getenv("HUMAN_SIDE"))); v != "" {
		cfg.HumanSide = v
	}
	if v := strings.TrimSpace(os.Getenv("TIME_CONTROL")); v != "" {
		cfg.TimeControl = v
	}
	if v := strings.TrimSpace(os.Getenv("MATE_THRESHOLD")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.MateThreshold = f
		}
	}
	if b, ok := getBool("CONFIRM_MOVES"); ok {
		cfg.ConfirmMoves = b
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	if d, ok := getDuration("EVAL_CACHE_TTL"); ok {
		cfg.EvalCacheTTL = d
	}
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	cfg.FeedAddr = strings.TrimSpace(os.Getenv("FEED_ADDR"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))
	cfg.SnapshotDir = strings.TrimSpace(os.Getenv("SNAPSHOT_DIR"))
	if b, ok := getBool("UNICODE_BOARD"); ok {
		cfg.Unicode = b
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks combinations that Load cannot default away.
func (c *AppConfig) Validate() error {
	switch c.EngineBackend {
	case EngineLocal:
		if c.StockfishPath == "" {
			return errors.New("STOCKFISH_PATH is required for the local engine")
		}
	case EngineRemote:
		if c.APIBaseURL == "" {
			return errors.New("API_BASE_URL is required for the remote engine")
		}
	default:
		return fmt.Errorf("ENGINE_BACKEND must be %s or %s, got %q", EngineLocal, EngineRemote, c.EngineBackend)
	}
	if c.ConfirmMoves && c.APIBaseURL == "" {
		return errors.New("API_BASE_URL is required when CONFIRM_MOVES is set")
	}
	switch c.HumanSide {
	case "white", "black", "both":
	default:
		return fmt.Errorf("HUMAN_SIDE must be white, black or both, got %q", c.HumanSide)
	}
	if _, err := clock.ParseControl(c.TimeControl); err != nil {
		return fmt.Errorf("TIME_CONTROL: %w", err)
	}
	return nil
}

func getInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func getBool(key string) (bool, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

// getDuration accepts Go durations ("30s") or bare seconds.
func getDuration(key string) (time.Duration, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d, true
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second, true
	}
	return 0, false
}
