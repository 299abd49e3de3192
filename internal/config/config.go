package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	DatabaseURL string
	RedisURL    string

	HTTPAddr string
	WSAddr   string

	StockfishPath     string
	EngineDifficulty  int
	EngineMoveTimeout time.Duration

	StartingBalance int

	MsgTemplateDir string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:          ":8080",
		WSAddr:            ":8081",
		EngineDifficulty:  10,
		EngineMoveTimeout: 30 * time.Second,
		StartingBalance:   50,
	}

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))

	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("WS_ADDR")); v != "" {
		cfg.WSAddr = v
	}

	cfg.StockfishPath = strings.TrimSpace(os.Getenv("STOCKFISH_PATH"))
	if v := strings.TrimSpace(os.Getenv("ENGINE_DIFFICULTY")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EngineDifficulty = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_MOVE_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.EngineMoveTimeout = d
		}
	}

	if v := strings.TrimSpace(os.Getenv("STARTING_BALANCE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.StartingBalance = n
		}
	}

	cfg.MsgTemplateDir = strings.TrimSpace(os.Getenv("MSG_TEMPLATE_DIR"))

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	return cfg, nil
}
