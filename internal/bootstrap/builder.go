package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"treasure-chess/internal/config"
	"treasure-chess/internal/engine"
	"treasure-chess/internal/engine/uci"
	"treasure-chess/internal/httpapi"
	"treasure-chess/internal/ledger"
	"treasure-chess/internal/match"
	"treasure-chess/internal/msgcat"
	"treasure-chess/internal/obslog"
	"treasure-chess/internal/session"
)

// Deps is the fully wired object graph.
type Deps struct {
	Controller *match.Controller
	Server     *httpapi.Server
	Hub        *httpapi.Hub
	Ledger     *ledger.Client
	Sessions   session.Store
	Feed       *session.Feed

	db            *sql.DB
	rdb           *redis.Client
	engineSession *uci.Session
}

// New builds the whole dependency graph from configuration. The engine
// is optional: without STOCKFISH_PATH only player-vs-player matches are
// available.
func New(ctx context.Context, cfg *config.AppConfig) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	db, err := ledger.OpenPostgres(pingCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	rdb, err := session.OpenRedis(pingCtx, cfg.RedisURL)
	if err != nil {
		db.Close()
		return nil, err
	}

	ledgerClient := ledger.NewClient(ledger.NewPostgresStore(db), cfg.StartingBalance)
	sessionStore := session.NewPostgresStore(db)
	feed := session.NewFeed(rdb)

	cat, err := msgcat.New(cfg.MsgTemplateDir)
	if err != nil {
		db.Close()
		rdb.Close()
		return nil, fmt.Errorf("load message catalog: %w", err)
	}

	var (
		engineClient  match.MoveRequester
		engineSession *uci.Session
	)
	if strings.TrimSpace(cfg.StockfishPath) != "" {
		engineSession, err = uci.NewSession(ctx, cfg.StockfishPath, uci.Options{
			Threads:    2,
			HashMB:     64,
			SkillLevel: engine.SkillForDifficulty(cfg.EngineDifficulty),
		})
		if err != nil {
			db.Close()
			rdb.Close()
			return nil, fmt.Errorf("init engine: %w", err)
		}
		engineClient = engine.NewClient(engineSession, cfg.EngineDifficulty, cfg.EngineMoveTimeout)
	} else {
		obslog.L().Warn("engine_disabled", zap.String("reason", "STOCKFISH_PATH not set"))
	}

	controller := match.NewController(ledgerClient, sessionStore, feed, engineClient, cat)
	hub := httpapi.NewHub()
	controller.SetNotify(hub.Broadcast)
	server := httpapi.NewServer(controller, ledgerClient, sessionStore)

	return &Deps{
		Controller:    controller,
		Server:        server,
		Hub:           hub,
		Ledger:        ledgerClient,
		Sessions:      sessionStore,
		Feed:          feed,
		db:            db,
		rdb:           rdb,
		engineSession: engineSession,
	}, nil
}

// Close tears the graph down in reverse dependency order.
func (d *Deps) Close(ctx context.Context) {
	if d.Server != nil {
		if err := d.Server.Shutdown(); err != nil {
			obslog.L().Warn("http_shutdown_failed", zap.Error(err))
		}
	}
	if d.Hub != nil {
		if err := d.Hub.Shutdown(ctx); err != nil {
			obslog.L().Warn("ws_shutdown_failed", zap.Error(err))
		}
	}
	if d.engineSession != nil {
		_ = d.engineSession.Close()
	}
	if d.rdb != nil {
		_ = d.rdb.Close()
	}
	if d.db != nil {
		_ = d.db.Close()
	}
}
