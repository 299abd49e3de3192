package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"treasure-chess/internal/bootstrap"
	"treasure-chess/internal/config"
	"treasure-chess/internal/obslog"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		os.Stderr.WriteString("logger init failed: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer obslog.L().Sync()

	cfg, err := config.Load()
	if err != nil {
		obslog.L().Fatal("config_load_failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := bootstrap.New(ctx, cfg)
	if err != nil {
		obslog.L().Fatal("bootstrap_failed", zap.Error(err))
	}

	errCh := make(chan error, 2)
	go func() { errCh <- deps.Server.ListenAndServe(cfg.HTTPAddr) }()
	go func() { errCh <- deps.Hub.ListenAndServe(cfg.WSAddr) }()

	obslog.L().Info("chess_club_started",
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("ws_addr", cfg.WSAddr))

	select {
	case <-ctx.Done():
		obslog.L().Info("shutdown_signal")
	case err := <-errCh:
		if err != nil {
			obslog.L().Error("server_failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	deps.Close(shutdownCtx)
	obslog.L().Info("chess_club_stopped")
}
