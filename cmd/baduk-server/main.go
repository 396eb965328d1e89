package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hanq-games/baduk-server/internal/ai"
	appcfg "github.com/hanq-games/baduk-server/internal/config"
	"github.com/hanq-games/baduk-server/internal/gtp"
	"github.com/hanq-games/baduk-server/internal/modes"
	"github.com/hanq-games/baduk-server/internal/msgcat"
	"github.com/hanq-games/baduk-server/internal/notify"
	"github.com/hanq-games/baduk-server/internal/obslog"
	"github.com/hanq-games/baduk-server/internal/scoring"
	"github.com/hanq-games/baduk-server/internal/server"
	"github.com/hanq-games/baduk-server/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Session store: Redis when configured, in-process memory otherwise.
	var (
		sessions store.SessionStore
		users    store.UserStore
	)
	if cfg.RedisURL != "" {
		rds, err := store.NewRedisFromURL(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis init failed", zap.Error(err))
		}
		defer rds.Close()
		sessions, users = rds, rds
		logger.Info("session store: redis")
	} else {
		mem := store.NewMemory()
		sessions, users = mem, mem
		logger.Info("session store: memory")
	}

	var archive *store.Archive
	if cfg.DatabaseURL != "" {
		archive, err = store.NewArchive(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("archive init failed", zap.Error(err))
		}
		defer archive.Close()
		logger.Info("game archive: postgres")
	}

	var notifier *notify.Notifier
	if cfg.WebhookURL != "" {
		catalog, err := msgcat.New(cfg.MessageDir)
		if err != nil {
			logger.Fatal("message catalog load failed", zap.Error(err))
		}
		notifier = notify.New(cfg.WebhookURL, notify.WithCatalog(catalog))
		logger.Info("result webhook enabled", zap.String("url", cfg.WebhookURL))
	}

	engines := gtp.NewPool(gtp.PoolConfig{
		BinaryPath: cfg.EnginePath,
		ExtraArgs:  cfg.EngineArgs,
	})
	defer engines.Close()
	if engines.Available() {
		logger.Info("engine pool ready", zap.String("binary", cfg.EnginePath))
	} else {
		logger.Warn("no engine binary configured, strategic AI runs on heuristics only")
	}

	aiCfg := ai.DefaultConfig()
	if cfg.AIConfigPath != "" {
		aiCfg, err = ai.LoadConfig(cfg.AIConfigPath)
		if err != nil {
			logger.Fatal("ai config load failed",
				zap.String("path", cfg.AIConfigPath), zap.Error(err))
		}
	}

	env := modes.NewEnv(engines, ai.NewSelector(aiCfg), scoring.NewService(engines))

	mgr := server.NewManager(server.Options{
		Env:      env,
		Sessions: sessions,
		Users:    users,
		Archive:  archive,
		Notifier: notifier,
		MaxGames: cfg.MaxConcurrentGames,
	})

	// Revive persisted games before ticking so their clocks and AI turns
	// pick up where the previous process left off.
	mgr.ResumeActive(ctx)

	ticker := server.NewTicker(mgr, cfg.TickIntervalMs)
	go ticker.Run(ctx)

	api := server.NewAPI(mgr)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	mgr.Shutdown(shutdownCtx)
	logger.Info("bye")

	os.Exit(0)
}
