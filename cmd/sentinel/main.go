package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"sentinel-support/internal/analytics"
	"sentinel-support/internal/automod"
	"sentinel-support/internal/bot"
	"sentinel-support/internal/config"
	"sentinel-support/internal/modules/audit"
	"sentinel-support/internal/modules/cooldown"
	"sentinel-support/internal/reputation"
	"sentinel-support/internal/storage"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	store, err := storage.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("storage init failed", zap.Error(err))
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	automodLogger := logger.Named("automod")
	matcher := automod.NewMatcher(automodLogger, cfg.Automod.CacheSize)
	checker := automod.NewChecker(automod.LoadRuleSet(cfg.Automod.RulesPath, automodLogger), matcher, automodLogger)

	auditLogger := audit.NewLogger(store, logger)
	analyticsSvc := analytics.New(store)
	rep := reputation.New(cfg.Reputation, logger.Named("reputation"))

	botSvc, err := bot.New(cfg, logger, store, checker, auditLogger, analyticsSvc, rep)
	if err != nil {
		logger.Fatal("bot init failed", zap.Error(err))
	}
	if err := botSvc.Start(); err != nil {
		logger.Fatal("bot start failed", zap.Error(err))
	}
	logger.Info("bot started", zap.Int("automod_rules", checker.Rules().Len()), zap.Bool("reputation", rep.Enabled()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return botSvc.Support().Run(ctx)
	})
	if cfg.Automod.Watch {
		group.Go(func() error {
			return automod.Watch(ctx, cfg.Automod.RulesPath, checker, automodLogger)
		})
	}
	group.Go(func() error {
		pruneCooldowns(ctx, botSvc.Cooldowns(), time.Minute)
		return nil
	})
	group.Go(func() error {
		cleanupAuditLogs(ctx, store, cfg.RetentionDays, logger)
		return nil
	})

	var server *http.Server
	if cfg.Health.Enabled {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			if err := store.Ping(r.Context()); err != nil {
				http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		mux.Handle("/metrics", promhttp.Handler())
		server = &http.Server{Addr: cfg.Health.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		group.Go(func() error {
			logger.Info("health endpoint enabled", zap.String("addr", cfg.Health.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	<-ctx.Done()
	logger.Info("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if server != nil {
		_ = server.Shutdown(shutdownCtx)
	}
	if err := group.Wait(); err != nil {
		logger.Error("worker stopped with error", zap.Error(err))
	}
	botSvc.Close(shutdownCtx)
}

func pruneCooldowns(ctx context.Context, limiter *cooldown.Limiter, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			limiter.Prune(now)
		}
	}
}

func cleanupAuditLogs(ctx context.Context, store *storage.Store, retentionDays int, logger *zap.Logger) {
	ticker := time.NewTicker(6 * time.Hour)
	defer ticker.Stop()
	for {
		if err := store.CleanupAuditLogs(ctx, retentionDays); err != nil && ctx.Err() == nil {
			logger.Warn("audit cleanup failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
