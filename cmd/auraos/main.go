package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Moeabdelaziz007/auraos-sub002/internal/agent"
	"github.com/Moeabdelaziz007/auraos-sub002/internal/analytics"
	"github.com/Moeabdelaziz007/auraos-sub002/internal/api"
	"github.com/Moeabdelaziz007/auraos-sub002/internal/comms"
	"github.com/Moeabdelaziz007/auraos-sub002/internal/config"
	"github.com/Moeabdelaziz007/auraos-sub002/internal/memory"
	"github.com/Moeabdelaziz007/auraos-sub002/internal/metrics"
	"github.com/Moeabdelaziz007/auraos-sub002/internal/orchestrator"
	pgstore "github.com/Moeabdelaziz007/auraos-sub002/internal/store"
	"github.com/Moeabdelaziz007/auraos-sub002/internal/task"
	"github.com/Moeabdelaziz007/auraos-sub002/internal/tool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func newLogger(level string) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/auraos.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config %s: %v\n", cfgPath, err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Server.LogLevel)
	defer logger.Sync()
	logger.Info("Starting AuraOS...", zap.String("config", cfgPath))

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace)
	}

	// Initialize PostgreSQL store
	var pgStore *pgstore.Store
	if cfg.Database.Postgres.DSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		ps, pgErr := pgstore.New(ctx, cfg.Database.Postgres.DSN, logger)
		cancel()
		if pgErr != nil {
			logger.Warn("PostgreSQL unavailable, running without persistence", zap.Error(pgErr))
		} else {
			if mErr := ps.Migrate(context.Background(), cfg.MigrationsDir); mErr != nil {
				logger.Fatal("migration failed", zap.Error(mErr))
			}
			pgStore = ps
		}
	}

	registry := agent.NewRegistry(logger)

	tools := tool.NewRegistry()
	tool.RegisterBuiltinTools(tools)
	var invoker tool.Invoker = tools
	if cfg.Breaker.Enabled {
		invoker = tool.NewBreakerInvoker(tools, tool.BreakerConfig{
			MaxFailures: cfg.Breaker.MaxFailures,
			Timeout:     cfg.Breaker.Timeout.Std(),
			Interval:    cfg.Breaker.Interval.Std(),
		}, logger)
	}

	executor := task.NewExecutor(registry, invoker, memory.NewTracker(registry, logger), task.Config{
		MaxConcurrent:    cfg.Executor.MaxConcurrent,
		TaskTimeout:      cfg.Executor.TaskTimeout.Std(),
		DefaultUserID:    cfg.Executor.DefaultUserID,
		DefaultSessionID: cfg.Executor.DefaultSessionID,
	}, logger)
	executor.SetMetrics(collector)

	orch := orchestrator.New(executor, orchestrator.Config{Timeout: cfg.Collaboration.Timeout.Std()}, logger)
	orch.SetMetrics(collector)

	if pgStore != nil {
		restore(pgStore, registry, executor, orch, logger)
		registry.SetPersister(pgStore)
		executor.SetPersister(pgStore)
		orch.SetPersister(pgStore)
	}

	// Initialize communication log
	var commLog comms.Log = comms.NewMemoryLog()
	var redisLog *comms.RedisLog
	if cfg.Comms.Backend == "redis" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rl, rErr := comms.DialRedis(ctx, cfg.Database.Redis.URL, logger)
		cancel()
		if rErr != nil {
			logger.Warn("Redis unavailable, keeping messages in memory", zap.Error(rErr))
		} else {
			redisLog = rl
			commLog = rl
			logger.Info("Redis communication log connected")
		}
	}
	commsSvc := comms.NewService(commLog, logger)

	reports := analytics.New(registry, executor, orch)

	// Build HTTP handler
	var db api.Pinger
	if pgStore != nil {
		db = pgStore
	}
	handler := api.NewHandler(registry, executor, orch, commsSvc, reports, tools, collector, db, logger)

	// Start server
	port := fmt.Sprintf("%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("AuraOS listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down AuraOS...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := orch.Shutdown(ctx); err != nil {
		logger.Warn("orchestrator shutdown", zap.Error(err))
	}
	if err := executor.Shutdown(ctx); err != nil {
		logger.Warn("executor shutdown", zap.Error(err))
	}
	if redisLog != nil {
		redisLog.Close()
	}
	if pgStore != nil {
		pgStore.Close()
	}
}

// restore loads persisted snapshots before persisters are attached, so the
// reload itself writes nothing except interrupted work being marked failed.
func restore(ps *pgstore.Store, registry *agent.Registry, executor *task.Executor, orch *orchestrator.Orchestrator, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	agents, err := ps.ListAgents(ctx)
	if err != nil {
		logger.Warn("failed to load agents from DB", zap.Error(err))
		return
	}
	for _, a := range agents {
		registry.Restore(a)
	}

	executor.SetPersister(ps)
	orch.SetPersister(ps)

	tasks, err := ps.ListTasks(ctx)
	if err != nil {
		logger.Warn("failed to load tasks from DB", zap.Error(err))
	}
	for _, t := range tasks {
		executor.Restore(t)
	}

	collabs, err := ps.ListCollaborations(ctx)
	if err != nil {
		logger.Warn("failed to load collaborations from DB", zap.Error(err))
	}
	for _, c := range collabs {
		orch.Restore(c)
	}

	logger.Info("Loaded state from DB",
		zap.Int("agents", len(agents)),
		zap.Int("tasks", len(tasks)),
		zap.Int("collaborations", len(collabs)))
}
