package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/eduquest/internal/adapters/http/api"
	"github.com/okian/eduquest/internal/adapters/http/swagger"
	"github.com/okian/eduquest/internal/adapters/index"
	"github.com/okian/eduquest/internal/adapters/repository"
	app "github.com/okian/eduquest/internal/app"
	"github.com/okian/eduquest/internal/config"
	"github.com/okian/eduquest/internal/domain/catalog"
	"github.com/okian/eduquest/internal/domain/question"
	"github.com/okian/eduquest/pkg/logger"
	"github.com/okian/eduquest/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		// The logger may not be available yet.
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.InitWith(os.Stdout, cfg.LogFormat); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	idx, err := buildIndex(ctx, cfg)
	if err != nil {
		_ = store.Close()
		return err
	}

	svc := app.New(serviceOptions(cfg, store, idx, log)...)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, svc, cfg),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
		}
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error(ctx, "service shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// buildStore opens the configured persistence backend.
func buildStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case "postgres":
		s, err := repository.NewPostgresStore(ctx, cfg.DatabaseURL, repository.WithMigrate(true))
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		return s, nil
	default:
		return repository.NewMemoryStore(), nil
	}
}

// buildIndex returns the Redis index when an address is configured and the
// in-process treap otherwise.
func buildIndex(ctx context.Context, cfg *config.Config) (index.Index, error) {
	if cfg.RedisAddr == "" {
		return index.NewTreap(), nil
	}
	r, err := index.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisKey)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return r, nil
}

func serviceOptions(cfg *config.Config, store repository.Store, idx index.Index, log logger.Logger) []app.Option {
	opts := []app.Option{
		app.WithLogger(log),
		app.WithStore(store),
		app.WithIndex(idx),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.EventQueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithInitialCredits(cfg.InitialCredits),
		app.WithLevelUpBonus(cfg.LevelUpBonus),
		app.WithChatCreditThreshold(cfg.ChatCreditThreshold),
		app.WithLeaderboardLimits(cfg.DefaultLeaderboardLimit, cfg.MaxLeaderboardLimit),
		app.WithInsightWindow(time.Duration(cfg.InsightWindowHours) * time.Hour),
		app.WithRebuildSchedule(cfg.IndexRebuildSchedule),
	}
	if acts := activities(cfg); len(acts) > 0 {
		opts = append(opts, app.WithActivities(acts...))
	}
	if qs := questions(cfg); len(qs) > 0 {
		opts = append(opts, app.WithQuestions(qs...))
	}
	return opts
}

func questions(cfg *config.Config) []question.Question {
	out := make([]question.Question, 0, len(cfg.Questions))
	for _, q := range cfg.Questions {
		out = append(out, question.Question{
			ID:       q.ID,
			Text:     q.Text,
			Category: q.Category,
			Level:    q.Level,
			Points:   q.Points,
		})
	}
	return out
}

func activities(cfg *config.Config) []catalog.Activity {
	out := make([]catalog.Activity, 0, len(cfg.Activities))
	for _, a := range cfg.Activities {
		out = append(out, catalog.Activity{
			ID:          a.ID,
			Title:       a.Title,
			Description: a.Description,
			Points:      a.Points,
			Type:        a.Type,
			IsActive:    a.IsActive(),
		})
	}
	return out
}

// newHandler registers the OpenAPI document and business routes.
func newHandler(ctx context.Context, svc *app.Service, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, api.WithJWTSecret(cfg.JWTSecret)).Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater refreshes gauges derived from service stats.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(ctx, svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics updates service-level metrics. GetStats refreshes the
// user and index gauges itself.
func updateServiceMetrics(ctx context.Context, svc *app.Service) {
	stats := svc.GetStats(ctx)

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if workerCount, ok := stats["workerCount"].(int); ok && stats["started"] == true {
		metrics.UpdateWorkerCount(workerCount)
	}
}
