// quartermaster-server serves the procurement planner over REST and
// WebSocket, with Prometheus metrics on a separate listener.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"quartermaster/internal/catalog"
	"quartermaster/internal/config"
	"quartermaster/internal/constraints"
	"quartermaster/internal/llm"
	"quartermaster/internal/observability"
	"quartermaster/internal/planner"
	"quartermaster/internal/server"
	"quartermaster/internal/session"
	"quartermaster/internal/tools"
	"quartermaster/internal/tools/builtin"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	// Best effort; a missing .env is the normal case.
	_ = godotenv.Load()

	configPath := os.Getenv("QUARTERMASTER_CONFIG")
	if configPath == "" {
		configPath = "quartermaster.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	slogger := observability.NewLogger(cfg.Observability.Logging, nil)
	logger := printfLogger{slogger}

	metrics, err := observability.NewMetricsCollector(cfg.Observability.Metrics)
	if err != nil {
		return err
	}
	tracer, err := observability.NewTracerProvider(cfg.Observability.Tracing)
	if err != nil {
		return err
	}

	clients := llm.NewFactory(cfg.LLM.Settings(logger, func(inputTokens, outputTokens int) {
		metrics.RecordLLMTokens(context.Background(), inputTokens, outputTokens)
	}))

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	index, err := catalog.NewIndex(ctx, cat)
	if err != nil {
		// Search endpoint degrades to 503; planning is unaffected.
		slogger.Warn("semantic index unavailable", "error", err)
		index = nil
	}

	cacheConfig := tools.CacheConfig{
		MaxSize: cfg.Tools.CacheSize,
		TTL:     time.Duration(cfg.Tools.CacheTTLSeconds) * time.Second,
		OnEvent: func(hit bool) {
			metrics.RecordToolCacheEvent(context.Background(), hit)
		},
	}
	registry := tools.NewRegistry()
	if err := registry.Register(tools.NewCached(builtin.NewPriceHistory(), cacheConfig)); err != nil {
		return err
	}
	if err := registry.Register(tools.NewCached(builtin.NewAvailability(), cacheConfig)); err != nil {
		return err
	}

	p := planner.New(cat, registry,
		planner.WithLogger(logger),
		planner.WithMetrics(metrics),
		planner.WithTracer(tracer),
		planner.WithClientFactory(planner.ClientFactory(clients)),
	)

	sessions := session.NewManager(session.NewStore(cfg.Sessions.Dir, logger))

	srv := server.New(cfg.Server, server.Deps{
		Catalog:         cat,
		Index:           index,
		Planner:         p,
		Constraints:     constraints.NewService(),
		Sessions:        sessions,
		Logger:          logger,
		Metrics:         metrics,
		Tracer:          tracer,
		Clients:         clients,
		DefaultProvider: cfg.LLM.Provider,
		DefaultAPIKey:   cfg.LLM.APIKey,
	})

	slogger.Info("starting quartermaster server",
		"addr", cfg.Server.Addr(),
		"catalog", cfg.CatalogPath,
		"items", cat.Len(),
		"llm_provider", cfg.LLM.Provider,
		"api_key", observability.SanitizeAPIKey(cfg.LLM.APIKey),
	)

	if cfg.Observability.Metrics.Enabled {
		if err := metrics.StartPrometheusServer(cfg.Observability.Metrics.PrometheusPort); err != nil {
			return err
		}
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return srv.Run(groupCtx)
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := metrics.Shutdown(shutdownCtx); err != nil {
			slogger.Warn("metrics shutdown", "error", err)
		}
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			slogger.Warn("tracer shutdown", "error", err)
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		return err
	}
	slogger.Info("server stopped")
	return nil
}

// printfLogger adapts the structured logger to the printf-style interface
// the planning core logs through.
type printfLogger struct {
	logger *observability.Logger
}

func (l printfLogger) Debug(format string, args ...any) { l.logger.Debug(fmt.Sprintf(format, args...)) }
func (l printfLogger) Info(format string, args ...any)  { l.logger.Info(fmt.Sprintf(format, args...)) }
func (l printfLogger) Warn(format string, args ...any)  { l.logger.Warn(fmt.Sprintf(format, args...)) }
func (l printfLogger) Error(format string, args ...any) { l.logger.Error(fmt.Sprintf(format, args...)) }
