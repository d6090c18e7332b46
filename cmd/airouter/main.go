package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/pagecraft/ai-router/internal/api"
	"github.com/pagecraft/ai-router/internal/auth"
	"github.com/pagecraft/ai-router/internal/budget"
	"github.com/pagecraft/ai-router/internal/cache"
	"github.com/pagecraft/ai-router/internal/config"
	"github.com/pagecraft/ai-router/internal/dispatch"
	"github.com/pagecraft/ai-router/internal/domain"
	"github.com/pagecraft/ai-router/internal/engine"
	"github.com/pagecraft/ai-router/internal/health"
	"github.com/pagecraft/ai-router/internal/ledger"
	"github.com/pagecraft/ai-router/internal/notifications"
	"github.com/pagecraft/ai-router/internal/policy"
	"github.com/pagecraft/ai-router/internal/provider/anthropic"
	"github.com/pagecraft/ai-router/internal/provider/bedrock"
	"github.com/pagecraft/ai-router/internal/provider/ollama"
	"github.com/pagecraft/ai-router/internal/provider/openai"
	"github.com/pagecraft/ai-router/internal/provider/stability"
	"github.com/pagecraft/ai-router/internal/queue"
	"github.com/pagecraft/ai-router/internal/ratelimit"
	"github.com/pagecraft/ai-router/internal/registry"
	"github.com/pagecraft/ai-router/internal/secrets"
	"github.com/pagecraft/ai-router/internal/telemetry"
	"github.com/pagecraft/ai-router/internal/tenant"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	slog.Info("starting AI router", "addr", cfg.Addr, "version", "0.1.0")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.Init(ctx, "ai-router", cfg.OTLPEndpoint)
	if err != nil {
		slog.Error("failed to init tracing", "error", err)
		os.Exit(1)
	}

	secretSource := buildSecretSource(ctx, cfg)

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		db, err = openPostgres(cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
	}

	tenantRepo := buildTenantRepo(cfg, db)
	usageLedger, gate := buildLedger(tenantRepo, db)

	reg := registry.Default()
	routingPolicy := policy.New(reg)

	adapters := buildAdapters(ctx, cfg, secretSource)
	if len(adapters) == 0 {
		slog.Error("no providers configured")
		os.Exit(1)
	}

	tracker := buildHealthTracker(cfg, reg)

	dispatcher := dispatch.New(reg, adapters,
		dispatch.WithObserver(tracker),
		dispatch.WithCallTimeout(cfg.DispatchTimeout),
	)

	engineOpts := buildEngineOpts(ctx, cfg, usageLedger)

	eng := engine.New(routingPolicy, gate, usageLedger, dispatcher, tenantRepo, engineOpts...)

	rateLimiter := buildRateLimiter(cfg)

	var ready []api.ReadinessCheck
	if db != nil {
		ready = append(ready, func(r *http.Request) error {
			return db.PingContext(r.Context())
		})
	}

	handler := api.NewHandler(api.HandlerConfig{
		Tenants:  tenantRepo,
		Limiter:  rateLimiter,
		Engine:   eng,
		Insights: usageLedger,
		Registry: reg,
		Health:   tracker,
		Ready:    ready,
	})

	adminCred := auth.Admin{
		Username:     cfg.AdminUsername,
		PasswordHash: cfg.AdminPasswordHash,
	}

	mux := http.NewServeMux()
	mux.Handle("/admin/", api.NewAdminHandler(tenantRepo, reg, adminCred))
	mux.Handle("/", handler)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go tracker.Run(ctx, 30*time.Second)

	go func() {
		slog.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	// Stop background work after in-flight requests drain.
	cancel()

	drainCtx, drainCancel := context.WithTimeout(context.Background(), cfg.DrainTimeout)
	defer drainCancel()
	if err := shutdownTracing(drainCtx); err != nil {
		slog.Warn("tracing shutdown failed", "error", err)
	}

	slog.Info("server stopped")
}

// buildSecretSource prefers AWS Secrets Manager when enabled, falling back
// to environment variables with optional at-rest decryption.
func buildSecretSource(ctx context.Context, cfg *config.Config) secrets.Source {
	if cfg.UseAWSSecrets && cfg.AWSRegion != "" {
		src, err := secrets.NewManagerSource(ctx, cfg.AWSRegion)
		if err != nil {
			slog.Error("failed to init secrets manager", "error", err)
			os.Exit(1)
		}
		slog.Info("using AWS Secrets Manager", "region", cfg.AWSRegion)
		return src
	}
	return secrets.NewEnvSource(cfg.EncryptionKey)
}

func openPostgres(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

func buildTenantRepo(cfg *config.Config, db *sql.DB) tenant.Repository {
	var repo tenant.Repository
	if db != nil {
		repo = tenant.NewPostgresRepository(db)
		slog.Info("using postgres tenant repository")
	} else {
		repo = tenant.NewInMemoryRepository()
		slog.Info("using in-memory tenant repository")
	}

	var tenantCache cache.TenantCache
	if cfg.RedisURL != "" {
		c, err := cache.NewRedisCache(cfg.RedisURL)
		if err != nil {
			slog.Warn("failed to connect to redis for tenant cache, using in-memory", "error", err)
			tenantCache = cache.NewInMemoryCache()
		} else {
			tenantCache = c
		}
	} else {
		tenantCache = cache.NewInMemoryCache()
	}
	return cache.NewCachingRepository(repo, tenantCache, time.Minute)
}

func buildLedger(plans ledger.PlanSource, db *sql.DB) (*ledger.Ledger, *ledger.Gate) {
	var store ledger.Store
	if db != nil {
		store = ledger.NewPostgresStoreWithDB(db)
		slog.Info("using postgres usage store")
	} else {
		store = ledger.NewInMemoryStore()
		slog.Info("using in-memory usage store")
	}
	l := ledger.New(store, plans)
	return l, ledger.NewGate(l)
}

// buildAdapters registers one adapter per configured backend. Credentials
// resolve through the secret source so they can live in Secrets Manager or
// encrypted environment values.
func buildAdapters(ctx context.Context, cfg *config.Config, src secrets.Source) []dispatch.ProviderAdapter {
	var adapters []dispatch.ProviderAdapter

	if key := resolveSecret(ctx, src, "OPENAI_API_KEY", cfg.OpenAIAPIKey); key != "" {
		adapters = append(adapters, openai.New(key, cfg.OpenAIBaseURL))
		slog.Info("registered provider", "provider", "openai")
	}

	if key := resolveSecret(ctx, src, "ANTHROPIC_API_KEY", cfg.AnthropicAPIKey); key != "" {
		adapters = append(adapters, anthropic.New(key))
		slog.Info("registered provider", "provider", "anthropic")
	}

	if key := resolveSecret(ctx, src, "STABILITY_API_KEY", cfg.StabilityAPIKey); key != "" {
		adapters = append(adapters, stability.New(key))
		slog.Info("registered provider", "provider", "stability")
	}

	if cfg.OllamaBaseURL != "" {
		adapters = append(adapters, ollama.New(cfg.OllamaBaseURL))
		slog.Info("registered provider", "provider", "ollama", "url", cfg.OllamaBaseURL)
	}

	if cfg.AWSRegion != "" {
		adapter, err := bedrock.New(ctx, cfg.AWSRegion)
		if err != nil {
			slog.Warn("failed to init bedrock adapter", "error", err)
		} else {
			adapters = append(adapters, adapter)
			slog.Info("registered provider", "provider", "bedrock", "region", cfg.AWSRegion)
		}
	}

	return adapters
}

func resolveSecret(ctx context.Context, src secrets.Source, name, fallback string) string {
	if v, err := src.Get(ctx, name); err == nil && v != "" {
		return v
	}
	return fallback
}

// modelHealth is what both tracker implementations provide: dispatch
// observation plus the status view the health endpoint serves.
type modelHealth interface {
	dispatch.Observer
	Statuses() map[string]domain.ModelAvailability
	Run(ctx context.Context, interval time.Duration)
}

// buildHealthTracker wires per-model availability into the registry. With
// redis configured the counters are shared across instances; either way a
// wrapping sink publishes down/recovered transitions.
func buildHealthTracker(cfg *config.Config, reg *registry.Registry) modelHealth {
	var sink health.Sink = reg
	if cfg.SNSTopicArn != "" && cfg.AWSRegion != "" {
		notifier, err := notifications.NewSNSNotifier(context.Background(), cfg.AWSRegion, cfg.SNSTopicArn)
		if err != nil {
			slog.Warn("failed to init sns notifier for health events", "error", err)
		} else {
			sink = notifications.NewHealthSink(reg, notifier)
		}
	}

	hcfg := health.DefaultConfig()
	if cfg.RedisURL != "" {
		tracker, err := health.NewRedisTracker(cfg.RedisURL, sink, hcfg)
		if err == nil {
			slog.Info("using redis health tracker")
			return tracker
		}
		slog.Warn("failed to connect to redis for health tracking, using in-memory", "error", err)
	}

	return health.NewTracker(sink, hcfg)
}

func buildEngineOpts(ctx context.Context, cfg *config.Config, l *ledger.Ledger) []engine.Option {
	var opts []engine.Option

	if cfg.RedisURL != "" {
		reserver, err := ledger.NewRedisReserver(cfg.RedisURL)
		if err != nil {
			slog.Error("failed to connect to redis for budget reservations", "error", err)
			os.Exit(1)
		}
		opts = append(opts, engine.WithReserver(reserver))
		slog.Info("using redis budget reservations")
	}

	if cfg.UsageQueueURL != "" && cfg.AWSRegion != "" {
		exporter, err := queue.NewSQSExporter(ctx, cfg.AWSRegion, cfg.UsageQueueURL)
		if err != nil {
			slog.Warn("failed to init usage exporter", "error", err)
		} else {
			opts = append(opts, engine.WithExporter(exporter))
			slog.Info("exporting usage records", "queue", cfg.UsageQueueURL)
		}
	}

	var dedup budget.Deduplicator
	if cfg.RedisURL != "" {
		d, err := budget.NewRedisDeduplicator(cfg.RedisURL, 48*time.Hour)
		if err != nil {
			slog.Warn("failed to connect to redis for alert dedup, using in-memory", "error", err)
			dedup = budget.NewInMemoryDeduplicator()
		} else {
			dedup = d
		}
	} else {
		dedup = budget.NewInMemoryDeduplicator()
	}

	monitor := budget.NewMonitor(l, budget.DefaultThresholds(), dedup)
	monitor.OnAlert(budget.LogAlertHandler)
	if cfg.SNSTopicArn != "" && cfg.AWSRegion != "" {
		notifier, err := notifications.NewSNSNotifier(ctx, cfg.AWSRegion, cfg.SNSTopicArn)
		if err != nil {
			slog.Warn("failed to init sns notifier for budget alerts", "error", err)
		} else {
			monitor.OnAlert(notifications.BudgetAlertHandler(notifier))
		}
	}
	opts = append(opts, engine.WithAfterRecord(monitor.AfterRecord))

	return opts
}

func buildRateLimiter(cfg *config.Config) ratelimit.Limiter {
	if cfg.RedisURL != "" {
		limiter, err := ratelimit.NewRedisLimiter(cfg.RedisURL)
		if err == nil {
			slog.Info("using redis rate limiter")
			return limiter
		}
		slog.Warn("failed to connect to redis for rate limiting, using in-memory", "error", err)
	}
	slog.Info("using in-memory rate limiter")
	return ratelimit.NewInMemoryLimiter()
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
