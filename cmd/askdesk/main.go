package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	cfhttp "github.com/Strob0t/askdesk/internal/adapter/http"
	"github.com/Strob0t/askdesk/internal/adapter/memstore"
	cfnats "github.com/Strob0t/askdesk/internal/adapter/nats"
	"github.com/Strob0t/askdesk/internal/adapter/natskv"
	cfotel "github.com/Strob0t/askdesk/internal/adapter/otel"
	"github.com/Strob0t/askdesk/internal/adapter/postgres"
	"github.com/Strob0t/askdesk/internal/adapter/ristretto"
	"github.com/Strob0t/askdesk/internal/adapter/tiered"
	"github.com/Strob0t/askdesk/internal/adapter/ws"
	"github.com/Strob0t/askdesk/internal/config"
	"github.com/Strob0t/askdesk/internal/domain"
	"github.com/Strob0t/askdesk/internal/logger"
	"github.com/Strob0t/askdesk/internal/middleware"
	"github.com/Strob0t/askdesk/internal/port/cache"
	"github.com/Strob0t/askdesk/internal/port/database"
	"github.com/Strob0t/askdesk/internal/port/messagequeue"
	"github.com/Strob0t/askdesk/internal/port/planprovider"
	"github.com/Strob0t/askdesk/internal/resilience"
	"github.com/Strob0t/askdesk/internal/service"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closer := logger.New(cfg.Logging)
	defer closer.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"storage", cfg.Storage.Driver,
		"nats", cfg.NATS.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Observability ---

	shutdownOTEL, err := cfotel.Setup(ctx, cfg.OTEL)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTEL(flushCtx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()

	metrics, err := cfotel.NewMetrics()
	if err != nil {
		slog.Warn("metrics unavailable", "error", err)
	}

	// --- Infrastructure ---

	store, plans, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var queue messagequeue.Queue
	var natsQueue *cfnats.Queue
	if cfg.NATS.Enabled {
		natsQueue, err = cfnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = natsQueue.Close() }()
		queue = natsQueue
	}

	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB)
	if err != nil {
		return fmt.Errorf("l1 cache: %w", err)
	}
	defer l1.Close()

	var l2 cache.Cache
	if natsQueue != nil && cfg.Cache.L2Enabled {
		kv, err := natskv.Open(ctx, natsQueue.JetStream(), cfg.NATS.KVBucket, cfg.Cache.TTL)
		if err != nil {
			slog.Warn("l2 cache unavailable, continuing with l1 only", "error", err)
		} else {
			l2 = kv
		}
	}
	catalogCache := tiered.New(l1, l2, cfg.Cache.TTL)

	// --- Services ---

	hub := ws.NewHub(originPatterns(cfg.Server.CORSOrigin)...)

	threads := service.NewThreadService(store, service.Classifier{DefaultShared: cfg.Threads.DefaultShared})
	threads.SetBroadcaster(hub)
	threads.SetMetrics(metrics)
	messages := service.NewMessageService(store)
	messages.SetBroadcaster(hub)
	if queue != nil {
		threads.SetQueue(queue)
		messages.SetQueue(queue)
	}
	locator := service.NewLocatorService(store, cfg.Sessions.FuzzyKeyMatch)
	catalog := service.NewCatalogService(store, catalogCache, cfg.Cache.TTL)

	contexts := service.NewContextService(store, locator, threads, messages, catalog, plans)
	contexts.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout,
		resilience.WithIgnoredErrors(domain.ErrNotFound)))
	contexts.SetMetrics(metrics)

	if queue != nil {
		relay := service.NewEventRelay(queue, hub, catalog)
		if err := relay.Start(ctx); err != nil {
			return fmt.Errorf("event relay: %w", err)
		}
		defer relay.Stop()
	}

	// --- HTTP ---

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopCleanup := limiter.StartCleanup(cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
	defer stopCleanup()

	handlers := &cfhttp.Handlers{
		Context:        contexts,
		Catalog:        catalog,
		Hub:            hub,
		Store:          store,
		Queue:          queue,
		CatalogL1:      l1,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		RequestTimeout: cfg.Server.RequestTimeout,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(cfotel.HTTPMiddleware(cfg.OTEL.ServiceName))
	r.Use(cfhttp.SecurityHeaders)
	r.Use(cfhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(cfhttp.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Identity)

	cfhttp.MountRoutes(r, handlers, limiter)

	addr := ":" + cfg.Server.Port

	// No WriteTimeout: the stream and voice routes are long-lived. Other
	// routes carry a per-route timeout.
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// openStore builds the configured storage backend. The returned plan
// provider is the store itself for both drivers.
func openStore(ctx context.Context, cfg *config.Config) (database.Store, planprovider.Provider, func(), error) {
	if cfg.Storage.Driver == "memory" {
		slog.Warn("using in-memory storage; data is lost on exit")
		s := memstore.New()
		return s, s, func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("postgres: %w", err)
	}
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	s := postgres.NewStore(pool)
	return s, s, pool.Close, nil
}

// originPatterns turns the CORS origin into a websocket origin pattern.
func originPatterns(corsOrigin string) []string {
	u, err := url.Parse(corsOrigin)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Host}
}
