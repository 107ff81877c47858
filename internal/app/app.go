package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront-kart/internal/backend"
	"github.com/xenking/storefront-kart/internal/handler"
	"github.com/xenking/storefront-kart/internal/money"
	"github.com/xenking/storefront-kart/internal/session"
	"github.com/xenking/storefront-kart/internal/storage"
	"github.com/xenking/storefront-kart/internal/storage/postgres"
	"github.com/xenking/storefront-kart/internal/storage/redisslot"
	"github.com/xenking/storefront-kart/pkg/health"
	"github.com/xenking/storefront-kart/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, _ *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage.Kind),
	)

	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	slots, cleanup, err := newSlotStore(ctx, cfg.Storage, healthSvc)
	if err != nil {
		return errors.Wrap(err, "create slot store")
	}
	defer cleanup()

	api, err := newBackendClient(cfg.Backend, lg)
	if err != nil {
		return errors.Wrap(err, "create backend client")
	}

	sessions := session.NewManager(slots, api, lg.Named("session"),
		session.WithIdleTTL(cfg.Session.IdleTTL))
	defer sessions.Close()
	sessions.StartEviction(ctx, time.Minute)

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	h := handler.New(sessions, money.NewFormatter(cfg.Currency.Symbol, cfg.Currency.Digits))

	// Session cookie and rate limiting wrap only the cart API; health
	// probes must stay cookie-free and never hit the limiter.
	cartAPI := httpmiddleware.Wrap(h.Routes(),
		httpmiddleware.Session(httpmiddleware.SessionConfig{
			NewKey: sessions.NewKey,
			TTL:    cfg.Session.TTL,
			Secure: cfg.Session.Secure,
		}),
		httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
		}),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/", cartAPI)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// newSlotStore builds the configured slot storage backend and registers its
// readiness probe. The returned cleanup is safe to call on every path.
func newSlotStore(ctx context.Context, cfg StorageConfig, healthSvc *health.Service) (storage.SlotStore, func(), error) {
	noop := func() {}
	switch cfg.Kind {
	case "memory":
		return storage.NewMemory(), noop, nil

	case "file":
		store, err := storage.NewFile(cfg.FileDir)
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil

	case "redis":
		store, err := redisslot.New(ctx, cfg.RedisURL, cfg.RedisTTL)
		if err != nil {
			return nil, noop, err
		}
		healthSvc.AddReadinessCheck("redis", 5*time.Second, health.PingCheck(store.Ping))
		return store, func() { _ = store.Close() }, nil

	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, noop, err
		}
		healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool.Ping))
		return postgres.NewSlotStore(pool), pool.Close, nil

	default:
		return nil, noop, errors.Errorf("unknown storage backend %q", cfg.Kind)
	}
}

func newBackendClient(cfg BackendConfig, lg *zap.Logger) (*backend.Client, error) {
	opts := []backend.Option{
		backend.WithTimeout(cfg.Timeout),
		backend.WithUserAgent(cfg.UserAgent),
	}
	if cfg.Prefilter != "" {
		filter, err := backend.LoadPrefilter(cfg.Prefilter)
		if err != nil {
			return nil, errors.Wrap(err, "load coupon prefilter")
		}
		lg.Info("Coupon prefilter loaded", zap.String("path", cfg.Prefilter))
		opts = append(opts, backend.WithCouponPrefilter(filter))
	}
	return backend.New(cfg.URL, opts...), nil
}
