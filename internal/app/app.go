package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/freelanceros/freelancer-os/internal/api"
	"github.com/freelanceros/freelancer-os/internal/api/handler"
	"github.com/freelanceros/freelancer-os/internal/api/middleware"
	"github.com/freelanceros/freelancer-os/internal/core/ports"
	"github.com/freelanceros/freelancer-os/internal/core/service"
	"github.com/freelanceros/freelancer-os/internal/infrastructure/db/memory"
	mongostore "github.com/freelanceros/freelancer-os/internal/infrastructure/db/mongo"
	redisstore "github.com/freelanceros/freelancer-os/internal/infrastructure/db/redis"
	"github.com/freelanceros/freelancer-os/internal/infrastructure/db/sqlite"
	"github.com/freelanceros/freelancer-os/internal/infrastructure/media"
	"github.com/freelanceros/freelancer-os/internal/infrastructure/oauth"
	"github.com/freelanceros/freelancer-os/internal/infrastructure/queue"
	"github.com/freelanceros/freelancer-os/internal/infrastructure/security"
	"github.com/freelanceros/freelancer-os/internal/pkg/config"
)

const shutdownTimeout = 30 * time.Second

// Options tune how the application is assembled.
type Options struct {
	// Registerer receives HTTP metrics. Defaults to the global registry.
	Registerer prometheus.Registerer
}

// App owns the HTTP server and every backend connection behind it.
type App struct {
	cfg *config.Config
	log zerolog.Logger

	Echo      *echo.Echo
	Workspace *service.Workspace
	Sessions  *service.SessionService

	limiter   *middleware.RateLimiter
	stopFeed  context.CancelFunc
	closers   []func(context.Context) error
	closeOnce sync.Once
	closeErr  error
}

// backends groups the storage chosen by STORE_DRIVER and FEED_DRIVER.
type backends struct {
	store    ports.RecordStore
	accounts ports.AccountRepository
	profiles ports.ProfileRepository
	feed     ports.ChangeFeed
	throttle ports.SignInThrottle
	revoker  ports.TokenRevoker
	pingers  []handler.Pinger

	localFeed *queue.LocalFeed
	closers   []func(context.Context) error
}

// New connects the configured backends and builds the services and router.
// On error every connection opened so far is closed.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts Options) (*App, error) {
	b, err := openBackends(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, log: log, closers: b.closers}

	feedCtx, cancel := context.WithCancel(context.Background())
	a.stopFeed = cancel
	if b.localFeed != nil {
		b.localFeed.Start(feedCtx)
	}

	sanitizer := security.NewSanitizer()
	a.Workspace = service.NewWorkspace(b.store, b.feed, log.With().Str("component", "workspace").Logger(), service.WorkspaceOptions{
		Sanitizer: sanitizer,
	})

	deps := service.SessionDeps{
		Accounts: b.accounts,
		Profiles: b.profiles,
		Records:  a.Workspace,
		Throttle: b.throttle,
		Revoker:  b.revoker,
	}
	if cfg.Upload.URL != "" {
		deps.Uploader = media.NewUploader(media.Config{URL: cfg.Upload.URL, Preset: cfg.Upload.Preset})
	} else {
		log.Warn().Msg("UPLOAD_URL not set, profile photo uploads are disabled")
	}
	if cfg.Google.Enabled() {
		deps.Federated = oauth.NewGoogleProvider(oauth.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURL,
		})
	} else {
		log.Info().Msg("Google sign-in not configured")
	}

	secret := cfg.JWTSecret
	if secret == "" {
		log.Warn().Msg("JWT_SECRET not set, using an insecure development secret")
		secret = "dev-secret"
	}
	a.Sessions = service.NewSessionService(deps, service.SessionConfig{
		JWTSecret:      secret,
		TokenTTL:       cfg.TokenTTL,
		MaxFailures:    cfg.SignIn.MaxFailures,
		FailureWindow:  cfg.SignIn.FailureWindow,
		MaxUploadBytes: cfg.Upload.MaxBytes,
	}, log.With().Str("component", "session").Logger())

	a.limiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
		PerMinute: cfg.RateLimit.PerMinute,
		Burst:     cfg.RateLimit.Burst,
	}, log)

	a.Echo = api.NewRouter(api.Deps{
		Sessions:      a.Sessions,
		Workspace:     a.Workspace,
		Insights:      service.NewInsightService(a.Workspace, log.With().Str("component", "insights").Logger()),
		Limiter:       a.limiter,
		Pingers:       b.pingers,
		Log:           log,
		Registerer:    opts.Registerer,
		SecureCookies: cfg.IsProduction(),
	})
	a.Echo.Server.ReadHeaderTimeout = 10 * time.Second

	return a, nil
}

func openBackends(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*backends, error) {
	b := &backends{}
	fail := func(err error) (*backends, error) {
		_ = closeAll(context.Background(), b.closers, log)
		return nil, err
	}

	switch cfg.StoreDriver {
	case config.StoreMongo:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return fail(err)
		}
		b.closers = append(b.closers, client.Disconnect)
		b.store = mongostore.NewRecordStore(db)
		b.accounts = mongostore.NewAccountRepository(db)
		b.profiles = mongostore.NewProfileRepository(db)
		b.pingers = append(b.pingers, mongostore.NewPinger(client))
		log.Info().Str("database", cfg.Mongo.Database).Msg("connected to MongoDB")

	case config.StoreSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return fail(err)
		}
		b.closers = append(b.closers, func(context.Context) error { return db.Close() })
		b.store = sqlite.NewRecordStore(db)
		b.accounts = sqlite.NewAccountRepository(db)
		b.profiles = sqlite.NewProfileRepository(db)
		b.pingers = append(b.pingers, db)
		log.Info().Str("path", cfg.SQLite.Path).Msg("opened SQLite database")

	default:
		b.store = memory.NewRecordStore()
		b.accounts = memory.NewAccountRepository()
		b.profiles = memory.NewProfileRepository()
		log.Warn().Msg("using in-memory storage, data is lost on restart")
	}

	var rdb *goredis.Client
	if cfg.FeedDriver == config.FeedRedis {
		client, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return fail(err)
		}
		rdb = client
		b.closers = append(b.closers, func(context.Context) error { return client.Close() })
		b.pingers = append(b.pingers, redisstore.NewPinger(client))
		log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to Redis")
	}

	if rdb != nil {
		b.feed = redisstore.NewFeed(rdb, log.With().Str("component", "feed").Logger())
		b.throttle = redisstore.NewSignInThrottle(rdb)
		b.revoker = redisstore.NewTokenRevoker(rdb)
	} else {
		b.localFeed = queue.NewLocalFeed(cfg.FeedWorkers, log.With().Str("component", "feed").Logger())
		b.feed = b.localFeed
		b.throttle = memory.NewSignInThrottle()
		b.revoker = memory.NewTokenRevoker()
	}
	return b, nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("port", a.cfg.Port).Str("store", a.cfg.StoreDriver).Str("feed", a.cfg.FeedDriver).Msg("API server starting")
		if err := a.Echo.Start(":" + a.cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			_ = a.Close(context.Background())
			return fmt.Errorf("server listen: %w", err)
		}
	case <-ctx.Done():
	}

	a.log.Info().Msg("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.Echo.Shutdown(shutdownCtx); err != nil {
		a.log.Error().Err(err).Msg("server shutdown failed")
	}
	if err := a.Close(shutdownCtx); err != nil {
		return err
	}
	a.log.Info().Msg("API server stopped gracefully")
	return nil
}

// Close stops background workers and releases backend connections. Only the
// first call has any effect.
func (a *App) Close(ctx context.Context) error {
	a.closeOnce.Do(func() {
		if a.limiter != nil {
			a.limiter.Stop()
		}
		if a.stopFeed != nil {
			a.stopFeed()
		}
		a.closeErr = closeAll(ctx, a.closers, a.log)
	})
	return a.closeErr
}

func closeAll(ctx context.Context, closers []func(context.Context) error, log zerolog.Logger) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](ctx); err != nil {
			log.Error().Err(err).Msg("closing backend")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
