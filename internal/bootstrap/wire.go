package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/okravchuk/contacts-api/internal/application/auth"
	"github.com/okravchuk/contacts-api/internal/config"
	"github.com/okravchuk/contacts-api/internal/domain"
	"github.com/okravchuk/contacts-api/internal/infrastructure/db/postgres"
	"github.com/okravchuk/contacts-api/internal/infrastructure/memory"
	"github.com/okravchuk/contacts-api/internal/infrastructure/messaging/rabbitmq"
	"github.com/okravchuk/contacts-api/internal/infrastructure/redis"
	"github.com/okravchuk/contacts-api/internal/infrastructure/security"
	"github.com/okravchuk/contacts-api/internal/logger"
	"github.com/okravchuk/contacts-api/internal/transport/http/handlers"
	"github.com/okravchuk/contacts-api/internal/transport/http/middleware"
	"github.com/okravchuk/contacts-api/internal/transport/http/response"
	"github.com/okravchuk/contacts-api/internal/transport/http/router"
)

// NewServer assembles the production server from environment configuration.
// The returned cleanup releases connections in reverse acquisition order and
// is safe to call more than once.
func NewServer() (*http.Server, func(), error) {
	return newServer(defaultDeps())
}

// NewServerWithDeps allows injecting constructors for testing.
func NewServerWithDeps(deps Deps) (*http.Server, func(), error) {
	return newServer(deps)
}

type Deps struct {
	LoadConfig func() (*config.Config, error)

	NewDB func(dsn string) (*sql.DB, error)

	NewRedis func(addr string) *redis.Client

	NewPublisher func(url string) (auth.EventPublisher, error)

	NewRouter func(router.Deps) (http.Handler, error)
}

func defaultDeps() Deps {
	return Deps{
		LoadConfig: config.Load,
		NewDB:      config.NewDB,
		NewRedis: func(addr string) *redis.Client {
			return redis.New(addr, "", 0)
		},
		NewPublisher: func(url string) (auth.EventPublisher, error) {
			return rabbitmq.NewPublisher(url)
		},
		NewRouter: router.New,
	}
}

func newServer(deps Deps) (*http.Server, func(), error) {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	var cleanupFns []func()
	fail := func(err error) (*http.Server, func(), error) {
		runCleanup(cleanupFns)
		return nil, nil, err
	}

	hasher := security.NewBcryptHasher(cfg.BcryptCost)

	// user store: postgres when an address is configured, in-memory otherwise
	// (config.Load only permits a missing DB_ADDR in dev)
	var users auth.UserRepo
	var sqlDB *sql.DB
	if cfg.DBAddr != "" {
		db, err := deps.NewDB(cfg.DBAddr)
		if err != nil {
			return fail(fmt.Errorf("bootstrap: open db: %w", err))
		}
		cleanupFns = append(cleanupFns, func() { _ = db.Close() })

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = postgres.EnsureSchema(ctx, db)
		cancel()
		if err != nil {
			return fail(fmt.Errorf("bootstrap: ensure schema: %w", err))
		}

		repo := postgres.NewUserRepo(db)
		if cfg.Env == "dev" {
			postgres.SeedUsers(context.Background(), repo, hasher)
		}
		users = repo
		sqlDB = db
	} else {
		logger.Logger.Warn().Msg("DB_ADDR not set; using in-memory user store")
		repo := memory.NewUserRepo()
		memory.SeedUsers(context.Background(), repo, hasher)
		users = repo
	}

	// redis is best-effort: without it the identity cache is skipped and
	// verify tokens live in process memory
	var redisCli *redis.Client
	if cfg.RedisAddr != "" && deps.NewRedis != nil {
		c := deps.NewRedis(cfg.RedisAddr)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := c.Ping(ctx)
		cancel()
		if err != nil {
			logger.Logger.Warn().Err(err).Msg("redis unavailable; identity cache disabled")
			_ = c.Close()
		} else {
			logger.Logger.Info().Msg("redis connected")
			redisCli = c
			cleanupFns = append(cleanupFns, func() { _ = c.Close() })
		}
	}

	if redisCli != nil {
		users = redis.NewCachedUserRepo(users, redisCli, cfg.IdentityCacheTTL)
	}

	var verifyTokens auth.VerifyTokenStore
	if redisCli != nil {
		verifyTokens = redis.NewVerifyTokenStore(redisCli)
	} else {
		verifyTokens = memory.NewVerifyTokenStore()
	}

	// publisher: dev degrades to a logging noop, prod fails fast
	var pub auth.EventPublisher
	if cfg.RabbitURL == "" {
		pub = memory.NewNoopPublisher()
	} else {
		p, err := deps.NewPublisher(cfg.RabbitURL)
		if err != nil {
			if cfg.Env != "dev" {
				return fail(fmt.Errorf("bootstrap: rabbitmq: %w", err))
			}
			logger.Logger.Warn().Err(err).Msg("rabbitmq unavailable; using noop publisher")
			p = memory.NewNoopPublisher()
		}
		pub = p
	}
	if c, ok := pub.(interface{ Close() error }); ok {
		cleanupFns = append(cleanupFns, func() { _ = c.Close() })
	}

	signer := security.NewJWTSigner(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenLeeway)
	avatars := memory.NewAvatarStore("")

	svc := auth.NewService(users, hasher, signer, verifyTokens, pub, avatars, auth.Config{
		AccessTTL:           cfg.AccessTokenTTL,
		RefreshTTL:          cfg.RefreshTokenTTL,
		VerifyEmailBaseURL:  cfg.VerifyEmailBaseURL,
		VerifyEmailTokenTTL: cfg.VerifyEmailTokenTTL,
	})
	svc = svc.WithAudit(func(action string, fields map[string]string) {
		evt := logger.Logger.Info().Bool("audit", true).Str("action", action)
		for k, v := range fields {
			evt = evt.Str(k, v)
		}
		evt.Msg("audit")
	})

	workerCtx, stopWorker := context.WithCancel(context.Background())
	cleanupFns = append(cleanupFns, stopWorker)
	go svc.RunAvatarWorker(workerCtx)

	mux, err := deps.NewRouter(router.Deps{
		Health:         handlers.NewHealthHandler(sqlDB),
		Auth:           handlers.NewAuthHandler(svc),
		AuthMW:         middleware.Auth(signer, users, response.WriteError),
		VerifiedMW:     middleware.RequireVerified(response.WriteError),
		AdminMW:        middleware.RequireAtLeast(string(domain.RoleAdmin), response.WriteError),
		RequestTimeout: cfg.RequestTimeout,
	})
	if err != nil {
		return fail(err)
	}

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	var once sync.Once
	cleanup := func() {
		once.Do(func() { runCleanup(cleanupFns) })
	}
	return srv, cleanup, nil
}

func runCleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
