package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"inkpost.dev/internal/auth"
	"inkpost.dev/internal/blog"
	"inkpost.dev/internal/config"
	"inkpost.dev/internal/cryptox"
	"inkpost.dev/internal/httpapi"
	"inkpost.dev/internal/migrate"
	"inkpost.dev/internal/obs"
	"inkpost.dev/internal/ratelimit"
	"inkpost.dev/internal/store/pg"
	"inkpost.dev/internal/token"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	boot := bootLogger(zapcore.Lock(os.Stderr))

	cfg, err := config.Load()
	if err != nil {
		boot.Fatal("load config", zap.Error(err))
	}

	logger, err := obs.NewLogger(cfg.LogLevel)
	if err != nil {
		boot.Fatal("build logger", zap.Error(err))
	}
	defer obs.SetLogger(logger)()
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api stopped", zap.Error(err))
	}
	logger.Info("stopped")
}

// bootLogger reports failures that happen before LOG_LEVEL is known.
func bootLogger(w zapcore.WriteSyncer) *zap.Logger {
	enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	return zap.New(zapcore.NewCore(enc, w, zapcore.InfoLevel))
}

func run(cfg config.Config, logger *zap.Logger) error {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		store blog.Store
		db    *sql.DB
	)
	if cfg.PGDSN != "" {
		pgStore, err := openStore(ctx, cfg.PGDSN, logger)
		if err != nil {
			return err
		}
		defer pgStore.Close()
		store, db = pgStore, pgStore.DB()
	} else {
		logger.Warn("BLOG_PG_DSN not set, using in-memory store")
		store = blog.NewInMemory()
	}

	var (
		general ratelimit.Limiter = ratelimit.NewMemory(ratelimit.General)
		authLim ratelimit.Limiter = ratelimit.NewMemory(ratelimit.Auth)
		rdb     redis.UniversalClient
	)
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		general = ratelimit.NewRedis(rdb, "rl:general", ratelimit.General)
		authLim = ratelimit.NewRedis(rdb, "rl:auth", ratelimit.Auth)
	}

	tokens, err := token.NewService(token.Config{
		AccessSecret:  cfg.AccessSecret,
		RefreshSecret: cfg.RefreshSecret,
		PayloadKey:    cfg.PayloadKey,
		Cipher:        cryptox.New(cfg.DefaultKey),
	})
	if err != nil {
		return err
	}

	api := httpapi.New(httpapi.Deps{
		Ready:          httpapi.ReadyProbe{DB: db, Redis: rdb},
		Version:        version,
		Tokens:         tokens,
		Auth:           auth.NewService(store, tokens),
		Blog:           blog.NewService(store),
		GeneralLimiter: general,
		AuthLimiter:    authLim,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting inkpost-api", zap.String("version", version), zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openStore connects to PostgreSQL, retrying the initial ping, and applies
// pending migrations.
func openStore(ctx context.Context, dsn string, logger *zap.Logger) (*pg.Store, error) {
	store, err := pg.Open(dsn)
	if err != nil {
		return nil, err
	}

	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := store.DB().PingContext(ctx); err != nil {
			logger.Warn("database not reachable, retrying", zap.Error(err))
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	applied, err := migrate.NewManager(store.DB(), nil).Up(ctx)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if len(applied) > 0 {
		logger.Info("migrations applied", zap.Strings("names", applied))
	}
	logger.Info("connected to PostgreSQL")
	return store, nil
}
