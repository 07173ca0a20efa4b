// Package server wires configuration, storage, the token machinery and both
// transports into one process and runs it until a termination signal.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/stockpile/internal/logging"
	"github.com/dmitrijs2005/stockpile/internal/server/auth"
	"github.com/dmitrijs2005/stockpile/internal/server/config"
	"github.com/dmitrijs2005/stockpile/internal/server/metrics"
	"github.com/dmitrijs2005/stockpile/internal/server/passwords"
	"github.com/dmitrijs2005/stockpile/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/stockpile/internal/server/rest"
	"github.com/dmitrijs2005/stockpile/internal/server/services"
	"github.com/dmitrijs2005/stockpile/internal/server/sessions"
	"github.com/dmitrijs2005/stockpile/internal/server/tokens"
	"github.com/go-redis/redis/v8"

	gs "github.com/dmitrijs2005/stockpile/internal/server/grpc"
)

// Purger deletes lapsed session records.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	redis   *redis.Client
	purger  Purger
	grpc    *gs.GRPCServer
	http    *rest.Server
	closers []io.Closer
}

// NewApp opens the database, applies migrations, picks the session backend
// and builds both transports. The caller owns the returned App and must
// Close it.
func NewApp(ctx context.Context, c *config.Config, out io.Writer) (*App, error) {
	logger, err := logging.New(c.LogLevel, c.LogFormat, out)
	if err != nil {
		return nil, err
	}

	app := &App{config: c, logger: logger}

	db, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.db = db
	app.closers = append(app.closers, db)

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	var store sessions.Store
	switch c.SessionBackend {
	case config.BackendRedis:
		app.redis = redis.NewClient(&redis.Options{
			Addr:        c.RedisAddr,
			Password:    c.RedisPassword,
			DB:          c.RedisDB,
			DialTimeout: c.RedisDialTimeout,
		})
		app.closers = append(app.closers, app.redis)
		// The client connects lazily; a failed ping is reported, not fatal.
		if err := app.redis.Ping(ctx).Err(); err != nil {
			logger.Warn(ctx, "redis not reachable yet", "addr", c.RedisAddr, "error", err.Error())
		}
		store = sessions.NewRedisStore(app.redis)
	case config.BackendPostgres:
		pg := rm.Sessions(db)
		app.purger = pg
		store = pg
	default:
		_ = app.Close()
		return nil, fmt.Errorf("unknown session backend %q", c.SessionBackend)
	}

	codec, err := auth.NewJWTCodec([]byte(c.SecretKey))
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	hasher, err := passwords.NewBcryptHasher(passwords.DefaultCost)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	mt := metrics.NewAuth()
	ts := tokens.NewService(codec, hasher, store, logger)

	as, err := services.NewAuthService(db, rm, ts, hasher, mt, logger)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	app.grpc = gs.NewGRPCServer(c.EndpointAddrGRPC, logger, as, ts)
	app.http = rest.NewServer(c.EndpointAddrHTTP, logger, as, ts, mt.Handler())

	return app, nil
}

// Close releases the database and redis handles.
func (app *App) Close() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	return errors.Join(errs...)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run starts the gRPC server, the HTTP server and, for the postgres
// backend, the purge loop. A failure in either server stops the others.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "session_backend", app.config.SessionBackend)

	app.initSignalHandler(cancelFunc)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				app.logger.Error(ctx, "component failed", "component", name, "error", err.Error())
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("%s: %w", name, err)
				}
				mu.Unlock()
				cancelFunc()
			}
		}()
	}

	run("grpc", app.grpc.Run)
	run("http", app.http.Run)
	if app.purger != nil {
		run("purge", func(ctx context.Context) error {
			RunPurgeLoop(ctx, app.purger, app.config.PurgeInterval, app.logger)
			return nil
		})
	}

	wg.Wait()

	app.logger.Info(context.Background(), "App stopped")
	return firstErr
}

// RunPurgeLoop calls p.PurgeExpired every interval until ctx is done.
func RunPurgeLoop(ctx context.Context, p Purger, interval time.Duration, logger logging.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.PurgeExpired(ctx)
			if err != nil {
				logger.Error(ctx, "purge expired sessions", "error", err.Error())
				continue
			}
			if n > 0 {
				logger.Info(ctx, "purged expired sessions", "count", n)
			}
		}
	}
}
