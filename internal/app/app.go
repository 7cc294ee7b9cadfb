// Package app wires configuration, storage, the optional session cache and
// metrics endpoint, and the facade, and runs the interactive front end.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/modhub/internal/cli"
	"github.com/dmitrijs2005/modhub/internal/config"
	"github.com/dmitrijs2005/modhub/internal/dbx"
	"github.com/dmitrijs2005/modhub/internal/logging"
	"github.com/dmitrijs2005/modhub/internal/metrics"
	"github.com/dmitrijs2005/modhub/internal/password"
	"github.com/dmitrijs2005/modhub/internal/repositories/repomanager"
	"github.com/dmitrijs2005/modhub/internal/services"
	"github.com/dmitrijs2005/modhub/internal/sessioncache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Seams for tests.
var (
	openDB          = dbx.Open
	newRepoManager  = repomanager.NewPostgresRepositoryManager
	newSessionCache = sessioncache.New

	// shutdownGrace bounds how long Run waits for the front end after a
	// signal. A REPL blocked reading stdin never returns on its own.
	shutdownGrace = 3 * time.Second
)

type App struct {
	config *config.Config
	logger logging.Logger

	db            *sql.DB
	cache         *sessioncache.Cache
	facade        *services.Facade
	metricsServer *http.Server

	in  io.Reader
	out io.Writer
}

// NewApp connects to the database and brings the schema up to date. Either
// failure is returned and the application must not start.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stderr, c.LogLevel)

	db, err := openDB(ctx, c.DatabaseDSN, dbx.PoolOptions{
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		PingTimeout:     c.QueryTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := newRepoManager()
	if err := rm.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("schema init error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db, in: os.Stdin, out: os.Stdout}

	var cache services.SessionCache
	if c.RedisAddr != "" {
		sc, err := newSessionCache(ctx, sessioncache.Options{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB})
		if err != nil {
			logger.Warn(ctx, "session cache disabled", "addr", c.RedisAddr, logging.Err(err))
		} else {
			app.cache = sc
			cache = sc
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db, "modhub"),
	)
	rec, err := metrics.New(reg)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("metrics init error: %w", err)
	}
	if c.MetricsAddr != "" {
		app.metricsServer = &http.Server{
			Addr:              c.MetricsAddr,
			Handler:           metricsHandler(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	us := services.NewUserService(db, rm, password.NewHasher(c.PasswordHashCost), cache, c.SessionTTL, logger)
	ms := services.NewModService(db, rm, us, logger)
	app.facade = services.NewFacade(us, ms, logger, rec, c.QueryTimeout)

	return app, nil
}

func metricsHandler(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux
}

// Facade exposes the wired facade, mainly for embedding callers.
func (app *App) Facade() *services.Facade {
	return app.facade
}

// Run serves the REPL until the user exits or a termination signal arrives.
// On a signal, an in-flight facade call is cancelled and Run waits up to
// shutdownGrace for the REPL to stop before releasing the pool. The caller is
// expected to exit the process once Run returns.
func (app *App) Run(ctx context.Context) {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app.logger.Info(ctx, "Starting app...")
	defer app.Close()

	if app.metricsServer != nil {
		go func() {
			app.logger.Info(ctx, "metrics endpoint listening", "addr", app.metricsServer.Addr)
			if err := app.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				app.logger.Error(ctx, "metrics server failed", logging.Err(err))
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		cli.NewApp(app.facade, app.in, app.out).Run(ctx)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		app.logger.Info(context.Background(), "shutting down")
		select {
		case <-done:
		case <-time.After(shutdownGrace):
			app.logger.Warn(context.Background(), "front end did not stop in time, closing anyway")
		}
	}
}

// Close releases everything NewApp opened. It is safe to call more than once.
func (app *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if app.metricsServer != nil {
		_ = app.metricsServer.Shutdown(ctx)
		app.metricsServer = nil
	}
	if app.cache != nil {
		if err := app.cache.Close(); err != nil {
			app.logger.Warn(ctx, "session cache close failed", logging.Err(err))
		}
		app.cache = nil
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Warn(ctx, "db close failed", logging.Err(err))
		}
		app.db = nil
	}
}
