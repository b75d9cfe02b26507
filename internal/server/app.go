// Package server wires configuration, storage, services and transports into
// the running fileshare server, and hosts the mail worker.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/fileshare/internal/cryptox"
	"github.com/dmitrijs2005/fileshare/internal/logging"
	"github.com/dmitrijs2005/fileshare/internal/server/config"
	"github.com/dmitrijs2005/fileshare/internal/server/httpapi"
	"github.com/dmitrijs2005/fileshare/internal/server/metrics"
	"github.com/dmitrijs2005/fileshare/internal/server/services"
	"github.com/dmitrijs2005/fileshare/internal/server/sessions"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	gs "github.com/dmitrijs2005/fileshare/internal/server/grpc"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config   *config.Config
	logger   logging.Logger
	http     *http.Server
	grpc     *gs.GRPCServer
	janitor  *sessions.MemoryStore
	closers  []func() error
	handlers http.Handler
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogLevel, c.LogFormat)
	app := &App{config: c, logger: logger}

	ok := false
	defer func() {
		if !ok {
			app.close()
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	rm, closeDB, err := OpenRepositories(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.closers = append(app.closers, closeDB)

	blobs, err := openBlobStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	store, janitor, closeStore, err := openSessionStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("session store init error: %w", err)
	}
	app.janitor = janitor
	app.closers = append(app.closers, closeStore)

	signer, err := newSigner(ctx, c, logger)
	if err != nil {
		return nil, err
	}

	hasher, err := cryptox.NewHasher(cryptox.DefaultParams)
	if err != nil {
		return nil, fmt.Errorf("password hasher: %w", err)
	}

	notifier, closeNotifier, err := newNotifier(c, logger)
	if err != nil {
		return nil, fmt.Errorf("mail init error: %w", err)
	}
	app.closers = append(app.closers, closeNotifier)

	registry := sessions.NewRegistry(store, c.SessionTTL, m)
	authService := services.NewAuthService(rm, registry, hasher, m, logger)
	signupService := services.NewSignupService(rm, signer, hasher, notifier, c.BaseURL, m, logger)
	downloadService := services.NewDownloadService(rm, signer, c.BaseURL, m, logger)
	fileService := services.NewFileService(rm, blobs, c.UploadMaxBytes, logger)

	app.handlers = httpapi.NewRouter(httpapi.Options{
		Auth:            authService,
		Signup:          signupService,
		Download:        downloadService,
		Files:           fileService,
		Gatherer:        reg,
		MaxUploadBytes:  c.UploadMaxBytes,
		LoginRatePerMin: c.LoginRatePerMin,
		Logger:          logger,
	})
	app.http = &http.Server{
		Addr:              c.HTTPAddr,
		Handler:           app.handlers,
		ReadHeaderTimeout: 10 * time.Second,
	}
	app.grpc = gs.NewGRPCServer(c.GRPCAddr, logger, authService, downloadService, fileService)

	ok = true
	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.http.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", app.config.HTTPAddr)
	if err := app.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.grpc.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves HTTP and gRPC until ctx is cancelled, a signal arrives or a
// listener fails.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "memory", app.config.Memory, "mail_mode", app.config.MailMode)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	if app.janitor != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.janitor.RunJanitor(ctx, app.config.SessionSweepInterval, app.logger)
		}()
	}

	wg.Wait()
	app.close()
	app.logger.Info(context.Background(), "App stopped")
}

func (app *App) close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			app.logger.Warn(context.Background(), "close failed", "error", err)
		}
	}
	app.closers = nil
}
