package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	drepo "CopyFlow/internal/domain/repository"
	"CopyFlow/internal/usecase"
	"CopyFlow/pkg/config"
	xhttp "CopyFlow/pkg/http"
	applogger "CopyFlow/pkg/logger"
)

// App encapsulates the application lifecycle: the replication engine, the
// HTTP server for the UI boundary, and the trace sinks.
type App struct {
	cfg        *config.Config
	engine     *usecase.Engine
	handler    xhttp.Handler
	sinks      []drepo.TraceSink
	log        *applogger.Logger
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	engine *usecase.Engine,
	handler xhttp.Handler,
	sinks []drepo.TraceSink,
	log *applogger.Logger,
) *App {
	return &App{
		cfg:     cfg,
		engine:  engine,
		handler: handler,
		sinks:   sinks,
		log:     log,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithRequestMetrics(a.log, 500*time.Millisecond),
	)

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("replication engine ready",
		applogger.String("env", a.cfg.Environment),
		applogger.Int("port", a.cfg.Server.Port),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	// Close the trading connections before the HTTP surface goes away.
	a.engine.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	for _, s := range a.sinks {
		if err := s.Close(); err != nil {
			a.log.Warn("trace sink close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
