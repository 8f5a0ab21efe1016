package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"TrendPulse/internal/usecase"
	"TrendPulse/pkg/config"
	xhttp "TrendPulse/pkg/http"
	pkgkafka "TrendPulse/pkg/kafka"
	applogger "TrendPulse/pkg/logger"
)

// App owns the application lifecycle: the ledger event collector, the trend
// orchestrator, the flash market lifecycle, the engagement consumer, and the
// HTTP server.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	collector  *usecase.EventCollector
	orch       *usecase.Orchestrator
	flash      *usecase.FlashLifecycle
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	httpServer *xhttp.Server
	closers    []func() error
}

func New(
	cfg *config.Config,
	log *applogger.Logger,
	collector *usecase.EventCollector,
	orch *usecase.Orchestrator,
	flash *usecase.FlashLifecycle,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	httpHandler xhttp.Handler,
) *App {
	httpServer := xhttp.NewServer(httpHandler,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
	)
	return &App{
		cfg:        cfg,
		log:        log,
		collector:  collector,
		orch:       orch,
		flash:      flash,
		consumer:   consumer,
		kh:         kh,
		httpServer: httpServer,
	}
}

// OnClose registers a resource to release during shutdown, in LIFO order.
func (a *App) OnClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Run starts every component and blocks until an interrupt arrives.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.collector.Start(ctx); err != nil {
		a.log.Error("ledger collector start failed", applogger.Error(err))
		return err
	}
	a.log.Info("ledger collector started",
		applogger.String("stream", a.cfg.Ledger.StreamURL))

	a.orch.Start(ctx)
	a.flash.Start(ctx)

	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.log.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.log.Info("engagement consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start failed", applogger.Error(err))
		return err
	}
	a.log.Info("trendpulse running",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("environment", a.cfg.Environment))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

func (a *App) shutdown(ctx context.Context) error {
	// Stop producing new work before draining.
	a.flash.Stop()
	a.orch.Stop()

	if err := a.collector.Shutdown(ctx); err != nil {
		a.log.Warn("collector stop error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
