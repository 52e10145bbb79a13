package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FinEvent/internal/service/eventsheet"
	"FinEvent/internal/usecase"
	pkgch "FinEvent/pkg/clickhouse"
	"FinEvent/pkg/config"
	xhttp "FinEvent/pkg/http"
	pkgkafka "FinEvent/pkg/kafka"
	applogger "FinEvent/pkg/logger"
	"FinEvent/pkg/queue"
)

// Deps are the long-running parts of the service. Optional parts are nil
// when disabled in config.
type Deps struct {
	HTTP      *xhttp.Server
	Events    *usecase.EventsUseCase
	Processor *usecase.BarProcessor
	Collector *usecase.TradeCollector
	Consumer  *pkgkafka.Consumer
	Producer  *pkgkafka.Producer
	Queue     *queue.RedisQueue
	Scheduler *usecase.RefreshScheduler
	CH        *pkgch.Client
	Closers   []func() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg  *config.Config
	log  *applogger.Logger
	deps Deps
}

func New(cfg *config.Config, log *applogger.Logger, deps Deps) *App {
	if log == nil {
		log = applogger.NewNop()
	}
	return &App{cfg: cfg, log: log, deps: deps}
}

// Run starts every component and blocks until SIGINT/SIGTERM or a fatal
// HTTP listener error.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.start(ctx); err != nil {
		cancel()
		_ = a.shutdown()
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	var runErr error
	select {
	case <-sigCh:
		a.log.Info("shutdown signal received")
	case runErr = <-a.deps.HTTP.Errors():
		a.log.Error("http server failed", applogger.Error(runErr))
	}

	cancel()
	if err := a.shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func (a *App) start(ctx context.Context) error {
	d := a.deps
	if path := a.cfg.Events.Workbook; path != "" && d.Events != nil {
		loc, err := time.LoadLocation(a.cfg.Analysis.EventsTimezone)
		if err != nil {
			return err
		}
		res, err := d.Events.ImportSource(ctx, eventsheet.New(path, loc), path)
		if err != nil {
			a.log.Error("events workbook import failed", applogger.String("path", path), applogger.Error(err))
		} else {
			a.log.Info("events workbook imported",
				applogger.Int("events", res.Events),
				applogger.Bool("sheet_tiers", res.TiersLoaded))
		}
	}

	if d.Consumer != nil {
		if err := d.Consumer.Start(); err != nil {
			return err
		}
		a.log.Info("kafka consumer started",
			applogger.Strings("topics", []string{a.cfg.Kafka.BarsTopic, a.cfg.Kafka.EventsTopic}))
	}

	if d.Collector != nil {
		if err := d.Collector.Start(ctx); err != nil {
			return err
		}
		a.log.Info("trade collector started", applogger.Strings("symbols", a.cfg.Finnhub.Symbols))
	}

	if d.Queue != nil {
		if err := d.Queue.Start(); err != nil {
			return err
		}
	}
	if d.Scheduler != nil {
		if err := d.Scheduler.Start(a.cfg.Refresh.Schedule); err != nil {
			return err
		}
		a.log.Info("refresh scheduled", applogger.Time("next", d.Scheduler.Next()))
	}

	return d.HTTP.Start()
}

// shutdown stops producers of work before the sinks they write to.
func (a *App) shutdown() error {
	d := a.deps
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	a.log.Info("shutting down")

	var firstErr error
	keep := func(what string, err error) {
		if err == nil {
			return
		}
		a.log.Warn(what+" stop error", applogger.Error(err))
		if firstErr == nil {
			firstErr = err
		}
	}

	keep("http", d.HTTP.Stop(ctx))
	if d.Scheduler != nil {
		keep("scheduler", d.Scheduler.Stop(ctx))
	}
	if d.Queue != nil {
		keep("queue", d.Queue.Stop(ctx))
	}
	if d.Collector != nil {
		keep("collector", d.Collector.Shutdown(ctx))
	}
	if d.Consumer != nil {
		keep("kafka consumer", d.Consumer.Stop(ctx))
	}
	if d.Processor != nil {
		d.Processor.Close()
	}
	a.log.RemoveCollector()
	if d.Producer != nil {
		keep("kafka producer", d.Producer.Close())
	}
	for _, closeFn := range d.Closers {
		keep("close", closeFn())
	}
	if d.CH != nil {
		keep("clickhouse", d.CH.Close())
	}

	a.log.Info("shutdown complete")
	return firstErr
}
