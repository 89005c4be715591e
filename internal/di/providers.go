package di

import (
	"fmt"

	drepo "CopyFlow/internal/domain/repository"
	"CopyFlow/internal/handler/api"
	"CopyFlow/internal/service/deriv"
	"CopyFlow/internal/service/trace"
	"CopyFlow/internal/usecase"
	"CopyFlow/pkg/config"
	xhttp "CopyFlow/pkg/http"
	applogger "CopyFlow/pkg/logger"
	"CopyFlow/pkg/metrics"
	"CopyFlow/pkg/server"
)

// ProvideLogger creates the process logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := cfg.Log.Level
	if level == "" {
		level = "info"
	}
	format := cfg.Log.Format
	if format == "" {
		format = "console"
	}
	l, err := applogger.New(&applogger.Config{Level: level, Format: format, Output: cfg.Log.Output})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() drepo.Metrics {
	return metrics.New()
}

// ProvideTraceSinks builds the trace sinks the journal mirrors to: always
// the process logger, plus redis pub/sub when enabled.
func ProvideTraceSinks(cfg *config.Config, log *applogger.Logger) ([]drepo.TraceSink, error) {
	sinks := []drepo.TraceSink{trace.NewLoggerSink(log)}

	if cfg.Trace.Redis.Enabled {
		rs, err := trace.NewRedisSink(
			cfg.Trace.Redis.Addr,
			cfg.Trace.Redis.Password,
			cfg.Trace.Redis.DB,
			cfg.Trace.Redis.Channel,
			log,
		)
		if err != nil {
			return nil, fmt.Errorf("redis trace sink: %w", err)
		}
		sinks = append(sinks, rs)
	}

	return sinks, nil
}

// ProvideConnFactory creates trading-API connections bound to the endpoint.
func ProvideConnFactory(cfg *config.Config, log *applogger.Logger) drepo.ConnFactory {
	return func(appID int) drepo.Conn {
		return deriv.New(cfg.Deriv.Endpoint, appID, log)
	}
}

// ProvideJournal creates the bounded event journal.
func ProvideJournal(cfg *config.Config, sinks []drepo.TraceSink) *usecase.Journal {
	return usecase.NewJournal(cfg.Replication.JournalCapacity, sinks...)
}

// ProvideEngine assembles the replication core.
func ProvideEngine(
	cfg *config.Config,
	factory drepo.ConnFactory,
	journal *usecase.Journal,
	m drepo.Metrics,
	log *applogger.Logger,
) *usecase.Engine {
	freshness := int64(cfg.Replication.FreshnessWindow.Seconds())
	return usecase.NewEngine(factory, cfg.Replication.DebounceDelay, freshness, journal, m, log)
}

// ProvideHandler creates the UI-boundary HTTP handler.
func ProvideHandler(log *applogger.Logger, engine *usecase.Engine) xhttp.Handler {
	return api.NewReplicationHandler(log, engine)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	engine *usecase.Engine,
	handler xhttp.Handler,
	sinks []drepo.TraceSink,
	log *applogger.Logger,
) *server.App {
	return server.New(cfg, engine, handler, sinks, log)
}
