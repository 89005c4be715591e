package trace

import (
	"context"

	"CopyFlow/internal/domain/models"
	drepo "CopyFlow/internal/domain/repository"
	applogger "CopyFlow/pkg/logger"
)

// LoggerSink mirrors journal entries to the process logger.
type LoggerSink struct {
	log *applogger.Logger
}

func NewLoggerSink(log *applogger.Logger) drepo.TraceSink {
	return &LoggerSink{log: log}
}

func (s *LoggerSink) Trace(_ context.Context, e models.LogEntry) {
	switch e.Severity {
	case models.SeverityError:
		s.log.Error(e.Message, applogger.String("source", "journal"))
	case models.SeverityWarn:
		s.log.Warn(e.Message, applogger.String("source", "journal"))
	default:
		s.log.Info(e.Message, applogger.String("source", "journal"))
	}
}

func (s *LoggerSink) Close() error { return nil }
