// Package sink persists finalized execution records.
package sink

import (
	"context"
	"errors"
	"fmt"

	"ruleflow/internal/logger"
	"ruleflow/pkg/metrics"
	"ruleflow/pkg/models"
)

// Sink names accepted in engine.sinks.
const (
	NamePostgres = "postgres"
	NameKafka    = "kafka"
	NameLog      = "log"
)

// ExecutionSink receives each record exactly once, after it is finalized.
type ExecutionSink interface {
	Write(ctx context.Context, record models.ExecutionRecord) error
}

// Multi writes to every sink and joins their errors. One failing sink does
// not stop the others.
type Multi struct {
	sinks []namedSink
}

type namedSink struct {
	name string
	sink ExecutionSink
}

func NewMulti() *Multi {
	return &Multi{}
}

func (m *Multi) Add(name string, s ExecutionSink) *Multi {
	m.sinks = append(m.sinks, namedSink{name: name, sink: s})
	return m
}

func (m *Multi) Len() int {
	return len(m.sinks)
}

func (m *Multi) Write(ctx context.Context, record models.ExecutionRecord) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.sink.Write(ctx, record); err != nil {
			metrics.IncSinkWrite(s.name, "error")
			errs = append(errs, fmt.Errorf("%s sink: %w", s.name, err))
			continue
		}
		metrics.IncSinkWrite(s.name, "success")
	}
	return errors.Join(errs...)
}

// LogSink writes a one-line summary of each record.
type LogSink struct {
	logger logger.Logger
}

func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{logger: log}
}

func (s *LogSink) Write(ctx context.Context, record models.ExecutionRecord) error {
	fields := []interface{}{
		"execution_id", record.ID,
		"rule_id", record.RuleID,
		"trigger_id", record.Trigger.ID,
		"status", record.Status,
		"actions", len(record.Actions),
		"succeeded", record.Succeeded(),
		"duration_ms", record.Duration().Milliseconds(),
	}
	if record.Error != nil {
		fields = append(fields, "error_class", record.Error.Class, "error", record.Error.Message)
	}
	s.logger.InfowCtx(ctx, "Execution recorded", fields...)
	return nil
}
