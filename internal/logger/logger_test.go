package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"ruleflow/internal/config"
	"ruleflow/pkg/logging"
)

func TestNew_Levels(t *testing.T) {
	_, err := New(config.LoggingConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)

	_, err = New(config.LoggingConfig{})
	require.NoError(t, err)

	_, err = New(config.LoggingConfig{Level: "chatty"})
	assert.Error(t, err)
}

func TestContextFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewWithCore(core, "engine-service")

	ctx := logging.WithTriggerID(context.Background(), "t-1")
	ctx = logging.WithRuleID(ctx, "r-1")
	log.InfowCtx(ctx, "Rule evaluated", "matched", true)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "t-1", fields["trigger_id"])
	assert.Equal(t, "r-1", fields["rule_id"])
	assert.Equal(t, "engine-service", fields["service_name"])
	assert.Equal(t, true, fields["matched"])
}

func TestWith_KeepsServiceName(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := NewWithCore(core, "catalog-service").With("component", "reloader")

	log.WarnwCtx(context.Background(), "Reload failed")
	log.DebugwCtx(context.Background(), "dropped below level")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "reloader", fields["component"])
	assert.Equal(t, "catalog-service", fields["service_name"])
}
