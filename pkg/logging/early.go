package logging

import (
	"go.uber.org/zap"
)

// EarlyLog reports failures that happen before configuration is loaded and
// the real logger exists.
type EarlyLog struct {
	l *zap.SugaredLogger
}

func NewEarlyLog(serviceName string) *EarlyLog {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	l, err := cfg.Build()
	if err != nil {
		l = zap.NewNop()
	}
	return &EarlyLog{l: l.Sugar().With("service_name", serviceName)}
}

// Fatal logs and exits with status 1.
func (l *EarlyLog) Fatal(msg string, args ...interface{}) {
	l.l.Fatalf(msg, args...)
}

func (l *EarlyLog) Warn(msg string, args ...interface{}) {
	l.l.Warnf(msg, args...)
}

func (l *EarlyLog) Info(msg string, args ...interface{}) {
	l.l.Infof(msg, args...)
}

func (l *EarlyLog) Error(msg string, args ...interface{}) {
	l.l.Errorf(msg, args...)
}
