package logger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pion/logging"
)

// levelTrace pion 的 Trace 级别，低于 slog.LevelDebug
const levelTrace = slog.LevelDebug - 4

// pionFactory 将 pion/logging 的 LoggerFactory 接到子系统 Logger
type pionFactory struct {
	prefix string
}

var _ logging.LoggerFactory = (*pionFactory)(nil)

// PionFactory 返回 pion 组件使用的 LoggerFactory
//
// 每个 pion scope 映射为子系统 "<prefix>.<scope>"，例如 ice 的 "ice" scope
// 对应 "pion.ice"，可以通过 ICESIP_LOG_LEVEL=pion.ice=debug 单独调整。
func PionFactory(prefix string) logging.LoggerFactory {
	if prefix == "" {
		prefix = "pion"
	}
	return &pionFactory{prefix: prefix}
}

// NewLogger 实现 logging.LoggerFactory
func (f *pionFactory) NewLogger(scope string) logging.LeveledLogger {
	return &pionLogger{log: Logger(f.prefix + "." + scope)}
}

// pionLogger 实现 logging.LeveledLogger
type pionLogger struct {
	log *slog.Logger
}

func (l *pionLogger) logf(level slog.Level, format string, args ...interface{}) {
	if !l.log.Enabled(context.Background(), level) {
		return
	}
	l.log.Log(context.Background(), level, fmt.Sprintf(format, args...))
}

func (l *pionLogger) Trace(msg string) { l.logf(levelTrace, "%s", msg) }
func (l *pionLogger) Tracef(format string, args ...interface{}) {
	l.logf(levelTrace, format, args...)
}
func (l *pionLogger) Debug(msg string) { l.logf(slog.LevelDebug, "%s", msg) }
func (l *pionLogger) Debugf(format string, args ...interface{}) {
	l.logf(slog.LevelDebug, format, args...)
}
func (l *pionLogger) Info(msg string) { l.logf(slog.LevelInfo, "%s", msg) }
func (l *pionLogger) Infof(format string, args ...interface{}) {
	l.logf(slog.LevelInfo, format, args...)
}
func (l *pionLogger) Warn(msg string) { l.logf(slog.LevelWarn, "%s", msg) }
func (l *pionLogger) Warnf(format string, args ...interface{}) {
	l.logf(slog.LevelWarn, format, args...)
}
func (l *pionLogger) Error(msg string) { l.logf(slog.LevelError, "%s", msg) }
func (l *pionLogger) Errorf(format string, args ...interface{}) {
	l.logf(slog.LevelError, format, args...)
}
