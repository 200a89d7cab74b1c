package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/reqdrop/reqdrop/internal/logging"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

const msgPrefix = "[DB] "

type Logger struct {
	cfg glogger.Config
}

// NewLogger returns a gorm logger backed by the zap logger found in the
// request context.
func NewLogger(slowThreshold time.Duration, ignoreRecordNotFoundError bool, level zapcore.Level) *Logger {
	cfg := glogger.Config{
		SlowThreshold:             slowThreshold,
		Colorful:                  false,
		IgnoreRecordNotFoundError: ignoreRecordNotFoundError,
	}
	switch level {
	case zapcore.DebugLevel, zapcore.InfoLevel:
		cfg.LogLevel = glogger.Info
	case zapcore.WarnLevel:
		cfg.LogLevel = glogger.Warn
	case zapcore.ErrorLevel:
		cfg.LogLevel = glogger.Error
	default:
		cfg.LogLevel = glogger.Silent
	}
	return &Logger{cfg: cfg}
}

func (l *Logger) LogMode(level glogger.LogLevel) glogger.Interface {
	newlogger := *l
	newlogger.cfg.LogLevel = level
	return &newlogger
}

func (l *Logger) Info(ctx context.Context, s string, args ...interface{}) {
	if l.cfg.LogLevel >= glogger.Info {
		l.fromContext(ctx).Infof(msgPrefix+s, args...)
	}
}

func (l *Logger) Warn(ctx context.Context, s string, args ...interface{}) {
	if l.cfg.LogLevel >= glogger.Warn {
		l.fromContext(ctx).Warnf(msgPrefix+s, args...)
	}
}

func (l *Logger) Error(ctx context.Context, s string, args ...interface{}) {
	if l.cfg.LogLevel >= glogger.Error {
		l.fromContext(ctx).Errorf(msgPrefix+s, args...)
	}
}

func (l *Logger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.cfg.LogLevel <= glogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	logger := l.fromContext(ctx)
	switch {
	case err != nil && l.cfg.LogLevel >= glogger.Error &&
		(!errors.Is(err, gorm.ErrRecordNotFound) || !l.cfg.IgnoreRecordNotFoundError):
		sql, rows := fc()
		logger.Errorw(msgPrefix+"query failed",
			"error", err, "elapsed", elapsed, "rows", rows, "sql", sql, "line", utils.FileWithLineNum())
	case elapsed > l.cfg.SlowThreshold && l.cfg.SlowThreshold != 0 && l.cfg.LogLevel >= glogger.Warn:
		sql, rows := fc()
		logger.Warnw(msgPrefix+fmt.Sprintf("slow query >= %v", l.cfg.SlowThreshold),
			"elapsed", elapsed, "rows", rows, "sql", sql, "line", utils.FileWithLineNum())
	case l.cfg.LogLevel == glogger.Info:
		sql, rows := fc()
		logger.Debugw(msgPrefix+"query", "elapsed", elapsed, "rows", rows, "sql", sql)
	}
}

func (l *Logger) fromContext(ctx context.Context) *zap.SugaredLogger {
	return logging.FromContext(ctx).Sugar()
}
