package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RunLogName returns the run log file name for a run started at t.
func RunLogName(t time.Time) string {
	return fmt.Sprintf("sync_%s.log", t.Format("20060102_150405"))
}

// WithRunLog tees every record of base into an append-only, human-readable file in dir.
// The returned close func flushes and closes the file.
func WithRunLog(base *zap.Logger, dir string, started time.Time) (*zap.Logger, string, func() error, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, "", nil, fmt.Errorf("create log dir: %w", err)
	}
	path := filepath.Join(dir, RunLogName(started))
	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, "", nil, fmt.Errorf("open run log: %w", err)
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	fileCore := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(f), zapcore.DebugLevel)

	l := base.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, &levelFiltered{Core: fileCore, enabler: c})
	}))
	closeFn := func() error {
		_ = l.Sync()
		return f.Close()
	}
	return l, path, closeFn, nil
}

// levelFiltered keeps the file at the same level as the base logger.
type levelFiltered struct {
	zapcore.Core
	enabler zapcore.LevelEnabler
}

func (c *levelFiltered) Enabled(lvl zapcore.Level) bool { return c.enabler.Enabled(lvl) }

func (c *levelFiltered) With(fields []zapcore.Field) zapcore.Core {
	return &levelFiltered{Core: c.Core.With(fields), enabler: c.enabler}
}

func (c *levelFiltered) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}
