// Package logger builds the process-wide zap logger.
package logger

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls level and the optional rotating file sink.
type Config struct {
	Level      string // debug, info, warn, error
	OutputFile string // empty for console only
	MaxSize    int    // MB
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

func DefaultConfig() Config {
	return Config{
		Level:      "info",
		MaxSize:    50,
		MaxBackups: 5,
		MaxAge:     14,
		Compress:   true,
	}
}

// ConfigFromEnv reads LOG_LEVEL, LOG_FILE, LOG_MAX_SIZE_MB, LOG_MAX_BACKUPS
// and LOG_MAX_AGE_DAYS on top of DefaultConfig.
func ConfigFromEnv(getenv func(string) string) Config {
	cfg := DefaultConfig()
	if v := strings.TrimSpace(getenv("LOG_LEVEL")); v != "" {
		cfg.Level = v
	}
	cfg.OutputFile = strings.TrimSpace(getenv("LOG_FILE"))
	if n, err := strconv.Atoi(getenv("LOG_MAX_SIZE_MB")); err == nil && n > 0 {
		cfg.MaxSize = n
	}
	if n, err := strconv.Atoi(getenv("LOG_MAX_BACKUPS")); err == nil && n >= 0 {
		cfg.MaxBackups = n
	}
	if n, err := strconv.Atoi(getenv("LOG_MAX_AGE_DAYS")); err == nil && n >= 0 {
		cfg.MaxAge = n
	}
	return cfg
}

// ParseLevel maps a level name to a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// New builds a logger writing console output to stderr and, when OutputFile
// is set, JSON lines to a lumberjack-rotated file.
func New(cfg Config) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(ParseLevel(cfg.Level))

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("06-01-02 15:04:05")

	consoleCfg := encCfg
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stderr), level),
	}

	if cfg.OutputFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.OutputFile), 0o755); err != nil {
			return nil, err
		}
		fileWriter := &lumberjack.Logger{
			Filename:   cfg.OutputFile,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(fileWriter), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}
