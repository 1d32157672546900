package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	levels := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range levels {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestConfigFromEnv(t *testing.T) {
	env := map[string]string{
		"LOG_LEVEL":        "debug",
		"LOG_FILE":         "/tmp/hl.log",
		"LOG_MAX_SIZE_MB":  "10",
		"LOG_MAX_AGE_DAYS": "x",
	}
	cfg := ConfigFromEnv(func(k string) string { return env[k] })

	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "/tmp/hl.log", cfg.OutputFile)
	assert.Equal(t, 10, cfg.MaxSize)
	assert.Equal(t, DefaultConfig().MaxAge, cfg.MaxAge)
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "hl.log")
	cfg := DefaultConfig()
	cfg.OutputFile = path

	log, err := New(cfg)
	require.NoError(t, err)
	log.Info("hello file")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello file")
}
