package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesFileAndConsole(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "app.log")
	var console bytes.Buffer

	logger, err := NewLogger(logFile, Options{MaxSize: 1, Console: &console})
	require.NoError(t, err)
	defer logger.Close()

	logger.Info("数据加载完成")
	logger.Error("图表渲染失败")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "INFO: 数据加载完成")
	assert.Contains(t, string(data), "ERROR: 图表渲染失败")
	assert.Equal(t, string(data), console.String())
}

func TestLoggerMinLevel(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "app.log")
	logger, err := NewLogger(logFile, Options{MinLevel: WARNING})
	require.NoError(t, err)
	defer logger.Close()

	logger.Debug("hidden")
	logger.Warning("shown")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "WARNING: shown")
}

func TestLoggerSubscribe(t *testing.T) {
	logger, err := NewLogger(filepath.Join(t.TempDir(), "app.log"), Options{})
	require.NoError(t, err)
	defer logger.Close()

	sub := logger.Subscribe()
	logger.Info("hello")

	select {
	case msg := <-sub:
		assert.Contains(t, msg, "INFO: hello")
	default:
		t.Fatal("订阅者未收到日志")
	}

	logger.Unsubscribe(sub)
	logger.Info("after")
	assert.Len(t, sub, 0)
}

func TestLoggerRotate(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(filepath.Join(dir, "app.log"), Options{MaxBackups: 2})
	require.NoError(t, err)
	defer logger.Close()

	logger.Info("before rotate")
	require.NoError(t, logger.Rotate())
	logger.Info("after rotate")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestNewLoggerEmptyName(t *testing.T) {
	_, err := NewLogger("", Options{})
	assert.Error(t, err)
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", DEBUG.String())
	assert.Equal(t, "FATAL", FATAL.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}
