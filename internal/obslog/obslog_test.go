package obslog

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerDiscardsByDefault(t *testing.T) {
	assert.NotPanics(t, func() { Logger().Info("unconfigured, goes nowhere") })
}

func TestInitUpgradesToRealHandler(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: slog.LevelInfo, JSON: true, Writer: &buf})

	Logger().Info("hello", "key", "value")
	require.NotEmpty(t, buf.String())
	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "\"key\":\"value\"")
}

func TestInitRespectsLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: slog.LevelWarn, JSON: true, Writer: &buf})

	Logger().Debug("should not appear")
	assert.Empty(t, buf.String())

	Logger().Warn("should appear")
	assert.Contains(t, buf.String(), "should appear")
}
