package observability

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/satchel/internal/config"
)

func TestNewLogger_Formats(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		logger, err := NewLogger(config.LoggingConfig{Level: "info", Format: format})
		require.NoError(t, err, "format %q should be valid", format)
		assert.NotNil(t, logger)
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := NewLogger(config.LoggingConfig{Level: "trace", Format: "json"})
	assert.Error(t, err)
}

func TestNewLogger_InvalidFormat(t *testing.T) {
	_, err := NewLogger(config.LoggingConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)
}

func TestNewWriterLogger_HonorsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWriterLogger(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)

	logger.Info("quiet")
	logger.Warn("loud")
	require.NoError(t, logger.Sync())

	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), `"msg":"loud"`)
}

func TestNewWriterLogger_Invalid(t *testing.T) {
	var buf bytes.Buffer
	_, err := NewWriterLogger(config.LoggingConfig{Level: "info", Format: "xml"}, &buf)
	assert.Error(t, err)
}

func TestWriteMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "satchel_test_total", Help: "test counter"})
	reg.MustRegister(c)
	c.Add(3)

	var buf bytes.Buffer
	require.NoError(t, WriteMetrics(&buf, reg))
	assert.Contains(t, buf.String(), "# HELP satchel_test_total test counter")
	assert.Contains(t, buf.String(), "satchel_test_total 3")
}
