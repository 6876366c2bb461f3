package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "", cfg.Store.Path)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "txcomplete", cfg.Metrics.Namespace)
	assert.False(t, cfg.Delivery.Async)
	assert.Equal(t, 256, cfg.Delivery.QueueWarnDepth)
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoad_Full(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "full.cue"))
	require.NoError(t, err)

	assert.Equal(t, Config{
		Log:      LogConfig{Level: "debug", Format: "json"},
		Store:    StoreConfig{Path: "/var/lib/txcomplete/audit.db"},
		Metrics:  MetricsConfig{Enabled: true, Namespace: "compositor"},
		Delivery: DeliveryConfig{Async: true, QueueWarnDepth: 32},
	}, cfg)
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "partial.cue"))
	require.NoError(t, err)

	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "txcomplete", cfg.Metrics.Namespace)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.cue"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown level", `log: level: "trace"`},
		{"unknown field", `bogus: 1`},
		{"non-positive depth", `delivery: queueWarnDepth: 0`},
		{"wrong type", `metrics: enabled: "yes"`},
		{"bad namespace", `metrics: namespace: "9-lives"`},
		{"syntax", `log: {`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "bad.cue")
			require.Error(t, err)

			var cfgErr *Error
			assert.True(t, errors.As(err, &cfgErr))
		})
	}
}

func TestParse_ErrorCarriesPosition(t *testing.T) {
	_, err := Parse([]byte("log: level: \"trace\"\n"), "bad.cue")
	require.Error(t, err)

	var cfgErr *Error
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, err.Error(), "level")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	cfg := Defaults()
	logger := cfg.NewLogger(&buf, false)
	logger.Debug("hidden")
	logger.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")

	buf.Reset()
	logger = cfg.NewLogger(&buf, true)
	logger.Debug("verbose")
	assert.Contains(t, buf.String(), "verbose")

	buf.Reset()
	cfg.Log.Format = "json"
	logger = cfg.NewLogger(&buf, false)
	logger.Info("structured")
	assert.Contains(t, buf.String(), `"msg":"structured"`)
}
