package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"BLEPAD_LOG_LEVEL", "BLEPAD_LOG_FORMAT", "BLEPAD_LOG_OUTPUT",
		"BLEPAD_BACKEND", "BLEPAD_SCAN_TIMEOUT", "BLEPAD_TRACER_EXPORTER",
		"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_SERVICE_NAME", "BLEPAD_CONFIG",
	} {
		t.Setenv(k, "")
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, BackendSystem, cfg.Bluetooth.Backend)
	assert.Equal(t, 15*time.Second, cfg.Bluetooth.ScanTimeout)
	assert.Equal(t, ExporterNone, cfg.Tracer.Exporter)
	assert.Equal(t, "/", cfg.UI.Route)
	assert.NoError(t, Validate(cfg))
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults().Bluetooth, cfg.Bluetooth)
}

func TestLoad_YAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
logger:
  level: debug
  format: json
  output: stderr
bluetooth:
  backend: fake
  scan_timeout: 5s
ui:
  route: /about
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.Equal(t, BackendFake, cfg.Bluetooth.Backend)
	assert.Equal(t, 5*time.Second, cfg.Bluetooth.ScanTimeout)
	assert.Equal(t, "/about", cfg.UI.Route)
	// untouched sections keep their defaults
	assert.Equal(t, "blepad", cfg.Tracer.ServiceName)
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logger: [\n"), 0o600))
	_, err := Load(path)
	assert.ErrorContains(t, err, "parse config")
}

func TestRead_DefersValidation(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bluetooth:\n  backend: bogus\n"), 0o600))

	_, err := Load(path)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	cfg, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, "bogus", cfg.Bluetooth.Backend)
	cfg.Bluetooth.Backend = BackendNone
	assert.NoError(t, Validate(cfg))
}

func TestApplyEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("BLEPAD_LOG_LEVEL", "debug")
	t.Setenv("BLEPAD_LOG_OUTPUT", "discard")
	t.Setenv("BLEPAD_BACKEND", "FAKE")
	t.Setenv("BLEPAD_SCAN_TIMEOUT", "3s")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318")
	t.Setenv("OTEL_SERVICE_NAME", "pad")

	cfg := Defaults()
	ApplyEnvOverrides(cfg)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "discard", cfg.Logger.Output)
	assert.Equal(t, BackendFake, cfg.Bluetooth.Backend)
	assert.Equal(t, 3*time.Second, cfg.Bluetooth.ScanTimeout)
	assert.Equal(t, ExporterOTLP, cfg.Tracer.Exporter)
	assert.Equal(t, "localhost:4318", cfg.Tracer.Endpoint)
	assert.Equal(t, "pad", cfg.Tracer.ServiceName)
}

func TestApplyEnvOverrides_BadDurationIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv("BLEPAD_SCAN_TIMEOUT", "soon")
	cfg := Defaults()
	ApplyEnvOverrides(cfg)
	assert.Equal(t, 15*time.Second, cfg.Bluetooth.ScanTimeout)
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Logger.Level = "loud"
	cfg.Tracer.Exporter = ExporterOTLP
	cfg.Bluetooth.Backend = "serial"
	cfg.Bluetooth.ScanTimeout = 0
	cfg.UI.Route = "/devices"

	err := Validate(cfg)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Errors, 5)
	assert.Contains(t, err.Error(), "tracer.endpoint")
	assert.Contains(t, err.Error(), "ui.route")
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("BLEPAD_CONFIG", "/etc/blepad.yaml")
	assert.Equal(t, "/etc/blepad.yaml", DefaultPath())

	t.Setenv("BLEPAD_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	assert.Equal(t, filepath.Join("/tmp/xdg", "blepad", "config.yaml"), DefaultPath())
}
