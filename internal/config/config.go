// Package config loads blepad settings from YAML with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names accepted by bluetooth.backend.
const (
	BackendSystem = "system"
	BackendFake   = "fake"
	BackendNone   = "none"
)

// Exporter names accepted by tracer.exporter.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// Config is the root configuration.
type Config struct {
	Logger    LoggerConfig    `yaml:"logger"`
	Tracer    TracerConfig    `yaml:"tracer"`
	Bluetooth BluetoothConfig `yaml:"bluetooth"`
	UI        UIConfig        `yaml:"ui"`
}

// LoggerConfig configures slog output.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// Output is stderr, stdout, discard or a file path.
	Output string `yaml:"output"`
}

// TracerConfig configures span export.
type TracerConfig struct {
	Exporter string `yaml:"exporter"`
	// Output is the file the stdout exporter writes to.
	Output      string `yaml:"output"`
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
}

// BluetoothConfig selects the platform backend.
type BluetoothConfig struct {
	Backend     string        `yaml:"backend"`
	ScanTimeout time.Duration `yaml:"scan_timeout"`
}

// UIConfig holds view-shell settings.
type UIConfig struct {
	Route string `yaml:"route"`
}

func stateDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "blepad")
	}
	return filepath.Join(os.TempDir(), "blepad")
}

// DefaultPath returns the config file location: $BLEPAD_CONFIG, or
// blepad/config.yaml under the user config dir.
func DefaultPath() string {
	if p := os.Getenv("BLEPAD_CONFIG"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "blepad.yaml"
	}
	return filepath.Join(dir, "blepad", "config.yaml")
}

// Defaults returns a Config with every field set.
func Defaults() *Config {
	return &Config{
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: filepath.Join(stateDir(), "blepad.log"),
		},
		Tracer: TracerConfig{
			Exporter:    ExporterNone,
			Output:      filepath.Join(stateDir(), "traces.json"),
			Insecure:    true,
			ServiceName: "blepad",
		},
		Bluetooth: BluetoothConfig{
			Backend:     BackendSystem,
			ScanTimeout: 15 * time.Second,
		},
		UI: UIConfig{
			Route: "/",
		},
	}
}

// Load reads path like Read and validates the result.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read reads path over the defaults and applies env overrides without
// validating, so callers can layer further overrides first. A missing file
// is not an error.
func Read(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	ApplyEnvOverrides(cfg)
	return cfg, nil
}

// ApplyEnvOverrides applies BLEPAD_* and the standard OTEL_* variables.
// An unparseable BLEPAD_SCAN_TIMEOUT is ignored.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BLEPAD_LOG_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("BLEPAD_LOG_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("BLEPAD_LOG_OUTPUT"); v != "" {
		cfg.Logger.Output = v
	}
	if v := os.Getenv("BLEPAD_BACKEND"); v != "" {
		cfg.Bluetooth.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("BLEPAD_SCAN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Bluetooth.ScanTimeout = d
		}
	}
	if v := os.Getenv("BLEPAD_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = strings.ToLower(v)
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.Tracer.Endpoint = v
		if cfg.Tracer.Exporter == ExporterNone {
			cfg.Tracer.Exporter = ExporterOTLP
		}
	}
	if v := os.Getenv("OTEL_SERVICE_NAME"); v != "" {
		cfg.Tracer.ServiceName = v
	}
}
