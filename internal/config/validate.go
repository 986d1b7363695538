package config

import (
	"fmt"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Routes lists the paths ui.route may name.
var Routes = []string{"/", "/about", "/settings"}

// Validate returns a *ValidationError listing every problem in cfg.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	validateBluetooth(cfg, ve)
	validateUI(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateLogger(cfg *Config, ve *ValidationError) {
	switch strings.ToLower(cfg.Logger.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		ve.Add("logger.level %q must be one of debug, info, warn, error", cfg.Logger.Level)
	}
	switch strings.ToLower(cfg.Logger.Format) {
	case "text", "json":
	default:
		ve.Add("logger.format %q must be text or json", cfg.Logger.Format)
	}
	if cfg.Logger.Output == "" {
		ve.Add("logger.output must not be empty")
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	switch cfg.Tracer.Exporter {
	case ExporterNone:
	case ExporterStdout:
		if cfg.Tracer.Output == "" {
			ve.Add("tracer.output is required for the stdout exporter")
		}
	case ExporterOTLP:
		if cfg.Tracer.Endpoint == "" {
			ve.Add("tracer.endpoint is required for the otlp exporter")
		}
	default:
		ve.Add("tracer.exporter %q must be one of none, stdout, otlp", cfg.Tracer.Exporter)
	}
	if cfg.Tracer.ServiceName == "" {
		ve.Add("tracer.service_name must not be empty")
	}
}

func validateBluetooth(cfg *Config, ve *ValidationError) {
	switch cfg.Bluetooth.Backend {
	case BackendSystem, BackendFake, BackendNone:
	default:
		ve.Add("bluetooth.backend %q must be one of system, fake, none", cfg.Bluetooth.Backend)
	}
	if cfg.Bluetooth.ScanTimeout <= 0 {
		ve.Add("bluetooth.scan_timeout must be > 0")
	}
}

func validateUI(cfg *Config, ve *ValidationError) {
	for _, r := range Routes {
		if cfg.UI.Route == r {
			return
		}
	}
	ve.Add("ui.route %q must be one of %s", cfg.UI.Route, strings.Join(Routes, ", "))
}
