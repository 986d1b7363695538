package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"blepad/internal/ble"
	"blepad/internal/ble/adapter"
	"blepad/internal/ble/blefake"
	"blepad/internal/config"
	"blepad/internal/logging"
	"blepad/internal/telemetry"
	"blepad/internal/ui"
)

// options holds the command-line flags. Flags win over the config file
// and the environment.
type options struct {
	configPath string
	route      string
	backend    string
}

func parseFlags() options {
	var opts options

	flag.StringVar(&opts.configPath, "config", config.DefaultPath(), "path to the YAML config file")
	flag.StringVar(&opts.route, "route", "", "page to open: /, /about or /settings")
	flag.StringVar(&opts.backend, "backend", "", "bluetooth backend: system, fake or none")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: blepad [flags]\n\n")
		fmt.Fprintf(os.Stderr, "blepad discovers Bluetooth LE peripherals, connects to one and\n")
		fmt.Fprintf(os.Stderr, "exchanges text over its device name characteristic.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}

	flag.Parse()
	return opts
}

func loadConfig(opts options) (*config.Config, error) {
	cfg, err := config.Read(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.route != "" {
		cfg.UI.Route = opts.route
	}
	if opts.backend != "" {
		cfg.Bluetooth.Backend = strings.ToLower(opts.backend)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newPlatform builds the Bluetooth backend. The picker is returned only
// when the backend asks it to choose devices. A nil platform means
// Bluetooth is unavailable.
func newPlatform(cfg config.BluetoothConfig, log *slog.Logger) (ble.Platform, *ui.PickerBridge) {
	switch cfg.Backend {
	case config.BackendNone:
		return nil, nil
	case config.BackendFake:
		picker := ui.NewPickerBridge()
		p := blefake.Demo()
		p.Chooser = picker
		return p, picker
	default:
		picker := ui.NewPickerBridge()
		return adapter.New(adapter.Config{
			Chooser:     picker,
			ScanTimeout: cfg.ScanTimeout,
			Logger:      log.With("component", "adapter"),
		}), picker
	}
}

func run(opts options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	log, closeLog, err := logging.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	defer closeLog()

	ctx := context.Background()
	shutdown, err := telemetry.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			log.Warn("telemetry shutdown", "error", err)
		}
	}()

	route, _ := ui.ParseRoute(cfg.UI.Route)
	platform, picker := newPlatform(cfg.Bluetooth, log)
	log.Info("starting", "backend", cfg.Bluetooth.Backend, "route", route.Path(), "config", opts.configPath)

	model := ui.NewAppModel(ui.Deps{
		Platform:   platform,
		Picker:     picker,
		Config:     cfg,
		ConfigPath: opts.configPath,
		Logger:     log,
	}, route)
	p := tea.NewProgram(model.AsTeaModel(), tea.WithAltScreen())
	_, runErr := p.Run()
	return errors.Join(runErr, model.Close())
}

func main() {
	opts := parseFlags()
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "blepad: %v\n", err)
		os.Exit(1)
	}
}
