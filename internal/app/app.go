package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/five82/cpsync/internal/config"
	"github.com/five82/cpsync/internal/logging"
	"github.com/five82/cpsync/internal/prefs"
	"github.com/five82/cpsync/internal/ui"
)

// Options configure the cpsync application.
type Options struct {
	ConfigPath string
	PrefsPath  string        // empty uses default ~/.config/cpsync/prefs.toml
	Link       string        // connect link carrying ?device=
	Device     string        // device address flag
	PollEvery  time.Duration // zero uses the configured interval
	LogLevel   string        // overrides the configured level when set

	// Interactive sends logs only to the log file so they do not draw over
	// the TUI.
	Interactive bool
}

// Runtime is the wired application shared by the TUI, the CLI commands and
// the shell server.
type Runtime struct {
	Config       config.Config
	Prefs        prefs.Prefs
	PrefsPath    string
	Logger       *zap.Logger
	Controller   *Controller
	Start        StartAddress
	PollInterval time.Duration
}

// Bootstrap loads configuration and preferences, builds the logger and
// returns a disconnected controller with its start address resolved.
func Bootstrap(opts Options) (*Runtime, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureStateDir(); err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	outputs := []string{cfg.LogPath()}
	if !opts.Interactive {
		outputs = append([]string{"stderr"}, outputs...)
	}
	logger, err := logging.New(logging.Options{Level: level, Format: cfg.LogFormat, OutputPaths: outputs})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	userPrefs, _ := prefs.Load(opts.PrefsPath)

	start, err := ResolveStartAddress(opts.Link, opts.Device, userPrefs.DeviceAddress, cfg.DeviceAddress)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	interval := cfg.PollInterval
	if opts.PollEvery > 0 {
		interval = opts.PollEvery
	}

	ctrl := NewController(ControllerOptions{
		Dial:      ClientDialer(cfg.ProbeTimeout),
		PrefsPath: opts.PrefsPath,
		Logger:    logger,
	})

	logger.Debug("cpsync bootstrapped",
		zap.String("state_dir", cfg.StateDir),
		zap.String("start_address", start.Address),
		zap.Bool("auto_connect", start.Connect),
		zap.Duration("poll_interval", interval))

	return &Runtime{
		Config:       cfg,
		Prefs:        userPrefs,
		PrefsPath:    opts.PrefsPath,
		Logger:       logger,
		Controller:   ctrl,
		Start:        start,
		PollInterval: interval,
	}, nil
}

// Close flushes the logger.
func (r *Runtime) Close() {
	if r == nil || r.Logger == nil {
		return
	}
	_ = r.Logger.Sync()
}

// Run boots the cpsync TUI until the user quits or the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	opts.Interactive = true
	rt, err := Bootstrap(opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	StartPoller(ctx, rt.Controller, rt.PollInterval)

	return ui.Run(ui.Options{
		Context:    ctx,
		Controller: rt.Controller,
		Changes:    Changes(ctx, rt.Controller),
		Start:      ui.Start{Address: rt.Start.Address, Connect: rt.Start.Connect},
		ThemeName:  rt.Prefs.Theme,
		PrefsPath:  rt.PrefsPath,
		LogPath:    rt.Config.LogPath(),
		Logger:     rt.Logger,
	})
}

// Changes subscribes to the controller and collapses its events into
// wake-ups for consumers that re-read the snapshot themselves.
func Changes(ctx context.Context, ctrl *Controller) <-chan struct{} {
	events, unsubscribe := ctrl.Subscribe(32)
	out := make(chan struct{}, 1)
	go func() {
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out
}
