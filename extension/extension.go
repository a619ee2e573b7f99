// Package extension provides the Forge extension adapter for Escrow.
//
// It implements the forge.Extension interface to integrate Escrow
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.escrow" or "escrow" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	escrow "github.com/havencare/escrow"
	"github.com/havencare/escrow/store"
	"github.com/havencare/escrow/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "escrow"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Payment escrow engine for paid care bookings"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Escrow as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *escrow.Engine
	store      store.Store
	escrowOpts []escrow.Option
}

// New creates a new Escrow Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Escrow engine.
// This is nil until Register is called.
func (e *Extension) Engine() *escrow.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the escrow engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	// Build engine options from resolved config.
	opts := e.buildEscrowOpts()

	eng := escrow.New(e.store, opts...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*escrow.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("escrow: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("escrow: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEscrowOpts constructs escrow.Option values from the resolved config.
func (e *Extension) buildEscrowOpts() []escrow.Option {
	opts := make([]escrow.Option, 0, len(e.escrowOpts)+5)

	if e.config.ReleaseDelay > 0 {
		opts = append(opts, escrow.WithReleaseDelay(e.config.ReleaseDelay))
	}
	if e.config.RetentionWindow > 0 {
		opts = append(opts, escrow.WithRetentionWindow(e.config.RetentionWindow))
	}
	if e.config.SweepInterval > 0 {
		opts = append(opts, escrow.WithSweepInterval(e.config.SweepInterval))
	}
	if e.config.SplitRatioBps > 0 {
		opts = append(opts, escrow.WithSplitRatio(e.config.SplitRatioBps))
	}
	if e.config.RecentLimit > 0 {
		opts = append(opts, escrow.WithRecentLimit(e.config.RecentLimit))
	}

	// Append any pass-through engine options.
	opts = append(opts, e.escrowOpts...)

	return opts
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("escrow: configuration is required but not found in config files; " +
				"ensure 'extensions.escrow' or 'escrow' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("escrow: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("release_delay", e.config.ReleaseDelay),
		forge.F("retention_window", e.config.RetentionWindow),
		forge.F("sweep_interval", e.config.SweepInterval),
		forge.F("split_ratio_bps", e.config.SplitRatioBps),
		forge.F("recent_limit", e.config.RecentLimit),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.escrow" first (namespaced pattern).
	if cm.IsSet("extensions.escrow") {
		if err := cm.Bind("extensions.escrow", &cfg); err == nil {
			e.Logger().Debug("escrow: loaded config from file",
				forge.F("key", "extensions.escrow"),
			)
			return cfg, true
		}
		e.Logger().Warn("escrow: failed to bind extensions.escrow config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "escrow" key.
	if cm.IsSet("escrow") {
		if err := cm.Bind("escrow", &cfg); err == nil {
			e.Logger().Debug("escrow: loaded config from file",
				forge.F("key", "escrow"),
			)
			return cfg, true
		}
		e.Logger().Warn("escrow: failed to bind escrow config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.ReleaseDelay == 0 {
		cfg.ReleaseDelay = defaults.ReleaseDelay
	}
	if cfg.RetentionWindow == 0 {
		cfg.RetentionWindow = defaults.RetentionWindow
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = defaults.SweepInterval
	}
	if cfg.SplitRatioBps == 0 {
		cfg.SplitRatioBps = defaults.SplitRatioBps
	}
	if cfg.RecentLimit == 0 {
		cfg.RecentLimit = defaults.RecentLimit
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// Duration/int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.ReleaseDelay == 0 && programmaticConfig.ReleaseDelay != 0 {
		yamlConfig.ReleaseDelay = programmaticConfig.ReleaseDelay
	}
	if yamlConfig.RetentionWindow == 0 && programmaticConfig.RetentionWindow != 0 {
		yamlConfig.RetentionWindow = programmaticConfig.RetentionWindow
	}
	if yamlConfig.SweepInterval == 0 && programmaticConfig.SweepInterval != 0 {
		yamlConfig.SweepInterval = programmaticConfig.SweepInterval
	}
	if yamlConfig.SplitRatioBps == 0 && programmaticConfig.SplitRatioBps != 0 {
		yamlConfig.SplitRatioBps = programmaticConfig.SplitRatioBps
	}
	if yamlConfig.RecentLimit == 0 && programmaticConfig.RecentLimit != 0 {
		yamlConfig.RecentLimit = programmaticConfig.RecentLimit
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
