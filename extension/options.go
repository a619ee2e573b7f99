package extension

import (
	"time"

	escrow "github.com/havencare/escrow"
	"github.com/havencare/escrow/plugin"
	"github.com/havencare/escrow/provider"
	"github.com/havencare/escrow/store"
)

// Option configures the Escrow Forge extension.
type Option func(*Extension)

// WithStore sets the store for the escrow engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithEscrowOption passes an escrow.Option through to the underlying engine.
func WithEscrowOption(opt escrow.Option) Option {
	return func(e *Extension) {
		e.escrowOpts = append(e.escrowOpts, opt)
	}
}

// WithPlugin registers an escrow plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.escrowOpts = append(e.escrowOpts, escrow.WithPlugin(p))
	}
}

// WithAccountProvider sets the payout account provider for the engine.
func WithAccountProvider(p provider.AccountProvider) Option {
	return func(e *Extension) {
		e.escrowOpts = append(e.escrowOpts, escrow.WithAccountProvider(p))
	}
}

// WithMessenger sets the confirmation messenger for the engine.
func WithMessenger(m provider.Messenger) Option {
	return func(e *Extension) {
		e.escrowOpts = append(e.escrowOpts, escrow.WithMessenger(m))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithReleaseDelay sets how long a pending payment waits before auto-release.
func WithReleaseDelay(d time.Duration) Option {
	return func(e *Extension) { e.config.ReleaseDelay = d }
}

// WithRetentionWindow sets how long settled records are kept before purge.
func WithRetentionWindow(d time.Duration) Option {
	return func(e *Extension) { e.config.RetentionWindow = d }
}

// WithSweepInterval sets how frequently the retention sweep runs.
func WithSweepInterval(d time.Duration) Option {
	return func(e *Extension) { e.config.SweepInterval = d }
}

// WithSplitRatio sets the caregiver share of each booking in basis points.
func WithSplitRatio(bps int64) Option {
	return func(e *Extension) { e.config.SplitRatioBps = bps }
}

// WithRecentLimit sets how many recent payments the report includes.
func WithRecentLimit(n int) Option {
	return func(e *Extension) { e.config.RecentLimit = n }
}
