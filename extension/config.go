package extension

import "time"

// Config holds the Escrow extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.escrow" or "escrow" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// ReleaseDelay is how long a pending payment waits for a customer
	// confirmation before the payout is released automatically (default: 48h).
	ReleaseDelay time.Duration `json:"release_delay" mapstructure:"release_delay" yaml:"release_delay"`

	// RetentionWindow is how long settled payment records are kept before
	// the retention sweep purges them (default: 720h).
	RetentionWindow time.Duration `json:"retention_window" mapstructure:"retention_window" yaml:"retention_window"`

	// SweepInterval is how frequently the retention sweep runs (default: 24h).
	SweepInterval time.Duration `json:"sweep_interval" mapstructure:"sweep_interval" yaml:"sweep_interval"`

	// SplitRatioBps is the caregiver share of each booking in basis points
	// (default: 3500, i.e. 35%).
	SplitRatioBps int64 `json:"split_ratio_bps" mapstructure:"split_ratio_bps" yaml:"split_ratio_bps"`

	// RecentLimit is how many recent payments the report includes (default: 10).
	RecentLimit int `json:"recent_limit" mapstructure:"recent_limit" yaml:"recent_limit"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ReleaseDelay:    48 * time.Hour,
		RetentionWindow: 30 * 24 * time.Hour,
		SweepInterval:   24 * time.Hour,
		SplitRatioBps:   3500,
		RecentLimit:     10,
	}
}
