// Package plugin provides an extensible plugin system for Escrow.
// Plugins can hook into various lifecycle events to extend functionality.
package plugin

import (
	"context"
	"time"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Caregiver lifecycle hooks
// ──────────────────────────────────────────────────

// OnCaregiverOnboarded is called when a caregiver completes onboarding.
type OnCaregiverOnboarded interface {
	Plugin
	OnCaregiverOnboarded(ctx context.Context, cg interface{}) error
}

// ──────────────────────────────────────────────────
// Booking lifecycle hooks
// ──────────────────────────────────────────────────

// OnBookingCreated is called when a booking enters escrow.
type OnBookingCreated interface {
	Plugin
	OnBookingCreated(ctx context.Context, p interface{}) error
}

// OnConfirmationReceived is called for every inbound confirmation message,
// whether or not it matched a booking.
type OnConfirmationReceived interface {
	Plugin
	OnConfirmationReceived(ctx context.Context, contact, message string, matched bool) error
}

// ──────────────────────────────────────────────────
// Payment outcome hooks
// ──────────────────────────────────────────────────

// OnPaymentCompleted is called when a payment settles and the payout succeeds.
type OnPaymentCompleted interface {
	Plugin
	OnPaymentCompleted(ctx context.Context, p interface{}) error
}

// OnPaymentDisputed is called when a customer reports a problem.
type OnPaymentDisputed interface {
	Plugin
	OnPaymentDisputed(ctx context.Context, p interface{}) error
}

// OnPaymentFailed is called when a payout attempt fails.
type OnPaymentFailed interface {
	Plugin
	OnPaymentFailed(ctx context.Context, p interface{}, err error) error
}

// ──────────────────────────────────────────────────
// Maintenance hooks
// ──────────────────────────────────────────────────

// OnRetentionSwept is called after a retention sweep completes.
type OnRetentionSwept interface {
	Plugin
	OnRetentionSwept(ctx context.Context, purged int, before time.Time) error
}

// ──────────────────────────────────────────────────
// Provider hooks
// ──────────────────────────────────────────────────

// AccountProviderPlugin provides a payout account provider implementation.
type AccountProviderPlugin interface {
	Plugin
	Provider() interface{} // Returns provider.AccountProvider
}

// MessengerPlugin provides a customer messenger implementation.
type MessengerPlugin interface {
	Plugin
	Messenger() interface{} // Returns provider.Messenger
}
