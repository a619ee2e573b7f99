package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit                 []OnInit
	onShutdown             []OnShutdown
	onCaregiverOnboarded   []OnCaregiverOnboarded
	onBookingCreated       []OnBookingCreated
	onConfirmationReceived []OnConfirmationReceived
	onPaymentCompleted     []OnPaymentCompleted
	onPaymentDisputed      []OnPaymentDisputed
	onPaymentFailed        []OnPaymentFailed
	onRetentionSwept       []OnRetentionSwept
	accountProviders       []AccountProviderPlugin
	messengers             []MessengerPlugin
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnCaregiverOnboarded); ok {
		r.onCaregiverOnboarded = append(r.onCaregiverOnboarded, v)
	}
	if v, ok := p.(OnBookingCreated); ok {
		r.onBookingCreated = append(r.onBookingCreated, v)
	}
	if v, ok := p.(OnConfirmationReceived); ok {
		r.onConfirmationReceived = append(r.onConfirmationReceived, v)
	}
	if v, ok := p.(OnPaymentCompleted); ok {
		r.onPaymentCompleted = append(r.onPaymentCompleted, v)
	}
	if v, ok := p.(OnPaymentDisputed); ok {
		r.onPaymentDisputed = append(r.onPaymentDisputed, v)
	}
	if v, ok := p.(OnPaymentFailed); ok {
		r.onPaymentFailed = append(r.onPaymentFailed, v)
	}
	if v, ok := p.(OnRetentionSwept); ok {
		r.onRetentionSwept = append(r.onRetentionSwept, v)
	}
	if v, ok := p.(AccountProviderPlugin); ok {
		r.accountProviders = append(r.accountProviders, v)
	}
	if v, ok := p.(MessengerPlugin); ok {
		r.messengers = append(r.messengers, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	// Check each interface
	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	// List all interfaces to check
	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnCaregiverOnboarded)(nil)).Elem(), "OnCaregiverOnboarded")
	checkInterface(reflect.TypeOf((*OnBookingCreated)(nil)).Elem(), "OnBookingCreated")
	checkInterface(reflect.TypeOf((*OnConfirmationReceived)(nil)).Elem(), "OnConfirmationReceived")
	checkInterface(reflect.TypeOf((*OnPaymentCompleted)(nil)).Elem(), "OnPaymentCompleted")
	checkInterface(reflect.TypeOf((*OnPaymentDisputed)(nil)).Elem(), "OnPaymentDisputed")
	checkInterface(reflect.TypeOf((*OnPaymentFailed)(nil)).Elem(), "OnPaymentFailed")
	checkInterface(reflect.TypeOf((*OnRetentionSwept)(nil)).Elem(), "OnRetentionSwept")
	checkInterface(reflect.TypeOf((*AccountProviderPlugin)(nil)).Elem(), "AccountProvider")
	checkInterface(reflect.TypeOf((*MessengerPlugin)(nil)).Elem(), "Messenger")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitCaregiverOnboarded emits a caregiver onboarded event.
func (r *Registry) EmitCaregiverOnboarded(ctx context.Context, cg interface{}) {
	r.mu.RLock()
	plugins := r.onCaregiverOnboarded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCaregiverOnboarded(ctx, cg)
		}); err != nil {
			r.logger.Warn("plugin OnCaregiverOnboarded failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitBookingCreated emits a booking created event.
func (r *Registry) EmitBookingCreated(ctx context.Context, pmt interface{}) {
	r.mu.RLock()
	plugins := r.onBookingCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnBookingCreated(ctx, pmt)
		}); err != nil {
			r.logger.Warn("plugin OnBookingCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitConfirmationReceived emits a confirmation received event.
func (r *Registry) EmitConfirmationReceived(ctx context.Context, contact, message string, matched bool) {
	r.mu.RLock()
	plugins := r.onConfirmationReceived
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnConfirmationReceived(ctx, contact, message, matched)
		}); err != nil {
			r.logger.Warn("plugin OnConfirmationReceived failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPaymentCompleted emits a payment completed event.
func (r *Registry) EmitPaymentCompleted(ctx context.Context, pmt interface{}) {
	r.mu.RLock()
	plugins := r.onPaymentCompleted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPaymentCompleted(ctx, pmt)
		}); err != nil {
			r.logger.Warn("plugin OnPaymentCompleted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPaymentDisputed emits a payment disputed event.
func (r *Registry) EmitPaymentDisputed(ctx context.Context, pmt interface{}) {
	r.mu.RLock()
	plugins := r.onPaymentDisputed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPaymentDisputed(ctx, pmt)
		}); err != nil {
			r.logger.Warn("plugin OnPaymentDisputed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPaymentFailed emits a payment failed event.
func (r *Registry) EmitPaymentFailed(ctx context.Context, pmt interface{}, failure error) {
	r.mu.RLock()
	plugins := r.onPaymentFailed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPaymentFailed(ctx, pmt, failure)
		}); err != nil {
			r.logger.Warn("plugin OnPaymentFailed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitRetentionSwept emits a retention sweep event.
func (r *Registry) EmitRetentionSwept(ctx context.Context, purged int, before time.Time) {
	r.mu.RLock()
	plugins := r.onRetentionSwept
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRetentionSwept(ctx, purged, before)
		}); err != nil {
			r.logger.Warn("plugin OnRetentionSwept failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// GetAccountProviders returns all registered account provider plugins.
func (r *Registry) GetAccountProviders() []AccountProviderPlugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]AccountProviderPlugin, len(r.accountProviders))
	copy(result, r.accountProviders)
	return result
}

// GetMessengers returns all registered messenger plugins.
func (r *Registry) GetMessengers() []MessengerPlugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]MessengerPlugin, len(r.messengers))
	copy(result, r.messengers)
	return result
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the escrow pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
