// Package observability provides a metrics extension for Escrow that records
// lifecycle event counts via a pluggable MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/havencare/escrow/payment"
	"github.com/havencare/escrow/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                 = (*MetricsExtension)(nil)
	_ plugin.OnInit                 = (*MetricsExtension)(nil)
	_ plugin.OnCaregiverOnboarded   = (*MetricsExtension)(nil)
	_ plugin.OnBookingCreated       = (*MetricsExtension)(nil)
	_ plugin.OnConfirmationReceived = (*MetricsExtension)(nil)
	_ plugin.OnPaymentCompleted     = (*MetricsExtension)(nil)
	_ plugin.OnPaymentDisputed      = (*MetricsExtension)(nil)
	_ plugin.OnPaymentFailed        = (*MetricsExtension)(nil)
	_ plugin.OnRetentionSwept       = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as an Escrow plugin to automatically track payment metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Caregiver metrics
	CaregiverOnboarded Counter

	// Booking metrics
	BookingCreated Counter
	BookingTotal   Histogram

	// Confirmation metrics
	ConfirmationMatched   Counter
	ConfirmationUnmatched Counter

	// Payment metrics
	PaymentCompleted Counter
	PaymentDisputed  Counter
	PaymentFailed    Counter
	PayoutAmount     Histogram

	// Retention metrics
	RetentionPurged Counter

	// Error metrics
	StoreErrors  Counter
	PluginErrors Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Caregiver metrics
		CaregiverOnboarded: factory.Counter("escrow.caregiver.onboarded"),

		// Booking metrics
		BookingCreated: factory.Counter("escrow.booking.created"),
		BookingTotal:   factory.Histogram("escrow.booking.total_amount"),

		// Confirmation metrics
		ConfirmationMatched:   factory.Counter("escrow.confirmation.matched"),
		ConfirmationUnmatched: factory.Counter("escrow.confirmation.unmatched"),

		// Payment metrics
		PaymentCompleted: factory.Counter("escrow.payment.completed"),
		PaymentDisputed:  factory.Counter("escrow.payment.disputed"),
		PaymentFailed:    factory.Counter("escrow.payment.failed"),
		PayoutAmount:     factory.Histogram("escrow.payout.amount"),

		// Retention metrics
		RetentionPurged: factory.Counter("escrow.retention.purged"),

		// Error metrics
		StoreErrors:  factory.Counter("escrow.store.errors"),
		PluginErrors: factory.Counter("escrow.plugin.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Caregiver lifecycle hooks
// ──────────────────────────────────────────────────

// OnCaregiverOnboarded implements plugin.OnCaregiverOnboarded.
func (m *MetricsExtension) OnCaregiverOnboarded(_ context.Context, _ interface{}) error {
	m.CaregiverOnboarded.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Booking lifecycle hooks
// ──────────────────────────────────────────────────

// OnBookingCreated implements plugin.OnBookingCreated.
func (m *MetricsExtension) OnBookingCreated(_ context.Context, pmt interface{}) error {
	m.BookingCreated.Inc()
	if p, ok := pmt.(*payment.Payment); ok {
		m.BookingTotal.Observe(float64(p.Total.Amount))
	}
	return nil
}

// OnConfirmationReceived implements plugin.OnConfirmationReceived.
func (m *MetricsExtension) OnConfirmationReceived(_ context.Context, _, _ string, matched bool) error {
	if matched {
		m.ConfirmationMatched.Inc()
	} else {
		m.ConfirmationUnmatched.Inc()
	}
	return nil
}

// ──────────────────────────────────────────────────
// Payment lifecycle hooks
// ──────────────────────────────────────────────────

// OnPaymentCompleted implements plugin.OnPaymentCompleted.
func (m *MetricsExtension) OnPaymentCompleted(_ context.Context, pmt interface{}) error {
	m.PaymentCompleted.Inc()
	if p, ok := pmt.(*payment.Payment); ok {
		m.PayoutAmount.Observe(float64(p.CaregiverAmount.Amount))
	}
	return nil
}

// OnPaymentDisputed implements plugin.OnPaymentDisputed.
func (m *MetricsExtension) OnPaymentDisputed(_ context.Context, _ interface{}) error {
	m.PaymentDisputed.Inc()
	return nil
}

// OnPaymentFailed implements plugin.OnPaymentFailed.
func (m *MetricsExtension) OnPaymentFailed(_ context.Context, _ interface{}, _ error) error {
	m.PaymentFailed.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Retention lifecycle hooks
// ──────────────────────────────────────────────────

// OnRetentionSwept implements plugin.OnRetentionSwept.
func (m *MetricsExtension) OnRetentionSwept(_ context.Context, purged int, _ time.Time) error {
	m.RetentionPurged.Add(float64(purged))
	return nil
}
