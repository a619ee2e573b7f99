// Package audithook bridges Escrow lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// a concrete audit backend directly. Callers inject a RecorderFunc adapter
// that bridges to their backend at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/havencare/escrow/payment"
	"github.com/havencare/escrow/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                 = (*Extension)(nil)
	_ plugin.OnCaregiverOnboarded   = (*Extension)(nil)
	_ plugin.OnBookingCreated       = (*Extension)(nil)
	_ plugin.OnConfirmationReceived = (*Extension)(nil)
	_ plugin.OnPaymentCompleted     = (*Extension)(nil)
	_ plugin.OnPaymentDisputed      = (*Extension)(nil)
	_ plugin.OnPaymentFailed        = (*Extension)(nil)
	_ plugin.OnRetentionSwept       = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// It is defined locally so that the audit_hook package does not import
// a backend directly; callers inject the concrete recorder at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Escrow lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Caregiver lifecycle hooks
// ──────────────────────────────────────────────────

// OnCaregiverOnboarded implements plugin.OnCaregiverOnboarded.
func (e *Extension) OnCaregiverOnboarded(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionCaregiverOnboarded, SeverityInfo, OutcomeSuccess,
		ResourceCaregiver, "", CategoryOnboarding, nil,
		"event", "caregiver_onboarded",
	)
}

// ──────────────────────────────────────────────────
// Booking lifecycle hooks
// ──────────────────────────────────────────────────

// OnBookingCreated implements plugin.OnBookingCreated.
func (e *Extension) OnBookingCreated(ctx context.Context, pmt interface{}) error {
	return e.record(ctx, ActionBookingCreated, SeverityInfo, OutcomeSuccess,
		ResourceBooking, bookingID(pmt), CategoryBooking, nil,
		"event", "booking_created",
	)
}

// OnConfirmationReceived implements plugin.OnConfirmationReceived.
func (e *Extension) OnConfirmationReceived(ctx context.Context, contact, message string, matched bool) error {
	action := ActionConfirmationReceived
	outcome := OutcomeSuccess
	severity := SeverityInfo
	if !matched {
		action = ActionConfirmationUnmatched
		outcome = OutcomeFailure
		severity = SeverityWarning
	}
	return e.record(ctx, action, severity, outcome,
		ResourceConfirmation, "", CategoryBooking, nil,
		"contact", contact,
		"message", message,
	)
}

// ──────────────────────────────────────────────────
// Payment lifecycle hooks
// ──────────────────────────────────────────────────

// OnPaymentCompleted implements plugin.OnPaymentCompleted.
func (e *Extension) OnPaymentCompleted(ctx context.Context, pmt interface{}) error {
	return e.record(ctx, ActionPaymentCompleted, SeverityInfo, OutcomeSuccess,
		ResourcePayment, bookingID(pmt), CategoryPayment, nil,
		"event", "payment_completed",
	)
}

// OnPaymentDisputed implements plugin.OnPaymentDisputed.
func (e *Extension) OnPaymentDisputed(ctx context.Context, pmt interface{}) error {
	return e.record(ctx, ActionPaymentDisputed, SeverityWarning, OutcomeSuccess,
		ResourcePayment, bookingID(pmt), CategoryPayment, nil,
		"event", "payment_disputed",
	)
}

// OnPaymentFailed implements plugin.OnPaymentFailed.
func (e *Extension) OnPaymentFailed(ctx context.Context, pmt interface{}, err error) error {
	return e.record(ctx, ActionPaymentFailed, SeverityCritical, OutcomeFailure,
		ResourcePayment, bookingID(pmt), CategoryPayment, err,
		"event", "payment_failed",
	)
}

// ──────────────────────────────────────────────────
// Retention lifecycle hooks
// ──────────────────────────────────────────────────

// OnRetentionSwept implements plugin.OnRetentionSwept.
func (e *Extension) OnRetentionSwept(ctx context.Context, purged int, before time.Time) error {
	return e.record(ctx, ActionRetentionSwept, SeverityInfo, OutcomeSuccess,
		ResourceRetention, "", CategoryRetention, nil,
		"purged", purged,
		"before", before,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// bookingID extracts the booking id when the event payload is a payment record.
func bookingID(pmt interface{}) string {
	if p, ok := pmt.(*payment.Payment); ok {
		return p.ID
	}
	return ""
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
