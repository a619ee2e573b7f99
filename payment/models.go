// Package payment defines the escrow payment record and its lifecycle states.
package payment

import (
	"time"

	"github.com/havencare/escrow/types"
)

// Status is the lifecycle state of an escrow payment.
type Status string

const (
	// StatusPending means funds are held and the outcome is undecided.
	StatusPending Status = "pending"
	// StatusCompleted means the caregiver share was paid out.
	StatusCompleted Status = "completed"
	// StatusDisputed means the customer reported a problem; funds stay held.
	StatusDisputed Status = "disputed"
	// StatusFailed means the payout attempt failed; funds stay held.
	StatusFailed Status = "failed"
)

// Terminal reports whether the status is final. Terminal records never
// transition again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusDisputed || s == StatusFailed
}

// Valid reports whether the status is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusDisputed, StatusFailed:
		return true
	}
	return false
}

// Payment is a single booking held in escrow. The ID is the booking id:
// either the external intake submission id, kept verbatim, or a generated
// "bkg_" TypeID when the intake carries none.
type Payment struct {
	types.Entity
	ID              string            `json:"id"`
	CustomerName    string            `json:"customer_name"`
	CustomerEmail   string            `json:"customer_email"`
	CustomerPhone   string            `json:"customer_phone"`
	CaregiverID     string            `json:"caregiver_id"`
	Total           types.Money       `json:"total"`
	CaregiverAmount types.Money       `json:"caregiver_amount"`
	PlatformAmount  types.Money       `json:"platform_amount"`
	Status          Status            `json:"status"`
	PayoutRef       string            `json:"payout_ref,omitempty"`
	PaidOutAt       *time.Time        `json:"paid_out_at,omitempty"`
	DisputedAt      *time.Time        `json:"disputed_at,omitempty"`
	FailedAt        *time.Time        `json:"failed_at,omitempty"`
	LastError       string            `json:"last_error,omitempty"`
	PromptedAt      *time.Time        `json:"prompted_at,omitempty"`
	ReleaseAt       time.Time         `json:"release_at"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// Pending reports whether the payment is still awaiting an outcome.
func (p *Payment) Pending() bool {
	return p.Status == StatusPending
}
