package payment

import (
	"context"
	"time"
)

// ListFilter narrows List queries. Zero values mean "no constraint".
type ListFilter struct {
	Status      Status
	CaregiverID string
	Limit       int
	Offset      int
}

// Store is the persistence interface for escrow payments.
//
// CompletePayment, DisputePayment, and FailPayment carry a pending-status
// precondition: they must only transition a record whose current status is
// pending, and return an error otherwise. This is the second line of defense
// against the confirmation-versus-timer race; the engine serializes per
// booking above it.
type Store interface {
	Create(ctx context.Context, p *Payment) error
	Get(ctx context.Context, bookingID string) (*Payment, error)

	// FindPendingByContact returns the most recently created pending payment
	// whose customer email or phone matches the given contact value.
	FindPendingByContact(ctx context.Context, contact string) (*Payment, error)

	List(ctx context.Context, filter ListFilter) ([]*Payment, error)

	// MarkPrompted records that a confirmation prompt went out.
	MarkPrompted(ctx context.Context, bookingID string, at time.Time) error

	// Complete transitions pending → completed and records the payout ref.
	Complete(ctx context.Context, bookingID, payoutRef string, at time.Time) error

	// Dispute transitions pending → disputed.
	Dispute(ctx context.Context, bookingID string, at time.Time) error

	// Fail transitions pending → failed and records the payout error.
	Fail(ctx context.Context, bookingID, lastError string, at time.Time) error

	CountByStatus(ctx context.Context, status Status) (int, error)

	// SumPlatformAmount totals platform shares (in minor units) across
	// payments in the given status.
	SumPlatformAmount(ctx context.Context, status Status) (int64, error)

	// Purge deletes payments in the given statuses created before the cutoff.
	// Returns the number of deleted records.
	Purge(ctx context.Context, before time.Time, statuses []Status) (int, error)
}
