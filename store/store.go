package store

import (
	"context"
	"time"

	"github.com/havencare/escrow/caregiver"
	"github.com/havencare/escrow/payment"
)

// Store is the unified storage interface for all Escrow records.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
//
// CompletePayment, DisputePayment, and FailPayment must only transition a
// record whose current status is pending; drivers enforce this atomically
// (conditional UPDATE, filtered update, or check under lock) so that only
// one of a racing confirmation and release timer wins.
type Store interface {
	// Caregiver methods
	CreateCaregiver(ctx context.Context, cg *caregiver.Caregiver) error
	GetCaregiver(ctx context.Context, accountID string) (*caregiver.Caregiver, error)
	ListCaregivers(ctx context.Context, limit, offset int) ([]*caregiver.Caregiver, error)
	CountCaregivers(ctx context.Context) (int, error)

	// Payment methods
	CreatePayment(ctx context.Context, p *payment.Payment) error
	GetPayment(ctx context.Context, bookingID string) (*payment.Payment, error)
	FindPendingPaymentByContact(ctx context.Context, contact string) (*payment.Payment, error)
	ListPayments(ctx context.Context, filter payment.ListFilter) ([]*payment.Payment, error)
	MarkPaymentPrompted(ctx context.Context, bookingID string, at time.Time) error
	CompletePayment(ctx context.Context, bookingID, payoutRef string, at time.Time) error
	DisputePayment(ctx context.Context, bookingID string, at time.Time) error
	FailPayment(ctx context.Context, bookingID, lastError string, at time.Time) error
	CountPaymentsByStatus(ctx context.Context, status payment.Status) (int, error)
	SumPlatformAmount(ctx context.Context, status payment.Status) (int64, error)
	PurgePayments(ctx context.Context, before time.Time, statuses []payment.Status) (int, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
