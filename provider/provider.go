// Package provider declares the external service interfaces the escrow
// engine depends on: payout accounts and transfers on one side, customer
// messaging on the other. Implementations live in subpackages; tests and
// embedded deployments can substitute their own.
package provider

import (
	"context"
	"fmt"

	"github.com/havencare/escrow/types"
)

// AccountProvider manages payout accounts and moves held funds to them.
type AccountProvider interface {
	// CreateAccount provisions a payout account for a caregiver and returns
	// its provider-assigned id.
	CreateAccount(ctx context.Context, name, email string) (string, error)

	// OnboardingLink returns a URL where the caregiver completes identity
	// and bank-detail collection for the given account.
	OnboardingLink(ctx context.Context, accountID string) (string, error)

	// Payout transfers the amount to the destination account. The bookingID
	// groups the transfer with its originating charge on the provider side.
	// Returns the provider's transfer reference.
	Payout(ctx context.Context, accountID string, amount types.Money, bookingID string) (string, error)
}

// Messenger delivers confirmation prompts and notices to customers.
type Messenger interface {
	Send(ctx context.Context, to, body string) error
}

// PayoutError wraps a provider failure during a transfer. The escrow record
// keeps its amounts; only the status and error text change.
type PayoutError struct {
	AccountID string
	BookingID string
	Err       error
}

func (e *PayoutError) Error() string {
	return fmt.Sprintf("provider: payout to %s for booking %s failed: %v", e.AccountID, e.BookingID, e.Err)
}

func (e *PayoutError) Unwrap() error { return e.Err }

// MessageError wraps a provider failure during message delivery.
type MessageError struct {
	To  string
	Err error
}

func (e *MessageError) Error() string {
	return fmt.Sprintf("provider: message to %s failed: %v", e.To, e.Err)
}

func (e *MessageError) Unwrap() error { return e.Err }
