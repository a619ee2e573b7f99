// Package caregiver defines the caregiver onboarding domain model.
package caregiver

import (
	"github.com/havencare/escrow/id"
	"github.com/havencare/escrow/types"
)

// Caregiver is a care provider who has been onboarded and can receive
// payouts. The primary key is the payout account id assigned by the
// payment provider during onboarding.
type Caregiver struct {
	types.Entity
	AccountID     string            `json:"account_id"`
	Name          string            `json:"name"`
	Email         string            `json:"email"`
	Phone         string            `json:"phone,omitempty"`
	SubmissionRef id.SubmissionID   `json:"submission_ref"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}
