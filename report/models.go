// Package report defines the read-side reporting view over escrow records.
package report

import (
	"time"

	"github.com/havencare/escrow/payment"
	"github.com/havencare/escrow/types"
)

// Summary is a point-in-time aggregate over the escrow records, suitable for
// an operations dashboard.
type Summary struct {
	GeneratedAt time.Time `json:"generated_at"`

	Caregivers int `json:"caregivers"`

	Pending   int `json:"pending"`
	Completed int `json:"completed"`
	Disputed  int `json:"disputed"`
	Failed    int `json:"failed"`

	// PlatformRevenue is the sum of platform shares on completed payments.
	PlatformRevenue types.Money `json:"platform_revenue"`

	// Recent lists the most recently created payments, newest first.
	Recent []*payment.Payment `json:"recent"`
}

// Total returns the total number of payments across all states.
func (s *Summary) Total() int {
	return s.Pending + s.Completed + s.Disputed + s.Failed
}
