package sqlite

import (
	"encoding/json"
	"time"

	"github.com/xraph/grove"

	"github.com/havencare/escrow/caregiver"
	"github.com/havencare/escrow/id"
	"github.com/havencare/escrow/payment"
	"github.com/havencare/escrow/types"
)

// ==================== Caregiver models ====================

type caregiverModel struct {
	grove.BaseModel `grove:"table:escrow_caregivers"`

	AccountID     string          `grove:"account_id,pk"`
	Name          string          `grove:"name"`
	Email         string          `grove:"email"`
	Phone         string          `grove:"phone"`
	SubmissionRef string          `grove:"submission_ref"`
	Metadata      json.RawMessage `grove:"metadata"`
	CreatedAt     time.Time       `grove:"created_at"`
	UpdatedAt     time.Time       `grove:"updated_at"`
}

func toCaregiverModel(cg *caregiver.Caregiver) *caregiverModel {
	// Maps don't bind as SQL arguments; metadata is stored as JSON text.
	metadata, _ := json.Marshal(cg.Metadata) //nolint:errcheck // best-effort

	return &caregiverModel{
		AccountID:     cg.AccountID,
		Name:          cg.Name,
		Email:         cg.Email,
		Phone:         cg.Phone,
		SubmissionRef: cg.SubmissionRef.String(),
		Metadata:      metadata,
		CreatedAt:     cg.CreatedAt,
		UpdatedAt:     cg.UpdatedAt,
	}
}

func fromCaregiverModel(m *caregiverModel) (*caregiver.Caregiver, error) {
	var submissionRef id.SubmissionID
	if m.SubmissionRef != "" {
		parsed, err := id.ParseSubmissionID(m.SubmissionRef)
		if err != nil {
			return nil, err
		}
		submissionRef = parsed
	}

	var metadata map[string]string
	if len(m.Metadata) > 0 {
		_ = json.Unmarshal(m.Metadata, &metadata) //nolint:errcheck // best-effort
	}

	return &caregiver.Caregiver{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		AccountID:     m.AccountID,
		Name:          m.Name,
		Email:         m.Email,
		Phone:         m.Phone,
		SubmissionRef: submissionRef,
		Metadata:      metadata,
	}, nil
}

// ==================== Payment models ====================

type paymentModel struct {
	grove.BaseModel `grove:"table:escrow_payments"`

	ID              string          `grove:"id,pk"`
	CustomerName    string          `grove:"customer_name"`
	CustomerEmail   string          `grove:"customer_email"`
	CustomerPhone   string          `grove:"customer_phone"`
	CaregiverID     string          `grove:"caregiver_id"`
	TotalAmount     int64           `grove:"total_amount"`
	Currency        string          `grove:"currency"`
	CaregiverAmount int64           `grove:"caregiver_amount"`
	PlatformAmount  int64           `grove:"platform_amount"`
	Status          string          `grove:"status"`
	PayoutRef       string          `grove:"payout_ref"`
	PaidOutAt       *time.Time      `grove:"paid_out_at"`
	DisputedAt      *time.Time      `grove:"disputed_at"`
	FailedAt        *time.Time      `grove:"failed_at"`
	LastError       string          `grove:"last_error"`
	PromptedAt      *time.Time      `grove:"prompted_at"`
	ReleaseAt       time.Time       `grove:"release_at"`
	Metadata        json.RawMessage `grove:"metadata"`
	CreatedAt       time.Time       `grove:"created_at"`
	UpdatedAt       time.Time       `grove:"updated_at"`
}

func toPaymentModel(p *payment.Payment) *paymentModel {
	metadata, _ := json.Marshal(p.Metadata) //nolint:errcheck // best-effort

	return &paymentModel{
		ID:              p.ID,
		CustomerName:    p.CustomerName,
		CustomerEmail:   p.CustomerEmail,
		CustomerPhone:   p.CustomerPhone,
		CaregiverID:     p.CaregiverID,
		TotalAmount:     p.Total.Amount,
		Currency:        p.Total.Currency,
		CaregiverAmount: p.CaregiverAmount.Amount,
		PlatformAmount:  p.PlatformAmount.Amount,
		Status:          string(p.Status),
		PayoutRef:       p.PayoutRef,
		PaidOutAt:       p.PaidOutAt,
		DisputedAt:      p.DisputedAt,
		FailedAt:        p.FailedAt,
		LastError:       p.LastError,
		PromptedAt:      p.PromptedAt,
		ReleaseAt:       p.ReleaseAt,
		Metadata:        metadata,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func fromPaymentModel(m *paymentModel) *payment.Payment {
	var metadata map[string]string
	if len(m.Metadata) > 0 {
		_ = json.Unmarshal(m.Metadata, &metadata) //nolint:errcheck // best-effort
	}

	return &payment.Payment{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:              m.ID,
		CustomerName:    m.CustomerName,
		CustomerEmail:   m.CustomerEmail,
		CustomerPhone:   m.CustomerPhone,
		CaregiverID:     m.CaregiverID,
		Total:           types.Money{Amount: m.TotalAmount, Currency: m.Currency},
		CaregiverAmount: types.Money{Amount: m.CaregiverAmount, Currency: m.Currency},
		PlatformAmount:  types.Money{Amount: m.PlatformAmount, Currency: m.Currency},
		Status:          payment.Status(m.Status),
		PayoutRef:       m.PayoutRef,
		PaidOutAt:       m.PaidOutAt,
		DisputedAt:      m.DisputedAt,
		FailedAt:        m.FailedAt,
		LastError:       m.LastError,
		PromptedAt:      m.PromptedAt,
		ReleaseAt:       m.ReleaseAt,
		Metadata:        metadata,
	}
}
