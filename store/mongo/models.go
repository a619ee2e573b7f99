package mongo

import (
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

	AccountID     string            `grove:"account_id,pk"  bson:"_id"`
	Name          string            `grove:"name"           bson:"name"`
	Email         string            `grove:"email"          bson:"email"`
	Phone         string            `grove:"phone"          bson:"phone"`
	SubmissionRef string            `grove:"submission_ref" bson:"submission_ref"`
	Metadata      map[string]string `grove:"metadata"       bson:"metadata,omitempty"`
	CreatedAt     time.Time         `grove:"created_at"     bson:"created_at"`
	UpdatedAt     time.Time         `grove:"updated_at"     bson:"updated_at"`
}

func toCaregiverModel(cg *caregiver.Caregiver) *caregiverModel {
	return &caregiverModel{
		AccountID:     cg.AccountID,
		Name:          cg.Name,
		Email:         cg.Email,
		Phone:         cg.Phone,
		SubmissionRef: cg.SubmissionRef.String(),
		Metadata:      cg.Metadata,
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
		Metadata:      m.Metadata,
	}, nil
}

// ==================== Payment models ====================

type paymentModel struct {
	grove.BaseModel `grove:"table:escrow_payments"`

	ID              string            `grove:"id,pk"            bson:"_id"`
	CustomerName    string            `grove:"customer_name"    bson:"customer_name"`
	CustomerEmail   string            `grove:"customer_email"   bson:"customer_email"`
	CustomerPhone   string            `grove:"customer_phone"   bson:"customer_phone"`
	CaregiverID     string            `grove:"caregiver_id"     bson:"caregiver_id"`
	TotalAmount     int64             `grove:"total_amount"     bson:"total_amount"`
	Currency        string            `grove:"currency"         bson:"currency"`
	CaregiverAmount int64             `grove:"caregiver_amount" bson:"caregiver_amount"`
	PlatformAmount  int64             `grove:"platform_amount"  bson:"platform_amount"`
	Status          string            `grove:"status"           bson:"status"`
	PayoutRef       string            `grove:"payout_ref"       bson:"payout_ref"`
	PaidOutAt       *time.Time        `grove:"paid_out_at"      bson:"paid_out_at,omitempty"`
	DisputedAt      *time.Time        `grove:"disputed_at"      bson:"disputed_at,omitempty"`
	FailedAt        *time.Time        `grove:"failed_at"        bson:"failed_at,omitempty"`
	LastError       string            `grove:"last_error"       bson:"last_error"`
	PromptedAt      *time.Time        `grove:"prompted_at"      bson:"prompted_at,omitempty"`
	ReleaseAt       time.Time         `grove:"release_at"       bson:"release_at"`
	Metadata        map[string]string `grove:"metadata"         bson:"metadata,omitempty"`
	CreatedAt       time.Time         `grove:"created_at"       bson:"created_at"`
	UpdatedAt       time.Time         `grove:"updated_at"       bson:"updated_at"`
}

func toPaymentModel(p *payment.Payment) *paymentModel {
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
		Metadata:        p.Metadata,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func fromPaymentModel(m *paymentModel) *payment.Payment {
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
		Metadata:        m.Metadata,
	}
}
