package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/havencare/escrow"
	"github.com/havencare/escrow/caregiver"
	"github.com/havencare/escrow/payment"
)

type Store struct {
	mu sync.RWMutex

	// Caregiver storage, keyed by payout account id
	caregivers map[string]*caregiver.Caregiver

	// Payment storage, keyed by booking id
	payments map[string]*payment.Payment
}

func New() *Store {
	return &Store{
		caregivers: make(map[string]*caregiver.Caregiver),
		payments:   make(map[string]*payment.Payment),
	}
}

// Caregiver Store implementation
func (s *Store) CreateCaregiver(_ context.Context, cg *caregiver.Caregiver) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.caregivers[cg.AccountID]; exists {
		return escrow.ErrCaregiverExists
	}
	cp := *cg
	s.caregivers[cg.AccountID] = &cp
	return nil
}

func (s *Store) GetCaregiver(_ context.Context, accountID string) (*caregiver.Caregiver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if cg, ok := s.caregivers[accountID]; ok {
		cp := *cg
		return &cp, nil
	}
	return nil, escrow.ErrCaregiverNotFound
}

func (s *Store) ListCaregivers(_ context.Context, limit, offset int) ([]*caregiver.Caregiver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*caregiver.Caregiver, 0, len(s.caregivers))
	for _, cg := range s.caregivers {
		cp := *cg
		result = append(result, &cp)
	}

	// Newest first for stable pagination
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return paginate(result, limit, offset), nil
}

func (s *Store) CountCaregivers(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.caregivers), nil
}

// Payment Store implementation
func (s *Store) CreatePayment(_ context.Context, p *payment.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.payments[p.ID]; exists {
		return escrow.ErrDuplicateBooking
	}
	cp := *p
	s.payments[p.ID] = &cp
	return nil
}

func (s *Store) GetPayment(_ context.Context, bookingID string) (*payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.payments[bookingID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, escrow.ErrBookingNotFound
}

func (s *Store) FindPendingPaymentByContact(_ context.Context, contact string) (*payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *payment.Payment
	for _, p := range s.payments {
		if p.Status != payment.StatusPending {
			continue
		}
		if !contactMatches(p, contact) {
			continue
		}
		if best == nil || p.CreatedAt.After(best.CreatedAt) {
			best = p
		}
	}
	if best == nil {
		return nil, escrow.ErrNoActiveBooking
	}
	cp := *best
	return &cp, nil
}

func (s *Store) ListPayments(_ context.Context, filter payment.ListFilter) ([]*payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*payment.Payment, 0)
	for _, p := range s.payments {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.CaregiverID != "" && p.CaregiverID != filter.CaregiverID {
			continue
		}
		cp := *p
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return paginate(result, filter.Limit, filter.Offset), nil
}

func (s *Store) MarkPaymentPrompted(_ context.Context, bookingID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[bookingID]
	if !ok {
		return escrow.ErrBookingNotFound
	}
	p.PromptedAt = &at
	p.Touch()
	return nil
}

func (s *Store) CompletePayment(_ context.Context, bookingID, payoutRef string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[bookingID]
	if !ok {
		return escrow.ErrBookingNotFound
	}
	if p.Status != payment.StatusPending {
		return escrow.ErrPaymentNotPending
	}
	p.Status = payment.StatusCompleted
	p.PayoutRef = payoutRef
	p.PaidOutAt = &at
	p.Touch()
	return nil
}

func (s *Store) DisputePayment(_ context.Context, bookingID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[bookingID]
	if !ok {
		return escrow.ErrBookingNotFound
	}
	if p.Status != payment.StatusPending {
		return escrow.ErrPaymentNotPending
	}
	p.Status = payment.StatusDisputed
	p.DisputedAt = &at
	p.Touch()
	return nil
}

func (s *Store) FailPayment(_ context.Context, bookingID, lastError string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[bookingID]
	if !ok {
		return escrow.ErrBookingNotFound
	}
	if p.Status != payment.StatusPending {
		return escrow.ErrPaymentNotPending
	}
	p.Status = payment.StatusFailed
	p.LastError = lastError
	p.FailedAt = &at
	p.Touch()
	return nil
}

func (s *Store) CountPaymentsByStatus(_ context.Context, status payment.Status) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, p := range s.payments {
		if p.Status == status {
			count++
		}
	}
	return count, nil
}

func (s *Store) SumPlatformAmount(_ context.Context, status payment.Status) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for _, p := range s.payments {
		if p.Status == status {
			total += p.PlatformAmount.Amount
		}
	}
	return total, nil
}

func (s *Store) PurgePayments(_ context.Context, before time.Time, statuses []payment.Status) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for bookingID, p := range s.payments {
		if !p.CreatedAt.Before(before) {
			continue
		}
		for _, status := range statuses {
			if p.Status == status {
				delete(s.payments, bookingID)
				count++
				break
			}
		}
	}
	return count, nil
}

// Store management
func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	return nil // Always available
}

func (s *Store) Close() error {
	return nil // Nothing to close
}

// Helper functions
func contactMatches(p *payment.Payment, contact string) bool {
	c := normalizeContact(contact)
	return c != "" &&
		(normalizeContact(p.CustomerEmail) == c || normalizeContact(p.CustomerPhone) == c)
}

func normalizeContact(v string) string {
	return strings.ToLower(strings.Join(strings.Fields(v), ""))
}

func paginate[T any](items []T, limit, offset int) []T {
	start := offset
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if limit == 0 || end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
