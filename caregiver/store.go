package caregiver

import "context"

// Store is the persistence interface for caregivers.
type Store interface {
	Create(ctx context.Context, cg *Caregiver) error
	Get(ctx context.Context, accountID string) (*Caregiver, error)
	List(ctx context.Context, limit, offset int) ([]*Caregiver, error)
	Count(ctx context.Context) (int, error)
}
