package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	escrow "github.com/havencare/escrow"
	"github.com/havencare/escrow/caregiver"
	"github.com/havencare/escrow/payment"
	escrowstore "github.com/havencare/escrow/store"
)

// Collection name constants.
const (
	colCaregivers = "escrow_caregivers"
	colPayments   = "escrow_payments"
)

// compile-time interface check
var _ escrowstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all escrow collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("escrow/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Caregiver Store ====================

func (s *Store) CreateCaregiver(ctx context.Context, cg *caregiver.Caregiver) error {
	m := toCaregiverModel(cg)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return escrow.ErrCaregiverExists
		}
		return fmt.Errorf("escrow/mongo: create caregiver: %w", err)
	}
	return nil
}

func (s *Store) GetCaregiver(ctx context.Context, accountID string) (*caregiver.Caregiver, error) {
	var m caregiverModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": accountID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, escrow.ErrCaregiverNotFound
		}
		return nil, fmt.Errorf("escrow/mongo: get caregiver: %w", err)
	}
	return fromCaregiverModel(&m)
}

func (s *Store) ListCaregivers(ctx context.Context, limit, offset int) ([]*caregiver.Caregiver, error) {
	var models []caregiverModel

	q := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "created_at", Value: -1}})

	if limit > 0 {
		q = q.Limit(int64(limit))
	}
	if offset > 0 {
		q = q.Skip(int64(offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("escrow/mongo: list caregivers: %w", err)
	}

	result := make([]*caregiver.Caregiver, len(models))
	for i := range models {
		cg, err := fromCaregiverModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = cg
	}
	return result, nil
}

func (s *Store) CountCaregivers(ctx context.Context) (int, error) {
	count, err := s.mdb.Collection(colCaregivers).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("escrow/mongo: count caregivers: %w", err)
	}
	return int(count), nil
}

// ==================== Payment Store ====================

func (s *Store) CreatePayment(ctx context.Context, p *payment.Payment) error {
	m := toPaymentModel(p)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return escrow.ErrDuplicateBooking
		}
		return fmt.Errorf("escrow/mongo: create payment: %w", err)
	}
	return nil
}

func (s *Store) GetPayment(ctx context.Context, bookingID string) (*payment.Payment, error) {
	var m paymentModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": bookingID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, escrow.ErrBookingNotFound
		}
		return nil, fmt.Errorf("escrow/mongo: get payment: %w", err)
	}
	return fromPaymentModel(&m), nil
}

func (s *Store) FindPendingPaymentByContact(ctx context.Context, contact string) (*payment.Payment, error) {
	c := normalizeContact(contact)
	if c == "" {
		return nil, escrow.ErrNoActiveBooking
	}

	var m paymentModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{
			"status": string(payment.StatusPending),
			"$or": bson.A{
				bson.M{"customer_email": c},
				bson.M{"customer_phone": c},
			},
		}).
		Sort(bson.D{{Key: "created_at", Value: -1}}).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, escrow.ErrNoActiveBooking
		}
		return nil, fmt.Errorf("escrow/mongo: find pending payment: %w", err)
	}
	return fromPaymentModel(&m), nil
}

func (s *Store) ListPayments(ctx context.Context, filter payment.ListFilter) ([]*payment.Payment, error) {
	var models []paymentModel

	f := bson.M{}
	if filter.Status != "" {
		f["status"] = string(filter.Status)
	}
	if filter.CaregiverID != "" {
		f["caregiver_id"] = filter.CaregiverID
	}

	q := s.mdb.NewFind(&models).
		Filter(f).
		Sort(bson.D{{Key: "created_at", Value: -1}})

	if filter.Limit > 0 {
		q = q.Limit(int64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Skip(int64(filter.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("escrow/mongo: list payments: %w", err)
	}

	result := make([]*payment.Payment, len(models))
	for i := range models {
		result[i] = fromPaymentModel(&models[i])
	}
	return result, nil
}

func (s *Store) MarkPaymentPrompted(ctx context.Context, bookingID string, at time.Time) error {
	res, err := s.mdb.NewUpdate((*paymentModel)(nil)).
		Filter(bson.M{"_id": bookingID}).
		Set("prompted_at", at).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("escrow/mongo: mark prompted: %w", err)
	}
	if res.MatchedCount() == 0 {
		return escrow.ErrBookingNotFound
	}
	return nil
}

func (s *Store) CompletePayment(ctx context.Context, bookingID, payoutRef string, at time.Time) error {
	res, err := s.mdb.NewUpdate((*paymentModel)(nil)).
		Filter(bson.M{"_id": bookingID, "status": string(payment.StatusPending)}).
		Set("status", string(payment.StatusCompleted)).
		Set("payout_ref", payoutRef).
		Set("paid_out_at", at).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("escrow/mongo: complete payment: %w", err)
	}
	return s.checkTransition(ctx, res.MatchedCount(), bookingID)
}

func (s *Store) DisputePayment(ctx context.Context, bookingID string, at time.Time) error {
	res, err := s.mdb.NewUpdate((*paymentModel)(nil)).
		Filter(bson.M{"_id": bookingID, "status": string(payment.StatusPending)}).
		Set("status", string(payment.StatusDisputed)).
		Set("disputed_at", at).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("escrow/mongo: dispute payment: %w", err)
	}
	return s.checkTransition(ctx, res.MatchedCount(), bookingID)
}

func (s *Store) FailPayment(ctx context.Context, bookingID, lastError string, at time.Time) error {
	res, err := s.mdb.NewUpdate((*paymentModel)(nil)).
		Filter(bson.M{"_id": bookingID, "status": string(payment.StatusPending)}).
		Set("status", string(payment.StatusFailed)).
		Set("last_error", lastError).
		Set("failed_at", at).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("escrow/mongo: fail payment: %w", err)
	}
	return s.checkTransition(ctx, res.MatchedCount(), bookingID)
}

func (s *Store) CountPaymentsByStatus(ctx context.Context, status payment.Status) (int, error) {
	count, err := s.mdb.Collection(colPayments).CountDocuments(ctx, bson.M{"status": string(status)})
	if err != nil {
		return 0, fmt.Errorf("escrow/mongo: count payments: %w", err)
	}
	return int(count), nil
}

func (s *Store) SumPlatformAmount(ctx context.Context, status payment.Status) (int64, error) {
	pipeline := bson.A{
		bson.M{
			"$match": bson.M{"status": string(status)},
		},
		bson.M{
			"$group": bson.M{
				"_id":   nil,
				"total": bson.M{"$sum": "$platform_amount"},
			},
		},
	}

	cursor, err := s.mdb.Collection(colPayments).Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("escrow/mongo: sum platform amount: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, fmt.Errorf("escrow/mongo: sum decode: %w", err)
	}

	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Total, nil
}

func (s *Store) PurgePayments(ctx context.Context, before time.Time, statuses []payment.Status) (int, error) {
	if len(statuses) == 0 {
		return 0, nil
	}

	values := make([]string, len(statuses))
	for i, status := range statuses {
		values[i] = string(status)
	}

	res, err := s.mdb.NewDelete((*paymentModel)(nil)).
		Filter(bson.M{
			"created_at": bson.M{"$lt": before},
			"status":     bson.M{"$in": values},
		}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("escrow/mongo: purge payments: %w", err)
	}
	return int(res.DeletedCount()), nil
}

// ==================== Helpers ====================

// checkTransition resolves a zero-match conditional transition into the right
// sentinel: missing booking or a record that already left pending.
func (s *Store) checkTransition(ctx context.Context, matched int64, bookingID string) error {
	if matched > 0 {
		return nil
	}

	if _, err := s.GetPayment(ctx, bookingID); err != nil {
		return err
	}
	return escrow.ErrPaymentNotPending
}

// normalizeContact strips whitespace and lowercases so that email matches
// are case-insensitive and phone numbers tolerate spacing.
func normalizeContact(v string) string {
	return strings.ToLower(strings.Join(strings.Fields(v), ""))
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all escrow collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colCaregivers: {
			{Keys: bson.D{{Key: "email", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
		colPayments: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "caregiver_id", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "customer_email", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "customer_phone", Value: 1}}},
		},
	}
}
