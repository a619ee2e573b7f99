package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	escrow "github.com/havencare/escrow"
	"github.com/havencare/escrow/caregiver"
	"github.com/havencare/escrow/payment"
	escrowstore "github.com/havencare/escrow/store"
)

// compile-time interface check
var _ escrowstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("escrow/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("escrow/postgres: migration failed: %w", err)
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
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetCaregiver(ctx context.Context, accountID string) (*caregiver.Caregiver, error) {
	m := new(caregiverModel)
	err := s.pg.NewSelect(m).
		Where("account_id = $1", accountID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, escrow.ErrCaregiverNotFound
		}
		return nil, err
	}
	return fromCaregiverModel(m)
}

func (s *Store) ListCaregivers(ctx context.Context, limit, offset int) ([]*caregiver.Caregiver, error) {
	var models []caregiverModel
	q := s.pg.NewSelect(&models)

	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	q = q.OrderExpr("created_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	var count int
	err := s.pg.NewRaw(`SELECT COUNT(*) FROM escrow_caregivers`).Scan(ctx, &count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ==================== Payment Store ====================

func (s *Store) CreatePayment(ctx context.Context, p *payment.Payment) error {
	m := toPaymentModel(p)
	if _, err := s.pg.NewInsert(m).Exec(ctx); err != nil {
		if isDuplicateKey(err) {
			return escrow.ErrDuplicateBooking
		}
		return err
	}
	return nil
}

func (s *Store) GetPayment(ctx context.Context, bookingID string) (*payment.Payment, error) {
	m := new(paymentModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", bookingID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, escrow.ErrBookingNotFound
		}
		return nil, err
	}
	return fromPaymentModel(m), nil
}

func (s *Store) FindPendingPaymentByContact(ctx context.Context, contact string) (*payment.Payment, error) {
	c := normalizeContact(contact)
	if c == "" {
		return nil, escrow.ErrNoActiveBooking
	}

	m := new(paymentModel)
	err := s.pg.NewSelect(m).
		Where("status = $1", string(payment.StatusPending)).
		Where("(customer_email = $2 OR customer_phone = $3)", c, c).
		OrderExpr("created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, escrow.ErrNoActiveBooking
		}
		return nil, err
	}
	return fromPaymentModel(m), nil
}

func (s *Store) ListPayments(ctx context.Context, filter payment.ListFilter) ([]*payment.Payment, error) {
	var models []paymentModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if filter.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(filter.Status))
	}
	if filter.CaregiverID != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("caregiver_id = $%d", argIdx), filter.CaregiverID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	q = q.OrderExpr("created_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*payment.Payment, len(models))
	for i := range models {
		result[i] = fromPaymentModel(&models[i])
	}
	return result, nil
}

func (s *Store) MarkPaymentPrompted(ctx context.Context, bookingID string, at time.Time) error {
	res, err := s.pg.NewUpdate((*paymentModel)(nil)).
		Set("prompted_at = $1", at).
		Set("updated_at = $2", now()).
		Where("id = $3", bookingID).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return escrow.ErrBookingNotFound
	}
	return nil
}

func (s *Store) CompletePayment(ctx context.Context, bookingID, payoutRef string, at time.Time) error {
	res, err := s.pg.NewUpdate((*paymentModel)(nil)).
		Set("status = $1", string(payment.StatusCompleted)).
		Set("payout_ref = $2", payoutRef).
		Set("paid_out_at = $3", at).
		Set("updated_at = $4", now()).
		Where("id = $5", bookingID).
		Where("status = $6", string(payment.StatusPending)).
		Exec(ctx)
	if err != nil {
		return err
	}
	return s.checkTransition(ctx, res, bookingID)
}

func (s *Store) DisputePayment(ctx context.Context, bookingID string, at time.Time) error {
	res, err := s.pg.NewUpdate((*paymentModel)(nil)).
		Set("status = $1", string(payment.StatusDisputed)).
		Set("disputed_at = $2", at).
		Set("updated_at = $3", now()).
		Where("id = $4", bookingID).
		Where("status = $5", string(payment.StatusPending)).
		Exec(ctx)
	if err != nil {
		return err
	}
	return s.checkTransition(ctx, res, bookingID)
}

func (s *Store) FailPayment(ctx context.Context, bookingID, lastError string, at time.Time) error {
	res, err := s.pg.NewUpdate((*paymentModel)(nil)).
		Set("status = $1", string(payment.StatusFailed)).
		Set("last_error = $2", lastError).
		Set("failed_at = $3", at).
		Set("updated_at = $4", now()).
		Where("id = $5", bookingID).
		Where("status = $6", string(payment.StatusPending)).
		Exec(ctx)
	if err != nil {
		return err
	}
	return s.checkTransition(ctx, res, bookingID)
}

func (s *Store) CountPaymentsByStatus(ctx context.Context, status payment.Status) (int, error) {
	var count int
	err := s.pg.NewRaw(`
		SELECT COUNT(*) FROM escrow_payments WHERE status = $1
	`, string(status)).Scan(ctx, &count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) SumPlatformAmount(ctx context.Context, status payment.Status) (int64, error) {
	var total int64
	err := s.pg.NewRaw(`
		SELECT COALESCE(SUM(platform_amount), 0) FROM escrow_payments WHERE status = $1
	`, string(status)).Scan(ctx, &total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) PurgePayments(ctx context.Context, before time.Time, statuses []payment.Status) (int, error) {
	if len(statuses) == 0 {
		return 0, nil
	}

	clause, args := statusIn(statuses, 2)

	res, err := s.pg.NewDelete((*paymentModel)(nil)).
		Where("created_at < $1", before).
		Where(clause, args...).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rows), nil
}

// ==================== Helpers ====================

// checkTransition resolves a zero-row conditional transition into the right
// sentinel: missing booking or a record that already left pending.
func (s *Store) checkTransition(ctx context.Context, res sql.Result, bookingID string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	if _, err := s.GetPayment(ctx, bookingID); err != nil {
		return err
	}
	return escrow.ErrPaymentNotPending
}

// statusIn builds an IN clause with positional placeholders starting at from.
func statusIn(statuses []payment.Status, from int) (string, []any) {
	placeholders := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		placeholders[i] = fmt.Sprintf("$%d", from+i)
		args[i] = string(status)
	}
	return "status IN (" + strings.Join(placeholders, ", ") + ")", args
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

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// isDuplicateKey checks for a primary key violation on insert.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "constraint violation")
}
