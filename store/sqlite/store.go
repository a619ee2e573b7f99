package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	escrow "github.com/havencare/escrow"
	"github.com/havencare/escrow/caregiver"
	"github.com/havencare/escrow/payment"
	escrowstore "github.com/havencare/escrow/store"
)

// compile-time interface check
var _ escrowstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("escrow/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("escrow/sqlite: migration failed: %w", err)
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
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetCaregiver(ctx context.Context, accountID string) (*caregiver.Caregiver, error) {
	m := new(caregiverModel)
	err := s.sdb.NewSelect(m).
		Where("account_id = ?", accountID).
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
	q := s.sdb.NewSelect(&models)

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
	err := s.sdb.NewRaw(`SELECT COUNT(*) FROM escrow_caregivers`).Scan(ctx, &count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ==================== Payment Store ====================

func (s *Store) CreatePayment(ctx context.Context, p *payment.Payment) error {
	m := toPaymentModel(p)
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		if isDuplicateKey(err) {
			return escrow.ErrDuplicateBooking
		}
		return err
	}
	return nil
}

func (s *Store) GetPayment(ctx context.Context, bookingID string) (*payment.Payment, error) {
	m := new(paymentModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", bookingID).
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
	err := s.sdb.NewSelect(m).
		Where("status = ?", string(payment.StatusPending)).
		Where("(customer_email = ? OR customer_phone = ?)", c, c).
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
	q := s.sdb.NewSelect(&models)

	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.CaregiverID != "" {
		q = q.Where("caregiver_id = ?", filter.CaregiverID)
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
	res, err := s.sdb.NewUpdate((*paymentModel)(nil)).
		Set("prompted_at = ?", at).
		Set("updated_at = ?", now()).
		Where("id = ?", bookingID).
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
	res, err := s.sdb.NewUpdate((*paymentModel)(nil)).
		Set("status = ?", string(payment.StatusCompleted)).
		Set("payout_ref = ?", payoutRef).
		Set("paid_out_at = ?", at).
		Set("updated_at = ?", now()).
		Where("id = ?", bookingID).
		Where("status = ?", string(payment.StatusPending)).
		Exec(ctx)
	if err != nil {
		return err
	}
	return s.checkTransition(ctx, res, bookingID)
}

func (s *Store) DisputePayment(ctx context.Context, bookingID string, at time.Time) error {
	res, err := s.sdb.NewUpdate((*paymentModel)(nil)).
		Set("status = ?", string(payment.StatusDisputed)).
		Set("disputed_at = ?", at).
		Set("updated_at = ?", now()).
		Where("id = ?", bookingID).
		Where("status = ?", string(payment.StatusPending)).
		Exec(ctx)
	if err != nil {
		return err
	}
	return s.checkTransition(ctx, res, bookingID)
}

func (s *Store) FailPayment(ctx context.Context, bookingID, lastError string, at time.Time) error {
	res, err := s.sdb.NewUpdate((*paymentModel)(nil)).
		Set("status = ?", string(payment.StatusFailed)).
		Set("last_error = ?", lastError).
		Set("failed_at = ?", at).
		Set("updated_at = ?", now()).
		Where("id = ?", bookingID).
		Where("status = ?", string(payment.StatusPending)).
		Exec(ctx)
	if err != nil {
		return err
	}
	return s.checkTransition(ctx, res, bookingID)
}

func (s *Store) CountPaymentsByStatus(ctx context.Context, status payment.Status) (int, error) {
	var count int
	err := s.sdb.NewRaw(`
		SELECT COUNT(*) FROM escrow_payments WHERE status = ?
	`, string(status)).Scan(ctx, &count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) SumPlatformAmount(ctx context.Context, status payment.Status) (int64, error) {
	var total int64
	err := s.sdb.NewRaw(`
		SELECT COALESCE(SUM(platform_amount), 0) FROM escrow_payments WHERE status = ?
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

	clause, args := statusIn(statuses)
	args = append([]any{before}, args...)

	res, err := s.sdb.NewDelete((*paymentModel)(nil)).
		Where("created_at < ?", args[0]).
		Where(clause, args[1:]...).
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

// statusIn builds an IN clause with one placeholder per status.
func statusIn(statuses []payment.Status) (string, []any) {
	placeholders := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		placeholders[i] = "?"
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
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint violation")
}
