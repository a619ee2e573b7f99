package escrow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/havencare/escrow/caregiver"
	"github.com/havencare/escrow/id"
	"github.com/havencare/escrow/payment"
	"github.com/havencare/escrow/plugin"
	"github.com/havencare/escrow/provider"
	"github.com/havencare/escrow/report"
	"github.com/havencare/escrow/store"
	"github.com/havencare/escrow/types"
)

// Engine is the main escrow engine.
type Engine struct {
	store     store.Store
	plugins   *plugin.Registry
	logger    *slog.Logger
	accounts  provider.AccountProvider
	messenger provider.Messenger

	// Per-booking serialization: a confirmation and a release timer for the
	// same booking never run their read-then-transition section concurrently.
	locks sync.Map // booking id -> *sync.Mutex

	// One-shot release timers, keyed by booking id.
	timersMu sync.Mutex
	timers   map[string]*time.Timer

	// Background workers
	stopChan chan struct{}
	wg       sync.WaitGroup

	// Configuration
	releaseDelay    time.Duration
	retentionWindow time.Duration
	sweepInterval   time.Duration
	splitRatioBps   int64
	recentLimit     int
}

// New creates a new Engine instance.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:           s,
		plugins:         plugin.NewRegistry(),
		logger:          slog.Default(),
		timers:          make(map[string]*time.Timer),
		stopChan:        make(chan struct{}),
		releaseDelay:    48 * time.Hour,
		retentionWindow: 30 * 24 * time.Hour,
		sweepInterval:   24 * time.Hour,
		splitRatioBps:   3500,
		recentLimit:     10,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithAccountProvider sets the payout account provider.
func WithAccountProvider(p provider.AccountProvider) Option {
	return func(e *Engine) {
		e.accounts = p
	}
}

// WithMessenger sets the customer messenger.
func WithMessenger(m provider.Messenger) Option {
	return func(e *Engine) {
		e.messenger = m
	}
}

// WithReleaseDelay sets how long a booking waits for a confirmation before
// the escrow releases on its own.
func WithReleaseDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.releaseDelay = d
	}
}

// WithRetentionWindow sets how long terminal records are kept before the
// sweep deletes them.
func WithRetentionWindow(d time.Duration) Option {
	return func(e *Engine) {
		e.retentionWindow = d
	}
}

// WithSweepInterval sets how often the retention sweep runs.
func WithSweepInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.sweepInterval = d
	}
}

// WithSplitRatio sets the caregiver share in basis points (parts per 10,000).
func WithSplitRatio(bps int64) Option {
	return func(e *Engine) {
		e.splitRatioBps = bps
	}
}

// WithRecentLimit sets how many recent payments a report includes.
func WithRecentLimit(n int) Option {
	return func(e *Engine) {
		e.recentLimit = n
	}
}

// Start migrates the store, re-arms release timers for pending bookings,
// and begins background workers.
func (e *Engine) Start(ctx context.Context) error {
	if e.splitRatioBps <= 0 || e.splitRatioBps >= 10000 {
		return ErrInvalidSplitRatio
	}

	// Migrate database
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	// Re-arm timers for bookings that were pending when the process last
	// stopped. Overdue bookings release immediately.
	rearmed, err := e.rearmPendingTimers(ctx)
	if err != nil {
		return err
	}

	// Initialize plugins
	e.plugins.EmitInit(ctx, e)

	// Start retention sweep worker
	e.wg.Add(1)
	go e.retentionSweepWorker()

	e.logger.Info("escrow engine started",
		"release_delay", e.releaseDelay,
		"retention_window", e.retentionWindow,
		"sweep_interval", e.sweepInterval,
		"split_ratio_bps", e.splitRatioBps,
		"rearmed_timers", rearmed,
	)

	return nil
}

// Stop shuts down the Engine. Pending release timers are stopped, not
// fired: their bookings stay pending and re-arm on the next Start.
func (e *Engine) Stop() error {
	close(e.stopChan)

	e.timersMu.Lock()
	for bookingID, t := range e.timers {
		t.Stop()
		delete(e.timers, bookingID)
	}
	e.timersMu.Unlock()

	e.wg.Wait()

	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// ──────────────────────────────────────────────────
// Caregiver Onboarding
// ──────────────────────────────────────────────────

// CaregiverIntake is the input for onboarding a new caregiver.
type CaregiverIntake struct {
	Name     string
	Email    string
	Phone    string
	Metadata map[string]string
}

// OnboardCaregiver provisions a payout account for the caregiver, stores
// the record, and returns it together with a provider onboarding URL where
// the caregiver completes identity and bank-detail collection.
func (e *Engine) OnboardCaregiver(ctx context.Context, intake CaregiverIntake) (*caregiver.Caregiver, string, error) {
	if strings.TrimSpace(intake.Name) == "" {
		return nil, "", ValidationError{Field: "name", Message: "required"}
	}
	if strings.TrimSpace(intake.Email) == "" {
		return nil, "", ValidationError{Field: "email", Message: "required"}
	}
	if e.accounts == nil {
		return nil, "", ErrProviderNotConfigured
	}

	accountID, err := e.accounts.CreateAccount(ctx, intake.Name, intake.Email)
	if err != nil {
		return nil, "", fmt.Errorf("create payout account: %w", err)
	}

	cg := &caregiver.Caregiver{
		Entity:        types.NewEntity(),
		AccountID:     accountID,
		Name:          intake.Name,
		Email:         strings.ToLower(strings.TrimSpace(intake.Email)),
		Phone:         strings.TrimSpace(intake.Phone),
		SubmissionRef: id.NewSubmissionID(),
		Metadata:      intake.Metadata,
	}

	if err := e.store.CreateCaregiver(ctx, cg); err != nil {
		return nil, "", err
	}

	link, err := e.accounts.OnboardingLink(ctx, accountID)
	if err != nil {
		// The caregiver exists; a fresh link can be requested later.
		e.logger.Warn("onboarding link creation failed",
			"account_id", accountID,
			"error", err,
		)
	}

	e.plugins.EmitCaregiverOnboarded(ctx, cg)

	e.logger.Info("caregiver onboarded",
		"account_id", accountID,
		"submission_ref", cg.SubmissionRef.String(),
	)

	return cg, link, nil
}

// GetCaregiver retrieves a caregiver by payout account id.
func (e *Engine) GetCaregiver(ctx context.Context, accountID string) (*caregiver.Caregiver, error) {
	return e.store.GetCaregiver(ctx, accountID)
}

// ListCaregivers lists onboarded caregivers, newest first.
func (e *Engine) ListCaregivers(ctx context.Context, limit, offset int) ([]*caregiver.Caregiver, error) {
	return e.store.ListCaregivers(ctx, limit, offset)
}

// ──────────────────────────────────────────────────
// Booking Intake
// ──────────────────────────────────────────────────

// BookingIntake is the input for placing a paid booking into escrow.
// BookingID is optional: external submission ids are kept verbatim, and a
// "bkg_" TypeID is generated when none is supplied.
type BookingIntake struct {
	BookingID     string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Total         types.Money
	CaregiverID   string
	Metadata      map[string]string
}

// CreateBooking records a paid booking as a pending escrow payment, computes
// the caregiver/platform split, sends the customer a confirmation prompt,
// and starts the release clock.
func (e *Engine) CreateBooking(ctx context.Context, intake BookingIntake) (*payment.Payment, error) {
	if intake.Total.IsNegative() {
		return nil, ErrInvalidAmount
	}
	if intake.Total.Currency == "" {
		return nil, ValidationError{Field: "total", Message: "currency required"}
	}
	if strings.TrimSpace(intake.CaregiverID) == "" {
		return nil, ValidationError{Field: "caregiver_id", Message: "required"}
	}
	if strings.TrimSpace(intake.CustomerEmail) == "" && strings.TrimSpace(intake.CustomerPhone) == "" {
		return nil, ValidationError{Field: "customer_contact", Message: "email or phone required"}
	}

	if _, err := e.store.GetCaregiver(ctx, intake.CaregiverID); err != nil {
		return nil, err
	}

	bookingID := strings.TrimSpace(intake.BookingID)
	if bookingID == "" {
		bookingID = id.NewBookingID().String()
	}

	caregiverAmount, platformAmount := intake.Total.Split(e.splitRatioBps)
	now := time.Now().UTC()

	p := &payment.Payment{
		Entity:          types.NewEntity(),
		ID:              bookingID,
		CustomerName:    strings.TrimSpace(intake.CustomerName),
		CustomerEmail:   normalizeContact(intake.CustomerEmail),
		CustomerPhone:   normalizeContact(intake.CustomerPhone),
		CaregiverID:     intake.CaregiverID,
		Total:           intake.Total,
		CaregiverAmount: caregiverAmount,
		PlatformAmount:  platformAmount,
		Status:          payment.StatusPending,
		ReleaseAt:       now.Add(e.releaseDelay),
		Metadata:        intake.Metadata,
	}

	if err := e.store.CreatePayment(ctx, p); err != nil {
		return nil, err
	}

	e.sendPrompt(ctx, p)
	e.scheduleRelease(bookingID, e.releaseDelay)

	e.plugins.EmitBookingCreated(ctx, p)

	e.logger.Info("booking escrowed",
		"booking_id", bookingID,
		"total", p.Total.String(),
		"caregiver_amount", p.CaregiverAmount.String(),
		"platform_amount", p.PlatformAmount.String(),
		"release_at", p.ReleaseAt,
	)

	return p, nil
}

// GetPayment retrieves an escrow payment by booking id.
func (e *Engine) GetPayment(ctx context.Context, bookingID string) (*payment.Payment, error) {
	return e.store.GetPayment(ctx, bookingID)
}

// ListPayments lists escrow payments, newest first.
func (e *Engine) ListPayments(ctx context.Context, filter payment.ListFilter) ([]*payment.Payment, error) {
	return e.store.ListPayments(ctx, filter)
}

// ──────────────────────────────────────────────────
// Confirmation Handling
// ──────────────────────────────────────────────────

// Outcome classifies the effect of an inbound confirmation message.
type Outcome string

const (
	// OutcomeCompleted means the message confirmed the booking and the
	// caregiver share was paid out.
	OutcomeCompleted Outcome = "completed"
	// OutcomeDisputed means the message reported a problem and the funds
	// stay held.
	OutcomeDisputed Outcome = "disputed"
	// OutcomeFailed means the message confirmed the booking but the payout
	// attempt failed.
	OutcomeFailed Outcome = "failed"
	// OutcomeUnrecognized means the message was not a known token; the
	// booking stays pending and the prompt is re-sent.
	OutcomeUnrecognized Outcome = "unrecognized"
	// OutcomeNoActiveBooking means no pending booking matched the sender's
	// contact; a short reply is sent and nothing is mutated.
	OutcomeNoActiveBooking Outcome = "no_active_booking"
)

// ConfirmationResult is the effect of a single inbound message.
type ConfirmationResult struct {
	Outcome Outcome
	Payment *payment.Payment
}

// HandleConfirmation processes an inbound customer message. The contact
// value (phone or email, depending on the channel) selects the customer's
// most recent pending booking. Recognized positive tokens settle the
// escrow, recognized negative tokens dispute it, and anything else leaves
// the booking pending and re-sends the prompt.
//
// When no pending booking matches the contact, the sender gets a short
// reply and the result carries OutcomeNoActiveBooking.
func (e *Engine) HandleConfirmation(ctx context.Context, contact, message string) (*ConfirmationResult, error) {
	p, err := e.store.FindPendingPaymentByContact(ctx, contact)
	if err != nil {
		e.plugins.EmitConfirmationReceived(ctx, contact, message, false)
		if errors.Is(err, ErrNoActiveBooking) {
			e.sendNoActiveBookingReply(ctx, contact)
			return &ConfirmationResult{Outcome: OutcomeNoActiveBooking}, nil
		}
		return nil, err
	}

	e.plugins.EmitConfirmationReceived(ctx, contact, message, true)

	switch classifyToken(message) {
	case tokenPositive:
		if err := e.settle(ctx, p.ID); err != nil {
			return nil, err
		}
	case tokenNegative:
		if err := e.dispute(ctx, p.ID); err != nil {
			return nil, err
		}
	default:
		e.sendPrompt(ctx, p)
		e.logger.Info("unrecognized confirmation",
			"booking_id", p.ID,
			"message", message,
		)
		return &ConfirmationResult{Outcome: OutcomeUnrecognized, Payment: p}, nil
	}

	updated, err := e.store.GetPayment(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	return &ConfirmationResult{Outcome: outcomeForStatus(updated.Status), Payment: updated}, nil
}

// ReleaseNow settles a pending booking immediately, without waiting for its
// timer. Terminal bookings are left untouched.
func (e *Engine) ReleaseNow(ctx context.Context, bookingID string) error {
	return e.settle(ctx, bookingID)
}

type token int

const (
	tokenUnknown token = iota
	tokenPositive
	tokenNegative
)

// classifyToken normalizes an inbound message and maps it to a confirmation
// token. English and Dutch forms are accepted.
func classifyToken(message string) token {
	switch strings.ToUpper(strings.TrimSpace(message)) {
	case "YES", "JA", "Y", "OK":
		return tokenPositive
	case "NO", "NEE", "N":
		return tokenNegative
	default:
		return tokenUnknown
	}
}

func outcomeForStatus(s payment.Status) Outcome {
	switch s {
	case payment.StatusCompleted:
		return OutcomeCompleted
	case payment.StatusDisputed:
		return OutcomeDisputed
	case payment.StatusFailed:
		return OutcomeFailed
	default:
		return OutcomeUnrecognized
	}
}

// ──────────────────────────────────────────────────
// Settlement
// ──────────────────────────────────────────────────

// settle releases the escrow for a pending booking: pay out the caregiver
// share, then mark the record completed. A failed payout marks the record
// failed with the amounts untouched. Terminal records are a no-op, so the
// losing side of a confirmation-versus-timer race does nothing.
func (e *Engine) settle(ctx context.Context, bookingID string) error {
	mu := e.bookingLock(bookingID)
	mu.Lock()
	defer mu.Unlock()

	p, err := e.store.GetPayment(ctx, bookingID)
	if err != nil {
		return err
	}
	if !p.Pending() {
		return nil
	}

	now := time.Now().UTC()

	if e.accounts == nil {
		return e.failPayment(ctx, p, ErrProviderNotConfigured, now)
	}

	payoutRef, err := e.accounts.Payout(ctx, p.CaregiverID, p.CaregiverAmount, p.ID)
	if err != nil {
		return e.failPayment(ctx, p, err, now)
	}

	if err := e.store.CompletePayment(ctx, bookingID, payoutRef, now); err != nil {
		return err
	}
	e.cancelRelease(bookingID)

	p.Status = payment.StatusCompleted
	p.PayoutRef = payoutRef
	p.PaidOutAt = &now
	e.plugins.EmitPaymentCompleted(ctx, p)

	e.logger.Info("escrow released",
		"booking_id", bookingID,
		"payout_ref", payoutRef,
		"caregiver_amount", p.CaregiverAmount.String(),
	)

	return nil
}

// failPayment marks a pending record failed after a payout error. Amounts
// stay as computed; only status and error text change.
func (e *Engine) failPayment(ctx context.Context, p *payment.Payment, cause error, at time.Time) error {
	if err := e.store.FailPayment(ctx, p.ID, cause.Error(), at); err != nil {
		return err
	}
	e.cancelRelease(p.ID)

	p.Status = payment.StatusFailed
	p.LastError = cause.Error()
	p.FailedAt = &at
	e.plugins.EmitPaymentFailed(ctx, p, cause)

	e.logger.Error("payout failed",
		"booking_id", p.ID,
		"caregiver_id", p.CaregiverID,
		"error", cause,
	)

	return nil
}

// dispute holds the escrow for a pending booking after a negative
// confirmation. No payout happens; resolution is out of band.
func (e *Engine) dispute(ctx context.Context, bookingID string) error {
	mu := e.bookingLock(bookingID)
	mu.Lock()
	defer mu.Unlock()

	p, err := e.store.GetPayment(ctx, bookingID)
	if err != nil {
		return err
	}
	if !p.Pending() {
		return nil
	}

	now := time.Now().UTC()
	if err := e.store.DisputePayment(ctx, bookingID, now); err != nil {
		return err
	}
	e.cancelRelease(bookingID)

	p.Status = payment.StatusDisputed
	p.DisputedAt = &now
	e.plugins.EmitPaymentDisputed(ctx, p)

	e.logger.Info("escrow disputed",
		"booking_id", bookingID,
	)

	return nil
}

// bookingLock returns the mutex serializing transitions for one booking.
func (e *Engine) bookingLock(bookingID string) *sync.Mutex {
	mu, _ := e.locks.LoadOrStore(bookingID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// ──────────────────────────────────────────────────
// Release Timers
// ──────────────────────────────────────────────────

// scheduleRelease arms the one-shot release timer for a booking. When it
// fires with the booking still pending, silence counts as acceptance and
// the escrow settles.
func (e *Engine) scheduleRelease(bookingID string, delay time.Duration) {
	if delay < 0 {
		delay = 0
	}

	e.timersMu.Lock()
	defer e.timersMu.Unlock()

	if _, exists := e.timers[bookingID]; exists {
		return
	}

	e.timers[bookingID] = time.AfterFunc(delay, func() {
		e.timersMu.Lock()
		delete(e.timers, bookingID)
		e.timersMu.Unlock()

		select {
		case <-e.stopChan:
			return
		default:
		}

		if err := e.settle(context.Background(), bookingID); err != nil {
			e.logger.Error("release timer settlement failed",
				"booking_id", bookingID,
				"error", err,
			)
		}
	})
}

// cancelRelease drops the timer for a booking that reached a terminal
// state early. A timer that already fired is a no-op either way.
func (e *Engine) cancelRelease(bookingID string) {
	e.timersMu.Lock()
	defer e.timersMu.Unlock()

	if t, ok := e.timers[bookingID]; ok {
		t.Stop()
		delete(e.timers, bookingID)
	}
}

// rearmPendingTimers schedules release timers for bookings that were
// pending at the last shutdown, keyed off their stored release deadline.
func (e *Engine) rearmPendingTimers(ctx context.Context) (int, error) {
	pending, err := e.store.ListPayments(ctx, payment.ListFilter{Status: payment.StatusPending})
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	for _, p := range pending {
		e.scheduleRelease(p.ID, p.ReleaseAt.Sub(now))
	}
	return len(pending), nil
}

// ──────────────────────────────────────────────────
// Retention Sweep
// ──────────────────────────────────────────────────

// retentionSweepWorker periodically purges terminal records older than the
// retention window. Pending records are never swept, however old; an
// unresolved escrow must stay visible.
func (e *Engine) retentionSweepWorker() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			if _, err := e.Sweep(context.Background()); err != nil {
				e.logger.Error("retention sweep failed", "error", err)
			}
		}
	}
}

// Sweep purges terminal records older than the retention window and
// returns the number of deleted records.
func (e *Engine) Sweep(ctx context.Context) (int, error) {
	before := time.Now().UTC().Add(-e.retentionWindow)

	purged, err := e.store.PurgePayments(ctx, before, []payment.Status{
		payment.StatusCompleted,
		payment.StatusDisputed,
		payment.StatusFailed,
	})
	if err != nil {
		return 0, err
	}

	if purged > 0 {
		e.plugins.EmitRetentionSwept(ctx, purged, before)
		e.logger.Info("retention sweep",
			"purged", purged,
			"before", before,
		)
	}

	return purged, nil
}

// ──────────────────────────────────────────────────
// Reporting
// ──────────────────────────────────────────────────

// Report builds a point-in-time summary over the escrow records.
func (e *Engine) Report(ctx context.Context) (*report.Summary, error) {
	s := &report.Summary{GeneratedAt: time.Now().UTC()}

	var err error
	if s.Caregivers, err = e.store.CountCaregivers(ctx); err != nil {
		return nil, err
	}
	if s.Pending, err = e.store.CountPaymentsByStatus(ctx, payment.StatusPending); err != nil {
		return nil, err
	}
	if s.Completed, err = e.store.CountPaymentsByStatus(ctx, payment.StatusCompleted); err != nil {
		return nil, err
	}
	if s.Disputed, err = e.store.CountPaymentsByStatus(ctx, payment.StatusDisputed); err != nil {
		return nil, err
	}
	if s.Failed, err = e.store.CountPaymentsByStatus(ctx, payment.StatusFailed); err != nil {
		return nil, err
	}

	revenue, err := e.store.SumPlatformAmount(ctx, payment.StatusCompleted)
	if err != nil {
		return nil, err
	}
	s.PlatformRevenue = types.Money{Amount: revenue, Currency: "eur"}

	if s.Recent, err = e.store.ListPayments(ctx, payment.ListFilter{Limit: e.recentLimit}); err != nil {
		return nil, err
	}

	// Prefer an observed currency over the EUR default once records exist.
	if len(s.Recent) > 0 {
		s.PlatformRevenue.Currency = s.Recent[0].Total.Currency
	}

	return s, nil
}

// ──────────────────────────────────────────────────
// Prompts
// ──────────────────────────────────────────────────

// sendPrompt delivers the confirmation prompt for a booking. Delivery is
// best-effort: a messenger failure leaves the booking pending and the
// release timer running.
func (e *Engine) sendPrompt(ctx context.Context, p *payment.Payment) {
	if e.messenger == nil || p.CustomerPhone == "" {
		return
	}

	body := fmt.Sprintf(
		"Hi %s, your care booking %s (%s) is complete. Reply YES to confirm, or NO if something went wrong.",
		p.CustomerName, p.ID, p.Total.String(),
	)

	if err := e.messenger.Send(ctx, p.CustomerPhone, body); err != nil {
		e.logger.Warn("confirmation prompt failed",
			"booking_id", p.ID,
			"error", err,
		)
	}

	// A failed delivery still counts as a prompt attempt; the booking is
	// not prompted again.
	now := time.Now().UTC()
	if err := e.store.MarkPaymentPrompted(ctx, p.ID, now); err != nil {
		e.logger.Warn("prompt bookkeeping failed",
			"booking_id", p.ID,
			"error", err,
		)
		return
	}
	p.PromptedAt = &now
}

// sendNoActiveBookingReply answers an inbound message that matched no
// pending booking. Best-effort, like the prompt.
func (e *Engine) sendNoActiveBookingReply(ctx context.Context, contact string) {
	if e.messenger == nil {
		return
	}

	body := "We couldn't find an active booking for this contact. Please check the number you are messaging from, or contact support."
	if err := e.messenger.Send(ctx, contact, body); err != nil {
		e.logger.Warn("no-active-booking reply failed",
			"contact", contact,
			"error", err,
		)
	}
}

// normalizeContact lowercases a contact value and strips all whitespace.
// Stored contacts and inbound confirmation contacts normalize identically,
// so lookups are an exact string match in every store driver.
func normalizeContact(v string) string {
	return strings.ToLower(strings.Join(strings.Fields(v), ""))
}
