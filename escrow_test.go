package escrow_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	escrow "github.com/havencare/escrow"
	"github.com/havencare/escrow/payment"
	"github.com/havencare/escrow/store/memory"
	"github.com/havencare/escrow/types"
)

// fakeProvider is an in-memory AccountProvider for tests.
type fakeProvider struct {
	mu         sync.Mutex
	accounts   int
	payouts    []string // booking ids, in payout order
	failPayout bool
}

func (f *fakeProvider) CreateAccount(_ context.Context, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts++
	return fmt.Sprintf("acct_%d", f.accounts), nil
}

func (f *fakeProvider) OnboardingLink(_ context.Context, accountID string) (string, error) {
	return "https://onboarding.example.com/" + accountID, nil
}

func (f *fakeProvider) Payout(_ context.Context, _ string, _ types.Money, bookingID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPayout {
		return "", errors.New("transfer declined")
	}
	f.payouts = append(f.payouts, bookingID)
	return "po_" + bookingID, nil
}

func (f *fakeProvider) payoutCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payouts)
}

// fakeMessenger records sent prompts.
type fakeMessenger struct {
	mu       sync.Mutex
	sent     []string
	failSend bool
}

func (f *fakeMessenger) Send(_ context.Context, _, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSend {
		return errors.New("delivery failed")
	}
	f.sent = append(f.sent, body)
	return nil
}

func (f *fakeMessenger) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type testEnv struct {
	engine    *escrow.Engine
	provider  *fakeProvider
	messenger *fakeMessenger
}

func newTestEnv(t *testing.T, opts ...escrow.Option) *testEnv {
	t.Helper()

	env := &testEnv{
		provider:  &fakeProvider{},
		messenger: &fakeMessenger{},
	}

	all := append([]escrow.Option{
		escrow.WithAccountProvider(env.provider),
		escrow.WithMessenger(env.messenger),
	}, opts...)

	env.engine = escrow.New(memory.New(), all...)
	return env
}

// onboardAndBook sets up one caregiver and one pending booking.
func (env *testEnv) onboardAndBook(t *testing.T, total types.Money) *payment.Payment {
	t.Helper()
	ctx := context.Background()

	cg, _, err := env.engine.OnboardCaregiver(ctx, escrow.CaregiverIntake{
		Name:  "Maria",
		Email: "maria@example.com",
	})
	if err != nil {
		t.Fatalf("OnboardCaregiver: %v", err)
	}

	p, err := env.engine.CreateBooking(ctx, escrow.BookingIntake{
		CustomerName:  "Anna",
		CustomerEmail: "anna@example.com",
		CustomerPhone: "+31612345678",
		Total:         total,
		CaregiverID:   cg.AccountID,
	})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	return p
}

func TestOnboardCaregiver(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	cg, link, err := env.engine.OnboardCaregiver(ctx, escrow.CaregiverIntake{
		Name:  "Maria",
		Email: "  Maria@Example.COM ",
		Phone: "+31687654321",
	})
	if err != nil {
		t.Fatalf("OnboardCaregiver: %v", err)
	}

	if cg.AccountID != "acct_1" {
		t.Errorf("account id = %q", cg.AccountID)
	}
	if cg.Email != "maria@example.com" {
		t.Errorf("email not normalized: %q", cg.Email)
	}
	if !strings.HasPrefix(cg.SubmissionRef.String(), "subm_") {
		t.Errorf("submission ref = %q", cg.SubmissionRef.String())
	}
	if !strings.Contains(link, "acct_1") {
		t.Errorf("onboarding link = %q", link)
	}

	t.Run("RequiresName", func(t *testing.T) {
		_, _, err := env.engine.OnboardCaregiver(ctx, escrow.CaregiverIntake{Email: "a@b.c"})
		var verr escrow.ValidationError
		if !errors.As(err, &verr) || verr.Field != "name" {
			t.Errorf("got %v, want name validation error", err)
		}
	})

	t.Run("RequiresEmail", func(t *testing.T) {
		_, _, err := env.engine.OnboardCaregiver(ctx, escrow.CaregiverIntake{Name: "X"})
		var verr escrow.ValidationError
		if !errors.As(err, &verr) || verr.Field != "email" {
			t.Errorf("got %v, want email validation error", err)
		}
	})
}

func TestCreateBookingSplitsAmount(t *testing.T) {
	env := newTestEnv(t)
	p := env.onboardAndBook(t, types.EUR(10000))

	if p.Status != payment.StatusPending {
		t.Errorf("status = %s, want pending", p.Status)
	}
	if p.CaregiverAmount.Amount != 3500 {
		t.Errorf("caregiver amount = %d, want 3500", p.CaregiverAmount.Amount)
	}
	if p.PlatformAmount.Amount != 6500 {
		t.Errorf("platform amount = %d, want 6500", p.PlatformAmount.Amount)
	}
	if p.CaregiverAmount.Amount+p.PlatformAmount.Amount != p.Total.Amount {
		t.Errorf("split does not conserve the total")
	}
	if !strings.HasPrefix(p.ID, "bkg_") {
		t.Errorf("generated booking id = %q", p.ID)
	}
	if env.messenger.sentCount() != 1 {
		t.Errorf("prompts sent = %d, want 1", env.messenger.sentCount())
	}
	if env.provider.payoutCount() != 0 {
		t.Errorf("no payout should run at intake")
	}
}

func TestCreateBookingValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	t.Run("RejectsNegativeAmount", func(t *testing.T) {
		_, err := env.engine.CreateBooking(ctx, escrow.BookingIntake{
			Total:         types.EUR(-100),
			CaregiverID:   "acct_1",
			CustomerEmail: "a@example.com",
		})
		if !errors.Is(err, escrow.ErrInvalidAmount) {
			t.Errorf("got %v, want ErrInvalidAmount", err)
		}
	})

	t.Run("RequiresCurrency", func(t *testing.T) {
		_, err := env.engine.CreateBooking(ctx, escrow.BookingIntake{
			CaregiverID:   "acct_1",
			CustomerEmail: "a@example.com",
		})
		var verr escrow.ValidationError
		if !errors.As(err, &verr) || verr.Field != "total" {
			t.Errorf("got %v, want total validation error", err)
		}
	})

	t.Run("AcceptsZeroTotal", func(t *testing.T) {
		cg, _, err := env.engine.OnboardCaregiver(ctx, escrow.CaregiverIntake{Name: "Z", Email: "z@example.com"})
		if err != nil {
			t.Fatal(err)
		}
		p, err := env.engine.CreateBooking(ctx, escrow.BookingIntake{
			Total:         types.EUR(0),
			CaregiverID:   cg.AccountID,
			CustomerEmail: "a@example.com",
		})
		if err != nil {
			t.Fatalf("CreateBooking with zero total: %v", err)
		}
		if p.CaregiverAmount.Amount != 0 || p.PlatformAmount.Amount != 0 {
			t.Errorf("zero total split = %d/%d", p.CaregiverAmount.Amount, p.PlatformAmount.Amount)
		}
	})

	t.Run("RejectsUnknownCaregiver", func(t *testing.T) {
		_, err := env.engine.CreateBooking(ctx, escrow.BookingIntake{
			Total:         types.EUR(100),
			CaregiverID:   "acct_missing",
			CustomerEmail: "a@example.com",
		})
		if !errors.Is(err, escrow.ErrCaregiverNotFound) {
			t.Errorf("got %v, want ErrCaregiverNotFound", err)
		}
	})

	t.Run("RequiresContact", func(t *testing.T) {
		_, err := env.engine.CreateBooking(ctx, escrow.BookingIntake{
			Total:       types.EUR(100),
			CaregiverID: "acct_1",
		})
		var verr escrow.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("got %v, want validation error", err)
		}
	})

	t.Run("KeepsExternalBookingID", func(t *testing.T) {
		cg, _, err := env.engine.OnboardCaregiver(ctx, escrow.CaregiverIntake{Name: "M", Email: "m@example.com"})
		if err != nil {
			t.Fatal(err)
		}
		p, err := env.engine.CreateBooking(ctx, escrow.BookingIntake{
			BookingID:     "ext-9000",
			Total:         types.EUR(100),
			CaregiverID:   cg.AccountID,
			CustomerEmail: "a@example.com",
		})
		if err != nil {
			t.Fatal(err)
		}
		if p.ID != "ext-9000" {
			t.Errorf("booking id = %q, want ext-9000", p.ID)
		}
	})
}

func TestCreateBookingNormalizesContact(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	cg, _, err := env.engine.OnboardCaregiver(ctx, escrow.CaregiverIntake{Name: "M", Email: "m@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	p, err := env.engine.CreateBooking(ctx, escrow.BookingIntake{
		CustomerName:  "Anna",
		CustomerEmail: " Anna@Example.COM ",
		CustomerPhone: "+31 6 12 34 56 78",
		Total:         types.EUR(10000),
		CaregiverID:   cg.AccountID,
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := env.engine.GetPayment(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.CustomerPhone != "+31612345678" {
		t.Errorf("stored phone = %q, want +31612345678", got.CustomerPhone)
	}
	if got.CustomerEmail != "anna@example.com" {
		t.Errorf("stored email = %q, want anna@example.com", got.CustomerEmail)
	}

	// The stored value matches a compact inbound contact exactly.
	res, err := env.engine.HandleConfirmation(ctx, "+31612345678", "YES")
	if err != nil {
		t.Fatalf("HandleConfirmation: %v", err)
	}
	if res.Outcome != escrow.OutcomeCompleted {
		t.Errorf("outcome = %s", res.Outcome)
	}
}

func TestPromptFailureStillMarksPrompted(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.messenger.failSend = true

	p := env.onboardAndBook(t, types.EUR(10000))

	got, err := env.engine.GetPayment(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.PromptedAt == nil {
		t.Errorf("PromptedAt not set after failed delivery")
	}
	if got.Status != payment.StatusPending {
		t.Errorf("status = %s, want pending", got.Status)
	}
}

func TestHandleConfirmation(t *testing.T) {
	ctx := context.Background()

	t.Run("PositiveSettles", func(t *testing.T) {
		for _, token := range []string{"YES", " yes ", "JA", "Y", "OK"} {
			env := newTestEnv(t)
			p := env.onboardAndBook(t, types.EUR(10000))

			res, err := env.engine.HandleConfirmation(ctx, "anna@example.com", token)
			if err != nil {
				t.Fatalf("HandleConfirmation(%q): %v", token, err)
			}
			if res.Outcome != escrow.OutcomeCompleted {
				t.Errorf("token %q: outcome = %s", token, res.Outcome)
			}
			if res.Payment.PayoutRef != "po_"+p.ID {
				t.Errorf("token %q: payout ref = %q", token, res.Payment.PayoutRef)
			}
			if res.Payment.PaidOutAt == nil {
				t.Errorf("token %q: PaidOutAt not set", token)
			}
			if env.provider.payoutCount() != 1 {
				t.Errorf("token %q: payouts = %d", token, env.provider.payoutCount())
			}
		}
	})

	t.Run("NegativeDisputes", func(t *testing.T) {
		for _, token := range []string{"NO", "nee ", "N"} {
			env := newTestEnv(t)
			env.onboardAndBook(t, types.EUR(10000))

			res, err := env.engine.HandleConfirmation(ctx, "anna@example.com", token)
			if err != nil {
				t.Fatalf("HandleConfirmation(%q): %v", token, err)
			}
			if res.Outcome != escrow.OutcomeDisputed {
				t.Errorf("token %q: outcome = %s", token, res.Outcome)
			}
			if res.Payment.PayoutRef != "" {
				t.Errorf("token %q: disputed payment has payout ref %q", token, res.Payment.PayoutRef)
			}
			if env.provider.payoutCount() != 0 {
				t.Errorf("token %q: payout ran on dispute", token)
			}
		}
	})

	t.Run("UnrecognizedStaysPendingAndReprompts", func(t *testing.T) {
		env := newTestEnv(t)
		p := env.onboardAndBook(t, types.EUR(10000))

		before := env.messenger.sentCount()
		res, err := env.engine.HandleConfirmation(ctx, "anna@example.com", "MAYBE?")
		if err != nil {
			t.Fatalf("HandleConfirmation: %v", err)
		}
		if res.Outcome != escrow.OutcomeUnrecognized {
			t.Errorf("outcome = %s", res.Outcome)
		}
		if env.messenger.sentCount() != before+1 {
			t.Errorf("prompt not re-sent")
		}

		got, err := env.engine.GetPayment(ctx, p.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != payment.StatusPending {
			t.Errorf("status = %s, want pending", got.Status)
		}
	})

	t.Run("MatchesByPhone", func(t *testing.T) {
		env := newTestEnv(t)
		env.onboardAndBook(t, types.EUR(10000))

		res, err := env.engine.HandleConfirmation(ctx, "+31 6 12 34 56 78", "YES")
		if err != nil {
			t.Fatalf("HandleConfirmation: %v", err)
		}
		if res.Outcome != escrow.OutcomeCompleted {
			t.Errorf("outcome = %s", res.Outcome)
		}
	})

	t.Run("NoActiveBooking", func(t *testing.T) {
		env := newTestEnv(t)
		res, err := env.engine.HandleConfirmation(ctx, "nobody@example.com", "YES")
		if err != nil {
			t.Fatalf("HandleConfirmation: %v", err)
		}
		if res.Outcome != escrow.OutcomeNoActiveBooking {
			t.Errorf("outcome = %s, want no_active_booking", res.Outcome)
		}
		if env.messenger.sentCount() != 1 {
			t.Errorf("replies sent = %d, want 1", env.messenger.sentCount())
		}
		if env.provider.payoutCount() != 0 {
			t.Errorf("payout ran for unmatched contact")
		}
	})

	t.Run("SecondConfirmationIsNoOp", func(t *testing.T) {
		env := newTestEnv(t)
		env.onboardAndBook(t, types.EUR(10000))

		if _, err := env.engine.HandleConfirmation(ctx, "anna@example.com", "YES"); err != nil {
			t.Fatal(err)
		}
		// The booking is terminal now, so the contact no longer matches.
		res, err := env.engine.HandleConfirmation(ctx, "anna@example.com", "YES")
		if err != nil {
			t.Fatal(err)
		}
		if res.Outcome != escrow.OutcomeNoActiveBooking {
			t.Errorf("outcome = %s, want no_active_booking", res.Outcome)
		}
		if env.provider.payoutCount() != 1 {
			t.Errorf("payouts = %d, want 1", env.provider.payoutCount())
		}
	})
}

func TestPayoutFailureMarksFailed(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.provider.failPayout = true
	p := env.onboardAndBook(t, types.EUR(10000))

	res, err := env.engine.HandleConfirmation(ctx, "anna@example.com", "YES")
	if err != nil {
		t.Fatalf("HandleConfirmation: %v", err)
	}
	if res.Outcome != escrow.OutcomeFailed {
		t.Errorf("outcome = %s, want failed", res.Outcome)
	}

	got, err := env.engine.GetPayment(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != payment.StatusFailed {
		t.Errorf("status = %s", got.Status)
	}
	if got.LastError == "" {
		t.Errorf("LastError not recorded")
	}
	if got.FailedAt == nil {
		t.Errorf("FailedAt not set")
	}
	// The computed split is preserved for the retry path.
	if got.CaregiverAmount.Amount != 3500 || got.PlatformAmount.Amount != 6500 {
		t.Errorf("amounts changed: %+v", got)
	}
}

func TestReleaseTimerSettles(t *testing.T) {
	env := newTestEnv(t, escrow.WithReleaseDelay(25*time.Millisecond))
	p := env.onboardAndBook(t, types.EUR(10000))

	deadline := time.After(2 * time.Second)
	for {
		got, err := env.engine.GetPayment(context.Background(), p.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status == payment.StatusCompleted {
			if got.PayoutRef != "po_"+p.ID {
				t.Errorf("payout ref = %q", got.PayoutRef)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timer did not settle the booking, status = %s", got.Status)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestConfirmationAndReleaseRace(t *testing.T) {
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		env := newTestEnv(t)
		p := env.onboardAndBook(t, types.EUR(10000))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = env.engine.HandleConfirmation(ctx, "anna@example.com", "YES") //nolint:errcheck // either side may lose the race
		}()
		go func() {
			defer wg.Done()
			_ = env.engine.ReleaseNow(ctx, p.ID) //nolint:errcheck // either side may lose the race
		}()
		wg.Wait()

		if env.provider.payoutCount() != 1 {
			t.Fatalf("iteration %d: payouts = %d, want exactly 1", i, env.provider.payoutCount())
		}
		got, err := env.engine.GetPayment(ctx, p.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != payment.StatusCompleted {
			t.Fatalf("iteration %d: status = %s", i, got.Status)
		}
	}
}

func TestReleaseNowOnTerminalIsNoOp(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	p := env.onboardAndBook(t, types.EUR(10000))

	if _, err := env.engine.HandleConfirmation(ctx, "anna@example.com", "NO"); err != nil {
		t.Fatal(err)
	}
	if err := env.engine.ReleaseNow(ctx, p.ID); err != nil {
		t.Fatalf("ReleaseNow on disputed booking: %v", err)
	}

	got, _ := env.engine.GetPayment(ctx, p.ID)
	if got.Status != payment.StatusDisputed {
		t.Errorf("status = %s, want disputed", got.Status)
	}
	if env.provider.payoutCount() != 0 {
		t.Errorf("payout ran on disputed booking")
	}
}

func TestSweepPurgesTerminalOnly(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	prov := &fakeProvider{}
	eng := escrow.New(s,
		escrow.WithAccountProvider(prov),
		escrow.WithRetentionWindow(time.Hour),
	)

	old := time.Now().UTC().Add(-2 * time.Hour)
	for _, spec := range []struct {
		id     string
		status payment.Status
	}{
		{"bkg_done", payment.StatusCompleted},
		{"bkg_disputed", payment.StatusDisputed},
		{"bkg_failed", payment.StatusFailed},
		{"bkg_pending", payment.StatusPending},
	} {
		p := &payment.Payment{
			Entity:          types.Entity{CreatedAt: old, UpdatedAt: old},
			ID:              spec.id,
			CustomerEmail:   "a@example.com",
			CaregiverID:     "acct_1",
			Total:           types.EUR(100),
			CaregiverAmount: types.EUR(35),
			PlatformAmount:  types.EUR(65),
			Status:          spec.status,
			ReleaseAt:       old.Add(48 * time.Hour),
		}
		if err := s.CreatePayment(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	purged, err := eng.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if purged != 3 {
		t.Errorf("purged = %d, want 3", purged)
	}
	if _, err := eng.GetPayment(ctx, "bkg_pending"); err != nil {
		t.Errorf("pending booking was swept: %v", err)
	}
}

func TestReport(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	p := env.onboardAndBook(t, types.EUR(10000))

	if _, err := env.engine.HandleConfirmation(ctx, "anna@example.com", "YES"); err != nil {
		t.Fatal(err)
	}

	summary, err := env.engine.Report(ctx)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if summary.Caregivers != 1 {
		t.Errorf("caregivers = %d", summary.Caregivers)
	}
	if summary.Completed != 1 || summary.Pending != 0 {
		t.Errorf("counts = %+v", summary)
	}
	if summary.Total() != 1 {
		t.Errorf("total = %d", summary.Total())
	}
	if summary.PlatformRevenue.Amount != 6500 {
		t.Errorf("platform revenue = %d, want 6500", summary.PlatformRevenue.Amount)
	}
	if summary.PlatformRevenue.Currency != "eur" {
		t.Errorf("currency = %q", summary.PlatformRevenue.Currency)
	}
	if len(summary.Recent) != 1 || summary.Recent[0].ID != p.ID {
		t.Errorf("recent = %+v", summary.Recent)
	}
}

func TestEngineLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("StartRejectsInvalidSplitRatio", func(t *testing.T) {
		eng := escrow.New(memory.New(), escrow.WithSplitRatio(10000))
		if err := eng.Start(ctx); !errors.Is(err, escrow.ErrInvalidSplitRatio) {
			t.Errorf("got %v, want ErrInvalidSplitRatio", err)
		}
	})

	t.Run("StartStop", func(t *testing.T) {
		env := newTestEnv(t)
		if err := env.engine.Start(ctx); err != nil {
			t.Fatalf("Start: %v", err)
		}
		if err := env.engine.Stop(); err != nil {
			t.Fatalf("Stop: %v", err)
		}
	})

	t.Run("RearmsPendingTimersOnStart", func(t *testing.T) {
		s := memory.New()
		prov := &fakeProvider{}

		// Seed a booking whose release deadline already passed, as if the
		// process had been down past it.
		old := time.Now().UTC().Add(-time.Hour)
		p := &payment.Payment{
			Entity:          types.Entity{CreatedAt: old, UpdatedAt: old},
			ID:              "bkg_overdue",
			CustomerEmail:   "a@example.com",
			CaregiverID:     "acct_1",
			Total:           types.EUR(100),
			CaregiverAmount: types.EUR(35),
			PlatformAmount:  types.EUR(65),
			Status:          payment.StatusPending,
			ReleaseAt:       old.Add(time.Minute),
		}
		if err := s.CreatePayment(ctx, p); err != nil {
			t.Fatal(err)
		}

		eng := escrow.New(s, escrow.WithAccountProvider(prov))
		if err := eng.Start(ctx); err != nil {
			t.Fatalf("Start: %v", err)
		}
		defer eng.Stop() //nolint:errcheck // test cleanup

		deadline := time.After(2 * time.Second)
		for {
			got, err := eng.GetPayment(ctx, "bkg_overdue")
			if err != nil {
				t.Fatal(err)
			}
			if got.Status == payment.StatusCompleted {
				return
			}
			select {
			case <-deadline:
				t.Fatalf("overdue booking not settled, status = %s", got.Status)
			case <-time.After(10 * time.Millisecond):
			}
		}
	})
}
