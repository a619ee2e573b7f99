// Package stripeconnect implements the escrow account provider on Stripe
// Connect. Caregivers get Express accounts; payouts are Transfers grouped
// by booking id so the dashboard ties them back to the original charge.
package stripeconnect

import (
	"context"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"github.com/havencare/escrow/provider"
	"github.com/havencare/escrow/types"
)

// Provider implements provider.AccountProvider on Stripe Connect.
type Provider struct {
	api        *client.API
	refreshURL string
	returnURL  string
}

var _ provider.AccountProvider = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

// WithOnboardingURLs sets the refresh and return URLs embedded in account
// onboarding links.
func WithOnboardingURLs(refreshURL, returnURL string) Option {
	return func(p *Provider) {
		p.refreshURL = refreshURL
		p.returnURL = returnURL
	}
}

// New creates a Stripe Connect provider with the given secret key.
func New(apiKey string, opts ...Option) *Provider {
	api := &client.API{}
	api.Init(apiKey, nil)

	p := &Provider{api: api}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CreateAccount provisions an Express account with the transfers capability.
func (p *Provider) CreateAccount(ctx context.Context, name, email string) (string, error) {
	params := &stripe.AccountParams{
		Type:  stripe.String(string(stripe.AccountTypeExpress)),
		Email: stripe.String(email),
		Capabilities: &stripe.AccountCapabilitiesParams{
			Transfers: &stripe.AccountCapabilitiesTransfersParams{
				Requested: stripe.Bool(true),
			},
		},
		BusinessProfile: &stripe.AccountBusinessProfileParams{
			Name: stripe.String(name),
		},
	}
	params.Context = ctx

	acct, err := p.api.Accounts.New(params)
	if err != nil {
		return "", err
	}
	return acct.ID, nil
}

// OnboardingLink creates a fresh account onboarding link. Links expire, so
// callers should request a new one each time they redirect a caregiver.
func (p *Provider) OnboardingLink(ctx context.Context, accountID string) (string, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(p.refreshURL),
		ReturnURL:  stripe.String(p.returnURL),
		Type:       stripe.String("account_onboarding"),
	}
	params.Context = ctx

	link, err := p.api.AccountLinks.New(params)
	if err != nil {
		return "", err
	}
	return link.URL, nil
}

// Payout transfers the caregiver share to the connected account.
func (p *Provider) Payout(ctx context.Context, accountID string, amount types.Money, bookingID string) (string, error) {
	params := &stripe.TransferParams{
		Amount:        stripe.Int64(amount.Amount),
		Currency:      stripe.String(amount.Currency),
		Destination:   stripe.String(accountID),
		TransferGroup: stripe.String(bookingID),
	}
	params.Context = ctx

	tr, err := p.api.Transfers.New(params)
	if err != nil {
		return "", &provider.PayoutError{AccountID: accountID, BookingID: bookingID, Err: err}
	}
	return tr.ID, nil
}
