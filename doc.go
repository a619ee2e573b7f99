// Package escrow provides an embeddable payment escrow engine for mediated
// home-care bookings.
//
// Escrow is designed as a library, not a service. Import it directly into your
// Go application and put your own transport (form webhooks, messaging webhooks,
// HTTP handlers) in front of it. It provides:
//
//   - A booking escrow lifecycle: pending, then completed, disputed, or failed
//   - Split computation in integer minor units (no floating-point money)
//   - A one-shot release timer per booking (no answer means acceptance)
//   - Confirmation-signal handling matched by customer contact channel
//   - Retention sweeps over terminal records
//   - A read-side reporting view for dashboards
//   - Pluggable payout and messaging providers (Stripe Connect and Twilio
//     implementations included)
//
// # Quick Start
//
// Create an engine with your preferred store and providers:
//
//	import (
//	    "github.com/havencare/escrow"
//	    "github.com/havencare/escrow/provider/stripeconnect"
//	    "github.com/havencare/escrow/provider/twilio"
//	    "github.com/havencare/escrow/store/postgres"
//	)
//
//	st := postgres.New(db)
//
//	eng := escrow.New(st,
//	    escrow.WithAccountProvider(stripeconnect.New(stripeKey)),
//	    escrow.WithMessenger(twilio.New(accountSID, authToken, fromNumber)),
//	)
//
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop()
//
// # Core Concepts
//
// Caregivers are onboarded once and receive a payout account with the
// provider:
//
//	cg, onboardingURL, err := eng.OnboardCaregiver(ctx, escrow.CaregiverIntake{
//	    Name:  "Anna de Vries",
//	    Email: "anna@example.com",
//	})
//
// Bookings create a pending escrow record and start the release clock:
//
//	p, err := eng.CreateBooking(ctx, escrow.BookingIntake{
//	    CustomerName:  "Jan Jansen",
//	    CustomerEmail: "jan@example.com",
//	    CustomerPhone: "+31612345678",
//	    Total:         escrow.EUR(10000),
//	    CaregiverID:   cg.AccountID,
//	})
//
// Inbound confirmation messages drive the state machine:
//
//	res, err := eng.HandleConfirmation(ctx, "+31612345678", "YES")
//
// A positive confirmation (or the release timer firing with no answer)
// transfers the caregiver's share as a payout; a negative confirmation holds
// the funds in disputed state for out-of-band resolution. Once a record
// leaves pending it is terminal: a late timer firing or a duplicate
// confirmation is a no-op.
//
// All monetary calculations use integer arithmetic. The Money type represents
// amounts in the smallest currency unit (cents for EUR/USD, pence for GBP).
//
// # Integration
//
// Escrow integrates with the Forge ecosystem:
//
//   - Forge: application lifecycle and dependency injection via the extension
//     package
//   - Grove: sqlite, postgres, and mongo store drivers
//
// # TypeID
//
// Generated identifiers use TypeID for globally unique, type-safe values:
//
//	bkg_01h2xcejqtf2nbrexx3vqjhp41   // Booking ID (when not supplied by intake)
//	subm_01h455vb4pex5vsknk084sn02q  // Caregiver submission reference
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of records. Externally supplied booking
// ids are kept verbatim.
package escrow
