package audithook

// Action constants for audit events.
const (
	// Caregiver actions
	ActionCaregiverOnboarded = "caregiver.onboarded"

	// Booking actions
	ActionBookingCreated = "booking.created"

	// Confirmation actions
	ActionConfirmationReceived  = "confirmation.received"
	ActionConfirmationUnmatched = "confirmation.unmatched"

	// Payment actions
	ActionPaymentCompleted = "payment.completed"
	ActionPaymentDisputed  = "payment.disputed"
	ActionPaymentFailed    = "payment.failed"

	// Retention actions
	ActionRetentionSwept = "retention.swept"
)

// Resource constants for audit events.
const (
	ResourceCaregiver    = "caregiver"
	ResourceBooking      = "booking"
	ResourcePayment      = "payment"
	ResourceConfirmation = "confirmation"
	ResourceRetention    = "retention"
)

// Category constants for audit events.
const (
	CategoryOnboarding = "onboarding"
	CategoryBooking    = "booking"
	CategoryPayment    = "payment"
	CategoryRetention  = "retention"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
