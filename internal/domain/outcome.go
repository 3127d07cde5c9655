package domain

import "time"

// OutcomeStatus classifies what a gateway told us about a payment.
type OutcomeStatus string

const (
	OutcomeSuccess   OutcomeStatus = "SUCCESS"
	OutcomeFailed    OutcomeStatus = "FAILED"
	OutcomeCancelled OutcomeStatus = "CANCELLED"
	// OutcomeIndeterminate covers provider-side states this system does not
	// model (e.g. PROCESSING): no change yet, not a failure.
	OutcomeIndeterminate OutcomeStatus = "INDETERMINATE"
)

// Failure reasons attached to negative outcomes.
const (
	ReasonSignatureInvalid  = "signature_invalid"
	ReasonUntrustedCallback = "untrusted_callback"
	ReasonProviderDeclined  = "provider_declined"
	ReasonCustomerCancelled = "customer_cancelled"
	ReasonMalformedCallback = "malformed_callback"
)

// PaymentOutcome is the normalized result of a gateway callback, webhook or
// status poll, produced only after signature verification. The reconciler is
// the single consumer.
type PaymentOutcome struct {
	ExternalReference string
	Status            OutcomeStatus
	Amount            int64
	TransactionID     string
	ProviderTimestamp time.Time
	FailureReason     string
	RawPayload        []byte
}

// TargetPaymentStatus maps the outcome onto the payment state machine.
// Indeterminate outcomes have no target and must not transition anything.
func (o PaymentOutcome) TargetPaymentStatus() (PaymentStatus, bool) {
	switch o.Status {
	case OutcomeSuccess:
		return PaymentSuccess, true
	case OutcomeFailed:
		return PaymentFailed, true
	case OutcomeCancelled:
		return PaymentCancelled, true
	}
	return "", false
}
