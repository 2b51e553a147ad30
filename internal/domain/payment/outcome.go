package payment

import "time"

// OutcomeKind is the terminal classification of a payment attempt.
type OutcomeKind string

const (
	OutcomeSuccess   OutcomeKind = "success"
	OutcomeFailed    OutcomeKind = "failed"
	OutcomeCancelled OutcomeKind = "cancelled"
)

// VerifiedTransaction is the authoritative transaction record returned by the
// backend once the provider's completion has been verified.
type VerifiedTransaction struct {
	TransactionID string `json:"transactionId"`
	OrderID       string `json:"orderId"`
	PaymentID     string `json:"paymentId"`
	BookingID     string `json:"bookingId"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Status        string `json:"status"`
	VerifiedAt    time.Time
}

// Outcome is the single value produced per attempt. Exactly one of the three
// kinds; Details is set only for success, Err only for failure. A cancelled
// outcome carries neither: user dismissal is not an error.
type Outcome struct {
	Kind    OutcomeKind
	Details *VerifiedTransaction
	Err     error
}

func Succeeded(details *VerifiedTransaction) Outcome {
	return Outcome{Kind: OutcomeSuccess, Details: details}
}

func Failed(err error) Outcome {
	return Outcome{Kind: OutcomeFailed, Err: err}
}

func Cancelled() Outcome {
	return Outcome{Kind: OutcomeCancelled}
}
