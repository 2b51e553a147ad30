package payment

import (
	"fmt"
	"strings"
	"time"

	"github.com/rentflow/checkout/internal/domain/errors"
	"github.com/google/uuid"
)

// Amount is a monetary value in the smallest currency unit (e.g. paise).
// It always comes from the server-side pricing snapshot for the booking,
// never from recomputed UI state.
type Amount struct {
	Value    int64
	Currency string
}

// String returns a human-readable representation of the amount.
func (a Amount) String() string {
	whole := a.Value / 100
	frac := a.Value % 100
	if frac < 0 {
		frac = -frac
	}
	return fmt.Sprintf("%d.%02d %s", whole, frac, a.Currency)
}

// Validate checks that the amount is chargeable.
func (a Amount) Validate() error {
	if a.Value <= 0 {
		return fmt.Errorf("%w: must be greater than 0", errors.ErrInvalidAmount)
	}
	if len(a.Currency) != 3 {
		return fmt.Errorf("%w: currency must be a 3-letter ISO code", errors.ErrInvalidAmount)
	}
	return nil
}

// Order is the provider-side record of an intended charge, created before the
// user sees the widget. Immutable once returned by the backend; the amount it
// carries is the authoritative one and overrides whatever the client requested.
type Order struct {
	OrderID       string
	Amount        Amount
	Receipt       string
	TransactionID string
	BookingID     string
	CreatedAt     time.Time
}

// Validate checks the fields the rest of the flow depends on.
func (o *Order) Validate() error {
	if strings.TrimSpace(o.OrderID) == "" {
		return fmt.Errorf("%w: order id missing", errors.ErrMalformedResponse)
	}
	if strings.TrimSpace(o.BookingID) == "" {
		return errors.ErrMissingBookingReference
	}
	return o.Amount.Validate()
}

// NewReceipt builds a caller-supplied idempotency hint for order creation.
// A fresh user-initiated attempt gets a fresh receipt, so the backend can
// deduplicate retries of the same attempt without collapsing distinct ones.
func NewReceipt(bookingID string) string {
	return fmt.Sprintf("rcpt_%s_%s", bookingID, uuid.New().String()[:8])
}
