package payment

import "time"

// StorageKey is the durable client-storage slot for the pending payment record.
const StorageKey = "pending_payment"

// PendingTransaction is persisted before the widget opens whenever the runtime
// context requires redirect transport, because control may leave the process
// entirely. It is cleared on success or definitive provider failure and
// retained on ambiguous outcomes (verification errors, timeouts) so a later
// reconciliation pass can still find the attempt.
type PendingTransaction struct {
	Type        string    `json:"type"`
	OrderID     string    `json:"orderId"`
	BookingID   string    `json:"bookingId"`
	Amount      int64     `json:"amount"`
	CallbackURL string    `json:"callbackUrl"`
	CreatedAt   time.Time `json:"timestamp"`
}

// NewPendingTransaction records the context needed to reconcile a payment the
// user may complete outside this process's lifetime.
func NewPendingTransaction(order *Order, callbackURL string) *PendingTransaction {
	return &PendingTransaction{
		Type:        "booking_payment",
		OrderID:     order.OrderID,
		BookingID:   order.BookingID,
		Amount:      order.Amount.Value,
		CallbackURL: callbackURL,
		CreatedAt:   time.Now(),
	}
}
