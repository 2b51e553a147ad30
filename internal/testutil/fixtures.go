package testutil

import (
	"time"

	"github.com/rentflow/checkout/internal/config"
	"github.com/rentflow/checkout/internal/domain/payment"
)

func NewTestOrder(bookingID string, amount int64) *payment.Order {
	return &payment.Order{
		OrderID:       newID("order"),
		Amount:        payment.Amount{Value: amount, Currency: "INR"},
		Receipt:       payment.NewReceipt(bookingID),
		TransactionID: newID("txn"),
		BookingID:     bookingID,
		CreatedAt:     time.Now(),
	}
}

func NewTestVerifiedTransaction(orderID, paymentID string) *payment.VerifiedTransaction {
	return &payment.VerifiedTransaction{
		TransactionID: newID("txn"),
		OrderID:       orderID,
		PaymentID:     paymentID,
		BookingID:     "bkg_test",
		Amount:        125000,
		Currency:      "INR",
		Status:        "captured",
		VerifiedAt:    time.Now(),
	}
}

// NewTestCheckoutConfig returns checkout settings with timeouts short enough
// for unit tests.
func NewTestCheckoutConfig() config.CheckoutConfig {
	return config.CheckoutConfig{
		DisplayName:        "Rentflow",
		Description:        "Car rental booking payment",
		ThemeColor:         "#528FF0",
		Currency:           "INR",
		CallbackURL:        "http://localhost:3000/payment/callback",
		ProviderRetryCount: 2,
		WidgetTimeout:      2 * time.Second,
	}
}
