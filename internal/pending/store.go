package pending

import (
	"context"

	"github.com/rentflow/checkout/internal/domain/payment"
)

// Store persists pending payment records across process boundaries. Writes
// are best-effort from the orchestrator's point of view: a failed Save is
// logged but never blocks the payment itself.
//
// Load with no record returns (nil, nil); absence is the normal state, not
// an error.
type Store interface {
	// Save records a pending transaction before the widget opens.
	Save(ctx context.Context, tx *payment.PendingTransaction) error
	// Load returns the most recent pending record, or nil when none exists.
	Load(ctx context.Context) (*payment.PendingTransaction, error)
	// Clear removes the record for the given order. Clearing an order that
	// is not recorded is a no-op.
	Clear(ctx context.Context, orderID string) error
	// List returns all pending records, newest first, for the recovery pass.
	List(ctx context.Context) ([]payment.PendingTransaction, error)
}
