package checkout

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rentflow/checkout/internal/backend"
	"github.com/rentflow/checkout/internal/domain/payment"
	"github.com/rentflow/checkout/internal/pending"
)

// StatusChecker reports the backend's after-the-fact view of an order.
type StatusChecker interface {
	OrderStatus(ctx context.Context, orderID string) (*backend.OrderStatus, error)
}

// Recoverer reconciles pending records left behind by attempts that never
// reached a terminal state in-process: redirect flows, crashes, closed tabs.
type Recoverer struct {
	store    pending.Store
	status   StatusChecker
	verifier Verifier
	maxAge   time.Duration
	logger   zerolog.Logger
}

func NewRecoverer(store pending.Store, status StatusChecker, verifier Verifier, maxAge time.Duration, logger zerolog.Logger) *Recoverer {
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	return &Recoverer{
		store:    store,
		status:   status,
		verifier: verifier,
		maxAge:   maxAge,
		logger:   logger.With().Str("component", "payment_recoverer").Logger(),
	}
}

// SweepResult summarizes one recovery pass.
type SweepResult struct {
	Recovered int // verified and cleared
	Expired   int // stale or provider-expired, cleared
	Retained  int // still ambiguous, kept for the next pass
}

// Sweep checks every pending record against the backend. Paid orders are
// verified and cleared, dead ones are dropped, anything still ambiguous
// stays for the next pass. Records are independent, so they are checked
// concurrently with a bounded group.
func (r *Recoverer) Sweep(ctx context.Context) (SweepResult, error) {
	records, err := r.store.List(ctx)
	if err != nil {
		return SweepResult{}, err
	}
	if len(records) == 0 {
		return SweepResult{}, nil
	}

	results := make([]int, len(records)) // 0 retained, 1 recovered, 2 expired
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i, rec := range records {
		i, rec := i, rec
		g.Go(func() error {
			results[i] = r.reconcile(ctx, rec)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SweepResult{}, err
	}

	var res SweepResult
	for _, outcome := range results {
		switch outcome {
		case 1:
			res.Recovered++
		case 2:
			res.Expired++
		default:
			res.Retained++
		}
	}
	r.logger.Info().
		Int("recovered", res.Recovered).
		Int("expired", res.Expired).
		Int("retained", res.Retained).
		Msg("pending payment sweep complete")
	return res, nil
}

func (r *Recoverer) reconcile(ctx context.Context, rec payment.PendingTransaction) int {
	log := r.logger.With().Str("order_id", rec.OrderID).Str("booking_id", rec.BookingID).Logger()

	status, err := r.status.OrderStatus(ctx, rec.OrderID)
	if err != nil {
		log.Warn().Err(err).Msg("could not check order status; record retained")
		return 0
	}

	switch {
	case status.Paid():
		// The charge exists server-side; verification attaches it to the
		// booking. No signature is available this late, the backend
		// confirms against the provider directly.
		_, err := r.verifier.Verify(ctx, backend.VerifyParams{
			OrderID:   rec.OrderID,
			PaymentID: status.PaymentID,
			BookingID: rec.BookingID,
			Source:    "recovery",
		})
		if err != nil {
			log.Error().Err(err).Msg("recovered payment failed verification; record retained")
			return 0
		}
		if err := r.store.Clear(ctx, rec.OrderID); err != nil {
			log.Warn().Err(err).Msg("verified but could not clear pending record")
		}
		log.Info().Str("payment_id", status.PaymentID).Msg("pending payment recovered")
		return 1

	case status.Status == "expired", time.Since(rec.CreatedAt) > r.maxAge:
		if err := r.store.Clear(ctx, rec.OrderID); err != nil {
			log.Warn().Err(err).Msg("could not clear expired pending record")
			return 0
		}
		log.Info().Str("status", status.Status).Msg("expired pending record dropped")
		return 2

	default:
		return 0
	}
}
