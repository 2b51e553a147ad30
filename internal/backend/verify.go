package backend

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rentflow/checkout/internal/config"
	"github.com/rentflow/checkout/internal/domain/errors"
	"github.com/rentflow/checkout/internal/domain/payment"
	"github.com/rentflow/checkout/internal/observability"
)

// VerificationClient submits provider completions to the backend for
// server-side signature verification and booking reconciliation.
type VerificationClient struct {
	client *Client
	cfg    config.BackendConfig
	logger zerolog.Logger
	tracer trace.Tracer
}

func NewVerificationClient(cfg config.BackendConfig, logger zerolog.Logger) *VerificationClient {
	return &VerificationClient{
		client: NewClient("verification_client", cfg, logger),
		cfg:    cfg,
		logger: logger.With().Str("component", "verification_client").Logger(),
		tracer: otel.Tracer("backend"),
	}
}

// WithMetrics enables request counters and durations on the client.
func (c *VerificationClient) WithMetrics(m *observability.Metrics) *VerificationClient {
	c.client.setMetrics(m)
	return c
}

// VerifyParams carries a completion to verify. Signature is empty for
// embedded-runtime completions; the backend verifies those against the
// provider API instead of the callback signature.
type VerifyParams struct {
	OrderID   string
	PaymentID string
	Signature string
	BookingID string
	Source    string
}

type verifyRequest struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature,omitempty"`
	BookingID string `json:"bookingId,omitempty"`
	Source    string `json:"source,omitempty"`
}

// Verify submits the completion. The payment identifier is the only field
// that must be present; it is checked before any network traffic so a
// malformed completion never reaches the wire. Timeouts come back as
// ErrVerificationTimeout because the charge may already have succeeded.
func (c *VerificationClient) Verify(ctx context.Context, p VerifyParams) (*payment.VerifiedTransaction, error) {
	if strings.TrimSpace(p.PaymentID) == "" {
		return nil, errors.ErrMissingPaymentIdentifier
	}

	ctx, span := c.tracer.Start(ctx, "backend.verify_payment",
		trace.WithAttributes(
			attribute.String("order.id", p.OrderID),
			attribute.String("payment.source", p.Source),
		))
	defer span.End()

	data, err := c.client.postJSON(ctx, c.cfg.VerifyURL(), verifyRequest{
		OrderID:   strings.TrimSpace(p.OrderID),
		PaymentID: strings.TrimSpace(p.PaymentID),
		Signature: strings.TrimSpace(p.Signature),
		BookingID: p.BookingID,
		Source:    p.Source,
	}, c.cfg.VerifyTimeout)
	if err != nil {
		if stderrors.Is(err, errRequestTimeout) {
			c.logger.Warn().Str("order_id", p.OrderID).Msg("verification timed out; outcome unknown")
			return nil, fmt.Errorf("%w: %v", errors.ErrVerificationTimeout, err)
		}
		c.logger.Error().Err(err).Str("order_id", p.OrderID).Msg("verification failed")
		return nil, err
	}

	var tx payment.VerifiedTransaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedResponse, err)
	}
	if strings.TrimSpace(tx.PaymentID) == "" {
		tx.PaymentID = p.PaymentID
	}
	if strings.TrimSpace(tx.OrderID) == "" {
		tx.OrderID = p.OrderID
	}
	tx.VerifiedAt = time.Now()

	c.logger.Info().
		Str("order_id", tx.OrderID).
		Str("payment_id", tx.PaymentID).
		Str("transaction_id", tx.TransactionID).
		Msg("payment verified")
	return &tx, nil
}
