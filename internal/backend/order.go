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

// OrderClient creates provider orders on the booking backend. The amount in
// the response is authoritative: whatever the caller asked for, the order
// carries the server's pricing snapshot.
type OrderClient struct {
	client *Client
	cfg    config.BackendConfig
	logger zerolog.Logger
	tracer trace.Tracer
}

func NewOrderClient(cfg config.BackendConfig, logger zerolog.Logger) *OrderClient {
	return &OrderClient{
		client: NewClient("order_client", cfg, logger),
		cfg:    cfg,
		logger: logger.With().Str("component", "order_client").Logger(),
		tracer: otel.Tracer("backend"),
	}
}

// WithMetrics enables request counters and durations on the client.
func (c *OrderClient) WithMetrics(m *observability.Metrics) *OrderClient {
	c.client.setMetrics(m)
	return c
}

type orderRequest struct {
	BookingID string `json:"bookingId"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency,omitempty"`
	Receipt   string `json:"receipt,omitempty"`
}

type orderResponse struct {
	OrderID       string `json:"orderId"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Receipt       string `json:"receipt"`
	TransactionID string `json:"transactionId"`
	BookingID     string `json:"bookingId"`
	KeyID         string `json:"keyId"`
}

// CreateOrder asks the backend for a provider order covering the booking.
// The receipt is an idempotency hint: retries of the same attempt reuse it,
// a fresh attempt sends a fresh one.
func (c *OrderClient) CreateOrder(ctx context.Context, amount payment.Amount, bookingID, receipt string) (*payment.Order, error) {
	if strings.TrimSpace(bookingID) == "" {
		return nil, errors.ErrMissingBookingReference
	}
	if err := amount.Validate(); err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "backend.create_order",
		trace.WithAttributes(attribute.String("booking.id", bookingID)))
	defer span.End()

	data, err := c.client.postJSON(ctx, c.cfg.OrderURL(), orderRequest{
		BookingID: bookingID,
		Amount:    amount.Value,
		Currency:  amount.Currency,
		Receipt:   receipt,
	}, c.cfg.RequestTimeout)
	if err != nil {
		// Before the order exists there is nothing ambiguous about a
		// timeout: no charge can have happened yet.
		if stderrors.Is(err, errRequestTimeout) {
			return nil, fmt.Errorf("%w: %v", errors.ErrNetworkUnavailable, err)
		}
		c.logger.Error().Err(err).Str("booking_id", bookingID).Msg("order creation failed")
		return nil, err
	}

	var resp orderResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedResponse, err)
	}
	if strings.TrimSpace(resp.OrderID) == "" {
		return nil, fmt.Errorf("%w: order id missing", errors.ErrMalformedResponse)
	}
	if resp.BookingID == "" {
		resp.BookingID = bookingID
	}

	order := &payment.Order{
		OrderID:       resp.OrderID,
		Amount:        payment.Amount{Value: resp.Amount, Currency: resp.Currency},
		Receipt:       resp.Receipt,
		TransactionID: resp.TransactionID,
		BookingID:     resp.BookingID,
		CreatedAt:     time.Now(),
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("order_id", order.OrderID).
		Str("booking_id", order.BookingID).
		Str("amount", order.Amount.String()).
		Msg("provider order created")
	return order, nil
}
