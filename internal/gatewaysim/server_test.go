package gatewaysim

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentflow/checkout/internal/backend"
	"github.com/rentflow/checkout/internal/config"
	domainErrors "github.com/rentflow/checkout/internal/domain/errors"
	"github.com/rentflow/checkout/internal/domain/payment"
	"github.com/rentflow/checkout/internal/widget"
)

const simSecret = "sim_test_secret"

// The gateway is exercised through the real backend clients, so these tests
// double as an integration pass over the whole wire contract.
func newTestGateway(t *testing.T) (*Gateway, config.BackendConfig) {
	t.Helper()
	gw := New(simSecret, zerolog.Nop())
	srv := httptest.NewServer(NewRouter(gw, config.CORSConfig{AllowedOrigins: []string{"*"}}, nil))
	t.Cleanup(srv.Close)

	return gw, config.BackendConfig{
		BaseURL:            srv.URL,
		OrderPath:          "/api/payments/order",
		VerifyPath:         "/api/payments/verify",
		RequestTimeout:     2 * time.Second,
		VerifyTimeout:      2 * time.Second,
		BreakerMaxRequests: 10,
		BreakerInterval:    60 * time.Second,
		BreakerTimeout:     30 * time.Second,
	}
}

func TestGateway_OrderThenSignedVerify(t *testing.T) {
	_, cfg := newTestGateway(t)
	ctx := context.Background()

	orders := backend.NewOrderClient(cfg, zerolog.Nop())
	order, err := orders.CreateOrder(ctx, payment.Amount{Value: 125000, Currency: "INR"}, "bkg_1", payment.NewReceipt("bkg_1"))
	require.NoError(t, err)
	assert.Equal(t, int64(125000), order.Amount.Value)
	assert.Equal(t, "bkg_1", order.BookingID)

	verifier := backend.NewVerificationClient(cfg, zerolog.Nop())
	tx, err := verifier.Verify(ctx, backend.VerifyParams{
		OrderID:   order.OrderID,
		PaymentID: "pay_123",
		Signature: widget.Sign(simSecret, order.OrderID, "pay_123"),
		BookingID: "bkg_1",
		Source:    "web",
	})
	require.NoError(t, err)
	assert.Equal(t, "captured", tx.Status)
	assert.Equal(t, order.OrderID, tx.OrderID)
	assert.Equal(t, "bkg_1", tx.BookingID)
}

func TestGateway_SignatureMismatchRejected(t *testing.T) {
	_, cfg := newTestGateway(t)
	ctx := context.Background()

	orders := backend.NewOrderClient(cfg, zerolog.Nop())
	order, err := orders.CreateOrder(ctx, payment.Amount{Value: 100, Currency: "INR"}, "bkg_1", "")
	require.NoError(t, err)

	verifier := backend.NewVerificationClient(cfg, zerolog.Nop())
	_, err = verifier.Verify(ctx, backend.VerifyParams{
		OrderID:   order.OrderID,
		PaymentID: "pay_123",
		Signature: widget.Sign("wrong_secret", order.OrderID, "pay_123"),
	})
	assert.ErrorIs(t, err, domainErrors.ErrServerRejected)
	assert.Equal(t, "signature mismatch", domainErrors.UserMessage(err))
}

func TestGateway_UnsignedVerifyAcceptedForKnownOrder(t *testing.T) {
	_, cfg := newTestGateway(t)
	ctx := context.Background()

	orders := backend.NewOrderClient(cfg, zerolog.Nop())
	order, err := orders.CreateOrder(ctx, payment.Amount{Value: 100, Currency: "INR"}, "bkg_1", "")
	require.NoError(t, err)

	verifier := backend.NewVerificationClient(cfg, zerolog.Nop())
	tx, err := verifier.Verify(ctx, backend.VerifyParams{
		OrderID:   order.OrderID,
		PaymentID: "pay_embedded",
		Source:    "embedded",
	})
	require.NoError(t, err)
	assert.Equal(t, "captured", tx.Status)
}

func TestGateway_UnknownOrderRejected(t *testing.T) {
	_, cfg := newTestGateway(t)

	verifier := backend.NewVerificationClient(cfg, zerolog.Nop())
	_, err := verifier.Verify(context.Background(), backend.VerifyParams{
		OrderID:   "order_nope",
		PaymentID: "pay_123",
	})
	assert.ErrorIs(t, err, domainErrors.ErrServerRejected)
}

func TestGateway_ReceiptIsIdempotent(t *testing.T) {
	_, cfg := newTestGateway(t)
	ctx := context.Background()

	orders := backend.NewOrderClient(cfg, zerolog.Nop())
	receipt := payment.NewReceipt("bkg_1")

	first, err := orders.CreateOrder(ctx, payment.Amount{Value: 100, Currency: "INR"}, "bkg_1", receipt)
	require.NoError(t, err)
	second, err := orders.CreateOrder(ctx, payment.Amount{Value: 100, Currency: "INR"}, "bkg_1", receipt)
	require.NoError(t, err)

	assert.Equal(t, first.OrderID, second.OrderID, "same receipt must not mint a second order")

	third, err := orders.CreateOrder(ctx, payment.Amount{Value: 100, Currency: "INR"}, "bkg_1", payment.NewReceipt("bkg_1"))
	require.NoError(t, err)
	assert.NotEqual(t, first.OrderID, third.OrderID, "a fresh receipt is a fresh attempt")
}

func TestGateway_OrderStatusLifecycle(t *testing.T) {
	gw, cfg := newTestGateway(t)
	ctx := context.Background()

	orders := backend.NewOrderClient(cfg, zerolog.Nop())
	order, err := orders.CreateOrder(ctx, payment.Amount{Value: 100, Currency: "INR"}, "bkg_1", "")
	require.NoError(t, err)

	status, err := orders.OrderStatus(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "created", status.Status)
	assert.False(t, status.Paid())

	payID, ok := gw.MarkPaid(order.OrderID)
	require.True(t, ok)

	status, err = orders.OrderStatus(ctx, order.OrderID)
	require.NoError(t, err)
	assert.True(t, status.Paid())
	assert.Equal(t, payID, status.PaymentID)
}

func TestGateway_RedirectCallbackSettlesOrder(t *testing.T) {
	_, cfg := newTestGateway(t)
	ctx := context.Background()

	orders := backend.NewOrderClient(cfg, zerolog.Nop())
	order, err := orders.CreateOrder(ctx, payment.Amount{Value: 100, Currency: "INR"}, "bkg_1", "")
	require.NoError(t, err)

	url := cfg.BaseURL + "/payment/callback?razorpay_order_id=" + order.OrderID +
		"&razorpay_payment_id=pay_cb&razorpay_signature=" + widget.Sign(simSecret, order.OrderID, "pay_cb")
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	status, err := orders.OrderStatus(ctx, order.OrderID)
	require.NoError(t, err)
	assert.True(t, status.Paid())
	assert.Equal(t, "pay_cb", status.PaymentID)
}

func TestGateway_ExpireOrder(t *testing.T) {
	gw, cfg := newTestGateway(t)
	ctx := context.Background()

	orders := backend.NewOrderClient(cfg, zerolog.Nop())
	order, err := orders.CreateOrder(ctx, payment.Amount{Value: 100, Currency: "INR"}, "bkg_1", "")
	require.NoError(t, err)
	require.True(t, gw.Expire(order.OrderID))

	status, err := orders.OrderStatus(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "expired", status.Status)
}
