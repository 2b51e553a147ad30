package checkout

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentflow/checkout/internal/backend"
	domainErrors "github.com/rentflow/checkout/internal/domain/errors"
	"github.com/rentflow/checkout/internal/domain/payment"
	"github.com/rentflow/checkout/internal/observability"
	"github.com/rentflow/checkout/internal/runtime"
	"github.com/rentflow/checkout/internal/testutil"
	"github.com/rentflow/checkout/internal/widget"
)

type orchestratorFixture struct {
	orch     *Orchestrator
	sim      *widget.Simulator
	orders   *testutil.MockOrderClient
	verifier *testutil.MockVerifier
	store    *testutil.SpyStore
}

func newOrchestratorFixture(t *testing.T, env runtime.Environment, simOpts ...widget.SimOption) *orchestratorFixture {
	t.Helper()
	f := &orchestratorFixture{
		sim:      widget.NewSimulator("secret", append([]widget.SimOption{widget.WithPreloadedSDK()}, simOpts...)...),
		orders:   testutil.NewMockOrderClient(),
		verifier: testutil.NewMockVerifier(),
		store:    testutil.NewSpyStore(),
	}
	cfg := testutil.NewTestCheckoutConfig()
	launcher := NewLauncher(
		&testutil.MockLoader{SDK: f.sim},
		f.orders,
		f.verifier,
		f.store,
		cfg,
		observability.NewMetrics("test", prometheus.NewRegistry()),
		zerolog.Nop(),
	)
	f.orch = NewOrchestrator(runtime.NewDetector(env), launcher, cfg, zerolog.Nop())
	return f
}

type callbackRecorder struct {
	successes []*payment.VerifiedTransaction
	errors    []error
}

func (r *callbackRecorder) params(bookingID string) Params {
	return Params{
		BookingID: bookingID,
		Amount:    125000,
		OnSuccess: func(tx *payment.VerifiedTransaction) { r.successes = append(r.successes, tx) },
		OnError:   func(err error) { r.errors = append(r.errors, err) },
	}
}

func TestRun_SuccessInvokesOnSuccessOnly(t *testing.T) {
	f := newOrchestratorFixture(t, testutil.StubEnvironment{UA: "Mozilla/5.0"})
	rec := &callbackRecorder{}

	outcome := f.orch.Run(context.Background(), rec.params("bkg_1"))

	assert.Equal(t, payment.OutcomeSuccess, outcome.Kind)
	require.Len(t, rec.successes, 1)
	assert.Empty(t, rec.errors)
	assert.Equal(t, "bkg_1", f.verifier.Calls()[0].BookingID)
}

func TestRun_MissingBookingFailsBeforeAnyWork(t *testing.T) {
	f := newOrchestratorFixture(t, testutil.StubEnvironment{})
	rec := &callbackRecorder{}
	p := rec.params("   ")

	outcome := f.orch.Run(context.Background(), p)

	assert.Equal(t, payment.OutcomeFailed, outcome.Kind)
	require.Len(t, rec.errors, 1)
	assert.ErrorIs(t, rec.errors[0], domainErrors.ErrMissingBookingReference)
	assert.Empty(t, rec.successes)
	assert.Empty(t, f.orders.Created(), "invalid params must not reach the backend")
}

func TestRun_InvalidAmount(t *testing.T) {
	f := newOrchestratorFixture(t, testutil.StubEnvironment{})
	rec := &callbackRecorder{}
	p := rec.params("bkg_1")
	p.Amount = 0

	outcome := f.orch.Run(context.Background(), p)

	assert.Equal(t, payment.OutcomeFailed, outcome.Kind)
	require.Len(t, rec.errors, 1)
	assert.ErrorIs(t, rec.errors[0], domainErrors.ErrInvalidAmount)
}

func TestRun_InvalidEmailRejected(t *testing.T) {
	f := newOrchestratorFixture(t, testutil.StubEnvironment{})
	rec := &callbackRecorder{}
	p := rec.params("bkg_1")
	p.CustomerEmail = "not-an-email"

	outcome := f.orch.Run(context.Background(), p)
	assert.Equal(t, payment.OutcomeFailed, outcome.Kind)
}

func TestRun_DismissalInvokesNeitherCallback(t *testing.T) {
	f := newOrchestratorFixture(t, testutil.StubEnvironment{}, widget.WithOutcome(widget.SimDismiss))
	rec := &callbackRecorder{}

	outcome := f.orch.Run(context.Background(), rec.params("bkg_1"))

	assert.Equal(t, payment.OutcomeCancelled, outcome.Kind)
	assert.Empty(t, rec.successes)
	assert.Empty(t, rec.errors)
}

func TestRun_WebViewEnvironmentGetsRedirect(t *testing.T) {
	env := testutil.StubEnvironment{UA: "Mozilla/5.0 (Linux; Android 14; wv) RentflowApp/3.2"}
	f := newOrchestratorFixture(t, env, widget.WithEmbeddedPayload())
	rec := &callbackRecorder{}

	outcome := f.orch.Run(context.Background(), rec.params("bkg_1"))

	require.Equal(t, payment.OutcomeSuccess, outcome.Kind)
	opts := f.sim.LastOptions()
	require.NotNil(t, opts)
	assert.True(t, opts.Redirect)
	assert.Equal(t, "embedded", f.verifier.Calls()[0].Source)
}

func TestRun_DefaultCurrencyFromConfig(t *testing.T) {
	f := newOrchestratorFixture(t, testutil.StubEnvironment{})
	rec := &callbackRecorder{}

	outcome := f.orch.Run(context.Background(), rec.params("bkg_1"))

	require.Equal(t, payment.OutcomeSuccess, outcome.Kind)
	require.Len(t, f.orders.Created(), 1)
	assert.Equal(t, "INR", f.orders.Created()[0].Amount.Currency)
}

func TestResume_VerifiesPendingCompletion(t *testing.T) {
	f := newOrchestratorFixture(t, testutil.StubEnvironment{})
	order := testutil.NewTestOrder("bkg_1", 125000)
	require.NoError(t, f.store.Save(context.Background(), payment.NewPendingTransaction(order, "http://cb")))

	outcome := f.orch.Resume(context.Background(), f.store, map[string]any{
		"razorpay_payment_id": "pay_late",
		"razorpay_order_id":   order.OrderID,
		"razorpay_signature":  "sig",
	})

	require.Equal(t, payment.OutcomeSuccess, outcome.Kind)
	calls := f.verifier.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "redirect", calls[0].Source)
	assert.Equal(t, order.BookingID, calls[0].BookingID)
	assert.False(t, f.store.Has(order.OrderID), "resumed success clears the record")
}

func TestResume_NoPendingRecord(t *testing.T) {
	f := newOrchestratorFixture(t, testutil.StubEnvironment{})

	outcome := f.orch.Resume(context.Background(), f.store, map[string]any{"razorpay_payment_id": "pay_1"})
	assert.Equal(t, payment.OutcomeFailed, outcome.Kind)
	assert.Empty(t, f.verifier.Calls())
}

func TestResume_PayloadOrderFallsBackToRecord(t *testing.T) {
	f := newOrchestratorFixture(t, testutil.StubEnvironment{})
	order := testutil.NewTestOrder("bkg_1", 125000)
	require.NoError(t, f.store.Save(context.Background(), payment.NewPendingTransaction(order, "http://cb")))

	outcome := f.orch.Resume(context.Background(), f.store, map[string]any{"paymentId": "pay_late"})

	require.Equal(t, payment.OutcomeSuccess, outcome.Kind)
	assert.Equal(t, order.OrderID, f.verifier.Calls()[0].OrderID)
}

func TestResume_FailureRetainsRecord(t *testing.T) {
	f := newOrchestratorFixture(t, testutil.StubEnvironment{})
	order := testutil.NewTestOrder("bkg_1", 125000)
	require.NoError(t, f.store.Save(context.Background(), payment.NewPendingTransaction(order, "http://cb")))
	f.verifier.VerifyFunc = func(ctx context.Context, p backend.VerifyParams) (*payment.VerifiedTransaction, error) {
		return nil, domainErrors.ErrVerificationTimeout
	}

	outcome := f.orch.Resume(context.Background(), f.store, map[string]any{"razorpay_payment_id": "pay_late"})

	assert.Equal(t, payment.OutcomeFailed, outcome.Kind)
	assert.True(t, f.store.Has(order.OrderID))
}
