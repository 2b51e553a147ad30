package widget

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for widget event")
		panic("unreachable")
	}
}

func TestSimulator_CompletionIsSigned(t *testing.T) {
	sim := NewSimulator("secret", WithPreloadedSDK())
	payloads := make(chan map[string]any, 1)

	err := sim.Open(Options{
		OrderID:      "order_abc",
		OnCompletion: func(p map[string]any) { payloads <- p },
	})
	require.NoError(t, err)

	p := waitFor(t, payloads)
	paymentID := p["razorpay_payment_id"].(string)
	assert.Equal(t, "order_abc", p["razorpay_order_id"])
	assert.Equal(t, Sign("secret", "order_abc", paymentID), p["razorpay_signature"])
}

func TestSimulator_EmbeddedPayloadOmitsSignature(t *testing.T) {
	sim := NewSimulator("secret", WithPreloadedSDK(), WithEmbeddedPayload())
	payloads := make(chan map[string]any, 1)

	err := sim.Open(Options{
		OrderID:      "order_abc",
		OnCompletion: func(p map[string]any) { payloads <- p },
	})
	require.NoError(t, err)

	p := waitFor(t, payloads)
	assert.Equal(t, "order_abc", p["orderId"])
	assert.NotEmpty(t, p["paymentId"])
	assert.NotContains(t, p, "razorpay_signature")
	assert.NotContains(t, p, "signature")
}

func TestSimulator_Dismiss(t *testing.T) {
	sim := NewSimulator("secret", WithPreloadedSDK(), WithOutcome(SimDismiss))
	dismissed := make(chan struct{}, 1)

	err := sim.Open(Options{
		OrderID:      "order_abc",
		OnCompletion: func(map[string]any) { t.Error("completion must not fire on dismissal") },
		OnDismiss:    func() { dismissed <- struct{}{} },
	})
	require.NoError(t, err)
	waitFor(t, dismissed)
}

func TestSimulator_Failure(t *testing.T) {
	sim := NewSimulator("secret", WithPreloadedSDK(), WithOutcome(SimFail), WithFailureReason("insufficient funds"))
	reasons := make(chan string, 1)

	err := sim.Open(Options{
		OrderID:   "order_abc",
		OnFailure: func(reason string) { reasons <- reason },
	})
	require.NoError(t, err)
	assert.Equal(t, "insufficient funds", waitFor(t, reasons))
}

func TestSimulator_OpenRequiresOrderID(t *testing.T) {
	sim := NewSimulator("secret", WithPreloadedSDK())
	assert.Error(t, sim.Open(Options{}))
}

func TestSign_Deterministic(t *testing.T) {
	a := Sign("secret", "order_abc", "pay_1")
	b := Sign("secret", "order_abc", "pay_1")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, Sign("other", "order_abc", "pay_1"))
}
