package widget

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SimOutcome selects how the simulated widget resolves a session.
type SimOutcome string

const (
	SimComplete SimOutcome = "complete"
	SimDismiss  SimOutcome = "dismiss"
	SimFail     SimOutcome = "fail"
)

// Simulator is an in-process Document, Mount and SDK in one: it plays the
// provider script and checkout widget for the demo binary and tests. Signed
// completions use the same HMAC scheme the gateway simulator verifies.
type Simulator struct {
	secret        string
	scriptLatency time.Duration
	userDelay     time.Duration
	outcome       SimOutcome
	failureReason string
	embeddedShape bool
	loadErr       error
	preloaded     bool

	mu          sync.Mutex
	loaded      bool
	attaches    int
	lastOptions *Options
}

type SimOption func(*Simulator)

func WithScriptLatency(d time.Duration) SimOption {
	return func(s *Simulator) { s.scriptLatency = d }
}

func WithUserDelay(d time.Duration) SimOption {
	return func(s *Simulator) { s.userDelay = d }
}

func WithOutcome(o SimOutcome) SimOption {
	return func(s *Simulator) { s.outcome = o }
}

func WithFailureReason(reason string) SimOption {
	return func(s *Simulator) { s.failureReason = reason }
}

// WithEmbeddedPayload makes completions use the embedded-app callback shape:
// camelCase field names and no signature.
func WithEmbeddedPayload() SimOption {
	return func(s *Simulator) { s.embeddedShape = true }
}

// WithPreloadedSDK makes the SDK present without any script injection.
func WithPreloadedSDK() SimOption {
	return func(s *Simulator) { s.preloaded = true }
}

func WithLoadError(err error) SimOption {
	return func(s *Simulator) { s.loadErr = err }
}

func NewSimulator(secret string, opts ...SimOption) *Simulator {
	s := &Simulator{
		secret:        secret,
		scriptLatency: 10 * time.Millisecond,
		userDelay:     10 * time.Millisecond,
		outcome:       SimComplete,
		failureReason: "card declined by issuing bank",
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SDK implements Document.
func (s *Simulator) SDK() (SDK, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.preloaded || s.loaded {
		return s, true
	}
	return nil, false
}

// Mounts implements Document.
func (s *Simulator) Mounts() []Mount {
	return []Mount{s}
}

// Attach implements Mount.
func (s *Simulator) Attach(ctx context.Context, url string) (Script, error) {
	s.mu.Lock()
	s.attaches++
	s.mu.Unlock()

	sc := &simScript{done: make(chan error, 1)}
	go func() {
		select {
		case <-ctx.Done():
			sc.done <- ctx.Err()
			return
		case <-time.After(s.scriptLatency):
		}
		if s.loadErr != nil {
			sc.done <- s.loadErr
			return
		}
		s.mu.Lock()
		s.loaded = true
		s.mu.Unlock()
		sc.done <- nil
	}()
	return sc, nil
}

// Open implements SDK. The session resolves asynchronously after the
// configured user delay, mirroring a human interacting with the widget.
func (s *Simulator) Open(opts Options) error {
	if opts.OrderID == "" {
		return fmt.Errorf("simulator: order id is required to open the widget")
	}

	s.mu.Lock()
	o := opts
	s.lastOptions = &o
	s.mu.Unlock()

	go func() {
		time.Sleep(s.userDelay)
		switch s.outcome {
		case SimDismiss:
			if opts.OnDismiss != nil {
				opts.OnDismiss()
			}
		case SimFail:
			if opts.OnFailure != nil {
				opts.OnFailure(s.failureReason)
			}
		default:
			if opts.OnCompletion != nil {
				opts.OnCompletion(s.completionPayload(opts.OrderID))
			}
		}
	}()
	return nil
}

func (s *Simulator) completionPayload(orderID string) map[string]any {
	paymentID := "pay_" + uuid.New().String()[:14]
	if s.embeddedShape {
		return map[string]any{
			"paymentId": paymentID,
			"orderId":   orderID,
		}
	}
	return map[string]any{
		"razorpay_payment_id": paymentID,
		"razorpay_order_id":   orderID,
		"razorpay_signature":  Sign(s.secret, orderID, paymentID),
	}
}

// Attaches reports how many script injections happened.
func (s *Simulator) Attaches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attaches
}

// LastOptions returns the options of the most recent Open call.
func (s *Simulator) LastOptions() *Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastOptions
}

// Sign computes the provider completion signature: hex HMAC-SHA256 over
// "orderID|paymentID".
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

type simScript struct {
	done    chan error
	mu      sync.Mutex
	removed bool
}

func (s *simScript) Done() <-chan error {
	return s.done
}

func (s *simScript) Remove() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = true
}
