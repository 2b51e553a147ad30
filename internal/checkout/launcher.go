package checkout

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rentflow/checkout/internal/backend"
	"github.com/rentflow/checkout/internal/config"
	"github.com/rentflow/checkout/internal/domain/errors"
	"github.com/rentflow/checkout/internal/domain/payment"
	"github.com/rentflow/checkout/internal/observability"
	"github.com/rentflow/checkout/internal/pending"
	"github.com/rentflow/checkout/internal/runtime"
	"github.com/rentflow/checkout/internal/widget"
)

// SDKLoader makes the provider SDK available, injecting the script if needed.
type SDKLoader interface {
	EnsureLoaded(ctx context.Context, embedded bool) (widget.SDK, error)
}

// OrderCreator creates provider orders on the booking backend.
type OrderCreator interface {
	CreateOrder(ctx context.Context, amount payment.Amount, bookingID, receipt string) (*payment.Order, error)
}

// Verifier submits completions for server-side verification.
type Verifier interface {
	Verify(ctx context.Context, p backend.VerifyParams) (*payment.VerifiedTransaction, error)
}

// Launcher drives a single checkout attempt through its state machine: script
// load, order creation, widget session, verification. Each attempt is
// single-use; the orchestrator creates one per Run.
type Launcher struct {
	loader   SDKLoader
	orders   OrderCreator
	verifier Verifier
	store    pending.Store
	cfg      config.CheckoutConfig
	metrics  *observability.Metrics
	logger   zerolog.Logger
	tracer   trace.Tracer
}

func NewLauncher(
	loader SDKLoader,
	orders OrderCreator,
	verifier Verifier,
	store pending.Store,
	cfg config.CheckoutConfig,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Launcher {
	return &Launcher{
		loader:   loader,
		orders:   orders,
		verifier: verifier,
		store:    store,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger.With().Str("component", "checkout_launcher").Logger(),
		tracer:   otel.Tracer("checkout"),
	}
}

// LaunchRequest is one user-initiated payment attempt.
type LaunchRequest struct {
	BookingID      string
	Amount         payment.Amount
	RuntimeContext runtime.Context
	Prefill        widget.Prefill
}

// widgetEvent is the single resolution of a widget session. Exactly one is
// delivered per attempt; later callbacks from a confused provider are dropped.
type widgetEvent struct {
	kind    payment.AttemptState // StateVerifying, StateCancelled or StateFailed
	payload map[string]any
	reason  string
}

// Launch runs the attempt to a terminal state and returns its outcome. The
// outcome is always terminal: success carries the verified transaction,
// failure carries the error, cancellation carries neither.
func (l *Launcher) Launch(ctx context.Context, req LaunchRequest) payment.Outcome {
	ctx, span := l.tracer.Start(ctx, "checkout.launch",
		trace.WithAttributes(
			attribute.String("booking.id", req.BookingID),
			attribute.String("runtime.context", string(req.RuntimeContext)),
		))
	defer span.End()

	state := payment.StateIdle
	started := time.Now()
	l.metrics.ActiveAttempts.Inc()
	defer l.metrics.ActiveAttempts.Dec()

	outcome := l.run(ctx, req, &state)

	l.metrics.AttemptsTotal.WithLabelValues(string(req.RuntimeContext), string(outcome.Kind)).Inc()
	l.metrics.AttemptDuration.WithLabelValues(string(req.RuntimeContext), string(outcome.Kind)).
		Observe(time.Since(started).Seconds())
	return outcome
}

func (l *Launcher) run(ctx context.Context, req LaunchRequest, state *payment.AttemptState) payment.Outcome {
	embedded := req.RuntimeContext == runtime.EmbeddedWebView
	redirect := req.RuntimeContext.RequiresRedirect()

	// Phase 1: provider script.
	if err := state.Transition(payment.StateScriptLoading); err != nil {
		return payment.Failed(err)
	}
	loadStart := time.Now()
	sdk, err := l.loader.EnsureLoaded(ctx, embedded)
	if err != nil {
		l.metrics.ScriptLoadsTotal.WithLabelValues("failure").Inc()
		return l.fail(state, "script_load", err)
	}
	l.metrics.ScriptLoadsTotal.WithLabelValues("success").Inc()
	l.metrics.ScriptLoadDuration.Observe(time.Since(loadStart).Seconds())

	// Phase 2: order. The response's amount is the charge; the request's was
	// only a hint.
	if err := state.Transition(payment.StateOrderCreating); err != nil {
		return payment.Failed(err)
	}
	order, err := l.orders.CreateOrder(ctx, req.Amount, req.BookingID, payment.NewReceipt(req.BookingID))
	if err != nil {
		return l.fail(state, "order_create", err)
	}

	// Phase 3: widget. In redirect transport the pending record must exist
	// before the user can leave the process, not after.
	if redirect {
		l.savePending(ctx, payment.NewPendingTransaction(order, l.cfg.CallbackURL))
	}

	if err := state.Transition(payment.StateWidgetOpen); err != nil {
		return payment.Failed(err)
	}
	event, err := l.openWidget(ctx, sdk, order, req, redirect)
	if err != nil {
		return l.fail(state, "widget_open", err)
	}

	switch event.kind {
	case payment.StateCancelled:
		// Dismissal is a non-event: no charge happened, nothing to keep.
		if err := state.Transition(payment.StateCancelled); err != nil {
			return payment.Failed(err)
		}
		l.clearPending(ctx, order.OrderID)
		l.logger.Info().Str("order_id", order.OrderID).Msg("widget dismissed by user")
		return payment.Cancelled()

	case payment.StateFailed:
		if err := state.Transition(payment.StateFailed); err != nil {
			return payment.Failed(err)
		}
		l.clearPending(ctx, order.OrderID)
		l.metrics.AttemptErrors.WithLabelValues("widget", "provider_failure").Inc()
		return payment.Failed(errors.PaymentFailed(event.reason))
	}

	// Phase 4: verification.
	if err := state.Transition(payment.StateVerifying); err != nil {
		return payment.Failed(err)
	}
	return l.verify(ctx, state, order, req, event.payload)
}

func (l *Launcher) openWidget(ctx context.Context, sdk widget.SDK, order *payment.Order, req LaunchRequest, redirect bool) (widgetEvent, error) {
	events := make(chan widgetEvent, 1)
	var once sync.Once
	deliver := func(e widgetEvent) {
		once.Do(func() { events <- e })
	}

	opts := widget.Options{
		OrderID:     order.OrderID,
		Amount:      order.Amount.Value,
		Currency:    order.Amount.Currency,
		Name:        l.cfg.DisplayName,
		Description: l.cfg.Description,
		Prefill:     req.Prefill,
		Theme:       widget.Theme{Color: l.cfg.ThemeColor},
		Retry:       widget.Retry{Enabled: l.cfg.ProviderRetryCount > 0, MaxCount: l.cfg.ProviderRetryCount},
		Methods:     l.cfg.PaymentMethods,
		TimeoutSec:  int(l.cfg.WidgetTimeout.Seconds()),
		Redirect:    redirect,
		OnCompletion: func(payload map[string]any) {
			deliver(widgetEvent{kind: payment.StateVerifying, payload: payload})
		},
		OnDismiss: func() {
			deliver(widgetEvent{kind: payment.StateCancelled})
		},
		OnFailure: func(reason string) {
			deliver(widgetEvent{kind: payment.StateFailed, reason: reason})
		},
	}
	if redirect {
		opts.CallbackURL = l.cfg.CallbackURL
	}

	if err := sdk.Open(opts); err != nil {
		return widgetEvent{}, errors.NewDomainError("widget_open_failed", "the payment window could not be opened", err)
	}

	// No client-side timer on the open widget: the wait is unbounded until
	// the user acts or the surrounding context is torn down. The provider's
	// own session timeout is passed through the options instead.
	select {
	case e := <-events:
		return e, nil
	case <-ctx.Done():
		// A redirect flow may still complete after teardown; the pending
		// record stays for recovery.
		return widgetEvent{}, ctx.Err()
	}
}

func (l *Launcher) verify(ctx context.Context, state *payment.AttemptState, order *payment.Order, req LaunchRequest, payload map[string]any) payment.Outcome {
	comp := payment.ParseCompletion(payload)
	if comp.OrderID == "" {
		comp.OrderID = order.OrderID
	}

	source := "web"
	if req.RuntimeContext == runtime.EmbeddedWebView {
		source = "embedded"
	}

	tx, err := l.verifier.Verify(ctx, backend.VerifyParams{
		OrderID:   comp.OrderID,
		PaymentID: comp.PaymentID,
		Signature: comp.Signature,
		BookingID: order.BookingID,
		Source:    source,
	})
	if err != nil {
		// The provider reported a completion, so the charge may exist even
		// though verification failed; the pending record survives for the
		// recovery pass.
		st := *state
		if terr := state.Transition(payment.StateFailed); terr != nil {
			return payment.Failed(terr)
		}
		l.metrics.AttemptErrors.WithLabelValues("verify", errorType(err)).Inc()
		l.logger.Error().Err(err).
			Str("order_id", comp.OrderID).
			Str("state", string(st)).
			Msg("verification failed; pending record retained")
		return payment.Failed(err)
	}

	if err := state.Transition(payment.StateSucceeded); err != nil {
		return payment.Failed(err)
	}
	l.clearPending(ctx, order.OrderID)
	l.logger.Info().
		Str("order_id", tx.OrderID).
		Str("payment_id", tx.PaymentID).
		Str("booking_id", order.BookingID).
		Msg("checkout attempt succeeded")
	return payment.Succeeded(tx)
}

func (l *Launcher) fail(state *payment.AttemptState, phase string, err error) payment.Outcome {
	if terr := state.Transition(payment.StateFailed); terr != nil {
		return payment.Failed(terr)
	}
	l.metrics.AttemptErrors.WithLabelValues(phase, errorType(err)).Inc()
	l.logger.Error().Err(err).Str("phase", phase).Msg("checkout attempt failed")
	return payment.Failed(err)
}

// savePending is best-effort: losing the record degrades recovery, it must
// not block the payment.
func (l *Launcher) savePending(ctx context.Context, tx *payment.PendingTransaction) {
	if l.store == nil {
		return
	}
	if err := l.store.Save(ctx, tx); err != nil {
		l.metrics.PendingWritesTotal.WithLabelValues("save", "failure").Inc()
		l.logger.Warn().Err(err).Str("order_id", tx.OrderID).Msg("could not persist pending record")
		return
	}
	l.metrics.PendingWritesTotal.WithLabelValues("save", "success").Inc()
}

func (l *Launcher) clearPending(ctx context.Context, orderID string) {
	if l.store == nil {
		return
	}
	if err := l.store.Clear(ctx, orderID); err != nil {
		l.metrics.PendingWritesTotal.WithLabelValues("clear", "failure").Inc()
		l.logger.Warn().Err(err).Str("order_id", orderID).Msg("could not clear pending record")
		return
	}
	l.metrics.PendingWritesTotal.WithLabelValues("clear", "success").Inc()
}

func errorType(err error) string {
	var de *errors.DomainError
	if stderrors.As(err, &de) {
		return de.Code
	}
	return "internal"
}
