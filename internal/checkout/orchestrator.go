package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rentflow/checkout/internal/backend"
	"github.com/rentflow/checkout/internal/config"
	"github.com/rentflow/checkout/internal/domain/errors"
	"github.com/rentflow/checkout/internal/domain/payment"
	"github.com/rentflow/checkout/internal/pending"
	"github.com/rentflow/checkout/internal/runtime"
	"github.com/rentflow/checkout/internal/widget"
)

// Params is one payment request from the booking flow. Amount is a hint only;
// the backend's pricing snapshot decides what is charged.
type Params struct {
	BookingID       string `validate:"required"`
	Amount          int64  `validate:"gt=0"`
	Currency        string `validate:"omitempty,len=3"`
	CustomerName    string
	CustomerEmail   string `validate:"omitempty,email"`
	CustomerContact string

	// OnSuccess receives the verified transaction. OnError receives the
	// failure. Per attempt at most one of the two fires, and a user
	// dismissal fires neither.
	OnSuccess func(tx *payment.VerifiedTransaction)
	OnError   func(err error)
}

// Orchestrator is the single entry point the booking flow calls. It detects
// the runtime context, runs the launcher and routes the outcome to the
// caller's callbacks.
type Orchestrator struct {
	detector *runtime.Detector
	launcher *Launcher
	cfg      config.CheckoutConfig
	validate *validator.Validate
	logger   zerolog.Logger
	tracer   trace.Tracer
}

func NewOrchestrator(detector *runtime.Detector, launcher *Launcher, cfg config.CheckoutConfig, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		detector: detector,
		launcher: launcher,
		cfg:      cfg,
		validate: validator.New(),
		logger:   logger.With().Str("component", "payment_orchestrator").Logger(),
		tracer:   otel.Tracer("checkout"),
	}
}

// Run executes one payment attempt end to end and returns its outcome. The
// outcome mirrors the callbacks: success invoked OnSuccess, failure invoked
// OnError, cancellation invoked neither.
func (o *Orchestrator) Run(ctx context.Context, p Params) payment.Outcome {
	if err := o.checkParams(p); err != nil {
		o.logger.Warn().Err(err).Str("booking_id", p.BookingID).Msg("rejecting payment attempt")
		return o.deliver(p, payment.Failed(err))
	}

	rctx := o.detector.Detect()
	ctx, span := o.tracer.Start(ctx, "checkout.run",
		trace.WithAttributes(
			attribute.String("booking.id", p.BookingID),
			attribute.String("runtime.context", string(rctx)),
		))
	defer span.End()

	currency := p.Currency
	if currency == "" {
		currency = o.cfg.Currency
	}

	outcome := o.launcher.Launch(ctx, LaunchRequest{
		BookingID:      p.BookingID,
		Amount:         payment.Amount{Value: p.Amount, Currency: currency},
		RuntimeContext: rctx,
		Prefill: widget.Prefill{
			Name:    p.CustomerName,
			Email:   p.CustomerEmail,
			Contact: p.CustomerContact,
		},
	})
	span.SetAttributes(attribute.String("attempt.outcome", string(outcome.Kind)))
	return o.deliver(p, outcome)
}

// checkParams maps validation failures onto the domain's precondition errors.
func (o *Orchestrator) checkParams(p Params) error {
	if strings.TrimSpace(p.BookingID) == "" {
		return errors.ErrMissingBookingReference
	}
	if p.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", errors.ErrInvalidAmount)
	}
	if err := o.validate.Struct(p); err != nil {
		return errors.NewDomainError("invalid_params", "invalid payment parameters", err)
	}
	return nil
}

// deliver routes the outcome to the caller's callbacks, exactly once.
func (o *Orchestrator) deliver(p Params, outcome payment.Outcome) payment.Outcome {
	switch outcome.Kind {
	case payment.OutcomeSuccess:
		if p.OnSuccess != nil {
			p.OnSuccess(outcome.Details)
		}
	case payment.OutcomeFailed:
		if p.OnError != nil {
			p.OnError(outcome.Err)
		}
	case payment.OutcomeCancelled:
		// Dismissal is not reported as an error; the booking flow simply
		// stays where it was.
	}
	return outcome
}

// Resume verifies a completion that arrived out-of-band, typically the
// redirect callback of an attempt whose process died while the widget was
// open. The pending record provides the booking linkage the raw payload
// lacks.
func (o *Orchestrator) Resume(ctx context.Context, store pending.Store, raw map[string]any) payment.Outcome {
	rec, err := store.Load(ctx)
	if err != nil {
		return payment.Failed(err)
	}
	if rec == nil {
		return payment.Failed(errors.NewDomainError("no_pending_payment", "no pending payment to resume", nil))
	}

	comp := payment.ParseCompletion(raw)
	if comp.OrderID == "" {
		comp.OrderID = rec.OrderID
	}

	tx, err := o.launcher.verifier.Verify(ctx, backend.VerifyParams{
		OrderID:   comp.OrderID,
		PaymentID: comp.PaymentID,
		Signature: comp.Signature,
		BookingID: rec.BookingID,
		Source:    "redirect",
	})
	if err != nil {
		o.logger.Error().Err(err).Str("order_id", comp.OrderID).Msg("resumed verification failed; pending record retained")
		return payment.Failed(err)
	}

	o.launcher.clearPending(ctx, rec.OrderID)
	o.logger.Info().Str("order_id", tx.OrderID).Str("payment_id", tx.PaymentID).Msg("resumed payment verified")
	return payment.Succeeded(tx)
}
