package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rentflow/checkout/internal/backend"
	"github.com/rentflow/checkout/internal/bootstrap"
	"github.com/rentflow/checkout/internal/checkout"
	domainErrors "github.com/rentflow/checkout/internal/domain/errors"
	"github.com/rentflow/checkout/internal/domain/payment"
	"github.com/rentflow/checkout/internal/runtime"
	"github.com/rentflow/checkout/internal/widget"
)

// simEnvironment drives the runtime detector from flags instead of a real
// host surface.
type simEnvironment struct {
	userAgent string
	bridge    bool
	nested    bool
}

func (e simEnvironment) UserAgent() string   { return e.userAgent }
func (e simEnvironment) HasHostBridge() bool { return e.bridge }
func (e simEnvironment) IsNested() bool      { return e.nested }

func main() {
	var (
		bookingID string
		amount    int64
		outcome   string
		embedded  bool
		sweep     bool
	)
	flag.StringVar(&bookingID, "booking", "bkg_demo", "Booking to pay for")
	flag.Int64Var(&amount, "amount", 125000, "Amount in minor currency units")
	flag.StringVar(&outcome, "outcome", "complete", "Simulated user action: complete, dismiss or fail")
	flag.BoolVar(&embedded, "embedded", false, "Simulate an embedded webview host")
	flag.BoolVar(&sweep, "sweep", false, "Run a pending-payment recovery sweep after the attempt")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := bootstrap.New(ctx, "checkout-demo", "checkout")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	simOpts := []widget.SimOption{}
	switch outcome {
	case "dismiss":
		simOpts = append(simOpts, widget.WithOutcome(widget.SimDismiss))
	case "fail":
		simOpts = append(simOpts, widget.WithOutcome(widget.SimFail))
	}
	if embedded {
		simOpts = append(simOpts, widget.WithEmbeddedPayload())
	}
	sim := widget.NewSimulator(app.Config.Server.KeySecret, simOpts...)

	env := simEnvironment{userAgent: "Mozilla/5.0 (X11; Linux x86_64)"}
	if embedded {
		env.bridge = true
	}

	orders := backend.NewOrderClient(app.Config.Backend, app.Logger).WithMetrics(app.Metrics)
	verifier := backend.NewVerificationClient(app.Config.Backend, app.Logger).WithMetrics(app.Metrics)
	loader := widget.NewLoader(sim, app.Config.Loader, app.Logger)
	launcher := checkout.NewLauncher(loader, orders, verifier, app.Store, app.Config.Checkout, app.Metrics, app.Logger)
	orch := checkout.NewOrchestrator(runtime.NewDetector(env), launcher, app.Config.Checkout, app.Logger)

	result := orch.Run(ctx, checkout.Params{
		BookingID: bookingID,
		Amount:    amount,
		OnSuccess: func(tx *payment.VerifiedTransaction) {
			app.Logger.Info().
				Str("transaction_id", tx.TransactionID).
				Str("payment_id", tx.PaymentID).
				Msg("Payment confirmed")
		},
		OnError: func(err error) {
			app.Logger.Error().Err(err).Str("user_message", domainErrors.UserMessage(err)).Msg("Payment failed")
		},
	})

	fmt.Printf("attempt outcome: %s\n", result.Kind)

	if sweep {
		rec := checkout.NewRecoverer(app.Store, orders, verifier, 0, app.Logger)
		res, err := rec.Sweep(ctx)
		if err != nil {
			app.Logger.Error().Err(err).Msg("Recovery sweep failed")
			os.Exit(1)
		}
		fmt.Printf("sweep: recovered=%d expired=%d retained=%d\n", res.Recovered, res.Expired, res.Retained)
	}

	if result.Kind == payment.OutcomeFailed {
		os.Exit(1)
	}
}
