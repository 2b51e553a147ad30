package widget

import "context"

// Options is the provider widget configuration surface. It is consumed by the
// SDK, not defined by it; all prefill fields are optional and their absence
// must never prevent launch.
type Options struct {
	OrderID     string
	Amount      int64 // minor currency units
	Currency    string
	Name        string
	Description string
	Prefill     Prefill
	Theme       Theme
	Retry       Retry
	Methods     []string // enabled payment methods, provider defaults when empty
	TimeoutSec  int

	// Redirect transport: control leaves the current context and returns via
	// the callback URL. Set when the runtime context requires it.
	Redirect    bool
	CallbackURL string

	// OnCompletion receives the provider's raw completion payload. The shape
	// varies across contexts; callers normalize it before acting on it.
	OnCompletion func(payload map[string]any)
	// OnDismiss fires when the user closes the widget without paying.
	OnDismiss func()
	// OnFailure fires on a provider-reported payment failure, distinct from
	// dismissal.
	OnFailure func(reason string)
}

// Prefill carries optional contact fields shown pre-filled in the widget.
type Prefill struct {
	Name    string
	Email   string
	Contact string
}

type Theme struct {
	Color string
}

// Retry enables the provider's own bounded retry for transient failures
// during the payment attempt. This is a provider capability, not a client
// retry loop.
type Retry struct {
	Enabled  bool
	MaxCount int
}

// SDK is the provider checkout object exposed once the script has loaded.
type SDK interface {
	Open(opts Options) error
}

// Script is an injected provider script resource.
type Script interface {
	// Done resolves once with nil on load or an error on load failure.
	Done() <-chan error
	// Remove detaches the script node, used on load timeout.
	Remove()
}

// Mount is a point in the host document a script can be attached to.
type Mount interface {
	Attach(ctx context.Context, url string) (Script, error)
}

// Document abstracts the host page the orchestrator runs in.
type Document interface {
	// SDK returns the provider SDK object if it is already present.
	SDK() (SDK, bool)
	// Mounts returns candidate injection points in preference order
	// (head, body, document root). Nil entries are skipped.
	Mounts() []Mount
}
