package runtime

import "strings"

// Context classifies the execution environment of a checkout attempt. It is
// computed once per attempt and read-only afterwards; everything downstream
// consumes it as an opaque classification.
type Context string

const (
	Browser         Context = "browser"
	EmbeddedWebView Context = "embedded_webview"
	Iframe          Context = "iframe"
)

// RequiresRedirect reports whether the payment widget must use redirect
// transport (callback URL) instead of an in-page modal. Embedded hosts cannot
// reliably deliver modal callbacks across the app bridge, and nested frames
// are blocked from opening the modal at top level.
func (c Context) RequiresRedirect() bool {
	return c == EmbeddedWebView || c == Iframe
}

// Environment exposes the raw signals the detector classifies. Implementations
// wrap whatever host surface the orchestrator is embedded in.
type Environment interface {
	// UserAgent returns the host user-agent string, empty if unknown.
	UserAgent() string
	// HasHostBridge reports whether an embedding-host bridge object is present.
	HasHostBridge() bool
	// IsNested reports whether the page runs inside a parent frame.
	IsNested() bool
}

// User-agent markers used by embedding shells. The heuristics are fragile by
// nature, which is exactly why they live only here.
var webViewMarkers = []string{"wv)", "; wv", "webview", "rentflowapp"}

// Detector classifies an Environment into a Context.
type Detector struct {
	env Environment
}

func NewDetector(env Environment) *Detector {
	return &Detector{env: env}
}

// Detect returns the runtime context. It is pure, has no failure mode, and
// falls back to Browser when no embedding signal is found.
func (d *Detector) Detect() Context {
	if d == nil || d.env == nil {
		return Browser
	}
	if d.env.HasHostBridge() {
		return EmbeddedWebView
	}
	ua := strings.ToLower(d.env.UserAgent())
	for _, marker := range webViewMarkers {
		if strings.Contains(ua, marker) {
			return EmbeddedWebView
		}
	}
	if d.env.IsNested() {
		return Iframe
	}
	return Browser
}
