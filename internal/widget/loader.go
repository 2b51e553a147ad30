package widget

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/rentflow/checkout/internal/config"
	"github.com/rentflow/checkout/internal/domain/errors"
	"github.com/rentflow/checkout/pkg/retry"
)

// Loader makes the provider SDK available exactly once per process. Concurrent
// callers during an in-flight load await the same result; a second script is
// never injected.
type Loader struct {
	doc    Document
	cfg    config.LoaderConfig
	logger zerolog.Logger
	group  singleflight.Group
}

func NewLoader(doc Document, cfg config.LoaderConfig, logger zerolog.Logger) *Loader {
	return &Loader{
		doc:    doc,
		cfg:    cfg,
		logger: logger.With().Str("component", "widget_loader").Logger(),
	}
}

// EnsureLoaded returns the provider SDK, injecting the script if needed.
// The embedded flag selects the longer load timeout for embedded runtimes.
func (l *Loader) EnsureLoaded(ctx context.Context, embedded bool) (SDK, error) {
	// Idempotent fast path: SDK already present, nothing to inject.
	if sdk, ok := l.doc.SDK(); ok {
		return sdk, nil
	}

	v, err, shared := l.group.Do("provider-sdk", func() (any, error) {
		return l.load(ctx, embedded)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		l.logger.Debug().Msg("joined in-flight script load")
	}
	return v.(SDK), nil
}

func (l *Loader) load(ctx context.Context, embedded bool) (SDK, error) {
	// Re-check inside the flight: a previous load may have finished between
	// the fast path and Do.
	if sdk, ok := l.doc.SDK(); ok {
		return sdk, nil
	}

	var mount Mount
	for _, m := range l.doc.Mounts() {
		if m != nil {
			mount = m
			break
		}
	}
	if mount == nil {
		return nil, errors.ErrNoInjectionPoint
	}

	started := time.Now()
	script, err := mount.Attach(ctx, l.cfg.ScriptURL)
	if err != nil {
		return nil, errors.NewDomainError("script_attach_failed", "could not inject payment script", err)
	}

	timeout := l.cfg.ScriptTimeout(embedded)
	select {
	case loadErr := <-script.Done():
		if loadErr != nil {
			script.Remove()
			l.logger.Error().Err(loadErr).Msg("payment script failed to load")
			return nil, errors.NewDomainError("script_load_failed", "payment script failed to load", loadErr)
		}
	case <-time.After(timeout):
		script.Remove()
		l.logger.Error().Dur("timeout", timeout).Bool("embedded", embedded).Msg("payment script load timed out")
		return nil, fmt.Errorf("%w after %s", errors.ErrScriptLoadTimeout, timeout)
	case <-ctx.Done():
		script.Remove()
		return nil, ctx.Err()
	}

	// The script loaded but the SDK object can appear slightly later; poll
	// with bounded increasing intervals before giving up.
	sdk, err := retry.DoWithResult(ctx, retry.Config{
		MaxAttempts:  l.cfg.PollAttempts,
		InitialDelay: l.cfg.PollInitialDelay,
		MaxDelay:     l.cfg.PollMaxDelay,
	}, func() (SDK, error) {
		if sdk, ok := l.doc.SDK(); ok {
			return sdk, nil
		}
		return nil, errors.ErrSdkUnavailableAfterLoad
	})
	if err != nil {
		l.logger.Error().Err(err).Msg("sdk object never appeared after script load")
		return nil, err
	}

	l.logger.Info().Dur("elapsed", time.Since(started)).Msg("payment sdk loaded")
	return sdk, nil
}
