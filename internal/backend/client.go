package backend

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/rentflow/checkout/internal/config"
	"github.com/rentflow/checkout/internal/domain/errors"
	"github.com/rentflow/checkout/internal/observability"
)

// errRequestTimeout marks a request that ran out of time waiting for the
// backend. Callers map it to their phase-appropriate error: order creation
// treats it as no-response, verification as its own ambiguous timeout.
var errRequestTimeout = stderrors.New("backend request timed out")

// envelope is the backend's uniform response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// Client is the breaker-wrapped HTTP transport shared by the order and
// verification clients.
type Client struct {
	name       string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[json.RawMessage]
	logger     zerolog.Logger
	metrics    *observability.Metrics
}

func NewClient(name string, cfg config.BackendConfig, logger zerolog.Logger) *Client {
	log := logger.With().Str("component", name).Logger()
	return &Client{
		name:       name,
		httpClient: &http.Client{},
		logger:     log,
		breaker: gobreaker.NewCircuitBreaker[json.RawMessage](gobreaker.Settings{
			Name:        name,
			MaxRequests: cfg.BreakerMaxRequests,
			Interval:    cfg.BreakerInterval,
			Timeout:     cfg.BreakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 10 && failureRatio >= 0.6
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn().
					Str("breaker", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("circuit breaker state change")
			},
		}),
	}
}

// setMetrics enables per-request counters and durations.
func (c *Client) setMetrics(m *observability.Metrics) {
	c.metrics = m
}

func (c *Client) instrument(start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	c.metrics.BackendRequestsTotal.WithLabelValues(c.name, result).Inc()
	c.metrics.BackendRequestDuration.WithLabelValues(c.name).Observe(time.Since(start).Seconds())
}

// postJSON sends the request through the circuit breaker and returns the
// envelope's data payload.
func (c *Client) postJSON(ctx context.Context, url string, body any, timeout time.Duration) (json.RawMessage, error) {
	start := time.Now()
	data, err := c.breaker.Execute(func() (json.RawMessage, error) {
		return c.doPost(ctx, url, body, timeout)
	})
	c.instrument(start, err)
	if err != nil {
		if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, errors.NewDomainError("circuit_open", "payment service temporarily unavailable", errors.ErrNetworkUnavailable)
		}
		return nil, err
	}
	return data, nil
}

// getJSON is postJSON's read-only counterpart.
func (c *Client) getJSON(ctx context.Context, url string, timeout time.Duration) (json.RawMessage, error) {
	start := time.Now()
	data, err := c.breaker.Execute(func() (json.RawMessage, error) {
		return c.do(ctx, http.MethodGet, url, nil, timeout)
	})
	c.instrument(start, err)
	if err != nil {
		if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, errors.NewDomainError("circuit_open", "payment service temporarily unavailable", errors.ErrNetworkUnavailable)
		}
		return nil, err
	}
	return data, nil
}

func (c *Client) doPost(ctx context.Context, url string, body any, timeout time.Duration) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, url, payload, timeout)
}

func (c *Client) do(ctx context.Context, method, url string, payload []byte, timeout time.Duration) (json.RawMessage, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.mapTransportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrNetworkUnavailable, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.logger.Error().Int("status", resp.StatusCode).Msg("unparseable backend response")
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedResponse, err)
	}
	if !env.Success {
		// Surface the backend's own message verbatim.
		return nil, errors.ServerRejected(env.Message)
	}
	return env.Data, nil
}

// mapTransportError distinguishes "ran out of time" from "no route to the
// backend at all"; the caller decides what a timeout means for its phase.
func (c *Client) mapTransportError(err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", errRequestTimeout, err)
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", errRequestTimeout, err)
	}
	return fmt.Errorf("%w: %v", errors.ErrNetworkUnavailable, err)
}
