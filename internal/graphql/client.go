package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/pvzzle/taptracker/internal/logger"
	"github.com/pvzzle/taptracker/internal/metrics"
)

const (
	DefaultTimeout = 8 * time.Second

	maxResponseBytes = 16 << 20
	maxErrorExcerpt  = 512
)

type Config struct {
	Endpoint string
	Timeout  time.Duration

	// RPS <= 0 disables client-side rate limiting.
	RPS   float64
	Burst int

	// Transport is wrapped with response-code accounting; nil means http.DefaultTransport.
	Transport http.RoundTripper
}

// Client posts queries to a single GraphQL endpoint. It never retries.
type Client struct {
	endpoint   string
	timeout    time.Duration
	limiter    *rate.Limiter
	httpClient *http.Client
	log        *slog.Logger
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func NewClient(cfg Config, log *slog.Logger) *Client {
	if cfg.Endpoint == "" {
		panic("graphql endpoint not configured")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	c := &Client{
		endpoint: cfg.Endpoint,
		timeout:  cfg.Timeout,
		httpClient: &http.Client{
			Transport: &metricsTransport{base: cfg.Transport},
		},
		log: logger.Component(log, "graphql"),
	}
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	return c
}

// Execute runs query with variables and decodes the response's data into out
// (skipped when out is nil). Failures are always *UpstreamError.
func (c *Client) Execute(ctx context.Context, query string, variables map[string]any, out any) error {
	start := time.Now()
	err := c.execute(ctx, query, variables, out)
	elapsed := time.Since(start)

	metrics.GraphQLRequests.WithLabelValues(outcome(err)).Inc()
	metrics.GraphQLLatency.Observe(elapsed.Seconds())
	c.log.Debug("graphql request completed", "elapsed", elapsed, "outcome", outcome(err))
	return err
}

func (c *Client) execute(ctx context.Context, query string, variables map[string]any, out any) error {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(callCtx); err != nil {
			if timedOut(ctx, callCtx) {
				return c.timeoutError(err)
			}
			return &UpstreamError{Kind: KindRateLimited, Err: err}
		}
	}

	body, err := json.Marshal(request{Query: query, Variables: variables})
	if err != nil {
		return &UpstreamError{Kind: KindDecode, Message: "encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return &UpstreamError{Kind: KindTransport, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if timedOut(ctx, callCtx) {
			return c.timeoutError(err)
		}
		return &UpstreamError{Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if timedOut(ctx, callCtx) {
			return c.timeoutError(err)
		}
		return &UpstreamError{Kind: KindTransport, Message: "read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &UpstreamError{
			Kind:    KindStatus,
			Message: fmt.Sprintf("status %d: %s", resp.StatusCode, excerpt(raw)),
		}
	}

	var envelope response
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return &UpstreamError{Kind: KindDecode, Message: "decode response", Err: err}
	}
	if len(envelope.Errors) > 0 {
		return &UpstreamError{Kind: KindGraphQL, Message: envelope.Errors[0].Message}
	}

	if out == nil || len(envelope.Data) == 0 || bytes.Equal(envelope.Data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return &UpstreamError{Kind: KindDecode, Message: "decode data", Err: err}
	}
	return nil
}

func (c *Client) timeoutError(err error) *UpstreamError {
	return &UpstreamError{
		Kind:    KindTimeout,
		Message: fmt.Sprintf("no response within %s", c.timeout),
		Err:     err,
	}
}

// timedOut reports whether the per-call deadline fired while the caller's context is still live.
func timedOut(parent, call context.Context) bool {
	return parent.Err() == nil && errors.Is(call.Err(), context.DeadlineExceeded)
}

func excerpt(raw []byte) string {
	if len(raw) > maxErrorExcerpt {
		cut := maxErrorExcerpt
		for cut > 0 && !utf8.RuneStart(raw[cut]) {
			cut--
		}
		return string(raw[:cut]) + "…"
	}
	return string(raw)
}
