package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/dmos82/goldkey-chat-app-sub000/internal/contextutil"
)

const defaultRetryInterval = 200 * time.Millisecond

// Options configures retries, throttling and timeouts for a gateway client.
type Options struct {
	// MaxRetries bounds the number of retries after the first attempt.
	MaxRetries int
	// RetryInterval is the first backoff delay. Defaults to 200ms.
	RetryInterval time.Duration
	// Timeout applies to each HTTP attempt. Zero means no timeout.
	Timeout time.Duration
	// Limiter throttles outgoing requests. It may be shared between clients; nil disables throttling.
	Limiter *rate.Limiter
	// HTTPClient overrides the underlying client.
	HTTPClient *http.Client
}

// NewLimiter returns a token bucket allowing rps requests per second, or nil when rps <= 0.
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// gateway posts JSON to an OpenAI-compatible endpoint with throttling and bounded retries.
type gateway struct {
	apiKey        string
	client        *http.Client
	limiter       *rate.Limiter
	maxRetries    int
	retryInterval time.Duration
}

func newGateway(apiKey string, opts Options) gateway {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	interval := opts.RetryInterval
	if interval <= 0 {
		interval = defaultRetryInterval
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return gateway{
		apiKey:        apiKey,
		client:        client,
		limiter:       opts.Limiter,
		maxRetries:    maxRetries,
		retryInterval: interval,
	}
}

// postJSON sends payload to url and decodes the 2xx response body into out.
// Transient failures are retried with exponential backoff.
func (g gateway) postJSON(ctx context.Context, url string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	logger := contextutil.LoggerFromContext(ctx)

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = g.retryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(g.maxRetries)), ctx)

	attempt := 0
	operation := func() error {
		attempt++
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(fmt.Errorf("rate limiter: %w", err))
			}
		}
		err := g.do(ctx, http.MethodPost, url, body, out)
		if err != nil && !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		logger.WarnContext(ctx, "gateway request failed, retrying",
			"url", url,
			"attempt", attempt,
			"backoff", wait,
			"error", err,
		)
	}

	return backoff.RetryNotify(operation, policy, notify)
}

// getJSON performs a single GET and decodes the response into out. It is not retried.
func (g gateway) getJSON(ctx context.Context, url string, out any) error {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}
	return g.do(ctx, http.MethodGet, url, nil, out)
}

func (g gateway) do(ctx context.Context, method, url string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return &permanentError{err: fmt.Errorf("failed to create request: %w", err)}
	}
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &permanentError{err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}
