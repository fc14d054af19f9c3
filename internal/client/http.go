package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/AlexZinkM/custody-bot/internal/metrics"

	"golang.org/x/time/rate"
)

const defaultTimeout = 15 * time.Second

// ErrMalformedPayload is returned when a provider answered 200 with unusable data
var ErrMalformedPayload = errors.New("malformed provider payload")

// Options configures an upstream HTTP client
type Options struct {
	BaseURL string
	Timeout time.Duration // per request, defaults to 15s
	RPS     float64       // outbound requests per second, <= 0 disables throttling
	HTTP    *http.Client  // optional, for tests
}

// httpClient is the shared GET+JSON transport of every price provider
type httpClient struct {
	name    string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

func newHTTPClient(name, defaultBaseURL string, opts Options) *httpClient {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	hc := opts.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), int(math.Max(1, math.Ceil(opts.RPS))))
	}

	return &httpClient{
		name:    name,
		baseURL: baseURL,
		client:  hc,
		limiter: limiter,
	}
}

// getJSON GETs baseURL+path and decodes a 200 response into out
func (c *httpClient) getJSON(ctx context.Context, method, path string, out any) (err error) {
	metrics.ProviderRequestsTotal.WithLabelValues(c.name, method).Inc()
	start := time.Now()
	defer func() {
		metrics.ProviderLatency.WithLabelValues(c.name, method).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.ProviderErrorsTotal.WithLabelValues(c.name, method).Inc()
		}
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: throttled: %w", c.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", c.name, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: failed to get %s: %w", c.name, method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s: failed to get %s: status %d", c.name, method, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: failed to decode %s: %w", c.name, method, err)
	}
	return nil
}

// validPrice rejects zero, negative and non-finite prices
func validPrice(provider string, p float64) (float64, error) {
	if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
		return 0, fmt.Errorf("%s: %w: price %v", provider, ErrMalformedPayload, p)
	}
	return p, nil
}
