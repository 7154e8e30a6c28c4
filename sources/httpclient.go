// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package sources

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/poiesic/wayfarer/retry"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 5 * time.Second
	DefaultUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	maxBodyBytes = 16 << 20
)

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// HTTPClient is the transport shared by adapters.
// Requests are paced, retried on transport errors and 5xx, and bounded by a
// per-attempt timeout. It is safe for concurrent use.
type HTTPClient struct {
	client     *http.Client
	userAgent  string
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
	pacer      *rate.Limiter
	logger     *slog.Logger
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient) error

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPClient) error {
		if c == nil {
			return fmt.Errorf("%w: nil http client", ErrInvalidOption)
		}
		h.client = c
		return nil
	}
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(ua string) HTTPOption {
	return func(h *HTTPClient) error {
		h.userAgent = ua
		return nil
	}
}

// WithTimeout bounds each attempt.
func WithTimeout(d time.Duration) HTTPOption {
	return func(h *HTTPClient) error {
		if d <= 0 {
			return fmt.Errorf("%w: timeout %s", ErrInvalidOption, d)
		}
		h.timeout = d
		return nil
	}
}

// WithRetry sets the attempt budget and base backoff delay.
func WithRetry(maxAttempts int, baseDelay time.Duration) HTTPOption {
	return func(h *HTTPClient) error {
		if maxAttempts <= 0 {
			return fmt.Errorf("%w: max retries %d", ErrInvalidOption, maxAttempts)
		}
		h.maxRetries = maxAttempts
		h.retryDelay = baseDelay
		return nil
	}
}

// WithPacing spaces consecutive requests at least interval apart.
// A zero interval disables pacing.
func WithPacing(interval time.Duration) HTTPOption {
	return func(h *HTTPClient) error {
		if interval <= 0 {
			h.pacer = rate.NewLimiter(rate.Inf, 1)
			return nil
		}
		h.pacer = rate.NewLimiter(rate.Every(interval), 1)
		return nil
	}
}

// WithHTTPLogger sets the logger for the client.
// If not provided, slog.Default() will be used.
func WithHTTPLogger(logger *slog.Logger) HTTPOption {
	return func(h *HTTPClient) error {
		h.logger = logger
		return nil
	}
}

// NewHTTPClient creates an HTTPClient with the given options.
func NewHTTPClient(opts ...HTTPOption) (*HTTPClient, error) {
	h := &HTTPClient{
		client:     &http.Client{},
		userAgent:  DefaultUserAgent,
		timeout:    DefaultTimeout,
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		pacer:      rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, err
		}
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	h.logger = h.logger.With("component", "http")
	return h, nil
}

// Fetch performs a request and reads the whole body.
// Non-2xx statuses are returned as ErrUnexpectedStatus; only 5xx are retried.
func (h *HTTPClient) Fetch(ctx context.Context, method, url string, header http.Header, body []byte) (*Response, error) {
	var resp *Response
	err := retry.WithBackoff(ctx, func() error {
		r, err := h.attempt(ctx, method, url, header, body)
		if err != nil {
			return err
		}
		if r.StatusCode < 200 || r.StatusCode > 299 {
			statusErr := fmt.Errorf("%w: %s %s returned %d", ErrUnexpectedStatus, method, url, r.StatusCode)
			if r.StatusCode < 500 {
				return retry.Permanent(statusErr)
			}
			return statusErr
		}
		resp = r
		return nil
	}, h.maxRetries, h.retryDelay)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (h *HTTPClient) attempt(ctx context.Context, method, url string, header http.Header, body []byte) (*Response, error) {
	if err := h.pacer.Wait(ctx); err != nil {
		return nil, retry.Permanent(err)
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, retry.Permanent(err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", h.userAgent)

	h.logger.Debug("http request", "method", method, "url", url)
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// Get fetches url and returns its body.
func (h *HTTPClient) Get(ctx context.Context, url string, header http.Header) ([]byte, error) {
	resp, err := h.Fetch(ctx, http.MethodGet, url, header, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// GetJSON fetches url and decodes the JSON body into out.
func (h *HTTPClient) GetJSON(ctx context.Context, url string, header http.Header, out any) error {
	body, err := h.Get(ctx, url, header)
	if err != nil {
		return err
	}
	return DecodeJSON(body, out)
}

// DecodeJSON decodes data into out, wrapping failures in ErrDecode.
func DecodeJSON(data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return nil
}
