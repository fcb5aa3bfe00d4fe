// Package client talks to the medical and planning services over JSON/HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"alcyxob/training-service/internal/events"
)

// ErrUpstream is matched by every error from a collaborator service.
var ErrUpstream = errors.New("upstream service error")

// UpstreamError carries the status and body of a failed upstream call.
// StatusCode is zero when the request never got a response.
type UpstreamError struct {
	Service    string
	Method     string
	Path       string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s %s: %v", e.Service, e.Method, e.Path, e.Err)
	}
	msg := fmt.Sprintf("%s %s %s: status %d: %s", e.Service, e.Method, e.Path, e.StatusCode, e.Body)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UpstreamError) Unwrap() error { return ErrUpstream }

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.StatusCode == http.StatusNotFound
}

// Options configure a collaborator client.
type Options struct {
	BaseURL      string
	Timeout      time.Duration
	ServiceToken string
	HTTPClient   *http.Client // optional, for tests
}

type httpClient struct {
	service string
	baseURL string
	token   string
	http    *http.Client
}

func newHTTPClient(service string, opts Options) httpClient {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return httpClient{
		service: service,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		token:   opts.ServiceToken,
		http:    hc,
	}
}

// do sends body (when non-nil) as JSON and decodes a 2xx response into out (when non-nil).
func (c httpClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", c.service, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &UpstreamError{Service: c.service, Method: method, Path: path, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if id := events.CorrelationID(ctx); id != "" {
		req.Header.Set("X-Correlation-ID", id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &UpstreamError{Service: c.service, Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &UpstreamError{
			Service:    c.service,
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(msg)),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return &UpstreamError{Service: c.service, Method: method, Path: path, StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}
