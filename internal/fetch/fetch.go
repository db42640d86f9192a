// Package fetch performs bounded-retry HTTP calls against third-party JSON APIs.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonathan/api-harvester/internal/types"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "api-harvester/1.0"

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 10 * 1024 * 1024

// Error represents a single failed request against an endpoint.
type Error struct {
	Endpoint   string
	URL        string
	StatusCode int
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.Endpoint, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.Endpoint, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Options configures the HTTP behavior.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Headers   map[string]string
	// Transport replaces http.DefaultTransport when set.
	Transport http.RoundTripper
}

// DefaultOptions returns sensible defaults for fetching.
func DefaultOptions() *Options {
	return &Options{
		Timeout:   DefaultTimeout,
		UserAgent: DefaultUserAgent,
	}
}

// Requester issues one request for a subject against an endpoint and returns
// the decoded JSON payload.
type Requester interface {
	Request(ctx context.Context, subject types.Subject, endpoint types.Endpoint) (any, error)
}

// HTTPRequester builds requests from the endpoint URL template.
type HTTPRequester struct {
	client  *http.Client
	options *Options
}

// NewHTTPRequester creates a requester whose client enforces opts.Timeout.
func NewHTTPRequester(opts *Options) *HTTPRequester {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	return &HTTPRequester{
		client:  &http.Client{Timeout: opts.Timeout, Transport: opts.Transport},
		options: opts,
	}
}

// BuildURL renders the request URL for subject.
//
// Templates with a {subject} placeholder get the escaped subject substituted.
// Otherwise ParamPath appends the raw subject to the template and ParamQuery
// adds key, cx and q query parameters.
func BuildURL(endpoint types.Endpoint, subject types.Subject) (string, error) {
	value := endpoint.SubjectPrefix + subject

	if endpoint.HasPlaceholder() {
		raw := strings.ReplaceAll(endpoint.URLTemplate, types.SubjectPlaceholder, url.QueryEscape(value))
		if endpoint.Style == types.ParamQuery {
			return withAuthQuery(raw, endpoint, "")
		}
		return raw, nil
	}

	switch endpoint.Style {
	case types.ParamPath:
		return endpoint.URLTemplate + value, nil
	case types.ParamQuery:
		return withAuthQuery(endpoint.URLTemplate, endpoint, value)
	default:
		return "", fmt.Errorf("unsupported parameter style %q", endpoint.Style)
	}
}

func withAuthQuery(raw string, endpoint types.Endpoint, query string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid URL template: %w", err)
	}
	q := u.Query()
	if endpoint.Key != "" {
		q.Set("key", endpoint.Key)
	}
	if endpoint.Secret != "" {
		q.Set("cx", endpoint.Secret)
	}
	if query != "" {
		q.Set("q", query)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Request performs a GET and decodes the JSON response.
func (r *HTTPRequester) Request(ctx context.Context, subject types.Subject, endpoint types.Endpoint) (any, error) {
	target, err := BuildURL(endpoint, subject)
	if err != nil {
		return nil, &Error{Endpoint: endpoint.Name, Message: "failed to build URL", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &Error{Endpoint: endpoint.Name, URL: target, Message: "failed to create request", Cause: err}
	}

	req.Header.Set("User-Agent", r.options.UserAgent)
	req.Header.Set("Accept", "application/json")
	if endpoint.Style == types.ParamPath && endpoint.Key != "" {
		req.Header.Set("X-Api-Key", endpoint.Key)
	}
	for key, value := range r.options.Headers {
		req.Header.Set(key, value)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &Error{Endpoint: endpoint.Name, URL: target, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &Error{Endpoint: endpoint.Name, URL: target, StatusCode: resp.StatusCode, Message: "failed to read response body", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{
			Endpoint:   endpoint.Name,
			URL:        target,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("API Error: %d - %s", resp.StatusCode, truncate(string(body), 200)),
		}
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &Error{Endpoint: endpoint.Name, URL: target, StatusCode: resp.StatusCode, Message: "invalid JSON response", Cause: err}
	}
	return payload, nil
}

// Augment adds endpoint identification fields to an object payload.
// Non-object payloads are returned unchanged.
func Augment(payload any, endpoint types.Endpoint) any {
	obj, ok := payload.(map[string]any)
	if !ok {
		return payload
	}
	obj["Original_API_Name"] = endpoint.Name
	obj["API_Description"] = endpoint.Description
	obj["AddAPI_URL"] = endpoint.URLTemplate
	return obj
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
