// Package apiclient talks to the BATUTA backend REST API. It attaches the
// session's bearer token, turns error bodies into *APIError, and hands
// 401/403 answers to an auth-failure hook instead of retrying.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/batuta/dashboard/internal/api/metrics"
	"github.com/batuta/dashboard/internal/core/authctx"
	"github.com/batuta/dashboard/internal/core/domain"
)

const defaultTimeout = 15 * time.Second

// Endpoints that answer 401 for bad input rather than for a stale session.
var publicPaths = map[string]bool{
	"/api/auth/login":           true,
	"/api/auth/register":        true,
	"/api/auth/forgot-password": true,
	"/api/auth/reset-password":  true,
}

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	// TokenSource yields the bearer token for a call. Defaults to authctx.Token.
	TokenSource func(ctx context.Context) string
	// OnAuthFailure runs once per request answered with 401 or 403.
	OnAuthFailure func(ctx context.Context, status int)
	Logger        zerolog.Logger
}

type Client struct {
	baseURL       string
	http          *http.Client
	tokenSource   func(ctx context.Context) string
	onAuthFailure func(ctx context.Context, status int)
	log           zerolog.Logger
	timeout       time.Duration
	inflight      singleflight.Group
}

func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	ts := opts.TokenSource
	if ts == nil {
		ts = authctx.Token
	}
	return &Client{
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		http:          hc,
		tokenSource:   ts,
		onAuthFailure: opts.OnAuthFailure,
		log:           opts.Logger.With().Str("component", "apiclient").Logger(),
		timeout:       timeout,
	}
}

// APIError is a failed backend call. Message is what the user sees.
type APIError struct {
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Status)
}

func (e *APIError) Unwrap() error { return e.Err }

// Normalize gives err a user-facing message: the server's when it sent one,
// fallback otherwise. The original error stays reachable through Unwrap.
func Normalize(err error, fallback string) error {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr
		}
		return &APIError{Status: apiErr.Status, Message: fallback, Err: apiErr}
	}
	return &APIError{Message: fallback, Err: err}
}

// request carries per-call state through the pipeline.
type request struct {
	method  string
	path    string
	token   string
	body    []byte
	retried bool
}

type response struct {
	status int
	body   []byte
}

// Do sends method path with body as JSON and decodes the answer into out.
// Concurrent identical GETs made with the same token share one upstream call.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	req := &request{method: method, path: path, token: c.tokenSource(ctx)}
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		req.body = raw
	}

	var (
		resp *response
		err  error
	)
	if method == http.MethodGet {
		resp, err = c.shared(ctx, req)
	} else {
		resp, err = c.send(ctx, req)
	}
	if err != nil {
		return err
	}

	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return &APIError{Status: resp.status, Err: fmt.Errorf("decode %s %s: %w", method, path, err)}
	}
	return nil
}

// shared runs req once for every caller asking for the same GET. The upstream
// call is detached from any single caller and bounded by the client timeout;
// a caller whose ctx ends stops waiting without failing the others.
func (c *Client) shared(ctx context.Context, req *request) (*response, error) {
	ch := c.inflight.DoChan(req.method+" "+req.path+" "+req.token, func() (any, error) {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.send(sendCtx, req)
	})
	select {
	case <-ctx.Done():
		return nil, &APIError{Err: fmt.Errorf("%s %s: %w", req.method, req.path, ctx.Err())}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*response), nil
	}
}

func (c *Client) send(ctx context.Context, req *request) (*response, error) {
	var reader io.Reader
	if req.body != nil {
		reader = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", req.method, req.path, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}

	resource := resourceOf(req.path)
	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	metrics.UpstreamRequestDuration.WithLabelValues(resource, req.method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(resource, req.method, "error").Inc()
		c.log.Warn().Err(err).Str("method", req.method).Str("path", req.path).Msg("upstream request failed")
		return nil, &APIError{Err: fmt.Errorf("%s %s: %w", req.method, req.path, err)}
	}
	defer httpResp.Body.Close()
	metrics.UpstreamRequestsTotal.WithLabelValues(resource, req.method, strconv.Itoa(httpResp.StatusCode)).Inc()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &APIError{Status: httpResp.StatusCode, Err: fmt.Errorf("read %s %s: %w", req.method, req.path, err)}
	}

	status := httpResp.StatusCode
	if status >= 200 && status < 300 {
		return &response{status: status, body: raw}, nil
	}

	apiErr := &APIError{Status: status, Message: errorMessage(raw)}
	switch {
	case (status == http.StatusUnauthorized || status == http.StatusForbidden) && !publicPaths[req.path]:
		c.authFailed(ctx, req, status)
		apiErr.Err = domain.ErrAuthExpired
	case status == http.StatusNotFound:
		apiErr.Err = domain.ErrNotFound
	}
	c.log.Debug().Int("status", status).Str("method", req.method).Str("path", req.path).Msg("upstream error")
	return nil, apiErr
}

// authFailed hands the request to the hook once. The request is not replayed.
func (c *Client) authFailed(ctx context.Context, req *request, status int) {
	if req.retried {
		return
	}
	req.retried = true
	metrics.UpstreamAuthFailuresTotal.Inc()
	if c.onAuthFailure != nil {
		c.onAuthFailure(ctx, status)
	}
}

func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

// resourceOf returns the metric label for path: "/api/messages/1/read" -> "messages".
func resourceOf(path string) string {
	p := strings.TrimPrefix(path, "/api/")
	if i := strings.IndexAny(p, "/?"); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "root"
	}
	return p
}
