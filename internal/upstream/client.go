// Package upstream is the typed client for the inference backend. The
// backend is a black box: this package owns request shaping, error mapping
// and the one-shot refresh-and-retry cycle on rejected access tokens.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oculab/glaucoma-dashboard/internal/metrics"
	"github.com/oculab/glaucoma-dashboard/internal/observability/logger"
)

// TokenSource supplies bearer credentials and recovers from rejected ones.
// Implemented by the session Manager.
type TokenSource interface {
	AccessToken() string
	// Reauthorize is invoked after the backend rejects a token. It returns a
	// replacement credential or fails the call for good.
	Reauthorize(ctx context.Context, rejected string) (string, error)
}

// Config configures the client.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Client talks to the backend API.
type Client struct {
	base      string
	userAgent string
	http      *http.Client
}

// New creates a backend client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "glaucoma-dashboard"
	}
	return &Client{
		base:      strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: ua,
		http:      &http.Client{Timeout: timeout},
	}
}

type request struct {
	op     string
	method string
	path   string
	query  url.Values
	// Exactly one of json/form is set for bodied requests.
	json any
	form url.Values
}

// call performs a request. With a TokenSource attached, a 401 triggers
// exactly one Reauthorize and one retry; the retried call's outcome is what
// the caller observes. Without one, the status maps straight to an error.
func (c *Client) call(ctx context.Context, ts TokenSource, req request, out any) error {
	token := ""
	if ts != nil {
		token = ts.AccessToken()
	}

	err := c.doOnce(ctx, req, token, out)
	if ts == nil || !IsUnauthorized(err) {
		c.observe(req.op, err)
		return err
	}

	// One refresh, one retry. If reauthorization fails, the original 401 is
	// surfaced — the session layer has already transitioned.
	fresh, rerr := ts.Reauthorize(ctx, token)
	if rerr != nil {
		logger.From(ctx).Debug("reauthorize failed, surfacing original error",
			logger.Component("upstream"), logger.Op(req.op), logger.Err(rerr))
		c.observe(req.op, err)
		return err
	}
	err = c.doOnce(ctx, req, fresh, out)
	c.observe(req.op, err)
	return err
}

func (c *Client) observe(op string, err error) {
	outcome := "ok"
	switch err.(type) {
	case nil:
	case *NetworkError:
		outcome = "network_error"
	default:
		outcome = "api_error"
	}
	metrics.UpstreamRequests.WithLabelValues(op, outcome).Inc()
}

func (c *Client) doOnce(ctx context.Context, req request, token string, out any) error {
	u := c.base + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case req.form != nil:
		body = strings.NewReader(req.form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case req.json != nil:
		b, err := json.Marshal(req.json)
		if err != nil {
			return &NetworkError{Op: req.op, Err: err}
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, body)
	if err != nil {
		return &NetworkError{Op: req.op, Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Correlation-ID", uuid.NewString())
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return &NetworkError{Op: req.op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &NetworkError{Op: req.op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiErrorFrom(resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &APIError{Status: resp.StatusCode, Code: "bad_payload", Detail: err.Error()}
	}
	return nil
}

// apiErrorFrom maps an error body to an APIError. The backend reports
// failures as {"detail": "..."} (optionally {"code": ...}); anything else
// degrades to the raw status.
func apiErrorFrom(status int, raw []byte) *APIError {
	var payload struct {
		Detail string `json:"detail"`
		Code   string `json:"code"`
	}
	_ = json.Unmarshal(raw, &payload)
	code := payload.Code
	if code == "" {
		code = http.StatusText(status)
	}
	return &APIError{Status: status, Code: code, Detail: payload.Detail}
}
