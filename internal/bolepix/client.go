// Package bolepix looks up BolePIX payments on the provider API.
package bolepix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bemobi-ops/ops-console/internal/shared"
)

// DefaultTimeout bounds one provider call.
const DefaultTimeout = 30 * time.Second

const maxBody = 4 << 20

// Lookup identifies one payment on the provider.
type Lookup struct {
	CorrelationID string `json:"correlation_id" validate:"required"`
	ApplicationID string `json:"application_id" validate:"required"`
	WorkspaceID   string `json:"workspace_id" validate:"required"`
	CompanyID     string `json:"company_id" validate:"required"`
}

func (l Lookup) key() string {
	return strings.Join([]string{l.CorrelationID, l.ApplicationID, l.WorkspaceID, l.CompanyID}, "\x00")
}

// UpstreamObserver counts provider calls.
type UpstreamObserver interface {
	ObserveUpstream(provider string, err error)
}

// Client calls the payments API. Concurrent identical lookups share one
// request.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	group   singleflight.Group
	metrics UpstreamObserver
}

// NewClient constructs a Client for baseURL. metrics may be nil.
func NewClient(baseURL string, timeout time.Duration, metrics UpstreamObserver) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("bolepix: invalid base url %q", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: u.String(),
		http:    &http.Client{Timeout: timeout},
		timeout: timeout,
		metrics: metrics,
	}, nil
}

// Payment fetches the payment identified by l. The provider answer is
// returned as decoded JSON.
func (c *Client) Payment(ctx context.Context, l Lookup) (map[string]any, error) {
	ch := c.group.DoChan(l.key(), func() (any, error) {
		// The shared call must not die with the first caller's request.
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		payload, err := c.fetch(callCtx, l)
		if c.metrics != nil {
			c.metrics.ObserveUpstream("bolepix", err)
		}
		return payload, err
	})
	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &shared.UpstreamError{Op: "bolepix lookup", Kind: shared.ErrUpstreamTimeout, Err: ctx.Err()}
		}
		return nil, fmt.Errorf("bolepix lookup: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return cloneMap(res.Val.(map[string]any)), nil
	}
}

func (c *Client) fetch(ctx context.Context, l Lookup) (map[string]any, error) {
	endpoint := c.baseURL + "/v1/payments/" + url.PathEscape(l.CorrelationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("bolepix: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-application-id", l.ApplicationID)
	req.Header.Set("x-workspace-id", l.WorkspaceID)
	req.Header.Set("x-company-id", l.CompanyID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &shared.UpstreamError{Op: "bolepix lookup", Kind: transportKind(err), Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, &shared.UpstreamError{Op: "bolepix lookup", Kind: transportKind(err), Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("bolepix: correlation id %w", shared.ErrNotFound)
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, &shared.UpstreamError{
			Op:     "bolepix lookup",
			Kind:   shared.ErrUpstreamFailure,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("remote body: %.200s", body),
		}
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &shared.UpstreamError{Op: "bolepix decode", Kind: shared.ErrUpstreamFailure, Status: resp.StatusCode, Err: err}
	}
	if payload == nil {
		payload = map[string]any{}
	}
	return payload, nil
}

func transportKind(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return shared.ErrUpstreamTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return shared.ErrUpstreamTimeout
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) || errors.Is(err, syscall.ECONNREFUSED) {
		return shared.ErrUpstreamUnavailable
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return shared.ErrUpstreamUnavailable
	}
	return shared.ErrUpstreamFailure
}

// cloneMap copies the top level so callers sharing a result can redact
// independently.
func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
