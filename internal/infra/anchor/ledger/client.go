// Package ledger talks to the external anchor service over HTTP. Only
// fingerprints cross this boundary; payload bytes never do.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"seald/internal/domain"
	"seald/internal/infra/anchor"
)

type Client struct {
	baseURL string
	httpDo  func(*http.Request) (*http.Response, error)
}

const maxResponseBytes = 64 * 1024

func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("anchor base url is required")
	}
	doer := http.DefaultClient.Do
	if httpClient != nil {
		doer = httpClient.Do
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpDo:  doer,
	}, nil
}

func (c *Client) ProviderName() string {
	return "ledger"
}

func (c *Client) Submit(ctx context.Context, fingerprint string) (domain.AnchorRecord, error) {
	body, err := json.Marshal(submitRequest{Fingerprint: fingerprint})
	if err != nil {
		return domain.AnchorRecord{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/anchor", bytes.NewReader(body))
	if err != nil {
		return domain.AnchorRecord{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	respBody, err := c.do(ctx, req)
	if err != nil {
		return domain.AnchorRecord{}, err
	}

	var resp submitResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return domain.AnchorRecord{}, &anchor.ProviderError{Code: domain.AnchorErrorProviderError, Err: err}
	}
	if resp.AnchorRef == "" {
		return domain.AnchorRecord{}, &anchor.ProviderError{Code: domain.AnchorErrorProviderError, Err: errors.New("missing anchor_ref")}
	}
	return domain.AnchorRecord{
		Ref:         resp.AnchorRef,
		Fingerprint: fingerprint,
		Timestamp:   parseTime(resp.Timestamp),
		Status:      "anchored",
	}, nil
}

func (c *Client) Fetch(ctx context.Context, ref string) (domain.AnchorRecord, error) {
	if strings.TrimSpace(ref) == "" {
		return domain.AnchorRecord{}, domain.ErrNotFound
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/anchor/"+ref, nil)
	if err != nil {
		return domain.AnchorRecord{}, err
	}
	respBody, err := c.do(ctx, req)
	if err != nil {
		var perr *anchor.ProviderError
		if errors.As(err, &perr) && perr.Code == codeNotFound {
			return domain.AnchorRecord{}, domain.ErrNotFound
		}
		return domain.AnchorRecord{}, err
	}
	var resp fetchResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return domain.AnchorRecord{}, &anchor.ProviderError{Code: domain.AnchorErrorProviderError, Err: err}
	}
	return domain.AnchorRecord{
		Ref:         ref,
		Fingerprint: resp.Fingerprint,
		Timestamp:   parseTime(resp.Timestamp),
		Status:      resp.Status,
	}, nil
}

func (c *Client) Health(ctx context.Context) (domain.AnchorHealth, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return domain.AnchorDown, err
	}
	respBody, err := c.do(ctx, req)
	if err != nil {
		return domain.AnchorDown, err
	}
	var resp healthResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return domain.AnchorDown, nil
	}
	switch resp.Status {
	case "healthy", "ok":
		return domain.AnchorHealthy, nil
	case "degraded":
		return domain.AnchorDegraded, nil
	default:
		return domain.AnchorDown, nil
	}
}

const codeNotFound = "NOT_FOUND"

func (c *Client) do(ctx context.Context, req *http.Request) ([]byte, error) {
	resp, err := c.httpDo(req)
	if err != nil {
		return nil, &anchor.ProviderError{Code: errorToCode(ctx, err), Retryable: true, Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &anchor.ProviderError{Code: errorToCode(ctx, err), Retryable: true, Err: err}
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, &anchor.ProviderError{Code: codeNotFound, Err: errors.New(resp.Status)}
	}
	code := domain.AnchorErrorProviderError
	retryable := false
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		code, retryable = domain.AnchorErrorRateLimit, true
	case resp.StatusCode >= 500:
		code, retryable = domain.AnchorErrorProvider5xx, true
	}
	return nil, &anchor.ProviderError{Code: code, Retryable: retryable, Err: errors.New(resp.Status)}
}

func errorToCode(ctx context.Context, err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.AnchorErrorTimeout
	}
	return domain.AnchorErrorNetwork
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

type submitRequest struct {
	Fingerprint string `json:"fingerprint"`
}

type submitResponse struct {
	AnchorRef string `json:"anchor_ref"`
	Timestamp string `json:"timestamp"`
}

type fetchResponse struct {
	Fingerprint string `json:"fingerprint"`
	Timestamp   string `json:"timestamp"`
	Status      string `json:"status"`
}

type healthResponse struct {
	Status string `json:"status"`
}
