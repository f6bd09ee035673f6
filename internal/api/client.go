// Package api provides the HTTP client for the aggregation host and the
// transport chain every request passes through.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/kuberan/ledgersync/internal/errors"
	"github.com/kuberan/ledgersync/internal/logger"
	"github.com/kuberan/ledgersync/internal/pagination"
)

// Client communicates with the aggregation host. Paths are relative to the
// server URL.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	log        *zap.SugaredLogger
}

// NewClient creates a client for serverURL using httpClient, which should carry
// the authenticating transport chain.
func NewClient(serverURL string, httpClient *http.Client, log *zap.SugaredLogger) (*Client, error) {
	base, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("parsing server url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("server url %q must be absolute", serverURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Client{baseURL: base, httpClient: httpClient, log: log}, nil
}

// URL resolves path and query against the server URL.
func (c *Client) URL(path string, query url.Values) string {
	u := c.baseURL.ResolveReference(&url.URL{Path: strings.TrimLeft(path, "/")})
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// Get fetches path and decodes the JSON body into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	_, err := c.send(ctx, http.MethodGet, c.URL(path, query), nil, out)
	return err
}

// Post sends body as JSON to path and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	_, err := c.send(ctx, http.MethodPost, c.URL(path, nil), body, out)
	return err
}

// Put sends body as JSON to path and decodes the response into out.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	_, err := c.send(ctx, http.MethodPut, c.URL(path, nil), body, out)
	return err
}

// Delete sends a DELETE to path. Any 2xx status, including 204, is success.
func (c *Client) Delete(ctx context.Context, path string) error {
	_, err := c.send(ctx, http.MethodDelete, c.URL(path, nil), nil, nil)
	return err
}

// FetchAll fetches path and every page linked by rel="next", calling onPage with
// each page in order. It returns the number of items seen. A page error stops
// the walk; pages already handed to onPage are not revisited.
func FetchAll[T any](ctx context.Context, c *Client, path string, query url.Values, onPage func([]T) error) (int, error) {
	target := c.URL(path, query)
	seen := make(map[string]bool)
	total := 0

	for target != "" {
		if seen[target] {
			return total, fmt.Errorf("pagination loop at %s", target)
		}
		seen[target] = true

		var items []T
		header, err := c.send(ctx, http.MethodGet, target, nil, &items)
		if err != nil {
			return total, err
		}
		total += len(items)
		if err := onPage(items); err != nil {
			return total, err
		}

		next, ok := pagination.ParseLinks(header).Next()
		if !ok {
			break
		}
		target, err = c.resolveLink(next)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (c *Client) resolveLink(link string) (string, error) {
	ref, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("parsing next link %q: %w", link, err)
	}
	return c.baseURL.ResolveReference(ref).String(), nil
}

func (c *Client) send(ctx context.Context, method, target string, body, out any) (http.Header, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := ParseError(resp)
		c.log.Debugw("api request failed", "method", method, "url", target, "status", resp.StatusCode, "code", apiErr.Code)
		return resp.Header, apiErr
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrNetwork, err)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return resp.Header, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		invalid := apperrors.NewAPIError(resp.StatusCode, apperrors.APIUnknown, "", "", "", "Invalid response body")
		return resp.Header, apperrors.Wrap(invalid, err)
	}
	return resp.Header, nil
}

// transportError surfaces an *AppError raised inside the transport chain as is,
// keeps cancellation recognizable and maps everything else to a network error.
func transportError(err error) error {
	var appErr *apperrors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	if stderrors.Is(err, context.Canceled) {
		return err
	}
	return apperrors.Wrap(apperrors.ErrNetwork, err)
}
