// Package httpclient is an illustrative scanner.Scanner implementation
// talking to an OSP-style HTTP backend — component M. It exists to give
// internal/retry's backoff and circuit breaker a concrete home and to
// demonstrate how a real scanner backend plugs into the four-operation
// contract; internal/controller never imports this package, only the
// scanner.Scanner interface it satisfies.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cenkalti/backoff/v4"

	"github.com/greenlance/scanorc/internal/models"
	"github.com/greenlance/scanorc/internal/retry"
	"github.com/greenlance/scanorc/internal/scanner"
)

// Client adapts an OSP-style HTTP scanner backend to scanner.Scanner.
// Every call is wrapped in a backoff retry and routed through a shared
// circuit breaker, so a flaky or overloaded backend degrades the poll
// loop's latency instead of its correctness.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Breaker *retry.CircuitBreaker
	Policy  retry.Policy
}

// New constructs a Client with sane defaults for Policy and Breaker.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    http.DefaultClient,
		Breaker: retry.NewCircuitBreaker(),
		Policy:  retry.DefaultPolicy(),
	}
}

func (c *Client) call(ctx context.Context, method, path string, body, out interface{}) error {
	return c.Breaker.Call(func() error {
		return retry.WithBackoff(ctx, c.Policy, func() error {
			var reader *bytes.Reader
			if body != nil {
				data, err := json.Marshal(body)
				if err != nil {
					return err
				}
				reader = bytes.NewReader(data)
			} else {
				reader = bytes.NewReader(nil)
			}
			req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			resp, err := c.HTTP.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode >= 500 {
				return fmt.Errorf("httpclient: backend returned %d", resp.StatusCode)
			}
			if resp.StatusCode >= 400 {
				// A 4xx is the backend rejecting this specific request
				// outright (unknown scan id, bad body); retrying it
				// unchanged would only fail the same way, so it's
				// permanent rather than transient.
				return backoff.Permanent(&scanner.Error{Op: method, ID: path, Err: fmt.Errorf("backend returned %d", resp.StatusCode)})
			}
			if out != nil {
				return json.NewDecoder(resp.Body).Decode(out)
			}
			return nil
		})
	})
}

func (c *Client) Start(ctx context.Context, id string, scan models.Scan) error {
	if err := c.call(ctx, http.MethodPost, "/scans/"+id, scan, nil); err != nil {
		return &scanner.Error{Op: "start", ID: id, Err: err}
	}
	return nil
}

func (c *Client) Stop(ctx context.Context, id string) error {
	if err := c.call(ctx, http.MethodPost, "/scans/"+id+"/stop", nil, nil); err != nil {
		return &scanner.Error{Op: "stop", ID: id, Err: err}
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.call(ctx, http.MethodDelete, "/scans/"+id, nil, nil); err != nil {
		return &scanner.Error{Op: "delete", ID: id, Err: err}
	}
	return nil
}

func (c *Client) Fetch(ctx context.Context, id string) (scanner.FetchResult, error) {
	var out scanner.FetchResult
	if err := c.call(ctx, http.MethodGet, "/scans/"+id+"/results", nil, &out); err != nil {
		return scanner.FetchResult{}, &scanner.Error{Op: "fetch", ID: id, Err: err}
	}
	return out, nil
}

var _ scanner.Scanner = (*Client)(nil)
