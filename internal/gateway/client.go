package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client calls a deployed relay over HTTP. It implements Invoker, so wizard
// code is identical whether the relay is remote or in-process.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a relay client for baseURL (scheme and host, no path).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 120 * time.Second},
	}
}

// Generate implements Invoker.
func (c *Client) Generate(ctx context.Context, req *Request) (*Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding relay request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building relay request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling relay: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("reading relay response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		var env ErrorBody
		msg := string(body)
		if json.Unmarshal(body, &env) == nil && env.Error != "" {
			msg = env.Error
		}
		return nil, &VendorError{Provider: "relay", Status: httpResp.StatusCode, Message: msg}
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding relay response: %w", err)
	}
	return &resp, nil
}
