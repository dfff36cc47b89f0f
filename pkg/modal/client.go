// Package modal is a client for the fine-tuned pricer model deployed as a
// remote inference service.
package modal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Client asks the deployed model for a price given a product description.
type Client interface {
	Price(ctx context.Context, description string) (float64, error)
}

// PriceRequest is the request body for POST /price.
type PriceRequest struct {
	Description string `json:"description"`
}

// PriceResponse is the response from POST /price.
type PriceResponse struct {
	Price float64 `json:"price"`
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.http.Timeout = d
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates an inference service client for the given base URL.
func NewClient(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL: baseURL,
		http: &http.Client{
			// Cold starts on the inference service can take a while.
			Timeout: 60 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Price(ctx context.Context, description string) (float64, error) {
	body, err := json.Marshal(PriceRequest{Description: description})
	if err != nil {
		return 0, eris.Wrap(err, "modal: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/price", bytes.NewReader(body))
	if err != nil {
		return 0, eris.Wrap(err, "modal: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return 0, eris.Wrap(err, "modal: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, eris.Wrap(err, "modal: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return 0, eris.Errorf("modal: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result PriceResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return 0, eris.Wrap(err, "modal: unmarshal response")
	}

	return result.Price, nil
}
