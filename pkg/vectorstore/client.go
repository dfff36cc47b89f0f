// Package vectorstore is a client for the product-embedding similarity
// service that backs retrieval-augmented pricing.
package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "http://localhost:8765"

// Client queries the similarity index for comparable products.
type Client interface {
	Query(ctx context.Context, text string, k int) ([]Comparable, error)
}

// Comparable is a nearest-neighbor product with a known price.
type Comparable struct {
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

// QueryRequest is the request body for POST /query.
type QueryRequest struct {
	Text string `json:"text"`
	K    int    `json:"k"`
}

// QueryResponse is the response from POST /query.
type QueryResponse struct {
	Results []Comparable `json:"results"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default service base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a similarity index client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Query(ctx context.Context, text string, k int) ([]Comparable, error) {
	body, err := json.Marshal(QueryRequest{Text: text, K: k})
	if err != nil {
		return nil, eris.Wrap(err, "vectorstore: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/query", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "vectorstore: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "vectorstore: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "vectorstore: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("vectorstore: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result QueryResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "vectorstore: unmarshal response")
	}

	return result.Results, nil
}
