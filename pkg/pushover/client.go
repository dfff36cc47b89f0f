// Package pushover sends push notifications via the Pushover messages API.
package pushover

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.pushover.net"

// Client dispatches a push notification with an optional deal link.
type Client interface {
	Send(ctx context.Context, text, linkURL string) error
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	user    string
	token   string
	baseURL string
	http    *http.Client
}

// NewClient creates a Pushover client. When user or token is empty the
// client runs in log-only mode: Send logs the message and succeeds without
// calling the API.
func NewClient(user, token string, opts ...Option) Client {
	c := &httpClient{
		user:    user,
		token:   token,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Send(ctx context.Context, text, linkURL string) error {
	if c.user == "" || c.token == "" {
		zap.L().Info("pushover: not configured, logging notification only",
			zap.String("message", text),
			zap.String("url", linkURL),
		)
		return nil
	}

	form := url.Values{
		"user":    {c.user},
		"token":   {c.token},
		"message": {text},
		"sound":   {"cashregister"},
	}
	if linkURL != "" {
		form.Set("url", linkURL)
		form.Set("url_title", "View Deal")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/1/messages.json", strings.NewReader(form.Encode()))
	if err != nil {
		return eris.Wrap(err, "pushover: create request")
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return eris.Wrap(err, "pushover: send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return eris.Errorf("pushover: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
