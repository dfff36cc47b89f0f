package feed

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/deal-scout/internal/model"
)

// maxBodyBytes caps how much of a deal page we read when scraping details.
const maxBodyBytes = 1 << 20

// Source fetches deal candidates from a set of RSS feeds.
type Source struct {
	urls         []string
	maxPerFeed   int
	fetchDetails bool
	client       *http.Client
	limiter      *rate.Limiter
}

// Option configures a Source.
type Option func(*Source)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Source) { s.client = c }
}

// WithDetailFetch toggles scraping each item's page for fuller text.
// When disabled, candidates carry only the feed summary.
func WithDetailFetch(enabled bool) Option {
	return func(s *Source) { s.fetchDetails = enabled }
}

// WithRequestsPerSec throttles outgoing HTTP requests.
func WithRequestsPerSec(rps float64) Option {
	return func(s *Source) {
		if rps > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// NewSource creates a Source over the given feed URLs, keeping at most
// maxPerFeed items from each feed.
func NewSource(urls []string, maxPerFeed int, opts ...Option) *Source {
	s := &Source{
		urls:         urls,
		maxPerFeed:   maxPerFeed,
		fetchDetails: true,
		client:       &http.Client{Timeout: 10 * time.Second},
		limiter:      rate.NewLimiter(rate.Limit(20), 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch retrieves candidates from all feeds, excluding any whose URL is in
// known. Feeds are fetched in parallel but results keep feed order. A feed
// that fails is logged and skipped; Fetch errors only when the context is
// cancelled.
func (s *Source) Fetch(ctx context.Context, known map[string]struct{}) ([]model.Candidate, error) {
	perFeed := make([][]model.Candidate, len(s.urls))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i, feedURL := range s.urls {
		g.Go(func() error {
			items, err := s.fetchFeed(gCtx, feedURL)
			if err != nil {
				zap.L().Warn("feed: fetch failed, skipping",
					zap.String("url", feedURL),
					zap.Error(err),
				)
				return nil
			}

			var candidates []model.Candidate
			for _, item := range items {
				if len(candidates) >= s.maxPerFeed {
					break
				}
				if item.Link == "" {
					continue
				}
				if _, seen := known[item.Link]; seen {
					continue
				}
				c := s.buildCandidate(gCtx, item)
				c.Truncate()
				candidates = append(candidates, c)
			}
			perFeed[i] = candidates
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "feed: fetch")
	}

	var all []model.Candidate
	for _, cs := range perFeed {
		all = append(all, cs...)
	}
	return all, nil
}

func (s *Source) fetchFeed(ctx context.Context, feedURL string) ([]rssItem, error) {
	body, err := s.get(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return decodeRSS(body)
}

// buildCandidate fills in a candidate from a feed item, scraping the deal
// page for details when enabled. Scrape failures fall back to the summary.
func (s *Source) buildCandidate(ctx context.Context, item rssItem) model.Candidate {
	c := model.Candidate{
		Title:   stripHTML(item.Title),
		Summary: stripHTML(item.Description),
		URL:     item.Link,
	}

	if !s.fetchDetails {
		c.Details = c.Summary
		return c
	}

	text, err := s.fetchPage(ctx, item.Link)
	if err != nil {
		zap.L().Debug("feed: detail fetch failed, using summary",
			zap.String("url", item.Link),
			zap.Error(err),
		)
		c.Details = c.Summary
		return c
	}

	// Deal pages list specs under a "Features" heading; split so the
	// selection prompt sees them separately.
	if details, features, found := strings.Cut(text, "Features"); found {
		c.Details = strings.TrimSpace(details)
		c.Features = strings.TrimSpace(features)
	} else {
		c.Details = text
	}
	return c
}

func (s *Source) fetchPage(ctx context.Context, pageURL string) (string, error) {
	body, err := s.get(ctx, pageURL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	raw, err := io.ReadAll(io.LimitReader(body, maxBodyBytes))
	if err != nil {
		return "", eris.Wrap(err, "feed: read page")
	}
	return stripHTML(string(raw)), nil
}

func (s *Source) get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "feed: rate limit wait")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "feed: build request")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "feed: request")
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, eris.Errorf("feed: unexpected status %d for %s", resp.StatusCode, rawURL)
	}
	return resp.Body, nil
}
