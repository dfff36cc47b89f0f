// Package model defines the core domain types shared across the pipeline.
package model

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Field limits applied to scraped candidates before they reach the LLM.
const (
	maxTitleLen   = 100
	maxDetailsLen = 500
)

// Candidate is a raw record pulled from a deal feed. It carries no price
// guarantee and is discarded once the selection filter has run.
type Candidate struct {
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	Details  string `json:"details"`
	Features string `json:"features"`
	URL      string `json:"url"`
}

// Truncate caps the free-text fields to sensible lengths so a batch of
// candidates fits in a single prompt.
func (c *Candidate) Truncate() {
	c.Title = truncate(c.Title, maxTitleLen)
	c.Details = truncate(c.Details, maxDetailsLen)
	c.Features = truncate(c.Features, maxDetailsLen)
}

// Describe renders the candidate as a text block for the selection prompt.
func (c Candidate) Describe() string {
	return fmt.Sprintf("Title: %s\nDetails: %s\nFeatures: %s\nURL: %s",
		c.Title, strings.TrimSpace(c.Details), strings.TrimSpace(c.Features), c.URL)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// Deal is a validated candidate: a normalized product summary, a positive
// price, and a stable URL used as its identity. Deals are immutable once
// constructed.
type Deal struct {
	ProductDescription string  `json:"product_description"`
	Price              float64 `json:"price"`
	URL                string  `json:"url"`
}

// NewDeal constructs a Deal, enforcing the price and description invariants.
func NewDeal(description string, price float64, url string) (Deal, error) {
	d := Deal{ProductDescription: description, Price: price, URL: url}
	if err := d.Validate(); err != nil {
		return Deal{}, err
	}
	return d, nil
}

// Validate checks the Deal invariants: non-empty description, price > 0,
// non-empty URL.
func (d Deal) Validate() error {
	if strings.TrimSpace(d.ProductDescription) == "" {
		return eris.New("model: deal description is empty")
	}
	if d.Price <= 0 {
		return eris.Errorf("model: deal price must be positive, got %.2f", d.Price)
	}
	if strings.TrimSpace(d.URL) == "" {
		return eris.New("model: deal url is empty")
	}
	return nil
}

// Opportunity wraps a Deal with its ensemble price estimate and the derived
// discount. An estimate of 0 means "no confident estimate", not a price.
type Opportunity struct {
	Deal     Deal    `json:"deal"`
	Estimate float64 `json:"estimate"`
	Discount float64 `json:"discount"`
}

// NewOpportunity derives an Opportunity from a deal and its estimate.
// Discount is always estimate - price; it is never stored independently.
func NewOpportunity(deal Deal, estimate float64) Opportunity {
	return Opportunity{
		Deal:     deal,
		Estimate: estimate,
		Discount: estimate - deal.Price,
	}
}
