// Package scanner selects the most promising deals from feed candidates
// using a single LLM call.
package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/deal-scout/internal/config"
	"github.com/sells-group/deal-scout/internal/model"
	"github.com/sells-group/deal-scout/pkg/anthropic"
)

const selectSystemPrompt = `You identify the most promising deals from a list, focusing on deals where the product is clearly described and the price is explicitly stated. Rephrase each product description into a clear 4-5 sentence paragraph about the product itself, not the deal terms. Ignore deals whose price is unclear, a percentage discount, or "$xxx off". Respond strictly with a JSON object of this shape and nothing else:

{"deals": [{"product_description": "...", "price": 99.99, "url": "..."}]}

Select the %d best-described deals. The price must be the actual asking price as a number, never an estimate or a discount amount.`

const selectUserPrompt = `Respond with the most promising %d deals, selected from this list:

%s`

// Scanner filters feed candidates down to clearly-priced deals.
type Scanner struct {
	ai       anthropic.Client
	cfg      config.AnthropicConfig
	maxDeals int
}

// New creates a Scanner selecting at most maxDeals per batch.
func New(ai anthropic.Client, cfg config.AnthropicConfig, maxDeals int) *Scanner {
	return &Scanner{ai: ai, cfg: cfg, maxDeals: maxDeals}
}

// selection mirrors the JSON shape the model is asked for.
type selection struct {
	Deals []struct {
		ProductDescription string  `json:"product_description"`
		Price              float64 `json:"price"`
		URL                string  `json:"url"`
	} `json:"deals"`
}

// Select picks up to maxDeals deals from the candidates. Model failures and
// unparseable responses yield an empty slice, never an error: a bad scan
// only costs one cycle.
func (s *Scanner) Select(ctx context.Context, candidates []model.Candidate) []model.Deal {
	if len(candidates) == 0 {
		return nil
	}

	var sb strings.Builder
	for _, c := range candidates {
		sb.WriteString(c.Describe())
		sb.WriteString("\n\n")
	}

	resp, err := s.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     s.cfg.ScannerModel,
		MaxTokens: 2048,
		System:    anthropic.BuildCachedSystemBlocks(fmt.Sprintf(selectSystemPrompt, s.maxDeals)),
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(selectUserPrompt, s.maxDeals, sb.String())},
		},
	})
	if err != nil {
		zap.L().Warn("scanner: selection call failed", zap.Error(err))
		return nil
	}

	var sel selection
	if err := json.Unmarshal([]byte(cleanJSON(resp.FirstText())), &sel); err != nil {
		zap.L().Warn("scanner: unparseable selection response",
			zap.Error(err),
			zap.Int("response_len", len(resp.FirstText())),
		)
		return nil
	}

	// Only accept deals pointing back at a candidate we actually offered.
	offered := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		offered[c.URL] = struct{}{}
	}

	var deals []model.Deal
	for _, d := range sel.Deals {
		if len(deals) >= s.maxDeals {
			break
		}
		if _, ok := offered[d.URL]; !ok {
			zap.L().Debug("scanner: dropping deal with unknown url", zap.String("url", d.URL))
			continue
		}
		deal, err := model.NewDeal(d.ProductDescription, d.Price, d.URL)
		if err != nil {
			zap.L().Debug("scanner: dropping invalid deal",
				zap.String("url", d.URL),
				zap.Error(err),
			)
			continue
		}
		deals = append(deals, deal)
	}

	zap.L().Info("scanner: selection complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("selected", len(deals)),
	)
	return deals
}

// cleanJSON strips markdown fences and surrounding prose from a model
// response, leaving the outermost JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
