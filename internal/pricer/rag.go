package pricer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/deal-scout/internal/config"
	"github.com/sells-group/deal-scout/pkg/anthropic"
	"github.com/sells-group/deal-scout/pkg/vectorstore"
)

const ragSystemPrompt = `You estimate the market price of a product. You are given descriptions and prices of similar products for context. Reply only with the price as a plain number, no explanation, no currency symbol.`

const ragUserPrompt = `How much does this cost?

%s

%sPrice:`

// RAGEstimator prices a product by retrieving similar priced products and
// asking an LLM for an estimate grounded in them.
type RAGEstimator struct {
	ai    anthropic.Client
	store vectorstore.Client
	cfg   config.AnthropicConfig
	topK  int
}

// NewRAG creates a retrieval-grounded estimator using topK comparables.
func NewRAG(ai anthropic.Client, store vectorstore.Client, cfg config.AnthropicConfig, topK int) *RAGEstimator {
	return &RAGEstimator{ai: ai, store: store, cfg: cfg, topK: topK}
}

// Estimate retrieves comparables and asks the model for a price. When the
// index has nothing similar it reports no signal; when the model answer is
// unparseable it falls back to the mean of the comparables.
func (e *RAGEstimator) Estimate(ctx context.Context, description string) (Estimate, error) {
	comparables, err := e.store.Query(ctx, description, e.topK)
	if err != nil {
		zap.L().Warn("pricer: comparable lookup failed", zap.Error(err))
		return NoSignal(), nil
	}
	if len(comparables) == 0 {
		zap.L().Debug("pricer: no comparables found")
		return NoSignal(), nil
	}

	resp, err := e.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     e.cfg.PricerModel,
		MaxTokens: 16,
		System:    anthropic.BuildCachedSystemBlocks(ragSystemPrompt),
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(ragUserPrompt, description, formatComparables(comparables))},
		},
	})
	if err != nil {
		zap.L().Warn("pricer: rag model call failed, using comparable mean", zap.Error(err))
		return ConfidentValue(meanPrice(comparables)), nil
	}

	price, err := ParsePrice(resp.FirstText())
	if err != nil {
		zap.L().Warn("pricer: unparseable rag answer, using comparable mean",
			zap.String("answer", resp.FirstText()),
		)
		return ConfidentValue(meanPrice(comparables)), nil
	}
	return ConfidentValue(price), nil
}

func formatComparables(comparables []vectorstore.Comparable) string {
	var sb strings.Builder
	sb.WriteString("For context, here are similar products and their prices:\n\n")
	for _, c := range comparables {
		fmt.Fprintf(&sb, "Potentially related product:\n%s\nPrice is $%.2f\n\n", c.Description, c.Price)
	}
	return sb.String()
}

func meanPrice(comparables []vectorstore.Comparable) float64 {
	var sum float64
	for _, c := range comparables {
		sum += c.Price
	}
	return sum / float64(len(comparables))
}
