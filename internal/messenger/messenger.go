// Package messenger applies the discount threshold gate and dispatches
// push notifications for qualifying opportunities.
package messenger

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/deal-scout/internal/config"
	"github.com/sells-group/deal-scout/internal/model"
	"github.com/sells-group/deal-scout/internal/resilience"
	"github.com/sells-group/deal-scout/pkg/anthropic"
	"github.com/sells-group/deal-scout/pkg/pushover"
)

const craftSystemPrompt = `You write short, punchy push notifications for deal alerts. Given a product description, its asking price and its estimated market value, write one enthusiastic sentence under 200 characters that sells the opportunity. Reply with the sentence only.`

const craftUserPrompt = `Product: %s
Asking price: $%.2f
Estimated value: $%.2f
Savings: $%.2f`

// Messenger gates opportunities on discount and notifies when one clears
// the bar.
type Messenger struct {
	ai        anthropic.Client
	notifier  pushover.Client
	cfg       config.AnthropicConfig
	threshold float64
	temp      float64
	retry     resilience.RetryConfig
}

// Option configures a Messenger.
type Option func(*Messenger)

// WithRetryConfig overrides the delivery retry policy.
func WithRetryConfig(rc resilience.RetryConfig) Option {
	return func(m *Messenger) { m.retry = rc }
}

// New creates a Messenger gating at threshold dollars of discount.
func New(ai anthropic.Client, notifier pushover.Client, cfg config.AnthropicConfig, threshold, temperature float64, opts ...Option) *Messenger {
	m := &Messenger{
		ai:        ai,
		notifier:  notifier,
		cfg:       cfg,
		threshold: threshold,
		temp:      temperature,
		retry: resilience.RetryConfig{
			// Delivery attempts are cheap; retry regardless of error shape.
			ShouldRetry: func(error) bool { return true },
		},
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Threshold returns the gate value in dollars.
func (m *Messenger) Threshold() float64 {
	return m.threshold
}

// MaybeNotify notifies about the opportunity when its discount strictly
// exceeds the threshold. Returns whether the gate passed; a delivery
// failure after a passed gate is logged but does not flip the decision,
// so the caller still records the opportunity.
func (m *Messenger) MaybeNotify(ctx context.Context, opp *model.Opportunity) bool {
	if opp == nil {
		return false
	}
	if opp.Discount <= m.threshold {
		zap.L().Info("messenger: discount below threshold, gating",
			zap.Float64("discount", opp.Discount),
			zap.Float64("threshold", m.threshold),
			zap.String("url", opp.Deal.URL),
		)
		return false
	}

	text := m.craft(ctx, opp)

	err := resilience.Do(ctx, m.retry, "notify", func(ctx context.Context) error {
		return m.notifier.Send(ctx, text, opp.Deal.URL)
	})
	if err != nil {
		zap.L().Error("messenger: notification delivery failed",
			zap.String("url", opp.Deal.URL),
			zap.Error(err),
		)
	} else {
		zap.L().Info("messenger: notification sent",
			zap.Float64("discount", opp.Discount),
			zap.String("url", opp.Deal.URL),
		)
	}
	return true
}

// craft asks the model for alert copy, falling back to a fixed template so
// a flaky model never blocks a qualifying alert.
func (m *Messenger) craft(ctx context.Context, opp *model.Opportunity) string {
	summary := fmt.Sprintf("Price=$%.2f, Estimate=$%.2f, Discount=$%.2f",
		opp.Deal.Price, opp.Estimate, opp.Discount)

	temp := m.temp
	resp, err := m.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       m.cfg.MessengerModel,
		MaxTokens:   256,
		Temperature: &temp,
		System:      anthropic.BuildCachedSystemBlocks(craftSystemPrompt),
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(craftUserPrompt,
				opp.Deal.ProductDescription, opp.Deal.Price, opp.Estimate, opp.Discount)},
		},
	})
	if err != nil || resp.FirstText() == "" {
		zap.L().Warn("messenger: alert crafting failed, using template", zap.Error(err))
		return fmt.Sprintf("Deal Alert! %s\n\n%s", opp.Deal.ProductDescription, summary)
	}
	return fmt.Sprintf("%s\n\n%s", resp.FirstText(), summary)
}
