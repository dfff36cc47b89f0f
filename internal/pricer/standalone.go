package pricer

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/deal-scout/internal/resilience"
	"github.com/sells-group/deal-scout/pkg/modal"
)

// StandaloneEstimator prices a product with the fine-tuned model served
// behind the inference endpoint.
type StandaloneEstimator struct {
	client modal.Client
	retry  resilience.RetryConfig
}

// NewStandalone creates an estimator backed by the inference service.
// Transient failures (cold start timeouts mostly) are retried before the
// estimator gives up.
func NewStandalone(client modal.Client) *StandaloneEstimator {
	return &StandaloneEstimator{
		client: client,
		retry:  resilience.RetryConfig{Attempts: 2},
	}
}

// Estimate calls the inference service. A failed or nonsensical response
// reports no signal.
func (e *StandaloneEstimator) Estimate(ctx context.Context, description string) (Estimate, error) {
	price, err := resilience.DoVal(ctx, e.retry, "inference price", func(ctx context.Context) (float64, error) {
		return e.client.Price(ctx, description)
	})
	if err != nil {
		zap.L().Warn("pricer: inference call failed", zap.Error(err))
		return NoSignal(), nil
	}
	if price <= 0 {
		zap.L().Debug("pricer: inference returned non-positive price", zap.Float64("price", price))
		return NoSignal(), nil
	}
	return ConfidentValue(price), nil
}
