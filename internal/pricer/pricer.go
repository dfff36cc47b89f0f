// Package pricer estimates the market value of a product description.
//
// Three estimators cooperate: a retrieval-grounded LLM estimator, a
// standalone fine-tuned model behind an HTTP endpoint, and a weighted
// ensemble over the two.
package pricer

import "context"

// Estimate is the outcome of a single pricing attempt. Confident is false
// when the estimator had no usable signal; Value is 0 in that case and the
// ensemble ignores it rather than averaging in a zero.
type Estimate struct {
	Value     float64
	Confident bool
}

// NoSignal returns the estimate used when nothing usable was produced.
func NoSignal() Estimate {
	return Estimate{}
}

// ConfidentValue returns an estimate carrying a usable value.
func ConfidentValue(v float64) Estimate {
	return Estimate{Value: v, Confident: true}
}

// Estimator prices a product description. Implementations degrade to
// NoSignal instead of returning errors for upstream failures; the error
// return is reserved for context cancellation.
type Estimator interface {
	Estimate(ctx context.Context, description string) (Estimate, error)
}
