package pricer

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Ensemble blends the retrieval-grounded and standalone estimators with
// fixed weights. A side that reports no signal contributes zero; the result
// is no signal only when both sides had nothing.
type Ensemble struct {
	rag         Estimator
	standalone  Estimator
	ragWeight   float64
	modelWeight float64
}

// NewEnsemble creates a weighted ensemble over the two estimators.
func NewEnsemble(rag, standalone Estimator, ragWeight, modelWeight float64) *Ensemble {
	return &Ensemble{
		rag:         rag,
		standalone:  standalone,
		ragWeight:   ragWeight,
		modelWeight: modelWeight,
	}
}

// Estimate runs both estimators concurrently and blends their values.
func (e *Ensemble) Estimate(ctx context.Context, description string) (Estimate, error) {
	var ragEst, modelEst Estimate

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ragEst, err = e.rag.Estimate(gCtx, description)
		return err
	})
	g.Go(func() error {
		var err error
		modelEst, err = e.standalone.Estimate(gCtx, description)
		return err
	})
	if err := g.Wait(); err != nil {
		return NoSignal(), err
	}

	if !ragEst.Confident && !modelEst.Confident {
		return NoSignal(), nil
	}

	blended := e.ragWeight*ragEst.Value + e.modelWeight*modelEst.Value
	zap.L().Debug("pricer: ensemble estimate",
		zap.Float64("rag", ragEst.Value),
		zap.Float64("model", modelEst.Value),
		zap.Float64("blended", blended),
	)
	return ConfidentValue(blended), nil
}
