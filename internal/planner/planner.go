// Package planner orchestrates a discovery cycle: fetch candidates, select
// deals, price them, gate on discount, notify and persist.
package planner

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/deal-scout/internal/memory"
	"github.com/sells-group/deal-scout/internal/model"
	"github.com/sells-group/deal-scout/internal/pricer"
)

// CandidateSource produces fresh deal candidates, excluding known URLs.
type CandidateSource interface {
	Fetch(ctx context.Context, known map[string]struct{}) ([]model.Candidate, error)
}

// DealSelector filters candidates down to clearly-priced deals.
type DealSelector interface {
	Select(ctx context.Context, candidates []model.Candidate) []model.Deal
}

// Gate decides whether an opportunity is worth alerting on, and alerts.
type Gate interface {
	MaybeNotify(ctx context.Context, opp *model.Opportunity) bool
}

// Planner runs discovery cycles.
type Planner struct {
	source        CandidateSource
	selector      DealSelector
	estimator     pricer.Estimator
	gate          Gate
	store         memory.Store
	maxConcurrent int
}

// New wires a Planner. maxConcurrent bounds parallel deal pricing.
func New(source CandidateSource, selector DealSelector, estimator pricer.Estimator, gate Gate, store memory.Store, maxConcurrent int) *Planner {
	if maxConcurrent <= 0 {
		maxConcurrent = 3
	}
	return &Planner{
		source:        source,
		selector:      selector,
		estimator:     estimator,
		gate:          gate,
		store:         store,
		maxConcurrent: maxConcurrent,
	}
}

// Run executes one cycle. Every cycle terminates in one of the CycleResult
// outcomes; an error is returned only when the cycle could not complete
// (context cancelled) or the post-notification save failed. In the save
// failure case the result still reports the notified outcome so the caller
// can see the alert went out.
func (p *Planner) Run(ctx context.Context) (*model.CycleResult, error) {
	result := &model.CycleResult{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	log := zap.L().With(zap.String("cycle_id", result.ID))
	log.Info("planner: cycle started")

	remembered, err := p.store.Load(ctx)
	if err != nil {
		if errors.Is(err, memory.ErrCorruptState) {
			log.Warn("planner: memory corrupt, starting from empty ledger", zap.Error(err))
		} else {
			return nil, eris.Wrap(err, "planner: load memory")
		}
	}

	known := make(map[string]struct{}, len(remembered))
	for _, opp := range remembered {
		known[opp.Deal.URL] = struct{}{}
	}

	candidates, err := p.source.Fetch(ctx, known)
	if err != nil {
		return nil, eris.Wrap(err, "planner: fetch candidates")
	}
	result.CandidateCount = len(candidates)
	if len(candidates) == 0 {
		log.Info("planner: no new candidates")
		return p.finish(result, model.OutcomeNoCandidates), nil
	}

	deals := p.selector.Select(ctx, candidates)
	result.DealCount = len(deals)
	if len(deals) == 0 {
		log.Info("planner: no deals selected", zap.Int("candidates", len(candidates)))
		return p.finish(result, model.OutcomeNoDealsSelected), nil
	}

	best, err := p.evaluate(ctx, deals)
	if err != nil {
		return nil, eris.Wrap(err, "planner: evaluate deals")
	}
	if best == nil {
		log.Info("planner: no deal could be priced", zap.Int("deals", len(deals)))
		return p.finish(result, model.OutcomeGated), nil
	}
	result.Best = best

	if !p.gate.MaybeNotify(ctx, best) {
		return p.finish(result, model.OutcomeGated), nil
	}

	remembered = append(remembered, *best)
	if err := p.store.Save(ctx, remembered); err != nil {
		log.Error("planner: persist after notification failed", zap.Error(err))
		return p.finish(result, model.OutcomeNotified), eris.Wrap(err, "planner: save memory")
	}

	log.Info("planner: opportunity recorded",
		zap.String("url", best.Deal.URL),
		zap.Float64("discount", best.Discount),
	)
	return p.finish(result, model.OutcomeNotified), nil
}

func (p *Planner) finish(result *model.CycleResult, outcome model.CycleOutcome) *model.CycleResult {
	result.Outcome = outcome
	result.FinishedAt = time.Now().UTC()
	zap.L().Info("planner: cycle finished",
		zap.String("cycle_id", result.ID),
		zap.String("outcome", string(outcome)),
	)
	return result
}

// evaluate prices all deals in parallel and returns the best opportunity.
// Deals whose estimator errors are skipped with a warning; deals with no
// pricing signal are skipped silently. Returns nil when nothing was
// priceable. Ordering is deterministic: highest discount first, URL breaks
// ties.
func (p *Planner) evaluate(ctx context.Context, deals []model.Deal) (*model.Opportunity, error) {
	var (
		mu            sync.Mutex
		opportunities []model.Opportunity
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxConcurrent)

	for _, deal := range deals {
		g.Go(func() error {
			est, err := p.estimator.Estimate(gCtx, deal.ProductDescription)
			if err != nil {
				if gCtx.Err() != nil {
					return err
				}
				zap.L().Warn("planner: pricing failed, skipping deal",
					zap.String("url", deal.URL),
					zap.Error(err),
				)
				return nil
			}
			if !est.Confident {
				return nil
			}
			mu.Lock()
			opportunities = append(opportunities, model.NewOpportunity(deal, est.Value))
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(opportunities) == 0 {
		return nil, nil
	}

	sort.Slice(opportunities, func(i, j int) bool {
		if opportunities[i].Discount != opportunities[j].Discount {
			return opportunities[i].Discount > opportunities[j].Discount
		}
		return opportunities[i].Deal.URL < opportunities[j].Deal.URL
	})
	best := opportunities[0]
	return &best, nil
}
