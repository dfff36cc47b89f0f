package planner

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/deal-scout/internal/memory"
	"github.com/sells-group/deal-scout/internal/model"
	"github.com/sells-group/deal-scout/internal/pricer"
)

type stubSource struct {
	candidates []model.Candidate
	err        error
	gotKnown   map[string]struct{}
}

func (s *stubSource) Fetch(ctx context.Context, known map[string]struct{}) ([]model.Candidate, error) {
	s.gotKnown = known
	if s.err != nil {
		return nil, s.err
	}
	var fresh []model.Candidate
	for _, c := range s.candidates {
		if _, seen := known[c.URL]; !seen {
			fresh = append(fresh, c)
		}
	}
	return fresh, nil
}

type stubSelector struct {
	deals []model.Deal
}

func (s *stubSelector) Select(ctx context.Context, candidates []model.Candidate) []model.Deal {
	// Only return deals whose candidate survived the fetch.
	offered := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		offered[c.URL] = struct{}{}
	}
	var out []model.Deal
	for _, d := range s.deals {
		if _, ok := offered[d.URL]; ok {
			out = append(out, d)
		}
	}
	return out
}

type stubEstimator struct {
	byDescription map[string]pricer.Estimate
	err           error
}

func (s *stubEstimator) Estimate(ctx context.Context, description string) (pricer.Estimate, error) {
	if s.err != nil {
		return pricer.NoSignal(), s.err
	}
	if est, ok := s.byDescription[description]; ok {
		return est, nil
	}
	return pricer.NoSignal(), nil
}

// thresholdGate mimics the messenger gate without LLM or delivery.
type thresholdGate struct {
	threshold float64
	notified  []*model.Opportunity
}

func (g *thresholdGate) MaybeNotify(ctx context.Context, opp *model.Opportunity) bool {
	if opp == nil || opp.Discount <= g.threshold {
		return false
	}
	g.notified = append(g.notified, opp)
	return true
}

func mustDeal(t *testing.T, desc string, price float64, url string) model.Deal {
	t.Helper()
	d, err := model.NewDeal(desc, price, url)
	require.NoError(t, err)
	return d
}

func newFileStore(t *testing.T) memory.Store {
	t.Helper()
	return memory.NewFile(filepath.Join(t.TempDir(), "memory.json"))
}

func TestRun_NotifiesAndPersists(t *testing.T) {
	store := newFileStore(t)
	source := &stubSource{candidates: []model.Candidate{
		{Title: "TV", URL: "https://deals.example.com/tv"},
	}}
	deal := mustDeal(t, "A 4K TV.", 99.99, "https://deals.example.com/tv")
	gate := &thresholdGate{threshold: 50}

	p := New(source,
		&stubSelector{deals: []model.Deal{deal}},
		&stubEstimator{byDescription: map[string]pricer.Estimate{
			"A 4K TV.": pricer.ConfidentValue(250),
		}},
		gate, store, 3)

	result, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeNotified, result.Outcome)
	require.NotNil(t, result.Best)
	assert.InDelta(t, 150.01, result.Best.Discount, 1e-9)
	assert.NotEmpty(t, result.ID)

	stored, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "https://deals.example.com/tv", stored[0].Deal.URL)
}

func TestRun_GatesLowDiscount(t *testing.T) {
	store := newFileStore(t)
	source := &stubSource{candidates: []model.Candidate{
		{Title: "TV", URL: "https://deals.example.com/tv"},
	}}
	deal := mustDeal(t, "A 4K TV.", 160, "https://deals.example.com/tv")
	gate := &thresholdGate{threshold: 50}

	p := New(source,
		&stubSelector{deals: []model.Deal{deal}},
		&stubEstimator{byDescription: map[string]pricer.Estimate{
			"A 4K TV.": pricer.ConfidentValue(200), // discount 40
		}},
		gate, store, 3)

	result, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeGated, result.Outcome)
	assert.Empty(t, gate.notified)

	stored, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestRun_NoCandidates(t *testing.T) {
	p := New(&stubSource{}, &stubSelector{}, &stubEstimator{}, &thresholdGate{}, newFileStore(t), 3)

	result, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeNoCandidates, result.Outcome)
	assert.Nil(t, result.Best)
}

func TestRun_NoDealsSelected(t *testing.T) {
	source := &stubSource{candidates: []model.Candidate{
		{Title: "Vague", URL: "https://deals.example.com/vague"},
	}}
	p := New(source, &stubSelector{}, &stubEstimator{}, &thresholdGate{}, newFileStore(t), 3)

	result, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeNoDealsSelected, result.Outcome)
	assert.Equal(t, 1, result.CandidateCount)
}

func TestRun_RememberedURLsExcluded(t *testing.T) {
	store := newFileStore(t)
	prior := model.NewOpportunity(
		mustDeal(t, "An old TV.", 100, "https://deals.example.com/tv"), 200)
	require.NoError(t, store.Save(context.Background(), []model.Opportunity{prior}))

	source := &stubSource{candidates: []model.Candidate{
		{Title: "TV", URL: "https://deals.example.com/tv"},
	}}
	p := New(source, &stubSelector{}, &stubEstimator{}, &thresholdGate{}, store, 3)

	result, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeNoCandidates, result.Outcome)
	assert.Contains(t, source.gotKnown, "https://deals.example.com/tv")
}

func TestRun_MemoryAppendOnly(t *testing.T) {
	store := newFileStore(t)
	prior := model.NewOpportunity(
		mustDeal(t, "An old laptop.", 500, "https://deals.example.com/laptop"), 700)
	require.NoError(t, store.Save(context.Background(), []model.Opportunity{prior}))

	source := &stubSource{candidates: []model.Candidate{
		{Title: "TV", URL: "https://deals.example.com/tv"},
	}}
	deal := mustDeal(t, "A 4K TV.", 99.99, "https://deals.example.com/tv")
	p := New(source,
		&stubSelector{deals: []model.Deal{deal}},
		&stubEstimator{byDescription: map[string]pricer.Estimate{
			"A 4K TV.": pricer.ConfidentValue(250),
		}},
		&thresholdGate{threshold: 50}, store, 3)

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	stored, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, prior, stored[0])
	assert.Equal(t, "https://deals.example.com/tv", stored[1].Deal.URL)
}

func TestRun_PartialPricingDegradation(t *testing.T) {
	// One side of the ensemble failing is invisible here: the estimator
	// reports a lower but confident value and the cycle proceeds.
	store := newFileStore(t)
	source := &stubSource{candidates: []model.Candidate{
		{Title: "TV", URL: "https://deals.example.com/tv"},
	}}
	deal := mustDeal(t, "A 4K TV.", 99.99, "https://deals.example.com/tv")
	gate := &thresholdGate{threshold: 50}

	p := New(source,
		&stubSelector{deals: []model.Deal{deal}},
		&stubEstimator{byDescription: map[string]pricer.Estimate{
			"A 4K TV.": pricer.ConfidentValue(160), // 0.8*200 with model side dark
		}},
		gate, store, 3)

	result, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeNotified, result.Outcome)
	assert.InDelta(t, 60.01, result.Best.Discount, 1e-9)
}

func TestRun_UnpriceableDealsSkipped(t *testing.T) {
	source := &stubSource{candidates: []model.Candidate{
		{Title: "TV", URL: "https://deals.example.com/tv"},
		{Title: "Lamp", URL: "https://deals.example.com/lamp"},
	}}
	tv := mustDeal(t, "A 4K TV.", 100, "https://deals.example.com/tv")
	lamp := mustDeal(t, "A lamp.", 20, "https://deals.example.com/lamp")
	gate := &thresholdGate{threshold: 50}

	p := New(source,
		&stubSelector{deals: []model.Deal{tv, lamp}},
		&stubEstimator{byDescription: map[string]pricer.Estimate{
			"A lamp.": pricer.ConfidentValue(90), // discount 70; TV has no signal
		}},
		gate, newFileStore(t), 3)

	result, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeNotified, result.Outcome)
	assert.Equal(t, "https://deals.example.com/lamp", result.Best.Deal.URL)
}

func TestRun_NothingPriceableIsGated(t *testing.T) {
	source := &stubSource{candidates: []model.Candidate{
		{Title: "TV", URL: "https://deals.example.com/tv"},
	}}
	deal := mustDeal(t, "A 4K TV.", 100, "https://deals.example.com/tv")

	p := New(source,
		&stubSelector{deals: []model.Deal{deal}},
		&stubEstimator{}, // no signal for anything
		&thresholdGate{threshold: 50}, newFileStore(t), 3)

	result, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeGated, result.Outcome)
	assert.Nil(t, result.Best)
}

func TestEvaluate_DeterministicTieBreak(t *testing.T) {
	a := mustDeal(t, "Item A.", 100, "https://deals.example.com/a")
	b := mustDeal(t, "Item B.", 100, "https://deals.example.com/b")

	p := New(nil, nil, &stubEstimator{byDescription: map[string]pricer.Estimate{
		"Item A.": pricer.ConfidentValue(200),
		"Item B.": pricer.ConfidentValue(200),
	}}, nil, nil, 3)

	for i := 0; i < 5; i++ {
		best, err := p.evaluate(context.Background(), []model.Deal{b, a})
		require.NoError(t, err)
		require.NotNil(t, best)
		assert.Equal(t, "https://deals.example.com/a", best.Deal.URL)
	}
}

func TestRun_SaveFailureStillReportsNotified(t *testing.T) {
	store := &failingSaveStore{Store: newFileStore(t)}
	source := &stubSource{candidates: []model.Candidate{
		{Title: "TV", URL: "https://deals.example.com/tv"},
	}}
	deal := mustDeal(t, "A 4K TV.", 99.99, "https://deals.example.com/tv")

	p := New(source,
		&stubSelector{deals: []model.Deal{deal}},
		&stubEstimator{byDescription: map[string]pricer.Estimate{
			"A 4K TV.": pricer.ConfidentValue(250),
		}},
		&thresholdGate{threshold: 50}, store, 3)

	result, err := p.Run(context.Background())
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Equal(t, model.OutcomeNotified, result.Outcome)
}

type failingSaveStore struct {
	memory.Store
}

func (s *failingSaveStore) Save(ctx context.Context, opportunities []model.Opportunity) error {
	return eris.Wrap(memory.ErrPersistence, "disk full")
}
