package model

import "time"

// CycleOutcome is the terminal state of a single discovery cycle.
type CycleOutcome string

const (
	// OutcomeNoCandidates: the feeds produced nothing new this cycle.
	OutcomeNoCandidates CycleOutcome = "no_candidates"
	// OutcomeNoDealsSelected: the selection filter returned no valid deals.
	OutcomeNoDealsSelected CycleOutcome = "no_deals_selected"
	// OutcomeGated: a best opportunity existed but did not clear the threshold.
	OutcomeGated CycleOutcome = "gated"
	// OutcomeNotified: an alert was dispatched and the opportunity persisted.
	OutcomeNotified CycleOutcome = "notified"
)

// CycleResult summarizes one orchestrator run.
type CycleResult struct {
	ID             string       `json:"id"`
	Outcome        CycleOutcome `json:"outcome"`
	Best           *Opportunity `json:"best,omitempty"`
	CandidateCount int          `json:"candidate_count"`
	DealCount      int          `json:"deal_count"`
	StartedAt      time.Time    `json:"started_at"`
	FinishedAt     time.Time    `json:"finished_at"`
}
