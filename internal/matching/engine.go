package matching

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MrJamesThe3rd/reconciler/internal/record"
)

// CommitFunc persists the matches of one phase. Returning an error aborts the run.
type CommitFunc func(ctx context.Context, result PhaseResult) error

// Engine runs the matching phases over a snapshot.
type Engine struct {
	policy Policy
}

func NewEngine(policy Policy) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	return &Engine{policy: policy}, nil
}

func (e *Engine) Policy() Policy {
	return e.policy
}

type settlementMatcher func(Policy, *candidateIndex, *record.Settlement) []candidate

var settlementMatchers = map[MatchType]settlementMatcher{
	MatchExactID:       matchExactID,
	MatchAmountDate:    matchAmountDate,
	MatchFuzzy:         matchFuzzy,
	MatchCrossCurrency: matchCrossCurrency,
}

// Run executes every phase in order, committing each before the next starts,
// then classifies what is left. Matches and discrepancies depend only on the
// snapshot and the policy.
func (e *Engine) Run(ctx context.Context, runID uuid.UUID, snap Snapshot, commit CommitFunc) (*Outcome, error) {
	p := newPools(snap)
	out := &Outcome{Skipped: p.skipped}
	txByID := make(map[string]*record.Transaction, len(p.targets))

	for _, tx := range p.targets {
		txByID[tx.ID] = tx
	}

	for _, phase := range Phases {
		if err := ctx.Err(); err != nil {
			return out, fmt.Errorf("before %s phase: %w", phase, err)
		}

		start := time.Now()

		cands, err := e.scan(ctx, phase, p)
		if err != nil {
			return out, fmt.Errorf("scanning %s phase: %w", phase, err)
		}

		accepted, err := arbitrate(cands, phase.consumesTransaction())
		if err != nil {
			return out, fmt.Errorf("arbitrating %s phase: %w", phase, err)
		}

		p.remove(accepted)

		matches := make([]Match, 0, len(accepted))
		for _, c := range accepted {
			m := toMatch(runID, c)
			m.RequiresReview = m.RequiresReview || m.Confidence < e.policy.MinConfidenceForAutoMatch
			matches = append(matches, m)
		}

		stats := p.stats(phase, len(cands), len(matches))
		stats.DurationMS = time.Since(start).Milliseconds()

		if err := commit(ctx, PhaseResult{Stats: stats, Matches: matches}); err != nil {
			return out, fmt.Errorf("committing %s phase: %w", phase, err)
		}

		slog.Info("matching phase committed",
			"run_id", runID, "phase", phase, "candidates", stats.Candidates, "matched", stats.Matched)

		out.Phases = append(out.Phases, stats)
		out.Matches = append(out.Matches, matches...)
	}

	cl := classifier{policy: e.policy, runID: runID, cutoff: snap.Cutoff}

	for _, tx := range p.transactionList() {
		if d, ok := cl.unmatchedTransaction(tx); ok {
			out.Discrepancies = append(out.Discrepancies, d)
		}
	}

	for _, s := range p.settlementList() {
		out.Discrepancies = append(out.Discrepancies, cl.unmatchedSettlement(s))
	}

	targets := newCandidateIndex(p.targets)
	for _, a := range p.adjustmentList() {
		out.Discrepancies = append(out.Discrepancies, cl.unmatchedAdjustment(a, targets.resolve(a.TransactionReference)))
	}

	for _, m := range out.Matches {
		out.Discrepancies = append(out.Discrepancies, cl.forMatch(m, txByID[m.TransactionID])...)
	}

	sortDiscrepancies(out.Discrepancies)

	return out, nil
}

// scan produces every candidate of a phase. Sources are partitioned by
// currency and scanned concurrently; arbitration makes the result independent
// of scheduling.
func (e *Engine) scan(ctx context.Context, phase MatchType, p *pools) ([]candidate, error) {
	if phase == MatchAdjustment {
		ix := newCandidateIndex(p.targets)

		return scanPartitioned(ctx, e.policy.Workers, p.adjustmentList(),
			func(a *record.Adjustment) string { return a.Currency },
			func(a *record.Adjustment) []candidate { return matchAdjustment(e.policy, ix, a) },
		)
	}

	ix := newCandidateIndex(p.transactionList())
	match := settlementMatchers[phase]

	return scanPartitioned(ctx, e.policy.Workers, p.settlementList(),
		func(s *record.Settlement) string { return s.Currency },
		func(s *record.Settlement) []candidate { return match(e.policy, ix, s) },
	)
}

func scanPartitioned[S any](ctx context.Context, workers int, sources []S, key func(S) string, match func(S) []candidate) ([]candidate, error) {
	var keys []string

	groups := make(map[string][]S)
	for _, s := range sources {
		k := key(s)
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}

		groups[k] = append(groups[k], s)
	}

	results := make([][]candidate, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, k := range keys {
		g.Go(func() error {
			for _, s := range groups[k] {
				if err := gctx.Err(); err != nil {
					return err
				}

				results[i] = append(results[i], match(s)...)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []candidate
	for _, r := range results {
		all = append(all, r...)
	}

	return all, nil
}

func toMatch(runID uuid.UUID, c candidate) Match {
	m := Match{
		ID:                 uuid.NewSHA1(runID, []byte(string(c.kind)+":"+c.tx.ID+":"+c.sourceID)),
		RunID:              runID,
		Type:               c.kind,
		TransactionID:      c.tx.ID,
		Confidence:         c.confidence,
		RequiresReview:     c.review,
		AmountDifference:   c.amountDelta,
		RelativeDifference: c.relDelta,
		TimeDifference:     c.timeDelta,
		Reasons:            c.reasons,
	}

	if c.kind == MatchAdjustment {
		m.AdjustmentID = c.sourceID
	} else {
		m.SettlementReference = c.sourceID
	}

	return m
}
