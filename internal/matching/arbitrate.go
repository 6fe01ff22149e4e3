package matching

import (
	"cmp"
	"fmt"
	"slices"
)

// compareCandidates is the total order arbitration accepts candidates in:
// confidence desc, time delta asc, amount delta asc, transaction id asc,
// source id asc.
func compareCandidates(a, b candidate) int {
	if c := cmp.Compare(b.confidence, a.confidence); c != 0 {
		return c
	}

	if c := cmp.Compare(a.timeDelta, b.timeDelta); c != 0 {
		return c
	}

	if c := a.amountDelta.Cmp(b.amountDelta); c != 0 {
		return c
	}

	if c := cmp.Compare(a.tx.ID, b.tx.ID); c != 0 {
		return c
	}

	return cmp.Compare(a.sourceID, b.sourceID)
}

// arbitrate resolves contention between candidates of one phase. Each source
// record is accepted at most once; when consumeTx is set each transaction is
// too. The result is independent of the order candidates were produced in.
func arbitrate(cands []candidate, consumeTx bool) ([]candidate, error) {
	// A matcher may propose the same pair twice; keep the stronger proposal.
	type pair struct{ tx, source string }

	best := make(map[pair]candidate, len(cands))
	for _, c := range cands {
		k := pair{tx: c.tx.ID, source: c.sourceID}
		if cur, ok := best[k]; ok && compareCandidates(cur, c) <= 0 {
			continue
		}

		best[k] = c
	}

	ordered := make([]candidate, 0, len(best))
	for _, c := range best {
		ordered = append(ordered, c)
	}

	slices.SortFunc(ordered, compareCandidates)

	for i := 1; i < len(ordered); i++ {
		if compareCandidates(ordered[i-1], ordered[i]) == 0 {
			return nil, fmt.Errorf("%w: transaction %s and source %s",
				ErrAmbiguousMatch, ordered[i].tx.ID, ordered[i].sourceID)
		}
	}

	usedTx := make(map[string]bool)
	usedSource := make(map[string]bool)

	var accepted []candidate

	for _, c := range ordered {
		if usedSource[c.sourceID] || (consumeTx && usedTx[c.tx.ID]) {
			continue
		}

		usedSource[c.sourceID] = true
		usedTx[c.tx.ID] = true

		accepted = append(accepted, c)
	}

	return accepted, nil
}
