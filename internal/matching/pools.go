package matching

import (
	"cmp"
	"log/slog"
	"maps"
	"slices"

	"github.com/MrJamesThe3rd/reconciler/internal/record"
)

// pools hold the records still unmatched during a run. Records only ever
// leave a pool.
type pools struct {
	transactions map[string]*record.Transaction
	settlements  map[string]*record.Settlement
	adjustments  map[string]*record.Adjustment

	// targets are every transaction an adjustment may point at, settled or not.
	targets []*record.Transaction

	skipped int
}

// newPools loads a snapshot, dropping records that fail validation or repeat
// an identity already seen.
func newPools(snap Snapshot) *pools {
	p := &pools{
		transactions: make(map[string]*record.Transaction, len(snap.Transactions)),
		settlements:  make(map[string]*record.Settlement, len(snap.Settlements)),
		adjustments:  make(map[string]*record.Adjustment, len(snap.Adjustments)),
	}

	seenTargets := make(map[string]bool)

	addTarget := func(tx *record.Transaction) {
		if seenTargets[tx.ID] {
			return
		}

		seenTargets[tx.ID] = true
		p.targets = append(p.targets, tx)
	}

	for i := range snap.Transactions {
		tx := &snap.Transactions[i]
		if !p.accept(tx.Validate(), tx.ID, p.transactions[tx.ID] != nil, "transaction") || !tx.Captured() {
			continue
		}

		p.transactions[tx.ID] = tx
		addTarget(tx)
	}

	for i := range snap.SettledTransactions {
		tx := &snap.SettledTransactions[i]
		if !p.accept(tx.Validate(), tx.ID, seenTargets[tx.ID], "settled transaction") || !tx.Captured() {
			continue
		}

		addTarget(tx)
	}

	for i := range snap.Settlements {
		s := &snap.Settlements[i]
		if !p.accept(s.Validate(), s.Reference, p.settlements[s.Reference] != nil, "settlement") {
			continue
		}

		p.settlements[s.Reference] = s
	}

	for i := range snap.Adjustments {
		a := &snap.Adjustments[i]
		if !p.accept(a.Validate(), a.ID, p.adjustments[a.ID] != nil, "adjustment") {
			continue
		}

		p.adjustments[a.ID] = a
	}

	slices.SortFunc(p.targets, byTransactionID)

	return p
}

func (p *pools) accept(err error, id string, duplicate bool, kind string) bool {
	if err == nil && !duplicate {
		return true
	}

	p.skipped++

	if duplicate {
		slog.Warn("skipping duplicate record", "kind", kind, "id", id)
		return false
	}

	slog.Warn("skipping inconsistent record", "kind", kind, "id", id, "error", err)

	return false
}

func (p *pools) transactionList() []*record.Transaction {
	return slices.SortedFunc(maps.Values(p.transactions), byTransactionID)
}

func (p *pools) settlementList() []*record.Settlement {
	return slices.SortedFunc(maps.Values(p.settlements), func(a, b *record.Settlement) int {
		return cmp.Compare(a.Reference, b.Reference)
	})
}

func (p *pools) adjustmentList() []*record.Adjustment {
	return slices.SortedFunc(maps.Values(p.adjustments), func(a, b *record.Adjustment) int {
		return cmp.Compare(a.ID, b.ID)
	})
}

// remove takes accepted pairs out of the pools.
func (p *pools) remove(accepted []candidate) {
	for _, c := range accepted {
		if c.kind == MatchAdjustment {
			delete(p.adjustments, c.sourceID)
			continue
		}

		delete(p.settlements, c.sourceID)
		delete(p.transactions, c.tx.ID)
	}
}

func (p *pools) stats(phase MatchType, candidates, matched int) PhaseStats {
	return PhaseStats{
		Phase:                 phase,
		Candidates:            candidates,
		Matched:               matched,
		UnmatchedTransactions: len(p.transactions),
		UnmatchedSettlements:  len(p.settlements),
		UnmatchedAdjustments:  len(p.adjustments),
	}
}

func byTransactionID(a, b *record.Transaction) int {
	return cmp.Compare(a.ID, b.ID)
}
