package matching

import (
	"time"

	"github.com/MrJamesThe3rd/reconciler/internal/record"
)

const (
	prefixLen = 8
	day       = 24 * time.Hour
)

type bucketKey struct {
	currency string
	day      int64
}

// candidateIndex answers the lookups the phase matchers need without scanning
// the whole transaction pool. It is rebuilt from the current pool at the start
// of each phase and never mutated afterwards, so workers can share it.
type candidateIndex struct {
	byID      map[string]*record.Transaction
	byPrefix  map[string][]*record.Transaction
	byOrderID map[string][]*record.Transaction
	byBucket  map[bucketKey][]*record.Transaction
	byDay     map[int64][]*record.Transaction
}

func newCandidateIndex(txs []*record.Transaction) *candidateIndex {
	ix := &candidateIndex{
		byID:      make(map[string]*record.Transaction, len(txs)),
		byPrefix:  make(map[string][]*record.Transaction),
		byOrderID: make(map[string][]*record.Transaction),
		byBucket:  make(map[bucketKey][]*record.Transaction),
		byDay:     make(map[int64][]*record.Transaction),
	}

	for _, tx := range txs {
		ix.byID[tx.ID] = tx

		if p, ok := idPrefix(tx.ID); ok {
			ix.byPrefix[p] = append(ix.byPrefix[p], tx)
		}

		if tx.MerchantOrderID != "" {
			ix.byOrderID[tx.MerchantOrderID] = append(ix.byOrderID[tx.MerchantOrderID], tx)
		}

		d := dayOf(tx.Timestamp)
		k := bucketKey{currency: tx.Currency, day: d}
		ix.byBucket[k] = append(ix.byBucket[k], tx)
		ix.byDay[d] = append(ix.byDay[d], tx)
	}

	return ix
}

// lookup returns the transaction with exactly this id.
func (ix *candidateIndex) lookup(id string) *record.Transaction {
	return ix.byID[id]
}

// withPrefix returns transactions whose id shares the reference's leading characters.
func (ix *candidateIndex) withPrefix(ref string) []*record.Transaction {
	p, ok := idPrefix(ref)
	if !ok {
		return nil
	}

	return ix.byPrefix[p]
}

// resolve returns the transaction a reference names, by id first and then by
// merchant order id. Ambiguous order ids resolve to the lowest transaction id.
func (ix *candidateIndex) resolve(ref string) *record.Transaction {
	if tx := ix.lookup(ref); tx != nil {
		return tx
	}

	var best *record.Transaction
	for _, tx := range ix.withOrderID(ref) {
		if best == nil || tx.ID < best.ID {
			best = tx
		}
	}

	return best
}

func (ix *candidateIndex) withOrderID(ref string) []*record.Transaction {
	if ref == "" {
		return nil
	}

	return ix.byOrderID[ref]
}

// near returns transactions whose timestamp lies within window of at.
// An empty currency matches every currency.
func (ix *candidateIndex) near(currency string, at time.Time, window time.Duration) []*record.Transaction {
	var out []*record.Transaction

	for d := dayOf(at.Add(-window)); d <= dayOf(at.Add(window)); d++ {
		var bucket []*record.Transaction
		if currency == "" {
			bucket = ix.byDay[d]
		} else {
			bucket = ix.byBucket[bucketKey{currency: currency, day: d}]
		}

		for _, tx := range bucket {
			if WithinWindow(tx.Timestamp, at, window) {
				out = append(out, tx)
			}
		}
	}

	return out
}

func idPrefix(s string) (string, bool) {
	if len(s) < prefixLen {
		return "", false
	}

	return s[:prefixLen], true
}

func dayOf(t time.Time) int64 {
	sec := t.Unix()
	d := sec / int64(day/time.Second)

	if sec < 0 && sec%int64(day/time.Second) != 0 {
		d--
	}

	return d
}
