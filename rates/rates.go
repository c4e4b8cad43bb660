/*
Package rates resolves effective-dated monetary rates.

PURPOSE:
  Sell and cost rates change over time. Each change is recorded as a new
  Entry with the date from which it applies; nothing is ever edited in
  place. Resolving "the rate" means picking the latest entry that is not
  after a reference date.

KEY CONCEPTS:
  - Entry: an amount paired with its effective date
  - History: the append-only list of entries for one subject
  - Resolve: the single resolver, parameterized by reference date

RESOLUTION RULES:
  1. Entries with a zero effective date are ignored
  2. Of the remaining entries with EffectiveDate <= ref, the latest date wins
  3. Entries sharing a date: the one appended later wins
  4. No qualifying entry: the rate is zero

The resolver never reads the clock. Callers decide whether "the rate" means
today's rate or the rate at the start of a forecast month.

SEE ALSO:
  - staffing/rates.go: averaging task sell rates for a person
  - forecast/: which reference date a forecast resolves against
*/
package rates

import (
	"github.com/shopspring/decimal"

	"github.com/warp/staffing-engine/generic"
)

// Entry is one rate change.
type Entry struct {
	Amount        decimal.Decimal   `json:"amount"`
	EffectiveDate generic.TimePoint `json:"effectiveDate"`
}

// History holds entries in insertion order. Insertion order is the tie-break
// for entries with the same effective date, so it must never be re-sorted.
type History []Entry

// Append returns a new history with entry added at the end. The receiver is
// left untouched, so a History can be shared between goroutines.
func (h History) Append(entry Entry) History {
	out := make(History, len(h), len(h)+1)
	copy(out, h)
	return append(out, entry)
}

// Resolve returns the amount in effect on ref, or zero when nothing qualifies.
func Resolve(history History, ref generic.TimePoint) decimal.Decimal {
	entry, ok := ResolveEntry(history, ref)
	if !ok {
		return decimal.Zero
	}
	return entry.Amount
}

// ResolveEntry returns the entry in effect on ref.
func ResolveEntry(history History, ref generic.TimePoint) (Entry, bool) {
	var (
		best  Entry
		found bool
	)
	for _, e := range history {
		if e.EffectiveDate.IsZero() || e.EffectiveDate.After(ref) {
			continue
		}
		// >= so a later entry with the same date replaces the earlier one
		if !found || e.EffectiveDate.AfterOrEqual(best.EffectiveDate) {
			best = e
			found = true
		}
	}
	return best, found
}
