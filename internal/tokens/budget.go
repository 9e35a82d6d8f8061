package tokens

import (
	"fmt"
	"sort"

	"github.com/soyeahso/beacon/internal/domain"
)

// DefaultMinTruncate is the smallest turn worth truncating: replacing a
// turn at or below this cost with the placeholder recovers next to
// nothing.
const DefaultMinTruncate = 50

// Placeholder is the content a truncated turn is rewritten to. It names
// the persisted id so the model can re-fetch the full text on demand.
func Placeholder(id int64) string {
	return fmt.Sprintf("<message too long, use `get_message({\"id\": %d})` to view>", id)
}

// Report describes what Fit had to evict. The fallback drop path is
// lossy and must stay observable, hence the explicit counters.
type Report struct {
	TruncatedIDs []int64 // turns whose content became the placeholder
	Dropped      int     // whole turns removed from the oldest end
}

// Evicted reports whether Fit changed anything.
func (r Report) Evicted() bool {
	return len(r.TruncatedIDs) > 0 || r.Dropped > 0
}

// Budgeter trims a turn window until its total token cost is under a
// limit.
type Budgeter struct {
	counter *Counter

	// MinTruncate overrides DefaultMinTruncate when positive.
	MinTruncate int
}

// NewBudgeter creates a budgeter over the given counter.
func NewBudgeter(counter *Counter) *Budgeter {
	return &Budgeter{counter: counter}
}

func (b *Budgeter) minTruncate() int {
	if b.MinTruncate > 0 {
		return b.MinTruncate
	}
	return DefaultMinTruncate
}

// Fit returns a copy of turns whose total cost is strictly under limit.
//
// Phase one truncates content largest-first among the turns outside the
// protected tail (the most recent protectedTail turns), rewriting each
// victim to the placeholder and recomputing its cost before re-summing.
// Phase two, reached only if truncation alone cannot satisfy the limit,
// drops whole turns from the oldest end of the entire sequence,
// protected tail included. The hard invariant always holds on return
// unless the sequence is empty.
func (b *Budgeter) Fit(turns []domain.Turn, limit, protectedTail int) ([]domain.Turn, Report) {
	var report Report

	out := make([]domain.Turn, len(turns))
	copy(out, turns)

	if b.counter.Sum(out) < limit {
		return out, report
	}

	cut := len(out) - protectedTail
	if cut < 0 {
		cut = 0
	}
	candidates := make([]int, cut)
	for i := range candidates {
		candidates[i] = i
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return out[candidates[i]].Tokens > out[candidates[j]].Tokens
	})

	for _, idx := range candidates {
		if b.counter.Sum(out) < limit {
			return out, report
		}
		// Candidates are sorted descending, so once one is below the
		// threshold the rest are too.
		if out[idx].Tokens <= b.minTruncate() {
			break
		}
		out[idx].Content = Placeholder(out[idx].ID)
		// Recompute immediately: summing stale counts would never
		// converge.
		out[idx].Tokens = b.counter.CountTurn(out[idx])
		report.TruncatedIDs = append(report.TruncatedIDs, out[idx].ID)
	}

	for len(out) > 0 && b.counter.Sum(out) >= limit {
		out = out[1:]
		report.Dropped++
	}

	return out, report
}
