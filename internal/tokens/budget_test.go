package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/beacon/internal/domain"
)

// costed builds a window with preset token costs. IDs are assigned 1..n
// so truncation order can be asserted by id.
func costed(costs ...int) []domain.Turn {
	turns := make([]domain.Turn, len(costs))
	for i, cost := range costs {
		turns[i] = domain.Turn{
			ID:      int64(i + 1),
			Role:    domain.RoleUser,
			Content: "original content",
			Tokens:  cost,
		}
	}
	return turns
}

func testBudgeter() *Budgeter {
	return NewBudgeter(testCounter())
}

func TestFitUnderLimitUnchanged(t *testing.T) {
	b := testBudgeter()
	turns := costed(10, 20, 30)

	out, report := b.Fit(turns, 100, 5)
	assert.Equal(t, turns, out)
	assert.False(t, report.Evicted())
}

func TestFitLargestFirst(t *testing.T) {
	b := testBudgeter()
	// Oldest to newest: 10, 50, 5, 80, 3 — all non-protected.
	turns := costed(10, 50, 5, 80, 3)

	out, report := b.Fit(turns, 110, 0)

	// Only the 80-token turn (id 4) needs truncating.
	require.Equal(t, []int64{4}, report.TruncatedIDs)
	assert.Equal(t, 0, report.Dropped)
	assert.Equal(t, Placeholder(4), out[3].Content)
	assert.Equal(t, "original content", out[0].Content)
	assert.Equal(t, "original content", out[1].Content)
	assert.Less(t, testCounter().Sum(out), 110)
}

func TestFitEvictionOrder(t *testing.T) {
	b := testBudgeter()
	turns := costed(10, 150, 5, 300, 3)

	out, report := b.Fit(turns, 180, 0)

	// Largest first: the 300-token turn (id 4), then the 150-token one
	// (id 2). The small turns are never touched before those.
	require.Equal(t, []int64{4, 2}, report.TruncatedIDs)
	assert.Equal(t, 0, report.Dropped)
	byID := make(map[int64]domain.Turn, len(out))
	for _, tr := range out {
		byID[tr.ID] = tr
	}
	for _, id := range []int64{1, 3, 5} {
		assert.Equal(t, "original content", byID[id].Content, "id %d", id)
	}
	assert.Less(t, testCounter().Sum(out), 180)
}

func TestFitProtectedTail(t *testing.T) {
	b := testBudgeter()
	turns := costed(100, 100, 100, 100)

	out, report := b.Fit(turns, 250, 2)

	// Only the first two turns are truncation candidates.
	for _, id := range report.TruncatedIDs {
		assert.LessOrEqual(t, id, int64(2))
	}
	// The protected tail keeps its content as long as it survives.
	kept := out[len(out)-2:]
	for _, tr := range kept {
		assert.Equal(t, "original content", tr.Content)
	}
	assert.Less(t, testCounter().Sum(out), 250)
}

func TestFitFallbackDropsOldest(t *testing.T) {
	b := testBudgeter()
	// Everything protected: truncation has no candidates, so the
	// fallback must drop whole turns from the oldest end.
	turns := costed(60, 60, 60)

	out, report := b.Fit(turns, 100, 10)

	assert.Empty(t, report.TruncatedIDs)
	assert.Equal(t, 2, report.Dropped)
	require.Len(t, out, 1)
	assert.Equal(t, int64(3), out[0].ID)
}

func TestFitFallbackSingleOversizedTurn(t *testing.T) {
	b := testBudgeter()
	b.MinTruncate = 1000 // force the truncation phase to give up
	turns := costed(500)

	out, report := b.Fit(turns, 100, 0)

	assert.Empty(t, out)
	assert.Equal(t, 1, report.Dropped)
	assert.True(t, report.Evicted())
}

func TestFitSmallTurnsNotWorthTruncating(t *testing.T) {
	b := testBudgeter()
	// All turns at or below the worth threshold: phase one must not
	// touch any content; phase two drops from the oldest end.
	turns := costed(50, 50, 50)

	out, report := b.Fit(turns, 120, 0)

	assert.Empty(t, report.TruncatedIDs)
	assert.Equal(t, 1, report.Dropped)
	require.Len(t, out, 2)
	assert.Equal(t, int64(2), out[0].ID)
	assert.Equal(t, "original content", out[0].Content)
}

func TestFitInsertionScenario(t *testing.T) {
	// Session with limit=100, margin=10 → effective limit 90,
	// protected tail 2, window [40, 40], inserting a 30-token user
	// turn: one of the two earlier turns must be evicted, never the
	// new one.
	b := testBudgeter()
	turns := costed(40, 40, 30)

	out, report := b.Fit(turns, 90, 2)

	require.True(t, report.Evicted())
	assert.Less(t, testCounter().Sum(out), 90)
	// The new turn survives intact at the end of the window.
	last := out[len(out)-1]
	assert.Equal(t, int64(3), last.ID)
	assert.Equal(t, "original content", last.Content)
}

func TestPlaceholderNamesPersistedID(t *testing.T) {
	assert.Contains(t, Placeholder(1234), `get_message({"id": 1234})`)
}
