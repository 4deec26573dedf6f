package timeline

import (
	"testing"

	"wisefido-therapy/internal/models"

	"github.com/stretchr/testify/require"
)

func event(id string, ordinal, sequence int, start int64, kind models.EventKind) models.BreathEvent {
	return models.BreathEvent{
		EventID:      id,
		Kind:         kind,
		ScopeOrdinal: ordinal,
		Sequence:     sequence,
		StartTime:    start,
		EndTime:      start + 1000,
		DurationMs:   1000,
	}
}

func TestSequence_TotalOrder(t *testing.T) {
	in := []models.BreathEvent{
		event("e3", 1, 1, 300, models.EventExhale),
		event("g2", 0, 2, 200, models.EventGap),
		event("e1", 0, 1, 100, models.EventExhale),
		event("e4", 0, 3, 250, models.EventExhale), // same sequence as g4, earlier start wins
		event("g4", 0, 3, 260, models.EventGap),
	}

	out := Sequence(in)
	ids := make([]string, 0, len(out))
	for _, ev := range out {
		ids = append(ids, ev.EventID)
	}
	require.Equal(t, []string{"e1", "g2", "e4", "g4", "e3"}, ids)
}

func TestSequence_Idempotent(t *testing.T) {
	in := []models.BreathEvent{
		event("b", 0, 2, 50, models.EventGap),
		event("a", 0, 1, 10, models.EventExhale),
		event("c", 1, 1, 5, models.EventExhale),
	}
	once := Sequence(in)
	twice := Sequence(once)
	require.Equal(t, once, twice)
}

func TestSequence_PreservesMultisetAndInput(t *testing.T) {
	in := []models.BreathEvent{
		event("x", 0, 2, 20, models.EventExhale),
		event("y", 0, 1, 10, models.EventGap),
	}
	out := Sequence(in)
	require.Len(t, out, len(in))

	// input slice untouched
	require.Equal(t, "x", in[0].EventID)

	seen := map[string]int{}
	for _, ev := range out {
		seen[ev.EventID]++
	}
	require.Equal(t, map[string]int{"x": 1, "y": 1}, seen)
}

func TestSequence_StableOnFullTie(t *testing.T) {
	in := []models.BreathEvent{
		event("first", 0, 1, 100, models.EventExhale),
		event("second", 0, 1, 100, models.EventGap),
	}
	out := Sequence(in)
	require.Equal(t, "first", out[0].EventID)
	require.Equal(t, "second", out[1].EventID)
}

func TestExhales_FiltersGapsAfterSorting(t *testing.T) {
	in := []models.BreathEvent{
		event("e2", 0, 3, 30, models.EventExhale),
		event("g1", 0, 2, 20, models.EventGap),
		event("e1", 0, 1, 10, models.EventExhale),
	}
	out := Exhales(in)
	require.Len(t, out, 2)
	require.Equal(t, "e1", out[0].EventID)
	require.Equal(t, "e2", out[1].EventID)
}
