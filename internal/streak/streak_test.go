package streak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"quizforgeAPI/internal/progression"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestAdvance_FirstActivityStartsStreak(t *testing.T) {
	res := Advance(0, 0, nil, date(2025, 3, 10))

	assert.Equal(t, progression.StreakStarted, res.Outcome)
	assert.Equal(t, 1, res.Current)
	assert.Equal(t, 1, res.Longest)
}

func TestAdvance_SameDayIsNoOp(t *testing.T) {
	last := date(2025, 3, 10)
	res := Advance(4, 6, &last, date(2025, 3, 10).Add(9*time.Hour))

	assert.Equal(t, progression.StreakUnchanged, res.Outcome)
	assert.Equal(t, 4, res.Current)
	assert.Equal(t, 6, res.Longest)
}

func TestAdvance_ConsecutiveDayExtends(t *testing.T) {
	last := date(2025, 3, 10)
	res := Advance(4, 6, &last, date(2025, 3, 11))

	assert.Equal(t, progression.StreakExtended, res.Outcome)
	assert.Equal(t, 5, res.Current)
	assert.Equal(t, 6, res.Longest)
}

func TestAdvance_ExtensionUpdatesLongest(t *testing.T) {
	last := date(2025, 3, 10)
	res := Advance(6, 6, &last, date(2025, 3, 11))

	assert.Equal(t, 7, res.Current)
	assert.Equal(t, 7, res.Longest)
}

func TestAdvance_GapResetsAndPreservesLongest(t *testing.T) {
	last := date(2025, 3, 10)
	res := Advance(12, 12, &last, date(2025, 3, 13))

	assert.Equal(t, progression.StreakReset, res.Outcome)
	assert.Equal(t, 1, res.Current)
	assert.Equal(t, 12, res.Longest, "longest survives the reset")
}

func TestAdvance_ResetCapturesEndingRun(t *testing.T) {
	last := date(2025, 3, 10)
	res := Advance(5, 3, &last, date(2025, 3, 14))

	assert.Equal(t, 1, res.Current)
	assert.Equal(t, 5, res.Longest, "ending run is captured before the reset")
}

func TestAdvance_MonthBoundary(t *testing.T) {
	last := date(2025, 3, 31)
	res := Advance(2, 2, &last, date(2025, 4, 1))

	assert.Equal(t, progression.StreakExtended, res.Outcome)
	assert.Equal(t, 3, res.Current)
}

func TestSameDay(t *testing.T) {
	assert.True(t, SameDay(date(2025, 3, 10), date(2025, 3, 10).Add(11*time.Hour)))
	assert.False(t, SameDay(date(2025, 3, 10), date(2025, 3, 11)))
	assert.False(t, SameDay(date(2024, 3, 10), date(2025, 3, 10)))
}

func TestConsecutiveGoalDays(t *testing.T) {
	now := date(2025, 3, 10)

	t.Run("no goal days", func(t *testing.T) {
		assert.Equal(t, 0, ConsecutiveGoalDays(nil, now))
	})

	t.Run("run ending today", func(t *testing.T) {
		days := []time.Time{date(2025, 3, 8), date(2025, 3, 9), date(2025, 3, 10)}
		assert.Equal(t, 3, ConsecutiveGoalDays(days, now))
	})

	t.Run("run ending yesterday still counts", func(t *testing.T) {
		days := []time.Time{date(2025, 3, 8), date(2025, 3, 9)}
		assert.Equal(t, 2, ConsecutiveGoalDays(days, now))
	})

	t.Run("run broken two days ago", func(t *testing.T) {
		days := []time.Time{date(2025, 3, 6), date(2025, 3, 7), date(2025, 3, 8)}
		assert.Equal(t, 0, ConsecutiveGoalDays(days, now))
	})

	t.Run("gap in the middle stops the count", func(t *testing.T) {
		days := []time.Time{date(2025, 3, 5), date(2025, 3, 6), date(2025, 3, 9), date(2025, 3, 10)}
		assert.Equal(t, 2, ConsecutiveGoalDays(days, now))
	})

	t.Run("duplicate entries on one day count once", func(t *testing.T) {
		days := []time.Time{date(2025, 3, 10), date(2025, 3, 10).Add(2 * time.Hour)}
		assert.Equal(t, 1, ConsecutiveGoalDays(days, now))
	})
}
