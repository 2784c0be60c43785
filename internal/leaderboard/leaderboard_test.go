package leaderboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPeriodBounds_Weekly(t *testing.T) {
	// Wednesday 2025-03-12 sits in the Monday 10th .. Sunday 16th week.
	now := time.Date(2025, 3, 12, 15, 30, 0, 0, time.UTC)
	start, end := PeriodBounds(PeriodWeekly, now)

	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC), end)
}

func TestPeriodBounds_WeeklyOnSunday(t *testing.T) {
	// Sunday closes the week; it must not open a new one.
	now := time.Date(2025, 3, 16, 23, 0, 0, 0, time.UTC)
	start, end := PeriodBounds(PeriodWeekly, now)

	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC), end)
}

func TestPeriodBounds_WeeklyOnMonday(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	start, end := PeriodBounds(PeriodWeekly, now)

	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC), end)
}

func TestPeriodBounds_Monthly(t *testing.T) {
	now := time.Date(2025, 2, 14, 9, 0, 0, 0, time.UTC)
	start, end := PeriodBounds(PeriodMonthly, now)

	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), end)
}

func TestPeriodBounds_MonthlyLeapYear(t *testing.T) {
	now := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	_, end := PeriodBounds(PeriodMonthly, now)

	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), end)
}

func TestRank(t *testing.T) {
	scores := []int{300, 250, 250, 100, 50}

	assert.Equal(t, 1, Rank(300, scores))
	assert.Equal(t, 2, Rank(250, scores), "tied scores share a rank")
	assert.Equal(t, 4, Rank(100, scores))
	assert.Equal(t, 6, Rank(10, scores))
	assert.Equal(t, 1, Rank(500, scores))
}

func TestPeriodTypeIsValid(t *testing.T) {
	assert.True(t, PeriodWeekly.IsValid())
	assert.True(t, PeriodMonthly.IsValid())
	assert.False(t, PeriodType("daily").IsValid())
	assert.False(t, PeriodType("").IsValid())
}
