package streak

import (
	"time"

	"quizforgeAPI/internal/progression"
)

// SameDay reports whether a and b fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// Advance runs the streak state machine for activity happening at now,
// given the state read before the update. Transitions:
//
//	no prior activity      -> streak 1 (started)
//	prior date == today    -> unchanged (same-day re-entry is a no-op)
//	prior date == yesterday -> streak+1 (extended)
//	prior date older       -> longest captured, streak back to 1 (reset)
//
// Longest is monotonic non-decreasing across every transition.
func Advance(current, longest int, lastActivity *time.Time, now time.Time) progression.StreakResult {
	res := progression.StreakResult{Current: current, Longest: longest}

	switch {
	case lastActivity == nil:
		res.Current = 1
		res.Outcome = progression.StreakStarted
	case SameDay(*lastActivity, now):
		res.Outcome = progression.StreakUnchanged
	case SameDay(*lastActivity, now.AddDate(0, 0, -1)):
		res.Current = current + 1
		res.Outcome = progression.StreakExtended
	default:
		// Capture the ending run before the reset wipes it.
		if current > res.Longest {
			res.Longest = current
		}
		res.Current = 1
		res.Outcome = progression.StreakReset
	}

	if res.Current > res.Longest {
		res.Longest = res.Current
	}
	return res
}

// ConsecutiveGoalDays counts the run of consecutive calendar days with a
// met daily goal, ending today or yesterday. Dates come from the XP
// ledger's daily-goal entries inside a bounded lookback window; the goal
// streak is derived on read rather than stored, so it can never desync
// from the ledger.
func ConsecutiveGoalDays(goalDates []time.Time, now time.Time) int {
	met := make(map[string]bool, len(goalDates))
	for _, d := range goalDates {
		met[dayKey(d)] = true
	}

	day := now
	if !met[dayKey(day)] {
		day = now.AddDate(0, 0, -1)
		if !met[dayKey(day)] {
			return 0
		}
	}

	count := 0
	for met[dayKey(day)] {
		count++
		day = day.AddDate(0, 0, -1)
	}
	return count
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
