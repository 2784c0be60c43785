package leaderboard

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyRoster rejects a class leaderboard request without members.
var ErrEmptyRoster = errors.New("roster must not be empty")

type PeriodType string

const (
	PeriodWeekly  PeriodType = "weekly"
	PeriodMonthly PeriodType = "monthly"
)

func (p PeriodType) IsValid() bool {
	return p == PeriodWeekly || p == PeriodMonthly
}

// Period is one bounded ranking window. At most one period per type is
// active at a time; a new period starts fresh entries instead of
// mutating the old ones.
type Period struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	PeriodType PeriodType `json:"period_type" db:"period_type"`
	StartDate  time.Time  `json:"start_date" db:"start_date"`
	EndDate    time.Time  `json:"end_date" db:"end_date"`
	IsActive   bool       `json:"is_active" db:"is_active"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// Entry is the additive rollup for one user inside one period.
type Entry struct {
	ID               uuid.UUID `json:"id" db:"id"`
	PeriodID         uuid.UUID `json:"period_id" db:"period_id"`
	UserID           uuid.UUID `json:"user_id" db:"user_id"`
	XPEarned         int       `json:"xp_earned" db:"xp_earned"`
	QuizzesCompleted int       `json:"quizzes_completed" db:"quizzes_completed"`
	PerfectScores    int       `json:"perfect_scores" db:"perfect_scores"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

type RankedEntry struct {
	Rank             int       `json:"rank"`
	UserID           uuid.UUID `json:"user_id"`
	Username         string    `json:"username"`
	ImageURL         *string   `json:"image_url"`
	XPEarned         int       `json:"xp_earned"`
	QuizzesCompleted int       `json:"quizzes_completed"`
}

type Leaderboard struct {
	PeriodType PeriodType     `json:"period_type"`
	StartDate  time.Time      `json:"start_date"`
	EndDate    time.Time      `json:"end_date"`
	Entries    []*RankedEntry `json:"entries"`
	CallerRank int            `json:"caller_rank"`
	TotalUsers int            `json:"total_users"`
}

// PeriodBounds returns the calendar window containing now: Monday
// through Sunday for weekly, first through last day of the month for
// monthly. Bounds are dates (midnight, inclusive).
func PeriodBounds(pt PeriodType, now time.Time) (start, end time.Time) {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	switch pt {
	case PeriodMonthly:
		start = time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 1, -1)
	default:
		weekday := int(today.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday closes the week, Monday opens it
		}
		start = today.AddDate(0, 0, 1-weekday)
		end = start.AddDate(0, 0, 6)
	}
	return start, end
}

// Rank returns the standing for xp among all scores: one plus the
// number of strictly greater scores, so ties share a rank.
func Rank(xp int, scores []int) int {
	rank := 1
	for _, s := range scores {
		if s > xp {
			rank++
		}
	}
	return rank
}
