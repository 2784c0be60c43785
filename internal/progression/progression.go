package progression

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type XPReason string

const (
	ReasonCompletion   XPReason = "completion"
	ReasonScoreBonus   XPReason = "score_bonus"
	ReasonPerfectScore XPReason = "perfect_score"
	ReasonStreakBonus  XPReason = "streak_bonus"
	ReasonDailyGoal    XPReason = "daily_goal"
	ReasonFirstOfDay   XPReason = "first_of_day"
	ReasonAchievement  XPReason = "achievement"
)

// State is the single mutable progression row per user. It is created
// lazily on the first scoring event and lives for the account lifetime.
type State struct {
	UserID                uuid.UUID  `json:"user_id" db:"user_id"`
	TotalXP               int        `json:"total_xp" db:"total_xp"`
	CurrentLevel          int        `json:"current_level" db:"current_level"`
	CurrentStreak         int        `json:"current_streak" db:"current_streak"`
	LongestStreak         int        `json:"longest_streak" db:"longest_streak"`
	LastActivityDate      *time.Time `json:"last_activity_date" db:"last_activity_date"`
	QuizzesToday          int        `json:"quizzes_today" db:"quizzes_today"`
	DailyGoal             int        `json:"daily_goal" db:"daily_goal"`
	DailyGoalMet          bool       `json:"daily_goal_met" db:"daily_goal_met"`
	TotalQuizzesCompleted int        `json:"total_quizzes_completed" db:"total_quizzes_completed"`
	TotalPerfectScores    int        `json:"total_perfect_scores" db:"total_perfect_scores"`
	CreatedAt             time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at" db:"updated_at"`
}

// XPTransaction is one append-only ledger entry. The sum of a user's
// transactions always equals State.TotalXP.
type XPTransaction struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	UserID        uuid.UUID  `json:"user_id" db:"user_id"`
	Amount        int        `json:"amount" db:"amount"`
	Reason        XPReason   `json:"reason" db:"reason"`
	QuizAttemptID *uuid.UUID `json:"quiz_attempt_id,omitempty" db:"quiz_attempt_id"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

type StreakOutcome string

const (
	StreakStarted   StreakOutcome = "started"
	StreakUnchanged StreakOutcome = "unchanged"
	StreakExtended  StreakOutcome = "extended"
	StreakReset     StreakOutcome = "reset"
)

type StreakResult struct {
	Current int           `json:"current"`
	Longest int           `json:"longest"`
	Outcome StreakOutcome `json:"outcome"`
}

// Result is returned from a processed quiz completion.
type Result struct {
	XPAwarded            int          `json:"xp_awarded"`
	Breakdown            Breakdown    `json:"breakdown"`
	NewTotalXP           int          `json:"new_total_xp"`
	LeveledUp            bool         `json:"leveled_up"`
	NewLevel             int          `json:"new_level"`
	Streak               StreakResult `json:"streak"`
	UnlockedAchievements []Unlocked   `json:"unlocked_achievements"`
}

// Unlocked is the slim achievement view embedded in a Result.
type Unlocked struct {
	ID       uuid.UUID `json:"id"`
	Code     string    `json:"code"`
	Name     string    `json:"name"`
	XPReward int       `json:"xp_reward"`
}

// Stats is the display snapshot for the gamification panel.
type Stats struct {
	TotalXP            int        `json:"total_xp"`
	CurrentLevel       int        `json:"current_level"`
	XPIntoLevel        int        `json:"xp_into_level"`
	XPForNextLevel     int        `json:"xp_for_next_level"`
	CurrentStreak      int        `json:"current_streak"`
	LongestStreak      int        `json:"longest_streak"`
	QuizzesToday       int        `json:"quizzes_today"`
	DailyGoal          int        `json:"daily_goal"`
	DailyGoalMet       bool       `json:"daily_goal_met"`
	GoalStreakDays     int        `json:"goal_streak_days"`
	QuizzesCompleted   int        `json:"quizzes_completed"`
	PerfectScores      int        `json:"perfect_scores"`
	RecentAchievements []Unlocked `json:"recent_achievements"`
}

const (
	MinDailyGoal     = 1
	MaxDailyGoal     = 20
	DefaultDailyGoal = 3
)

var (
	ErrInvalidDailyGoal = errors.New("daily goal must be between 1 and 20")
	ErrInvalidScore     = errors.New("score must be between 0 and total questions")
	ErrConflict         = errors.New("concurrent update conflict, please retry")
	ErrUserNotFound     = errors.New("user not found")
)
