package achievement

import (
	"time"

	"github.com/google/uuid"
)

type RequirementType string

const (
	RequirementCount   RequirementType = "count"
	RequirementStreak  RequirementType = "streak"
	RequirementScore   RequirementType = "score"
	RequirementSpecial RequirementType = "special"
)

// Special achievement codes. Specials carry their own evaluation rule
// keyed by code since they read something other than a single counter.
const (
	CodeLevel      = "level"
	CodeTotalXP    = "total_xp"
	CodeGoalStreak = "goal_streak"
	CodeNightOwl   = "night_owl"
	CodeEarlyBird  = "early_bird"
)

type Definition struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	Code             string          `json:"code" db:"code"`
	Name             string          `json:"name" db:"name"`
	Description      string          `json:"description" db:"description"`
	Icon             string          `json:"icon" db:"icon"`
	RequirementType  RequirementType `json:"requirement_type" db:"requirement_type"`
	RequirementValue int             `json:"requirement_value" db:"requirement_value"`
	XPReward         int             `json:"xp_reward" db:"xp_reward"`
	Hidden           bool            `json:"hidden" db:"hidden"`
	SortOrder        int             `json:"sort_order" db:"sort_order"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
}

type UserAchievement struct {
	ID            uuid.UUID `json:"id" db:"id"`
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	AchievementID uuid.UUID `json:"achievement_id" db:"achievement_id"`
	EarnedAt      time.Time `json:"earned_at" db:"earned_at"`
}

type Progress struct {
	Current  int `json:"current"`
	Required int `json:"required"`
}

type WithStatus struct {
	Definition
	Earned   bool       `json:"earned"`
	EarnedAt *time.Time `json:"earned_at,omitempty"`
	Progress Progress   `json:"progress"`
}

type AchievementList struct {
	Earned    []*WithStatus `json:"earned"`
	Available []*WithStatus `json:"available"`
}
