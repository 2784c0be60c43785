package database

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"quizforgeAPI/internal/progression"
)

// schema holds the engine's tables. Statements are idempotent so
// Bootstrap is safe to run on every start.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		clerk_id TEXT UNIQUE NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		username TEXT NOT NULL DEFAULT '',
		image_url TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS user_progression (
		user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		total_xp INT NOT NULL DEFAULT 0,
		current_level INT NOT NULL DEFAULT 1,
		current_streak INT NOT NULL DEFAULT 0,
		longest_streak INT NOT NULL DEFAULT 0,
		last_activity_date DATE,
		quizzes_today INT NOT NULL DEFAULT 0,
		daily_goal INT NOT NULL DEFAULT 3,
		daily_goal_met BOOLEAN NOT NULL DEFAULT FALSE,
		total_quizzes_completed INT NOT NULL DEFAULT 0,
		total_perfect_scores INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS xp_transactions (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		amount INT NOT NULL,
		reason TEXT NOT NULL,
		quiz_attempt_id UUID,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_xp_transactions_user_reason
		ON xp_transactions (user_id, reason, created_at)`,
	`CREATE TABLE IF NOT EXISTS level_thresholds (
		level INT PRIMARY KEY,
		xp_required INT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS achievements (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		code TEXT UNIQUE NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		icon TEXT NOT NULL DEFAULT '',
		requirement_type TEXT NOT NULL,
		requirement_value INT NOT NULL,
		xp_reward INT NOT NULL DEFAULT 0,
		hidden BOOLEAN NOT NULL DEFAULT FALSE,
		sort_order INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS user_achievements (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		achievement_id UUID NOT NULL REFERENCES achievements(id) ON DELETE CASCADE,
		earned_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, achievement_id)
	)`,
	`CREATE TABLE IF NOT EXISTS leaderboard_periods (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		period_type TEXT NOT NULL,
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (period_type, start_date)
	)`,
	`CREATE TABLE IF NOT EXISTS leaderboard_entries (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		period_id UUID NOT NULL REFERENCES leaderboard_periods(id) ON DELETE CASCADE,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		xp_earned INT NOT NULL DEFAULT 0,
		quizzes_completed INT NOT NULL DEFAULT 0,
		perfect_scores INT NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (period_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_leaderboard_entries_period_xp
		ON leaderboard_entries (period_id, xp_earned DESC)`,
}

// seedAchievements is the default achievement catalog. code is the
// stable key; re-running the seed never duplicates or overwrites rows.
type seedAchievement struct {
	code, name, description, icon string
	reqType                       string
	reqValue, xpReward, sortOrder int
	hidden                        bool
}

var seedAchievements = []seedAchievement{
	{"first_quiz", "First Steps", "Complete your first quiz", "🎯", "count", 1, 10, 10, false},
	{"quizzes_10", "Getting Serious", "Complete 10 quizzes", "📚", "count", 10, 25, 20, false},
	{"quizzes_50", "Half Century", "Complete 50 quizzes", "🏅", "count", 50, 50, 30, false},
	{"quizzes_100", "Centurion", "Complete 100 quizzes", "💯", "count", 100, 100, 40, false},
	{"streak_3", "Warming Up", "Reach a 3-day streak", "🔥", "streak", 3, 15, 50, false},
	{"streak_7", "Week Warrior", "Reach a 7-day streak", "⚡", "streak", 7, 30, 60, false},
	{"streak_30", "Monthly Master", "Reach a 30-day streak", "🌟", "streak", 30, 150, 70, false},
	{"perfect_1", "Flawless", "Score your first perfect quiz", "✨", "score", 1, 15, 80, false},
	{"perfect_10", "Perfectionist", "Score 10 perfect quizzes", "💎", "score", 10, 50, 90, false},
	{"perfect_25", "Machine", "Score 25 perfect quizzes", "🤖", "score", 25, 100, 100, false},
	{"level_5", "Rising Star", "Reach level 5", "⭐", "special", 5, 25, 110, false},
	{"level_10", "Powerhouse", "Reach level 10", "🚀", "special", 10, 75, 120, false},
	{"total_xp_5000", "XP Hoarder", "Earn 5,000 total XP", "💰", "special", 5000, 100, 130, false},
	{"goal_streak_7", "Goal Getter", "Meet your daily goal 7 days in a row", "🎯", "special", 7, 50, 140, false},
	{"night_owl", "Night Owl", "Complete a quiz after 10pm", "🦉", "special", 22, 10, 150, true},
	{"early_bird", "Early Bird", "Complete a quiz before 7am", "🐦", "special", 7, 10, 160, true},
}

// Bootstrap creates the schema and seeds reference data. It runs at
// every start and is a no-op when everything is already in place.
func Bootstrap(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run schema statement: %w", err)
		}
	}

	for _, th := range progression.DefaultLevelThresholds {
		_, err := pool.Exec(ctx, `
			INSERT INTO level_thresholds (level, xp_required)
			VALUES ($1, $2)
			ON CONFLICT (level) DO NOTHING
		`, th.Level, th.XPRequired)
		if err != nil {
			return fmt.Errorf("failed to seed level threshold %d: %w", th.Level, err)
		}
	}

	for _, a := range seedAchievements {
		_, err := pool.Exec(ctx, `
			INSERT INTO achievements (code, name, description, icon, requirement_type, requirement_value, xp_reward, hidden, sort_order)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (code) DO NOTHING
		`, a.code, a.name, a.description, a.icon, a.reqType, a.reqValue, a.xpReward, a.hidden, a.sortOrder)
		if err != nil {
			return fmt.Errorf("failed to seed achievement %s: %w", a.code, err)
		}
	}

	log.Println("Database schema and seed data are in place")
	return nil
}
