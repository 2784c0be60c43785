package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"quizforgeAPI/internal/achievement"
	"quizforgeAPI/internal/clock"
	"quizforgeAPI/internal/progression"
	"quizforgeAPI/internal/streak"
	"quizforgeAPI/middleware"
)

// goalStreakLookbackDays bounds the ledger scan that derives the
// consecutive daily-goal streak.
const goalStreakLookbackDays = 30

// maxConflictRetries bounds internal retries when two completions for
// the same user collide; past that the conflict surfaces to the caller
// as progression.ErrConflict and the client may resubmit.
const maxConflictRetries = 3

type ProgressionService struct {
	db           *pgxpool.Pool
	leaderboards *LeaderboardService
	achievements *AchievementService
	levels       *progression.LevelTable
	clock        clock.Clock
}

func NewProgressionService(db *pgxpool.Pool, leaderboards *LeaderboardService, achievements *AchievementService, clk clock.Clock) *ProgressionService {
	return &ProgressionService{
		db:           db,
		leaderboards: leaderboards,
		achievements: achievements,
		levels:       progression.NewLevelTable(nil),
		clock:        clk,
	}
}

// LoadLevelThresholds replaces the compiled-in threshold table with the
// seeded one. The table is near-static reference data, so it is read
// once at startup rather than per award.
func (s *ProgressionService) LoadLevelThresholds(ctx context.Context) error {
	rows, err := s.db.Query(ctx, `SELECT level, xp_required FROM level_thresholds ORDER BY level ASC`)
	if err != nil {
		return fmt.Errorf("failed to load level thresholds: %w", err)
	}
	defer rows.Close()

	var thresholds []progression.LevelThreshold
	for rows.Next() {
		var th progression.LevelThreshold
		if err := rows.Scan(&th.Level, &th.XPRequired); err != nil {
			return fmt.Errorf("failed to scan level threshold: %w", err)
		}
		thresholds = append(thresholds, th)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read level thresholds: %w", err)
	}

	s.levels = progression.NewLevelTable(thresholds)
	return nil
}

// ProcessQuizCompletion turns one scored quiz into durable progression
// changes: XP ledger entries, level, streak, leaderboard rollups and
// achievement grants, in that order. Streak updates before achievement
// evaluation because streak-gated achievements read the just-updated
// longest streak.
func (s *ProgressionService) ProcessQuizCompletion(ctx context.Context, clerkID string, score, totalQuestions int, quizAttemptID uuid.UUID) (*progression.Result, error) {
	if totalQuestions < 1 || score < 0 || score > totalQuestions {
		return nil, progression.ErrInvalidScore
	}

	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	var result *progression.Result
	for attempt := 0; ; attempt++ {
		result, err = s.processOnce(ctx, userID, score, totalQuestions, quizAttemptID)
		if err == nil {
			break
		}
		if !isRetryableConflict(err) {
			return nil, err
		}
		if attempt+1 >= maxConflictRetries {
			log.Printf("Giving up on conflicting completion for user %s after %d attempts: %v", userID, attempt+1, err)
			return nil, progression.ErrConflict
		}
		middleware.RecordConflictRetry()
		time.Sleep(time.Duration(attempt+1) * 25 * time.Millisecond)
	}

	// Achievements run after the main transaction commits. Every grant
	// is idempotent, so a crash between stages loses nothing: the
	// ledger rows already written stay authoritative and a retry of
	// the evaluation is safe.
	if err := s.evaluateAchievements(ctx, userID, result); err != nil {
		log.Printf("Achievement evaluation failed for user %s: %v", userID, err)
	}

	middleware.RecordQuizProcessed(result.XPAwarded)
	return result, nil
}

// processOnce runs the serialized part of the pipeline in a single
// transaction. The FOR UPDATE row lock makes concurrent completions
// for the same user queue up, so one-shot bonuses cannot double-fire
// and increments cannot be lost.
func (s *ProgressionService) processOnce(ctx context.Context, userID uuid.UUID, score, totalQuestions int, quizAttemptID uuid.UUID) (*progression.Result, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	state, err := s.lockState(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()

	// One-shot flags are edge-detected from the state read before the
	// update. Re-reading after the update would also satisfy the
	// condition and re-fire the bonus.
	isFirstToday := state.LastActivityDate == nil || !streak.SameDay(*state.LastActivityDate, now)
	quizzesToday := state.QuizzesToday
	if isFirstToday {
		quizzesToday = 0
	}
	quizzesToday++
	goalMet := state.DailyGoalMet && !isFirstToday
	goalJustMet := !goalMet && quizzesToday >= state.DailyGoal
	isPerfect := score == totalQuestions

	streakBefore := state.CurrentStreak
	if isFirstToday && state.LastActivityDate != nil && !streak.SameDay(*state.LastActivityDate, now.AddDate(0, 0, -1)) {
		// A broken streak earns no streak bonus on the quiz that restarts it.
		streakBefore = 0
	}

	breakdown := progression.CalculateQuizXP(score, totalQuestions, streakBefore, isFirstToday, goalJustMet)

	if err := s.appendBreakdown(ctx, tx, userID, breakdown, &quizAttemptID, now); err != nil {
		return nil, err
	}

	streakResult := streak.Advance(state.CurrentStreak, state.LongestStreak, state.LastActivityDate, now)

	newTotal := state.TotalXP + breakdown.Total
	newLevel := s.levels.LevelFor(newTotal)
	perfectDelta := 0
	if isPerfect {
		perfectDelta = 1
	}

	_, err = tx.Exec(ctx, `
		UPDATE user_progression SET
			total_xp = $2,
			current_level = $3,
			current_streak = $4,
			longest_streak = $5,
			last_activity_date = $6,
			quizzes_today = $7,
			daily_goal_met = $8,
			total_quizzes_completed = total_quizzes_completed + 1,
			total_perfect_scores = total_perfect_scores + $9,
			updated_at = $10
		WHERE user_id = $1
	`, userID, newTotal, newLevel, streakResult.Current, streakResult.Longest,
		now, quizzesToday, goalMet || goalJustMet, perfectDelta, now)
	if err != nil {
		return nil, fmt.Errorf("failed to update progression state: %w", err)
	}

	err = s.leaderboards.RecordAward(ctx, tx, userID, breakdown.Total, 1, perfectDelta, now)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit progression update: %w", err)
	}

	return &progression.Result{
		XPAwarded:  breakdown.Total,
		Breakdown:  breakdown,
		NewTotalXP: newTotal,
		LeveledUp:  newLevel > state.CurrentLevel,
		NewLevel:   newLevel,
		Streak:     streakResult,
	}, nil
}

// evaluateAchievements grants newly met achievements and awards their
// XP. Reward XP may level the user up but never triggers another
// evaluation pass inside the same invocation.
func (s *ProgressionService) evaluateAchievements(ctx context.Context, userID uuid.UUID, result *progression.Result) error {
	snap, err := s.snapshot(ctx, userID)
	if err != nil {
		return err
	}

	eligible, err := s.achievements.EligibleUnlocks(ctx, userID, snap)
	if err != nil {
		return err
	}

	for _, def := range eligible {
		granted, newTotal, newLevel, err := s.grantAchievement(ctx, userID, def)
		if err != nil {
			return fmt.Errorf("failed to grant achievement %s: %w", def.Code, err)
		}
		if !granted {
			// Lost the race to a concurrent grant; the winner awarded the XP.
			continue
		}

		result.UnlockedAchievements = append(result.UnlockedAchievements, progression.Unlocked{
			ID:       def.ID,
			Code:     def.Code,
			Name:     def.Name,
			XPReward: def.XPReward,
		})
		result.NewTotalXP = newTotal
		if newLevel > result.NewLevel {
			result.NewLevel = newLevel
			result.LeveledUp = true
		}
		middleware.RecordAchievementUnlocked()
	}
	return nil
}

// grantAchievement inserts the earned row and awards its reward XP in
// one transaction, under the same per-user row lock as the quiz
// pipeline. The earned row and its ledger entry commit together, so a
// crash cannot strand a grant without its XP. Leaderboard rollups get
// the XP but no quiz count.
func (s *ProgressionService) grantAchievement(ctx context.Context, userID uuid.UUID, def *achievement.Definition) (bool, int, int, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	state, err := s.lockState(ctx, tx, userID)
	if err != nil {
		return false, 0, 0, err
	}

	now := s.clock.Now()
	granted, err := s.achievements.Grant(ctx, tx, userID, def.ID, now)
	if err != nil {
		return false, 0, 0, err
	}
	if !granted {
		return false, state.TotalXP, state.CurrentLevel, nil
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO xp_transactions (id, user_id, amount, reason, quiz_attempt_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.New(), userID, def.XPReward, progression.ReasonAchievement, nil, now)
	if err != nil {
		return false, 0, 0, fmt.Errorf("failed to append XP transaction: %w", err)
	}

	newTotal := state.TotalXP + def.XPReward
	newLevel := s.levels.LevelFor(newTotal)

	_, err = tx.Exec(ctx, `
		UPDATE user_progression SET total_xp = $2, current_level = $3, updated_at = $4
		WHERE user_id = $1
	`, userID, newTotal, newLevel, now)
	if err != nil {
		return false, 0, 0, fmt.Errorf("failed to update XP total: %w", err)
	}

	if err := s.leaderboards.RecordAward(ctx, tx, userID, def.XPReward, 0, 0, now); err != nil {
		return false, 0, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, 0, 0, fmt.Errorf("failed to commit achievement grant: %w", err)
	}
	return true, newTotal, newLevel, nil
}

// appendBreakdown writes one ledger row per non-zero component so the
// reason enum stays queryable (the daily-goal streak derivation scans
// for daily_goal entries by date).
func (s *ProgressionService) appendBreakdown(ctx context.Context, tx pgx.Tx, userID uuid.UUID, b progression.Breakdown, quizAttemptID *uuid.UUID, now time.Time) error {
	components := []struct {
		amount int
		reason progression.XPReason
	}{
		{b.Completion, progression.ReasonCompletion},
		{b.ScoreBonus, progression.ReasonScoreBonus},
		{b.PerfectBonus, progression.ReasonPerfectScore},
		{b.StreakBonus, progression.ReasonStreakBonus},
		{b.FirstOfDay, progression.ReasonFirstOfDay},
		{b.DailyGoal, progression.ReasonDailyGoal},
	}

	for _, c := range components {
		if c.amount == 0 {
			continue
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO xp_transactions (id, user_id, amount, reason, quiz_attempt_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, uuid.New(), userID, c.amount, c.reason, quizAttemptID, now)
		if err != nil {
			return fmt.Errorf("failed to append %s transaction: %w", c.reason, err)
		}
	}
	return nil
}

// lockState lazily creates the progression row and locks it for the
// duration of the transaction.
func (s *ProgressionService) lockState(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*progression.State, error) {
	_, err := tx.Exec(ctx, `
		INSERT INTO user_progression (user_id, daily_goal)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, progression.DefaultDailyGoal)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure progression state: %w", err)
	}

	state := &progression.State{}
	err = tx.QueryRow(ctx, `
		SELECT user_id, total_xp, current_level, current_streak, longest_streak,
			last_activity_date, quizzes_today, daily_goal, daily_goal_met,
			total_quizzes_completed, total_perfect_scores, created_at, updated_at
		FROM user_progression
		WHERE user_id = $1
		FOR UPDATE
	`, userID).Scan(
		&state.UserID, &state.TotalXP, &state.CurrentLevel, &state.CurrentStreak, &state.LongestStreak,
		&state.LastActivityDate, &state.QuizzesToday, &state.DailyGoal, &state.DailyGoalMet,
		&state.TotalQuizzesCompleted, &state.TotalPerfectScores, &state.CreatedAt, &state.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to lock progression state: %w", err)
	}
	return state, nil
}

// snapshot captures everything achievement predicates read, including
// the derived goal streak and the instant of the triggering action.
func (s *ProgressionService) snapshot(ctx context.Context, userID uuid.UUID) (achievement.Snapshot, error) {
	now := s.clock.Now()
	snap := achievement.Snapshot{Now: now}

	err := s.db.QueryRow(ctx, `
		SELECT total_xp, current_level, longest_streak, total_quizzes_completed, total_perfect_scores
		FROM user_progression WHERE user_id = $1
	`, userID).Scan(&snap.TotalXP, &snap.CurrentLevel, &snap.LongestStreak, &snap.TotalQuizzesCompleted, &snap.TotalPerfectScores)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return snap, nil
		}
		return snap, fmt.Errorf("failed to read progression state: %w", err)
	}

	goalDays, err := s.goalStreakDays(ctx, userID, now)
	if err != nil {
		return snap, err
	}
	snap.GoalStreakDays = goalDays
	return snap, nil
}

// goalStreakDays derives the consecutive daily-goal streak from the
// ledger's daily_goal entries within the lookback window.
func (s *ProgressionService) goalStreakDays(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	rows, err := s.db.Query(ctx, `
		SELECT DISTINCT created_at::date
		FROM xp_transactions
		WHERE user_id = $1 AND reason = $2 AND created_at >= $3
	`, userID, progression.ReasonDailyGoal, now.AddDate(0, 0, -goalStreakLookbackDays))
	if err != nil {
		return 0, fmt.Errorf("failed to scan goal transactions: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return 0, fmt.Errorf("failed to scan goal date: %w", err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to read goal dates: %w", err)
	}

	return streak.ConsecutiveGoalDays(dates, now), nil
}

// Snapshot resolves the caller and captures their achievement snapshot
// for display surfaces.
func (s *ProgressionService) Snapshot(ctx context.Context, clerkID string) (uuid.UUID, achievement.Snapshot, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return uuid.Nil, achievement.Snapshot{}, err
	}
	snap, err := s.snapshot(ctx, userID)
	return userID, snap, err
}

// GetGamificationStats assembles the display snapshot: totals, level
// progress, streaks, today's goal state and recent achievements. A
// user without a progression row gets zero-value stats, not an error.
func (s *ProgressionService) GetGamificationStats(ctx context.Context, clerkID string) (*progression.Stats, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	stats := &progression.Stats{CurrentLevel: 1, DailyGoal: progression.DefaultDailyGoal}

	state := &progression.State{}
	err = s.db.QueryRow(ctx, `
		SELECT total_xp, current_level, current_streak, longest_streak,
			quizzes_today, daily_goal, daily_goal_met, last_activity_date,
			total_quizzes_completed, total_perfect_scores
		FROM user_progression WHERE user_id = $1
	`, userID).Scan(
		&state.TotalXP, &state.CurrentLevel, &state.CurrentStreak, &state.LongestStreak,
		&state.QuizzesToday, &state.DailyGoal, &state.DailyGoalMet, &state.LastActivityDate,
		&state.TotalQuizzesCompleted, &state.TotalPerfectScores,
	)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to read progression state: %w", err)
	}

	now := s.clock.Now()
	if err == nil {
		stats.TotalXP = state.TotalXP
		stats.CurrentLevel = state.CurrentLevel
		stats.CurrentStreak = state.CurrentStreak
		stats.LongestStreak = state.LongestStreak
		stats.DailyGoal = state.DailyGoal
		stats.QuizzesCompleted = state.TotalQuizzesCompleted
		stats.PerfectScores = state.TotalPerfectScores
		// quizzes_today and daily_goal_met reset lazily here when the
		// midnight job has not caught up with this user yet.
		if state.LastActivityDate != nil && streak.SameDay(*state.LastActivityDate, now) {
			stats.QuizzesToday = state.QuizzesToday
			stats.DailyGoalMet = state.DailyGoalMet
		}
	}

	stats.XPIntoLevel, stats.XPForNextLevel = s.levels.Progress(stats.TotalXP)

	goalDays, err := s.goalStreakDays(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	stats.GoalStreakDays = goalDays

	rows, err := s.db.Query(ctx, `
		SELECT a.id, a.code, a.name, a.xp_reward
		FROM user_achievements ua
		JOIN achievements a ON a.id = ua.achievement_id
		WHERE ua.user_id = $1
		ORDER BY ua.earned_at DESC
		LIMIT 5
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent achievements: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u progression.Unlocked
		if err := rows.Scan(&u.ID, &u.Code, &u.Name, &u.XPReward); err != nil {
			return nil, fmt.Errorf("failed to scan recent achievement: %w", err)
		}
		stats.RecentAchievements = append(stats.RecentAchievements, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read recent achievements: %w", err)
	}

	return stats, nil
}

// SetDailyGoal updates the per-day quiz target. Out-of-range goals are
// rejected at this boundary.
func (s *ProgressionService) SetDailyGoal(ctx context.Context, clerkID string, goal int) error {
	if goal < progression.MinDailyGoal || goal > progression.MaxDailyGoal {
		return progression.ErrInvalidDailyGoal
	}

	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO user_progression (user_id, daily_goal)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET daily_goal = EXCLUDED.daily_goal, updated_at = NOW()
	`, userID, goal)
	if err != nil {
		return fmt.Errorf("failed to set daily goal: %w", err)
	}
	return nil
}

// ResetDailyCounters is the midnight job: zero out the per-day
// counters for everyone whose last activity predates today. The date
// guard keeps the catch-up run at startup from wiping counters that
// belong to the current day, which would let the daily-goal bonus
// re-fire. Plain idempotent UPDATE, safe to re-run.
func (s *ProgressionService) ResetDailyCounters(ctx context.Context) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE user_progression
		SET quizzes_today = 0, daily_goal_met = FALSE
		WHERE (quizzes_today > 0 OR daily_goal_met = TRUE)
			AND last_activity_date < CURRENT_DATE
	`)
	if err != nil {
		return fmt.Errorf("failed to reset daily counters: %w", err)
	}
	log.Printf("Daily counters reset for %d users", tag.RowsAffected())
	return nil
}

func (s *ProgressionService) resolveUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, progression.ErrUserNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	return userID, nil
}

func isRetryableConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// serialization_failure and deadlock_detected
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
