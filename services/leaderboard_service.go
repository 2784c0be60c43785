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

	"quizforgeAPI/internal/clock"
	"quizforgeAPI/internal/leaderboard"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so award
// rollups can ride inside the caller's transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type LeaderboardService struct {
	db    *pgxpool.Pool
	cache *LeaderboardCache
	clock clock.Clock
}

func NewLeaderboardService(db *pgxpool.Pool, cache *LeaderboardCache, clk clock.Clock) *LeaderboardService {
	return &LeaderboardService{db: db, cache: cache, clock: clk}
}

// RecordAward adds an XP award to the rollup row of every active
// period. Increments are additive upserts so concurrently landing
// awards for the same row never overwrite each other.
func (s *LeaderboardService) RecordAward(ctx context.Context, q querier, userID uuid.UUID, xp, quizzes, perfects int, now time.Time) error {
	for _, pt := range []leaderboard.PeriodType{leaderboard.PeriodWeekly, leaderboard.PeriodMonthly} {
		periodID, err := s.activePeriod(ctx, q, pt, now)
		if err != nil {
			return fmt.Errorf("failed to resolve active %s period: %w", pt, err)
		}

		_, err = q.Exec(ctx, `
			INSERT INTO leaderboard_entries (id, period_id, user_id, xp_earned, quizzes_completed, perfect_scores, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (period_id, user_id) DO UPDATE SET
				xp_earned = leaderboard_entries.xp_earned + EXCLUDED.xp_earned,
				quizzes_completed = leaderboard_entries.quizzes_completed + EXCLUDED.quizzes_completed,
				perfect_scores = leaderboard_entries.perfect_scores + EXCLUDED.perfect_scores,
				updated_at = EXCLUDED.updated_at
		`, uuid.New(), periodID, userID, xp, quizzes, perfects, now)
		if err != nil {
			return fmt.Errorf("failed to upsert %s leaderboard entry: %w", pt, err)
		}
	}
	return nil
}

// activePeriod returns the active period covering now, creating it on
// demand so a missed rollover tick costs nothing.
func (s *LeaderboardService) activePeriod(ctx context.Context, q querier, pt leaderboard.PeriodType, now time.Time) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.QueryRow(ctx, `
		SELECT id FROM leaderboard_periods
		WHERE period_type = $1 AND is_active = TRUE AND $2::date BETWEEN start_date AND end_date
	`, pt, now).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("failed to look up active period: %w", err)
	}

	start, end := leaderboard.PeriodBounds(pt, now)

	_, err = q.Exec(ctx, `
		UPDATE leaderboard_periods SET is_active = FALSE
		WHERE period_type = $1 AND is_active = TRUE AND end_date < $2::date
	`, pt, now)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to close expired periods: %w", err)
	}

	err = q.QueryRow(ctx, `
		INSERT INTO leaderboard_periods (id, period_type, start_date, end_date, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (period_type, start_date) DO UPDATE SET is_active = TRUE
		RETURNING id
	`, uuid.New(), pt, start, end).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to open period: %w", err)
	}
	return id, nil
}

// GetLeaderboard returns the top entries of the active period plus the
// caller's rank. Ranking is computed on read, never stored; the
// caller's rank is one plus the count of strictly greater scores even
// when they fall outside the requested page.
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, clerkID string, pt leaderboard.PeriodType, limit int) (*leaderboard.Leaderboard, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	periodID, err := s.activePeriod(ctx, s.db, pt, s.clock.Now())
	if err != nil {
		return nil, err
	}

	var period leaderboard.Period
	err = s.db.QueryRow(ctx, `
		SELECT period_type, start_date, end_date FROM leaderboard_periods WHERE id = $1
	`, periodID).Scan(&period.PeriodType, &period.StartDate, &period.EndDate)
	if err != nil {
		return nil, fmt.Errorf("failed to load period: %w", err)
	}

	cacheKey := fmt.Sprintf("leaderboard:%s:%s:%d", pt, periodID, limit)
	board, hit := s.cache.Get(ctx, cacheKey)
	if !hit {
		board = &leaderboard.Leaderboard{
			PeriodType: period.PeriodType,
			StartDate:  period.StartDate,
			EndDate:    period.EndDate,
		}

		rows, err := s.db.Query(ctx, `
			SELECT
				RANK() OVER (ORDER BY le.xp_earned DESC) AS rank,
				le.user_id,
				u.username,
				u.image_url,
				le.xp_earned,
				le.quizzes_completed
			FROM leaderboard_entries le
			JOIN users u ON u.id = le.user_id
			WHERE le.period_id = $1
			ORDER BY le.xp_earned DESC, u.username ASC
			LIMIT $2
		`, periodID, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch leaderboard: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			entry := &leaderboard.RankedEntry{}
			if err := rows.Scan(&entry.Rank, &entry.UserID, &entry.Username, &entry.ImageURL, &entry.XPEarned, &entry.QuizzesCompleted); err != nil {
				return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
			}
			board.Entries = append(board.Entries, entry)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to read leaderboard rows: %w", err)
		}

		err = s.db.QueryRow(ctx, `SELECT COUNT(*) FROM leaderboard_entries WHERE period_id = $1`, periodID).Scan(&board.TotalUsers)
		if err != nil {
			return nil, fmt.Errorf("failed to count leaderboard entries: %w", err)
		}

		s.cache.Set(ctx, cacheKey, board)
	}

	// Caller rank is always computed fresh; the cached page may be a
	// few seconds stale but the caller's own standing should not be.
	err = s.db.QueryRow(ctx, `
		SELECT COUNT(*) + 1 FROM leaderboard_entries
		WHERE period_id = $1
		AND xp_earned > COALESCE(
			(SELECT xp_earned FROM leaderboard_entries WHERE period_id = $1 AND user_id = $2), 0)
	`, periodID, userID).Scan(&board.CallerRank)
	if err != nil {
		return nil, fmt.Errorf("failed to compute caller rank: %w", err)
	}

	return board, nil
}

// GetClassLeaderboard restricts the same computation to a roster
// subset. The roster comes from the class-management collaborator; no
// individual caller rank is computed.
func (s *LeaderboardService) GetClassLeaderboard(ctx context.Context, pt leaderboard.PeriodType, roster []uuid.UUID, limit int) (*leaderboard.Leaderboard, error) {
	if len(roster) == 0 {
		return nil, leaderboard.ErrEmptyRoster
	}

	periodID, err := s.activePeriod(ctx, s.db, pt, s.clock.Now())
	if err != nil {
		return nil, err
	}

	board := &leaderboard.Leaderboard{PeriodType: pt}
	err = s.db.QueryRow(ctx, `
		SELECT start_date, end_date FROM leaderboard_periods WHERE id = $1
	`, periodID).Scan(&board.StartDate, &board.EndDate)
	if err != nil {
		return nil, fmt.Errorf("failed to load period: %w", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT
			RANK() OVER (ORDER BY le.xp_earned DESC) AS rank,
			le.user_id,
			u.username,
			u.image_url,
			le.xp_earned,
			le.quizzes_completed
		FROM leaderboard_entries le
		JOIN users u ON u.id = le.user_id
		WHERE le.period_id = $1 AND le.user_id = ANY($2)
		ORDER BY le.xp_earned DESC, u.username ASC
		LIMIT $3
	`, periodID, roster, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch class leaderboard: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		entry := &leaderboard.RankedEntry{}
		if err := rows.Scan(&entry.Rank, &entry.UserID, &entry.Username, &entry.ImageURL, &entry.XPEarned, &entry.QuizzesCompleted); err != nil {
			return nil, fmt.Errorf("failed to scan class leaderboard row: %w", err)
		}
		board.Entries = append(board.Entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read class leaderboard rows: %w", err)
	}

	board.TotalUsers = len(board.Entries)
	return board, nil
}

// RolloverPeriods closes expired periods and opens the current weekly
// and monthly ones. Safe to re-run at any time.
func (s *LeaderboardService) RolloverPeriods(ctx context.Context, now time.Time) error {
	for _, pt := range []leaderboard.PeriodType{leaderboard.PeriodWeekly, leaderboard.PeriodMonthly} {
		if _, err := s.activePeriod(ctx, s.db, pt, now); err != nil {
			return err
		}
	}
	log.Println("Leaderboard periods rolled over")
	return nil
}
