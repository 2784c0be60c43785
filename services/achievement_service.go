package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"quizforgeAPI/internal/achievement"
)

type AchievementService struct {
	db *pgxpool.Pool
}

func NewAchievementService(db *pgxpool.Pool) *AchievementService {
	return &AchievementService{db: db}
}

// EligibleUnlocks returns the not-yet-earned achievements whose
// predicate holds against the snapshot. Granting is the caller's job,
// via Grant inside the same transaction that awards the reward XP, so
// a row in user_achievements and its ledger entry commit together.
func (s *AchievementService) EligibleUnlocks(ctx context.Context, userID uuid.UUID, snap achievement.Snapshot) ([]*achievement.Definition, error) {
	defs, err := s.unearnedDefinitions(ctx, userID)
	if err != nil {
		return nil, err
	}

	var eligible []*achievement.Definition
	for _, def := range defs {
		rule, err := achievement.RuleFor(*def)
		if err != nil {
			log.Printf("Skipping achievement %s: %v", def.Code, err)
			continue
		}
		if rule.Met(snap) {
			eligible = append(eligible, def)
		}
	}
	return eligible, nil
}

// Grant inserts the earned row on the caller's transaction. The insert
// is an ON CONFLICT DO NOTHING so a concurrent duplicate grant
// collapses to a single row; the returned flag is true only for the
// insert that won, and only that caller awards the reward XP.
func (s *AchievementService) Grant(ctx context.Context, q querier, userID, achievementID uuid.UUID, at time.Time) (bool, error) {
	tag, err := q.Exec(ctx, `
		INSERT INTO user_achievements (id, user_id, achievement_id, earned_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, achievement_id) DO NOTHING
	`, uuid.New(), userID, achievementID, at)
	if err != nil {
		return false, fmt.Errorf("failed to grant achievement: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *AchievementService) unearnedDefinitions(ctx context.Context, userID uuid.UUID) ([]*achievement.Definition, error) {
	rows, err := s.db.Query(ctx, `
		SELECT a.id, a.code, a.name, a.description, a.icon, a.requirement_type, a.requirement_value, a.xp_reward, a.hidden, a.sort_order, a.created_at
		FROM achievements a
		WHERE NOT EXISTS (
			SELECT 1 FROM user_achievements ua
			WHERE ua.user_id = $1 AND ua.achievement_id = a.id
		)
		ORDER BY a.sort_order ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch achievement definitions: %w", err)
	}
	defer rows.Close()

	var defs []*achievement.Definition
	for rows.Next() {
		def := &achievement.Definition{}
		err := rows.Scan(&def.ID, &def.Code, &def.Name, &def.Description, &def.Icon,
			&def.RequirementType, &def.RequirementValue, &def.XPReward, &def.Hidden, &def.SortOrder, &def.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan achievement definition: %w", err)
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read achievement definitions: %w", err)
	}
	return defs, nil
}

// GetUserAchievements returns earned and still-available achievements.
// Available entries carry a {current, required} progress projection
// computed from the same snapshot the evaluator uses; hidden ones stay
// out of the available list until earned.
func (s *AchievementService) GetUserAchievements(ctx context.Context, userID uuid.UUID, snap achievement.Snapshot) (*achievement.AchievementList, error) {
	rows, err := s.db.Query(ctx, `
		SELECT a.id, a.code, a.name, a.description, a.icon, a.requirement_type, a.requirement_value, a.xp_reward, a.hidden, a.sort_order, a.created_at,
			CASE WHEN ua.id IS NOT NULL THEN TRUE ELSE FALSE END AS earned,
			ua.earned_at
		FROM achievements a
		LEFT JOIN user_achievements ua ON a.id = ua.achievement_id AND ua.user_id = $1
		ORDER BY earned DESC, a.sort_order ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch achievements: %w", err)
	}
	defer rows.Close()

	list := &achievement.AchievementList{}
	for rows.Next() {
		ach := &achievement.WithStatus{}
		err := rows.Scan(&ach.ID, &ach.Code, &ach.Name, &ach.Description, &ach.Icon,
			&ach.RequirementType, &ach.RequirementValue, &ach.XPReward, &ach.Hidden, &ach.SortOrder, &ach.CreatedAt,
			&ach.Earned, &ach.EarnedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}

		if ach.Earned {
			ach.Progress = achievement.Progress{Current: ach.RequirementValue, Required: ach.RequirementValue}
			list.Earned = append(list.Earned, ach)
			continue
		}

		if ach.Hidden {
			continue
		}

		rule, err := achievement.RuleFor(ach.Definition)
		if err != nil {
			log.Printf("Skipping achievement %s: %v", ach.Code, err)
			continue
		}
		ach.Progress = rule.Progress(snap)
		list.Available = append(list.Available, ach)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read achievements: %w", err)
	}

	return list, nil
}
