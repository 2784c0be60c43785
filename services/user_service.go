package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"quizforgeAPI/internal/progression"
	"quizforgeAPI/internal/user"
)

// UserService mirrors Clerk identities into the local users table. The
// progression tables all hang off users.id, so the webhook sync is what
// makes a Clerk account visible to the engine.
type UserService struct {
	db *pgxpool.Pool
}

func NewUserService(db *pgxpool.Pool) *UserService {
	return &UserService{db: db}
}

// UpsertUser creates or refreshes the local row for a Clerk user.
// Webhook deliveries can arrive out of order or more than once, so the
// same call serves user.created and user.updated.
func (s *UserService) UpsertUser(ctx context.Context, req *user.UpsertUserRequest) (*user.User, error) {
	var u user.User
	err := s.db.QueryRow(ctx, `
		INSERT INTO users (clerk_id, email, username, image_url)
		VALUES ($1, $2, $3, NULLIF($4, ''))
		ON CONFLICT (clerk_id) DO UPDATE SET
			email = EXCLUDED.email,
			username = EXCLUDED.username,
			image_url = EXCLUDED.image_url,
			updated_at = NOW()
		RETURNING id, clerk_id, email, username, image_url, created_at, updated_at
	`, req.ClerkID, req.Email, req.Username, req.ImageURL).Scan(
		&u.ID, &u.ClerkID, &u.Email, &u.Username, &u.ImageURL, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return &u, nil
}

func (s *UserService) GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error) {
	var u user.User
	err := s.db.QueryRow(ctx, `
		SELECT id, clerk_id, email, username, image_url, created_at, updated_at
		FROM users WHERE clerk_id = $1
	`, clerkID).Scan(&u.ID, &u.ClerkID, &u.Email, &u.Username, &u.ImageURL, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, progression.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return &u, nil
}

// DeleteUserByClerkID removes the user row; progression state, ledger
// entries, achievements and leaderboard entries cascade with it.
func (s *UserService) DeleteUserByClerkID(ctx context.Context, clerkID string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM users WHERE clerk_id = $1`, clerkID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return progression.ErrUserNotFound
	}
	return nil
}
