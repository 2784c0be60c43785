package helpers

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"quizforgeAPI/internal/database"
)

// SetupTestDB connects to the test database and ensures the schema is
// in place. Tests that need Postgres are skipped when no URL is set so
// the pure-logic suites still run everywhere.
func SetupTestDB(t *testing.T) *pgxpool.Pool {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL or DATABASE_URL not set, skipping database test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}

	if err := database.Bootstrap(ctx, pool); err != nil {
		t.Fatalf("Failed to bootstrap test schema: %v", err)
	}

	return pool
}

// CleanupTestDB removes users created by tests and everything hanging
// off them via ON DELETE CASCADE.
func CleanupTestDB(t *testing.T, pool *pgxpool.Pool) {
	ctx := context.Background()
	_, err := pool.Exec(ctx, "DELETE FROM users WHERE email LIKE 'test%@example.com'")
	if err != nil {
		t.Logf("Warning: failed to cleanup test data: %v", err)
	}
	pool.Close()
}

// MockClerkWebhookPayload builds a Clerk webhook body for eventType.
func MockClerkWebhookPayload(eventType string, clerkID string) []byte {
	payload := ""

	switch eventType {
	case "user.created", "user.updated":
		payload = fmt.Sprintf(`{
			"data": {
				"id": "%s",
				"first_name": "Test",
				"last_name": "User",
				"email_addresses": [{
					"id": "email_123",
					"email_address": "test.user@example.com"
				}],
				"primary_email_address_id": "email_123",
				"username": "testuser",
				"image_url": "https://example.com/image.jpg"
			},
			"object": "event",
			"type": "%s"
		}`, clerkID, eventType)

	case "user.deleted":
		payload = fmt.Sprintf(`{
			"data": {
				"id": "%s",
				"deleted": true
			},
			"object": "event",
			"type": "%s"
		}`, clerkID, eventType)
	}

	return []byte(payload)
}

// CreateTestUser inserts a throwaway user and returns its id and clerk id.
func CreateTestUser(t *testing.T, pool *pgxpool.Pool) (uuid.UUID, string) {
	clerkID := "user_test_" + time.Now().Format("20060102150405.000000")
	email := fmt.Sprintf("test+%s@example.com", uuid.NewString()[:8])
	username := "testuser_" + uuid.NewString()[:8]

	var userID uuid.UUID
	err := pool.QueryRow(context.Background(),
		`INSERT INTO users (clerk_id, email, username) VALUES ($1, $2, $3) RETURNING id`,
		clerkID, email, username,
	).Scan(&userID)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return userID, clerkID
}
