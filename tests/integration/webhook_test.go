package integration

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizforgeAPI/handlers"
	"quizforgeAPI/internal/clock"
	"quizforgeAPI/services"
	"quizforgeAPI/tests/helpers"
)

func TestWebhookUserLifecycle(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	userService := services.NewUserService(pool)
	webhookHandler := handlers.NewWebhookHandler(userService)

	// Disable signature verification for testing
	os.Setenv("CLERK_WEBHOOK_SECRET", "")
	defer os.Unsetenv("CLERK_WEBHOOK_SECRET")

	clerkID := "user_test_" + time.Now().Format("20060102150405")
	ctx := context.Background()

	// Step 1: user.created makes the user visible to the engine.
	payload := helpers.MockClerkWebhookPayload("user.created", clerkID)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(payload))
	rr := httptest.NewRecorder()

	webhookHandler.HandleClerkWebhook(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	u, err := userService.GetUserByClerkID(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, "test.user@example.com", u.Email)
	assert.Equal(t, "testuser", u.Username)

	// Step 2: redelivery of the same event is a no-op, not a failure.
	req2 := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(payload))
	rr2 := httptest.NewRecorder()
	webhookHandler.HandleClerkWebhook(rr2, req2)
	assert.Equal(t, http.StatusOK, rr2.Code)

	var count int
	err = pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE clerk_id = $1`, clerkID).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Step 3: the synced user can run through the progression pipeline.
	achievementService := services.NewAchievementService(pool)
	leaderboardService := services.NewLeaderboardService(pool, nil, clock.System())
	progressionService := services.NewProgressionService(pool, leaderboardService, achievementService, clock.Fixed{Instant: time.Now()})

	result, err := progressionService.ProcessQuizCompletion(ctx, clerkID, 8, 10, uuid.New())
	require.NoError(t, err)
	assert.Positive(t, result.XPAwarded)

	// Step 4: user.deleted cascades progression state away.
	delPayload := helpers.MockClerkWebhookPayload("user.deleted", clerkID)
	req3 := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(delPayload))
	rr3 := httptest.NewRecorder()
	webhookHandler.HandleClerkWebhook(rr3, req3)
	assert.Equal(t, http.StatusOK, rr3.Code)

	_, err = userService.GetUserByClerkID(ctx, clerkID)
	assert.Error(t, err)

	err = pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM user_progression WHERE user_id = $1`, u.ID).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "progression row should cascade with the user")
}
