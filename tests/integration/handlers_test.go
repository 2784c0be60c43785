package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizforgeAPI/handlers"
	"quizforgeAPI/internal/clock"
	"quizforgeAPI/internal/progression"
	"quizforgeAPI/middleware"
	"quizforgeAPI/services"
	"quizforgeAPI/tests/helpers"
)

func TestGamificationStatsHandler(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	_, clerkID := helpers.CreateTestUser(t, pool)

	achievementService := services.NewAchievementService(pool)
	leaderboardService := services.NewLeaderboardService(pool, nil, clock.System())
	progressionService := services.NewProgressionService(pool, leaderboardService, achievementService, clock.Fixed{Instant: time.Now()})
	handler := handlers.NewProgressionHandler(progressionService, achievementService)

	// Authenticated request, simulating the auth middleware having run.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/user/gamification", nil)
	ctx := context.WithValue(req.Context(), middleware.ClerkIDKey, clerkID)
	req = req.WithContext(ctx)
	rr := httptest.NewRecorder()

	handler.GetGamificationStats(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	var stats progression.Stats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Equal(t, progression.DefaultDailyGoal, stats.DailyGoal)

	// Without an authenticated context the handler refuses.
	req2 := httptest.NewRequest(http.MethodGet, "/api/v1/user/gamification", nil)
	rr2 := httptest.NewRecorder()
	handler.GetGamificationStats(rr2, req2)
	assert.Equal(t, http.StatusUnauthorized, rr2.Code)
}

func TestSetDailyGoalHandler(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	_, clerkID := helpers.CreateTestUser(t, pool)

	achievementService := services.NewAchievementService(pool)
	leaderboardService := services.NewLeaderboardService(pool, nil, clock.System())
	progressionService := services.NewProgressionService(pool, leaderboardService, achievementService, clock.Fixed{Instant: time.Now()})
	handler := handlers.NewProgressionHandler(progressionService, achievementService)

	do := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/user/daily-goal", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		ctx := context.WithValue(req.Context(), middleware.ClerkIDKey, clerkID)
		req = req.WithContext(ctx)
		rr := httptest.NewRecorder()
		handler.SetDailyGoal(rr, req)
		return rr
	}

	assert.Equal(t, http.StatusOK, do(`{"dailyGoal": 7}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(`{"dailyGoal": 0}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(`{"dailyGoal": 99}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(`not json`).Code)
}

func TestClassLeaderboardHandlerRejectsEmptyRoster(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	_, clerkID := helpers.CreateTestUser(t, pool)

	leaderboardService := services.NewLeaderboardService(pool, nil, clock.System())
	handler := handlers.NewLeaderboardHandler(leaderboardService)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/leaderboards/class",
		strings.NewReader(`{"period": "weekly", "userIds": []}`))
	req.Header.Set("Content-Type", "application/json")
	ctx := context.WithValue(req.Context(), middleware.ClerkIDKey, clerkID)
	req = req.WithContext(ctx)
	rr := httptest.NewRecorder()

	handler.GetClassLeaderboard(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
