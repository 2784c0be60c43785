package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"quizforgeAPI/internal/leaderboard"
	"quizforgeAPI/middleware"
	"quizforgeAPI/services"
)

const (
	defaultLeaderboardLimit = 50
	maxLeaderboardLimit     = 100
)

type LeaderboardHandler struct {
	leaderboardService *services.LeaderboardService
}

func NewLeaderboardHandler(leaderboardService *services.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: leaderboardService}
}

func (h *LeaderboardHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	pt := leaderboard.PeriodType(r.URL.Query().Get("period"))
	if pt == "" {
		pt = leaderboard.PeriodWeekly
	}
	if !pt.IsValid() {
		respondWithError(w, http.StatusBadRequest, "Invalid period, expected weekly or monthly")
		return
	}

	limit := parseLimit(r.URL.Query().Get("limit"))

	board, err := h.leaderboardService.GetLeaderboard(ctx, clerkID, pt, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load leaderboard")
		return
	}

	respondWithJSON(w, http.StatusOK, board)
}

// GetClassLeaderboard filters the active period to a teacher-supplied
// roster. The roster comes in the body because class sizes can exceed
// what fits comfortably in a query string.
func (h *LeaderboardHandler) GetClassLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, ok := middleware.GetClerkID(ctx); !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var body struct {
		Period  leaderboard.PeriodType `json:"period"`
		UserIDs []uuid.UUID            `json:"userIds"`
		Limit   int                    `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if body.Period == "" {
		body.Period = leaderboard.PeriodWeekly
	}
	if !body.Period.IsValid() {
		respondWithError(w, http.StatusBadRequest, "Invalid period, expected weekly or monthly")
		return
	}
	if len(body.UserIDs) == 0 {
		respondWithError(w, http.StatusBadRequest, "userIds must not be empty")
		return
	}

	limit := body.Limit
	if limit <= 0 || limit > maxLeaderboardLimit {
		limit = defaultLeaderboardLimit
	}

	board, err := h.leaderboardService.GetClassLeaderboard(ctx, body.Period, body.UserIDs, limit)
	if err != nil {
		if errors.Is(err, leaderboard.ErrEmptyRoster) {
			respondWithError(w, http.StatusBadRequest, "userIds must not be empty")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to load class leaderboard")
		return
	}

	respondWithJSON(w, http.StatusOK, board)
}

func parseLimit(raw string) int {
	if raw == "" {
		return defaultLeaderboardLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 || limit > maxLeaderboardLimit {
		return defaultLeaderboardLimit
	}
	return limit
}
