package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"quizforgeAPI/internal/progression"
	"quizforgeAPI/middleware"
	"quizforgeAPI/services"
)

type ProgressionHandler struct {
	progressionService *services.ProgressionService
	achievementService *services.AchievementService
}

func NewProgressionHandler(progressionService *services.ProgressionService, achievementService *services.AchievementService) *ProgressionHandler {
	return &ProgressionHandler{
		progressionService: progressionService,
		achievementService: achievementService,
	}
}

// ProcessQuizCompletion receives the scored result from the grading
// subsystem and runs the progression pipeline. Grading and score
// persistence happen upstream; a failure here never un-records the
// quiz score.
func (h *ProgressionHandler) ProcessQuizCompletion(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var body struct {
		Score          int       `json:"score"`
		TotalQuestions int       `json:"totalQuestions"`
		QuizAttemptID  uuid.UUID `json:"quizAttemptId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.progressionService.ProcessQuizCompletion(ctx, clerkID, body.Score, body.TotalQuestions, body.QuizAttemptID)
	if err != nil {
		switch {
		case errors.Is(err, progression.ErrInvalidScore):
			respondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, progression.ErrUserNotFound):
			respondWithError(w, http.StatusNotFound, "User not found")
		case errors.Is(err, progression.ErrConflict):
			respondWithError(w, http.StatusConflict, "Progression update conflicted, please retry")
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to process quiz completion")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *ProgressionHandler) GetGamificationStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	stats, err := h.progressionService.GetGamificationStats(ctx, clerkID)
	if err != nil {
		if errors.Is(err, progression.ErrUserNotFound) {
			respondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to load gamification stats")
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}

func (h *ProgressionHandler) GetUserAchievements(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	userID, snap, err := h.progressionService.Snapshot(ctx, clerkID)
	if err != nil {
		if errors.Is(err, progression.ErrUserNotFound) {
			respondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to load achievements")
		return
	}

	list, err := h.achievementService.GetUserAchievements(ctx, userID, snap)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load achievements")
		return
	}

	respondWithJSON(w, http.StatusOK, list)
}

func (h *ProgressionHandler) SetDailyGoal(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var body struct {
		DailyGoal int `json:"dailyGoal"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.progressionService.SetDailyGoal(ctx, clerkID, body.DailyGoal); err != nil {
		switch {
		case errors.Is(err, progression.ErrInvalidDailyGoal):
			respondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, progression.ErrUserNotFound):
			respondWithError(w, http.StatusNotFound, "User not found")
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to update daily goal")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]int{"dailyGoal": body.DailyGoal})
}

// Helper functions
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
