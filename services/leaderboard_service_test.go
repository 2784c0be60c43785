package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"quizforgeAPI/internal/clock"
	"quizforgeAPI/internal/leaderboard"
)

func TestGetClassLeaderboardRejectsEmptyRoster(t *testing.T) {
	svc := NewLeaderboardService(nil, nil, clock.Fixed{Instant: time.Now()})

	_, err := svc.GetClassLeaderboard(context.Background(), leaderboard.PeriodWeekly, nil, 10)
	assert.ErrorIs(t, err, leaderboard.ErrEmptyRoster)

	_, err = svc.GetClassLeaderboard(context.Background(), leaderboard.PeriodWeekly, []uuid.UUID{}, 10)
	assert.ErrorIs(t, err, leaderboard.ErrEmptyRoster)
}
