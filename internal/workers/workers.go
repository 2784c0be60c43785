package workers

import (
	"context"
	"log"
	"time"

	"quizforgeAPI/internal/clock"
	"quizforgeAPI/services"
)

// StartDailyResetWorker resets per-day progression counters at local
// midnight and advances leaderboard periods that have expired. Both
// jobs run once immediately so a restarted server catches up on a
// missed boundary.
func StartDailyResetWorker(ctx context.Context, progressionService *services.ProgressionService, leaderboardService *services.LeaderboardService, clk clock.Clock) {
	go func() {
		runDailyMaintenance(ctx, progressionService, leaderboardService, clk)

		for {
			wait := untilNextMidnight(clk.Now())
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				runDailyMaintenance(ctx, progressionService, leaderboardService, clk)
			}
		}
	}()
}

func runDailyMaintenance(ctx context.Context, progressionService *services.ProgressionService, leaderboardService *services.LeaderboardService, clk clock.Clock) {
	jobCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	log.Println("Running daily progression maintenance...")

	if err := progressionService.ResetDailyCounters(jobCtx); err != nil {
		log.Printf("Error resetting daily counters: %v", err)
	}

	if err := leaderboardService.RolloverPeriods(jobCtx, clk.Now()); err != nil {
		log.Printf("Error rolling over leaderboard periods: %v", err)
	}
}

func untilNextMidnight(now time.Time) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	return next.Sub(now)
}
