// services/scheduler.go
package services

import (
	"log"
	"os"
	"time"

	"gamification-service/models"

	"github.com/go-co-op/gocron/v2"
)

// StartSnapshotScheduler rebuilds the weekly and monthly snapshots on a
// fixed interval (LEADERBOARD_RECOMPUTE_INTERVAL, default 5m). Deployments
// with an external scheduler can skip this and hit the recompute endpoint
// instead; running both is harmless since each run is a full replacement.
func (s *LeaderboardService) StartSnapshotScheduler() {
	interval := 5 * time.Minute
	if raw := os.Getenv("LEADERBOARD_RECOMPUTE_INTERVAL"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			interval = parsed
		} else {
			log.Printf("[LEADERBOARD] ⚠️ Invalid LEADERBOARD_RECOMPUTE_INTERVAL %q — using %s", raw, interval)
		}
	}

	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			for _, period := range []models.LeaderboardPeriod{models.PeriodWeekly, models.PeriodMonthly} {
				if _, err := s.Recompute(period); err != nil {
					log.Printf("[LEADERBOARD] ❌ Scheduled recompute (%s) failed: %v", period, err)
				}
			}
		}),
	)

	log.Printf("✅ Leaderboard snapshot scheduler running (every %s)", interval)
}
