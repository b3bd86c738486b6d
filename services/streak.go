package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gamification-service/models"

	"gorm.io/gorm"
)

// streakLocation is the fixed reference timezone for calendar-day math.
var streakLocation = time.UTC

// streakMaxRetries bounds the optimistic-concurrency loop. Each retry starts
// over from fresh state, so a lost race never replays a stale gap decision.
const streakMaxRetries = 3

var ErrStreakContention = errors.New("streak update contention, retry")

// Streak milestones that trigger badge evaluation. 7 and 30 also pay a
// lump-sum bonus through the ledger.
const (
	streakMilestoneBronze = 3
	streakMilestoneSilver = 7
	streakMilestoneGold   = 30
)

// StreakService runs the consecutive-day login state machine over
// (last_activity_date, current_streak, longest_streak).
type StreakService struct {
	DB     *gorm.DB
	Ledger *LedgerService
	Badges *BadgeService
}

func NewStreakService(db *gorm.DB, ledger *LedgerService, badges *BadgeService) *StreakService {
	return &StreakService{DB: db, Ledger: ledger, Badges: badges}
}

// dayOf truncates t to midnight in the reference timezone.
func dayOf(t time.Time) time.Time {
	t = t.In(streakLocation)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, streakLocation)
}

// gapDays is the whole-day distance between two midnight-truncated dates.
func gapDays(from, to time.Time) int {
	return int(to.Sub(from) / (24 * time.Hour))
}

// RecordActivity advances the user's streak for activityDate.
//
// Transitions at day granularity against last_activity_date:
// no prior record → 1/1; same day → no-op; yesterday → streak+1 and
// longest = max(longest, streak); older → reset to 1, longest untouched.
// Every non-no-op transition also issues the daily activity award, keyed to
// (user, day) so duplicate login signals cannot double-credit.
//
// Concurrent calls for one user are serialized optimistically: the UPDATE is
// guarded on the last_activity_date that was read, and a lost race re-reads
// and re-evaluates rather than re-applying the old decision.
func (s *StreakService) RecordActivity(externalUserID string, activityDate time.Time) (*models.UserProfile, error) {
	day := dayOf(activityDate)

	for attempt := 0; attempt < streakMaxRetries; attempt++ {
		profile, err := s.Ledger.EnsureProfile(externalUserID)
		if err != nil {
			return nil, err
		}

		var lastDay *time.Time
		if profile.LastActivityDate != nil {
			d := dayOf(*profile.LastActivityDate)
			lastDay = &d
		}

		newStreak := 1
		if lastDay != nil {
			switch gap := gapDays(*lastDay, day); {
			case gap == 0:
				// Already recorded today; idempotent per calendar day.
				log.Printf("[STREAK] 🔁 Same-day activity for %s (%s) — no-op", externalUserID, day.Format("2006-01-02"))
				return profile, nil
			case gap == 1:
				newStreak = profile.CurrentStreak + 1
			case gap > 1:
				log.Printf("[STREAK] 💔 Streak broken for %s after %d days idle (was %d)",
					externalUserID, gap, profile.CurrentStreak)
				newStreak = 1
			default:
				// activityDate precedes the recorded day (clock skew or a
				// backfilled event); the stored state is already ahead.
				log.Printf("[STREAK] ⚠️ Out-of-order activity for %s: %s before recorded %s — ignored",
					externalUserID, day.Format("2006-01-02"), lastDay.Format("2006-01-02"))
				return profile, nil
			}
		}
		newLongest := profile.LongestStreak
		if newStreak > newLongest {
			newLongest = newStreak
		}

		// Compare-and-set on the observed last_activity_date.
		q := s.DB.Model(&models.UserProfile{}).Where("external_user_id = ?", externalUserID)
		if profile.LastActivityDate == nil {
			q = q.Where("last_activity_date IS NULL")
		} else {
			q = q.Where("last_activity_date = ?", *profile.LastActivityDate)
		}
		res := q.Updates(map[string]interface{}{
			"current_streak":     newStreak,
			"longest_streak":     newLongest,
			"last_activity_date": day,
		})
		if res.Error != nil {
			return nil, fmt.Errorf("streak update: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			log.Printf("[STREAK] ⚠️ Lost update race for %s (attempt %d) — re-evaluating", externalUserID, attempt+1)
			continue
		}

		s.applySideEffects(externalUserID, newStreak, day)

		return s.Ledger.GetProfile(externalUserID)
	}
	return nil, ErrStreakContention
}

// applySideEffects pays the daily award and any milestone bonus/badge. All of
// it is best-effort relative to the streak transition, which has already
// committed: failures are logged, never surfaced to the login path. The
// idempotency keys make retried calls safe.
func (s *StreakService) applySideEffects(externalUserID string, streak int, day time.Time) {
	if _, err := s.Ledger.AwardPoints(externalUserID, DefaultPointWeights.DailyLogin,
		"daily activity", models.ActivityDailyLogin, models.DailyLoginKey(externalUserID, day)); err != nil {
		log.Printf("[STREAK] ⚠️ Daily award failed for %s: %v", externalUserID, err)
	}

	switch streak {
	case streakMilestoneBronze:
		s.grantMilestoneBadge(externalUserID, models.TierBronze)
	case streakMilestoneSilver:
		s.grantMilestoneBadge(externalUserID, models.TierSilver)
		s.awardMilestoneBonus(externalUserID, streak, day, DefaultPointWeights.StreakWeekBonus)
	case streakMilestoneGold:
		s.grantMilestoneBadge(externalUserID, models.TierGold)
		s.awardMilestoneBonus(externalUserID, streak, day, DefaultPointWeights.StreakMonthBonus)
	}
}

func (s *StreakService) grantMilestoneBadge(externalUserID string, tier models.BadgeTier) {
	if _, err := s.Badges.EvaluateAndGrant(externalUserID, "Consistent Learner", tier); err != nil {
		log.Printf("[STREAK] ⚠️ Milestone badge (%s) failed for %s: %v", tier, externalUserID, err)
	}
}

func (s *StreakService) awardMilestoneBonus(externalUserID string, streak int, day time.Time, bonus int64) {
	key := models.StreakMilestoneKey(externalUserID, streak, day)
	if _, err := s.Ledger.AwardPoints(externalUserID, bonus,
		fmt.Sprintf("%d-day streak bonus", streak), models.ActivityDailyLogin, key); err != nil {
		log.Printf("[STREAK] ⚠️ Milestone bonus (%d-day) failed for %s: %v", streak, externalUserID, err)
	}
}
