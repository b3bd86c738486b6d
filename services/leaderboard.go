package services

import (
	"fmt"
	"log"
	"time"

	"gamification-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

// RecomputeResult summarizes one snapshot run.
type RecomputeResult struct {
	Period       models.LeaderboardPeriod `json:"period"`
	PeriodKey    string                   `json:"period_key"`
	UpdatedCount int                      `json:"updated_count"`
	Timestamp    time.Time                `json:"timestamp"`
}

// LeaderboardRow is one ranked entry as served to callers.
type LeaderboardRow struct {
	ExternalUserID string `json:"external_user_id"`
	Username       string `json:"username,omitempty"`
	Points         int64  `json:"points"`
	Rank           int    `json:"rank"`
}

// LeaderboardService ranks users by point total within a time window and
// maintains the periodic snapshots.
type LeaderboardService struct {
	DB *gorm.DB

	// now is swappable for tests; wall clock otherwise.
	now func() time.Time
}

func NewLeaderboardService(db *gorm.DB) *LeaderboardService {
	return &LeaderboardService{DB: db, now: time.Now}
}

// Recompute builds a fresh, fully-replaced snapshot for the period's current
// key. Weekly and monthly only: the all-time board has no key to version and
// is always read live, so snapshotting it is a validation error.
//
// Ranks are dense 1..N, points descending, ties broken by user id ascending.
// The whole replacement happens in one transaction, so readers never see a
// half-updated ranking; staleness against concurrent awards is tolerated.
func (s *LeaderboardService) Recompute(period models.LeaderboardPeriod) (*RecomputeResult, error) {
	if period != models.PeriodWeekly && period != models.PeriodMonthly {
		return nil, fmt.Errorf("%w: %q is not snapshotted", models.ErrInvalidPeriod, period)
	}

	now := s.now()
	periodKey := models.PeriodKeyAt(period, now)

	var updated int
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		profiles, err := rankedProfiles(tx, 0)
		if err != nil {
			return err
		}

		entries := make([]models.LeaderboardSnapshotEntry, 0, len(profiles))
		userIDs := make([]string, 0, len(profiles))
		for i, p := range profiles {
			entries = append(entries, models.LeaderboardSnapshotEntry{
				ID:             uuid.NewString(),
				ExternalUserID: p.ExternalUserID,
				Period:         period,
				PeriodKey:      periodKey,
				Points:         p.Points,
				Rank:           i + 1,
				ComputedAt:     now,
			})
			userIDs = append(userIDs, p.ExternalUserID)
		}

		if len(entries) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{
					{Name: "period"}, {Name: "period_key"}, {Name: "external_user_id"},
				},
				DoUpdates: clause.AssignmentColumns([]string{"points", "rank", "computed_at"}),
			}).Create(&entries).Error; err != nil {
				return fmt.Errorf("upsert snapshot: %w", err)
			}
		}

		// Drop rows for users that no longer exist so the snapshot is a
		// true replacement, not an accretion.
		stale := tx.Where("period = ? AND period_key = ?", period, periodKey)
		if len(userIDs) > 0 {
			stale = stale.Where("external_user_id NOT IN ?", userIDs)
		}
		if err := stale.Delete(&models.LeaderboardSnapshotEntry{}).Error; err != nil {
			return fmt.Errorf("prune snapshot: %w", err)
		}

		updated = len(entries)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[LEADERBOARD] 📊 Snapshot %s/%s rebuilt: %d entries", period, periodKey, updated)
	return &RecomputeResult{
		Period:       period,
		PeriodKey:    periodKey,
		UpdatedCount: updated,
		Timestamp:    now,
	}, nil
}

// GetLeaderboard serves the top N for a period. Weekly/monthly read the
// current key's snapshot and fall back to a live ranking when the job has
// not run yet this period; all-time is always live (no key to version, and
// deliberately not point-in-time consistent with the snapshotted windows).
func (s *LeaderboardService) GetLeaderboard(period models.LeaderboardPeriod, limit int) ([]LeaderboardRow, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	if period == models.PeriodAllTime {
		return s.liveRows(limit)
	}
	if period != models.PeriodWeekly && period != models.PeriodMonthly {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidPeriod, period)
	}

	periodKey := models.PeriodKeyAt(period, s.now())
	var entries []models.LeaderboardSnapshotEntry
	if err := s.DB.Where("period = ? AND period_key = ?", period, periodKey).
		Order("rank ASC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		// Job hasn't run this period yet: never serve an empty board.
		log.Printf("[LEADERBOARD] ⚠️ No snapshot for %s/%s — serving live ranking", period, periodKey)
		return s.liveRows(limit)
	}

	rows := make([]LeaderboardRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, LeaderboardRow{
			ExternalUserID: e.ExternalUserID,
			Points:         e.Points,
			Rank:           e.Rank,
		})
	}
	return s.decorate(rows)
}

// liveRows ranks straight off the profile table.
func (s *LeaderboardService) liveRows(limit int) ([]LeaderboardRow, error) {
	profiles, err := rankedProfiles(s.DB, limit)
	if err != nil {
		return nil, err
	}
	rows := make([]LeaderboardRow, 0, len(profiles))
	for i, p := range profiles {
		rows = append(rows, LeaderboardRow{
			ExternalUserID: p.ExternalUserID,
			Points:         p.Points,
			Rank:           i + 1,
		})
	}
	return s.decorate(rows)
}

// rankedProfiles reads profiles in canonical leaderboard order. limit 0
// means all rows (the snapshot job ranks everyone).
func rankedProfiles(db *gorm.DB, limit int) ([]models.UserProfile, error) {
	q := db.Order("points DESC, external_user_id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var profiles []models.UserProfile
	if err := q.Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}
	return profiles, nil
}

// decorate attaches usernames from the identity mirror. Missing mirror rows
// leave the username blank; the ranking itself never depends on the mirror.
func (s *LeaderboardService) decorate(rows []LeaderboardRow) ([]LeaderboardRow, error) {
	if len(rows) == 0 {
		return rows, nil
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ExternalUserID)
	}
	var accounts []models.LearnerAccount
	if err := s.DB.Where("external_user_id IN ?", ids).Find(&accounts).Error; err != nil {
		return nil, err
	}
	names := make(map[string]string, len(accounts))
	for _, a := range accounts {
		names[a.ExternalUserID] = a.Username
	}
	for i := range rows {
		rows[i].Username = names[rows[i].ExternalUserID]
	}
	return rows, nil
}
