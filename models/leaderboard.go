package models

import (
	"errors"
	"fmt"
	"time"
)

// LeaderboardPeriod is the ranking window.
type LeaderboardPeriod string

const (
	PeriodWeekly  LeaderboardPeriod = "weekly"
	PeriodMonthly LeaderboardPeriod = "monthly"
	PeriodAllTime LeaderboardPeriod = "all_time"
)

var ErrInvalidPeriod = errors.New("invalid leaderboard period")

// ParsePeriod validates a wire string ("all-time" accepted as an alias).
func ParsePeriod(s string) (LeaderboardPeriod, error) {
	switch s {
	case string(PeriodWeekly):
		return PeriodWeekly, nil
	case string(PeriodMonthly):
		return PeriodMonthly, nil
	case string(PeriodAllTime), "all-time":
		return PeriodAllTime, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
}

// PeriodKeyAt versions a snapshot: ISO week for weekly ("2026-W36"),
// calendar month for monthly ("2026-08"). All-time has no key — it is
// never snapshotted and always read live.
func PeriodKeyAt(p LeaderboardPeriod, t time.Time) string {
	switch p {
	case PeriodWeekly:
		year, week := t.UTC().ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case PeriodMonthly:
		return t.UTC().Format("2006-01")
	default:
		return ""
	}
}

// LeaderboardSnapshotEntry is one ranked row of a periodic snapshot. The
// recompute job fully replaces all rows for a (period, period_key); the
// unique index keeps re-runs from leaving stale duplicates.
type LeaderboardSnapshotEntry struct {
	ID             string            `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string            `gorm:"not null;uniqueIndex:idx_period_user,priority:3" json:"external_user_id"`
	Period         LeaderboardPeriod `gorm:"size:16;not null;uniqueIndex:idx_period_user,priority:1" json:"period"`
	PeriodKey      string            `gorm:"size:16;not null;uniqueIndex:idx_period_user,priority:2" json:"period_key"`
	Points         int64             `gorm:"not null" json:"points"`
	Rank           int               `gorm:"not null" json:"rank"`
	ComputedAt     time.Time         `json:"computed_at"`
}
