package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParsePeriod(t *testing.T) {
	for raw, want := range map[string]LeaderboardPeriod{
		"weekly":   PeriodWeekly,
		"monthly":  PeriodMonthly,
		"all_time": PeriodAllTime,
		"all-time": PeriodAllTime,
	} {
		got, err := ParsePeriod(raw)
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParsePeriod("daily")
	assert.ErrorIs(t, err, ErrInvalidPeriod)
	_, err = ParsePeriod("")
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestPeriodKeyAt(t *testing.T) {
	at := time.Date(2026, time.March, 4, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "2026-W10", PeriodKeyAt(PeriodWeekly, at))
	assert.Equal(t, "2026-03", PeriodKeyAt(PeriodMonthly, at))
	assert.Equal(t, "", PeriodKeyAt(PeriodAllTime, at))

	// ISO week-year differs from the calendar year at the boundary.
	newYear := time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-W53", PeriodKeyAt(PeriodWeekly, newYear))
	assert.Equal(t, "2027-01", PeriodKeyAt(PeriodMonthly, newYear))
}

func TestBadgeID(t *testing.T) {
	assert.Equal(t, "course-completer-bronze", BadgeID("Course Completer", TierBronze))
	assert.Equal(t, "quiz-master-gold", BadgeID("Quiz Master", TierGold))
}

func TestFeaturedBadgeListValidate(t *testing.T) {
	assert.NoError(t, FeaturedBadgeList{}.Validate())
	assert.NoError(t, FeaturedBadgeList{"a", "b", "c", "d", "e"}.Validate())
	assert.ErrorIs(t, FeaturedBadgeList{"a", "b", "c", "d", "e", "f"}.Validate(), ErrTooManyFeaturedBadges)
	assert.Error(t, FeaturedBadgeList{"a", "a"}.Validate())
	assert.Error(t, FeaturedBadgeList{""}.Validate())
}
