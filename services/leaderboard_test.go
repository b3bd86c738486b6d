package services

import (
	"testing"
	"time"

	"gamification-service/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedProfiles(t *testing.T, db *gorm.DB, points map[string]int64) {
	t.Helper()
	for userID, pts := range points {
		require.NoError(t, db.Create(&models.UserProfile{
			ID:             uuid.NewString(),
			ExternalUserID: userID,
			Points:         pts,
		}).Error)
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestRecomputeDeterministicOrderAndDenseRanks(t *testing.T) {
	db := openTestDB(t)
	lb := NewLeaderboardService(db)
	lb.now = fixedClock(time.Date(2026, time.March, 4, 12, 0, 0, 0, time.UTC))

	seedProfiles(t, db, map[string]int64{"A": 50, "B": 80, "C": 80, "D": 10})

	result, err := lb.Recompute(models.PeriodWeekly)
	require.NoError(t, err)
	assert.Equal(t, 4, result.UpdatedCount)
	assert.Equal(t, "2026-W10", result.PeriodKey)

	rows, err := lb.GetLeaderboard(models.PeriodWeekly, 10)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	// Ties broken by user id ascending: B and C share 80, B sorts first.
	assert.Equal(t, []string{"B", "C", "A", "D"},
		[]string{rows[0].ExternalUserID, rows[1].ExternalUserID, rows[2].ExternalUserID, rows[3].ExternalUserID})
	for i, r := range rows {
		assert.Equal(t, i+1, r.Rank)
	}

	// Reproducible across repeated reads of the same snapshot.
	again, err := lb.GetLeaderboard(models.PeriodWeekly, 10)
	require.NoError(t, err)
	assert.Equal(t, rows, again)
}

func TestRecomputeReplacesSnapshotWithoutStaleRows(t *testing.T) {
	db := openTestDB(t)
	lb := NewLeaderboardService(db)
	lb.now = fixedClock(time.Date(2026, time.March, 4, 12, 0, 0, 0, time.UTC))

	seedProfiles(t, db, map[string]int64{"A": 50, "B": 80})
	_, err := lb.Recompute(models.PeriodWeekly)
	require.NoError(t, err)

	// A overtakes B; the re-run must move ranks, not accrete rows.
	require.NoError(t, db.Model(&models.UserProfile{}).
		Where("external_user_id = ?", "A").Update("points", 200).Error)
	_, err = lb.Recompute(models.PeriodWeekly)
	require.NoError(t, err)

	var entries []models.LeaderboardSnapshotEntry
	require.NoError(t, db.Where("period = ?", models.PeriodWeekly).Order("rank ASC").Find(&entries).Error)
	require.Len(t, entries, 2)
	assert.Equal(t, "A", entries[0].ExternalUserID)
	assert.Equal(t, int64(200), entries[0].Points)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "B", entries[1].ExternalUserID)
	assert.Equal(t, 2, entries[1].Rank)
}

func TestGetLeaderboardFallsBackToLiveWhenNoSnapshot(t *testing.T) {
	db := openTestDB(t)
	lb := NewLeaderboardService(db)

	seedProfiles(t, db, map[string]int64{"A": 5, "B": 9})

	rows, err := lb.GetLeaderboard(models.PeriodWeekly, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "B", rows[0].ExternalUserID)
	assert.Equal(t, 1, rows[0].Rank)
}

func TestGetLeaderboardAllTimeIsLive(t *testing.T) {
	db := openTestDB(t)
	lb := NewLeaderboardService(db)

	seedProfiles(t, db, map[string]int64{"A": 5, "B": 9})

	rows, err := lb.GetLeaderboard(models.PeriodAllTime, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// All-time never snapshots: a point change shows up on the next read.
	require.NoError(t, db.Model(&models.UserProfile{}).
		Where("external_user_id = ?", "A").Update("points", 100).Error)
	rows, err = lb.GetLeaderboard(models.PeriodAllTime, 10)
	require.NoError(t, err)
	assert.Equal(t, "A", rows[0].ExternalUserID)

	var snapshots int64
	require.NoError(t, db.Model(&models.LeaderboardSnapshotEntry{}).Count(&snapshots).Error)
	assert.Zero(t, snapshots)
}

func TestRecomputeRejectsAllTimeAndUnknownPeriods(t *testing.T) {
	db := openTestDB(t)
	lb := NewLeaderboardService(db)

	_, err := lb.Recompute(models.PeriodAllTime)
	assert.ErrorIs(t, err, models.ErrInvalidPeriod)

	_, err = lb.Recompute(models.LeaderboardPeriod("daily"))
	assert.ErrorIs(t, err, models.ErrInvalidPeriod)

	_, err = lb.GetLeaderboard(models.LeaderboardPeriod("daily"), 10)
	assert.ErrorIs(t, err, models.ErrInvalidPeriod)
}

func TestGetLeaderboardDecoratesUsernames(t *testing.T) {
	db := openTestDB(t)
	lb := NewLeaderboardService(db)

	seedProfiles(t, db, map[string]int64{"A": 5})
	require.NoError(t, db.Create(&models.LearnerAccount{
		ID:             uuid.NewString(),
		ExternalUserID: "A",
		Username:       "ada",
	}).Error)

	rows, err := lb.GetLeaderboard(models.PeriodAllTime, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ada", rows[0].Username)
}

func TestGetLeaderboardClampsLimit(t *testing.T) {
	db := openTestDB(t)
	lb := NewLeaderboardService(db)

	seedProfiles(t, db, map[string]int64{"A": 1, "B": 2, "C": 3})

	rows, err := lb.GetLeaderboard(models.PeriodAllTime, 2)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = lb.GetLeaderboard(models.PeriodAllTime, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 3) // default limit applies, not zero
}
