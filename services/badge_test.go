package services

import (
	"testing"

	"gamification-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBadgeFixture(t *testing.T) *BadgeService {
	t.Helper()
	badges := NewBadgeService(openTestDB(t))
	require.NoError(t, badges.SeedCatalog())
	return badges
}

func TestEvaluateAndGrantOnce(t *testing.T) {
	badges := newBadgeFixture(t)

	grant, err := badges.EvaluateAndGrant("user-1", "Course Completer", models.TierBronze)
	require.NoError(t, err)
	require.NotNil(t, grant)
	assert.Equal(t, "course-completer-bronze", grant.BadgeID)

	// Second grant of the held tier is a silent no-op.
	repeat, err := badges.EvaluateAndGrant("user-1", "Course Completer", models.TierBronze)
	require.NoError(t, err)
	assert.Nil(t, repeat)

	var rows int64
	require.NoError(t, badges.DB.Model(&models.UserBadgeGrant{}).
		Where("external_user_id = ?", "user-1").Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestTierIndependence(t *testing.T) {
	badges := newBadgeFixture(t)

	grant, err := badges.EvaluateAndGrant("user-1", "Course Completer", models.TierGold)
	require.NoError(t, err)
	require.NotNil(t, grant)

	var grants []models.UserBadgeGrant
	require.NoError(t, badges.DB.Where("external_user_id = ?", "user-1").Find(&grants).Error)
	require.Len(t, grants, 1)
	assert.Equal(t, "course-completer-gold", grants[0].BadgeID)
}

func TestCatalogMissIsNonFatal(t *testing.T) {
	badges := newBadgeFixture(t)

	grant, err := badges.EvaluateAndGrant("user-1", "No Such Badge", models.TierBronze)
	assert.NoError(t, err)
	assert.Nil(t, grant)

	// Unknown tiers short-circuit the same way: logged, never an error.
	grant, err = badges.EvaluateAndGrant("user-1", "Course Completer", models.BadgeTier("platinum"))
	assert.NoError(t, err)
	assert.Nil(t, grant)

	var rows int64
	require.NoError(t, badges.DB.Model(&models.UserBadgeGrant{}).
		Where("external_user_id = ?", "user-1").Count(&rows).Error)
	assert.Zero(t, rows)
}

func TestUpdateProgressTierMapping(t *testing.T) {
	badges := newBadgeFixture(t)

	grant, err := badges.UpdateProgressTier("bronze-user", "Quiz Master", 3)
	require.NoError(t, err)
	require.NotNil(t, grant)
	assert.Equal(t, models.BadgeID("Quiz Master", models.TierBronze), grant.BadgeID)

	grant, err = badges.UpdateProgressTier("silver-user", "Quiz Master", 10)
	require.NoError(t, err)
	require.NotNil(t, grant)
	assert.Equal(t, models.BadgeID("Quiz Master", models.TierSilver), grant.BadgeID)

	grant, err = badges.UpdateProgressTier("gold-user", "Quiz Master", 25)
	require.NoError(t, err)
	require.NotNil(t, grant)
	assert.Equal(t, models.BadgeID("Quiz Master", models.TierGold), grant.BadgeID)

	// Exactly the mapped tier is granted, nothing cumulative.
	var rows int64
	require.NoError(t, badges.DB.Model(&models.UserBadgeGrant{}).
		Where("external_user_id = ?", "gold-user").Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestEvaluateCourseCompleterThresholds(t *testing.T) {
	badges := newBadgeFixture(t)

	require.NoError(t, badges.EvaluateCourseCompleter("user-1", 1))
	var rows int64
	require.NoError(t, badges.DB.Model(&models.UserBadgeGrant{}).
		Where("external_user_id = ?", "user-1").Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	// Crossing 5 adds silver on top of the already-held bronze.
	require.NoError(t, badges.EvaluateCourseCompleter("user-1", 5))
	require.NoError(t, badges.DB.Model(&models.UserBadgeGrant{}).
		Where("external_user_id = ?", "user-1").Count(&rows).Error)
	assert.Equal(t, int64(2), rows)

	require.NoError(t, badges.EvaluateCourseCompleter("user-1", 12))
	require.NoError(t, badges.DB.Model(&models.UserBadgeGrant{}).
		Where("external_user_id = ?", "user-1").Count(&rows).Error)
	assert.Equal(t, int64(3), rows)
}

func TestSetFavorite(t *testing.T) {
	badges := newBadgeFixture(t)

	grant, err := badges.EvaluateAndGrant("user-1", "Quiz Master", models.TierBronze)
	require.NoError(t, err)
	require.NotNil(t, grant)

	require.NoError(t, badges.SetFavorite("user-1", grant.BadgeID, true))

	grants, err := badges.ListGrants("user-1")
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.True(t, grants[0].IsFavorite)

	// Unheld badge cannot be favorited.
	err = badges.SetFavorite("user-1", "no-such-badge", true)
	assert.Error(t, err)
}
