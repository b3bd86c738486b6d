package services

import (
	"errors"
	"fmt"
	"log"

	"gamification-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Course-completion thresholds for the "Course Completer" badge tiers.
var courseCompleterThresholds = []struct {
	Tier        models.BadgeTier
	Completions int64
}{
	{models.TierBronze, 1},
	{models.TierSilver, 5},
	{models.TierGold, 10},
}

type BadgeService struct {
	DB *gorm.DB
}

func NewBadgeService(db *gorm.DB) *BadgeService {
	return &BadgeService{DB: db}
}

// SeedCatalog upserts the static badge catalog. Safe to run at every boot.
func (s *BadgeService) SeedCatalog() error {
	for _, badge := range models.DefaultBadgeCatalog {
		if err := s.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "tier", "criteria_description"}),
		}).Create(&badge).Error; err != nil {
			return fmt.Errorf("seed badge %s: %w", badge.ID, err)
		}
	}
	return nil
}

// EvaluateAndGrant grants (badgeName, tier) to the user if the catalog knows
// it and the user does not already hold it. Both the catalog-miss and the
// already-held cases return (nil, nil): a missing catalog row must never
// break the caller's point/streak flow, and a repeat grant is a no-op.
func (s *BadgeService) EvaluateAndGrant(externalUserID, badgeName string, tier models.BadgeTier) (*models.UserBadgeGrant, error) {
	if !models.ValidTier(tier) {
		log.Printf("[BADGE] ⚠️ Unknown tier %q for badge %q — skipping", tier, badgeName)
		return nil, nil
	}
	badgeID := models.BadgeID(badgeName, tier)

	var badge models.Badge
	if err := s.DB.Where("id = ?", badgeID).First(&badge).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[BADGE] ⚠️ Catalog miss: no badge %q tier=%s (id=%s)", badgeName, tier, badgeID)
			return nil, nil
		}
		return nil, fmt.Errorf("badge lookup: %w", err)
	}

	var held int64
	if err := s.DB.Model(&models.UserBadgeGrant{}).
		Where("external_user_id = ? AND badge_id = ?", externalUserID, badgeID).
		Count(&held).Error; err != nil {
		return nil, fmt.Errorf("grant lookup: %w", err)
	}
	if held > 0 {
		return nil, nil
	}

	grant := models.UserBadgeGrant{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
		BadgeID:        badgeID,
	}
	if err := s.DB.Create(&grant).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Concurrent evaluation granted it first.
			return nil, nil
		}
		return nil, fmt.Errorf("create grant: %w", err)
	}
	log.Printf("[BADGE] 🎖️ Granted %q (%s) → %s", badge.Name, tier, externalUserID)
	return &grant, nil
}

// UpdateProgressTier maps a continuous progress value to a single tier
// (≥25 → gold, ≥10 → silver, else bronze) and grants exactly that tier.
// Used where only the highest-earned tier should be recorded.
func (s *BadgeService) UpdateProgressTier(externalUserID, badgeName string, progress int) (*models.UserBadgeGrant, error) {
	tier := models.TierBronze
	switch {
	case progress >= 25:
		tier = models.TierGold
	case progress >= 10:
		tier = models.TierSilver
	}
	return s.EvaluateAndGrant(externalUserID, badgeName, tier)
}

// EvaluateCourseCompleter runs every "Course Completer" threshold the user's
// completion count has crossed. Each tier is an independent grant; already
// held tiers no-op.
func (s *BadgeService) EvaluateCourseCompleter(externalUserID string, completions int64) error {
	for _, th := range courseCompleterThresholds {
		if completions < th.Completions {
			break
		}
		if _, err := s.EvaluateAndGrant(externalUserID, "Course Completer", th.Tier); err != nil {
			return err
		}
	}
	return nil
}

// ListGrants returns all of a user's badge grants, newest first.
func (s *BadgeService) ListGrants(externalUserID string) ([]models.UserBadgeGrant, error) {
	var grants []models.UserBadgeGrant
	err := s.DB.Where("external_user_id = ?", externalUserID).
		Order("earned_at DESC").
		Find(&grants).Error
	return grants, err
}

// SetFavorite toggles the favorite flag on a held grant.
func (s *BadgeService) SetFavorite(externalUserID, badgeID string, favorite bool) error {
	res := s.DB.Model(&models.UserBadgeGrant{}).
		Where("external_user_id = ? AND badge_id = ?", externalUserID, badgeID).
		Update("is_favorite", favorite)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
