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

// PointWeights define how much each engagement event is worth (tunable via config/env later)
type PointWeights struct {
	DailyLogin            int64
	QuizCompletion        int64
	CourseCompletion      int64
	CertificateEarned     int64
	CommunityContribution int64
	AccountCreation       int64
	StreakWeekBonus       int64 // lump sum at a 7-day streak
	StreakMonthBonus      int64 // lump sum at a 30-day streak
}

var DefaultPointWeights = PointWeights{
	DailyLogin:            5,
	QuizCompletion:        20,
	CourseCompletion:      50,
	CertificateEarned:     100,
	CommunityContribution: 10,
	AccountCreation:       25,
	StreakWeekBonus:       25,
	StreakMonthBonus:      100,
}

// ErrInvalidPoints rejects zero or negative award deltas.
var ErrInvalidPoints = errors.New("points must be a positive integer")

// LedgerService owns the append-only point ledger and the profile total
// projection. Every point mutation in the system funnels through AwardPoints.
type LedgerService struct {
	DB *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{DB: db}
}

// EnsureProfile creates the profile row if absent (atomic upsert, no
// check-then-insert race) and returns the current row.
func (s *LedgerService) EnsureProfile(externalUserID string) (*models.UserProfile, error) {
	seed := models.UserProfile{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
	}
	if err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_user_id"}},
		DoNothing: true,
	}).Create(&seed).Error; err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, fmt.Errorf("ensure profile: %w", err)
	}
	return s.GetProfile(externalUserID)
}

// GetProfile fetches the profile row without creating it.
func (s *LedgerService) GetProfile(externalUserID string) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// AwardPoints appends one ledger row and bumps the profile total atomically.
//
// When idempotencyKey is non-empty and a row with that key already exists,
// the call is a replay: the current profile is returned unchanged and no
// second credit is applied. A unique-constraint violation from a concurrent
// insert with the same key is treated the same way, not as an error.
func (s *LedgerService) AwardPoints(externalUserID string, points int64, reason string, activityType models.ActivityType, idempotencyKey string) (*models.UserProfile, error) {
	if points <= 0 {
		log.Printf("[LEDGER] ❌ Rejected award for %s: non-positive delta %d", externalUserID, points)
		return nil, ErrInvalidPoints
	}

	// Fast path: key already applied.
	if idempotencyKey != "" {
		var count int64
		if err := s.DB.Model(&models.PointActivity{}).
			Where("idempotency_key = ?", idempotencyKey).
			Count(&count).Error; err != nil {
			return nil, fmt.Errorf("idempotency lookup: %w", err)
		}
		if count > 0 {
			log.Printf("[LEDGER] 🔁 Replay detected for key=%s — no credit applied", idempotencyKey)
			return s.EnsureProfile(externalUserID)
		}
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		activity := models.PointActivity{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			Points:         points,
			Reason:         reason,
			ActivityType:   activityType,
		}
		if idempotencyKey != "" {
			activity.IdempotencyKey = &idempotencyKey
		}
		if err := tx.Create(&activity).Error; err != nil {
			return err
		}

		// Upsert-with-increment keeps the projection in step with the ledger
		// even when two first-touch awards race on profile creation.
		seed := models.UserProfile{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			Points:         points,
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "external_user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"points": gorm.Expr("user_profiles.points + ?", points),
			}),
		}).Create(&seed).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Concurrent retry with the same key won the insert first.
			log.Printf("[LEDGER] 🔁 Concurrent replay for key=%s — treating as applied", idempotencyKey)
			return s.EnsureProfile(externalUserID)
		}
		return nil, fmt.Errorf("award points: %w", err)
	}

	profile, err := s.GetProfile(externalUserID)
	if err != nil {
		return nil, err
	}
	log.Printf("[LEDGER] 🎮 +%d pts → %s (total=%d, type=%s, reason: %s)",
		points, externalUserID, profile.Points, activityType, reason)
	return profile, nil
}

// SetFeaturedBadges replaces the profile's pinned badge list. Every id must
// be a badge the user actually holds; the list is ordered and capped at 5.
func (s *LedgerService) SetFeaturedBadges(externalUserID string, badgeIDs models.FeaturedBadgeList) (*models.UserProfile, error) {
	if err := badgeIDs.Validate(); err != nil {
		return nil, err
	}
	for _, badgeID := range badgeIDs {
		var held int64
		if err := s.DB.Model(&models.UserBadgeGrant{}).
			Where("external_user_id = ? AND badge_id = ?", externalUserID, badgeID).
			Count(&held).Error; err != nil {
			return nil, err
		}
		if held == 0 {
			return nil, fmt.Errorf("badge %s is not held by user %s", badgeID, externalUserID)
		}
	}

	profile, err := s.EnsureProfile(externalUserID)
	if err != nil {
		return nil, err
	}
	profile.FeaturedBadgeIDs = badgeIDs
	if err := s.DB.Model(profile).Update("featured_badge_ids", badgeIDs).Error; err != nil {
		return nil, err
	}
	return profile, nil
}
