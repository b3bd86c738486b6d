package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// MaxFeaturedBadges bounds the list of badges a user can pin on their profile.
const MaxFeaturedBadges = 5

var ErrTooManyFeaturedBadges = errors.New("featured badges limited to 5")

// UserProfile is the gamification projection for one learner: running point
// total plus streak state. The point total mirrors the sum of the user's
// PointActivity rows; all writes go through the ledger and streak services.
type UserProfile struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"` // id issued by the identity provider

	Points int64 `gorm:"default:0" json:"points"`

	CurrentStreak    int        `gorm:"default:0" json:"current_streak"`
	LongestStreak    int        `gorm:"default:0" json:"longest_streak"`
	LastActivityDate *time.Time `json:"last_activity_date,omitempty"` // day precision, UTC midnight

	// Ordered, max 5. Stored serialized; validated through SetFeaturedBadges.
	FeaturedBadgeIDs FeaturedBadgeList `gorm:"type:jsonb;serializer:json" json:"featured_badge_ids"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// FeaturedBadgeList is an ordered list of badge ids, bounded at 5.
type FeaturedBadgeList []string

// Validate rejects oversized or duplicated lists before they reach storage.
func (l FeaturedBadgeList) Validate() error {
	if len(l) > MaxFeaturedBadges {
		return ErrTooManyFeaturedBadges
	}
	seen := make(map[string]struct{}, len(l))
	for _, id := range l {
		if id == "" {
			return errors.New("featured badge id must not be empty")
		}
		if _, dup := seen[id]; dup {
			return errors.New("featured badge ids must be unique")
		}
		seen[id] = struct{}{}
	}
	return nil
}
