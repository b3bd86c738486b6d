package models

import (
	"fmt"
	"time"

	"github.com/gosimple/slug"
)

// BadgeTier is the achievement level of a named badge.
type BadgeTier string

const (
	TierBronze BadgeTier = "bronze"
	TierSilver BadgeTier = "silver"
	TierGold   BadgeTier = "gold"
)

// ValidTier reports whether t is one of the three known tiers.
func ValidTier(t BadgeTier) bool {
	return t == TierBronze || t == TierSilver || t == TierGold
}

// Badge: static catalog row. One row per (name, tier); the id is a slug
// derived from both, e.g. "course-completer-bronze".
type Badge struct {
	ID                  string    `gorm:"primaryKey;size:128" json:"id"`
	Name                string    `gorm:"not null" json:"name"`
	Tier                BadgeTier `gorm:"size:16;not null" json:"tier"`
	CriteriaDescription string    `gorm:"type:text" json:"criteria_description"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// BadgeID derives the stable catalog id for a (name, tier) pair.
func BadgeID(name string, tier BadgeTier) string {
	return slug.Make(fmt.Sprintf("%s %s", name, tier))
}

// UserBadgeGrant: awarded instance, at most one per (user, badge).
type UserBadgeGrant struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string    `gorm:"not null;uniqueIndex:idx_user_badge,priority:1" json:"external_user_id"`
	BadgeID        string    `gorm:"not null;uniqueIndex:idx_user_badge,priority:2" json:"badge_id"`
	EarnedAt       time.Time `gorm:"autoCreateTime" json:"earned_at"`
	IsFavorite     bool      `gorm:"default:false" json:"is_favorite"`
}

// DefaultBadgeCatalog is seeded into the badges table at boot. Granting is
// threshold-driven by callers; this is just the fixed enumeration.
var DefaultBadgeCatalog = []Badge{
	{ID: BadgeID("Course Completer", TierBronze), Name: "Course Completer", Tier: TierBronze, CriteriaDescription: "Complete your first course"},
	{ID: BadgeID("Course Completer", TierSilver), Name: "Course Completer", Tier: TierSilver, CriteriaDescription: "Complete 5 courses"},
	{ID: BadgeID("Course Completer", TierGold), Name: "Course Completer", Tier: TierGold, CriteriaDescription: "Complete 10 courses"},
	{ID: BadgeID("Consistent Learner", TierBronze), Name: "Consistent Learner", Tier: TierBronze, CriteriaDescription: "3-day login streak"},
	{ID: BadgeID("Consistent Learner", TierSilver), Name: "Consistent Learner", Tier: TierSilver, CriteriaDescription: "7-day login streak"},
	{ID: BadgeID("Consistent Learner", TierGold), Name: "Consistent Learner", Tier: TierGold, CriteriaDescription: "30-day login streak"},
	{ID: BadgeID("Quiz Master", TierBronze), Name: "Quiz Master", Tier: TierBronze, CriteriaDescription: "Pass a quiz"},
	{ID: BadgeID("Quiz Master", TierSilver), Name: "Quiz Master", Tier: TierSilver, CriteriaDescription: "Pass 10 quizzes"},
	{ID: BadgeID("Quiz Master", TierGold), Name: "Quiz Master", Tier: TierGold, CriteriaDescription: "Pass 25 quizzes"},
	{ID: BadgeID("Community Helper", TierBronze), Name: "Community Helper", Tier: TierBronze, CriteriaDescription: "Make a community contribution"},
	{ID: BadgeID("Community Helper", TierSilver), Name: "Community Helper", Tier: TierSilver, CriteriaDescription: "10 community contributions"},
	{ID: BadgeID("Community Helper", TierGold), Name: "Community Helper", Tier: TierGold, CriteriaDescription: "25 community contributions"},
}
