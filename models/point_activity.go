package models

import (
	"fmt"
	"time"
)

// ActivityType classifies what earned the points.
type ActivityType string

const (
	ActivityAccountCreation       ActivityType = "ACCOUNT_CREATION"
	ActivityCourseCompletion      ActivityType = "COURSE_COMPLETION"
	ActivityQuizCompletion        ActivityType = "QUIZ_COMPLETION"
	ActivityCertificateEarned     ActivityType = "CERTIFICATE_EARNED"
	ActivityCommunityContribution ActivityType = "COMMUNITY_CONTRIBUTION"
	ActivityDailyLogin            ActivityType = "DAILY_LOGIN"
	ActivityAdminAdjustment       ActivityType = "ADMIN_ADJUSTMENT"
	ActivityOther                 ActivityType = "OTHER"
)

// ParseActivityType maps a wire string onto the enum, defaulting to OTHER.
func ParseActivityType(s string) ActivityType {
	switch ActivityType(s) {
	case ActivityAccountCreation, ActivityCourseCompletion, ActivityQuizCompletion,
		ActivityCertificateEarned, ActivityCommunityContribution, ActivityDailyLogin,
		ActivityAdminAdjustment:
		return ActivityType(s)
	default:
		return ActivityOther
	}
}

// PointActivity is one append-only ledger row. Rows are created once and
// never updated or deleted; the profile total is derived from them.
type PointActivity struct {
	ID             string       `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string       `gorm:"index;not null" json:"external_user_id"`
	Points         int64        `gorm:"not null" json:"points"` // positive delta, validated by the ledger
	Reason         string       `gorm:"size:255" json:"reason"`
	ActivityType   ActivityType `gorm:"size:32;not null" json:"activity_type"`

	// Nullable so rows without a key never collide on the unique index.
	IdempotencyKey *string `gorm:"uniqueIndex" json:"idempotency_key,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Canonical idempotency keys. Deriving the key from the triggering event
// means retries of the same logical event dedupe without coordination.

func DailyLoginKey(externalUserID string, day time.Time) string {
	return fmt.Sprintf("daily_login_%s_%s", externalUserID, day.UTC().Format("2006-01-02"))
}

func CourseCompletionKey(externalUserID, courseID string) string {
	return fmt.Sprintf("course_completion_%s_%s", externalUserID, courseID)
}

func QuizCompletionKey(externalUserID, quizID string) string {
	return fmt.Sprintf("quiz_completion_%s_%s", externalUserID, quizID)
}

func CertificateEarnedKey(externalUserID, courseID string) string {
	return fmt.Sprintf("certificate_earned_%s_%s", externalUserID, courseID)
}

func AccountCreationKey(externalUserID string) string {
	return fmt.Sprintf("account_creation_%s", externalUserID)
}

func StreakMilestoneKey(externalUserID string, streak int, day time.Time) string {
	return fmt.Sprintf("streak_milestone_%s_%d_%s", externalUserID, streak, day.UTC().Format("2006-01-02"))
}
