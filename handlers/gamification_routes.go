// handlers/gamification_routes.go
package handlers

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gamification-service/middleware"
	"gamification-service/models"
	"gamification-service/services"

	"github.com/gofiber/fiber/v2"
)

// SetupGamificationRoutes wires the engine's operations behind the gateway
// middleware pair. The gateway forwards the caller's identity in X-User-ID;
// admin routes additionally require the "admin" role.
func SetupGamificationRoutes(
	app *fiber.App,
	ledger *services.LedgerService,
	streaks *services.StreakService,
	badges *services.BadgeService,
	leaderboard *services.LeaderboardService,
) {
	securedGroup := app.Group("/user", middleware.UserContextMiddleware())

	securedGroup.Get("/profile", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		profile, err := ledger.EnsureProfile(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load profile",
				"cause": err.Error(),
			})
		}
		grants, err := badges.ListGrants(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load badges",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"profile": profile,
			"badges":  grants,
		})
	})

	// Login/page-load ping: advance the streak for today (or an explicit
	// date, mainly for backfills). Streak side effects are best-effort
	// inside the service; this endpoint only fails on a storage error.
	securedGroup.Post("/activity", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		type Req struct {
			Date string `json:"date"` // optional, YYYY-MM-DD
		}
		var req Req
		_ = c.BodyParser(&req) // empty body means "today"

		when := time.Now()
		if req.Date != "" {
			parsed, err := time.Parse("2006-01-02", req.Date)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "invalid date, expected YYYY-MM-DD",
				})
			}
			when = parsed
		}

		profile, err := streaks.RecordActivity(userID, when)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to record activity",
				"cause": err.Error(),
			})
		}
		return c.JSON(profile)
	})

	// Engagement event ingestion: course/quiz/certificate/community events
	// from upstream services. The idempotency key is derived from the event
	// so delivery retries cannot double-credit.
	securedGroup.Post("/events", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		type Req struct {
			Type        string `json:"type"`         // course_completed, quiz_completed, certificate_earned, community_contribution, account_created
			ReferenceID string `json:"reference_id"` // course/quiz/post id
			Count       int64  `json:"count"`        // running total for threshold checks (optional)
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		weights := services.DefaultPointWeights
		var (
			points       int64
			reason       string
			activityType models.ActivityType
			key          string
		)
		switch req.Type {
		case "course_completed":
			if req.ReferenceID == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "reference_id required"})
			}
			points, reason, activityType = weights.CourseCompletion, "course completed", models.ActivityCourseCompletion
			key = models.CourseCompletionKey(userID, req.ReferenceID)
		case "quiz_completed":
			if req.ReferenceID == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "reference_id required"})
			}
			points, reason, activityType = weights.QuizCompletion, "quiz completed", models.ActivityQuizCompletion
			key = models.QuizCompletionKey(userID, req.ReferenceID)
		case "certificate_earned":
			if req.ReferenceID == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "reference_id required"})
			}
			points, reason, activityType = weights.CertificateEarned, "certificate earned", models.ActivityCertificateEarned
			key = models.CertificateEarnedKey(userID, req.ReferenceID)
		case "community_contribution":
			points, reason, activityType = weights.CommunityContribution, "community contribution", models.ActivityCommunityContribution
			if req.ReferenceID != "" {
				key = fmt.Sprintf("community_contribution_%s_%s", userID, req.ReferenceID)
			}
		case "account_created":
			points, reason, activityType = weights.AccountCreation, "account created", models.ActivityAccountCreation
			key = models.AccountCreationKey(userID)
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "unknown event type",
			})
		}

		profile, err := ledger.AwardPoints(userID, points, reason, activityType, key)
		if err != nil {
			if errors.Is(err, services.ErrInvalidPoints) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "award failed",
				"cause": err.Error(),
			})
		}

		// Threshold badges ride along best-effort: a badge hiccup must never
		// fail the event ingestion.
		switch req.Type {
		case "course_completed":
			if err := badges.EvaluateCourseCompleter(userID, req.Count); err != nil {
				log.Printf("[EVENTS] ⚠️ Course badge evaluation failed for %s: %v", userID, err)
			}
		case "quiz_completed":
			if _, err := badges.UpdateProgressTier(userID, "Quiz Master", int(req.Count)); err != nil {
				log.Printf("[EVENTS] ⚠️ Quiz badge evaluation failed for %s: %v", userID, err)
			}
		case "community_contribution":
			if _, err := badges.UpdateProgressTier(userID, "Community Helper", int(req.Count)); err != nil {
				log.Printf("[EVENTS] ⚠️ Community badge evaluation failed for %s: %v", userID, err)
			}
		}

		return c.JSON(profile)
	})

	securedGroup.Get("/badges", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		grants, err := badges.ListGrants(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get badges",
				"cause": err.Error(),
			})
		}
		return c.JSON(grants)
	})

	securedGroup.Put("/badges/featured", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		type Req struct {
			BadgeIDs []string `json:"badge_ids"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		profile, err := ledger.SetFeaturedBadges(userID, req.BadgeIDs)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.JSON(profile)
	})

	securedGroup.Put("/badges/:badgeId/favorite", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		type Req struct {
			Favorite bool `json:"favorite"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		if err := badges.SetFavorite(userID, c.Params("badgeId"), req.Favorite); err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "badge grant not found",
			})
		}
		return c.JSON(fiber.Map{"message": "favorite updated"})
	})

	app.Get("/leaderboard/:period", middleware.UserContextMiddleware(), func(c *fiber.Ctx) error {
		period, err := models.ParsePeriod(c.Params("period"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		limit := c.QueryInt("limit", 10)

		rows, err := leaderboard.GetLeaderboard(period, limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get leaderboard",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"period":  period,
			"entries": rows,
		})
	})

	// Admin endpoints
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireRole("admin"))

	adminGroup.Post("/points/grant", func(c *fiber.Ctx) error {
		type Req struct {
			UserID         string `json:"user_id"`
			Points         int64  `json:"points"`
			Reason         string `json:"reason"`
			ActivityType   string `json:"activity_type"` // optional: backfill under the original event type
			IdempotencyKey string `json:"idempotency_key"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.UserID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id required"})
		}

		activityType := models.ActivityAdminAdjustment
		if req.ActivityType != "" {
			activityType = models.ParseActivityType(req.ActivityType)
		}

		profile, err := ledger.AwardPoints(req.UserID, req.Points, req.Reason,
			activityType, req.IdempotencyKey)
		if err != nil {
			if errors.Is(err, services.ErrInvalidPoints) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "point grant failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"message": "points granted successfully",
			"profile": profile,
		})
	})

	// External periodic trigger for deployments that schedule outside the
	// process. Trigger authorization is the gateway's concern.
	adminGroup.Post("/leaderboard/recompute", func(c *fiber.Ctx) error {
		type Req struct {
			Period string `json:"period"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		period, err := models.ParsePeriod(req.Period)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}

		result, err := leaderboard.Recompute(period)
		if err != nil {
			if errors.Is(err, models.ErrInvalidPeriod) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "recompute failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(result)
	})
}
