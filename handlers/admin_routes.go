// handlers/admin_routes.go
package handlers

import (
	"strconv"
	"time"

	"quest-reward-system/middleware"
	"quest-reward-system/models"
	"quest-reward-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAdminRoutes(app *fiber.App,
	questService *services.QuestService,
	actionService *services.ActionService,
	blacklistService *services.BlacklistService,
	riskService *services.RiskService,
	fingerprintService *services.FingerprintService,
) {
	// Admin endpoints
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireRole("admin"))

	adminID := func(c *fiber.Ctx) string {
		id, _ := c.Locals("user_id").(string)
		return id
	}

	// --- Quest management ---

	adminGroup.Post("/quests", func(c *fiber.Ctx) error {
		var quest models.Quest
		if err := c.BodyParser(&quest); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if quest.Title == "" || quest.Type == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "title and type are required",
			})
		}
		quest.CreatedBy = adminID(c)
		if err := questService.CreateQuest(&quest); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "quest creation failed",
				"cause": err.Error(),
			})
		}
		return c.Status(fiber.StatusCreated).JSON(quest)
	})

	adminGroup.Patch("/quests/:id/status", func(c *fiber.Ctx) error {
		type Req struct {
			Status models.QuestStatus `json:"status"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if err := questService.SetStatus(c.Params("id"), req.Status, adminID(c)); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "status change failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"message": "status updated",
			"status":  req.Status,
		})
	})

	// --- Review queue ---

	adminGroup.Get("/review-queue", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		actions, err := actionService.ReviewQueue(limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load review queue",
				"cause": err.Error(),
			})
		}
		return c.JSON(actions)
	})

	adminGroup.Post("/actions/:id/approve", func(c *fiber.Ctx) error {
		result, err := actionService.AdminApprove(c.Params("id"), adminID(c))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "approve failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(result)
	})

	adminGroup.Post("/actions/:id/reject", func(c *fiber.Ctx) error {
		type Req struct {
			Reason string `json:"reason"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		result, err := actionService.AdminReject(c.Params("id"), adminID(c), req.Reason)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "reject failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(result)
	})

	adminGroup.Post("/actions/:id/reopen", func(c *fiber.Ctx) error {
		if err := actionService.AdminReopen(c.Params("id"), adminID(c)); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "reopen failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"message": "action returned to review queue"})
	})

	adminGroup.Delete("/actions/:id", func(c *fiber.Ctx) error {
		if err := actionService.HardDelete(c.Params("id")); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "delete failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"message": "action and dependent rewards deleted"})
	})

	// --- Blacklist management ---

	adminGroup.Get("/blacklist", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "100"))
		entries, err := blacklistService.List(limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list blacklist",
				"cause": err.Error(),
			})
		}
		return c.JSON(entries)
	})

	adminGroup.Post("/blacklist", func(c *fiber.Ctx) error {
		type Req struct {
			SubjectType models.BlacklistSubject `json:"subject_type"`
			Value       string                  `json:"value"`
			Reason      string                  `json:"reason"`
			TTLHours    int                     `json:"ttl_hours"` // 0 = permanent
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.Value == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "value required",
			})
		}
		switch req.SubjectType {
		case models.BlacklistSubjectUser, models.BlacklistSubjectDevice, models.BlacklistSubjectIP:
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "subject_type must be user, device or ip",
			})
		}

		var expiresAt *time.Time
		if req.TTLHours > 0 {
			t := time.Now().Add(time.Duration(req.TTLHours) * time.Hour)
			expiresAt = &t
		}

		if err := blacklistService.Add(req.SubjectType, req.Value, req.Reason, adminID(c), expiresAt); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "blacklist add failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"message": "blacklisted"})
	})

	adminGroup.Delete("/blacklist", func(c *fiber.Ctx) error {
		subjectType := models.BlacklistSubject(c.Query("subject_type"))
		value := c.Query("value")
		if value == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "value required",
			})
		}
		if err := blacklistService.Remove(subjectType, value, adminID(c)); err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "blacklist remove failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"message": "removed from blacklist"})
	})

	// --- Risk tooling ---

	adminGroup.Get("/risk/events", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "100"))
		filter := services.RiskEventFilter{
			UserID:   c.Query("user_id"),
			Severity: models.RiskSeverity(c.Query("severity")),
			Limit:    limit,
		}
		if sinceStr := c.Query("since"); sinceStr != "" {
			since, err := time.Parse(time.RFC3339, sinceStr)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "since must be RFC3339",
				})
			}
			filter.Since = &since
		}

		events, err := riskService.ListEvents(filter)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list risk events",
				"cause": err.Error(),
			})
		}
		return c.JSON(events)
	})

	adminGroup.Post("/risk/override", func(c *fiber.Ctx) error {
		type Req struct {
			UserID string `json:"user_id"`
			Score  int    `json:"score"`
			Reason string `json:"reason"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if err := riskService.OverrideScore(req.UserID, req.Score, adminID(c), req.Reason); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "override failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"message": "risk score overridden",
			"user_id": req.UserID,
			"score":   req.Score,
		})
	})

	adminGroup.Get("/devices/:visitorID/users", func(c *fiber.Ctx) error {
		userIDs, err := fingerprintService.UsersOnDevice(c.Params("visitorID"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "device lookup failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"visitor_id": c.Params("visitorID"),
			"user_ids":   userIDs,
		})
	})
}
