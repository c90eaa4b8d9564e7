// handlers/quest_routes.go
package handlers

import (
	"errors"
	"strconv"

	"quest-reward-system/middleware"
	"quest-reward-system/models"
	"quest-reward-system/services"
	"quest-reward-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// localUserID returns the internal user id resolved by the fingerprint
// middleware, or "" when the request carries no user context.
func localUserID(c *fiber.Ctx) string {
	id, _ := c.Locals("local_user_id").(string)
	return id
}

func SetupQuestRoutes(app *fiber.App,
	questService *services.QuestService,
	actionService *services.ActionService,
	bindingService *services.SocialBindingService,
	inviteService *services.InviteService,
	userService *services.UserService,
) {
	// 🔐 Secured routes — require user context (userID, roles)
	securedGroup := app.Group("/s", middleware.UserContextMiddleware())

	securedGroup.Get("/quests", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		quests, err := questService.ListActive(limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list quests",
				"cause": err.Error(),
			})
		}
		return c.JSON(quests)
	})

	securedGroup.Get("/quests/:slug", func(c *fiber.Ctx) error {
		quest, err := questService.GetBySlug(c.Params("slug"))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "quest not found",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load quest",
				"cause": err.Error(),
			})
		}
		return c.JSON(quest)
	})

	securedGroup.Post("/quests/:id/claim", func(c *fiber.Ctx) error {
		userID := localUserID(c)
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "user context missing",
			})
		}
		ip, _ := c.Locals("client_ip").(string)
		visitorID, _ := c.Locals("visitor_id").(string)

		result, err := actionService.Claim(userID, c.Params("id"), ip, visitorID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "claim failed",
				"cause": err.Error(),
			})
		}
		if !result.Allowed {
			return c.Status(fiber.StatusForbidden).JSON(result)
		}
		return c.JSON(result)
	})

	securedGroup.Post("/quests/:id/submit", func(c *fiber.Ctx) error {
		userID := localUserID(c)
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "user context missing",
			})
		}

		var proof models.ProofPayload
		if err := c.BodyParser(&proof); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		result, err := actionService.Submit(c.Context(), userID, c.Params("id"), proof)
		if err != nil {
			if errors.Is(err, services.ErrVerifierUnavailable) {
				// transient provider failure — the action is untouched, retry later
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error": "verification temporarily unavailable, please retry",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "submit failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(result)
	})

	// Proof screenshots are uploaded first, then the returned URL goes into
	// the submit payload.
	securedGroup.Post("/proofs/image", func(c *fiber.Ctx) error {
		userID := localUserID(c)
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "user context missing",
			})
		}

		fileHeader, err := c.FormFile("image")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "image file required",
				"cause": err.Error(),
			})
		}

		url, err := utils.UploadProofImage(fileHeader, uuid.NewString())
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "upload failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"image_url": url})
	})

	securedGroup.Post("/twitter/code", func(c *fiber.Ctx) error {
		userID := localUserID(c)
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "user context missing",
			})
		}
		code, err := bindingService.IssueCode(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to issue code",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"code": code})
	})

	securedGroup.Post("/twitter/bind", func(c *fiber.Ctx) error {
		userID := localUserID(c)
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "user context missing",
			})
		}

		type Req struct {
			Handle string `json:"handle"`
			Code   string `json:"code"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		if err := bindingService.Bind(c.Context(), userID, req.Handle, req.Code); err != nil {
			if errors.Is(err, services.ErrVerifierUnavailable) {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error": "twitter temporarily unavailable, please retry",
				})
			}
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "bind failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"message": "twitter account linked"})
	})

	securedGroup.Post("/invites/register", func(c *fiber.Ctx) error {
		userID := localUserID(c)
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "user context missing",
			})
		}

		type Req struct {
			InviterID string `json:"inviter_id"`
			Code      string `json:"code"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.InviterID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "inviter_id required",
			})
		}

		invite, err := inviteService.Register(req.InviterID, userID, req.Code)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invite registration failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(invite)
	})

	securedGroup.Get("/me", func(c *fiber.Ctx) error {
		userID := localUserID(c)
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "user context missing",
			})
		}
		user, err := userService.GetByID(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load profile",
				"cause": err.Error(),
			})
		}
		inviteCount, _ := inviteService.InviteCount(userID)
		return c.JSON(fiber.Map{
			"user":         user,
			"invite_count": inviteCount,
		})
	})

	securedGroup.Get("/me/actions", func(c *fiber.Ctx) error {
		userID := localUserID(c)
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "user context missing",
			})
		}
		var actions []models.QuestAction
		if err := actionService.DB.
			Where("user_id = ?", userID).
			Order("claimed_at DESC").
			Limit(100).
			Find(&actions).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list actions",
				"cause": err.Error(),
			})
		}
		return c.JSON(actions)
	})

	securedGroup.Get("/me/rewards", func(c *fiber.Ctx) error {
		userID := localUserID(c)
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "user context missing",
			})
		}
		var rewards []models.Reward
		if err := actionService.DB.
			Where("user_id = ?", userID).
			Order("created_at DESC").
			Limit(100).
			Find(&rewards).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list rewards",
				"cause": err.Error(),
			})
		}
		return c.JSON(rewards)
	})
}
