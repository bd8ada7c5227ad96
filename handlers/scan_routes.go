// handlers/scan_routes.go
package handlers

import (
	"errors"
	"strconv"
	"time"

	"hunt-reward-system/middleware"
	"hunt-reward-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupScanRoutes wires the participant-facing surface: registration, scan
// submission, status polling, progress and the leaderboard.
func SetupScanRoutes(app *fiber.App, scanService *services.ScanService, participantService *services.ParticipantService, statsService *services.StatsService, limiter *services.RateLimiter) {
	// Registration is keyed by client IP, not user context (there is no user yet).
	app.Post("/register", func(c *fiber.Ctx) error {
		verdict := limiter.Check("register:"+c.IP(), 5, time.Minute)
		if !verdict.Allowed {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success":  false,
				"error":    "too many registration attempts",
				"reset_at": verdict.ResetAt,
			})
		}

		var req struct {
			WalletAddress string `json:"wallet_address"`
			Nickname      string `json:"nickname"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
		}

		participant, err := participantService.Register(req.WalletAddress, req.Nickname)
		if err != nil {
			if errors.Is(err, services.ErrIdentityTaken) {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"success": false, "error": err.Error()})
			}
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": err.Error()})
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "user": participant})
	})

	securedGroup := app.Group("/", middleware.UserContextMiddleware())

	securedGroup.Post("/scan", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			Code string `json:"code"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success":   false,
				"code":      services.ErrCodeBadCode,
				"error":     "Invalid request body",
				"retryable": false,
			})
		}

		result, scanErr := scanService.SubmitScan(c.Context(), userID, req.Code)
		if scanErr != nil {
			return c.Status(scanErr.Status).JSON(fiber.Map{
				"success":   false,
				"code":      scanErr.Code,
				"error":     scanErr.Message,
				"retryable": scanErr.Retryable,
			})
		}

		return c.JSON(fiber.Map{
			"success":         true,
			"already_claimed": result.AlreadyClaimed,
			"phase_advanced":  result.PhaseAdvanced,
			"scan":            result.Record,
			"target": fiber.Map{
				"name":     result.Target.Name,
				"slug":     result.Target.Slug,
				"phase":    result.Target.Phase,
				"position": result.Target.Position,
				"rarity":   result.Target.Rarity,
			},
			"user": result.Participant,
		})
	})

	securedGroup.Get("/scan/:id/status", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		view, scanErr := scanService.GetScanStatus(c.Params("id"), userID)
		if scanErr != nil {
			return c.Status(scanErr.Status).JSON(fiber.Map{
				"success": false,
				"code":    scanErr.Code,
				"error":   scanErr.Message,
			})
		}
		return c.JSON(fiber.Map{"success": true, "scan": view})
	})

	securedGroup.Get("/user/progress", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		participant, err := participantService.Get(userID)
		if err != nil {
			if errors.Is(err, services.ErrParticipantNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "error": "participant not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "DB error fetching progress"})
		}

		nextPosition, scanErr := scanService.NextExpected(participant)
		if scanErr != nil {
			return c.Status(scanErr.Status).JSON(fiber.Map{"success": false, "error": scanErr.Message})
		}

		return c.JSON(fiber.Map{
			"success":       true,
			"user":          participant,
			"next_position": nextPosition,
		})
	})

	securedGroup.Get("/leaderboard", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "20"))

		entries, err := statsService.TopParticipants(limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "failed to fetch leaderboard"})
		}
		return c.JSON(fiber.Map{"success": true, "leaderboard": entries})
	})
}
