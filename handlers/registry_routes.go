// handlers/registry_routes.go
package handlers

import (
	"errors"
	"strconv"

	"hunt-reward-system/middleware"
	"hunt-reward-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupRegistryRoutes wires the registry read surface and the admin seeding
// operations. Seeding is an offline/ops concern; it stays deliberately small.
func SetupRegistryRoutes(app *fiber.App, registryService *services.RegistryService, statsService *services.StatsService) {
	securedGroup := app.Group("/", middleware.UserContextMiddleware())

	securedGroup.Get("/phases/:phase/targets", func(c *fiber.Ctx) error {
		phase, err := strconv.Atoi(c.Params("phase"))
		if err != nil || phase < 1 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid phase"})
		}

		targets, err := registryService.ListByPhase(phase)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "failed to list targets"})
		}

		// Codes stay server-side — the list is for progress display, not scanning.
		type targetView struct {
			Name     string `json:"name"`
			Slug     string `json:"slug"`
			Position int    `json:"position"`
			Rarity   string `json:"rarity"`
			Hint     string `json:"hint,omitempty"`
		}
		views := make([]targetView, len(targets))
		for i, t := range targets {
			views[i] = targetView{
				Name:     t.Name,
				Slug:     t.Slug,
				Position: t.Position,
				Rarity:   string(t.Rarity),
				Hint:     t.Hint,
			}
		}

		return c.JSON(fiber.Map{"success": true, "phase": phase, "targets": views})
	})

	adminGroup := app.Group("/admin", middleware.UserContextMiddleware(), middleware.RequireAdmin())

	adminGroup.Post("/targets/seed", func(c *fiber.Ctx) error {
		var seeds []services.SeedTarget
		if err := c.BodyParser(&seeds); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
		}

		created, err := registryService.SeedTargets(seeds)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": err.Error()})
		}

		return c.JSON(fiber.Map{"success": true, "created": created, "total": len(seeds)})
	})

	adminGroup.Patch("/targets/:code/deactivate", func(c *fiber.Ctx) error {
		if err := registryService.DeactivateTarget(c.Params("code")); err != nil {
			if errors.Is(err, services.ErrTargetNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "error": "target not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "failed to deactivate target"})
		}
		return c.JSON(fiber.Map{"success": true})
	})

	adminGroup.Get("/participants/:id/verify", func(c *fiber.Ctx) error {
		stored, computed, err := statsService.VerifyTotals(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"success":  false,
				"error":    err.Error(),
				"stored":   stored,
				"computed": computed,
			})
		}
		return c.JSON(fiber.Map{"success": true, "stored": stored, "computed": computed})
	})
}
