package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/solvemyproblem/core/internal/services"
	"github.com/solvemyproblem/core/internal/utils"
	"gorm.io/gorm"
)

// AdminHandler handles the combined dashboard rollup
type AdminHandler struct {
	DB *gorm.DB
}

// Overview handles GET /api/admin/overview
// @Summary Combined admin dashboard rollup
// @Description Each section is fetched independently; an unavailable source degrades its section instead of failing the whole response.
// @Tags Admin
// @Produce json
// @Param limit query int false "Top-N rows per rollup (default 10)"
// @Success 200 {object} services.Overview
// @Failure 403 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /admin/overview [get]
func (h *AdminHandler) Overview(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 10)
	if limit <= 0 {
		limit = 10
	}

	overview := services.BuildOverview(h.DB, limit)
	return utils.SuccessResponse(c, overview, fiber.StatusOK)
}
