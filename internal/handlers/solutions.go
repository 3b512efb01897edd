package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/solvemyproblem/core/internal/services"
	"github.com/solvemyproblem/core/internal/utils"
	"gorm.io/gorm"
)

// SolutionHandler handles solution store routes
type SolutionHandler struct {
	DB *gorm.DB
}

// ListMine handles GET /api/user/solutions
// @Summary List caller solutions
// @Tags Solutions
// @Produce json
// @Param limit query int false "Page size (default 50, max 200)"
// @Param offset query int false "Page offset"
// @Success 200 {array} services.SolutionView
// @Failure 401 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /user/solutions [get]
func (h *SolutionHandler) ListMine(c *fiber.Ctx) error {
	identity, err := getIdentity(c)
	if err != nil {
		return identityError(c, err)
	}

	solutions, err := services.ListSolutionsByUser(h.DB, identity.Sub, parsePage(c))
	if err != nil {
		return serviceError(c, err, "solutions.list")
	}

	return utils.SuccessResponse(c, solutions, fiber.StatusOK)
}

// GetMine handles GET /api/user/solution/:id
// @Summary Get one caller solution
// @Tags Solutions
// @Produce json
// @Param id path string true "Problem identifier"
// @Success 200 {object} services.SolutionView
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /user/solution/{id} [get]
func (h *SolutionHandler) GetMine(c *fiber.Ctx) error {
	identity, err := getIdentity(c)
	if err != nil {
		return identityError(c, err)
	}

	solution, err := services.GetSolution(h.DB, identity.Sub, c.Params("id"))
	if err != nil {
		return serviceError(c, err, "solutions.get")
	}

	return utils.SuccessResponse(c, solution, fiber.StatusOK)
}

// ListAll handles GET /api/allSolutions
// @Summary List all solutions
// @Tags Admin
// @Produce json
// @Param limit query int false "Page size (default 50, max 200)"
// @Param offset query int false "Page offset"
// @Success 200 {array} services.SolutionView
// @Failure 403 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /allSolutions [get]
func (h *SolutionHandler) ListAll(c *fiber.Ctx) error {
	solutions, err := services.ListAllSolutions(h.DB, parsePage(c))
	if err != nil {
		return serviceError(c, err, "solutions.listAll")
	}

	return utils.SuccessResponse(c, solutions, fiber.StatusOK)
}
