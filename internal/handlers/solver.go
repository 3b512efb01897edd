package handlers

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"github.com/solvemyproblem/core/internal/services"
	"github.com/solvemyproblem/core/internal/types"
	"github.com/solvemyproblem/core/internal/utils"
	"gorm.io/gorm"
)

// SolverHandler handles the solver worker's result write path. The worker
// authenticates with the shared solver key, not a user bearer token.
type SolverHandler struct {
	DB     *gorm.DB
	APIKey string
}

// RecordSolution handles POST /api/solver/solution/:id
// @Summary Record a solver result
// @Description Write path owned by the external solver worker. Idempotent: re-posting a recorded problem is a no-op.
// @Tags Solver
// @Accept json
// @Produce json
// @Param id path string true "Problem identifier"
// @Param X-Solver-Key header string true "Shared solver key"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Router /solver/solution/{id} [post]
func (h *SolverHandler) RecordSolution(c *fiber.Ctx) error {
	key := c.Get("X-Solver-Key")
	if h.APIKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(h.APIKey)) != 1 {
		return utils.ErrorResponse(c, "invalid solver key", fiber.StatusUnauthorized, types.KindUnauthorized)
	}

	var payload services.SolutionPayload
	if err := c.BodyParser(&payload); err != nil {
		return serviceError(c, types.InvalidInput("solution payload is not valid JSON"), "solver.record")
	}

	if err := services.RecordSolution(h.DB, c.Params("id"), &payload); err != nil {
		return serviceError(c, err, "solver.record")
	}

	return utils.SuccessResponse(c, fiber.Map{"ok": true, "problemId": c.Params("id")}, fiber.StatusCreated)
}
