package handlers

import (
	"io"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/solvemyproblem/core/internal/services"
	"github.com/solvemyproblem/core/internal/types"
	"github.com/solvemyproblem/core/internal/utils"
)

// maxProblemFileBytes bounds the uploaded problem payload.
const maxProblemFileBytes = 8 << 20

// IntakeHandler handles the submission intake route
type IntakeHandler struct {
	Intake *services.Intake
}

// UploadFile handles POST /api/upload/file
// @Summary Submit a new problem
// @Description Multipart form: solver_name, file (problem JSON), v_number, depot, max_dist. Debits the computed credit cost and enqueues the job. An X-Idempotency-Key header (or idempotency_key field) makes retries safe.
// @Tags Submissions
// @Accept multipart/form-data
// @Produce json
// @Param solver_name formData string true "Solver name"
// @Param file formData file true "Problem JSON file"
// @Param v_number formData int true "Vehicle count"
// @Param depot formData string true "Depot location identifier"
// @Param max_dist formData int true "Maximum distance per vehicle"
// @Success 202 {object} map[string]string
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 402 {object} utils.ErrorResponseStruct
// @Failure 503 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /upload/file [post]
func (h *IntakeHandler) UploadFile(c *fiber.Ctx) error {
	identity, err := getIdentity(c)
	if err != nil {
		return identityError(c, err)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return serviceError(c, types.InvalidInput("file is required"), "intake")
	}
	if fileHeader.Size > maxProblemFileBytes {
		return serviceError(c, types.InvalidInput("file exceeds the %d byte limit", maxProblemFileBytes), "intake")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return serviceError(c, types.InvalidInput("file could not be read"), "intake")
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxProblemFileBytes+1))
	if err != nil || len(content) > maxProblemFileBytes {
		return serviceError(c, types.InvalidInput("file could not be read"), "intake")
	}

	vNumber, err := strconv.Atoi(c.FormValue("v_number"))
	if err != nil {
		return serviceError(c, types.InvalidInput("v_number must be an integer"), "intake")
	}
	maxDist, err := strconv.ParseInt(c.FormValue("max_dist"), 10, 64)
	if err != nil {
		return serviceError(c, types.InvalidInput("max_dist must be an integer"), "intake")
	}

	idempotencyKey := c.FormValue("idempotency_key")
	if idempotencyKey == "" {
		if key, ok := c.Locals("idempotencyKey").(string); ok {
			idempotencyKey = key
		}
	}

	problemID, err := h.Intake.Submit(services.IntakeInput{
		Sub:            identity.Sub,
		SolverName:     c.FormValue("solver_name"),
		FileContent:    content,
		VehicleNumber:  vNumber,
		Depot:          c.FormValue("depot"),
		MaxDistance:    maxDist,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return serviceError(c, err, "intake")
	}

	return utils.SuccessResponse(c, fiber.Map{"problemId": problemID}, fiber.StatusAccepted)
}
