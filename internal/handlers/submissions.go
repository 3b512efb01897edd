package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/solvemyproblem/core/internal/services"
	"github.com/solvemyproblem/core/internal/utils"
	"gorm.io/gorm"
)

// SubmissionHandler handles submission store and rollup routes
type SubmissionHandler struct {
	DB *gorm.DB
}

// ListMine handles GET /api/user/submissions
// @Summary List caller submissions
// @Tags Submissions
// @Produce json
// @Param limit query int false "Page size (default 50, max 200)"
// @Param offset query int false "Page offset"
// @Success 200 {array} services.SubmissionView
// @Failure 401 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /user/submissions [get]
func (h *SubmissionHandler) ListMine(c *fiber.Ctx) error {
	identity, err := getIdentity(c)
	if err != nil {
		return identityError(c, err)
	}

	submissions, err := services.ListSubmissionsByUser(h.DB, identity.Sub, parsePage(c))
	if err != nil {
		return serviceError(c, err, "submissions.list")
	}

	return utils.SuccessResponse(c, submissions, fiber.StatusOK)
}

// GetMine handles GET /api/user/submission/:id
// @Summary Get one caller submission
// @Description Returns a single-element array, the shape the original client consumes
// @Tags Submissions
// @Produce json
// @Param id path string true "Problem identifier"
// @Success 200 {array} services.SubmissionView
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /user/submission/{id} [get]
func (h *SubmissionHandler) GetMine(c *fiber.Ctx) error {
	identity, err := getIdentity(c)
	if err != nil {
		return identityError(c, err)
	}

	submission, err := services.GetSubmission(h.DB, identity.Sub, c.Params("id"))
	if err != nil {
		return serviceError(c, err, "submissions.get")
	}

	return utils.SuccessResponse(c, []*services.SubmissionView{submission}, fiber.StatusOK)
}

// ListAll handles GET /api/allSubmissions
// @Summary List all submissions
// @Tags Admin
// @Produce json
// @Param limit query int false "Page size (default 50, max 200)"
// @Param offset query int false "Page offset"
// @Success 200 {array} services.SubmissionView
// @Failure 403 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /allSubmissions [get]
func (h *SubmissionHandler) ListAll(c *fiber.Ctx) error {
	submissions, err := services.ListAllSubmissions(h.DB, parsePage(c))
	if err != nil {
		return serviceError(c, err, "submissions.listAll")
	}

	return utils.SuccessResponse(c, submissions, fiber.StatusOK)
}

// TopUsers handles GET /api/user/submissions/topusers
// @Summary Top users by submission count
// @Tags Admin
// @Produce json
// @Param limit query int false "Maximum rows (default 10)"
// @Success 200 {array} services.TopSubmitter
// @Failure 403 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /user/submissions/topusers [get]
func (h *SubmissionHandler) TopUsers(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 10)
	if limit <= 0 {
		limit = 10
	}

	rows, err := services.TopSubmitters(h.DB, limit)
	if err != nil {
		return serviceError(c, err, "submissions.topusers")
	}

	return utils.SuccessResponse(c, rows, fiber.StatusOK)
}

// Monthly handles GET /api/user/submissions/monthly
// @Summary Monthly submission counts
// @Tags Admin
// @Produce json
// @Success 200 {array} services.MonthlyCount
// @Failure 403 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /user/submissions/monthly [get]
func (h *SubmissionHandler) Monthly(c *fiber.Ctx) error {
	rows, err := services.MonthlySubmissions(h.DB)
	if err != nil {
		return serviceError(c, err, "submissions.monthly")
	}

	return utils.SuccessResponse(c, rows, fiber.StatusOK)
}

// Total handles GET /api/user/submissions/total
// @Summary Total submission count
// @Tags Admin
// @Produce json
// @Success 200 {object} map[string]int64
// @Failure 403 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /user/submissions/total [get]
func (h *SubmissionHandler) Total(c *fiber.Ctx) error {
	total, err := services.TotalSubmissions(h.DB)
	if err != nil {
		return serviceError(c, err, "submissions.total")
	}

	return utils.SuccessResponse(c, fiber.Map{"totalSubmissions": total}, fiber.StatusOK)
}
