package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/solvemyproblem/core/internal/services"
	"github.com/solvemyproblem/core/internal/types"
	"github.com/solvemyproblem/core/internal/utils"
	"gorm.io/gorm"
)

// CreditHandler handles credit ledger routes
type CreditHandler struct {
	DB *gorm.DB
}

// GetCredits handles GET /api/user/credits
// @Summary Get caller credit balance
// @Tags Credits
// @Produce json
// @Success 200 {object} map[string]int64
// @Failure 401 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /user/credits [get]
func (h *CreditHandler) GetCredits(c *fiber.Ctx) error {
	identity, err := getIdentity(c)
	if err != nil {
		return identityError(c, err)
	}

	balance, err := services.GetBalance(h.DB, identity.Sub)
	if err != nil {
		return serviceError(c, err, "credits.get")
	}

	return utils.SuccessResponse(c, fiber.Map{"creditValue": balance}, fiber.StatusOK)
}

// AddCredits handles POST /api/user/add/credits/:amount
// @Summary Add credits to the caller balance
// @Description Amount 0 lazily provisions the balance record on first sign-in
// @Tags Credits
// @Produce json
// @Param amount path int true "Credits to add (non-negative)"
// @Success 200 {object} map[string]int64
// @Failure 400 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /user/add/credits/{amount} [post]
func (h *CreditHandler) AddCredits(c *fiber.Ctx) error {
	identity, err := getIdentity(c)
	if err != nil {
		return identityError(c, err)
	}

	amount, err := c.ParamsInt("amount")
	if err != nil || amount < 0 {
		return serviceError(c, types.InvalidInput("amount must be a non-negative integer"), "credits.add")
	}

	newBalance, err := services.Adjust(h.DB, identity.Sub, int64(amount))
	if err != nil {
		return serviceError(c, err, "credits.add")
	}

	return utils.SuccessResponse(c, fiber.Map{"creditValue": newBalance}, fiber.StatusOK)
}

// TopCredits handles GET /api/user/getTopCredits
// @Summary Top balances
// @Tags Admin
// @Produce json
// @Param limit query int false "Maximum rows (default 10)"
// @Success 200 {array} services.TopBalance
// @Failure 403 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /user/getTopCredits [get]
func (h *CreditHandler) TopCredits(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 10)
	if limit <= 0 {
		limit = 10
	}

	rows, err := services.TopBalances(h.DB, limit)
	if err != nil {
		return serviceError(c, err, "credits.top")
	}

	return utils.SuccessResponse(c, rows, fiber.StatusOK)
}

// TotalCredits handles GET /api/user/getTotalCredits
// @Summary Sum of all balances
// @Tags Admin
// @Produce json
// @Success 200 {object} map[string]int64
// @Failure 403 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /user/getTotalCredits [get]
func (h *CreditHandler) TotalCredits(c *fiber.Ctx) error {
	total, err := services.TotalIssued(h.DB)
	if err != nil {
		return serviceError(c, err, "credits.total")
	}

	return utils.SuccessResponse(c, fiber.Map{"totalCredits": total}, fiber.StatusOK)
}
