package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/solvemyproblem/core/internal/services"
	"github.com/solvemyproblem/core/internal/types"
	"github.com/solvemyproblem/core/internal/utils"
)

// getIdentity extracts the verified caller identity from context (set by the
// auth middleware).
func getIdentity(c *fiber.Ctx) (*services.Identity, error) {
	identity, ok := c.Locals("identity").(*services.Identity)
	if !ok || identity == nil || identity.Sub == "" {
		return nil, fmt.Errorf("identity not found in context")
	}
	return identity, nil
}

// parsePage reads limit/offset query parameters into a Page.
func parsePage(c *fiber.Ctx) services.Page {
	return services.Page{
		Limit:  c.QueryInt("limit", 0),
		Offset: c.QueryInt("offset", 0),
	}
}

// serviceError maps a service-layer error onto the response envelope using
// the stable error taxonomy, falling back to a 500 with the given type.
func serviceError(c *fiber.Ctx, err error, fallbackType string) error {
	var custom *types.CustomError
	if errors.As(err, &custom) {
		return utils.ErrorResponse(c, custom.Message, custom.Code, custom.Type)
	}
	return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, fallbackType)
}

// identityError rejects a request whose identity could not be resolved.
func identityError(c *fiber.Ctx, err error) error {
	return utils.ErrorResponse(c, err.Error(), fiber.StatusForbidden, types.KindForbidden)
}
