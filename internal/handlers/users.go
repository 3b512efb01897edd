package handlers

import (
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/solvemyproblem/core/internal/models"
	"github.com/solvemyproblem/core/internal/services"
	"github.com/solvemyproblem/core/internal/types"
	"github.com/solvemyproblem/core/internal/utils"
	"gorm.io/gorm"
)

// UserHandler handles user management routes
type UserHandler struct {
	DB *gorm.DB
}

type checkUserBody struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type adminChangeNameBody struct {
	Sub string `json:"sub"`
}

// CheckUser handles POST /api/checkUser
// @Summary Provision user on first sign-in
// @Description Creates the user record for the verified identity if it does not exist yet
// @Tags Users
// @Accept json
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 503 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /checkUser [post]
func (h *UserHandler) CheckUser(c *fiber.Ctx) error {
	identity, err := getIdentity(c)
	if err != nil {
		return identityError(c, err)
	}

	var body checkUserBody
	_ = c.BodyParser(&body)

	// The verified claims win over posted values; the body only fills gaps
	// for providers whose access tokens omit profile claims.
	name := identity.Name
	if name == "" {
		name = body.Name
	}
	email := identity.Email
	if email == "" {
		email = body.Email
	}

	user, err := services.EnsureUser(h.DB, identity.Sub, name, email)
	if err != nil {
		return serviceError(c, err, "checkUser")
	}

	return utils.SuccessResponse(c, user, fiber.StatusOK)
}

// GetRole handles POST /api/getRole
// @Summary Get caller role
// @Tags Users
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /getRole [post]
func (h *UserHandler) GetRole(c *fiber.Ctx) error {
	identity, err := getIdentity(c)
	if err != nil {
		return identityError(c, err)
	}

	user, err := services.GetUser(h.DB, identity.Sub)
	if err != nil {
		return serviceError(c, err, "getRole")
	}

	return utils.SuccessResponse(c, fiber.Map{"role": user.Role}, fiber.StatusOK)
}

// UserDetails handles GET /api/userDetails
// @Summary Get caller user record
// @Description Returns a single-element array, the shape the original client consumes
// @Tags Users
// @Produce json
// @Success 200 {array} models.User
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /userDetails [get]
func (h *UserHandler) UserDetails(c *fiber.Ctx) error {
	identity, err := getIdentity(c)
	if err != nil {
		return identityError(c, err)
	}

	user, err := services.GetUser(h.DB, identity.Sub)
	if err != nil {
		return serviceError(c, err, "userDetails")
	}

	return utils.SuccessResponse(c, []*models.User{user}, fiber.StatusOK)
}

// ChangeName handles POST /api/changeName/:name
// @Summary Change caller display name
// @Tags Users
// @Produce json
// @Param name path string true "New display name"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /changeName/{name} [post]
func (h *UserHandler) ChangeName(c *fiber.Ctx) error {
	identity, err := getIdentity(c)
	if err != nil {
		return identityError(c, err)
	}

	newName, err := pathName(c)
	if err != nil {
		return serviceError(c, err, "changeName")
	}

	if err := services.ChangeName(h.DB, identity.Sub, newName); err != nil {
		return serviceError(c, err, "changeName")
	}

	return utils.SuccessResponse(c, fiber.Map{"ok": true, "name": newName}, fiber.StatusOK)
}

// AdminChangeName handles POST /api/admin/changeName/:name
// @Summary Change any user's display name
// @Tags Admin
// @Accept json
// @Produce json
// @Param name path string true "New display name"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /admin/changeName/{name} [post]
func (h *UserHandler) AdminChangeName(c *fiber.Ctx) error {
	newName, err := pathName(c)
	if err != nil {
		return serviceError(c, err, "admin.changeName")
	}

	var body adminChangeNameBody
	if err := c.BodyParser(&body); err != nil || body.Sub == "" {
		return serviceError(c, types.InvalidInput("request body must carry the target user sub"), "admin.changeName")
	}

	if err := services.ChangeName(h.DB, body.Sub, newName); err != nil {
		return serviceError(c, err, "admin.changeName")
	}

	return utils.SuccessResponse(c, fiber.Map{"ok": true, "sub": body.Sub, "name": newName}, fiber.StatusOK)
}

// AllUsers handles GET /api/allUsers
// @Summary List all users
// @Tags Admin
// @Produce json
// @Success 200 {array} models.User
// @Failure 403 {object} utils.ErrorResponseStruct
// @Security BearerAuth
// @Router /allUsers [get]
func (h *UserHandler) AllUsers(c *fiber.Ctx) error {
	users, err := services.ListUsers(h.DB)
	if err != nil {
		return serviceError(c, err, "allUsers")
	}
	return utils.SuccessResponse(c, users, fiber.StatusOK)
}

// pathName extracts and decodes the :name path parameter.
func pathName(c *fiber.Ctx) (string, error) {
	name, err := url.PathUnescape(c.Params("name"))
	if err != nil || name == "" {
		return "", types.InvalidInput("name path parameter is required")
	}
	return name, nil
}
