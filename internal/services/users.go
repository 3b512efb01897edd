package services

import (
	"fmt"

	"github.com/solvemyproblem/core/internal/models"
	"github.com/solvemyproblem/core/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// EnsureUser provisions a user record on first sign-in and returns it. An
// existing record is returned unchanged: in particular the stored email is
// immutable after creation, and a changed display name from the identity
// provider does not overwrite a locally edited one.
func EnsureUser(db *gorm.DB, sub, name, email string) (*models.User, error) {
	if sub == "" {
		return nil, types.InvalidInput("missing user identity")
	}

	user := models.User{Sub: sub, Name: name, Email: email, Role: models.RoleUser}
	err := db.Where("sub = ?", sub).FirstOrCreate(&user).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStorageUnavailable, err)
	}

	return &user, nil
}

// GetUser returns the user record for the given subject.
func GetUser(db *gorm.DB, sub string) (*models.User, error) {
	var user models.User
	err := db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)}).
		Where("sub = ?", sub).
		First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, types.ErrUnknownUser
		}
		return nil, fmt.Errorf("%w: %v", types.ErrStorageUnavailable, err)
	}
	return &user, nil
}

// ChangeName updates the display name of the given user.
func ChangeName(db *gorm.DB, sub, newName string) error {
	if newName == "" {
		return types.InvalidInput("name must not be empty")
	}

	result := db.Model(&models.User{}).Where("sub = ?", sub).Update("name", newName)
	if result.Error != nil {
		return fmt.Errorf("%w: %v", types.ErrStorageUnavailable, result.Error)
	}
	if result.RowsAffected == 0 {
		return types.ErrUnknownUser
	}
	return nil
}

// ListUsers returns all user records, newest first.
func ListUsers(db *gorm.DB) ([]models.User, error) {
	var users []models.User
	err := db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)}).
		Order("created_at DESC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStorageUnavailable, err)
	}
	return users, nil
}
