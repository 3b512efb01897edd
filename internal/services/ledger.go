package services

import (
	"fmt"
	"time"

	"github.com/solvemyproblem/core/internal/models"
	"github.com/solvemyproblem/core/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// adjustAttempts bounds the optimistic retry loop on write conflicts.
const adjustAttempts = 5

// TopBalance is one row of the admin top-balances rollup.
type TopBalance struct {
	Sub         string `json:"sub"`
	Name        string `json:"name"`
	CreditValue int64  `json:"creditValue"`
}

// GetBalance returns the user's credit balance, 0 if no record exists yet
// (lazy creation semantics).
func GetBalance(db *gorm.DB, sub string) (int64, error) {
	var balance models.CreditBalance
	err := db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)}).
		Where("sub = ?", sub).
		First(&balance).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", types.ErrStorageUnavailable, err)
	}
	return balance.CreditValue, nil
}

// Adjust applies delta to the user's balance atomically and returns the new
// balance. A debit that would underflow fails with InsufficientCredits and
// leaves the balance unchanged. A debit against a never-provisioned user
// fails with UnknownUser. Concurrent adjustments for the same user
// linearize via an optimistic value check with bounded retry; different
// users do not contend.
func Adjust(db *gorm.DB, sub string, delta int64) (int64, error) {
	var newBalance int64

	for attempt := 0; attempt < adjustAttempts; attempt++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			var err error
			newBalance, err = adjustTx(tx, sub, delta)
			return err
		})
		if err == nil {
			return newBalance, nil
		}
		if !isConflict(err) {
			return 0, err
		}
		time.Sleep(time.Duration(attempt+1) * 10 * time.Millisecond)
	}

	return 0, fmt.Errorf("%w: balance update contention for user", types.ErrStorageUnavailable)
}

// errConflict signals a lost optimistic race inside adjustTx.
var errConflict = fmt.Errorf("credit balance concurrently modified")

func isConflict(err error) bool {
	return err == errConflict
}

// adjustTx is the transactional body of Adjust. Intake calls it directly so
// the debit and the submission insert commit as one unit.
func adjustTx(tx *gorm.DB, sub string, delta int64) (int64, error) {
	var balance models.CreditBalance
	err := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("sub = ?", sub).
		First(&balance).Error

	if err != nil {
		if err != gorm.ErrRecordNotFound {
			return 0, fmt.Errorf("%w: %v", types.ErrStorageUnavailable, err)
		}
		// No record yet: credits provision lazily, debits need a user.
		if delta < 0 {
			return 0, types.ErrUnknownUser
		}
		balance = models.CreditBalance{Sub: sub, CreditValue: delta}
		if err := tx.Create(&balance).Error; err != nil {
			return 0, fmt.Errorf("%w: %v", types.ErrStorageUnavailable, err)
		}
		return balance.CreditValue, nil
	}

	if delta < 0 && balance.CreditValue+delta < 0 {
		return 0, types.ErrInsufficientCredits
	}

	newValue := balance.CreditValue + delta
	result := tx.Model(&models.CreditBalance{}).
		Where("sub = ? AND credit_value = ?", sub, balance.CreditValue).
		Update("credit_value", newValue)
	if result.Error != nil {
		return 0, fmt.Errorf("%w: %v", types.ErrStorageUnavailable, result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, errConflict
	}

	return newValue, nil
}

// TopBalances returns up to limit balances ordered descending, ties broken
// by user ascending. User display names are joined in for the dashboard.
func TopBalances(db *gorm.DB, limit int) ([]TopBalance, error) {
	var rows []TopBalance
	err := db.Table("credit_balances").
		Select("credit_balances.sub, COALESCE(users.name, '') AS name, credit_balances.credit_value").
		Joins("LEFT JOIN users ON users.sub = credit_balances.sub").
		Order("credit_balances.credit_value DESC").
		Order("credit_balances.sub ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStorageUnavailable, err)
	}
	return rows, nil
}

// TotalIssued returns the sum of all balances.
func TotalIssued(db *gorm.DB) (int64, error) {
	var total int64
	err := db.Model(&models.CreditBalance{}).
		Select("COALESCE(SUM(credit_value), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("%w: %v", types.ErrStorageUnavailable, err)
	}
	return total, nil
}
