package models

import (
	"time"
)

// CreditBalance holds the per-user credit balance, 1:1 with User by subject.
// CreditValue is mutated only through the ledger's atomic adjust path and
// must never go negative.
type CreditBalance struct {
	Sub         string `gorm:"primaryKey;size:255"`
	CreditValue int64  `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName overrides the table name for CreditBalance
func (CreditBalance) TableName() string {
	return "credit_balances"
}
