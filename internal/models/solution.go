package models

import (
	"time"
)

// Solution is written once by the solver worker when a job completes and is
// immutable thereafter. It shares the Submission's ProblemID. A Solution may
// exist without a visible Submission record (tolerated drift from partial
// administrative deletes); nothing enforces referential integrity between
// the two tables.
type Solution struct {
	ProblemID        string    `gorm:"primaryKey;size:36"`
	Sub              string    `gorm:"size:255;not null;index"`
	Objective        int64     `gorm:"not null"`
	MaxRouteDistance int64     `gorm:"not null"`
	DurationMs       int64     `gorm:"not null"`
	CreditValue      int64     `gorm:"not null"`
	Routes           JSON      `gorm:"type:json"`
	ReceivedAt       time.Time `gorm:"index"`
}

// TableName overrides the table name for Solution
func (Solution) TableName() string {
	return "solutions"
}
