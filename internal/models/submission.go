package models

import (
	"time"
)

// Submission is an admitted job record. ProblemID correlates it with the
// eventual Solution. FileContent holds the uploaded problem payload
// (locations, distance matrix) as submitted. Immutable once created except
// for administrative correction.
type Submission struct {
	ProblemID      string    `gorm:"primaryKey;size:36"`
	Sub            string    `gorm:"size:255;not null;index"`
	SolverName     string    `gorm:"size:255;not null"`
	FileContent    JSON      `gorm:"type:json"`
	VehicleNumber  int       `gorm:"not null"`
	Depot          string    `gorm:"size:255;not null"`
	MaxDistance    int64     `gorm:"not null"`
	CreditCost     int64     `gorm:"not null"`
	IdempotencyKey *string   `gorm:"size:128;uniqueIndex"`
	ReceivedAt     time.Time `gorm:"index"`
}

// TableName overrides the table name for Submission
func (Submission) TableName() string {
	return "submissions"
}
