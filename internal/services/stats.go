package services

import (
	"fmt"
	"log"

	"github.com/solvemyproblem/core/internal/models"
	"github.com/solvemyproblem/core/internal/types"
	"gorm.io/gorm"
	"gorm.io/hints"
)

// Admin aggregation: read-only rollups computed on demand over the three
// stores. Nothing here mutates state, and the combined overview degrades
// each section independently when its source is unavailable.

// MonthlyCount is one calendar-month bucket of submissions.
type MonthlyCount struct {
	Month string `json:"month"`
	Count int64  `json:"count"`
}

// TopSubmitter is one row of the top-users-by-submission-count rollup.
type TopSubmitter struct {
	Sub              string `json:"sub"`
	TotalSubmissions int64  `json:"totalSubmissions"`
}

// TotalSubmissions returns the global submission count.
func TotalSubmissions(db *gorm.DB) (int64, error) {
	var total int64
	err := db.Model(&models.Submission{}).
		Clauses(hints.CommentBefore("select", "admin-stats")).
		Count(&total).Error
	if err != nil {
		return 0, fmt.Errorf("%w: %v", types.ErrStorageUnavailable, err)
	}
	return total, nil
}

// MonthlySubmissions buckets submission counts by calendar month of
// receivedAt, oldest bucket first. Months with no submissions are absent.
func MonthlySubmissions(db *gorm.DB) ([]MonthlyCount, error) {
	monthExpr := monthExpression(db)

	var rows []MonthlyCount
	err := db.Model(&models.Submission{}).
		Clauses(hints.CommentBefore("select", "admin-stats")).
		Select(fmt.Sprintf("%s AS month, COUNT(*) AS count", monthExpr)).
		Group(monthExpr).
		Order("month ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStorageUnavailable, err)
	}
	return rows, nil
}

// monthExpression returns the dialect's YYYY-MM truncation of received_at.
func monthExpression(db *gorm.DB) string {
	switch db.Dialector.Name() {
	case "mysql":
		return "DATE_FORMAT(received_at, '%Y-%m')"
	case "postgres":
		return "TO_CHAR(received_at, 'YYYY-MM')"
	case "sqlserver", "mssql":
		return "FORMAT(received_at, 'yyyy-MM')"
	default: // sqlite
		return "STRFTIME('%Y-%m', received_at)"
	}
}

// TopSubmitters returns up to limit users ordered by submission count
// descending, ties broken by sub ascending.
func TopSubmitters(db *gorm.DB, limit int) ([]TopSubmitter, error) {
	var rows []TopSubmitter
	err := db.Model(&models.Submission{}).
		Clauses(hints.CommentBefore("select", "admin-stats")).
		Select("sub, COUNT(*) AS total_submissions").
		Group("sub").
		Order("total_submissions DESC").
		Order("sub ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStorageUnavailable, err)
	}
	return rows, nil
}

// TotalCreditsConsumed sums the credit cost charged across all solutions.
func TotalCreditsConsumed(db *gorm.DB) (int64, error) {
	var total int64
	err := db.Model(&models.Solution{}).
		Clauses(hints.CommentBefore("select", "admin-stats")).
		Select("COALESCE(SUM(credit_value), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("%w: %v", types.ErrStorageUnavailable, err)
	}
	return total, nil
}

// OverviewSection is one independently-fetched block of the admin overview.
// Unavailable sections carry the flag instead of failing the whole rollup.
type OverviewSection struct {
	Unavailable bool        `json:"unavailable,omitempty"`
	Data        interface{} `json:"data,omitempty"`
}

// Overview is the combined admin dashboard rollup.
type Overview struct {
	Submissions OverviewSection `json:"submissions"`
	Credits     OverviewSection `json:"credits"`
	Users       OverviewSection `json:"users"`
}

// BuildOverview assembles the combined rollup, degrading each section to
// unavailable on error rather than failing the aggregation.
func BuildOverview(db *gorm.DB, topLimit int) Overview {
	var overview Overview

	totalSubs, errTotal := TotalSubmissions(db)
	monthly, errMonthly := MonthlySubmissions(db)
	if errTotal != nil || errMonthly != nil {
		log.Printf("Overview submissions section unavailable: %v %v", errTotal, errMonthly)
		overview.Submissions = OverviewSection{Unavailable: true}
	} else {
		overview.Submissions = OverviewSection{Data: map[string]interface{}{
			"totalSubmissions": totalSubs,
			"monthly":          monthly,
		}}
	}

	totalIssued, errIssued := TotalIssued(db)
	totalConsumed, errConsumed := TotalCreditsConsumed(db)
	topCredits, errTop := TopBalances(db, topLimit)
	if errIssued != nil || errConsumed != nil || errTop != nil {
		log.Printf("Overview credits section unavailable: %v %v %v", errIssued, errConsumed, errTop)
		overview.Credits = OverviewSection{Unavailable: true}
	} else {
		overview.Credits = OverviewSection{Data: map[string]interface{}{
			"totalCredits":         totalIssued,
			"totalCreditsConsumed": totalConsumed,
			"topCredits":           topCredits,
		}}
	}

	topUsers, errUsers := TopSubmitters(db, topLimit)
	if errUsers != nil {
		log.Printf("Overview users section unavailable: %v", errUsers)
		overview.Users = OverviewSection{Unavailable: true}
	} else {
		overview.Users = OverviewSection{Data: map[string]interface{}{
			"topUsers": topUsers,
		}}
	}

	return overview
}
