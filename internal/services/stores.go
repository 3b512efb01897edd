package services

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/solvemyproblem/core/internal/models"
	"github.com/solvemyproblem/core/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Derived submission status. Never stored: a Submission without a matching
// Solution is Pending, one with a Solution is Completed.
const (
	StatusPending   = "Pending"
	StatusCompleted = "Completed"
)

// Page bounds listing queries.
type Page struct {
	Limit  int
	Offset int
}

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// SubmissionMetadata mirrors the multipart field names the client submitted.
type SubmissionMetadata struct {
	SolverName string `json:"solver_name"`
	VNumber    int    `json:"v_number"`
	Depot      string `json:"depot"`
	MaxDist    int64  `json:"max_dist"`
}

// SubmissionView is the API output shape for a Submission.
type SubmissionView struct {
	ProblemID   string             `json:"ProblemId"`
	Sub         string             `json:"sub"`
	Metadata    SubmissionMetadata `json:"metadata"`
	FileContent json.RawMessage    `json:"fileContent"`
	ReceivedAt  time.Time          `json:"receivedAt"`
	Status      string             `json:"status"`
}

// SolutionView is the API output shape for a Solution.
type SolutionView struct {
	ProblemID        string          `json:"ProblemId"`
	Sub              string          `json:"sub"`
	Objective        int64           `json:"Objective"`
	MaxRouteDistance int64           `json:"max_route_distance"`
	Duration         int64           `json:"Duration"`
	CreditValue      int64           `json:"CreditValue"`
	Routes           json.RawMessage `json:"Routes"`
	ReceivedAt       time.Time       `json:"receivedAt"`
}

// GetSubmission returns a single submission by problem identifier. The owner
// filter is skipped for admin reads (empty sub).
func GetSubmission(db *gorm.DB, sub, problemID string) (*SubmissionView, error) {
	query := db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)}).
		Where("problem_id = ?", problemID)
	if sub != "" {
		query = query.Where("sub = ?", sub)
	}

	var submission models.Submission
	if err := query.First(&submission).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", types.ErrStorageUnavailable, err)
	}

	views, err := reduceSubmissions(db, []models.Submission{submission})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// ListSubmissionsByUser returns the user's submissions, most recent first.
func ListSubmissionsByUser(db *gorm.DB, sub string, page Page) ([]SubmissionView, error) {
	return listSubmissions(db, db.Where("sub = ?", sub), page)
}

// ListAllSubmissions returns every submission, most recent first.
func ListAllSubmissions(db *gorm.DB, page Page) ([]SubmissionView, error) {
	return listSubmissions(db, db, page)
}

func listSubmissions(db, query *gorm.DB, page Page) ([]SubmissionView, error) {
	page = page.Normalize()

	var submissions []models.Submission
	err := query.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)}).
		Order("received_at DESC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&submissions).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStorageUnavailable, err)
	}

	return reduceSubmissions(db, submissions)
}

// reduceSubmissions converts models to API output, deriving status from
// solution existence in one query.
func reduceSubmissions(db *gorm.DB, submissions []models.Submission) ([]SubmissionView, error) {
	if len(submissions) == 0 {
		return []SubmissionView{}, nil
	}

	ids := make([]string, 0, len(submissions))
	for _, s := range submissions {
		ids = append(ids, s.ProblemID)
	}

	var solved []string
	err := db.Model(&models.Solution{}).
		Where("problem_id IN ?", ids).
		Pluck("problem_id", &solved).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStorageUnavailable, err)
	}

	solvedSet := make(map[string]struct{}, len(solved))
	for _, id := range solved {
		solvedSet[id] = struct{}{}
	}

	views := make([]SubmissionView, 0, len(submissions))
	for _, s := range submissions {
		status := StatusPending
		if _, ok := solvedSet[s.ProblemID]; ok {
			status = StatusCompleted
		}
		views = append(views, SubmissionView{
			ProblemID: s.ProblemID,
			Sub:       s.Sub,
			Metadata: SubmissionMetadata{
				SolverName: s.SolverName,
				VNumber:    s.VehicleNumber,
				Depot:      s.Depot,
				MaxDist:    s.MaxDistance,
			},
			FileContent: json.RawMessage(s.FileContent.JSON),
			ReceivedAt:  s.ReceivedAt,
			Status:      status,
		})
	}

	return views, nil
}

// GetSolution returns a single solution by problem identifier. The owner
// filter is skipped for admin reads (empty sub).
func GetSolution(db *gorm.DB, sub, problemID string) (*SolutionView, error) {
	query := db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)}).
		Where("problem_id = ?", problemID)
	if sub != "" {
		query = query.Where("sub = ?", sub)
	}

	var solution models.Solution
	if err := query.First(&solution).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", types.ErrStorageUnavailable, err)
	}

	view := reduceSolution(solution)
	return &view, nil
}

// ListSolutionsByUser returns the user's solutions, most recent first.
func ListSolutionsByUser(db *gorm.DB, sub string, page Page) ([]SolutionView, error) {
	return listSolutions(db, db.Where("sub = ?", sub), page)
}

// ListAllSolutions returns every solution, most recent first.
func ListAllSolutions(db *gorm.DB, page Page) ([]SolutionView, error) {
	return listSolutions(db, db, page)
}

func listSolutions(db, query *gorm.DB, page Page) ([]SolutionView, error) {
	page = page.Normalize()

	var solutions []models.Solution
	err := query.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)}).
		Order("received_at DESC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&solutions).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStorageUnavailable, err)
	}

	views := make([]SolutionView, 0, len(solutions))
	for _, s := range solutions {
		views = append(views, reduceSolution(s))
	}
	return views, nil
}

func reduceSolution(s models.Solution) SolutionView {
	return SolutionView{
		ProblemID:        s.ProblemID,
		Sub:              s.Sub,
		Objective:        s.Objective,
		MaxRouteDistance: s.MaxRouteDistance,
		Duration:         s.DurationMs,
		CreditValue:      s.CreditValue,
		Routes:           json.RawMessage(s.Routes.JSON),
		ReceivedAt:       s.ReceivedAt,
	}
}

// SolutionPayload is the solver worker's result body. Numeric fields accept
// numbers or numeric strings, solver runtimes differ on this.
type SolutionPayload struct {
	Sub              string           `json:"sub"`
	Objective        types.FlexUint64 `json:"Objective"`
	MaxRouteDistance types.FlexUint64 `json:"max_route_distance"`
	Duration         types.FlexUint64 `json:"Duration"`
	CreditValue      types.FlexUint64 `json:"CreditValue"`
	Routes           json.RawMessage  `json:"Routes"`
}

// RecordSolution persists a solver result for the given problem identifier.
// Re-posting the same problem is a no-op, solver retries must not duplicate
// or overwrite results. A result for a problem with no visible Submission is
// accepted as tolerated drift and logged.
func RecordSolution(db *gorm.DB, problemID string, payload *SolutionPayload) error {
	if problemID == "" {
		return types.InvalidInput("missing problem identifier")
	}
	if payload.Sub == "" {
		return types.InvalidInput("missing user identity in solution payload")
	}
	if len(payload.Routes) > 0 {
		var routes []json.RawMessage
		if err := json.Unmarshal(payload.Routes, &routes); err != nil {
			return types.InvalidInput("Routes must be a JSON array")
		}
	}

	var count int64
	if err := db.Model(&models.Submission{}).Where("problem_id = ?", problemID).Count(&count).Error; err == nil && count == 0 {
		log.Printf("Recording solution for problem %s with no visible submission", problemID)
	}

	solution := models.Solution{
		ProblemID:        problemID,
		Sub:              payload.Sub,
		Objective:        int64(payload.Objective.Uint64()),
		MaxRouteDistance: int64(payload.MaxRouteDistance.Uint64()),
		DurationMs:       int64(payload.Duration.Uint64()),
		CreditValue:      int64(payload.CreditValue.Uint64()),
		Routes:           jsonColumn(payload.Routes),
		ReceivedAt:       time.Now().UTC(),
	}

	if err := db.Create(&solution).Error; err != nil {
		if isDuplicateKey(err) {
			return nil
		}
		return fmt.Errorf("%w: %v", types.ErrStorageUnavailable, err)
	}

	return nil
}
