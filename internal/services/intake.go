package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/solvemyproblem/core/internal/models"
	"github.com/solvemyproblem/core/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ProblemFile is the expected schema of the uploaded problem payload.
// Locations must be non-empty; the distance matrix is carried through to the
// solver untouched.
type ProblemFile struct {
	Locations []json.RawMessage `json:"Locations"`
	Distances [][]int64         `json:"Distances,omitempty"`
}

// IntakeInput carries a validated submit request into the intake pipeline.
type IntakeInput struct {
	Sub            string
	SolverName     string
	FileContent    []byte
	LocationCount  int
	VehicleNumber  int
	Depot          string
	MaxDistance    int64
	IdempotencyKey string
}

// CostPolicy computes the credit cost of admitting a submission. The policy
// is injected so deployments can price by input size, solver, or flat rate.
type CostPolicy func(in IntakeInput) int64

// FlatCostPolicy prices every submission at base plus perLocation for each
// location in the uploaded file.
func FlatCostPolicy(base, perLocation int64) CostPolicy {
	return func(in IntakeInput) int64 {
		return base + perLocation*int64(in.LocationCount)
	}
}

// Intake admits new jobs: validate, debit, persist, dispatch.
type Intake struct {
	DB         *gorm.DB
	Cost       CostPolicy
	Dispatcher *Dispatcher // nil disables the solver handoff
}

// Submit validates the request, debits the ledger, persists the Submission
// and hands the job off to the solver worker. The debit and the record
// insert commit as a single transaction: no state exists where credits are
// spent without a Submission or vice versa. Returns the problem identifier.
//
// A request carrying an idempotency key already seen returns the original
// problem identifier without a second debit, so callers can safely retry
// after a network failure.
func (s *Intake) Submit(in IntakeInput) (string, error) {
	if err := validateIntake(&in); err != nil {
		return "", err
	}

	if in.IdempotencyKey != "" {
		if problemID, ok := s.findByIdempotencyKey(in.IdempotencyKey); ok {
			return problemID, nil
		}
	}

	cost := s.Cost(in)
	if cost < 0 {
		return "", fmt.Errorf("cost policy returned negative cost %d", cost)
	}

	problemID := uuid.NewString()
	submission := models.Submission{
		ProblemID:     problemID,
		Sub:           in.Sub,
		SolverName:    in.SolverName,
		FileContent:   jsonColumn(in.FileContent),
		VehicleNumber: in.VehicleNumber,
		Depot:         in.Depot,
		MaxDistance:   in.MaxDistance,
		CreditCost:    cost,
		ReceivedAt:    time.Now().UTC(),
	}
	if in.IdempotencyKey != "" {
		key := in.IdempotencyKey
		submission.IdempotencyKey = &key
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := adjustTx(tx, in.Sub, -cost); err != nil {
			return err
		}
		if err := tx.Create(&submission).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, types.ErrInsufficientCredits) || errors.Is(err, types.ErrUnknownUser) {
			return "", err
		}
		// A duplicate idempotency key lost a race with a concurrent retry;
		// the transaction rolled back, so no double debit happened.
		if in.IdempotencyKey != "" && isDuplicateKey(err) {
			if problemID, ok := s.findByIdempotencyKey(in.IdempotencyKey); ok {
				return problemID, nil
			}
		}
		return "", fmt.Errorf("%w: %v", types.ErrStorageUnavailable, err)
	}

	if s.Dispatcher != nil {
		if err := s.Dispatcher.Enqueue(&submission); err != nil {
			log.Printf("Solver handoff failed for problem %s: %v", problemID, err)
			s.compensate(&submission, cost)
			return "", fmt.Errorf("%w: solver handoff failed", types.ErrStorageUnavailable)
		}
	}

	return problemID, nil
}

// compensate undoes an admitted submission whose handoff failed: the record
// is removed and the debit refunded, with bounded retries on transient
// storage errors.
func (s *Intake) compensate(submission *models.Submission, cost int64) {
	err := withRetry(3, 50*time.Millisecond, func() error {
		return s.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Delete(&models.Submission{}, "problem_id = ?", submission.ProblemID).Error; err != nil {
				return err
			}
			_, err := adjustTx(tx, submission.Sub, cost)
			return err
		})
	})
	if err != nil {
		// The refund could not land; surface loudly for operator followup.
		log.Printf("COMPENSATION FAILED for problem %s (user %s, cost %d): %v",
			submission.ProblemID, submission.Sub, cost, err)
		return
	}
	log.Printf("Compensated failed handoff for problem %s: record removed, %d credits refunded",
		submission.ProblemID, cost)
}

func (s *Intake) findByIdempotencyKey(key string) (string, bool) {
	var existing models.Submission
	err := s.DB.Session(&gorm.Session{Logger: s.DB.Logger.LogMode(logger.Silent)}).
		Where("idempotency_key = ?", key).
		First(&existing).Error
	if err != nil {
		return "", false
	}
	return existing.ProblemID, true
}

// validateIntake checks the submit contract and fills LocationCount.
func validateIntake(in *IntakeInput) error {
	if in.Sub == "" {
		return types.InvalidInput("missing user identity")
	}
	if in.SolverName == "" {
		return types.InvalidInput("solver_name is required")
	}
	if in.VehicleNumber <= 0 {
		return types.InvalidInput("v_number must be greater than 0")
	}
	if in.MaxDistance <= 0 {
		return types.InvalidInput("max_dist must be greater than 0")
	}

	var file ProblemFile
	if err := json.Unmarshal(in.FileContent, &file); err != nil {
		return types.InvalidInput("file is not valid problem JSON")
	}
	if len(file.Locations) == 0 {
		return types.InvalidInput("file must contain a non-empty Locations list")
	}
	in.LocationCount = len(file.Locations)

	return nil
}

// isDuplicateKey matches unique-constraint violations across the supported
// dialects without importing driver error types.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique failed")
}

// withRetry runs fn up to attempts times with linear backoff.
func withRetry(attempts int, backoff time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		time.Sleep(time.Duration(i+1) * backoff)
	}
	return err
}

// jsonColumn wraps raw bytes for storage in a models.JSON column.
func jsonColumn(raw []byte) models.JSON {
	col := models.JSON{}
	_ = col.Scan(raw)
	return col
}
