package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/solvemyproblem/core/internal/models"
)

// Dispatcher hands admitted jobs to the external solver worker over HTTP.
// The enqueue is the handoff: intake never waits for solving, only for the
// worker to accept the job, bounded by Timeout.
type Dispatcher struct {
	SolverURL string
	APIKey    string
	Timeout   time.Duration
	Client    *http.Client // optional, defaults to http.DefaultClient
}

type dispatchPayload struct {
	ProblemID   string          `json:"problemId"`
	Sub         string          `json:"sub"`
	SolverName  string          `json:"solverName"`
	FileContent json.RawMessage `json:"fileContent"`
	VNumber     int             `json:"vNumber"`
	Depot       string          `json:"depot"`
	MaxDist     int64           `json:"maxDist"`
}

// Enqueue posts the job to the solver worker. A non-2xx response or a
// timeout is a dispatch failure; the caller compensates.
func (d *Dispatcher) Enqueue(submission *models.Submission) error {
	payload := dispatchPayload{
		ProblemID:   submission.ProblemID,
		Sub:         submission.Sub,
		SolverName:  submission.SolverName,
		FileContent: json.RawMessage(submission.FileContent.JSON),
		VNumber:     submission.VehicleNumber,
		Depot:       submission.Depot,
		MaxDist:     submission.MaxDistance,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode dispatch payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.SolverURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build dispatch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Solver-Key", d.APIKey)

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("dispatch request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("solver worker rejected job: status %d", resp.StatusCode)
	}

	return nil
}
