package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/solvemyproblem/core/internal/handlers"
	"github.com/solvemyproblem/core/internal/models"
	"github.com/solvemyproblem/core/internal/services"
	"gorm.io/gorm"
)

func seedPending(t *testing.T, db *gorm.DB, problemID, sub string) {
	t.Helper()
	submission := models.Submission{
		ProblemID:     problemID,
		Sub:           sub,
		SolverName:    "vrp-solver",
		VehicleNumber: 2,
		Depot:         "0",
		MaxDistance:   50000,
		CreditCost:    5,
		ReceivedAt:    time.Now().UTC(),
	}
	submission.FileContent.Scan([]byte(`{"Locations":[{"Latitude":1,"Longitude":2}]}`))
	if err := db.Create(&submission).Error; err != nil {
		t.Fatalf("Failed to seed submission: %v", err)
	}
}

func solutionBody() []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"sub":                "alice",
		"Objective":          4100,
		"max_route_distance": 2300,
		"Duration":           900,
		"CreditValue":        5,
		"Routes":             []map[string]interface{}{{"vehicle": 0, "route": []int{0, 1, 0}, "distance": 2300}},
	})
	return body
}

// TestRecordSolution tests the solver write path end to end
func TestRecordSolution(t *testing.T) {
	db := setupTestDB(t)
	seedPending(t, db, "p-1", "alice")

	app := fiber.New()
	handler := &handlers.SolverHandler{DB: db, APIKey: "solver-secret"}
	app.Post("/api/solver/solution/:id", handler.RecordSolution)

	req := httptest.NewRequest("POST", "/api/solver/solution/p-1", bytes.NewReader(solutionBody()))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Solver-Key", "solver-secret")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 201 {
		t.Fatalf("Expected status 201, got %d", resp.StatusCode)
	}

	// The submission now reads as completed
	view, err := services.GetSubmission(db, "alice", "p-1")
	if err != nil {
		t.Fatalf("GetSubmission failed: %v", err)
	}
	if view.Status != services.StatusCompleted {
		t.Errorf("Expected status Completed, got %s", view.Status)
	}

	solution, err := services.GetSolution(db, "alice", "p-1")
	if err != nil {
		t.Fatalf("GetSolution failed: %v", err)
	}
	if solution.Objective != 4100 || solution.CreditValue != 5 {
		t.Errorf("Unexpected recorded solution: %+v", solution)
	}
}

// TestRecordSolutionBadKey tests that the shared key gates the write path
func TestRecordSolutionBadKey(t *testing.T) {
	db := setupTestDB(t)

	app := fiber.New()
	handler := &handlers.SolverHandler{DB: db, APIKey: "solver-secret"}
	app.Post("/api/solver/solution/:id", handler.RecordSolution)

	req := httptest.NewRequest("POST", "/api/solver/solution/p-1", bytes.NewReader(solutionBody()))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Solver-Key", "wrong")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 401 {
		t.Errorf("Expected status 401, got %d", resp.StatusCode)
	}

	var count int64
	db.Model(&models.Solution{}).Count(&count)
	if count != 0 {
		t.Errorf("Expected no solution rows, got %d", count)
	}
}

// TestRecordSolutionEmptyKeyConfig tests that an unconfigured key rejects all writes
func TestRecordSolutionEmptyKeyConfig(t *testing.T) {
	db := setupTestDB(t)

	app := fiber.New()
	handler := &handlers.SolverHandler{DB: db, APIKey: ""}
	app.Post("/api/solver/solution/:id", handler.RecordSolution)

	req := httptest.NewRequest("POST", "/api/solver/solution/p-1", bytes.NewReader(solutionBody()))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Solver-Key", "")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 401 {
		t.Errorf("Expected status 401, got %d", resp.StatusCode)
	}
}

// TestRecordSolutionRetry tests that a solver retry does not duplicate rows
func TestRecordSolutionRetry(t *testing.T) {
	db := setupTestDB(t)
	seedPending(t, db, "p-1", "alice")

	app := fiber.New()
	handler := &handlers.SolverHandler{DB: db, APIKey: "solver-secret"}
	app.Post("/api/solver/solution/:id", handler.RecordSolution)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/api/solver/solution/p-1", bytes.NewReader(solutionBody()))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Solver-Key", "solver-secret")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("Failed to execute request: %v", err)
		}
		if resp.StatusCode != 201 {
			t.Fatalf("Expected status 201 on attempt %d, got %d", i+1, resp.StatusCode)
		}
	}

	var count int64
	db.Model(&models.Solution{}).Count(&count)
	if count != 1 {
		t.Errorf("Expected 1 solution row after retry, got %d", count)
	}
}
