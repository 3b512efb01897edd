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
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.CreditBalance{},
		&models.Submission{},
		&models.Solution{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

// asIdentity stands in for the auth middleware with a pre-verified caller
func asIdentity(sub string, roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("identity", &services.Identity{
			Sub:   sub,
			Name:  "Test User",
			Email: sub + "@example.com",
			Roles: roles,
		})
		return c.Next()
	}
}

// TestGetCredits tests GET /api/user/credits
func TestGetCredits(t *testing.T) {
	db := setupTestDB(t)
	services.Adjust(db, "alice", 25)

	app := fiber.New()
	handler := &handlers.CreditHandler{DB: db}
	app.Get("/api/user/credits", asIdentity("alice", "user"), handler.GetCredits)

	req := httptest.NewRequest("GET", "/api/user/credits", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var result map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if result["creditValue"] != 25 {
		t.Errorf("Expected creditValue 25, got %v", result["creditValue"])
	}
}

// TestGetCreditsWithoutIdentity tests that a missing identity is rejected
func TestGetCreditsWithoutIdentity(t *testing.T) {
	db := setupTestDB(t)

	app := fiber.New()
	handler := &handlers.CreditHandler{DB: db}
	app.Get("/api/user/credits", handler.GetCredits)

	req := httptest.NewRequest("GET", "/api/user/credits", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 403 {
		t.Errorf("Expected status 403, got %d", resp.StatusCode)
	}
}

// TestAddCredits tests POST /api/user/add/credits/:amount
func TestAddCredits(t *testing.T) {
	db := setupTestDB(t)

	app := fiber.New()
	handler := &handlers.CreditHandler{DB: db}
	app.Post("/api/user/add/credits/:amount", asIdentity("alice", "user"), handler.AddCredits)

	req := httptest.NewRequest("POST", "/api/user/add/credits/40", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var result map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if result["creditValue"] != 40 {
		t.Errorf("Expected creditValue 40, got %v", result["creditValue"])
	}

	// A negative amount never reaches the ledger
	req = httptest.NewRequest("POST", "/api/user/add/credits/-5", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 400 {
		t.Errorf("Expected status 400 on negative amount, got %d", resp.StatusCode)
	}
}

// TestTotalCredits tests GET /api/user/getTotalCredits
func TestTotalCredits(t *testing.T) {
	db := setupTestDB(t)
	services.Adjust(db, "alice", 30)
	services.Adjust(db, "bob", 12)

	app := fiber.New()
	handler := &handlers.CreditHandler{DB: db}
	app.Get("/api/user/getTotalCredits", asIdentity("root", "admin"), handler.TotalCredits)

	req := httptest.NewRequest("GET", "/api/user/getTotalCredits", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var result map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if result["totalCredits"] != 42 {
		t.Errorf("Expected totalCredits 42, got %v", result["totalCredits"])
	}
}

// TestCheckUser tests POST /api/checkUser provisioning
func TestCheckUser(t *testing.T) {
	db := setupTestDB(t)

	app := fiber.New()
	handler := &handlers.UserHandler{DB: db}
	app.Post("/api/checkUser", asIdentity("alice", "user"), handler.CheckUser)

	body, _ := json.Marshal(map[string]string{"name": "Posted Name", "email": "posted@example.com"})
	req := httptest.NewRequest("POST", "/api/checkUser", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var user models.User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	// Verified claims win over the posted body
	if user.Sub != "alice" || user.Name != "Test User" || user.Email != "alice@example.com" {
		t.Errorf("Unexpected provisioned user: %+v", user)
	}
}

// TestUserDetails tests that GET /api/userDetails returns a one-element array
func TestUserDetails(t *testing.T) {
	db := setupTestDB(t)
	services.EnsureUser(db, "alice", "Alice", "alice@example.com")

	app := fiber.New()
	handler := &handlers.UserHandler{DB: db}
	app.Get("/api/userDetails", asIdentity("alice", "user"), handler.UserDetails)

	req := httptest.NewRequest("GET", "/api/userDetails", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var users []models.User
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(users) != 1 || users[0].Sub != "alice" {
		t.Errorf("Expected a single-element array with alice, got %+v", users)
	}
}

// TestAdminChangeName tests POST /api/admin/changeName/:name
func TestAdminChangeName(t *testing.T) {
	db := setupTestDB(t)
	services.EnsureUser(db, "bob", "Bob", "bob@example.com")

	app := fiber.New()
	handler := &handlers.UserHandler{DB: db}
	app.Post("/api/admin/changeName/:name", asIdentity("root", "admin"), handler.AdminChangeName)

	body, _ := json.Marshal(map[string]string{"sub": "bob"})
	req := httptest.NewRequest("POST", "/api/admin/changeName/Robert", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	user, err := services.GetUser(db, "bob")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if user.Name != "Robert" {
		t.Errorf("Expected renamed user Robert, got %s", user.Name)
	}

	// Missing target sub is rejected
	req = httptest.NewRequest("POST", "/api/admin/changeName/Nobody", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 400 {
		t.Errorf("Expected status 400, got %d", resp.StatusCode)
	}
}

// TestGetMineSubmission tests that GET /api/user/submission/:id wraps the
// record in a one-element array and scopes to the owner
func TestGetMineSubmission(t *testing.T) {
	db := setupTestDB(t)

	submission := models.Submission{
		ProblemID:     "p-1",
		Sub:           "alice",
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

	app := fiber.New()
	handler := &handlers.SubmissionHandler{DB: db}
	app.Get("/api/user/submission/:id", asIdentity("alice", "user"), handler.GetMine)

	req := httptest.NewRequest("GET", "/api/user/submission/p-1", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var views []services.SubmissionView
	if err := json.NewDecoder(resp.Body).Decode(&views); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(views) != 1 || views[0].ProblemID != "p-1" {
		t.Fatalf("Expected a single-element array with p-1, got %+v", views)
	}
	if views[0].Status != services.StatusPending {
		t.Errorf("Expected status Pending, got %s", views[0].Status)
	}

	// Another user's read misses
	app2 := fiber.New()
	app2.Get("/api/user/submission/:id", asIdentity("mallory", "user"), handler.GetMine)
	req = httptest.NewRequest("GET", "/api/user/submission/p-1", nil)
	resp, err = app2.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 404 {
		t.Errorf("Expected status 404 for a foreign read, got %d", resp.StatusCode)
	}
}

// TestSubmissionRollups tests the admin rollup endpoints
func TestSubmissionRollups(t *testing.T) {
	db := setupTestDB(t)

	for i, id := range []string{"p-1", "p-2", "p-3"} {
		sub := "alice"
		if i == 2 {
			sub = "bob"
		}
		submission := models.Submission{
			ProblemID:     id,
			Sub:           sub,
			SolverName:    "vrp-solver",
			VehicleNumber: 1,
			Depot:         "0",
			MaxDistance:   1000,
			CreditCost:    5,
			ReceivedAt:    time.Date(2026, time.March, 1+i, 0, 0, 0, 0, time.UTC),
		}
		submission.FileContent.Scan([]byte(`{"Locations":[{}]}`))
		if err := db.Create(&submission).Error; err != nil {
			t.Fatalf("Failed to seed submission: %v", err)
		}
	}

	app := fiber.New()
	handler := &handlers.SubmissionHandler{DB: db}
	app.Get("/api/user/submissions/total", asIdentity("root", "admin"), handler.Total)
	app.Get("/api/user/submissions/topusers", asIdentity("root", "admin"), handler.TopUsers)
	app.Get("/api/user/submissions/monthly", asIdentity("root", "admin"), handler.Monthly)

	req := httptest.NewRequest("GET", "/api/user/submissions/total", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	var total map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&total); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if total["totalSubmissions"] != 3 {
		t.Errorf("Expected totalSubmissions 3, got %v", total["totalSubmissions"])
	}

	req = httptest.NewRequest("GET", "/api/user/submissions/topusers", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	var top []services.TopSubmitter
	if err := json.NewDecoder(resp.Body).Decode(&top); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(top) != 2 || top[0].Sub != "alice" || top[0].TotalSubmissions != 2 {
		t.Errorf("Expected alice/2 first, got %+v", top)
	}

	req = httptest.NewRequest("GET", "/api/user/submissions/monthly", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	var monthly []services.MonthlyCount
	if err := json.NewDecoder(resp.Body).Decode(&monthly); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(monthly) != 1 || monthly[0].Month != "2026-03" || monthly[0].Count != 3 {
		t.Errorf("Expected one 2026-03/3 bucket, got %+v", monthly)
	}
}

// TestAdminOverview tests GET /api/admin/overview
func TestAdminOverview(t *testing.T) {
	db := setupTestDB(t)
	services.EnsureUser(db, "alice", "Alice", "alice@example.com")
	services.Adjust(db, "alice", 10)

	app := fiber.New()
	handler := &handlers.AdminHandler{DB: db}
	app.Get("/api/admin/overview", asIdentity("root", "admin"), handler.Overview)

	req := httptest.NewRequest("GET", "/api/admin/overview", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var overview services.Overview
	if err := json.NewDecoder(resp.Body).Decode(&overview); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if overview.Credits.Unavailable || overview.Users.Unavailable || overview.Submissions.Unavailable {
		t.Errorf("Expected all sections available, got %+v", overview)
	}
}
