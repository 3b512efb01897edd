package config_test

import (
	"strings"
	"testing"

	"github.com/solvemyproblem/core/internal/config"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_TYPE", "mysql")
	t.Setenv("DB_DATABASE", "solvemyproblem")
	t.Setenv("DB_USER", "app")
	t.Setenv("AUTHZ_URL", "http://localhost:8080")
	t.Setenv("AUTHZ_CLIENT_ID", "client-1")
	t.Setenv("SOLVER_URL", "")
	t.Setenv("SOLVER_API_KEY", "")
}

// TestLoadDefaults tests defaulted values on a minimal environment
func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("PORT", "")
	t.Setenv("DB_CONNECTION_LIMIT", "")
	t.Setenv("SUBMISSION_BASE_COST", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "3000" {
		t.Errorf("Expected default port 3000, got %s", cfg.Port)
	}
	if cfg.DBConnectionLimit != 5 {
		t.Errorf("Expected default connection limit 5, got %d", cfg.DBConnectionLimit)
	}
	if cfg.SubmissionBaseCost != 1 || cfg.SubmissionCostPerLocation != 0 {
		t.Errorf("Expected default costs 1/0, got %d/%d", cfg.SubmissionBaseCost, cfg.SubmissionCostPerLocation)
	}
	if cfg.SolverDispatchTimeoutMS != 5000 {
		t.Errorf("Expected default dispatch timeout 5000, got %d", cfg.SolverDispatchTimeoutMS)
	}
}

// TestLoadRequiredFields tests the required-field validation
func TestLoadRequiredFields(t *testing.T) {
	cases := []struct {
		name   string
		unset  string
		expect string
	}{
		{"missing database", "DB_DATABASE", "DB_DATABASE"},
		{"missing user", "DB_USER", "DB_USER"},
		{"missing authz url", "AUTHZ_URL", "AUTHZ_URL"},
		{"missing authz client", "AUTHZ_CLIENT_ID", "AUTHZ_CLIENT_ID"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv(tc.unset, "")

			_, err := config.Load()
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !strings.Contains(err.Error(), tc.expect) {
				t.Errorf("Expected error naming %s, got %v", tc.expect, err)
			}
		})
	}
}

// TestLoadSqliteSkipsUser tests that sqlite deployments need no DB_USER
func TestLoadSqliteSkipsUser(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DB_TYPE", "sqlite")
	t.Setenv("DB_USER", "")

	if _, err := config.Load(); err != nil {
		t.Errorf("Expected sqlite to load without DB_USER, got %v", err)
	}
}

// TestLoadSolverKeyRequired tests the dispatch configuration coupling
func TestLoadSolverKeyRequired(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SOLVER_URL", "http://solver:4000/jobs")

	_, err := config.Load()
	if err == nil || !strings.Contains(err.Error(), "SOLVER_API_KEY") {
		t.Errorf("Expected SOLVER_API_KEY error, got %v", err)
	}

	t.Setenv("SOLVER_API_KEY", "secret")
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.SolverURL != "http://solver:4000/jobs" || cfg.SolverAPIKey != "secret" {
		t.Errorf("Unexpected solver config: %+v", cfg)
	}
}
