package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port string

	// Database configuration
	DBType            string // mysql, postgres, sqlite, sqlserver, etc.
	DBHost            string
	DBPort            string
	DBDatabase        string
	DBUser            string
	DBPassword        string
	DBConnectionLimit int

	// Authorizer configuration
	AuthzURL      string
	AuthzClientID string

	// Solver worker configuration
	SolverURL               string // empty disables dispatch
	SolverAPIKey            string
	SolverDispatchTimeoutMS int

	// Intake cost policy defaults
	SubmissionBaseCost        int64
	SubmissionCostPerLocation int64
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:                      getEnv("PORT", "3000"),
		DBType:                    getEnv("DB_TYPE", "mysql"),
		DBHost:                    getEnv("DB_HOST", "localhost"),
		DBPort:                    getEnv("DB_PORT", "3306"),
		DBDatabase:                getEnv("DB_DATABASE", ""),
		DBUser:                    getEnv("DB_USER", ""),
		DBPassword:                getEnv("DB_PASSWORD", ""),
		DBConnectionLimit:         getEnvAsInt("DB_CONNECTION_LIMIT", 5),
		AuthzURL:                  getEnv("AUTHZ_URL", ""),
		AuthzClientID:             getEnv("AUTHZ_CLIENT_ID", ""),
		SolverURL:                 getEnv("SOLVER_URL", ""),
		SolverAPIKey:              getEnv("SOLVER_API_KEY", ""),
		SolverDispatchTimeoutMS:   getEnvAsInt("SOLVER_DISPATCH_TIMEOUT_MS", 5000),
		SubmissionBaseCost:        getEnvAsInt64("SUBMISSION_BASE_COST", 1),
		SubmissionCostPerLocation: getEnvAsInt64("SUBMISSION_COST_PER_LOCATION", 0),
	}

	// Validate required fields
	if cfg.DBDatabase == "" {
		return nil, fmt.Errorf("DB_DATABASE is required")
	}
	if cfg.DBUser == "" && cfg.DBType != "sqlite" {
		return nil, fmt.Errorf("DB_USER is required")
	}
	if cfg.AuthzURL == "" {
		return nil, fmt.Errorf("AUTHZ_URL is required")
	}
	if cfg.AuthzClientID == "" {
		return nil, fmt.Errorf("AUTHZ_CLIENT_ID is required")
	}
	if cfg.SolverURL != "" && cfg.SolverAPIKey == "" {
		return nil, fmt.Errorf("SOLVER_API_KEY is required when SOLVER_URL is set")
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsInt64 gets an environment variable as an int64 or returns a default value
func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
