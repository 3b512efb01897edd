package services_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/solvemyproblem/core/internal/models"
	"github.com/solvemyproblem/core/internal/services"
	"github.com/solvemyproblem/core/internal/types"
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

	// A single connection keeps all goroutines on the same in-memory database
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

// TestGetBalanceUnprovisioned tests that a user with no balance record reads as zero
func TestGetBalanceUnprovisioned(t *testing.T) {
	db := setupTestDB(t)

	balance, err := services.GetBalance(db, "nobody")
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if balance != 0 {
		t.Errorf("Expected balance 0, got %d", balance)
	}
}

// TestAdjustCreditAndDebit tests the basic credit/debit round trip
func TestAdjustCreditAndDebit(t *testing.T) {
	db := setupTestDB(t)

	balance, err := services.Adjust(db, "alice", 10)
	if err != nil {
		t.Fatalf("Credit failed: %v", err)
	}
	if balance != 10 {
		t.Errorf("Expected balance 10 after credit, got %d", balance)
	}

	balance, err = services.Adjust(db, "alice", -4)
	if err != nil {
		t.Fatalf("Debit failed: %v", err)
	}
	if balance != 6 {
		t.Errorf("Expected balance 6 after debit, got %d", balance)
	}

	stored, err := services.GetBalance(db, "alice")
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if stored != 6 {
		t.Errorf("Expected stored balance 6, got %d", stored)
	}
}

// TestAdjustUnderflow tests that a debit past zero fails and leaves the balance unchanged
func TestAdjustUnderflow(t *testing.T) {
	db := setupTestDB(t)

	if _, err := services.Adjust(db, "bob", 5); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	_, err := services.Adjust(db, "bob", -10)
	if !errors.Is(err, types.ErrInsufficientCredits) {
		t.Fatalf("Expected InsufficientCredits, got %v", err)
	}

	balance, err := services.GetBalance(db, "bob")
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if balance != 5 {
		t.Errorf("Expected balance unchanged at 5, got %d", balance)
	}
}

// TestDebitUnknownUser tests that debiting a never-provisioned user fails
func TestDebitUnknownUser(t *testing.T) {
	db := setupTestDB(t)

	_, err := services.Adjust(db, "ghost", -1)
	if !errors.Is(err, types.ErrUnknownUser) {
		t.Fatalf("Expected UnknownUser, got %v", err)
	}
}

// TestAdjustZeroProvisions tests that a zero credit lazily creates the balance record
func TestAdjustZeroProvisions(t *testing.T) {
	db := setupTestDB(t)

	balance, err := services.Adjust(db, "carol", 0)
	if err != nil {
		t.Fatalf("Zero credit failed: %v", err)
	}
	if balance != 0 {
		t.Errorf("Expected balance 0, got %d", balance)
	}

	// The record now exists, so a debit fails on funds, not on the user
	_, err = services.Adjust(db, "carol", -1)
	if !errors.Is(err, types.ErrInsufficientCredits) {
		t.Fatalf("Expected InsufficientCredits, got %v", err)
	}
}

// TestConcurrentAdjust tests that concurrent adjustments for one user all land
func TestConcurrentAdjust(t *testing.T) {
	db := setupTestDB(t)

	if _, err := services.Adjust(db, "dave", 100); err != nil {
		t.Fatalf("Initial credit failed: %v", err)
	}

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := services.Adjust(db, "dave", 1); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Concurrent adjust failed: %v", err)
	}

	balance, err := services.GetBalance(db, "dave")
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if balance != 100+workers {
		t.Errorf("Expected balance %d, got %d", 100+workers, balance)
	}
}

// TestTopBalances tests the admin rollup ordering and name join
func TestTopBalances(t *testing.T) {
	db := setupTestDB(t)

	db.Create(&models.User{Sub: "alice", Name: "Alice", Email: "alice@example.com", Role: models.RoleUser})
	db.Create(&models.User{Sub: "bob", Name: "Bob", Email: "bob@example.com", Role: models.RoleUser})

	for sub, credits := range map[string]int64{"alice": 30, "bob": 50, "carol": 30} {
		if _, err := services.Adjust(db, sub, credits); err != nil {
			t.Fatalf("Credit failed for %s: %v", sub, err)
		}
	}

	rows, err := services.TopBalances(db, 10)
	if err != nil {
		t.Fatalf("TopBalances failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}
	if rows[0].Sub != "bob" || rows[0].CreditValue != 50 {
		t.Errorf("Expected bob/50 first, got %s/%d", rows[0].Sub, rows[0].CreditValue)
	}
	// Tie between alice and carol resolves by sub ascending
	if rows[1].Sub != "alice" || rows[2].Sub != "carol" {
		t.Errorf("Expected alice then carol on the tie, got %s then %s", rows[1].Sub, rows[2].Sub)
	}
	if rows[0].Name != "Bob" {
		t.Errorf("Expected joined name Bob, got %q", rows[0].Name)
	}
	// carol has no user record, the name joins as empty
	if rows[2].Name != "" {
		t.Errorf("Expected empty name for carol, got %q", rows[2].Name)
	}
}

// TestTotalIssued tests the sum over all balances
func TestTotalIssued(t *testing.T) {
	db := setupTestDB(t)

	total, err := services.TotalIssued(db)
	if err != nil {
		t.Fatalf("TotalIssued failed: %v", err)
	}
	if total != 0 {
		t.Errorf("Expected 0 on empty ledger, got %d", total)
	}

	services.Adjust(db, "alice", 30)
	services.Adjust(db, "bob", 12)

	total, err = services.TotalIssued(db)
	if err != nil {
		t.Fatalf("TotalIssued failed: %v", err)
	}
	if total != 42 {
		t.Errorf("Expected total 42, got %d", total)
	}
}
