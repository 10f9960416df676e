//go:build integration

package rules_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/liamcoop/typetour/rules"
)

// setupTestDB starts a PostgreSQL container and applies the migrations
func setupTestDB(t *testing.T) (*sql.DB, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "typetour_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	postgres, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	host, err := postgres.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := postgres.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	connStr := fmt.Sprintf("host=%s port=%s user=test password=test dbname=typetour_test sslmode=disable", host, port.Port())

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}

	for i := 0; i < 30; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	migrationSQL, err := os.ReadFile(filepath.Join("..", "migrations", "000001_portion_rules.up.sql"))
	if err != nil {
		t.Fatalf("Failed to read migration file: %v", err)
	}
	if _, err := db.Exec(string(migrationSQL)); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		db.Close()
		postgres.Terminate(ctx)
	}

	return db, cleanup
}

func TestPostgresRuleStore_SeededDefaultRule(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := rules.NewPostgresRuleStore(db)

	rule, err := store.Get("too-many-scoops")
	if err != nil {
		t.Fatalf("Expected seeded rule: %v", err)
	}
	if rule.Condition != "order.scoops >= 4" {
		t.Errorf("Unexpected seeded condition %q", rule.Condition)
	}

	engine, err := rules.NewEngine(store)
	if err != nil {
		t.Fatalf("NewEngine() failed: %v", err)
	}

	result, err := engine.FirstMatch(rules.Facts(map[string]any{"scoops": int64(4)}))
	if err != nil {
		t.Fatalf("FirstMatch() failed: %v", err)
	}
	if result == nil || result.Message != "4 is too many scoops!" {
		t.Errorf("Expected seeded rule to match 4 scoops, got %+v", result)
	}
}

func TestPostgresRuleStore_BasicCRUD(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := rules.NewPostgresRuleStore(db)

	ruleID := uuid.New().String()
	rule := &rules.Rule{
		ID:        ruleID,
		Name:      "caramel-sundae",
		Condition: `has(order.sauce) && order.sauce == "caramel"`,
		Message:   `"Extra caramel coming up!"`,
		Priority:  -1,
		Active:    true,
	}

	if err := store.Add(rule); err != nil {
		t.Fatalf("Failed to add rule: %v", err)
	}
	if err := store.Add(rule); !errors.Is(err, rules.ErrRuleExists) {
		t.Errorf("Expected ErrRuleExists for duplicate, got %v", err)
	}

	retrieved, err := store.Get(ruleID)
	if err != nil {
		t.Fatalf("Failed to get rule: %v", err)
	}
	if retrieved.Message != rule.Message {
		t.Errorf("Expected message %q, got %q", rule.Message, retrieved.Message)
	}

	active, err := store.ListActive()
	if err != nil {
		t.Fatalf("Failed to list active rules: %v", err)
	}
	if len(active) != 2 || active[0].ID != ruleID {
		t.Errorf("Expected new rule first of 2 active rules, got %d rules", len(active))
	}

	created := retrieved.CreatedAt
	rule.Name = "updated"
	rule.Active = false
	if err := store.Update(rule); err != nil {
		t.Fatalf("Failed to update rule: %v", err)
	}
	if !rule.CreatedAt.Equal(created) {
		t.Errorf("Update should keep created_at %v, got %v", created, rule.CreatedAt)
	}

	active, _ = store.ListActive()
	if len(active) != 1 {
		t.Errorf("Expected 1 active rule after deactivation, got %d", len(active))
	}
	all, _ := store.List()
	if len(all) != 2 {
		t.Errorf("Expected 2 rules in total, got %d", len(all))
	}

	if err := store.Delete(ruleID); err != nil {
		t.Fatalf("Failed to delete rule: %v", err)
	}
	if _, err := store.Get(ruleID); !errors.Is(err, rules.ErrRuleNotFound) {
		t.Errorf("Expected ErrRuleNotFound after delete, got %v", err)
	}
	if err := store.Update(rule); !errors.Is(err, rules.ErrRuleNotFound) {
		t.Errorf("Expected ErrRuleNotFound updating deleted rule, got %v", err)
	}
}
