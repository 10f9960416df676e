package rules

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

const ruleColumns = `id, name, condition, message, priority, active, created_at, updated_at`

// PostgresRuleStore implements RuleStore on the portion_rules table
type PostgresRuleStore struct {
	db *sql.DB
}

// NewPostgresRuleStore creates a PostgreSQL-backed RuleStore
func NewPostgresRuleStore(db *sql.DB) *PostgresRuleStore {
	return &PostgresRuleStore{db: db}
}

// Add inserts a new rule
func (s *PostgresRuleStore) Add(rule *Rule) error {
	now := time.Now()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now

	_, err := s.db.Exec(`
		INSERT INTO portion_rules (`+ruleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, rule.ID, rule.Name, rule.Condition, rule.Message, rule.Priority, rule.Active,
		rule.CreatedAt, rule.UpdatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("rule %s: %w", rule.ID, ErrRuleExists)
	}
	if err != nil {
		return fmt.Errorf("failed to insert rule: %w", err)
	}

	return nil
}

// Get retrieves a rule by ID
func (s *PostgresRuleStore) Get(id string) (*Rule, error) {
	row := s.db.QueryRow(`
		SELECT `+ruleColumns+`
		FROM portion_rules
		WHERE id = $1
	`, id)

	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rule %s: %w", id, ErrRuleNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	return rule, nil
}

// List returns every rule in evaluation order
func (s *PostgresRuleStore) List() ([]*Rule, error) {
	return s.query(`
		SELECT ` + ruleColumns + `
		FROM portion_rules
		ORDER BY priority ASC, id ASC
	`)
}

// ListActive returns the active rules in evaluation order
func (s *PostgresRuleStore) ListActive() ([]*Rule, error) {
	return s.query(`
		SELECT ` + ruleColumns + `
		FROM portion_rules
		WHERE active = true
		ORDER BY priority ASC, id ASC
	`)
}

func (s *PostgresRuleStore) query(q string) ([]*Rule, error) {
	rows, err := s.db.Query(q)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var out []*Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		out = append(out, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return out, nil
}

// Update modifies an existing rule, keeping created_at
func (s *PostgresRuleStore) Update(rule *Rule) error {
	rule.UpdatedAt = time.Now()

	err := s.db.QueryRow(`
		UPDATE portion_rules
		SET name = $1, condition = $2, message = $3, priority = $4, active = $5, updated_at = $6
		WHERE id = $7
		RETURNING created_at
	`, rule.Name, rule.Condition, rule.Message, rule.Priority, rule.Active,
		rule.UpdatedAt, rule.ID).Scan(&rule.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("rule %s: %w", rule.ID, ErrRuleNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}

	return nil
}

// Delete removes a rule
func (s *PostgresRuleStore) Delete(id string) error {
	result, err := s.db.Exec(`DELETE FROM portion_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("rule %s: %w", id, ErrRuleNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*Rule, error) {
	var r Rule
	err := row.Scan(&r.ID, &r.Name, &r.Condition, &r.Message, &r.Priority, &r.Active,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
