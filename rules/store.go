package rules

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrRuleNotFound = errors.New("rule not found")
	ErrRuleExists   = errors.New("rule already exists")
)

// RuleStore manages rule persistence and retrieval
type RuleStore interface {
	// Add a new rule
	Add(rule *Rule) error

	// Get a rule by ID
	Get(id string) (*Rule, error)

	// List all rules, active or not, in evaluation order
	List() ([]*Rule, error)

	// List active rules in evaluation order
	ListActive() ([]*Rule, error)

	// Update an existing rule
	Update(rule *Rule) error

	// Delete a rule
	Delete(id string) error
}

// InMemoryRuleStore implements RuleStore using a map guarded by an RWMutex
type InMemoryRuleStore struct {
	rules map[string]*Rule
	mu    sync.RWMutex
}

// NewInMemoryRuleStore creates an empty in-memory rule store
func NewInMemoryRuleStore() *InMemoryRuleStore {
	return &InMemoryRuleStore{
		rules: make(map[string]*Rule),
	}
}

// Add stores a rule and stamps CreatedAt/UpdatedAt
func (s *InMemoryRuleStore) Add(rule *Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[rule.ID]; exists {
		return fmt.Errorf("rule %s: %w", rule.ID, ErrRuleExists)
	}

	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	stored := *rule
	s.rules[rule.ID] = &stored
	return nil
}

// Get returns a copy of the rule with the given ID
func (s *InMemoryRuleStore) Get(id string) (*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, exists := s.rules[id]
	if !exists {
		return nil, fmt.Errorf("rule %s: %w", id, ErrRuleNotFound)
	}
	r := *rule
	return &r, nil
}

// List returns copies of every rule in evaluation order
func (s *InMemoryRuleStore) List() ([]*Rule, error) {
	return s.collect(func(*Rule) bool { return true }), nil
}

// ListActive returns copies of the active rules in evaluation order
func (s *InMemoryRuleStore) ListActive() ([]*Rule, error) {
	return s.collect(func(r *Rule) bool { return r.Active }), nil
}

func (s *InMemoryRuleStore) collect(keep func(*Rule) bool) []*Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Rule, 0, len(s.rules))
	for _, rule := range s.rules {
		if keep(rule) {
			r := *rule
			out = append(out, &r)
		}
	}
	SortRules(out)
	return out
}

// Update replaces a rule, keeping its original CreatedAt
func (s *InMemoryRuleStore) Update(rule *Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.rules[rule.ID]
	if !exists {
		return fmt.Errorf("rule %s: %w", rule.ID, ErrRuleNotFound)
	}

	rule.CreatedAt = existing.CreatedAt
	rule.UpdatedAt = time.Now()
	stored := *rule
	s.rules[rule.ID] = &stored
	return nil
}

// Delete removes a rule
func (s *InMemoryRuleStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[id]; !exists {
		return fmt.Errorf("rule %s: %w", id, ErrRuleNotFound)
	}

	delete(s.rules, id)
	return nil
}
