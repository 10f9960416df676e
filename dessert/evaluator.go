package dessert

import (
	"fmt"
	"sync"

	"github.com/liamcoop/typetour/rules"
)

// ReadySoon is the message for orders no rule objects to
const ReadySoon = "Your order will be ready soon!"

// MaxScoops is the inclusive scoop count at which an order is too big
const MaxScoops = 4

// DefaultRule flags orders of MaxScoops or more
func DefaultRule() *rules.Rule {
	return &rules.Rule{
		ID:        "too-many-scoops",
		Name:      "Too many scoops",
		Condition: fmt.Sprintf("order.scoops >= %d", MaxScoops),
		Message:   `string(order.scoops) + " is too many scoops!"`,
		Priority:  0,
		Active:    true,
	}
}

// NewDefaultRuleStore returns an in-memory store holding DefaultRule
func NewDefaultRuleStore() *rules.InMemoryRuleStore {
	store := rules.NewInMemoryRuleStore()
	if err := store.Add(DefaultRule()); err != nil {
		panic(fmt.Sprintf("dessert: seed default rule: %v", err))
	}
	return store
}

// Evaluator rates orders with a set of portion rules
type Evaluator struct {
	engine *rules.Engine
}

// NewEvaluator compiles the active rules in store
func NewEvaluator(store rules.RuleStore) (*Evaluator, error) {
	engine, err := rules.NewEngine(store)
	if err != nil {
		return nil, err
	}
	return &Evaluator{engine: engine}, nil
}

// NewEvaluatorWithEngine wraps an existing engine
func NewEvaluatorWithEngine(engine *rules.Engine) *Evaluator {
	return &Evaluator{engine: engine}
}

// Engine exposes the rule engine for rule management
func (e *Evaluator) Engine() *rules.Engine {
	return e.engine
}

// Evaluate returns the message of the first matching rule, or ReadySoon.
// Only the scoop count is validated here.
func (e *Evaluator) Evaluate(d Dessert) (string, error) {
	if d == nil {
		return "", fmt.Errorf("%w: no order", ErrInvalidOrder)
	}
	if err := checkScoops(d.Portion().Scoops); err != nil {
		return "", err
	}

	result, err := e.engine.FirstMatch(rules.Facts(d.Facts()))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate order: %w", err)
	}
	if result == nil {
		return ReadySoon, nil
	}
	return result.Message, nil
}

var (
	defaultOnce      sync.Once
	defaultEvaluator *Evaluator
	defaultErr       error
)

// Default returns the shared evaluator built on DefaultRule
func Default() (*Evaluator, error) {
	defaultOnce.Do(func() {
		defaultEvaluator, defaultErr = NewEvaluator(NewDefaultRuleStore())
	})
	return defaultEvaluator, defaultErr
}

// Evaluate rates d with the default evaluator
func Evaluate(d Dessert) (string, error) {
	e, err := Default()
	if err != nil {
		return "", err
	}
	return e.Evaluate(d)
}
