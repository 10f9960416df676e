// Package rules compiles and evaluates portion rules written in CEL.
//
// A portion rule pairs a boolean Condition with a string Message, both
// evaluated against the variable "order". Rules run in ascending Priority
// and the first matching rule decides the message shown for an order.
package rules

import (
	"sort"
	"time"
)

// OrderVar is the CEL variable that holds the order facts
const OrderVar = "order"

// Rule is a single portion rule
type Rule struct {
	ID        string
	Name      string
	Condition string // CEL expression, must evaluate to bool
	Message   string // CEL expression, must evaluate to string
	Priority  int    // lower runs first
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EvaluationResult contains the outcome of evaluating a rule
type EvaluationResult struct {
	RuleID   string
	RuleName string
	Matched  bool
	Message  string // set only when Matched
	Error    error
	Trace    any // CEL evaluation state
}

// Facts wraps order fields under OrderVar for evaluation
func Facts(order map[string]any) map[string]any {
	return map[string]any{OrderVar: order}
}

// SortRules orders rules by Priority, then ID
func SortRules(rs []*Rule) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].Priority != rs[j].Priority {
			return rs[i].Priority < rs[j].Priority
		}
		return rs[i].ID < rs[j].ID
	})
}
