package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	maxIDLength         = 100
	maxNameLength       = 200
	maxExpressionLength = 4096
)

// ErrInvalidRule is wrapped by every ValidateRule failure
var ErrInvalidRule = errors.New("invalid rule")

var validRuleID = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateRule checks the shape of a rule before it is compiled.
// Expressions are checked for presence and size here; CEL checks the rest.
func ValidateRule(r *Rule) error {
	if r == nil {
		return fmt.Errorf("%w: nil rule", ErrInvalidRule)
	}

	if err := validateRuleID(r.ID); err != nil {
		return fmt.Errorf("%w: id %q: %v", ErrInvalidRule, r.ID, err)
	}

	name := strings.TrimSpace(r.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRule)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name length %d exceeds maximum of %d", ErrInvalidRule, len(name), maxNameLength)
	}

	for field, expr := range map[string]string{"condition": r.Condition, "message": r.Message} {
		if strings.TrimSpace(expr) == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidRule, field)
		}
		if len(expr) > maxExpressionLength {
			return fmt.Errorf("%w: %s length %d exceeds maximum of %d", ErrInvalidRule, field, len(expr), maxExpressionLength)
		}
	}

	return nil
}

func validateRuleID(id string) error {
	if len(id) == 0 {
		return fmt.Errorf("identifier cannot be empty")
	}
	if len(id) > maxIDLength {
		return fmt.Errorf("identifier length %d exceeds maximum of %d characters", len(id), maxIDLength)
	}
	if !validRuleID.MatchString(id) {
		return fmt.Errorf("must match pattern %s", validRuleID)
	}
	return nil
}
