// Package dessert models ice cream orders and rates their portion size.
package dessert

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidOrder is wrapped by every order validation failure
var ErrInvalidOrder = errors.New("invalid order")

// Sauce is one of the fixed sundae sauces
type Sauce string

const (
	Chocolate  Sauce = "chocolate"
	Caramel    Sauce = "caramel"
	Strawberry Sauce = "strawberry"
)

// Sauces lists every valid sauce
var Sauces = []Sauce{Chocolate, Caramel, Strawberry}

// Valid reports whether s is a known sauce
func (s Sauce) Valid() bool {
	switch s {
	case Chocolate, Caramel, Strawberry:
		return true
	}
	return false
}

// Dessert is anything that can be rated by the portion evaluator
type Dessert interface {
	// Portion returns the base ice cream of the order
	Portion() IceCream

	// Facts returns the order fields visible to portion rules
	Facts() map[string]any
}

// IceCream is a basic order
type IceCream struct {
	Flavor string `json:"flavor"`
	Scoops int    `json:"scoops"`
}

func (i IceCream) Portion() IceCream {
	return i
}

func (i IceCream) Facts() map[string]any {
	return map[string]any{
		"flavor": i.Flavor,
		"scoops": int64(i.Scoops),
	}
}

// Validate checks the flavor and that scoops is non-negative
func (i IceCream) Validate() error {
	if strings.TrimSpace(i.Flavor) == "" {
		return fmt.Errorf("%w: flavor is required", ErrInvalidOrder)
	}
	return checkScoops(i.Scoops)
}

func checkScoops(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: scoops must be non-negative, got %d", ErrInvalidOrder, n)
	}
	return nil
}

// Sundae is an ice cream with a sauce and optional toppings.
// A nil topping was not specified.
type Sundae struct {
	IceCream
	Sauce        Sauce `json:"sauce"`
	Nuts         *bool `json:"nuts,omitempty"`
	WhippedCream *bool `json:"whippedCream,omitempty"`
	Instructions *bool `json:"instructions,omitempty"`
}

func (s Sundae) Facts() map[string]any {
	facts := s.IceCream.Facts()
	facts["sauce"] = string(s.Sauce)
	for key, flag := range map[string]*bool{
		"nuts":         s.Nuts,
		"whippedCream": s.WhippedCream,
		"instructions": s.Instructions,
	} {
		if flag != nil {
			facts[key] = *flag
		}
	}
	return facts
}

// Validate checks the base order and the sauce
func (s Sundae) Validate() error {
	if err := s.IceCream.Validate(); err != nil {
		return err
	}
	if !s.Sauce.Valid() {
		return fmt.Errorf("%w: sauce %q must be one of %v", ErrInvalidOrder, s.Sauce, Sauces)
	}
	return nil
}

// DecodeOrder reads an order from JSON.
// A body with a "sauce" key is a Sundae, anything else an IceCream.
func DecodeOrder(data []byte) (Dessert, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}

	if _, isSundae := probe["sauce"]; isSundae {
		var s Sundae
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		return s, nil
	}

	var i IceCream
	if err := json.Unmarshal(data, &i); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}
	if err := i.Validate(); err != nil {
		return nil, err
	}
	return i, nil
}

// Bool returns a pointer to b, for topping flags
func Bool(b bool) *bool {
	return &b
}
