package dessert

import (
	"errors"
	"strings"
	"testing"

	"github.com/liamcoop/typetour/rules"
)

func TestEvaluateScoops(t *testing.T) {
	tests := []struct {
		name  string
		order Dessert
		want  string
	}{
		{"five scoops", IceCream{Flavor: "vanilla", Scoops: 5}, "5 is too many scoops!"},
		{"four scoops is inclusive", IceCream{Flavor: "vanilla", Scoops: 4}, "4 is too many scoops!"},
		{"three scoops", IceCream{Flavor: "vanilla", Scoops: 3}, ReadySoon},
		{"zero scoops", IceCream{Flavor: "vanilla", Scoops: 0}, ReadySoon},
		{"flavor not inspected", IceCream{Scoops: 2}, ReadySoon},
		{"sundae", Sundae{IceCream: IceCream{Flavor: "vanilla", Scoops: 5}, Sauce: Caramel}, "5 is too many scoops!"},
		{"sundae with toppings", Sundae{IceCream: IceCream{Flavor: "mint", Scoops: 1}, Sauce: Chocolate, Nuts: Bool(true)}, ReadySoon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.order)
			if err != nil {
				t.Fatalf("Evaluate() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Evaluate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEvaluateTooManyMentionsCount(t *testing.T) {
	got, err := Evaluate(IceCream{Flavor: "vanilla", Scoops: 5})
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}
	if !strings.Contains(got, "5") || !strings.Contains(got, "too many scoops!") {
		t.Errorf("Expected message with count and 'too many scoops!', got %q", got)
	}
}

func TestEvaluateRejectsNegativeScoops(t *testing.T) {
	_, err := Evaluate(IceCream{Flavor: "vanilla", Scoops: -1})
	if !errors.Is(err, ErrInvalidOrder) {
		t.Errorf("Expected ErrInvalidOrder, got %v", err)
	}

	_, err = Evaluate(nil)
	if !errors.Is(err, ErrInvalidOrder) {
		t.Errorf("Expected ErrInvalidOrder for nil order, got %v", err)
	}
}

func TestEvaluatorCustomRules(t *testing.T) {
	store := NewDefaultRuleStore()
	store.Add(&rules.Rule{
		ID:        "caramel-overload",
		Name:      "Caramel overload",
		Condition: `has(order.sauce) && order.sauce == "caramel" && has(order.whippedCream) && order.whippedCream`,
		Message:   `"Hold the whipped cream on a caramel " + order.flavor + " sundae!"`,
		Priority:  -1,
		Active:    true,
	})

	e, err := NewEvaluator(store)
	if err != nil {
		t.Fatalf("NewEvaluator() failed: %v", err)
	}

	got, _ := e.Evaluate(Sundae{
		IceCream:     IceCream{Flavor: "vanilla", Scoops: 5},
		Sauce:        Caramel,
		WhippedCream: Bool(true),
	})
	if got != "Hold the whipped cream on a caramel vanilla sundae!" {
		t.Errorf("Expected custom rule to win on priority, got %q", got)
	}

	got, _ = e.Evaluate(IceCream{Flavor: "vanilla", Scoops: 5})
	if got != "5 is too many scoops!" {
		t.Errorf("Plain ice cream should fall through to the default rule, got %q", got)
	}
}

func TestEvaluatorWithoutRules(t *testing.T) {
	e, err := NewEvaluator(rules.NewInMemoryRuleStore())
	if err != nil {
		t.Fatalf("NewEvaluator() failed: %v", err)
	}

	got, err := e.Evaluate(IceCream{Flavor: "vanilla", Scoops: 40})
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}
	if got != ReadySoon {
		t.Errorf("Expected %q with no rules, got %q", ReadySoon, got)
	}
}

func TestNewDefaultRuleStore(t *testing.T) {
	store := NewDefaultRuleStore()

	active, err := store.ListActive()
	if err != nil {
		t.Fatalf("ListActive() failed: %v", err)
	}
	if len(active) != 1 || active[0].ID != DefaultRule().ID {
		t.Errorf("Expected only the default rule, got %+v", active)
	}
}
