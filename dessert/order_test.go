package dessert

import (
	"errors"
	"testing"
)

func TestSauceValid(t *testing.T) {
	for _, s := range Sauces {
		if !s.Valid() {
			t.Errorf("Expected %q to be valid", s)
		}
	}
	for _, s := range []Sauce{"", "fudge", "Chocolate"} {
		if s.Valid() {
			t.Errorf("Expected %q to be invalid", s)
		}
	}
}

func TestSundaeValidate(t *testing.T) {
	tests := []struct {
		name    string
		sundae  Sundae
		wantErr bool
	}{
		{"valid", Sundae{IceCream: IceCream{Flavor: "vanilla", Scoops: 2}, Sauce: Strawberry}, false},
		{"bad sauce", Sundae{IceCream: IceCream{Flavor: "vanilla", Scoops: 2}, Sauce: "fudge"}, true},
		{"no flavor", Sundae{IceCream: IceCream{Scoops: 2}, Sauce: Caramel}, true},
		{"negative scoops", Sundae{IceCream: IceCream{Flavor: "vanilla", Scoops: -2}, Sauce: Caramel}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sundae.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidOrder) {
				t.Errorf("Expected ErrInvalidOrder, got %v", err)
			}
		})
	}
}

func TestSundaeFacts(t *testing.T) {
	s := Sundae{
		IceCream: IceCream{Flavor: "vanilla", Scoops: 3},
		Sauce:    Chocolate,
		Nuts:     Bool(false),
	}

	facts := s.Facts()
	if facts["scoops"] != int64(3) || facts["flavor"] != "vanilla" || facts["sauce"] != "chocolate" {
		t.Errorf("Unexpected base facts: %v", facts)
	}
	if facts["nuts"] != false {
		t.Errorf("Expected nuts=false to be present, got %v", facts["nuts"])
	}
	if _, ok := facts["whippedCream"]; ok {
		t.Error("Unset topping should be absent")
	}
	if s.Portion().Scoops != 3 {
		t.Errorf("Portion() should expose the base order")
	}
}

func TestDecodeOrder(t *testing.T) {
	d, err := DecodeOrder([]byte(`{"flavor":"vanilla","scoops":5}`))
	if err != nil {
		t.Fatalf("DecodeOrder() failed: %v", err)
	}
	if _, ok := d.(IceCream); !ok {
		t.Errorf("Expected IceCream, got %T", d)
	}

	d, err = DecodeOrder([]byte(`{"flavor":"vanilla","scoops":5,"sauce":"caramel","whippedCream":true}`))
	if err != nil {
		t.Fatalf("DecodeOrder() failed: %v", err)
	}
	s, ok := d.(Sundae)
	if !ok {
		t.Fatalf("Expected Sundae, got %T", d)
	}
	if s.WhippedCream == nil || !*s.WhippedCream || s.Nuts != nil {
		t.Errorf("Unexpected toppings: %+v", s)
	}

	for _, body := range []string{
		`not json`,
		`{"flavor":"vanilla","scoops":"five"}`,
		`{"flavor":"vanilla","scoops":-1}`,
		`{"flavor":"vanilla","scoops":2,"sauce":"fudge"}`,
		`{"scoops":4}`,
		`{"flavor":"  ","scoops":1}`,
	} {
		if _, err := DecodeOrder([]byte(body)); !errors.Is(err, ErrInvalidOrder) {
			t.Errorf("DecodeOrder(%s) expected ErrInvalidOrder, got %v", body, err)
		}
	}
}
