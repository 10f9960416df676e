package union

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds
type Kind int

const (
	// KindInvalid is the zero Kind: the value is neither a number nor text
	KindInvalid Kind = iota
	KindNumber
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	default:
		return "invalid"
	}
}

// Value is either a number or a piece of text.
// The variant is fixed at construction; the zero Value is invalid.
type Value struct {
	kind Kind
	num  float64
	text string
}

// Number returns a numeric Value
func Number(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

// Text returns a text Value
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// Kind returns the variant held by v
func (v Value) Kind() Kind {
	return v.kind
}

// IsValid reports whether v holds a number or text
func (v Value) IsValid() bool {
	return v.kind == KindNumber || v.kind == KindText
}

// AsNumber returns the numeric payload and whether v is a number
func (v Value) AsNumber() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// AsText returns the text payload and whether v is text
func (v Value) AsText() (string, bool) {
	return v.text, v.kind == KindText
}

// String renders v the way the console walkthrough prints it.
// Whole numbers print without a fractional part.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindText:
		return v.text
	default:
		return "<invalid>"
	}
}

// Parse converts a console token into a Value.
// A double-quoted token is always text; otherwise numeric literals
// become numbers and everything else is text.
func Parse(token string) Value {
	if len(token) >= 2 && strings.HasPrefix(token, `"`) && strings.HasSuffix(token, `"`) {
		if s, err := strconv.Unquote(token); err == nil {
			return Text(s)
		}
		return Text(token[1 : len(token)-1])
	}
	if f, err := strconv.ParseFloat(token, 64); err == nil {
		return Number(f)
	}
	return Text(token)
}

// MarshalJSON encodes numbers as JSON numbers and text as JSON strings.
// An invalid value encodes as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return json.Marshal(v.num)
	case KindText:
		return json.Marshal(v.text)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a JSON number or string.
// Any other JSON value leaves v invalid so the combiner can report it.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*v = Value{}
	if len(data) == 0 {
		return fmt.Errorf("empty JSON value")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return err
		}
		*v = Number(f)
	}
	return nil
}
