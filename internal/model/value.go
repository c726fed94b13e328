package model

import (
	"fmt"
	"math"
	"strconv"
)

// Value is a metric that may be mathematically undefined (empty input,
// zero variance). Undefined is represented by NaN.
type Value float64

// Undefined returns the undefined sentinel.
func Undefined() Value {
	return Value(math.NaN())
}

// Defined reports whether v holds a finite number.
func (v Value) Defined() bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Float returns the raw float64, NaN when undefined.
func (v Value) Float() float64 {
	return float64(v)
}

// Format renders v with the given number of decimals, or "N/A".
func (v Value) Format(decimals int) string {
	if !v.Defined() {
		return "N/A"
	}
	return strconv.FormatFloat(float64(v), 'f', decimals, 64)
}

func (v Value) String() string {
	return v.Format(3)
}

// MarshalJSON encodes undefined values as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Defined() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(float64(v), 'g', -1, 64)), nil
}

// UnmarshalJSON decodes null as undefined.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Undefined()
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	*v = Value(f)
	return nil
}
