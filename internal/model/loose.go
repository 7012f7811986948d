package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Loose holds a numeric field exactly as it was entered. Nothing checks that
// it is a number when written; Float coerces it when aggregating.
type Loose string

// Float returns the numeric value, or 0 when the text is not a finite number.
func (l Loose) Float() float64 {
	f, _ := l.Number()
	return f
}

// Number parses the value and reports whether it is a finite number.
func (l Loose) Number() (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(string(l)), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// MarshalJSON writes numbers as JSON numbers and anything else as a string.
func (l Loose) MarshalJSON() ([]byte, error) {
	s := strings.TrimSpace(string(l))
	if s != "" && json.Valid([]byte(s)) {
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			return []byte(s), nil
		}
	}
	return json.Marshal(string(l))
}

// UnmarshalJSON accepts a number, a string or null.
func (l *Loose) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*l = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = Loose(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*l = Loose(n.String())
	}
	return nil
}
