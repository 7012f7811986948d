package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// ID identifies a record within its collection. Older portal clients write
// ids as epoch-millisecond numbers; those are read back as their decimal
// text and written out as numbers again.
type ID string

func (id ID) String() string { return string(id) }

// MarshalJSON writes integer ids as JSON numbers and anything else as a
// string.
func (id ID) MarshalJSON() ([]byte, error) {
	if isInteger(string(id)) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts a string, a number or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*id = ID(n.String())
	}
	return nil
}

// isInteger reports whether s is a canonical JSON integer: no sign, no
// leading zeros.
func isInteger(s string) bool {
	if s == "" || len(s) > 1 && s[0] == '0' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Timestamp is a record time. It is written as RFC 3339 and read from
// either RFC 3339 text or epoch milliseconds.
type Timestamp struct {
	time.Time
}

// At wraps t.
func At(t time.Time) Timestamp { return Timestamp{Time: t} }

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return ts.Time.MarshalJSON()
}

// UnmarshalJSON accepts an RFC 3339 string, a bare date, a number of
// milliseconds since the epoch, or null.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")), bytes.Equal(data, []byte(`""`)):
		ts.Time = time.Time{}
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			t, err = time.Parse(time.DateOnly, s)
			if err != nil {
				return err
			}
		}
		ts.Time = t
	default:
		ms, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return err
		}
		ts.Time = time.UnixMilli(int64(ms)).UTC()
	}
	return nil
}
