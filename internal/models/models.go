// Package models defines the structured records the ingestion pipeline
// produces: a training session with its exercise groups and sets.
//
// The shapes here are the persistence boundary. Every field carries a JSON
// tag matching the stored schema, and numeric fields are canonical units:
// meters, kilograms, seconds.
package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// SessionDraft is a full per-day record recovered from the extraction
// oracle. It is a draft until the structural validator has run over it.
type SessionDraft struct {
	Session Session      `json:"session"`
	Groups  []GroupDraft `json:"groups"`
}

// Session holds the per-day header fields.
type Session struct {
	Date     string `json:"date"` // YYYY-MM-DD, always set by the pipeline
	Title    string `json:"title"`
	Type     string `json:"type"`
	Location string `json:"location,omitempty"`
	RPE      Flex   `json:"rpe,omitempty"`
	Feeling  string `json:"feeling,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// GroupDraft is a block of sets inside a session ("Sprints", "Weights", ...).
type GroupDraft struct {
	Name       string     `json:"name"`
	OrderIndex int        `json:"order_index"`
	Notes      string     `json:"notes,omitempty"`
	Sets       []SetDraft `json:"sets"`
}

// SetDraft is a single exercise line. Sets and Reps default to 1 when the
// oracle omitted them; optional measurements stay nil when absent.
type SetDraft struct {
	ExerciseName string   `json:"exercise_name"`
	Category     string   `json:"category,omitempty"`
	Sets         int      `json:"sets"`
	Reps         int      `json:"reps"`
	WeightKg     *float64 `json:"weight_kg,omitempty"`
	DistanceM    *float64 `json:"distance_m,omitempty"`
	TimeS        *float64 `json:"time_s,omitempty"`
	RecoveryS    *int     `json:"recovery_s,omitempty"`
	Notes        string   `json:"notes,omitempty"`
	Details      string   `json:"details,omitempty"`
}

// Flex is a string that tolerates any scalar JSON encoding on the way in.
// The oracle emits fields like rpe sometimes as a number, sometimes as a
// quoted string; Flex keeps the raw token so validation can decide what to
// do with it instead of failing the whole decode.
type Flex string

// UnmarshalJSON accepts strings, numbers, booleans, and null.
func (f *Flex) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = Flex(strings.TrimSpace(s))
		return nil
	}
	*f = Flex(string(b))
	return nil
}

// MarshalJSON emits a bare number when the value parses as one, so a
// validated rpe round-trips as JSON number rather than a quoted string.
func (f Flex) MarshalJSON() ([]byte, error) {
	s := strings.TrimSpace(string(f))
	if s == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return []byte(s), nil
	}
	return json.Marshal(s)
}

// Int parses the value as an integer.
func (f Flex) Int() (int, bool) {
	s := strings.TrimSpace(string(f))
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// IsZero reports whether no value was present.
func (f Flex) IsZero() bool {
	return strings.TrimSpace(string(f)) == ""
}

func (f Flex) String() string {
	return strings.TrimSpace(string(f))
}
