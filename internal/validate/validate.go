// Package validate enforces the minimum shape invariants on a recovered
// session draft. It repairs what it safely can (empty groups, missing
// exercise names, unknown categories) and reports what it can't as errors.
// A draft is never dropped: errors are surfaced so the caller can decide.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pistalab/trainlog/internal/models"
)

// SessionTypes are the accepted values for session.type.
var SessionTypes = []string{"pista", "palestra", "gara", "tecnica", "resistenza", "recupero", "misto", "altro"}

// SetCategories are the accepted values for a set's category.
var SetCategories = []string{"sprint", "jump", "lift", "endurance", "mobility", "drill", "other"}

// Report collects the outstanding structural errors for one session in a
// multi-day batch. A session with an empty error list is persistable.
type Report struct {
	Index  int      `json:"index"`
	Errors []string `json:"errors,omitempty"`
}

var typeTokenRE = regexp.MustCompile(`[\s,/+]+`)

// Validate repairs the draft in place and returns the errors that remain.
func Validate(draft *models.SessionDraft) []string {
	var errs []string

	if t, ok := resolveType(draft.Session.Type); ok {
		draft.Session.Type = t
	} else {
		errs = append(errs, fmt.Sprintf("session type %q is not one of %s", draft.Session.Type, strings.Join(SessionTypes, "|")))
	}

	if !draft.Session.RPE.IsZero() {
		n, ok := draft.Session.RPE.Int()
		if !ok || n < 0 || n > 10 {
			// Reported, never silently clamped.
			errs = append(errs, fmt.Sprintf("rpe %q is not an integer in [0,10]", draft.Session.RPE))
		}
	}

	if len(draft.Groups) == 0 {
		draft.Groups = append(draft.Groups, models.GroupDraft{Name: "Allenamento"})
	}

	for i := range draft.Groups {
		g := &draft.Groups[i]
		if g.Name == "" {
			g.Name = fmt.Sprintf("Blocco %d", i+1)
		}
		if g.OrderIndex == 0 && i > 0 {
			g.OrderIndex = i
		}
		if len(g.Sets) == 0 {
			g.Sets = append(g.Sets, models.SetDraft{
				ExerciseName: g.Name,
				Category:     "other",
				Sets:         1,
				Reps:         1,
			})
		}
		for j := range g.Sets {
			s := &g.Sets[j]
			if strings.TrimSpace(s.ExerciseName) == "" {
				s.ExerciseName = g.Name
			}
			if s.Category != "" && !contains(SetCategories, s.Category) {
				// A repair, not an error: category only affects downstream
				// classification, not the identity of the set.
				s.Category = "other"
			}
			if s.Sets < 1 {
				s.Sets = 1
			}
			if s.Reps < 1 {
				s.Reps = 1
			}
		}
	}

	return errs
}

// resolveType maps a free-text type value onto the enum. Multi-token values
// ("pista + palestra") resolve to the first matching token; otherwise any
// enum value contained as a substring wins.
func resolveType(raw string) (string, bool) {
	t := strings.ToLower(strings.TrimSpace(raw))
	if t == "" {
		return "", false
	}
	if contains(SessionTypes, t) {
		return t, true
	}
	for _, token := range typeTokenRE.Split(t, -1) {
		if contains(SessionTypes, token) {
			return token, true
		}
	}
	for _, st := range SessionTypes {
		if strings.Contains(t, st) {
			return st, true
		}
	}
	return "", false
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
