package validate

import (
	"strings"
	"testing"

	"github.com/pistalab/trainlog/internal/models"
)

func draft(sessionType string) *models.SessionDraft {
	return &models.SessionDraft{
		Session: models.Session{Date: "2026-01-12", Title: "Test", Type: sessionType},
		Groups: []models.GroupDraft{
			{Name: "Sprint", Sets: []models.SetDraft{
				{ExerciseName: "Sprint 60m", Category: "sprint", Sets: 3, Reps: 1},
			}},
		},
	}
}

func TestValidateCleanDraft(t *testing.T) {
	d := draft("pista")
	if errs := Validate(d); len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}
}

func TestValidateTypeFirstMatchingToken(t *testing.T) {
	d := draft("pista + palestra")
	if errs := Validate(d); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if d.Session.Type != "pista" {
		t.Errorf("type = %q, want first matching token pista", d.Session.Type)
	}
}

func TestValidateTypeSubstring(t *testing.T) {
	d := draft("sessione in palestra!")
	if errs := Validate(d); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if d.Session.Type != "palestra" {
		t.Errorf("type = %q, want palestra via substring", d.Session.Type)
	}
}

func TestValidateTypeUnrecognized(t *testing.T) {
	d := draft("swimming")
	errs := Validate(d)
	if len(errs) != 1 || !strings.Contains(errs[0], "session type") {
		t.Errorf("expected a session type error, got %v", errs)
	}
}

func TestValidateRPE(t *testing.T) {
	tests := []struct {
		rpe     models.Flex
		wantErr bool
	}{
		{"", false},
		{"0", false},
		{"10", false},
		{"7", false},
		{"11", true},
		{"-1", true},
		{"forte", true},
		{"7.5", true},
	}

	for _, tt := range tests {
		d := draft("pista")
		d.Session.RPE = tt.rpe
		errs := Validate(d)
		if tt.wantErr && len(errs) == 0 {
			t.Errorf("rpe %q: expected an error", tt.rpe)
		}
		if !tt.wantErr && len(errs) != 0 {
			t.Errorf("rpe %q: unexpected errors %v", tt.rpe, errs)
		}
	}
}

func TestValidateEmptyGroupRepaired(t *testing.T) {
	d := draft("pista")
	d.Groups = []models.GroupDraft{{Name: "Andature"}}
	if errs := Validate(d); len(errs) != 0 {
		t.Fatalf("empty group is a repair, not an error: %v", errs)
	}
	if len(d.Groups[0].Sets) != 1 {
		t.Fatal("empty group should get a synthesized set")
	}
	if d.Groups[0].Sets[0].ExerciseName != "Andature" {
		t.Errorf("synthesized set name = %q, want group name", d.Groups[0].Sets[0].ExerciseName)
	}
}

func TestValidateMissingExerciseName(t *testing.T) {
	d := draft("pista")
	d.Groups[0].Sets[0].ExerciseName = "  "
	Validate(d)
	if d.Groups[0].Sets[0].ExerciseName != "Sprint" {
		t.Errorf("exercise name = %q, want owning group name", d.Groups[0].Sets[0].ExerciseName)
	}
}

func TestValidateCategoryCoerced(t *testing.T) {
	d := draft("pista")
	d.Groups[0].Sets[0].Category = "plyometrics"
	errs := Validate(d)
	if len(errs) != 0 {
		t.Fatalf("category coercion is a repair, not an error: %v", errs)
	}
	if d.Groups[0].Sets[0].Category != "other" {
		t.Errorf("category = %q, want other", d.Groups[0].Sets[0].Category)
	}
}

func TestValidateCategoryEmptyKept(t *testing.T) {
	d := draft("pista")
	d.Groups[0].Sets[0].Category = ""
	Validate(d)
	if d.Groups[0].Sets[0].Category != "" {
		t.Errorf("absent category should stay absent, got %q", d.Groups[0].Sets[0].Category)
	}
}

func TestValidateNoGroupsSynthesized(t *testing.T) {
	d := draft("pista")
	d.Groups = nil
	if errs := Validate(d); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(d.Groups) != 1 || len(d.Groups[0].Sets) != 1 {
		t.Fatal("draft without groups should get a placeholder group and set")
	}
}
