package repair

import (
	"strings"
	"testing"
	"time"
)

var targetDate = time.Date(2026, time.January, 12, 0, 0, 0, 0, time.UTC)

const validResponse = `{
  "session": {"date": "2020-05-05", "title": "Pista", "type": "pista", "rpe": 7},
  "groups": [
    {"name": "Sprint", "order_index": 0, "sets": [
      {"exercise_name": "Sprint 60m", "category": "sprint", "sets": 3, "reps": 1, "distance_m": 60, "recovery_s": 180}
    ]}
  ]
}`

func TestRecoverValidJSON(t *testing.T) {
	draft := Recover(validResponse, targetDate, "Lunedì", "6x60m rec 3'")

	if draft.Session.Title != "Pista" {
		t.Errorf("title = %q", draft.Session.Title)
	}
	if draft.Session.Type != "pista" {
		t.Errorf("type = %q", draft.Session.Type)
	}
	if len(draft.Groups) != 1 || len(draft.Groups[0].Sets) != 1 {
		t.Fatalf("unexpected structure: %+v", draft.Groups)
	}
	set := draft.Groups[0].Sets[0]
	if set.DistanceM == nil || *set.DistanceM != 60 {
		t.Errorf("distance_m = %v", set.DistanceM)
	}
	if set.RecoveryS == nil || *set.RecoveryS != 180 {
		t.Errorf("recovery_s = %v", set.RecoveryS)
	}
}

func TestRecoverDateIsAuthoritative(t *testing.T) {
	// The oracle wrote 2020-05-05; the chunker's date wins.
	draft := Recover(validResponse, targetDate, "", "testo")
	if draft.Session.Date != "2026-01-12" {
		t.Errorf("date = %q, want 2026-01-12 (oracle's own date discarded)", draft.Session.Date)
	}
}

func TestRecoverMarkdownFence(t *testing.T) {
	fenced := "```json\n" + validResponse + "\n```"
	draft := Recover(fenced, targetDate, "", "testo")
	if draft.Session.Title != "Pista" {
		t.Errorf("fence not stripped, title = %q", draft.Session.Title)
	}
}

func TestRecoverProseWrapped(t *testing.T) {
	wrapped := "Here is the extracted session:\n" + validResponse + "\nLet me know if you need anything else."
	draft := Recover(wrapped, targetDate, "", "testo")
	if draft.Session.Title != "Pista" {
		t.Errorf("prose not stripped, title = %q", draft.Session.Title)
	}
}

func TestRecoverTrailingComma(t *testing.T) {
	bad := `{"session": {"title": "Palestra", "type": "palestra",}, "groups": [{"name": "Pesi", "sets": [{"exercise_name": "squat", "sets": 4, "reps": 5,},],},]}`
	draft := Recover(bad, targetDate, "", "squat 4x5")
	if draft.Session.Title != "Palestra" {
		t.Errorf("title = %q", draft.Session.Title)
	}
	if len(draft.Groups) != 1 || draft.Groups[0].Sets[0].ExerciseName != "Squat" {
		t.Errorf("groups = %+v", draft.Groups)
	}
}

func TestRecoverTruncated(t *testing.T) {
	truncated := `{"session": {"title": "Pista", "type": "pista"}, "groups": [{"name": "Sprint", "sets": [{"exercise_name": "Sprint 60m", "category": "sprint", "sets": 3`
	draft := Recover(truncated, targetDate, "", "3x60m")
	if draft.Session.Title != "Pista" {
		t.Errorf("title = %q", draft.Session.Title)
	}
	if len(draft.Groups) == 0 || len(draft.Groups[0].Sets) == 0 {
		t.Fatal("truncated response should still recover structure")
	}
	if draft.Groups[0].Sets[0].ExerciseName != "Sprint 60m" {
		t.Errorf("exercise = %q", draft.Groups[0].Sets[0].ExerciseName)
	}
}

func TestRecoverBareArrayKeys(t *testing.T) {
	// Known failure mode: the model drops the opening brace of array elements.
	bad := `{"session": {"title": "Pista", "type": "pista"}, "groups": ["name": "Sprint", "sets": [{"exercise_name": "Sprint", "sets": 1, "reps": 1}]]}`
	draft := Recover(bad, targetDate, "", "sprint")
	if len(draft.Groups) != 1 {
		t.Fatalf("groups = %+v", draft.Groups)
	}
	if draft.Groups[0].Name != "Sprint" {
		t.Errorf("group name = %q", draft.Groups[0].Name)
	}
}

func TestRecoverPiecewise(t *testing.T) {
	// Document-level parse is hopeless but both pieces are intact.
	bad := `junk junk "session": {"title": "Gara", "type": "gara"} more junk "groups": [{"name": "Gara 100m", "sets": [{"exercise_name": "100m", "category": "sprint", "sets": 1, "reps": 1, "time_s": "10.5"}]}] trailing`
	draft := Recover(bad, targetDate, "", "gara 100m 10.5")
	if draft.Session.Title != "Gara" {
		t.Errorf("title = %q", draft.Session.Title)
	}
	if len(draft.Groups) != 1 {
		t.Fatalf("groups = %+v", draft.Groups)
	}
	set := draft.Groups[0].Sets[0]
	if set.TimeS == nil || *set.TimeS != 10.5 {
		t.Errorf("time_s = %v", set.TimeS)
	}
}

func TestRecoverGarbageNeverDrops(t *testing.T) {
	inputs := []string{
		"I could not parse this training log, sorry.",
		"<<<>>>",
		"null",
		"[]",
		strings.Repeat("x", 500),
	}
	for _, in := range inputs {
		draft := Recover(in, targetDate, "Lunedì", "corsa lenta 30 minuti. poi stretching")
		if len(draft.Groups) == 0 || len(draft.Groups[0].Sets) == 0 {
			t.Fatalf("input %q: recovery produced an empty structure", in)
		}
		if draft.Session.Date != "2026-01-12" {
			t.Errorf("input %q: date = %q", in, draft.Session.Date)
		}
		if draft.Session.Type != "altro" {
			t.Errorf("input %q: fallback type = %q, want altro", in, draft.Session.Type)
		}
	}
}

func TestRecoverTitleBackfillFirstSentence(t *testing.T) {
	draft := Recover("garbage", targetDate, "Lunedì", "Corsa lenta in collina. Poi esercizi di mobilità.")
	if draft.Session.Title != "Corsa lenta in collina" {
		t.Errorf("title = %q, want first sentence", draft.Session.Title)
	}
}

func TestRecoverTitleBackfillTruncates(t *testing.T) {
	long := strings.Repeat("a", 300) // no sentence boundary anywhere
	draft := Recover("garbage", targetDate, "", long)
	if len(draft.Session.Title) != 160 {
		t.Errorf("title length = %d, want 160", len(draft.Session.Title))
	}
}

func TestRecoverEmptyGroupGetsPlaceholderSet(t *testing.T) {
	bad := `{"session": {"title": "Pista", "type": "pista"}, "groups": [{"name": "Sprint", "sets": []}]}`
	draft := Recover(bad, targetDate, "", "sprint")
	if len(draft.Groups[0].Sets) != 1 {
		t.Fatalf("empty group should be given a placeholder set")
	}
	if draft.Groups[0].Sets[0].ExerciseName != "Sprint" {
		t.Errorf("placeholder exercise = %q, want group name", draft.Groups[0].Sets[0].ExerciseName)
	}
}

func TestRecoverNumericStringsTolerated(t *testing.T) {
	mixed := `{"session": {"title": "Pista", "type": "pista", "rpe": "8"}, "groups": [{"name": "Sprint", "sets": [{"exercise_name": "400m", "sets": "2", "reps": "1", "time_s": "1'12\"", "recovery_s": "2'"}]}]}`
	draft := Recover(mixed, targetDate, "", "2x400m")
	set := draft.Groups[0].Sets[0]
	if set.Sets != 2 {
		t.Errorf("sets = %d", set.Sets)
	}
	if set.TimeS == nil || *set.TimeS != 72.0 {
		t.Errorf("time_s = %v, want 72 (1'12\" exact)", set.TimeS)
	}
	if set.RecoveryS == nil || *set.RecoveryS != 120 {
		t.Errorf("recovery_s = %v, want 120", set.RecoveryS)
	}
	if draft.Session.RPE.String() != "8" {
		t.Errorf("rpe = %q", draft.Session.RPE)
	}
}
