package units

import (
	"strconv"
	"testing"
)

func TestNormalizeTime(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1'12\"", 72.0, true},
		{"1'12", 72.0, true},
		{"1:30", 90.0, true},
		{"0:45", 45.0, true},
		{"12:05.3", 725.3, true},
		{"6,70", 6.7, true},
		{"10.5", 10.5, true},
		{"10.5sec", 10.5, true},
		{"72s", 72.0, true},
		{"7.18", 7.2, true}, // one decimal place kept
		{"", 0, false},
		{"abc", 0, false},
		{"--", 0, false},
	}

	for _, tt := range tests {
		got, ok := NormalizeTime(tt.in)
		if ok != tt.ok {
			t.Errorf("NormalizeTime(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("NormalizeTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeTimeExact(t *testing.T) {
	// Apostrophe notation converts via minutes*60+seconds, never approximated.
	got, ok := NormalizeTime("1'12\"")
	if !ok || got != 72.0 {
		t.Fatalf("NormalizeTime(1'12\") = %v (ok=%v), want exactly 72.0", got, ok)
	}
}

func TestNormalizeTimeIdempotent(t *testing.T) {
	inputs := []string{"1'12\"", "1:30", "6,70", "90", "10.5sec"}
	for _, in := range inputs {
		first, ok := NormalizeTime(in)
		if !ok {
			t.Fatalf("NormalizeTime(%q) unexpectedly failed", in)
		}
		again, ok := NormalizeTime(strconv.FormatFloat(first, 'f', -1, 64))
		if !ok || again != first {
			t.Errorf("NormalizeTime not idempotent for %q: %v then %v", in, first, again)
		}
	}
}

func TestNormalizeRecovery(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"2'", 120, true},
		{"2'30", 150, true},
		{"90", 90, true},
		{"3min", 180, true},
		{"3 min", 180, true},
		{"1h", 3600, true},
		{"1:30", 90, true},
		{"", 0, false},
		{"poco", 0, false},
	}

	for _, tt := range tests {
		got, ok := NormalizeRecovery(tt.in)
		if ok != tt.ok {
			t.Errorf("NormalizeRecovery(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("NormalizeRecovery(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeDistance(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"100m", 100, true},
		{"100", 100, true},
		{"5km", 5000, true},
		{"1,2km", 1200, true},
		{"60 m", 60, true},
		{"400 metri", 400, true},
		{"", 0, false},
		{"lontano", 0, false},
	}

	for _, tt := range tests {
		got, ok := NormalizeDistance(tt.in)
		if ok != tt.ok {
			t.Errorf("NormalizeDistance(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("NormalizeDistance(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeExercise(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"stacco", "Deadlift"},
		{"Stacco da terra", "Deadlift"},
		{"deadlift", "Deadlift"},
		{"panca", "Bench press"},
		{"bench press", "Bench press"},
		{"SQUAT", "Squat"},
		{"girata al petto", "Power clean"},
		{"trazioni zavorrate", "Pull up"},
		{"half squat", "Half squat"},
		{"romanian deadlift", "Romanian deadlift"},
		{"esercizio misterioso", "Esercizio Misterioso"}, // unknown → title-cased
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeExercise(tt.in); got != tt.want {
			t.Errorf("NormalizeExercise(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeExerciseIdempotent(t *testing.T) {
	inputs := []string{"stacco", "panca piana", "esercizio misterioso"}
	// Every canonical name must survive a second pass unchanged.
	for _, syn := range exerciseSynonyms {
		inputs = append(inputs, syn.canonical)
	}
	for _, in := range inputs {
		first := NormalizeExercise(in)
		if again := NormalizeExercise(first); again != first {
			t.Errorf("NormalizeExercise not idempotent for %q: %q then %q", in, first, again)
		}
	}
}
