// Package units provides pure conversions from the textual notations found
// in training logs to canonical numeric forms: seconds for times and
// recovery durations, meters for distances, and a normalized exercise name.
//
// Every function is total (unparseable input reports ok=false instead of
// an error) and idempotent: converting an already-canonical value returns
// it unchanged.
package units

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	// 1:30, 12:05.3
	colonTimeRE = regexp.MustCompile(`^(\d{1,3}):(\d{1,2}(?:[.,]\d+)?)$`)
	// 1'12", 2'05, 1'12''
	apostropheTimeRE = regexp.MustCompile(`^(\d{1,3})'\s*(\d{1,2}(?:[.,]\d+)?)\s*(?:"|”|'')?$`)
	// trailing unit words on plain time tokens: 10.5sec, 72s, 7"2 is not supported
	timeSuffixRE = regexp.MustCompile(`(?i)\s*(?:sec(?:ondi)?|s|")$`)

	distanceRE = regexp.MustCompile(`(?i)^(\d+(?:[.,]\d+)?)\s*(km|k|mt|metri|m)?\.?$`)

	recoveryRE = regexp.MustCompile(`(?i)^(\d+(?:[.,]\d+)?)\s*(h|hour|ora|ore|min(?:uti)?|m|')?\.?$`)
)

// NormalizeTime converts a textual time token to seconds.
//
// Supported forms: "MM:SS" (1:30 → 90), apostrophe notation "M'SS\""
// (1'12" → 72, exactly minutes*60+seconds), comma decimals ("6,70" → 6.7),
// and plain numbers. The result keeps at most one decimal place.
func NormalizeTime(s string) (float64, bool) {
	v, ok := ParseTimeExact(s)
	if !ok {
		return 0, false
	}
	return round1(v), true
}

// ParseTimeExact is NormalizeTime without the one-decimal rounding, for
// callers that must preserve hundredths (race times like 7.18).
func ParseTimeExact(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.TrimSpace(timeSuffixRE.ReplaceAllString(s, ""))

	if m := colonTimeRE.FindStringSubmatch(s); m != nil {
		mins, _ := strconv.Atoi(m[1])
		secs, ok := parseDecimal(m[2])
		if !ok {
			return 0, false
		}
		return float64(mins)*60 + secs, true
	}
	if m := apostropheTimeRE.FindStringSubmatch(s); m != nil {
		mins, _ := strconv.Atoi(m[1])
		secs, ok := parseDecimal(m[2])
		if !ok {
			return 0, false
		}
		return float64(mins)*60 + secs, true
	}
	return parseDecimal(s)
}

// NormalizeRecovery converts a recovery-duration token to whole seconds.
// A numeric prefix plus a unit word: "2'" → 120, "3min" → 180, "1h" → 3600.
// Bare numbers are already seconds. Colon notation is accepted too ("1:30").
func NormalizeRecovery(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, ":") {
		if v, ok := NormalizeTime(s); ok {
			return int(v), true
		}
		return 0, false
	}
	// apostrophe with seconds part, e.g. 2'30
	if m := apostropheTimeRE.FindStringSubmatch(s); m != nil {
		if v, ok := NormalizeTime(s); ok {
			return int(v), true
		}
	}
	if m := recoveryRE.FindStringSubmatch(s); m != nil {
		v, ok := parseDecimal(m[1])
		if !ok {
			return 0, false
		}
		switch strings.ToLower(m[2]) {
		case "h", "hour", "ora", "ore":
			v *= 3600
		case "min", "minuti", "m", "'":
			v *= 60
		}
		return int(v), true
	}
	return 0, false
}

// NormalizeDistance converts a distance token to meters.
// "100m" → 100, "5km" → 5000, bare numbers pass through.
func NormalizeDistance(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	m := distanceRE.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	v, ok := parseDecimal(m[1])
	if !ok {
		return 0, false
	}
	switch strings.ToLower(m[2]) {
	case "km", "k":
		v *= 1000
	}
	return v, true
}

// exerciseSynonyms maps bilingual (Italian/English) substrings to canonical
// exercise names. Order matters: longer, more specific keys come first.
var exerciseSynonyms = []struct {
	key       string
	canonical string
}{
	{"mezzo squat", "Half squat"},
	{"half squat", "Half squat"},
	{"squat bulgaro", "Bulgarian split squat"},
	{"bulgarian split squat", "Bulgarian split squat"},
	{"front squat", "Front squat"},
	{"squat", "Squat"},
	{"panca piana", "Bench press"},
	{"panca", "Bench press"},
	{"bench", "Bench press"},
	{"stacco rumeno", "Romanian deadlift"},
	{"romanian deadlift", "Romanian deadlift"},
	{"stacco", "Deadlift"},
	{"deadlift", "Deadlift"},
	{"girata", "Power clean"},
	{"clean", "Power clean"},
	{"slancio", "Jerk"},
	{"jerk", "Jerk"},
	{"strappo", "Snatch"},
	{"snatch", "Snatch"},
	{"military press", "Overhead press"},
	{"overhead press", "Overhead press"},
	{"lento avanti", "Overhead press"},
	{"trazioni", "Pull up"},
	{"pull up", "Pull up"},
	{"pull-up", "Pull up"},
	{"affondi", "Lunge"},
	{"lunge", "Lunge"},
	{"hip thrust", "Hip thrust"},
	{"rematore", "Barbell row"},
	{"barbell row", "Barbell row"},
	{"balzi", "Bounding"},
	{"skip", "Skip"},
	{"allungo", "Stride"},
	{"allunghi", "Stride"},
}

// NormalizeExercise maps a free-text exercise name to its canonical form via
// case-insensitive substring lookup. A name that is already canonical passes
// through unchanged, so the shorter keys ("squat") cannot rewrite the longer
// canonicals ("Half squat"). Unknown names are title-cased and kept: the
// normalizer never rejects a name.
func NormalizeExercise(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}
	for _, syn := range exerciseSynonyms {
		if trimmed == syn.canonical {
			return trimmed
		}
	}
	lower := strings.ToLower(trimmed)
	for _, syn := range exerciseSynonyms {
		if strings.Contains(lower, syn.key) {
			return syn.canonical
		}
	}
	return titleCase(trimmed)
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func parseDecimal(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
