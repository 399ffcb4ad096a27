package facts

import "regexp"

// Each rule is a named pattern with an explicit capture contract so its
// precedence and exclusion condition can be tested on its own.

// racePerfRE captures a distance-plus-time performance:
//
//	group 1: distance in meters ("60", "100", "1000")
//	group 2: time token ("7.18", "10.5sec", "1'12\"", "3:30.5")
// The gap tolerates short connective words ("100m in 10.5").
var racePerfRE = regexp.MustCompile(`(?i)\b(\d{2,4})\s*(?:m|mt|metri)\b[^0-9\n]{0,12}?((?:\d{1,3}[:'])?\d{1,2}(?:[.,]\d+)?\s*(?:sec\b|s\b|"|”)?)`)

// strengthPerfRE captures a known-exercise-plus-weight performance:
//
//	group 1: exercise keyword
//	group 2: weight in kg
var strengthPerfRE = regexp.MustCompile(`(?i)\b(back\s*squat|front\s*squat|squat|panca(?:\s+piana)?|bench(?:\s*press)?|stacco(?:\s+da\s+terra)?|deadlift|power\s*clean|girata|clean|slancio|jerk|strappo|snatch|lento\s+avanti|military\s*press|overhead\s*press|press|trazioni|pull[\s-]?ups?)\b[^\n]{0,30}?(\d{1,3}(?:[.,]\d+)?)\s*kg\b`)

// explicitPBRE marks a sentence as carrying an explicit record claim.
var explicitPBRE = regexp.MustCompile(`(?i)\b(pb|personal\s+best|nuovo\s+record|record\s+personale|miglior\s+tempo|massimale|nuovo\s+massimale)\b`)

// raceContextRE marks a sentence as race-flavored, enabling implicit race PBs.
var raceContextRE = regexp.MustCompile(`(?i)\b(gara|gare|pista|competizione|meeting|campionat\w+)\b`)

// gymContextRE marks a sentence as gym-flavored, enabling implicit strength PBs.
var gymContextRE = regexp.MustCompile(`(?i)\b(palestra|peso\s+massimale|sala\s+pesi)\b`)

// repetitionMarkerRE, searched in the window right after a performance
// match, downgrades it from a single timed result to a training set ("x6",
// "3x8", "serie"). The window size is a tunable on the Extractor.
var repetitionMarkerRE = regexp.MustCompile(`(?i)(?:\d\s*x\s*\d|\bx\s*\d|\d+\s*x\b|\bserie\b|\brip\b|\bripetut\w*|\breps?\b|\bset\b)`)

// injuryKeywordRE captures the injury trigger word; the body part is looked
// up in the text that follows it.
var injuryKeywordRE = regexp.MustCompile(`(?i)\b(infortunio|infortunat[oa]|dolore|dolorino|fastidio|strappo\s+muscolare|contrattura|stiramento|tendinite|infiammazione|distorsione)\b`)

// strengthCategories maps a matched exercise keyword (lowercased, spaces
// collapsed) to its canonical lift category.
var strengthCategories = []struct {
	keyword  string
	category string
}{
	{"back squat", "squat"},
	{"front squat", "squat"},
	{"squat", "squat"},
	{"panca piana", "bench"},
	{"panca", "bench"},
	{"bench press", "bench"},
	{"bench", "bench"},
	{"stacco da terra", "deadlift"},
	{"stacco", "deadlift"},
	{"deadlift", "deadlift"},
	{"power clean", "clean"},
	{"girata", "clean"},
	{"clean", "clean"},
	{"slancio", "jerk"},
	{"jerk", "jerk"},
	{"strappo", "other"}, // snatch has no category slot of its own
	{"snatch", "other"},
	{"lento avanti", "press"},
	{"military press", "press"},
	{"overhead press", "press"},
	{"press", "press"},
	{"trazioni", "pull"},
	{"pull up", "pull"},
	{"pull ups", "pull"},
	{"pull-up", "pull"},
	{"pullup", "pull"},
}

// bodyParts are the anatomical terms recognized after an injury keyword.
// Two-word parts must precede their one-word prefixes.
var bodyParts = []string{
	"bicipite femorale",
	"tendine d'achille",
	"ginocchio",
	"caviglia",
	"polpaccio",
	"coscia",
	"femorale",
	"quadricipite",
	"adduttore",
	"flessore",
	"schiena",
	"lombare",
	"spalla",
	"gomito",
	"polso",
	"anca",
	"tibia",
	"piede",
	"tallone",
	"achille",
	"gluteo",
	"collo",
	"inguine",
	"soleo",
	"hamstring",
	"knee",
	"ankle",
	"back",
	"shoulder",
	"calf",
}

// positionalModifiers are stripped from the phrase between an injury keyword
// and the body part ("dolore dietro al ginocchio" → ginocchio).
var positionalModifiers = map[string]bool{
	"dietro": true, "davanti": true, "sopra": true, "sotto": true,
	"interno": true, "esterno": true, "laterale": true, "mediale": true,
	"al": true, "alla": true, "allo": true, "ai": true, "agli": true, "alle": true,
	"del": true, "della": true, "dello": true, "dei": true, "delle": true,
	"di": true, "a": true, "il": true, "la": true, "lo": true, "un": true, "una": true,
	"sinistro": true, "sinistra": true, "destro": true, "destra": true,
	"sx": true, "dx": true, "zona": true, "parte": true, "lato": true,
	"muscolo": true, "muscolare": true, "leggero": true, "leggera": true,
	"lieve": true, "forte": true, "acuto": true, "acuta": true,
}

// severeKeywords / minorKeywords drive severity inference inside the window
// around an injury match. Anything else defaults to moderate.
var severeKeywords = []string{
	"grave", "forte", "acuto", "acuta", "intenso", "intensa", "lancinante",
	"strappo", "rottura", "impossibile", "fermato", "fermata", "stop",
	"severe", "sharp",
}

var minorKeywords = []string{
	"leggero", "leggera", "lieve", "leggermente", "fastidio", "piccolo",
	"piccola", "un po'", "minimo", "minima", "mild", "slight",
}
