// Package facts is a heuristic second pass over the original raw text. It
// spots personal-best and injury mentions with layered pattern rules, fully
// independent of the oracle-based extraction: the oracle may miss or garble a
// record claim, this pass will not.
package facts

import (
	"strconv"
	"strings"

	"github.com/pistalab/trainlog/internal/units"
)

// PersonalBest is a detected record-setting performance.
type PersonalBest struct {
	Kind      string  `json:"kind"`                 // "race" or "strength"
	DistanceM float64 `json:"distance_m,omitempty"` // race only
	Exercise  string  `json:"exercise,omitempty"`   // strength only
	Category  string  `json:"category,omitempty"`   // strength only
	TimeS     float64 `json:"time_s,omitempty"`     // race only
	WeightKg  float64 `json:"weight_kg,omitempty"`  // strength only
	Implicit  bool    `json:"implicit,omitempty"`
}

// Injury is a detected injury mention.
type Injury struct {
	Type     string `json:"type"`
	BodyPart string `json:"body_part,omitempty"`
	Severity string `json:"severity"` // minor, moderate, severe
}

// Facts aggregates one extraction pass.
type Facts struct {
	PersonalBests []PersonalBest `json:"personal_bests"`
	Injuries      []Injury       `json:"injuries"`
}

// Duplicate tolerances: two candidates with the same key whose values differ
// by less than these are the same performance mentioned twice.
const (
	timeToleranceS    = 0.1
	weightToleranceKg = 0.5
)

// DefaultLookahead is how many characters after a performance match are
// scanned for a repetition marker before an implicit PB is accepted. The
// right boundary is an open tuning question, so it is a parameter.
const DefaultLookahead = 20

// Extractor runs the heuristic pass. The zero value is not usable; call
// NewExtractor.
type Extractor struct {
	lookahead int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLookahead overrides the repetition-marker lookahead distance.
func WithLookahead(chars int) Option {
	return func(e *Extractor) {
		if chars > 0 {
			e.lookahead = chars
		}
	}
}

// NewExtractor creates an Extractor with default tuning.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{lookahead: DefaultLookahead}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract scans raw text for personal bests and injuries. It never fails:
// unparseable fragments simply yield no candidates.
func Extract(text string) Facts {
	return NewExtractor().Extract(text)
}

// Extract runs the full pass: per-sentence PB detection with explicit and
// implicit rules, injury detection, then deduplication.
func (e *Extractor) Extract(text string) Facts {
	var out Facts
	for _, s := range sentences(text) {
		if strings.TrimSpace(s.text) == "" {
			continue
		}
		out.PersonalBests = append(out.PersonalBests, e.racePBs(s.text)...)
		out.PersonalBests = append(out.PersonalBests, e.strengthPBs(s.text)...)
		out.Injuries = append(out.Injuries, injuries(text, s)...)
	}
	out.PersonalBests = dedupPBs(out.PersonalBests)
	out.Injuries = dedupInjuries(out.Injuries)
	return out
}

// sentence is a split segment plus its byte offset in the full text, so
// position-based rules can look across sentence boundaries.
type sentence struct {
	text  string
	start int
}

// sentences splits text on newlines and sentence punctuation. A period
// between two digits is a decimal point ("100m 10.5sec"), not a boundary.
func sentences(text string) []sentence {
	var out []sentence
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n', ';', '!', '?':
			out = append(out, sentence{text[start:i], start})
			start = i + 1
		case '.':
			prevDigit := i > 0 && text[i-1] >= '0' && text[i-1] <= '9'
			nextDigit := i+1 < len(text) && text[i+1] >= '0' && text[i+1] <= '9'
			if !(prevDigit && nextDigit) {
				out = append(out, sentence{text[start:i], start})
				start = i + 1
			}
		}
	}
	out = append(out, sentence{text[start:], start})
	return out
}

// racePBs applies the race rules to one sentence. An explicit record keyword
// anywhere in the sentence makes every distance+time pair in it an explicit
// PB; otherwise a race-context keyword makes them implicit PBs, unless a
// repetition marker follows the match.
func (e *Extractor) racePBs(sentence string) []PersonalBest {
	explicit := explicitPBRE.MatchString(sentence)
	if !explicit && !raceContextRE.MatchString(sentence) {
		return nil
	}

	var pbs []PersonalBest
	for _, idx := range racePerfRE.FindAllStringSubmatchIndex(sentence, -1) {
		distStr := sentence[idx[2]:idx[3]]
		timeStr := strings.TrimSpace(sentence[idx[4]:idx[5]])

		dist, err := strconv.ParseFloat(distStr, 64)
		if err != nil || dist <= 0 {
			continue
		}
		timeS, ok := units.ParseTimeExact(timeStr)
		if !ok || timeS <= 0 {
			continue
		}
		if !explicit && e.followedByRepetition(sentence, idx[1]) {
			continue
		}
		pbs = append(pbs, PersonalBest{
			Kind:      "race",
			DistanceM: dist,
			TimeS:     timeS,
			Implicit:  !explicit,
		})
	}
	return pbs
}

// strengthPBs applies the lift rules to one sentence, mirroring racePBs with
// gym context instead of race context.
func (e *Extractor) strengthPBs(sentence string) []PersonalBest {
	explicit := explicitPBRE.MatchString(sentence)
	if !explicit && !gymContextRE.MatchString(sentence) {
		return nil
	}

	var pbs []PersonalBest
	for _, idx := range strengthPerfRE.FindAllStringSubmatchIndex(sentence, -1) {
		keyword := sentence[idx[2]:idx[3]]
		weightStr := strings.ReplaceAll(sentence[idx[4]:idx[5]], ",", ".")

		weight, err := strconv.ParseFloat(weightStr, 64)
		if err != nil || weight <= 0 {
			continue
		}
		if !explicit && e.followedByRepetition(sentence, idx[1]) {
			continue
		}
		pbs = append(pbs, PersonalBest{
			Kind:     "strength",
			Exercise: units.NormalizeExercise(keyword),
			Category: strengthCategory(keyword),
			WeightKg: weight,
			Implicit: !explicit,
		})
	}
	return pbs
}

// followedByRepetition reports whether the text right after a performance
// match reads like a training set rather than a single result.
func (e *Extractor) followedByRepetition(sentence string, matchEnd int) bool {
	rest := sentence[matchEnd:]
	if len(rest) > e.lookahead {
		rest = rest[:e.lookahead]
	}
	return repetitionMarkerRE.MatchString(rest)
}

// injuries finds injury mentions in one sentence. The generic pain keywords
// (dolore, fastidio) need a recognizable body part after them to count; the
// self-sufficient ones (infortunio, strappo muscolare, ...) stand alone.
// Severity is judged on the full text, so cues in an adjacent sentence count.
func injuries(text string, s sentence) []Injury {
	var found []Injury
	for _, idx := range injuryKeywordRE.FindAllStringSubmatchIndex(s.text, -1) {
		keyword := normalizeKeyword(s.text[idx[2]:idx[3]])
		part := findBodyPart(s.text[idx[1]:])
		if part == "" && (keyword == "dolore" || keyword == "dolorino" || keyword == "fastidio") {
			continue
		}
		found = append(found, Injury{
			Type:     keyword,
			BodyPart: part,
			Severity: severity(text, s.start+idx[0]),
		})
	}
	return found
}

// findBodyPart strips positional modifiers from the phrase after an injury
// keyword and returns the first recognized body part, or "".
func findBodyPart(after string) string {
	words := tokenize(after)
	var kept []string
	for _, w := range words {
		if !positionalModifiers[w] {
			kept = append(kept, w)
		}
	}
	for i := range kept {
		if i+1 < len(kept) {
			bigram := kept[i] + " " + kept[i+1]
			for _, bp := range bodyParts {
				if bigram == bp {
					return bp
				}
			}
		}
		for _, bp := range bodyParts {
			if kept[i] == bp {
				return bp
			}
		}
	}
	return ""
}

// severity inspects a window of 50 characters before and 150 after the
// injury match for severity cues. The window runs over the full text, not
// the sentence. Moderate when neither set matches.
func severity(text string, matchStart int) string {
	start := matchStart - 50
	if start < 0 {
		start = 0
	}
	end := matchStart + 150
	if end > len(text) {
		end = len(text)
	}
	window := strings.ToLower(text[start:end])

	for _, kw := range severeKeywords {
		if strings.Contains(window, kw) {
			return "severe"
		}
	}
	for _, kw := range minorKeywords {
		if strings.Contains(window, kw) {
			return "minor"
		}
	}
	return "moderate"
}

// strengthCategory maps a matched exercise keyword to its lift category.
func strengthCategory(keyword string) string {
	k := normalizeKeyword(keyword)
	for _, sc := range strengthCategories {
		if k == sc.keyword {
			return sc.category
		}
	}
	return "other"
}

func normalizeKeyword(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", " ")
	return strings.Join(strings.Fields(s), " ")
}

func tokenize(s string) []string {
	s = strings.ToLower(s)
	return strings.FieldsFunc(s, func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z':
			return false
		case r == '\'' || r == 'à' || r == 'è' || r == 'é' || r == 'ì' || r == 'ò' || r == 'ù':
			return false
		default:
			return true
		}
	})
}

// dedupPBs collapses candidates with the same key whose values fall within
// tolerance. An explicit mention absorbs an implicit duplicate.
func dedupPBs(pbs []PersonalBest) []PersonalBest {
	var out []PersonalBest
	for _, pb := range pbs {
		merged := false
		for i := range out {
			if !samePB(out[i], pb) {
				continue
			}
			if out[i].Implicit && !pb.Implicit {
				out[i] = pb
			}
			merged = true
			break
		}
		if !merged {
			out = append(out, pb)
		}
	}
	return out
}

func samePB(a, b PersonalBest) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case "race":
		return a.DistanceM == b.DistanceM && abs(a.TimeS-b.TimeS) < timeToleranceS
	case "strength":
		return a.Category == b.Category && abs(a.WeightKg-b.WeightKg) < weightToleranceKg
	}
	return false
}

func dedupInjuries(injuries []Injury) []Injury {
	var out []Injury
	seen := make(map[string]bool)
	for _, inj := range injuries {
		key := inj.Type + "|" + inj.BodyPart
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, inj)
	}
	return out
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
