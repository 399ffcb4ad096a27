// Package repair turns the extraction oracle's raw textual answer into a
// structurally complete SessionDraft, no matter how mangled the answer is.
//
// The oracle is asked for a single JSON object but may wrap it in markdown
// fences, truncate it, surround it with prose, or emit malformed arrays. The
// recovery chain tries increasingly aggressive strategies and, when all of
// them fail, falls back to a placeholder built from the original chunk text.
// Recovery never fails: the result always has at least one group with at
// least one set.
package repair

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pistalab/trainlog/internal/models"
	"github.com/pistalab/trainlog/internal/units"
)

// wire types mirror the draft shapes with fully tolerant field decoding.
// The oracle mixes numbers and strings freely; models.Flex absorbs both and
// the unit normalizer converts them afterwards.

type setWire struct {
	ExerciseName models.Flex `json:"exercise_name"`
	Category     models.Flex `json:"category"`
	Sets         models.Flex `json:"sets"`
	Reps         models.Flex `json:"reps"`
	WeightKg     models.Flex `json:"weight_kg"`
	DistanceM    models.Flex `json:"distance_m"`
	TimeS        models.Flex `json:"time_s"`
	RecoveryS    models.Flex `json:"recovery_s"`
	Notes        models.Flex `json:"notes"`
	Details      models.Flex `json:"details"`
}

type groupWire struct {
	Name       models.Flex `json:"name"`
	OrderIndex models.Flex `json:"order_index"`
	Notes      models.Flex `json:"notes"`
	Sets       []setWire   `json:"sets"`
}

type sessionWire struct {
	Date     models.Flex `json:"date"`
	Title    models.Flex `json:"title"`
	Type     models.Flex `json:"type"`
	Location models.Flex `json:"location"`
	RPE      models.Flex `json:"rpe"`
	Feeling  models.Flex `json:"feeling"`
	Notes    models.Flex `json:"notes"`
}

type docWire struct {
	Session sessionWire `json:"session"`
	Groups  []groupWire `json:"groups"`
}

// Recover coerces the oracle's raw answer into a SessionDraft for the given
// date. chunkText is the original day text, used to backfill a missing title
// or notes. The returned draft always has at least one group and one set,
// and its session date is always the resolved target date: whatever date the
// oracle wrote is discarded.
func Recover(raw string, date time.Time, titleHint, chunkText string) *models.SessionDraft {
	doc, ok := recoverDoc(raw)
	if !ok {
		// Absolute fallback: nothing parseable at all. The title and notes
		// get backfilled from the chunk text below.
		doc = &docWire{Session: sessionWire{Type: "altro"}}
	}

	draft := convert(doc)
	finalize(draft, date, titleHint, chunkText)
	return draft
}

// recoverDoc runs the repair chain over the raw response.
func recoverDoc(raw string) (*docWire, bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, false
	}

	// Stage 1: strip a single markdown code fence.
	text = stripFence(text)

	// Stage 2: parse the first '{' ... last '}' substring.
	if doc, ok := tryParse(braceSlice(text)); ok {
		return doc, true
	}

	// Stage 3: targeted string repairs, first on the brace slice, then on
	// the tail from the first brace (a truncated document has closing
	// braces only for its early objects, so the last '}' cuts it short).
	if doc, ok := tryParse(repairJSON(braceSlice(text))); ok {
		return doc, true
	}
	if doc, ok := tryParse(repairJSON(tailSlice(text))); ok {
		return doc, true
	}

	// Stage 4: piecewise reconstruction of "session" and "groups".
	if doc, ok := piecewise(text); ok {
		return doc, true
	}

	return nil, false
}

func tryParse(s string) (*docWire, bool) {
	if strings.TrimSpace(s) == "" {
		return nil, false
	}
	var doc docWire
	if err := json.Unmarshal([]byte(s), &doc); err != nil {
		return nil, false
	}
	return &doc, true
}

var fenceRE = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

func stripFence(s string) string {
	if m := fenceRE.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	// A truncated response may open a fence and never close it.
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		return strings.TrimSpace(s)
	}
	return s
}

func braceSlice(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	end := strings.LastIndex(s, "}")
	if end < start {
		return s[start:]
	}
	return s[start : end+1]
}

func tailSlice(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	return s[start:]
}

var (
	trailingCommaRE = regexp.MustCompile(`,\s*([}\]])`)
	// ["name": ... means the model dropped the opening '{' of an array element.
	bareArrayKeyRE = regexp.MustCompile(`\[\s*"[a-z_]+"\s*:`)
)

// repairJSON applies the targeted fixes for known oracle failure modes:
// trailing commas, unbalanced closers, and array elements missing their
// opening brace.
func repairJSON(s string) string {
	if s == "" {
		return s
	}

	s = trailingCommaRE.ReplaceAllString(s, "$1")
	s = fixBareArrayObjects(s)
	s = closeDelimiters(s)
	s = trailingCommaRE.ReplaceAllString(s, "$1")
	return s
}

// fixBareArrayObjects rewrites arrays whose first element starts with a bare
// quoted key, a known failure mode where the model emits ["name": ...]
// instead of [{"name": ...}], by wrapping the array contents in an object.
func fixBareArrayObjects(s string) string {
	for {
		loc := bareArrayKeyRE.FindStringIndex(s)
		if loc == nil {
			return s
		}
		open := loc[0]
		end := matchBracket(s, open)
		if end < 0 {
			// Truncated array: open the object and let closeDelimiters
			// append the missing closers.
			s = s[:open+1] + "{" + s[open+1:]
		} else {
			s = s[:open+1] + "{" + s[open+1:end] + "}" + s[end:]
		}
	}
}

// matchBracket returns the index of the ']' matching the '[' at start,
// skipping string literals, or -1 when the text ends first.
func matchBracket(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// closeDelimiters appends the closers for any array/object left open,
// trimming a dangling partial token first.
func closeDelimiters(s string) string {
	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case '}':
			if len(stack) > 0 && stack[len(stack)-1] == '{' {
				stack = stack[:len(stack)-1]
			}
		case ']':
			if len(stack) > 0 && stack[len(stack)-1] == '[' {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if inString {
		s += `"`
	}
	s = strings.TrimRight(s, " \t\n\r")
	s = strings.TrimSuffix(s, ",")
	s = strings.TrimSuffix(s, ":")

	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			s += "}"
		} else {
			s += "]"
		}
	}
	return s
}

// piecewise independently extracts the "session" object and the "groups"
// array, parses each on its own, and recombines. A groups array that cannot
// be recovered at all is replaced by a placeholder downstream.
func piecewise(text string) (*docWire, bool) {
	doc := &docWire{}
	found := false

	if obj, ok := extractDelimited(text, `"session"`, '{', '}'); ok {
		var sess sessionWire
		if err := json.Unmarshal([]byte(repairJSON(obj)), &sess); err == nil {
			doc.Session = sess
			found = true
		}
	}

	if arr, ok := extractDelimited(text, `"groups"`, '[', ']'); ok {
		var groups []groupWire
		if err := json.Unmarshal([]byte(repairJSON(arr)), &groups); err == nil {
			doc.Groups = groups
			found = true
		}
	}

	return doc, found
}

// extractDelimited finds `key` and returns the balanced open...closer span
// that follows it. When the text is truncated the span runs to end of text.
func extractDelimited(text, key string, open, closer byte) (string, bool) {
	idx := strings.Index(text, key)
	if idx < 0 {
		return "", false
	}
	start := strings.IndexByte(text[idx:], open)
	if start < 0 {
		return "", false
	}
	start += idx

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return text[start:], true
}

// convert lowers the tolerant wire form into the typed draft, applying the
// unit normalizer to every measurement.
func convert(doc *docWire) *models.SessionDraft {
	draft := &models.SessionDraft{
		Session: models.Session{
			Title:    doc.Session.Title.String(),
			Type:     strings.ToLower(doc.Session.Type.String()),
			Location: doc.Session.Location.String(),
			RPE:      doc.Session.RPE,
			Feeling:  doc.Session.Feeling.String(),
			Notes:    doc.Session.Notes.String(),
		},
	}

	for i, g := range doc.Groups {
		group := models.GroupDraft{
			Name:  g.Name.String(),
			Notes: g.Notes.String(),
		}
		if n, ok := g.OrderIndex.Int(); ok {
			group.OrderIndex = n
		} else {
			group.OrderIndex = i
		}
		for _, s := range g.Sets {
			group.Sets = append(group.Sets, convertSet(s))
		}
		draft.Groups = append(draft.Groups, group)
	}
	return draft
}

func convertSet(w setWire) models.SetDraft {
	set := models.SetDraft{
		ExerciseName: units.NormalizeExercise(w.ExerciseName.String()),
		Category:     strings.ToLower(w.Category.String()),
		Sets:         1,
		Reps:         1,
		Notes:        w.Notes.String(),
		Details:      w.Details.String(),
	}
	if n, ok := w.Sets.Int(); ok && n > 0 {
		set.Sets = n
	}
	if n, ok := w.Reps.Int(); ok && n > 0 {
		set.Reps = n
	}
	if v, ok := units.NormalizeTime(w.TimeS.String()); ok && v > 0 {
		set.TimeS = &v
	}
	if v, ok := units.NormalizeDistance(w.DistanceM.String()); ok && v > 0 {
		set.DistanceM = &v
	}
	if w.WeightKg.String() != "" {
		if v, ok := normalizeWeight(w.WeightKg.String()); ok && v > 0 {
			set.WeightKg = &v
		}
	}
	if n, ok := units.NormalizeRecovery(w.RecoveryS.String()); ok && n > 0 {
		set.RecoveryS = &n
	}
	return set
}

var weightRE = regexp.MustCompile(`(?i)^(\d+(?:[.,]\d+)?)\s*(?:kg)?\.?$`)

func normalizeWeight(s string) (float64, bool) {
	m := weightRE.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// finalize applies the post-recovery normalization that runs regardless of
// which repair stage succeeded.
func finalize(draft *models.SessionDraft, date time.Time, titleHint, chunkText string) {
	// The chunker's date is authoritative.
	draft.Session.Date = date.Format("2006-01-02")

	if draft.Session.Title == "" {
		draft.Session.Title = fallbackTitle(chunkText, titleHint)
	}
	if draft.Session.Notes == "" && chunkText != "" {
		draft.Session.Notes = summarize(chunkText)
	}
	if draft.Session.Type == "" {
		draft.Session.Type = "altro"
	}

	if len(draft.Groups) == 0 {
		draft.Groups = []models.GroupDraft{placeholderGroup(draft.Session.Title)}
	}
	for i := range draft.Groups {
		if len(draft.Groups[i].Sets) == 0 {
			draft.Groups[i].Sets = []models.SetDraft{placeholderSet(draft.Groups[i].Name)}
		}
	}
}

func fallbackTitle(chunkText, titleHint string) string {
	if s := summarize(chunkText); s != "" {
		return s
	}
	if titleHint != "" {
		return titleHint
	}
	return "Sessione"
}

// summarize returns the first sentence of the text, or its first 160
// characters when no sentence boundary exists.
func summarize(text string) string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	if text == "" {
		return ""
	}
	if idx := sentenceEnd(text); idx > 0 {
		return strings.TrimSpace(text[:idx])
	}
	runes := []rune(text)
	if len(runes) > 160 {
		return strings.TrimSpace(string(runes[:160]))
	}
	return text
}

// sentenceEnd finds the first sentence boundary, treating a period between
// two digits as part of a number ("60m 7.18 PB") rather than a boundary.
func sentenceEnd(text string) int {
	runes := []rune(text)
	byteIdx := 0
	for i, r := range runes {
		switch r {
		case ';', '!', '?':
			return byteIdx
		case '.':
			prevDigit := i > 0 && runes[i-1] >= '0' && runes[i-1] <= '9'
			nextDigit := i+1 < len(runes) && runes[i+1] >= '0' && runes[i+1] <= '9'
			if !(prevDigit && nextDigit) {
				return byteIdx
			}
		}
		byteIdx += len(string(r))
	}
	return -1
}

func placeholderGroup(name string) models.GroupDraft {
	if name == "" {
		name = "Allenamento"
	}
	return models.GroupDraft{
		Name:       name,
		OrderIndex: 0,
		Sets:       []models.SetDraft{placeholderSet(name)},
	}
}

func placeholderSet(groupName string) models.SetDraft {
	name := groupName
	if name == "" {
		name = "Allenamento"
	}
	return models.SetDraft{
		ExerciseName: name,
		Category:     "other",
		Sets:         1,
		Reps:         1,
		Notes:        "contenuto estratto dal testo libero",
	}
}
