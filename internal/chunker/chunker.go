// Package chunker splits a free-form training log into per-day segments and
// resolves weekday or relative references to absolute calendar dates.
//
// The input may describe several days in one block of text ("Lunedì: sprints
// ... Martedì: weights ..."). Each weekday heading opens a new chunk that
// runs to the next heading or end of text. Weekday names resolve against the
// Monday of the anchor week, so a reference date anywhere inside week W
// always maps "lunedì" to the Monday of W.
package chunker

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DayChunk is a contiguous span of raw input attributed to one calendar day.
type DayChunk struct {
	Weekday  string    // matched weekday keyword, empty when none was found
	Heading  string    // short heading text, used downstream as a title hint
	Body     string    // the day's raw text
	Date     time.Time // resolved absolute date
	Explicit bool      // true when the date came from a literal DD/MM in the text
}

// Resolution is the output of Resolve.
type Resolution struct {
	WeekAnchor *time.Time // explicit "settimana del DD/MM" date, if present
	Chunks     []DayChunk
}

// weekdayIndex maps lowercase Italian weekday names (accented and plain)
// to their offset from Monday.
var weekdayIndex = map[string]int{
	"lunedì": 0, "lunedi": 0,
	"martedì": 1, "martedi": 1,
	"mercoledì": 2, "mercoledi": 2,
	"giovedì": 3, "giovedi": 3,
	"venerdì": 4, "venerdi": 4,
	"sabato":   5,
	"domenica": 6,
}

var (
	weekdayRE = regexp.MustCompile(`(?i)\b(luned[ìi]|marted[ìi]|mercoled[ìi]|gioved[ìi]|venerd[ìi]|sabato|domenica)\b`)

	// "settimana del 18/01", "settimana dal 18/01/2026", "settimana che inizia il 18/01"
	weekAnchorRE = regexp.MustCompile(`(?i)settimana\s+(?:del|dal|che\s+inizia(?:\s+il)?)\s+(\d{1,2}/\d{1,2}(?:/\d{2,4})?)`)

	// leading explicit date: 18/01, 18/01/26, 18/01/2026
	explicitDateRE = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?`)

	leadingSeparatorsRE = regexp.MustCompile(`^[\s:\-–—(),.]+`)
)

// Resolve splits rawText into day chunks anchored to ref's week (or to an
// explicit week anchor found in the text).
func Resolve(rawText string, ref time.Time) Resolution {
	res := Resolution{}
	text := rawText

	if m := weekAnchorRE.FindStringSubmatchIndex(text); m != nil {
		token := text[m[2]:m[3]]
		if d, ok := parseExplicitDate(token, ref); ok {
			res.WeekAnchor = &d
		}
		// Strip the anchor phrase so it is not mis-parsed as a day heading.
		text = strings.TrimSpace(text[:m[0]] + text[m[1]:])
	}

	anchor := ref
	if res.WeekAnchor != nil {
		anchor = *res.WeekAnchor
	}

	matches := weekdayRE.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		res.Chunks = append(res.Chunks, singleChunk(text, anchor))
		return res
	}

	for i, m := range matches {
		keyword := strings.ToLower(text[m[2]:m[3]])
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		body := leadingSeparatorsRE.ReplaceAllString(text[m[1]:end], "")

		chunk := DayChunk{
			Weekday: keyword,
			Heading: capitalize(keyword),
			Date:    DateForWeekday(keyword, anchor),
		}
		if d, rest, ok := stripLeadingDate(body, anchor); ok {
			chunk.Date = d
			chunk.Explicit = true
			body = rest
		}
		chunk.Body = strings.TrimSpace(body)
		res.Chunks = append(res.Chunks, chunk)
	}
	return res
}

func singleChunk(text string, anchor time.Time) DayChunk {
	body := strings.TrimSpace(text)
	chunk := DayChunk{Date: midnight(anchor)}
	if d, rest, ok := stripLeadingDate(body, anchor); ok {
		chunk.Date = d
		chunk.Explicit = true
		body = rest
	}
	chunk.Body = strings.TrimSpace(body)
	return chunk
}

// DateForWeekday resolves a weekday name to an absolute date inside the
// anchor's calendar week: the Monday of that week plus the weekday offset.
// The result never lands in a different week, even when the anchor itself
// falls mid-week.
func DateForWeekday(weekday string, anchor time.Time) time.Time {
	idx, ok := weekdayIndex[strings.ToLower(strings.TrimSpace(weekday))]
	if !ok {
		return midnight(anchor)
	}
	return MondayOf(anchor).AddDate(0, 0, idx)
}

// MondayOf returns the Monday of t's calendar week at midnight.
func MondayOf(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	return midnight(t).AddDate(0, 0, -offset)
}

func capitalize(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// stripLeadingDate extracts a DD/MM[/YYYY] date from the start of body.
// The matched date is removed from the returned text.
func stripLeadingDate(body string, anchor time.Time) (time.Time, string, bool) {
	m := explicitDateRE.FindStringSubmatch(body)
	if m == nil {
		return time.Time{}, body, false
	}
	d, ok := buildDate(m[1], m[2], m[3], anchor)
	if !ok {
		return time.Time{}, body, false
	}
	rest := leadingSeparatorsRE.ReplaceAllString(body[len(m[0]):], "")
	return d, rest, true
}

func parseExplicitDate(token string, anchor time.Time) (time.Time, bool) {
	m := explicitDateRE.FindStringSubmatch(strings.TrimSpace(token))
	if m == nil {
		return time.Time{}, false
	}
	return buildDate(m[1], m[2], m[3], anchor)
}

func buildDate(dayStr, monthStr, yearStr string, anchor time.Time) (time.Time, bool) {
	day, _ := strconv.Atoi(dayStr)
	month, _ := strconv.Atoi(monthStr)
	if day < 1 || day > 31 || month < 1 || month > 12 {
		return time.Time{}, false
	}
	year := anchor.Year()
	if yearStr != "" {
		y, _ := strconv.Atoi(yearStr)
		if y < 100 {
			y += 2000
		}
		year = y
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, anchor.Location()), true
}
