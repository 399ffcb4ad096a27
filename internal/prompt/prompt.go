// Package prompt builds the instruction payload sent to the extraction
// oracle for one day chunk. This is pure text assembly: no network I/O and
// no hidden state, so a given chunk and date always produce the same
// request.
package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/pistalab/trainlog/internal/chunker"
)

// Request fully determines one oracle call.
type Request struct {
	Instructions string
	TargetDate   time.Time
	TitleHint    string
	RawText      string
}

// instructions is the fixed rule preamble: output shape, numeric conversion
// rules, enumerations, and a worked example. The oracle must return one JSON
// object and nothing else; the recovery engine tolerates it when it doesn't.
const instructions = `You are a training-log extraction system. The input is one day of an athlete's training diary, written in Italian or English free text. Convert it into exactly one JSON object with this shape:

{
  "session": {
    "date": "YYYY-MM-DD",
    "title": "short session title",
    "type": "one of: pista, palestra, gara, tecnica, resistenza, recupero, misto, altro",
    "location": "optional",
    "rpe": 0,
    "feeling": "optional",
    "notes": "optional"
  },
  "groups": [
    {
      "name": "block name (e.g. Riscaldamento, Sprint, Pesi)",
      "order_index": 0,
      "notes": "optional",
      "sets": [
        {
          "exercise_name": "exercise or drill name",
          "category": "one of: sprint, jump, lift, endurance, mobility, drill, other",
          "sets": 1,
          "reps": 1,
          "weight_kg": 0,
          "distance_m": 0,
          "time_s": 0,
          "recovery_s": 0,
          "notes": "optional",
          "details": "optional"
        }
      ]
    }
  ]
}

RULES:
1. Convert all times to seconds EXACTLY: "1'12\"" means 1 minute 12 seconds = 72, never an approximation. "1:30" = 90. Comma decimals become dot decimals: "6,70" = 6.7.
2. Convert all distances to meters ("5km" = 5000) and all weights to kilograms.
3. Recovery notations like "rec 2'" mean recovery_s = 120.
4. "rpe" is an integer 0-10; omit it when the text gives none.
5. Omit optional fields you cannot fill. Never invent measurements.
6. Every group must contain at least one set.
7. Return ONLY the JSON object, no markdown fences, no commentary.

EXAMPLE:
Input: "pista: riscaldamento 15', 3x60m rec 3' (7"2, 7"1, 7"0)"
Output: {"session":{"date":"2026-01-12","title":"Pista - sprint","type":"pista"},"groups":[{"name":"Riscaldamento","order_index":0,"sets":[{"exercise_name":"Riscaldamento","category":"drill","sets":1,"reps":1,"time_s":900}]},{"name":"Sprint","order_index":1,"sets":[{"exercise_name":"Sprint 60m","category":"sprint","sets":3,"reps":1,"distance_m":60,"recovery_s":180,"notes":"7.2 / 7.1 / 7.0"}]}]}`

// Build constructs the extraction request for one day chunk.
func Build(chunk chunker.DayChunk) Request {
	return Request{
		Instructions: instructions,
		TargetDate:   chunk.Date,
		TitleHint:    chunk.Heading,
		RawText:      chunk.Body,
	}
}

// Prompt renders the full instruction-and-content string for the oracle.
func (r Request) Prompt() string {
	var b strings.Builder
	b.WriteString(r.Instructions)
	b.WriteString("\n\n---\n")
	fmt.Fprintf(&b, "Session date: %s\n", r.TargetDate.Format("2006-01-02"))
	if r.TitleHint != "" {
		fmt.Fprintf(&b, "Day heading: %s\n", r.TitleHint)
	}
	b.WriteString("Training text:\n")
	b.WriteString(r.RawText)
	b.WriteString("\n---\n\nReturn the JSON object now.")
	return b.String()
}
