package parser

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pistalab/trainlog/internal/llm"
	"github.com/pistalab/trainlog/internal/models"
	"github.com/pistalab/trainlog/internal/validate"
)

// fakeProvider replays canned responses and records the prompts it saw.
type fakeProvider struct {
	responses []string
	errAt     int // 1-based call index that fails, 0 = never
	calls     int
	prompts   []string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(_ context.Context, prompt string, _ llm.CompletionOpts) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.errAt > 0 && f.calls == f.errAt {
		return "", &llm.OracleError{Kind: llm.KindQuota, Provider: "fake", Err: errors.New("quota")}
	}
	idx := f.calls - 1
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return f.responses[idx], nil
}

var ref = time.Date(2026, time.January, 14, 10, 0, 0, 0, time.UTC) // a Wednesday

func TestParseEmptyInput(t *testing.T) {
	p := New(&fakeProvider{responses: []string{"{}"}})
	if _, err := p.Parse(context.Background(), "   \n  ", ref); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("err = %v, want ErrEmptyInput", err)
	}
}

func TestParseSingleDay(t *testing.T) {
	fake := &fakeProvider{responses: []string{
		`{"session":{"title":"Pista","type":"pista"},"groups":[{"name":"Sprint","sets":[{"exercise_name":"Sprint 60m","category":"sprint","sets":3,"reps":1,"distance_m":60}]}]}`,
	}}
	p := New(fake)

	got, err := p.Parse(context.Background(), "3x60m rec 3'", ref)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(got.Sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(got.Sessions))
	}
	if got.Sessions[0].Session.Date != "2026-01-14" {
		t.Errorf("date = %q, want reference date", got.Sessions[0].Session.Date)
	}
	if len(got.Reports) != 0 {
		t.Errorf("reports = %+v, want none", got.Reports)
	}
}

func TestParseMultiDaySequentialDates(t *testing.T) {
	fake := &fakeProvider{responses: []string{
		`{"session":{"title":"Pista","type":"pista"},"groups":[{"name":"Sprint","sets":[{"exercise_name":"Sprint","category":"sprint"}]}]}`,
		`{"session":{"title":"Palestra","type":"palestra"},"groups":[{"name":"Pesi","sets":[{"exercise_name":"Squat","category":"lift"}]}]}`,
	}}
	p := New(fake)

	text := "lunedì: 3x60m\nmartedì: squat 4x5"
	got, err := p.Parse(context.Background(), text, ref)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if fake.calls != 2 {
		t.Fatalf("oracle calls = %d, want one per chunk", fake.calls)
	}
	if len(got.Sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(got.Sessions))
	}
	// Monday and Tuesday of the reference week, in input order.
	if got.Sessions[0].Session.Date != "2026-01-12" || got.Sessions[1].Session.Date != "2026-01-13" {
		t.Errorf("dates = %q, %q", got.Sessions[0].Session.Date, got.Sessions[1].Session.Date)
	}
	if !strings.Contains(fake.prompts[0], "3x60m") || !strings.Contains(fake.prompts[1], "squat 4x5") {
		t.Error("each prompt should carry only its own day's text")
	}
}

func TestParseOracleFailureAbortsBatch(t *testing.T) {
	fake := &fakeProvider{
		responses: []string{`{"session":{"title":"Pista","type":"pista"},"groups":[]}`},
		errAt:     2,
	}
	p := New(fake)

	_, err := p.Parse(context.Background(), "lunedì: corsa\nmartedì: pesi\nmercoledì: riposo", ref)
	if err == nil {
		t.Fatal("expected the batch to abort on oracle failure")
	}
	var oe *llm.OracleError
	if !errors.As(err, &oe) {
		t.Fatalf("err = %v, want wrapped OracleError", err)
	}
	if fake.calls != 2 {
		t.Errorf("calls = %d, remaining chunks should not run", fake.calls)
	}
}

func TestParseMalformedResponseRecovered(t *testing.T) {
	fake := &fakeProvider{responses: []string{"Sorry, I cannot help with that."}}
	p := New(fake)

	got, err := p.Parse(context.Background(), "corsa lenta 40 minuti", ref)
	if err != nil {
		t.Fatalf("malformed oracle output is recovered, not fatal: %v", err)
	}
	if len(got.Sessions) != 1 {
		t.Fatalf("sessions = %d, want placeholder session", len(got.Sessions))
	}
	s := got.Sessions[0]
	if s.Session.Type != "altro" {
		t.Errorf("type = %q, want fallback altro", s.Session.Type)
	}
	if len(s.Groups) == 0 || len(s.Groups[0].Sets) == 0 {
		t.Error("placeholder session must keep the group/set shape")
	}
}

func TestParseValidationReported(t *testing.T) {
	fake := &fakeProvider{responses: []string{
		`{"session":{"title":"X","type":"pista","rpe":"14"},"groups":[{"name":"G","sets":[{"exercise_name":"E","category":"sprint"}]}]}`,
	}}
	p := New(fake)

	got, err := p.Parse(context.Background(), "testo", ref)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(got.Sessions) != 1 {
		t.Fatal("flagged sessions are kept, never discarded")
	}
	if len(got.Reports) != 1 || got.Reports[0].Index != 0 {
		t.Fatalf("reports = %+v, want one for session 0", got.Reports)
	}
}

func TestResultCleanSessions(t *testing.T) {
	r := Result{
		Sessions: []models.SessionDraft{
			{Session: models.Session{Date: "2026-01-12", Title: "Pista"}},
			{Session: models.Session{Date: "2026-01-13", Title: "Palestra"}},
		},
		Reports: []validate.Report{{Index: 1, Errors: []string{`rpe "14" is not an integer in [0,10]`}}},
	}

	clean := r.CleanSessions()
	if len(clean) != 1 {
		t.Fatalf("clean sessions = %d, want 1", len(clean))
	}
	if clean[0].Session.Date != "2026-01-12" {
		t.Errorf("kept session = %+v, want the one without errors", clean[0].Session)
	}

	r.Reports = nil
	if got := r.CleanSessions(); len(got) != 2 {
		t.Errorf("without reports all sessions are clean, got %d", len(got))
	}
}

func TestParseFactsFromOriginalText(t *testing.T) {
	// The oracle response mentions nothing about a PB; the facts pass works
	// on the raw input instead.
	fake := &fakeProvider{responses: []string{
		`{"session":{"title":"Gara","type":"gara"},"groups":[{"name":"Gara","sets":[{"exercise_name":"60m","category":"sprint"}]}]}`,
	}}
	p := New(fake)

	got, err := p.Parse(context.Background(), "gara 60m 7.18 PB\ndolore dietro al ginocchio", ref)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(got.PersonalBests) != 1 || got.PersonalBests[0].TimeS != 7.18 {
		t.Errorf("personal bests = %+v", got.PersonalBests)
	}
	if len(got.Injuries) != 1 || got.Injuries[0].BodyPart != "ginocchio" {
		t.Errorf("injuries = %+v", got.Injuries)
	}
}
