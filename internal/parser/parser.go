// Package parser is the ingestion orchestrator. It drives one raw text
// through the full pipeline: day chunking and date resolution, request
// building, the oracle call, response recovery, validation with auto-repair,
// and the independent heuristic facts pass over the original text.
package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pistalab/trainlog/internal/chunker"
	"github.com/pistalab/trainlog/internal/facts"
	"github.com/pistalab/trainlog/internal/llm"
	"github.com/pistalab/trainlog/internal/models"
	"github.com/pistalab/trainlog/internal/prompt"
	"github.com/pistalab/trainlog/internal/repair"
	"github.com/pistalab/trainlog/internal/validate"
)

// ErrEmptyInput is returned when the raw text contains nothing to parse.
var ErrEmptyInput = errors.New("empty input text")

// Result aggregates one full ingestion pass. Sessions and Reports are
// parallel in the sense that Report.Index points into Sessions; a session
// with no report is persistable as-is.
type Result struct {
	Sessions      []models.SessionDraft `json:"sessions"`
	Reports       []validate.Report     `json:"reports,omitempty"`
	PersonalBests []facts.PersonalBest  `json:"personal_bests,omitempty"`
	Injuries      []facts.Injury        `json:"injuries,omitempty"`
}

// CleanSessions returns the sessions whose validation report is empty. Only
// these are persistable; a session with outstanding errors stays in Sessions
// for display but must never reach the store.
func (r *Result) CleanSessions() []models.SessionDraft {
	if len(r.Reports) == 0 {
		return r.Sessions
	}
	flagged := make(map[int]bool, len(r.Reports))
	for _, rep := range r.Reports {
		if len(rep.Errors) > 0 {
			flagged[rep.Index] = true
		}
	}
	clean := make([]models.SessionDraft, 0, len(r.Sessions))
	for i, s := range r.Sessions {
		if !flagged[i] {
			clean = append(clean, s)
		}
	}
	return clean
}

// Parser runs ingestion requests. Safe for concurrent use: each Parse call
// carries all of its own state.
type Parser struct {
	provider  llm.Provider
	extractor *facts.Extractor
	logger    *zap.Logger
	maxTokens int
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger attaches a logger; the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(p *Parser) { p.logger = l }
}

// WithFactsExtractor overrides the heuristic extractor, e.g. with a tuned
// repetition-marker lookahead.
func WithFactsExtractor(e *facts.Extractor) Option {
	return func(p *Parser) { p.extractor = e }
}

// WithMaxTokens caps the oracle completion length.
func WithMaxTokens(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.maxTokens = n
		}
	}
}

// New creates a Parser on top of an oracle provider.
func New(provider llm.Provider, opts ...Option) *Parser {
	p := &Parser{
		provider:  provider,
		extractor: facts.NewExtractor(),
		logger:    zap.NewNop(),
		maxTokens: 4096,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse ingests one raw training text. Day chunks are processed strictly in
// order, one oracle round trip each; an oracle failure aborts the whole
// batch, because there is no text to recover from an absent response. Every
// other stage is non-aborting: recovery and validation always yield a
// structurally valid draft per chunk.
func (p *Parser) Parse(ctx context.Context, rawText string, ref time.Time) (*Result, error) {
	if strings.TrimSpace(rawText) == "" {
		return nil, ErrEmptyInput
	}

	res := chunker.Resolve(rawText, ref)
	p.logger.Debug("resolved day chunks",
		zap.Int("chunks", len(res.Chunks)),
		zap.Bool("week_anchor", res.WeekAnchor != nil))

	result := &Result{}
	for i, chunk := range res.Chunks {
		req := prompt.Build(chunk)
		raw, err := p.provider.Complete(ctx, req.Prompt(), llm.CompletionOpts{
			Temperature: 0,
			Format:      "json",
			MaxTokens:   p.maxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("chunk %d (%s): %w", i, chunk.Date.Format("2006-01-02"), err)
		}

		draft := repair.Recover(raw, chunk.Date, req.TitleHint, chunk.Body)
		if errs := validate.Validate(draft); len(errs) > 0 {
			result.Reports = append(result.Reports, validate.Report{Index: i, Errors: errs})
			p.logger.Warn("session validation errors",
				zap.Int("index", i),
				zap.String("date", draft.Session.Date),
				zap.Strings("errors", errs))
		}
		result.Sessions = append(result.Sessions, *draft)
	}

	f := p.extractor.Extract(rawText)
	result.PersonalBests = f.PersonalBests
	result.Injuries = f.Injuries

	p.logger.Info("parse complete",
		zap.Int("sessions", len(result.Sessions)),
		zap.Int("personal_bests", len(result.PersonalBests)),
		zap.Int("injuries", len(result.Injuries)))
	return result, nil
}
