// Package harness is the regression surface for the heuristic facts
// extractor: literal text samples with expected detection counts, run
// against the extractor in isolation, reported as pass/fail per sample plus
// an aggregate success rate.
package harness

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pistalab/trainlog/internal/facts"
)

// Sample is one harness case.
type Sample struct {
	Name         string `yaml:"name"`
	Text         string `yaml:"text"`
	WantPBs      int    `yaml:"want_personal_bests"`
	WantInjuries int    `yaml:"want_injuries"`
}

// SampleResult is the outcome of one sample.
type SampleResult struct {
	Sample      Sample
	GotPBs      int
	GotInjuries int
	Pass        bool
}

// Summary aggregates a harness run.
type Summary struct {
	Results []SampleResult
	Passed  int
	Total   int
}

// SuccessRate is Passed/Total in percent; 100 for an empty run.
func (s Summary) SuccessRate() float64 {
	if s.Total == 0 {
		return 100
	}
	return float64(s.Passed) / float64(s.Total) * 100
}

// BuiltinSamples returns the canonical detection scenarios. They double as
// living documentation of what the extractor is expected to catch.
func BuiltinSamples() []Sample {
	return []Sample{
		{Name: "explicit race pb", Text: "Pista: 100m 10.5sec PB", WantPBs: 1},
		{Name: "implicit race pb", Text: "gara 60m 7.18", WantPBs: 1},
		{Name: "strength pbs", Text: "Palestra: Squat 100kg PB, Bench 75kg massimale, Deadlift 120kg nuovo massimale", WantPBs: 3},
		{Name: "injury with modifier", Text: "dolore dietro al ginocchio", WantInjuries: 1},
		{Name: "severe injury", Text: "Infortunio caviglia grave durante riscaldamento", WantInjuries: 1},
		{Name: "pb and injury combined", Text: "18/01/2026\ngara 60m 7.18 PB\ndolore dietro al ginocchio", WantPBs: 1, WantInjuries: 1},
		{Name: "training set is not a pb", Text: "pista 6x60m 7.5 rec 3'", WantPBs: 0},
		{Name: "explicit dedups implicit", Text: "gara 100m 10.55\nche gara, 100m in 10.5 nuovo record", WantPBs: 1},
	}
}

// LoadSamples reads samples from a YAML file: a top-level list of Sample
// entries.
func LoadSamples(path string) ([]Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading samples: %w", err)
	}
	var samples []Sample
	if err := yaml.Unmarshal(data, &samples); err != nil {
		return nil, fmt.Errorf("parsing samples: %w", err)
	}
	for i, s := range samples {
		if strings.TrimSpace(s.Text) == "" {
			return nil, fmt.Errorf("sample %d (%q): empty text", i, s.Name)
		}
	}
	return samples, nil
}

// Run executes every sample against the extractor.
func Run(e *facts.Extractor, samples []Sample) Summary {
	summary := Summary{Total: len(samples)}
	for _, s := range samples {
		got := e.Extract(s.Text)
		r := SampleResult{
			Sample:      s,
			GotPBs:      len(got.PersonalBests),
			GotInjuries: len(got.Injuries),
		}
		r.Pass = r.GotPBs == s.WantPBs && r.GotInjuries == s.WantInjuries
		if r.Pass {
			summary.Passed++
		}
		summary.Results = append(summary.Results, r)
	}
	return summary
}

// Format renders a human-readable report.
func (s Summary) Format() string {
	var b strings.Builder
	for _, r := range s.Results {
		status := "PASS"
		if !r.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "%s  %-28s  pbs %d/%d  injuries %d/%d\n",
			status, r.Sample.Name, r.GotPBs, r.Sample.WantPBs, r.GotInjuries, r.Sample.WantInjuries)
	}
	fmt.Fprintf(&b, "\n%d/%d passed (%.0f%%)\n", s.Passed, s.Total, s.SuccessRate())
	return b.String()
}
