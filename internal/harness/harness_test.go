package harness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pistalab/trainlog/internal/facts"
)

func TestRunBuiltinSamplesAllPass(t *testing.T) {
	summary := Run(facts.NewExtractor(), BuiltinSamples())
	for _, r := range summary.Results {
		if !r.Pass {
			t.Errorf("%s: pbs %d/%d injuries %d/%d",
				r.Sample.Name, r.GotPBs, r.Sample.WantPBs, r.GotInjuries, r.Sample.WantInjuries)
		}
	}
	if summary.SuccessRate() != 100 {
		t.Errorf("success rate = %.0f%%, want 100%%", summary.SuccessRate())
	}
}

func TestRunReportsFailure(t *testing.T) {
	samples := []Sample{
		{Name: "wrong expectation", Text: "gara 60m 7.18", WantPBs: 5},
	}
	summary := Run(facts.NewExtractor(), samples)
	if summary.Passed != 0 || summary.Total != 1 {
		t.Errorf("passed %d/%d, want 0/1", summary.Passed, summary.Total)
	}
	if !strings.Contains(summary.Format(), "FAIL") {
		t.Error("formatted report should mark the failure")
	}
}

func TestLoadSamples(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "samples.yaml")
	content := `
- name: race pb
  text: "Pista: 100m 10.5sec PB"
  want_personal_bests: 1
- name: injury
  text: "dolore dietro al ginocchio"
  want_injuries: 1
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	samples, err := LoadSamples(path)
	if err != nil {
		t.Fatalf("LoadSamples: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("samples = %d, want 2", len(samples))
	}
	if samples[0].WantPBs != 1 || samples[1].WantInjuries != 1 {
		t.Errorf("samples = %+v", samples)
	}

	summary := Run(facts.NewExtractor(), samples)
	if summary.Passed != 2 {
		t.Errorf("passed = %d, want 2", summary.Passed)
	}
}

func TestLoadSamplesEmptyText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("- name: x\n  text: \"\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSamples(path); err == nil {
		t.Fatal("expected an error for empty sample text")
	}
}
