package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	cfgpkg "github.com/bouyassine11/AnalytIQ/internal/config"
)

func TestAnalyzeBatch_SuffixesDuplicateNames(t *testing.T) {
	home := withConfig(t, &cfgpkg.Global{})
	writeCSV(t, filepath.Join(home, "d1", "metrics.csv"), "col1,col2\nA,1\nB,2\nC,3\n")
	writeCSV(t, filepath.Join(home, "d2", "metrics.csv"), "col1,col2\nA,1\nB,2\nC,3\n")
	outDir := filepath.Join(home, "reports")

	out := mustRun(t, "analyze-batch", filepath.Join(home, "d*", "metrics.csv"), "--out-dir", outDir)
	if !strings.Contains(out, "[1/2]") || !strings.Contains(out, "[2/2]") {
		t.Fatalf("missing progress lines:\n%s", out)
	}
	for _, name := range []string{"metrics.summary.md", "metrics__2.summary.md"} {
		b, err := os.ReadFile(filepath.Join(outDir, name))
		if err != nil {
			t.Fatalf("expected report %s: %v", name, err)
		}
		if !strings.Contains(string(b), "[SCHEMA]") {
			t.Fatalf("report %s lacks schema section", name)
		}
	}
}

func TestAnalyzeBatch_JSONReports(t *testing.T) {
	home := withConfig(t, &cfgpkg.Global{})
	writeCSV(t, filepath.Join(home, "one.csv"), "a,b\n1,2\n2,4\n3,6\n")
	outDir := filepath.Join(home, "reports")

	mustRun(t, "analyze-batch", filepath.Join(home, "one.csv"), "--out-dir", outDir, "--json", "-q")
	b, err := os.ReadFile(filepath.Join(outDir, "one.analysis.json"))
	if err != nil {
		t.Fatalf("expected json report: %v", err)
	}
	if !strings.Contains(string(b), `"eda_results"`) {
		t.Fatalf("json report lacks eda_results:\n%s", b)
	}
}

func TestAnalyzeBatch_ReportsFailures(t *testing.T) {
	home := withConfig(t, &cfgpkg.Global{})
	writeCSV(t, filepath.Join(home, "good.csv"), "a\n1\n2\n")
	writeCSV(t, filepath.Join(home, "empty.csv"), "")

	out, err := runCmd(t, "analyze-batch", filepath.Join(home, "*.csv"))
	if err == nil || !strings.Contains(err.Error(), "1 of 2 datasets failed") {
		t.Fatalf("expected partial failure, got %v", err)
	}
	if !strings.Contains(out, "✗ empty.csv") || !strings.Contains(out, "✓ good.csv") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestExpandInputs(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, filepath.Join(dir, "b.csv"), "x\n1\n")
	writeCSV(t, filepath.Join(dir, "a.csv"), "x\n1\n")
	got := expandInputs([]string{filepath.Join(dir, "*.csv"), filepath.Join(dir, "a.csv"), filepath.Join(dir, "missing.csv")})
	want := []string{filepath.Join(dir, "a.csv"), filepath.Join(dir, "b.csv")}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("expandInputs = %v, want %v", got, want)
	}
}
