package entity

import (
	"testing"

	"github.com/dreschagin/fastqc-analyzer/internal/domain/valueobject"
)

func TestNewReportFile(t *testing.T) {
	if _, err := NewReportFile("  ", "x", 1, "text/html"); err == nil {
		t.Fatal("expected error for empty name")
	}

	f, err := NewReportFile("sample_fastqc.html", "abc", 0, "text/html")
	if err != nil {
		t.Fatalf("NewReportFile() error = %v", err)
	}
	if f.Size() != 3 {
		t.Fatalf("expected size derived from content, got %d", f.Size())
	}
}

func TestNewFileMetricsFillsMissingKinds(t *testing.T) {
	m := NewFileMetrics("a.html", map[valueobject.MetricKind]valueobject.Extraction{
		valueobject.TotalReads: valueobject.Matched(1000),
		valueobject.Quality:    valueobject.Matched(36),
	}, -3)

	if m.TotalReads() != 1000 || m.QualityScore() != 36 {
		t.Fatalf("unexpected values: reads=%d quality=%v", m.TotalReads(), m.QualityScore())
	}
	if m.Extraction(valueobject.Adapter).Source() != valueobject.SourceDefault {
		t.Fatal("missing kinds must default")
	}
	if m.SyntheticCount() != 3 {
		t.Fatalf("expected 3 synthetic metrics, got %d", m.SyntheticCount())
	}
	if m.OverrepresentedCount() != 0 {
		t.Fatal("negative overrepresented count must clamp to zero")
	}
}

func TestNewAnalysis(t *testing.T) {
	if _, err := NewAnalysis(AnalysisResult{}); err == nil {
		t.Fatal("expected error for analysis without files")
	}

	a, err := NewAnalysis(AnalysisResult{Files: []FileDescriptor{{Name: "r1.html"}, {Name: "r2.html"}}})
	if err != nil {
		t.Fatalf("NewAnalysis() error = %v", err)
	}
	if a.ID() == "" {
		t.Fatal("expected generated id")
	}
	if a.Label() != "r1.html, r2.html" {
		t.Fatalf("unexpected label %q", a.Label())
	}
}
