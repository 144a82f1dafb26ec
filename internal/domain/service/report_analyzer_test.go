package service

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/dreschagin/fastqc-analyzer/internal/domain/entity"
	"github.com/dreschagin/fastqc-analyzer/internal/domain/valueobject"
)

func mustReportFile(t *testing.T, name, content, mime string) entity.ReportFile {
	t.Helper()
	f, err := entity.NewReportFile(name, content, 0, mime)
	require.NoError(t, err)
	return f
}

func TestAnalyzeEndToEnd(t *testing.T) {
	analyzer := NewDefaultReportAnalyzer(NewSeededSampler(1), nil, language.French)

	result, err := analyzer.Analyze([]entity.ReportFile{
		mustReportFile(t, "A_fastqc_data.txt", fastqcDataReport, "text/plain"),
		mustReportFile(t, "B_multiqc.json", multiqcJSONReport, "application/json"),
	})
	require.NoError(t, err)

	want := entity.Summary{
		TotalReads:       2_500_000,
		QualityScore:     35.0,
		GCContent:        44.5,
		DuplicationLevel: 11.0,
		AdapterContent:   1.5,
		Status:           valueobject.StatusGood,
	}
	if diff := cmp.Diff(want, result.Summary); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}

	for _, m := range result.Metrics {
		assert.Equal(t, valueobject.StatusGood, m.Status, m.Name)
	}
	assert.Equal(t, []string{"Les données sont de bonne qualité, procéder à l'assemblage"}, result.Recommendations)
	assert.Contains(t, result.Interpretation, "Analyse de 2 fichier(s) FASTQC")

	require.Len(t, result.Files, 2)
	for _, f := range result.Files {
		assert.Equal(t, entity.FileStatusAnalyzed, f.Status)
		for kind, source := range f.Sources {
			assert.Equal(t, valueobject.SourceMatched, source, "%s %s", f.Name, kind)
		}
	}
	assert.Equal(t, "application/json", result.Files[1].Type)
	assert.Equal(t, int64(len(multiqcJSONReport)), result.Files[1].Size)
}

func TestAnalyzeEmptyInput(t *testing.T) {
	_, err := NewDefaultReportAnalyzer(nil, nil, language.French).Analyze(nil)
	assert.True(t, errors.Is(err, ErrEmptyInput))
}

func TestAnalyzeGarbageStillProducesResult(t *testing.T) {
	analyzer := NewDefaultReportAnalyzer(NewSeededSampler(9), nil, language.English)

	result, err := analyzer.Analyze([]entity.ReportFile{
		mustReportFile(t, "empty.txt", "", "text/plain"),
		mustReportFile(t, "noise.txt", "lorem ipsum dolor sit amet", "text/plain"),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.Interpretation)
	assert.NotEmpty(t, result.Recommendations)
	assert.Len(t, result.Metrics, 4)
	assert.GreaterOrEqual(t, result.Summary.TotalReads, int64(2_000_000))
	for _, f := range result.Files {
		for _, source := range f.Sources {
			assert.NotEqual(t, valueobject.SourceMatched, source)
		}
	}
}

func TestWithLanguageKeepsAnalyzerImmutable(t *testing.T) {
	fr := NewDefaultReportAnalyzer(nil, nil, language.French)
	en := fr.WithLanguage(language.English)

	assert.Equal(t, language.French, fr.Language())
	assert.Equal(t, language.English, en.Language())
}
