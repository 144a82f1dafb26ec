package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/dreschagin/fastqc-analyzer/internal/domain/entity"
	"github.com/dreschagin/fastqc-analyzer/internal/domain/valueobject"
)

func twoFileAggregate(t *testing.T) Aggregate {
	t.Helper()
	agg, err := NewReportAggregator().Aggregate([]entity.FileMetrics{
		matchedMetrics("A.html", 1_000_000, 38, 45, 10, 1),
		matchedMetrics("B.html", 1_500_000, 32, 44, 12, 2),
	})
	require.NoError(t, err)
	return agg
}

func TestInterpretationEnglish(t *testing.T) {
	got := NewNarrativeGenerator(language.English).Interpretation(twoFileAggregate(t))

	want := "Analysis of 2 FASTQC file(s):\n\n" +
		"📊 **Overall summary:**\n" +
		"- Total reads: 2,500,000\n" +
		"- Mean quality score: 35.0/40\n" +
		"- Mean GC content: 44.5%\n" +
		"- Overall status: ✅ Good\n\n" +
		"🔍 **Detailed analysis:**\n" +
		"- Base quality: 35.0 ✅\n" +
		"- GC content: 44.5 ✅\n" +
		"- Duplication: 11.0 ✅\n" +
		"- Adapters: 1.5 ✅\n"
	assert.Equal(t, want, got)
}

func TestInterpretationFrenchHeader(t *testing.T) {
	got := NewNarrativeGenerator(language.French).Interpretation(twoFileAggregate(t))

	assert.Contains(t, got, "Analyse de 2 fichier(s) FASTQC :\n\n")
	assert.Contains(t, got, "📊 **Résumé général :**\n")
	assert.Contains(t, got, "- Statut global : ✅ Bon\n\n")
	assert.Contains(t, got, "- Qualité des bases : ")
}

func TestRecommendationsGoodData(t *testing.T) {
	agg := twoFileAggregate(t)

	assert.Equal(t,
		[]string{"Les données sont de bonne qualité, procéder à l'assemblage"},
		NewNarrativeGenerator(language.French).Recommendations(agg))
	assert.Equal(t,
		[]string{"Data quality is good, proceed to assembly"},
		NewNarrativeGenerator(language.English).Recommendations(agg))
}

func TestRecommendationsOrder(t *testing.T) {
	agg, err := NewReportAggregator().Aggregate([]entity.FileMetrics{
		matchedMetrics("bad.html", 1000, 10, 80, 40, 20),
	})
	require.NoError(t, err)

	got := NewNarrativeGenerator(language.French).Recommendations(agg)
	assert.Equal(t, []string{
		"Améliorer le filtrage des lectures de faible qualité",
		"Vérifier la contamination ou biais de composition",
		"Enlever les duplicats PCR avant l'assemblage",
		"Effectuer un trimming des adaptateurs",
	}, got)
}

func TestRecommendationsNeverEmpty(t *testing.T) {
	g := NewNarrativeGenerator(language.English)

	warning := Aggregate{Summary: entity.Summary{Status: valueobject.StatusWarning}}
	assert.Equal(t, []string{"No specific action required"}, g.Recommendations(warning))

	good := Aggregate{Summary: entity.Summary{Status: valueobject.StatusGood}}
	assert.Equal(t, []string{"Data quality is good, proceed to assembly"}, g.Recommendations(good))
}

func TestResolveLanguage(t *testing.T) {
	assert.Equal(t, language.French, ResolveLanguage())
	assert.Equal(t, language.French, ResolveLanguage("de"))
	assert.Equal(t, language.English, ResolveLanguage("en-US"))
	assert.Equal(t, language.English, ResolveLanguage("en-GB,en;q=0.9"))
	assert.Equal(t, language.French, ResolveLanguage("fr-CA"))
}

func TestLocalizeMetrics(t *testing.T) {
	agg := twoFileAggregate(t)
	localized := NewNarrativeGenerator(language.French).LocalizeMetrics(agg.Metrics)

	names := make([]string, 0, len(localized))
	for _, m := range localized {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"Qualité des bases", "Contenu GC", "Duplication", "Adaptateurs"}, names)
	assert.Equal(t, QualityMetricName, agg.Metrics[0].Name)
}
