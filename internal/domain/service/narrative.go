package service

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/dreschagin/fastqc-analyzer/internal/domain/entity"
	"github.com/dreschagin/fastqc-analyzer/internal/domain/valueobject"
)

// Ключи каталога сообщений. Английский текст служит ключом
const (
	msgHeader         = "Analysis of %d FASTQC file(s):\n\n"
	msgSummaryTitle   = "📊 **Overall summary:**\n"
	msgTotalReads     = "- Total reads: %d\n"
	msgMeanQuality    = "- Mean quality score: %.1f/40\n"
	msgMeanGC         = "- Mean GC content: %.1f%%\n"
	msgOverallStatus  = "- Overall status: %s\n\n"
	msgDetailsTitle   = "🔍 **Detailed analysis:**\n"
	msgMetricLine     = "- %s: %.1f %s\n"
	msgStatusGood     = "✅ Good"
	msgStatusWarning  = "⚠️ Warning"
	msgStatusError    = "❌ Problematic"
	msgRecQuality     = "Improve filtering of low-quality reads"
	msgRecGC          = "Check for contamination or composition bias"
	msgRecDuplication = "Remove PCR duplicates before assembly"
	msgRecAdapter     = "Perform adapter trimming"
	msgRecProceed     = "Data quality is good, proceed to assembly"
	msgRecNoAction    = "No specific action required"
)

var frenchMessages = map[string]string{
	msgHeader:             "Analyse de %d fichier(s) FASTQC :\n\n",
	msgSummaryTitle:       "📊 **Résumé général :**\n",
	msgTotalReads:         "- Nombre total de lectures : %d\n",
	msgMeanQuality:        "- Score de qualité moyen : %.1f/40\n",
	msgMeanGC:             "- Contenu GC moyen : %.1f%%\n",
	msgOverallStatus:      "- Statut global : %s\n\n",
	msgDetailsTitle:       "🔍 **Analyse détaillée :**\n",
	msgMetricLine:         "- %s : %.1f %s\n",
	msgStatusGood:         "✅ Bon",
	msgStatusWarning:      "⚠️ Attention",
	msgStatusError:        "❌ Problématique",
	msgRecQuality:         "Améliorer le filtrage des lectures de faible qualité",
	msgRecGC:              "Vérifier la contamination ou biais de composition",
	msgRecDuplication:     "Enlever les duplicats PCR avant l'assemblage",
	msgRecAdapter:         "Effectuer un trimming des adaptateurs",
	msgRecProceed:         "Les données sont de bonne qualité, procéder à l'assemblage",
	msgRecNoAction:        "Aucune action spécifique requise",
	QualityMetricName:     "Qualité des bases",
	GCMetricName:          "Contenu GC",
	DuplicationMetricName: "Duplication",
	AdapterMetricName:     "Adaptateurs",
}

// DefaultLanguage - язык отчетов по умолчанию
var DefaultLanguage = language.French

var (
	supportedLanguages = []language.Tag{language.French, language.English}
	languageMatcher    = language.NewMatcher(supportedLanguages)
	narrativeCatalog   = newNarrativeCatalog()
)

// Рекомендации в фиксированном порядке проверки
var remediations = []struct {
	kind valueobject.MetricKind
	key  string
}{
	{valueobject.Quality, msgRecQuality},
	{valueobject.GCContent, msgRecGC},
	{valueobject.Duplication, msgRecDuplication},
	{valueobject.Adapter, msgRecAdapter},
}

var metricNames = map[valueobject.MetricKind]string{
	valueobject.Quality:     QualityMetricName,
	valueobject.GCContent:   GCMetricName,
	valueobject.Duplication: DuplicationMetricName,
	valueobject.Adapter:     AdapterMetricName,
}

func newNarrativeCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(DefaultLanguage))
	for key, fr := range frenchMessages {
		if err := b.SetString(language.French, key, fr); err != nil {
			panic(err)
		}
		if err := b.SetString(language.English, key, key); err != nil {
			panic(err)
		}
	}
	return b
}

// ResolveLanguage выбирает поддерживаемый язык по строкам вида "en", "fr-CA", Accept-Language
func ResolveLanguage(preferences ...string) language.Tag {
	_, idx := language.MatchStrings(languageMatcher, preferences...)
	return supportedLanguages[idx]
}

// NarrativeGenerator формирует интерпретацию и рекомендации (Domain Service)
type NarrativeGenerator struct {
	lang language.Tag
}

// NewNarrativeGenerator создает генератор для языка lang
func NewNarrativeGenerator(lang language.Tag) *NarrativeGenerator {
	return &NarrativeGenerator{lang: ResolveLanguage(lang.String())}
}

// Language возвращает язык генератора
func (g *NarrativeGenerator) Language() language.Tag {
	return g.lang
}

func (g *NarrativeGenerator) printer() *message.Printer {
	return message.NewPrinter(g.lang, message.Catalog(narrativeCatalog))
}

// MetricName возвращает локализованное имя строки таблицы
func (g *NarrativeGenerator) MetricName(kind valueobject.MetricKind) string {
	key, ok := metricNames[kind]
	if !ok {
		return kind.String()
	}
	return g.printer().Sprintf(key)
}

// LocalizeMetrics возвращает копию таблицы с локализованными именами
func (g *NarrativeGenerator) LocalizeMetrics(metrics []entity.Metric) []entity.Metric {
	localized := make([]entity.Metric, len(metrics))
	for i, m := range metrics {
		m.Name = g.MetricName(m.Kind)
		localized[i] = m
	}
	return localized
}

// StatusLabel возвращает подпись общего статуса
func (g *NarrativeGenerator) StatusLabel(status valueobject.Status) string {
	p := g.printer()
	switch status {
	case valueobject.StatusGood:
		return p.Sprintf(msgStatusGood)
	case valueobject.StatusWarning:
		return p.Sprintf(msgStatusWarning)
	default:
		return p.Sprintf(msgStatusError)
	}
}

// Interpretation формирует текстовое описание результата
func (g *NarrativeGenerator) Interpretation(agg Aggregate) string {
	p := g.printer()
	s := agg.Summary

	out := p.Sprintf(msgHeader, agg.FileCount)
	out += p.Sprintf(msgSummaryTitle)
	out += p.Sprintf(msgTotalReads, s.TotalReads)
	out += p.Sprintf(msgMeanQuality, s.QualityScore)
	out += p.Sprintf(msgMeanGC, s.GCContent)
	out += p.Sprintf(msgOverallStatus, g.StatusLabel(s.Status))
	out += p.Sprintf(msgDetailsTitle)

	for _, m := range agg.Metrics {
		out += p.Sprintf(msgMetricLine, g.MetricName(m.Kind), m.Value, m.Status.Glyph())
	}

	return out
}

// Recommendations формирует список рекомендаций, никогда не пустой
func (g *NarrativeGenerator) Recommendations(agg Aggregate) []string {
	p := g.printer()
	var recommendations []string

	for _, r := range remediations {
		m, ok := findMetric(agg.Metrics, r.kind)
		if ok && m.Status != valueobject.StatusGood {
			recommendations = append(recommendations, p.Sprintf(r.key))
		}
	}

	if agg.Summary.Status == valueobject.StatusGood {
		recommendations = append(recommendations, p.Sprintf(msgRecProceed))
	}

	if len(recommendations) == 0 {
		recommendations = append(recommendations, p.Sprintf(msgRecNoAction))
	}

	return recommendations
}

func findMetric(metrics []entity.Metric, kind valueobject.MetricKind) (entity.Metric, bool) {
	for _, m := range metrics {
		if m.Kind == kind {
			return m, true
		}
	}
	return entity.Metric{}, false
}
