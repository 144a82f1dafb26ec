package service

import (
	"golang.org/x/text/language"

	"github.com/dreschagin/fastqc-analyzer/internal/domain/entity"
	"github.com/dreschagin/fastqc-analyzer/pkg/logger"
)

// ReportAnalyzer - точка входа ядра анализа (Domain Service)
// Не хранит изменяемого состояния и может использоваться конкурентно
type ReportAnalyzer struct {
	parser     *FileParser
	aggregator *ReportAggregator
	narrative  *NarrativeGenerator
}

// NewReportAnalyzer создает новый ReportAnalyzer
func NewReportAnalyzer(parser *FileParser, aggregator *ReportAggregator, narrative *NarrativeGenerator) *ReportAnalyzer {
	return &ReportAnalyzer{
		parser:     parser,
		aggregator: aggregator,
		narrative:  narrative,
	}
}

// WithLanguage возвращает анализатор с другим языком текстов
func (a *ReportAnalyzer) WithLanguage(lang language.Tag) *ReportAnalyzer {
	return &ReportAnalyzer{
		parser:     a.parser,
		aggregator: a.aggregator,
		narrative:  NewNarrativeGenerator(lang),
	}
}

// Language возвращает язык текстов анализатора
func (a *ReportAnalyzer) Language() language.Tag {
	return a.narrative.Language()
}

// Analyze разбирает файлы и строит итоговый AnalysisResult
func (a *ReportAnalyzer) Analyze(files []entity.ReportFile) (entity.AnalysisResult, error) {
	if len(files) == 0 {
		return entity.AnalysisResult{}, ErrEmptyInput
	}

	perFile := make([]entity.FileMetrics, 0, len(files))
	for _, f := range files {
		perFile = append(perFile, a.parser.Parse(f))
	}

	return a.Build(files, perFile)
}

// Build строит результат по уже разобранным метрикам
func (a *ReportAnalyzer) Build(files []entity.ReportFile, perFile []entity.FileMetrics) (entity.AnalysisResult, error) {
	agg, err := a.aggregator.Aggregate(perFile)
	if err != nil {
		return entity.AnalysisResult{}, err
	}

	descriptors := make([]entity.FileDescriptor, len(files))
	for i, f := range files {
		d := entity.FileDescriptor{
			Name:   f.Name(),
			Size:   f.Size(),
			Type:   f.MimeType(),
			Status: entity.FileStatusAnalyzed,
		}
		if i < len(perFile) {
			d.Sources = perFile[i].Sources()
			d.OverrepresentedCount = perFile[i].OverrepresentedCount()
		}
		descriptors[i] = d
	}

	return entity.AnalysisResult{
		Summary:         agg.Summary,
		Metrics:         a.narrative.LocalizeMetrics(agg.Metrics),
		Interpretation:  a.narrative.Interpretation(agg),
		Recommendations: a.narrative.Recommendations(agg),
		Files:           descriptors,
	}, nil
}

// NewDefaultReportAnalyzer собирает анализатор со стандартными зависимостями
func NewDefaultReportAnalyzer(sampler Sampler, log *logger.Logger, lang language.Tag) *ReportAnalyzer {
	return NewReportAnalyzer(
		NewFileParser(NewPatternExtractor(sampler, log)),
		NewReportAggregator(),
		NewNarrativeGenerator(lang),
	)
}
