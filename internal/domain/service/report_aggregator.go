package service

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/dreschagin/fastqc-analyzer/internal/domain/entity"
	"github.com/dreschagin/fastqc-analyzer/internal/domain/valueobject"
)

// ErrEmptyInput возвращается при анализе пустого набора файлов
var ErrEmptyInput = errors.New("no files to analyze")

// Имена строк таблицы метрик до локализации
const (
	QualityMetricName     = "Base quality"
	GCMetricName          = "GC content"
	DuplicationMetricName = "Duplication"
	AdapterMetricName     = "Adapters"
)

// Aggregate - сводка и таблица метрик по набору файлов
type Aggregate struct {
	Summary   entity.Summary
	Metrics   []entity.Metric
	FileCount int
}

// ReportAggregator агрегирует метрики нескольких файлов (Domain Service)
type ReportAggregator struct{}

// NewReportAggregator создает новый ReportAggregator
func NewReportAggregator() *ReportAggregator {
	return &ReportAggregator{}
}

// Aggregate суммирует прочтения и усредняет остальные метрики
// Статусы вычисляются по неокругленным средним
func (a *ReportAggregator) Aggregate(files []entity.FileMetrics) (Aggregate, error) {
	if len(files) == 0 {
		return Aggregate{}, ErrEmptyInput
	}

	var totalReads int64
	quality := make([]float64, len(files))
	gc := make([]float64, len(files))
	duplication := make([]float64, len(files))
	adapter := make([]float64, len(files))

	for i, f := range files {
		totalReads += f.TotalReads()
		quality[i] = f.QualityScore()
		gc[i] = f.GCContent()
		duplication[i] = f.DuplicationLevel()
		adapter[i] = f.AdapterContent()
	}

	meanQuality := stat.Mean(quality, nil)
	meanGC := stat.Mean(gc, nil)
	meanDuplication := stat.Mean(duplication, nil)
	meanAdapter := stat.Mean(adapter, nil)

	summary := entity.Summary{
		TotalReads:       totalReads,
		QualityScore:     Round1(meanQuality),
		GCContent:        Round1(meanGC),
		DuplicationLevel: Round1(meanDuplication),
		AdapterContent:   Round1(meanAdapter),
		Status:           OverallStatus(meanQuality, meanGC, meanDuplication, meanAdapter),
	}

	return Aggregate{
		Summary:   summary,
		Metrics:   buildMetricTable(meanQuality, meanGC, meanDuplication, meanAdapter),
		FileCount: len(files),
	}, nil
}

// buildMetricTable строит таблицу метрик с независимыми статусами
func buildMetricTable(quality, gc, duplication, adapter float64) []entity.Metric {
	return []entity.Metric{
		{
			Kind:      valueobject.Quality,
			Name:      QualityMetricName,
			Value:     Round1(quality),
			Status:    QualityStatus(quality),
			Threshold: QualityThreshold,
		},
		{
			Kind:      valueobject.GCContent,
			Name:      GCMetricName,
			Value:     Round1(gc),
			Status:    GCStatus(gc),
			Threshold: GCThreshold,
		},
		{
			Kind:      valueobject.Duplication,
			Name:      DuplicationMetricName,
			Value:     Round1(duplication),
			Status:    DuplicationStatus(duplication),
			Threshold: DuplicationThreshold,
		},
		{
			Kind:      valueobject.Adapter,
			Name:      AdapterMetricName,
			Value:     Round1(adapter),
			Status:    AdapterStatus(adapter),
			Threshold: AdapterThreshold,
		},
	}
}

// Round1 округляет до одного знака, половина вверх.
// Сдвиг выполняется по десятичной записи числа, поэтому 1.15 дает 1.2
func Round1(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	mant, exp, _ := strings.Cut(strconv.FormatFloat(v, 'e', -1, 64), "e")
	e, err := strconv.Atoi(exp)
	if err != nil {
		return math.Floor(v*10+0.5) / 10
	}
	scaled, err := strconv.ParseFloat(mant+"e"+strconv.Itoa(e+1), 64)
	if err != nil {
		return math.Floor(v*10+0.5) / 10
	}
	return math.Floor(scaled+0.5) / 10
}
