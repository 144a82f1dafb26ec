package service

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreschagin/fastqc-analyzer/internal/domain/entity"
	"github.com/dreschagin/fastqc-analyzer/internal/domain/valueobject"
)

func TestAggregateTwoFiles(t *testing.T) {
	agg, err := NewReportAggregator().Aggregate([]entity.FileMetrics{
		matchedMetrics("A.html", 1_000_000, 38, 45, 10, 1),
		matchedMetrics("B.html", 1_500_000, 32, 44, 12, 2),
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
	if diff := cmp.Diff(want, agg.Summary); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, agg.Metrics, 4)
	for _, m := range agg.Metrics {
		assert.Equal(t, valueobject.StatusGood, m.Status, m.Name)
	}
	assert.Equal(t, 2, agg.FileCount)
}

func TestAggregateMetricTable(t *testing.T) {
	agg, err := NewReportAggregator().Aggregate([]entity.FileMetrics{
		matchedMetrics("A.html", 1000, 38, 45, 10, 1),
	})
	require.NoError(t, err)

	want := []entity.Metric{
		{Kind: valueobject.Quality, Name: QualityMetricName, Value: 38, Status: valueobject.StatusGood, Threshold: 30},
		{Kind: valueobject.GCContent, Name: GCMetricName, Value: 45, Status: valueobject.StatusGood, Threshold: 50},
		{Kind: valueobject.Duplication, Name: DuplicationMetricName, Value: 10, Status: valueobject.StatusGood, Threshold: 20},
		{Kind: valueobject.Adapter, Name: AdapterMetricName, Value: 1, Status: valueobject.StatusGood, Threshold: 5},
	}
	if diff := cmp.Diff(want, agg.Metrics); diff != "" {
		t.Fatalf("metrics mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregateMeanQuality(t *testing.T) {
	agg, err := NewReportAggregator().Aggregate([]entity.FileMetrics{
		matchedMetrics("A.html", 1000, 40, 50, 0, 0),
		matchedMetrics("B.html", 1000, 20, 50, 0, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, 30.0, agg.Summary.QualityScore)
}

func TestAggregateEmptyInput(t *testing.T) {
	_, err := NewReportAggregator().Aggregate(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyInput))
	assert.Equal(t, "no files to analyze", err.Error())
}

func TestAggregateStatusBoundaries(t *testing.T) {
	tests := []struct {
		name    string
		quality float64
		gc      float64
		kind    valueobject.MetricKind
		want    valueobject.Status
	}{
		{"quality 20.0", 20.0, 50, valueobject.Quality, valueobject.StatusWarning},
		{"quality 19.9", 19.9, 50, valueobject.Quality, valueobject.StatusError},
		{"gc 35.0", 35, 35.0, valueobject.GCContent, valueobject.StatusGood},
		{"gc 34.9", 35, 34.9, valueobject.GCContent, valueobject.StatusWarning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg, err := NewReportAggregator().Aggregate([]entity.FileMetrics{
				matchedMetrics("A.html", 1000, tt.quality, tt.gc, 0, 0),
			})
			require.NoError(t, err)

			m, ok := entity.AnalysisResult{Metrics: agg.Metrics}.MetricByKind(tt.kind)
			require.True(t, ok)
			assert.Equal(t, tt.want, m.Status)
		})
	}
}

func TestAggregateRoundsHalfUp(t *testing.T) {
	agg, err := NewReportAggregator().Aggregate([]entity.FileMetrics{
		matchedMetrics("A.html", 1000, 35, 50, 0, 1.25),
	})
	require.NoError(t, err)
	assert.Equal(t, 1.3, agg.Summary.AdapterContent)
}

func TestRound1DecimalHalves(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{1.15, 1.2},
		{2.25, 2.3},
		{1.05, 1.1},
		{0.05, 0.1},
		{38.04, 38.0},
		{38.95, 39.0},
		{44.45, 44.5},
		{1e-9, 0},
		{-1.25, -1.2},
		{0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Round1(tt.in), "Round1(%v)", tt.in)
	}
}

func TestStatusUsesUnroundedMeans(t *testing.T) {
	// 29.96 rounds to 30.0 for display but is still below the quality threshold
	agg, err := NewReportAggregator().Aggregate([]entity.FileMetrics{
		matchedMetrics("A.html", 1000, 29.96, 50, 0, 0),
	})
	require.NoError(t, err)

	assert.Equal(t, 30.0, agg.Summary.QualityScore)
	assert.Equal(t, valueobject.StatusWarning, agg.Summary.Status)
	assert.Equal(t, valueobject.StatusWarning, agg.Metrics[0].Status)
}
