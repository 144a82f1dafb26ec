package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreschagin/fastqc-analyzer/internal/domain/entity"
	"github.com/dreschagin/fastqc-analyzer/internal/domain/repository"
	"github.com/dreschagin/fastqc-analyzer/internal/domain/valueobject"
)

func TestBuildListQuery(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	tests := []struct {
		name      string
		from, to  time.Time
		limit     int
		wantWhere string
		wantArgs  int
	}{
		{"unbounded", time.Time{}, time.Time{}, 0, "", 0},
		{"limit only", time.Time{}, time.Time{}, 10, " ORDER BY created_at DESC LIMIT $1", 1},
		{"from only", from, time.Time{}, 5, " WHERE created_at >= $1 ORDER BY created_at DESC LIMIT $2", 2},
		{"full range", from, to, 5, " WHERE created_at >= $1 AND created_at <= $2 ORDER BY created_at DESC LIMIT $3", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := valueobject.NewTimeRange(tt.from, tt.to)
			require.NoError(t, err)

			query, args := buildListQuery(repository.AnalysisQuery{Limit: tt.limit, TimeRange: tr})
			assert.Len(t, args, tt.wantArgs)
			assert.Contains(t, query, "FROM analyses")
			if tt.wantWhere != "" {
				assert.Contains(t, query, tt.wantWhere)
			} else {
				assert.NotContains(t, query, "WHERE")
				assert.NotContains(t, query, "LIMIT")
			}
		})
	}
}

func TestMapperPreservesSummaryColumns(t *testing.T) {
	result := entity.AnalysisResult{
		Summary: entity.Summary{
			TotalReads:   2500000,
			QualityScore: 35,
			GCContent:    44.5,
			Status:       valueobject.StatusWarning,
		},
		Metrics: []entity.Metric{
			{Kind: valueobject.Quality, Name: "Base quality", Value: 35, Status: valueobject.StatusGood, Threshold: 30},
		},
		Interpretation:  "text",
		Recommendations: []string{"No specific action required"},
		Files: []entity.FileDescriptor{
			{Name: "a_fastqc.html", Size: 10, Type: "text/html", Status: entity.FileStatusAnalyzed},
			{Name: "b_fastqc.html", Size: 20, Type: "text/html", Status: entity.FileStatusAnalyzed},
		},
	}
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	analysis := entity.ReconstructAnalysis("6f1c2b9e-3d4a-4c8e-9f10-2a3b4c5d6e7f", "", result, created)

	model, err := ToDBModel(analysis)
	require.NoError(t, err)
	assert.Equal(t, "warning", model.Status)
	assert.Equal(t, 2, model.FileCount)
	assert.Equal(t, int64(2500000), model.TotalReads)
	assert.Equal(t, "a_fastqc.html, b_fastqc.html", model.Label)

	restored, err := ToEntity(model)
	require.NoError(t, err)
	assert.Equal(t, analysis.ID(), restored.ID())
	assert.True(t, restored.CreatedAt().Equal(created))
	assert.Equal(t, result.Summary, restored.Result().Summary)
	assert.Equal(t, result.Recommendations, restored.Result().Recommendations)

	_, err = ToEntity(&AnalysisDBModel{Result: []byte("{")})
	assert.Error(t, err)
}
