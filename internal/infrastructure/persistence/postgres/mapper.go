package postgres

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/dreschagin/fastqc-analyzer/internal/application/dto"
	"github.com/dreschagin/fastqc-analyzer/internal/domain/entity"
)

// AnalysisDBModel представляет запись истории анализов в БД
// Сводные поля дублируются в колонках для выборок без разбора JSONB
type AnalysisDBModel struct {
	ID           string
	Label        string
	Status       string
	FileCount    int
	TotalReads   int64
	QualityScore float64
	Result       []byte // JSONB
	CreatedAt    time.Time
}

// ToDBModel конвертирует Domain Entity в DB Model
func ToDBModel(analysis *entity.Analysis) (*AnalysisDBModel, error) {
	result := analysis.Result()

	payload, err := json.Marshal(dto.FromResult(result))
	if err != nil {
		return nil, err
	}

	return &AnalysisDBModel{
		ID:           analysis.ID(),
		Label:        analysis.Label(),
		Status:       result.Summary.Status.String(),
		FileCount:    result.FileCount(),
		TotalReads:   result.Summary.TotalReads,
		QualityScore: result.Summary.QualityScore,
		Result:       payload,
		CreatedAt:    analysis.CreatedAt(),
	}, nil
}

// ToEntity конвертирует DB Model в Domain Entity
func ToEntity(model *AnalysisDBModel) (*entity.Analysis, error) {
	var payload dto.AnalysisResultDTO
	if err := json.Unmarshal(model.Result, &payload); err != nil {
		return nil, err
	}

	result, err := payload.ToEntity()
	if err != nil {
		return nil, err
	}

	return entity.ReconstructAnalysis(model.ID, model.Label, result, model.CreatedAt), nil
}

// ScanAnalysisRow сканирует строку БД в AnalysisDBModel
func ScanAnalysisRow(row interface {
	Scan(dest ...interface{}) error
}) (*AnalysisDBModel, error) {
	var model AnalysisDBModel
	var label sql.NullString

	err := row.Scan(
		&model.ID,
		&label,
		&model.Status,
		&model.FileCount,
		&model.TotalReads,
		&model.QualityScore,
		&model.Result,
		&model.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if label.Valid {
		model.Label = label.String
	}

	return &model, nil
}
