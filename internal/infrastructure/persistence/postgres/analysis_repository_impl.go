package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	"github.com/dreschagin/fastqc-analyzer/internal/domain/entity"
	"github.com/dreschagin/fastqc-analyzer/internal/domain/repository"
)

const analysisColumns = "id, label, status, file_count, total_reads, quality_score, result, created_at"

const schema = `
CREATE TABLE IF NOT EXISTS analyses (
	id            UUID PRIMARY KEY,
	label         TEXT,
	status        VARCHAR(16) NOT NULL,
	file_count    INTEGER NOT NULL,
	total_reads   BIGINT NOT NULL,
	quality_score DOUBLE PRECISION NOT NULL,
	result        JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses (created_at DESC);
`

// PostgresAnalysisRepository реализует repository.AnalysisRepository для PostgreSQL
type PostgresAnalysisRepository struct {
	db *sql.DB
}

// NewPostgresAnalysisRepository создает новый PostgreSQL repository
func NewPostgresAnalysisRepository(db *sql.DB) *PostgresAnalysisRepository {
	return &PostgresAnalysisRepository{
		db: db,
	}
}

// EnsureSchema создает таблицу истории, если она отсутствует
func (r *PostgresAnalysisRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create analyses schema: %w", err)
	}
	return nil
}

// Save сохраняет запись истории (повторное сохранение перезаписывает результат)
func (r *PostgresAnalysisRepository) Save(ctx context.Context, analysis *entity.Analysis) error {
	model, err := ToDBModel(analysis)
	if err != nil {
		return fmt.Errorf("failed to convert to DB model: %w", err)
	}

	query := `
		INSERT INTO analyses (` + analysisColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			label = EXCLUDED.label,
			status = EXCLUDED.status,
			file_count = EXCLUDED.file_count,
			total_reads = EXCLUDED.total_reads,
			quality_score = EXCLUDED.quality_score,
			result = EXCLUDED.result
	`

	_, err = r.db.ExecContext(ctx, query,
		model.ID,
		model.Label,
		model.Status,
		model.FileCount,
		model.TotalReads,
		model.QualityScore,
		model.Result,
		model.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}

	return nil
}

// FindByID находит запись по идентификатору
func (r *PostgresAnalysisRepository) FindByID(ctx context.Context, id string) (*entity.Analysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM analyses WHERE id = $1`

	model, err := ScanAnalysisRow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrAnalysisNotFound
		}
		return nil, fmt.Errorf("failed to scan analysis: %w", err)
	}

	return ToEntity(model)
}

// List возвращает записи, начиная с самых новых
func (r *PostgresAnalysisRepository) List(ctx context.Context, q repository.AnalysisQuery) ([]*entity.Analysis, error) {
	query, args := buildListQuery(q)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()

	return r.scanAnalyses(rows)
}

// Delete удаляет запись по идентификатору
func (r *PostgresAnalysisRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM analyses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete analysis: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return repository.ErrAnalysisNotFound
	}

	return nil
}

// DeleteAll очищает историю
func (r *PostgresAnalysisRepository) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM analyses`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear analyses: %w", err)
	}

	return result.RowsAffected()
}

// Count возвращает количество записей
func (r *PostgresAnalysisRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analyses`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count analyses: %w", err)
	}
	return count, nil
}

func buildListQuery(q repository.AnalysisQuery) (string, []interface{}) {
	var (
		conditions []string
		args       []interface{}
	)

	if from := q.TimeRange.From(); !from.IsZero() {
		args = append(args, from)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if to := q.TimeRange.To(); !to.IsZero() {
		args = append(args, to)
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + analysisColumns + " FROM analyses")
	if len(conditions) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	sb.WriteString(" ORDER BY created_at DESC")
	if q.Limit > 0 {
		args = append(args, q.Limit)
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}

	return sb.String(), args
}

// scanAnalyses сканирует несколько строк в слайс записей
func (r *PostgresAnalysisRepository) scanAnalyses(rows *sql.Rows) ([]*entity.Analysis, error) {
	var analyses []*entity.Analysis

	for rows.Next() {
		model, err := ScanAnalysisRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis row: %w", err)
		}

		analysis, err := ToEntity(model)
		if err != nil {
			return nil, fmt.Errorf("failed to convert to entity: %w", err)
		}

		analyses = append(analyses, analysis)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return analyses, nil
}
