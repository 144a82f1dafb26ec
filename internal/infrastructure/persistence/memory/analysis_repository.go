package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dreschagin/fastqc-analyzer/internal/domain/entity"
	"github.com/dreschagin/fastqc-analyzer/internal/domain/repository"
)

// AnalysisRepository хранит историю анализов в памяти процесса
// При заданной емкости самые старые записи вытесняются
type AnalysisRepository struct {
	mu         sync.RWMutex
	items      map[string]*entity.Analysis
	maxEntries int
}

// NewAnalysisRepository создает репозиторий; maxEntries <= 0 снимает ограничение
func NewAnalysisRepository(maxEntries int) *AnalysisRepository {
	return &AnalysisRepository{
		items:      make(map[string]*entity.Analysis),
		maxEntries: maxEntries,
	}
}

func (r *AnalysisRepository) Save(ctx context.Context, analysis *entity.Analysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[analysis.ID()] = analysis
	r.evict()
	return nil
}

func (r *AnalysisRepository) FindByID(ctx context.Context, id string) (*entity.Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	analysis, ok := r.items[id]
	if !ok {
		return nil, repository.ErrAnalysisNotFound
	}
	return analysis, nil
}

func (r *AnalysisRepository) List(ctx context.Context, q repository.AnalysisQuery) ([]*entity.Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	result := make([]*entity.Analysis, 0, len(r.items))
	for _, analysis := range r.items {
		if q.TimeRange.Contains(analysis.CreatedAt()) {
			result = append(result, analysis)
		}
	}
	r.mu.RUnlock()

	sortNewestFirst(result)

	if q.Limit > 0 && len(result) > q.Limit {
		result = result[:q.Limit]
	}
	return result, nil
}

func (r *AnalysisRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return repository.ErrAnalysisNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *AnalysisRepository) DeleteAll(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := int64(len(r.items))
	r.items = make(map[string]*entity.Analysis)
	return deleted, nil
}

func (r *AnalysisRepository) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.items)), nil
}

// evict вызывается под r.mu
func (r *AnalysisRepository) evict() {
	if r.maxEntries <= 0 || len(r.items) <= r.maxEntries {
		return
	}

	all := make([]*entity.Analysis, 0, len(r.items))
	for _, analysis := range r.items {
		all = append(all, analysis)
	}
	sortNewestFirst(all)

	for _, stale := range all[r.maxEntries:] {
		delete(r.items, stale.ID())
	}
}

// Одинаковое время создания упорядочивается по id, чтобы порядок был стабильным
func sortNewestFirst(items []*entity.Analysis) {
	sort.Slice(items, func(i, j int) bool {
		ci, cj := items[i].CreatedAt(), items[j].CreatedAt()
		if ci.Equal(cj) {
			return items[i].ID() > items[j].ID()
		}
		return ci.After(cj)
	})
}
