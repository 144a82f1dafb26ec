package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dreschagin/fastqc-analyzer/internal/application/dto"
	"github.com/dreschagin/fastqc-analyzer/internal/application/port"
	"github.com/dreschagin/fastqc-analyzer/internal/domain/entity"
	"github.com/dreschagin/fastqc-analyzer/internal/domain/repository"
)

var errCacheMiss = errors.New("cache miss")

type fakeAnalysisRepository struct {
	mu      sync.Mutex
	items   map[string]*entity.Analysis
	saveErr error
}

func newFakeAnalysisRepository() *fakeAnalysisRepository {
	return &fakeAnalysisRepository{items: make(map[string]*entity.Analysis)}
}

func (r *fakeAnalysisRepository) Save(_ context.Context, a *entity.Analysis) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[a.ID()] = a
	return nil
}

func (r *fakeAnalysisRepository) FindByID(_ context.Context, id string) (*entity.Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return nil, repository.ErrAnalysisNotFound
	}
	return a, nil
}

func (r *fakeAnalysisRepository) List(_ context.Context, q repository.AnalysisQuery) ([]*entity.Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*entity.Analysis, 0, len(r.items))
	for _, a := range r.items {
		if q.TimeRange.Contains(a.CreatedAt()) {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt().After(result[j].CreatedAt())
	})
	if q.Limit > 0 && len(result) > q.Limit {
		result = result[:q.Limit]
	}
	return result, nil
}

func (r *fakeAnalysisRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return repository.ErrAnalysisNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *fakeAnalysisRepository) DeleteAll(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := int64(len(r.items))
	r.items = make(map[string]*entity.Analysis)
	return n, nil
}

func (r *fakeAnalysisRepository) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.items)), nil
}

type fakeCache struct {
	mu       sync.Mutex
	data     map[string][]byte
	patterns []string
	gets     int
	hits     int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (c *fakeCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	raw, ok := c.data[key]
	if !ok {
		return errCacheMiss
	}
	c.hits++
	return json.Unmarshal(raw, dest)
}

func (c *fakeCache) Set(_ context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = raw
	return nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *fakeCache) DeletePattern(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.patterns = append(c.patterns, pattern)
	for key := range c.data {
		if ok, _ := path.Match(pattern, key); ok {
			delete(c.data, key)
		}
	}
	return nil
}

func (c *fakeCache) Close() error { return nil }

func (c *fakeCache) keysWithPrefix(prefix string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var keys []string
	for key := range c.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys
}

type fakeReportStorage struct {
	objects    map[string][]byte
	listed     []port.StoredObject
	err        error
	lastPrefix string
	lastLimit  int
}

func (s *fakeReportStorage) PutObject(_ context.Context, key, _ string, body []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.objects == nil {
		s.objects = make(map[string][]byte)
	}
	s.objects[key] = body
	return "https://reports.example.com/" + key, nil
}

func (s *fakeReportStorage) ListObjects(_ context.Context, prefix string, limit int) ([]port.StoredObject, error) {
	s.lastPrefix = prefix
	s.lastLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	return s.listed, nil
}

func (s *fakeReportStorage) GetObjectURL(_ context.Context, key string) (string, error) {
	return "https://signed.example.com/" + key, nil
}

type fakeMetadataRepository struct {
	records   []port.ReportMetadata
	page      port.ReportListPage
	err       error
	lastQuery port.ReportListQuery
}

func (m *fakeMetadataRepository) PutBatch(_ context.Context, records []port.ReportMetadata) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, records...)
	return nil
}

func (m *fakeMetadataRepository) ListByAnalysis(_ context.Context, q port.ReportListQuery) (port.ReportListPage, error) {
	m.lastQuery = q
	if m.err != nil {
		return port.ReportListPage{}, m.err
	}
	return m.page, nil
}

type publishedEvent struct {
	subject string
	event   interface{}
}

type fakeEventPublisher struct {
	events []publishedEvent
	err    error
}

func (p *fakeEventPublisher) PublishEvent(_ context.Context, subject string, event interface{}) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{subject: subject, event: event})
	return nil
}

func (p *fakeEventPublisher) Close() error { return nil }

type fakeNotifier struct {
	events []*dto.AnalysisEventDTO
}

func (n *fakeNotifier) Broadcast(event *dto.AnalysisEventDTO) {
	n.events = append(n.events, event)
}

func (n *fakeNotifier) ClientCount() int { return 1 }

type fakeMetricsPublisher struct {
	samples []port.MetricSample
}

func (p *fakeMetricsPublisher) PublishBatch(_ context.Context, samples []port.MetricSample) error {
	p.samples = append(p.samples, samples...)
	return nil
}

func (p *fakeMetricsPublisher) PublishSingle(_ context.Context, sample port.MetricSample) error {
	p.samples = append(p.samples, sample)
	return nil
}

func (p *fakeMetricsPublisher) Flush(context.Context) error { return nil }

type fakeRecorder struct {
	analyses    []string
	extractions map[string]int
	cacheHits   int
	cacheMisses int
}

func (r *fakeRecorder) ObserveAnalysis(status string, _ int, _ time.Duration) {
	r.analyses = append(r.analyses, status)
}

func (r *fakeRecorder) ObserveExtraction(kind, source string) {
	if r.extractions == nil {
		r.extractions = make(map[string]int)
	}
	r.extractions[kind+"/"+source]++
}

func (r *fakeRecorder) ObserveCache(hit bool) {
	if hit {
		r.cacheHits++
		return
	}
	r.cacheMisses++
}
