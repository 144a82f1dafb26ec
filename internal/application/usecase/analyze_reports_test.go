package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/text/language"

	"github.com/dreschagin/fastqc-analyzer/internal/application/port"
	"github.com/dreschagin/fastqc-analyzer/internal/domain/service"
	"github.com/dreschagin/fastqc-analyzer/pkg/logger"
)

const sampleFastqcData = "##FastQC\t0.11.9\n" +
	">>Basic Statistics\tpass\n" +
	"Total Sequences\t1000000\n" +
	"%GC\t45\n" +
	">>END_MODULE\n" +
	">>Per base sequence quality\tpass\n" +
	"#Base\tMean\tMedian\tLower Quartile\tUpper Quartile\t10th Percentile\t90th Percentile\n" +
	"1\t36.5\t37.0\t35.0\t38.0\t33.0\t39.0\n" +
	"2-4\t38.5\t39.0\t37.0\t40.0\t35.0\t41.0\n" +
	">>END_MODULE\n" +
	"#Total Deduplicated Percentage\t90.0\n" +
	"Adapter content: 1%\n"

const sampleMultiqcJSON = `{"total_sequences": 1500000, "avg_sequence_quality": 32, "percent_gc": 44, "percent_duplicates": 12, "adapter_content": 2}`

type analyzeFixture struct {
	repo     *fakeAnalysisRepository
	cache    *fakeCache
	storage  *fakeReportStorage
	metadata *fakeMetadataRepository
	events   *fakeEventPublisher
	notifier *fakeNotifier
	metrics  *fakeMetricsPublisher
	recorder *fakeRecorder
	uc       *AnalyzeReportsUseCase
}

func newAnalyzeFixture() *analyzeFixture {
	log := logger.New("error")
	f := &analyzeFixture{
		repo:     newFakeAnalysisRepository(),
		cache:    newFakeCache(),
		storage:  &fakeReportStorage{},
		metadata: &fakeMetadataRepository{},
		events:   &fakeEventPublisher{},
		notifier: &fakeNotifier{},
		metrics:  &fakeMetricsPublisher{},
		recorder: &fakeRecorder{},
	}
	f.uc = NewAnalyzeReportsUseCase(
		AnalyzeReportsDependencies{
			Analyzer:   service.NewDefaultReportAnalyzer(service.NewSeededSampler(1), log, language.French),
			Repository: f.repo,
			Cache:      f.cache,
			Archiver:   NewReportArchiver(f.storage, f.metadata, ReportArchiveConfig{KeyPrefix: "reports"}, log),
			Metrics:    f.metrics,
			Events:     f.events,
			Notifier:   f.notifier,
			Recorder:   f.recorder,
		},
		AnalyzeReportsConfig{MaxFiles: 3, MaxFileBytes: 1 << 20},
		log,
	)
	return f
}

func sampleUploads() []ReportUpload {
	return []ReportUpload{
		{Name: "A_fastqc_data.txt", MimeType: "text/plain", Data: []byte(sampleFastqcData)},
		{Name: "B_multiqc.json", MimeType: "application/json", Data: []byte(sampleMultiqcJSON)},
	}
}

func TestAnalyzeReportsUseCase_Success(t *testing.T) {
	f := newAnalyzeFixture()

	res, err := f.uc.Execute(context.Background(), AnalyzeReportsCommand{Files: sampleUploads()})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if res.Data.Summary.TotalReads != 2_500_000 {
		t.Fatalf("unexpected total reads: %d", res.Data.Summary.TotalReads)
	}
	if res.Data.Summary.QualityScore != 35.0 || res.Data.Summary.GCContent != 44.5 {
		t.Fatalf("unexpected summary: %+v", res.Data.Summary)
	}
	if res.Data.Summary.Status != "good" {
		t.Fatalf("expected good status, got %s", res.Data.Summary.Status)
	}
	if res.FileName != "A_fastqc_data.txt, B_multiqc.json" {
		t.Fatalf("unexpected label: %s", res.FileName)
	}
	if len(res.Data.Recommendations) != 1 || !strings.Contains(res.Data.Recommendations[0], "procéder à l'assemblage") {
		t.Fatalf("unexpected recommendations: %v", res.Data.Recommendations)
	}

	if _, err := f.repo.FindByID(context.Background(), res.ID); err != nil {
		t.Fatalf("analysis was not persisted: %v", err)
	}
	if len(f.storage.objects) != 2 {
		t.Fatalf("expected 2 archived reports, got %d", len(f.storage.objects))
	}
	if len(f.metadata.records) != 2 || f.metadata.records[1].FileName != "B_multiqc.json" {
		t.Fatalf("unexpected metadata records: %+v", f.metadata.records)
	}
	if len(f.events.events) != 1 || f.events.events[0].subject != port.SubjectAnalysisCompleted {
		t.Fatalf("expected completed event, got %+v", f.events.events)
	}
	if len(f.notifier.events) != 1 || f.notifier.events[0].AnalysisID != res.ID {
		t.Fatalf("expected websocket broadcast for %s", res.ID)
	}
	if len(f.metrics.samples) != 6 {
		t.Fatalf("expected 6 summary samples, got %d", len(f.metrics.samples))
	}
	if len(f.recorder.analyses) != 1 || f.recorder.extractions["quality/matched"] != 2 {
		t.Fatalf("unexpected recorder state: %+v", f.recorder)
	}
}

func TestAnalyzeReportsUseCase_CachesResultByContent(t *testing.T) {
	f := newAnalyzeFixture()
	ctx := context.Background()

	first, err := f.uc.Execute(ctx, AnalyzeReportsCommand{Files: sampleUploads()})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	second, err := f.uc.Execute(ctx, AnalyzeReportsCommand{Files: sampleUploads()})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if f.recorder.cacheHits != 1 || f.recorder.cacheMisses != 1 {
		t.Fatalf("expected one miss then one hit, got hits=%d misses=%d", f.recorder.cacheHits, f.recorder.cacheMisses)
	}
	if first.ID == second.ID {
		t.Fatalf("each run must create its own history entry")
	}
	if first.Data.Interpretation != second.Data.Interpretation {
		t.Fatalf("cached interpretation differs")
	}

	if _, err := f.uc.Execute(ctx, AnalyzeReportsCommand{Files: sampleUploads(), Language: "en"}); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if f.recorder.cacheMisses != 2 {
		t.Fatalf("language must be part of the cache key")
	}
	if len(f.cache.keysWithPrefix(cacheKeyResultPrefix)) != 2 {
		t.Fatalf("expected 2 cached results")
	}
}

func TestAnalyzeReportsUseCase_Validation(t *testing.T) {
	f := newAnalyzeFixture()
	ctx := context.Background()

	tests := []struct {
		name  string
		files []ReportUpload
		want  error
	}{
		{name: "empty", files: nil, want: service.ErrEmptyInput},
		{
			name: "too many",
			files: []ReportUpload{
				{Name: "a_fastqc.html"}, {Name: "b_fastqc.html"}, {Name: "c_fastqc.html"}, {Name: "d_fastqc.html"},
			},
			want: ErrTooManyFiles,
		},
		{
			name:  "unsupported",
			files: []ReportUpload{{Name: "photo.png", MimeType: "image/png", Data: []byte("x")}},
			want:  ErrUnsupportedFormat,
		},
		{
			name:  "too large",
			files: []ReportUpload{{Name: "big_fastqc.html", Data: make([]byte, 2<<20)}},
			want:  ErrFileTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.uc.Execute(ctx, AnalyzeReportsCommand{Files: tt.files})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if count, _ := f.repo.Count(ctx); count != 0 {
		t.Fatalf("failed requests must not persist, got %d", count)
	}
}

func TestAnalyzeReportsUseCase_SideChannelFailuresAreNotFatal(t *testing.T) {
	f := newAnalyzeFixture()
	f.storage.err = errors.New("s3 down")
	f.events.err = errors.New("nats down")

	res, err := f.uc.Execute(context.Background(), AnalyzeReportsCommand{Files: sampleUploads()})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.ID == "" {
		t.Fatalf("expected persisted analysis")
	}
	if len(f.notifier.events) != 1 {
		t.Fatalf("broadcast must still happen")
	}
}

func TestAnalyzeReportsUseCase_PersistenceFailureIsFatal(t *testing.T) {
	f := newAnalyzeFixture()
	f.repo.saveErr = errors.New("db down")

	_, err := f.uc.Execute(context.Background(), AnalyzeReportsCommand{Files: sampleUploads()})
	if err == nil || !strings.Contains(err.Error(), "failed to save analysis") {
		t.Fatalf("expected save error, got %v", err)
	}
	if len(f.events.events) != 0 || len(f.notifier.events) != 0 {
		t.Fatalf("no events expected after failed save")
	}
}

func TestIsAcceptedReport(t *testing.T) {
	tests := []struct {
		name, mime string
		want       bool
	}{
		{"sample_fastqc.html", "", true},
		{"run_MultiQC_data", "", true},
		{"report.html", "text/html", true},
		{"stats", "application/json", true},
		{"bundle.zip", "", true},
		{"summary.txt", "", true},
		{"photo.png", "image/png", false},
		{"notes.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", false},
	}

	for _, tt := range tests {
		if got := IsAcceptedReport(tt.name, tt.mime); got != tt.want {
			t.Fatalf("IsAcceptedReport(%q, %q) = %v, want %v", tt.name, tt.mime, got, tt.want)
		}
	}
}

func TestDecodeReportHandlesUTF16(t *testing.T) {
	utf16 := []byte{0xFF, 0xFE, 'G', 0, 'C', 0}
	if got := decodeReport(utf16); got != "GC" {
		t.Fatalf("unexpected decoded content: %q", got)
	}
	if got := decodeReport([]byte("\xEF\xBB\xBFTotal")); got != "Total" {
		t.Fatalf("BOM must be stripped, got %q", got)
	}
}
