package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/dreschagin/fastqc-analyzer/internal/application/dto"
	"github.com/dreschagin/fastqc-analyzer/internal/application/usecase"
	"github.com/dreschagin/fastqc-analyzer/internal/domain/repository"
	"github.com/dreschagin/fastqc-analyzer/internal/domain/service"
	wsInfra "github.com/dreschagin/fastqc-analyzer/internal/infrastructure/notification/websocket"
	"github.com/dreschagin/fastqc-analyzer/internal/infrastructure/observability/metrics"
	"github.com/dreschagin/fastqc-analyzer/internal/infrastructure/persistence/memory"
	"github.com/dreschagin/fastqc-analyzer/internal/infrastructure/system"
	"github.com/dreschagin/fastqc-analyzer/internal/interfaces/http/handler"
	"github.com/dreschagin/fastqc-analyzer/internal/interfaces/http/middleware"
	"github.com/dreschagin/fastqc-analyzer/pkg/config"
	"github.com/dreschagin/fastqc-analyzer/pkg/logger"
)

const (
	testToken  = "test-token"
	testOrigin = "http://localhost:8080"
)

const fastqcReport = "##FastQC\t0.11.9\n" +
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

const multiqcReport = `{"total_sequences": 1500000, "avg_sequence_quality": 32, "percent_gc": 44, "percent_duplicates": 12, "adapter_content": 2}`

type testServerOptions struct {
	repo        repository.AnalysisRepository
	archiver    *usecase.ReportArchiver
	reportsUC   *usecase.ListArchivedReportsUseCase
	rateBurst   int
	authEnabled bool
}

type testServer struct {
	*httptest.Server
	hub *wsInfra.Hub
}

func newTestServer(t *testing.T, opts testServerOptions) *testServer {
	t.Helper()

	log := logger.New("error")
	if opts.repo == nil {
		opts.repo = memory.NewAnalysisRepository(100)
	}
	if opts.rateBurst == 0 {
		opts.rateBurst = 100
	}

	hub := wsInfra.NewHub(log)
	go hub.Run()
	t.Cleanup(hub.Stop)

	promMetrics := metrics.New(nil)
	security := config.SecurityConfig{
		AllowedOrigins: []string{testOrigin},
		AuthEnabled:    opts.authEnabled,
		AuthToken:      testToken,
	}
	authConfig := NewAuthConfig(security, promMetrics)

	analyzer := service.NewDefaultReportAnalyzer(service.NewSeededSampler(7), log, language.French)
	analyzeUC := usecase.NewAnalyzeReportsUseCase(usecase.AnalyzeReportsDependencies{
		Analyzer:   analyzer,
		Repository: opts.repo,
		Archiver:   opts.archiver,
		Notifier:   hub,
		Recorder:   promMetrics,
	}, usecase.AnalyzeReportsConfig{MaxFiles: 3, MaxFileBytes: 1 << 20}, log)

	analysisHandler := handler.NewAnalysisHandler(
		analyzeUC,
		usecase.NewGetAnalysisUseCase(opts.repo, nil, log),
		usecase.NewListAnalysesUseCase(opts.repo, nil, log),
		usecase.NewDeleteAnalysisUseCase(opts.repo, nil, nil, hub, log),
		usecase.NewClearHistoryUseCase(opts.repo, nil, nil, hub, log),
		opts.reportsUC,
		handler.AnalysisHandlerConfig{MaxFiles: 3, MaxFileBytes: 1 << 20, DefaultLanguage: "fr"},
		log,
	)

	readiness := system.NewReadiness(time.Second)
	readiness.Register("history", func(ctx context.Context) error {
		_, err := opts.repo.Count(ctx)
		return err
	})

	limiter := middleware.NewIPRateLimiter(60, opts.rateBurst)
	limiter.OnDrop = promMetrics.RateLimitDropped.Inc
	t.Cleanup(limiter.Stop)

	router := NewRouter(
		analysisHandler,
		handler.NewWebSocketHandler(hub, security.AllowedOrigins, authConfig, log),
		handler.NewAuthAPIHandler(authConfig, log),
		handler.NewHealthHandler(readiness, "test"),
		promMetrics,
		limiter,
		security,
		log,
	)

	server := httptest.NewServer(router.Setup())
	t.Cleanup(server.Close)
	return &testServer{Server: server, hub: hub}
}

func jsonUpload(t *testing.T, files ...[3]string) *bytes.Buffer {
	t.Helper()
	type file struct {
		Name    string `json:"name"`
		Content string `json:"content"`
		Size    int    `json:"size"`
		Type    string `json:"type"`
	}
	payload := struct {
		Files []file `json:"files"`
	}{Files: make([]file, 0, len(files))}
	for _, f := range files {
		// заявленный клиентом размер сервер не использует
		payload.Files = append(payload.Files, file{Name: f[0], Content: f[1], Size: 1, Type: f[2]})
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return bytes.NewBuffer(raw)
}

func sampleFiles() [][3]string {
	return [][3]string{
		{"A_fastqc_data.txt", fastqcReport, "text/plain"},
		{"B_multiqc.json", multiqcReport, "application/json"},
	}
}

func doRequest(t *testing.T, client *http.Client, method, url string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func TestE2EHealthEndpoints(t *testing.T) {
	server := newTestServer(t, testServerOptions{})

	resp := doRequest(t, server.Client(), http.MethodGet, server.URL+"/healthz", nil, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, server.Client(), http.MethodGet, server.URL+"/readyz", nil, nil)
	var ready struct {
		Ready  bool                 `json:"ready"`
		Checks []system.CheckResult `json:"checks"`
	}
	decodeBody(t, resp, &ready)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, ready.Ready)
	require.Len(t, ready.Checks, 1)
	assert.Equal(t, "history", ready.Checks[0].Name)

	resp = doRequest(t, server.Client(), http.MethodGet, server.URL+"/metrics", nil, nil)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), `fastqc_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
}

func TestE2EAnalysisLifecycle(t *testing.T) {
	server := newTestServer(t, testServerOptions{})
	client := server.Client()
	base := server.URL + "/api/v1/analyses"

	resp := doRequest(t, client, http.MethodPost, base, jsonUpload(t, sampleFiles()...), map[string]string{
		"Content-Type": "application/json",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created dto.AnalysisDTO
	location := resp.Header.Get("Location")
	decodeBody(t, resp, &created)

	assert.Equal(t, "/api/v1/analyses/"+created.ID, location)
	assert.Equal(t, "A_fastqc_data.txt, B_multiqc.json", created.FileName)
	assert.Equal(t, int64(2_500_000), created.Data.Summary.TotalReads)
	assert.Equal(t, "good", created.Data.Summary.Status)
	require.Len(t, created.Data.Files, 2)
	for i, f := range sampleFiles() {
		assert.Equal(t, int64(len(f[1])), created.Data.Files[i].Size, f[0])
		assert.Equal(t, f[2], created.Data.Files[i].Type, f[0])
	}

	resp = doRequest(t, client, http.MethodGet, base, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list dto.AnalysisListDTO
	decodeBody(t, resp, &list)
	require.Len(t, list.Items, 1)
	assert.Equal(t, int64(1), list.Total)
	assert.Equal(t, created.ID, list.Items[0].ID)

	resp = doRequest(t, client, http.MethodGet, base+"/"+created.ID, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fetched dto.AnalysisDTO
	decodeBody(t, resp, &fetched)
	assert.Equal(t, created.Data.Summary, fetched.Data.Summary)

	resp = doRequest(t, client, http.MethodGet, base+"/"+created.ID+"/reports", nil, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)

	resp = doRequest(t, client, http.MethodDelete, base+"/"+created.ID, nil, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doRequest(t, client, http.MethodGet, base+"/"+created.ID, nil, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doRequest(t, client, http.MethodDelete, base+"/"+created.ID, nil, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doRequest(t, client, http.MethodDelete, base, nil, nil)
	var cleared map[string]int64
	decodeBody(t, resp, &cleared)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(0), cleared["deleted"])
}

func TestE2EMultipartUpload(t *testing.T) {
	server := newTestServer(t, testServerOptions{})

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, f := range sampleFiles() {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, f[0]))
		header.Set("Content-Type", f[2])
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = io.WriteString(part, f[1])
		require.NoError(t, err)
	}
	require.NoError(t, writer.WriteField("language", "en"))
	require.NoError(t, writer.Close())

	resp := doRequest(t, server.Client(), http.MethodPost, server.URL+"/api/v1/analyses", body, map[string]string{
		"Content-Type": writer.FormDataContentType(),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created dto.AnalysisDTO
	decodeBody(t, resp, &created)
	assert.Equal(t, int64(2_500_000), created.Data.Summary.TotalReads)
	require.NotEmpty(t, created.Data.Recommendations)
	assert.NotContains(t, created.Data.Recommendations[0], "procéder")
}

func TestE2EUploadErrors(t *testing.T) {
	server := newTestServer(t, testServerOptions{})
	url := server.URL + "/api/v1/analyses"
	jsonHeaders := map[string]string{"Content-Type": "application/json"}

	tests := []struct {
		name       string
		body       io.Reader
		headers    map[string]string
		wantStatus int
		wantError  string
	}{
		{"no files", bytes.NewBufferString(`{"files":[]}`), jsonHeaders, http.StatusBadRequest, "no files to analyze"},
		{"malformed json", bytes.NewBufferString(`{"files":`), jsonHeaders, http.StatusBadRequest, "invalid input"},
		{"rejected format", jsonUpload(t, [3]string{"photo.png", "binary", "image/png"}), jsonHeaders, http.StatusUnsupportedMediaType, "photo.png"},
		{"too many files", jsonUpload(t, sampleFiles()[0], sampleFiles()[0], sampleFiles()[0], sampleFiles()[0]), jsonHeaders, http.StatusRequestEntityTooLarge, "too many files"},
		{"unsupported content type", strings.NewReader("x"), map[string]string{"Content-Type": "text/csv"}, http.StatusUnsupportedMediaType, "unsupported"},
		{"missing content type", strings.NewReader("x"), nil, http.StatusBadRequest, "Content-Type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doRequest(t, server.Client(), http.MethodPost, url, tt.body, tt.headers)
			var payload map[string]string
			decodeBody(t, resp, &payload)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Contains(t, payload["error"], tt.wantError)
		})
	}

	resp := doRequest(t, server.Client(), http.MethodGet, url+"?from=yesterday", nil, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestE2EAuth(t *testing.T) {
	server := newTestServer(t, testServerOptions{authEnabled: true})
	client := server.Client()

	resp := doRequest(t, client, http.MethodGet, server.URL+"/api/v1/auth/status", nil, nil)
	var status map[string]any
	decodeBody(t, resp, &status)
	assert.Equal(t, true, status["auth_enabled"])
	assert.Equal(t, false, status["authenticated"])

	resp = doRequest(t, client, http.MethodGet, server.URL+"/api/v1/analyses", nil, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doRequest(t, client, http.MethodPost, server.URL+"/api/v1/auth/login", bytes.NewBufferString(`{"token":"bad-token"}`), map[string]string{
		"Content-Type": "application/json",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doRequest(t, client, http.MethodPost, server.URL+"/api/v1/auth/login", bytes.NewBufferString(`{"token":"`+testToken+`"}`), map[string]string{
		"Content-Type": "application/json",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cookies := resp.Cookies()
	require.NotEmpty(t, cookies)

	req, err := http.NewRequest(http.MethodGet, server.URL+"/api/v1/analyses", nil)
	require.NoError(t, err)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	resp, err = client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, client, http.MethodGet, server.URL+"/api/v1/analyses", nil, map[string]string{
		"Authorization": "Bearer " + testToken,
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, client, http.MethodGet, server.URL+"/metrics", nil, nil)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "fastqc_auth_failures_total 2")
}

func TestE2ERateLimit(t *testing.T) {
	server := newTestServer(t, testServerOptions{rateBurst: 2})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp := doRequest(t, server.Client(), http.MethodPost, server.URL+"/api/v1/analyses", jsonUpload(t, sampleFiles()...), map[string]string{
			"Content-Type": "application/json",
		})
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}

	assert.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, codes)

	// Чтение истории не ограничивается
	resp := doRequest(t, server.Client(), http.MethodGet, server.URL+"/api/v1/analyses", nil, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestE2EWebSocketFeed(t *testing.T) {
	server := newTestServer(t, testServerOptions{authEnabled: true})
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": []string{testOrigin}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(wsURL+"?token="+testToken+"&types=bogus", http.Header{"Origin": []string{testOrigin}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+testToken+"&types=analysis_completed", http.Header{"Origin": []string{testOrigin}})
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return server.hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	resp = doRequest(t, server.Client(), http.MethodPost, server.URL+"/api/v1/analyses", jsonUpload(t, sampleFiles()...), map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + testToken,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created dto.AnalysisDTO
	decodeBody(t, resp, &created)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg struct {
		Type string               `json:"type"`
		Data dto.AnalysisEventDTO `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&msg))

	assert.Equal(t, dto.EventAnalysisCompleted, msg.Type)
	assert.Equal(t, created.ID, msg.Data.AnalysisID)
	assert.Equal(t, 2, msg.Data.FileCount)
}
