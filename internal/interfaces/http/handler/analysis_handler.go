package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dreschagin/fastqc-analyzer/internal/application/usecase"
	"github.com/dreschagin/fastqc-analyzer/internal/domain/repository"
	"github.com/dreschagin/fastqc-analyzer/internal/domain/service"
	"github.com/dreschagin/fastqc-analyzer/internal/interfaces/http/middleware"
	"github.com/dreschagin/fastqc-analyzer/pkg/logger"
)

const multipartMemory = 32 << 20

// AnalysisHandlerConfig - ограничения загрузки
type AnalysisHandlerConfig struct {
	MaxFiles        int
	MaxFileBytes    int64
	DefaultLanguage string
}

// AnalysisHandler обрабатывает загрузку отчетов и историю анализов
type AnalysisHandler struct {
	analyzeUC  *usecase.AnalyzeReportsUseCase
	getUC      *usecase.GetAnalysisUseCase
	listUC     *usecase.ListAnalysesUseCase
	deleteUC   *usecase.DeleteAnalysisUseCase
	clearUC    *usecase.ClearHistoryUseCase
	reportsUC  *usecase.ListArchivedReportsUseCase
	config     AnalysisHandlerConfig
	maxRequest int64
	logger     *logger.Logger
}

// uploadFileRequest - файл в JSON запросе. Размер всегда считается по content,
// поле size от клиента игнорируется
type uploadFileRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	Type    string `json:"type"`
}

type analyzeRequest struct {
	Files    []uploadFileRequest `json:"files"`
	Language string              `json:"language"`
}

// NewAnalysisHandler создает handler; reportsUC может быть nil, если архив выключен
func NewAnalysisHandler(
	analyzeUC *usecase.AnalyzeReportsUseCase,
	getUC *usecase.GetAnalysisUseCase,
	listUC *usecase.ListAnalysesUseCase,
	deleteUC *usecase.DeleteAnalysisUseCase,
	clearUC *usecase.ClearHistoryUseCase,
	reportsUC *usecase.ListArchivedReportsUseCase,
	config AnalysisHandlerConfig,
	log *logger.Logger,
) *AnalysisHandler {
	if config.MaxFiles <= 0 {
		config.MaxFiles = 20
	}
	if config.MaxFileBytes <= 0 {
		config.MaxFileBytes = 50 << 20
	}

	// JSON кодирование раздувает содержимое, поэтому запас x2 плюс 1MB на заголовки
	maxRequest := int64(config.MaxFiles)*config.MaxFileBytes*2 + 1<<20

	return &AnalysisHandler{
		analyzeUC:  analyzeUC,
		getUC:      getUC,
		listUC:     listUC,
		deleteUC:   deleteUC,
		clearUC:    clearUC,
		reportsUC:  reportsUC,
		config:     config,
		maxRequest: maxRequest,
		logger:     log,
	}
}

// Create принимает multipart (части files) или JSON и запускает анализ
func (h *AnalysisHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxRequest)
	defer r.Body.Close()

	cmd, err := h.decodeUpload(r)
	if err != nil {
		h.writeUseCaseError(w, r, err)
		return
	}

	if cmd.Language == "" {
		cmd.Language = r.Header.Get("Accept-Language")
	}
	if cmd.Language == "" {
		cmd.Language = h.config.DefaultLanguage
	}

	analysis, err := h.analyzeUC.Execute(r.Context(), cmd)
	if err != nil {
		h.writeUseCaseError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/analyses/"+analysis.ID)
	middleware.WriteJSON(w, http.StatusCreated, analysis)
}

func (h *AnalysisHandler) decodeUpload(r *http.Request) (usecase.AnalyzeReportsCommand, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return usecase.AnalyzeReportsCommand{}, fmt.Errorf("%w: missing or invalid Content-Type", usecase.ErrInvalidInput)
	}

	switch mediaType {
	case "multipart/form-data":
		return h.decodeMultipart(r)
	case "application/json":
		return h.decodeJSON(r)
	default:
		return usecase.AnalyzeReportsCommand{}, fmt.Errorf("%w: content type %s", usecase.ErrUnsupportedFormat, mediaType)
	}
}

func (h *AnalysisHandler) decodeMultipart(r *http.Request) (usecase.AnalyzeReportsCommand, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return usecase.AnalyzeReportsCommand{}, wrapBodyError(err)
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File["file"]
	}
	if len(headers) > h.config.MaxFiles {
		return usecase.AnalyzeReportsCommand{}, fmt.Errorf("%w: %d files, limit is %d", usecase.ErrTooManyFiles, len(headers), h.config.MaxFiles)
	}

	uploads := make([]usecase.ReportUpload, 0, len(headers))
	for _, header := range headers {
		upload, err := h.readPart(header)
		if err != nil {
			return usecase.AnalyzeReportsCommand{}, err
		}
		uploads = append(uploads, upload)
	}

	return usecase.AnalyzeReportsCommand{
		Files:    uploads,
		Language: strings.TrimSpace(r.FormValue("language")),
	}, nil
}

func (h *AnalysisHandler) readPart(header *multipart.FileHeader) (usecase.ReportUpload, error) {
	if header.Size > h.config.MaxFileBytes {
		return usecase.ReportUpload{}, fmt.Errorf("%w: %s", usecase.ErrFileTooLarge, header.Filename)
	}

	file, err := header.Open()
	if err != nil {
		return usecase.ReportUpload{}, fmt.Errorf("failed to open upload %s: %w", header.Filename, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.config.MaxFileBytes+1))
	if err != nil {
		return usecase.ReportUpload{}, fmt.Errorf("failed to read upload %s: %w", header.Filename, err)
	}

	return usecase.ReportUpload{
		Name:     header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}

func (h *AnalysisHandler) decodeJSON(r *http.Request) (usecase.AnalyzeReportsCommand, error) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return usecase.AnalyzeReportsCommand{}, wrapBodyError(err)
	}

	uploads := make([]usecase.ReportUpload, len(req.Files))
	for i, f := range req.Files {
		uploads[i] = usecase.ReportUpload{
			Name:     f.Name,
			MimeType: f.Type,
			Data:     []byte(f.Content),
		}
	}

	return usecase.AnalyzeReportsCommand{
		Files:    uploads,
		Language: strings.TrimSpace(req.Language),
	}, nil
}

// List возвращает историю (limit, from, to в RFC3339)
func (h *AnalysisHandler) List(w http.ResponseWriter, r *http.Request) {
	query, err := parseListQuery(r)
	if err != nil {
		h.writeUseCaseError(w, r, err)
		return
	}

	list, err := h.listUC.Execute(r.Context(), query)
	if err != nil {
		h.writeUseCaseError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, list)
}

func parseListQuery(r *http.Request) (usecase.ListAnalysesQuery, error) {
	var query usecase.ListAnalysesQuery
	values := r.URL.Query()

	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return query, fmt.Errorf("%w: invalid limit", usecase.ErrInvalidInput)
		}
		query.Limit = limit
	}

	for _, param := range []struct {
		name string
		dest *time.Time
	}{{"from", &query.From}, {"to", &query.To}} {
		raw := values.Get(param.name)
		if raw == "" {
			continue
		}
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return query, fmt.Errorf("%w: %s must be RFC3339", usecase.ErrInvalidInput, param.name)
		}
		*param.dest = parsed
	}

	return query, nil
}

// Get возвращает один анализ
func (h *AnalysisHandler) Get(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.getUC.Execute(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeUseCaseError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, analysis)
}

// Delete удаляет один анализ
func (h *AnalysisHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.deleteUC.Execute(r.Context(), r.PathValue("id")); err != nil {
		h.writeUseCaseError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Clear очищает историю
func (h *AnalysisHandler) Clear(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.clearUC.Execute(r.Context())
	if err != nil {
		h.writeUseCaseError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

// ListReports возвращает архивированные исходные отчеты анализа
func (h *AnalysisHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	if h.reportsUC == nil {
		middleware.WriteError(w, http.StatusNotImplemented, "report archive is disabled")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			middleware.WriteError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	result, err := h.reportsUC.Execute(r.Context(), usecase.ListArchivedReportsCommand{
		AnalysisID: r.PathValue("id"),
		Limit:      limit,
		Cursor:     r.URL.Query().Get("cursor"),
	})
	if err != nil {
		h.writeUseCaseError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}

// writeUseCaseError переводит ошибки приложения в HTTP статусы
func (h *AnalysisHandler) writeUseCaseError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", err,
			"path", r.URL.Path,
			"request_id", middleware.RequestIDFromContext(r.Context()),
		)
		message = "internal server error"
	}

	middleware.WriteError(w, status, message)
}

func statusFor(err error) int {
	var maxBytes *http.MaxBytesError

	switch {
	case errors.Is(err, service.ErrEmptyInput), errors.Is(err, usecase.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrAnalysisNotFound):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, usecase.ErrTooManyFiles), errors.Is(err, usecase.ErrFileTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func wrapBodyError(err error) error {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return fmt.Errorf("%w: request body exceeds %d bytes", usecase.ErrFileTooLarge, maxBytes.Limit)
	}
	return fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err)
}
