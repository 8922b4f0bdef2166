// Package handler exposes EPD parsing and stored documents over HTTP.
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/FACorreiaa/epd-parser/internal/domain/epd"
	"github.com/FACorreiaa/epd-parser/internal/domain/epd/export"
	"github.com/FACorreiaa/epd-parser/internal/domain/epd/service"
)

const (
	uploadField = "file"

	// multipart boundaries and headers on top of the file itself
	multipartOverhead = 1 << 20

	contentTypeJSON = "application/json"
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var errMissingFile = errors.New("multipart field \"file\" is required")

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// DocumentHandler serves the /v1/documents API.
type DocumentHandler struct {
	svc     *service.ImportService
	limiter *rate.Limiter // Optional: nil disables upload rate limiting
	health  HealthCheck   // Optional
	logger  *slog.Logger
}

// NewDocumentHandler creates a handler backed by svc.
func NewDocumentHandler(svc *service.ImportService, logger *slog.Logger) *DocumentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentHandler{svc: svc, logger: logger}
}

// WithRateLimit limits uploads to perSecond requests with the given burst.
func (h *DocumentHandler) WithRateLimit(perSecond float64, burst int) *DocumentHandler {
	if perSecond > 0 && burst > 0 {
		h.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
	return h
}

// WithHealthCheck adds a dependency check to /healthz.
func (h *DocumentHandler) WithHealthCheck(check HealthCheck) *DocumentHandler {
	h.health = check
	return h
}

// Register mounts the routes on mux.
func (h *DocumentHandler) Register(mux *http.ServeMux) {
	mux.Handle("POST /v1/documents", h.rateLimited(http.HandlerFunc(h.Upload)))
	mux.HandleFunc("GET /v1/documents", h.List)
	mux.HandleFunc("GET /v1/documents/{id}", h.Get)
	mux.HandleFunc("DELETE /v1/documents/{id}", h.Delete)
	mux.HandleFunc("GET /v1/documents/{id}/{file}", h.Export)
	mux.HandleFunc("GET /healthz", h.Healthz)
}

func (h *DocumentHandler) rateLimited(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.limiter != nil && !h.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "too many uploads, retry later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// DocumentResponse is the body returned for a parsed or stored document.
type DocumentResponse struct {
	ID        string                    `json:"id,omitempty"`
	Strategy  string                    `json:"strategy"`
	Persisted bool                      `json:"persisted"`
	CreatedAt *time.Time                `json:"created_at,omitempty"`
	Warnings  []epd.ParseWarning        `json:"warnings,omitempty"`
	Failures  []service.StrategyFailure `json:"failures,omitempty"`
	Result    epd.Output                `json:"result"`
}

// DocumentSummary is one entry of the list response.
type DocumentSummary struct {
	ID                    string    `json:"id"`
	AccountNumber         string    `json:"account_number"`
	PaymentPeriod         string    `json:"payment_period"`
	Strategy              string    `json:"strategy"`
	TotalWithoutInsurance string    `json:"total_without_insurance"`
	TotalWithInsurance    string    `json:"total_with_insurance"`
	CreatedAt             time.Time `json:"created_at"`
}

// Upload parses a multipart PDF upload. With persist=true the document is
// stored and 201 is returned.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	persist := false
	if v := r.URL.Query().Get("persist"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "persist must be true or false")
			return
		}
		persist = b
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.svc.MaxUploadBytes()+multipartOverhead)

	part, err := filePart(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	defer part.Close()

	result, err := h.svc.Import(r.Context(), part.FileName(), part, service.ImportOptions{Persist: persist})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	doc := result.Document
	resp := toResponse(doc)
	resp.Persisted = result.Persisted
	resp.Failures = result.Failures
	if !result.Persisted {
		resp.ID = ""
		resp.CreatedAt = nil
	}

	status := http.StatusOK
	if result.Persisted {
		status = http.StatusCreated
		w.Header().Set("Location", "/v1/documents/"+doc.ID.String())
	}

	h.logger.Info("document parsed",
		slog.String("strategy", doc.Strategy),
		slog.String("account", doc.Header.AccountNumber),
		slog.Int("services", len(doc.Services)),
		slog.Bool("persisted", result.Persisted),
	)
	writeJSON(w, status, resp)
}

// Get returns a stored document.
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.loadDocument(w, r)
	if !ok {
		return
	}
	resp := toResponse(doc)
	resp.Persisted = true
	writeJSON(w, http.StatusOK, resp)
}

// List returns stored documents, newest first, optionally for one account.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := queryInt(q.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}
	offset, err := queryInt(q.Get("offset"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "offset must be an integer")
		return
	}

	docs, err := h.svc.ListDocuments(r.Context(), q.Get("account"), limit, offset)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	out := make([]DocumentSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, DocumentSummary{
			ID:                    d.ID.String(),
			AccountNumber:         d.Header.AccountNumber,
			PaymentPeriod:         d.Header.PaymentPeriod,
			Strategy:              d.Strategy,
			TotalWithoutInsurance: d.Totals.TotalWithoutInsurance.StringFixed(2),
			TotalWithInsurance:    d.Totals.TotalWithInsurance.StringFixed(2),
			CreatedAt:             d.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": out})
}

// Delete removes a stored document.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}
	if err := h.svc.DeleteDocument(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Export renders a stored document as export.csv or export.xlsx.
func (h *DocumentHandler) Export(w http.ResponseWriter, r *http.Request) {
	var (
		contentType string
		write       func(io.Writer, *epd.Document) error
		ext         string
	)
	switch r.PathValue("file") {
	case "export.csv":
		contentType, write, ext = contentTypeCSV, export.WriteCSV, "csv"
	case "export.xlsx":
		contentType, write, ext = contentTypeXLSX, export.WriteXLSX, "xlsx"
	default:
		http.NotFound(w, r)
		return
	}

	doc, ok := h.loadDocument(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := write(&buf, doc); err != nil {
		h.logger.Error("failed to export document",
			slog.String("document_id", doc.ID.String()),
			slog.Any("error", err),
		)
		writeError(w, http.StatusInternalServerError, "failed to export document")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="epd-%s-%s.%s"`, doc.Header.AccountNumber, doc.ID, ext))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("failed to write export", slog.Any("error", err))
	}
}

// Healthz reports liveness and, when configured, dependency health.
func (h *DocumentHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.health(ctx); err != nil {
			h.logger.Warn("health check failed", slog.Any("error", err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *DocumentHandler) loadDocument(w http.ResponseWriter, r *http.Request) (*epd.Document, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return nil, false
	}
	doc, err := h.svc.GetDocument(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return nil, false
	}
	return doc, true
}

// writeServiceError maps service and parse errors to one status and message.
func (h *DocumentHandler) writeServiceError(w http.ResponseWriter, err error) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes), errors.Is(err, service.ErrFileTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, service.ErrFileTooLarge.Error())
	case errors.Is(err, service.ErrNotPDF):
		writeError(w, http.StatusBadRequest, service.ErrNotPDF.Error())
	case errors.Is(err, errMissingFile), errors.Is(err, http.ErrNotMultipart):
		writeError(w, http.StatusBadRequest, errMissingFile.Error())
	case errors.Is(err, service.ErrParseFailed):
		h.logger.Warn("document rejected", slog.Any("error", err))
		writeError(w, http.StatusUnprocessableEntity, service.ErrParseFailed.Error())
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, service.ErrNotFound.Error())
	case errors.Is(err, service.ErrPersistenceDisabled):
		writeError(w, http.StatusServiceUnavailable, service.ErrPersistenceDisabled.Error())
	case errors.Is(err, context.Canceled):
		// client went away
	default:
		h.logger.Error("request failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// filePart streams to the "file" field without buffering the whole form.
func filePart(r *http.Request) (*multipart.Part, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, err
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, errMissingFile
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read multipart body: %w", err)
		}
		if part.FormName() == uploadField {
			return part, nil
		}
		part.Close()
	}
}

func toResponse(doc *epd.Document) DocumentResponse {
	resp := DocumentResponse{
		ID:       doc.ID.String(),
		Strategy: doc.Strategy,
		Warnings: doc.Warnings,
		Result:   doc.Output(),
	}
	if !doc.CreatedAt.IsZero() {
		created := doc.CreatedAt
		resp.CreatedAt = &created
	}
	return resp
}

func queryInt(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Warn("failed to encode response", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
