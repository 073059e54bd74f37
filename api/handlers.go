/*
handlers.go - HTTP API handlers for the payslip compliance checker

PURPOSE:
  Exposes the analysis session via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the analysis service.

ENDPOINTS:
  Imports:
    POST   /api/imports                Import a {"bulletins": [...]} document
    GET    /api/imports/current        Describe the active dataset
    DELETE /api/imports/current        Drop the dataset and stored imports

  Periods:
    GET    /api/periods                List periods, chronological
    GET    /api/periods/{key}          Figures, contributions and verdicts
    GET    /api/report                 Verdicts for every period

  Reference data:
    GET    /api/rate-tables/{year}     Reference rates of a fiscal year
    GET    /api/rules                  Rules applied by the session

  Scenarios:
    GET    /api/scenarios              List demo datasets
    POST   /api/scenarios/load         Import a demo dataset

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call the analysis service
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid document, malformed period key or year
  - 404: No dataset, unknown period, unknown fiscal year
  - 413: Document too large
  - 415: Upload is not JSON
  - 500: Internal errors

SECURITY NOTE:
  No authentication. The tool is meant to run locally.

SEE ALSO:
  - dto.go: Response data structures
  - scenarios.go: Demo datasets
  - server.go: Router setup and middleware
  - analysis/service.go: Session semantics
*/
package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/warp/payslip-compliance/analysis"
	"github.com/warp/payslip-compliance/compliance"
	"github.com/warp/payslip-compliance/factory"
	"go.uber.org/zap"
)

// DefaultMaxUploadBytes bounds an imported document.
const DefaultMaxUploadBytes = 10 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service  *analysis.Service
	Registry *compliance.Registry
	Logger   *zap.Logger

	MaxUploadBytes int64
}

// NewHandler creates a new handler for the given session.
func NewHandler(svc *analysis.Service, registry *compliance.Registry, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Service:        svc,
		Registry:       registry,
		Logger:         logger,
		MaxUploadBytes: DefaultMaxUploadBytes,
	}
}

// =============================================================================
// IMPORT HANDLERS
// =============================================================================

// ImportDocument replaces the active dataset.
// POST /api/imports?file_name=export.json
func (h *Handler) ImportDocument(w http.ResponseWriter, r *http.Request) {
	if !isJSONContentType(r.Header.Get("Content-Type")) {
		writeError(w, http.StatusUnsupportedMediaType, "Only JSON documents can be imported", nil)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.MaxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Document too large", err)
			return
		}
		writeError(w, http.StatusBadRequest, "Failed to read document", err)
		return
	}

	ds, err := h.Service.Import(r.Context(), r.URL.Query().Get("file_name"), data)
	if err != nil {
		h.writeServiceError(w, "Failed to import document", err)
		return
	}

	writeJSON(w, http.StatusCreated, toImportDTO(ds))
}

// GetCurrentImport describes the active dataset.
// GET /api/imports/current
func (h *Handler) GetCurrentImport(w http.ResponseWriter, r *http.Request) {
	ds, err := h.Service.Dataset()
	if err != nil {
		h.writeServiceError(w, "No dataset", err)
		return
	}
	writeJSON(w, http.StatusOK, toImportDTO(ds))
}

// ResetImports drops the active dataset and every stored import.
// DELETE /api/imports/current
func (h *Handler) ResetImports(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Reset(r.Context()); err != nil {
		h.writeServiceError(w, "Failed to reset", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PERIOD HANDLERS
// =============================================================================

// ListPeriods returns the periods of the active dataset.
// GET /api/periods
func (h *Handler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := h.Service.Periods()
	if err != nil {
		h.writeServiceError(w, "Failed to list periods", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"periods": toPeriodDTOs(periods)})
}

// GetPeriod evaluates one period.
// GET /api/periods/{key}
func (h *Handler) GetPeriod(w http.ResponseWriter, r *http.Request) {
	key, err := compliance.ParsePeriodKey(chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return
	}

	result, err := h.Service.Analyze(key)
	if err != nil {
		h.writeServiceError(w, "Failed to analyze period", err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodDetail(result))
}

// GetReport evaluates every period.
// GET /api/report
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	ds, err := h.Service.Dataset()
	if err != nil {
		h.writeServiceError(w, "No dataset", err)
		return
	}
	entries, err := h.Service.Report(r.Context())
	if err != nil {
		h.writeServiceError(w, "Failed to build report", err)
		return
	}
	writeJSON(w, http.StatusOK, toReport(ds, entries))
}

// =============================================================================
// REFERENCE DATA HANDLERS
// =============================================================================

// GetRateTable returns a fiscal year's reference rates.
// GET /api/rate-tables/{year}
func (h *Handler) GetRateTable(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}

	table, err := h.Registry.Load(year)
	if err != nil {
		h.writeServiceError(w, "Unknown fiscal year", err)
		return
	}
	writeJSON(w, http.StatusOK, toRateTableDTO(table))
}

// ListRules returns the rules applied by the session.
// GET /api/rules
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"fiscal_year": h.Service.Table().Year(),
		"rules":       toRuleDTOs(h.Service.Rules()),
	})
}

// Health reports liveness.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeServiceError maps service errors to HTTP status codes.
func (h *Handler) writeServiceError(w http.ResponseWriter, message string, err error) {
	switch {
	case analysis.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, factory.ErrInvalidDocument), compliance.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.Logger.Error(message, zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

// isJSONContentType accepts a missing content type, JSON and +json types.
func isJSONContentType(header string) bool {
	if header == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || mediaType == "text/json" ||
		strings.HasSuffix(mediaType, "+json")
}
