/*
handlers.go - HTTP API handlers for the advance tax engine

PURPOSE:
  Exposes the engine and the estimate service via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Calendar & stateless analysis:
    GET    /api/due-dates?fy=2024-25          Installment calendar
    POST   /api/analyze                       Analyze an estimate document

  Estimates:
    GET    /api/estimates                     List estimates
    POST   /api/estimates                     Create (with optional payments)
    GET    /api/estimates/{id}                Get estimate
    PUT    /api/estimates/{id}                Change liability / assessment date
    DELETE /api/estimates/{id}                Delete with payments and schedule
    GET    /api/estimates/{id}/schedule       Stored schedule
    GET    /api/estimates/{id}/analysis       Fresh analysis as of today
    POST   /api/estimates/{id}/recalculate    Recalculate and store

  Payments:
    GET    /api/estimates/{id}/payments       List payments
    POST   /api/estimates/{id}/payments       Record payment
    PUT    /api/payments/{id}                 Correct payment
    DELETE /api/payments/{id}                 Remove payment

  Recalculation:
    POST   /api/recalculate                   Run a pass over every estimate
    GET    /api/recalculation/runs            Scheduler audit trail

  Scenarios:
    GET    /api/scenarios                     List demo scenarios
    POST   /api/scenarios/load                Load a demo scenario

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Service: estimate writes and recalculation
  - Store: run audit and reset (scenarios)
  - Factory: document parsing and validation

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Estimate or payment not found
  - 409: Estimate already exists for taxpayer and year
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/warp/advance-tax/advancetax"
	"github.com/warp/advance-tax/estimate"
	"github.com/warp/advance-tax/factory"
	"github.com/warp/advance-tax/store/sqlite"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service   *estimate.Service
	Store     *sqlite.Store
	Factory   *factory.EstimateFactory
	Metrics   *Metrics
	Scheduler *RecalculationScheduler

	log zerolog.Logger

	// Track currently loaded scenario
	mu              sync.RWMutex
	currentScenario string
}

// NewHandler creates a new handler.
func NewHandler(svc *estimate.Service, store *sqlite.Store, metrics *Metrics, log zerolog.Logger) *Handler {
	return &Handler{
		Service: svc,
		Store:   store,
		Factory: factory.NewEstimateFactory(),
		Metrics: metrics,
		log:     log.With().Str("component", "api").Logger(),
	}
}

// =============================================================================
// CALENDAR & ANALYSIS ENDPOINTS
// =============================================================================

// GetDueDates returns the installment calendar. Without ?fy the current
// financial year is used.
func (h *Handler) GetDueDates(w http.ResponseWriter, r *http.Request) {
	fy := advancetax.FinancialYearFor(h.Service.Engine().Today())
	if raw := r.URL.Query().Get("fy"); raw != "" {
		parsed, err := advancetax.ParseFinancialYear(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid financial year", err)
			return
		}
		fy = parsed
	}

	writeJSON(w, http.StatusOK, NewDueDatesResponse(fy))
}

// Analyze runs the engine on a posted document without storing anything.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	doc, err := h.Factory.ParseEstimate(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid estimate", err)
		return
	}

	input, err := doc.ToInput(h.Service.Engine().Today())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid estimate", err)
		return
	}

	result := advancetax.Analyze(input)
	h.Metrics.ObserveAnalysis("stateless")
	writeJSON(w, http.StatusOK, NewAnalysisDTO(result))
}

// =============================================================================
// ESTIMATE ENDPOINTS
// =============================================================================

// ListEstimates returns all estimates.
func (h *Handler) ListEstimates(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.ListEstimates(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEstimateDTOs(list))
}

// CreateEstimate creates an estimate from a document and records its payments.
func (h *Handler) CreateEstimate(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	doc, err := h.Factory.ParseEstimate(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid estimate", err)
		return
	}

	created, err := h.createFromDocument(r.Context(), doc)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEstimateDTO(*created))
}

func (h *Handler) createFromDocument(ctx context.Context, doc *factory.EstimateJSON) (*estimate.Estimate, error) {
	cmd, payments, err := doc.ToNewEstimate()
	if err != nil {
		return nil, err
	}

	created, err := h.Service.CreateEstimate(ctx, cmd)
	if err != nil {
		return nil, err
	}
	for _, p := range payments {
		if _, err := h.Service.AddPayment(ctx, created.ID, p); err != nil {
			return nil, err
		}
	}
	if len(payments) == 0 {
		return created, nil
	}
	return h.Service.GetEstimate(ctx, created.ID)
}

// GetEstimate returns one estimate.
func (h *Handler) GetEstimate(w http.ResponseWriter, r *http.Request) {
	e, err := h.Service.GetEstimate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEstimateDTO(*e))
}

// UpdateEstimate changes the liability and/or assessment date.
func (h *Handler) UpdateEstimate(w http.ResponseWriter, r *http.Request) {
	var req UpdateEstimateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var upd estimate.EstimateUpdate
	if req.NetTaxLiability != nil {
		d := req.NetTaxLiability.Decimal
		upd.NetTaxLiability = &d
	}
	if req.AssessmentDate != nil {
		if *req.AssessmentDate == "" {
			upd.ClearAssessmentDate = true
		} else {
			d, err := advancetax.ParseDate(*req.AssessmentDate)
			if err != nil {
				writeError(w, http.StatusBadRequest, "Invalid assessment date", err)
				return
			}
			upd.AssessmentDate = &d
		}
	}

	updated, err := h.Service.UpdateEstimate(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEstimateDTO(*updated))
}

// DeleteEstimate removes an estimate with its payments and schedule.
func (h *Handler) DeleteEstimate(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteEstimate(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSchedule returns the schedule stored by the last recalculation.
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Service.Schedule(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleRecordDTOs(rows))
}

// GetAnalysis runs a fresh analysis of a stored estimate as of today.
func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	result, err := h.Service.Analysis(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.Metrics.ObserveAnalysis("estimate")
	writeJSON(w, http.StatusOK, NewAnalysisDTO(*result))
}

// RecalculateEstimate recomputes and stores one estimate.
func (h *Handler) RecalculateEstimate(w http.ResponseWriter, r *http.Request) {
	e, err := h.Service.Recalculate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEstimateDTO(*e))
}

// =============================================================================
// PAYMENT ENDPOINTS
// =============================================================================

// ListPayments returns the payments of an estimate in date order.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	e, err := h.Service.GetEstimate(ctx, id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	payments, err := h.Service.ListPayments(ctx, id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	out := make([]PaymentDTO, 0, len(payments))
	for _, p := range payments {
		out = append(out, toPaymentDTO(p, e.FinancialYear))
	}
	writeJSON(w, http.StatusOK, out)
}

// AddPayment records a payment and recalculates the estimate.
func (h *Handler) AddPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	cmd, ok := h.decodePayment(w, r)
	if !ok {
		return
	}

	p, err := h.Service.AddPayment(ctx, id, cmd)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writePayment(w, r, http.StatusCreated, *p)
}

// UpdatePayment corrects a payment and recalculates its estimate.
func (h *Handler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	cmd, ok := h.decodePayment(w, r)
	if !ok {
		return
	}

	p, err := h.Service.UpdatePayment(r.Context(), chi.URLParam(r, "id"), cmd)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writePayment(w, r, http.StatusOK, *p)
}

// DeletePayment removes a payment and recalculates its estimate.
func (h *Handler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeletePayment(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodePayment(w http.ResponseWriter, r *http.Request) (estimate.NewPayment, bool) {
	var req PaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return estimate.NewPayment{}, false
	}
	if err := h.Factory.ValidatePayment(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payment", err)
		return estimate.NewPayment{}, false
	}
	cmd, err := req.ToNewPayment()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payment", err)
		return estimate.NewPayment{}, false
	}
	return cmd, true
}

func (h *Handler) writePayment(w http.ResponseWriter, r *http.Request, status int, p estimate.PaymentRecord) {
	e, err := h.Service.GetEstimate(r.Context(), p.EstimateID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, status, toPaymentDTO(p, e.FinancialYear))
}

// =============================================================================
// RECALCULATION ENDPOINTS
// =============================================================================

// RecalculateAll runs a recalculation pass now. It goes through the scheduler
// when one is configured so the pass is audited.
func (h *Handler) RecalculateAll(w http.ResponseWriter, r *http.Request) {
	var (
		summary estimate.RecalculationSummary
		err     error
	)
	if h.Scheduler != nil {
		summary, err = h.Scheduler.RunNow(r.Context())
	} else {
		summary, err = h.Service.RecalculateAll(r.Context())
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecalculationSummaryDTO(summary))
}

// ListRecalculationRuns returns recent scheduler passes (?limit=, default 50).
func (h *Handler) ListRecalculationRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	runs, err := h.Store.ListRecalculationRuns(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	out := make([]RecalculationRunDTO, 0, len(runs))
	for _, run := range runs {
		out = append(out, toRecalculationRunDTO(run))
	}
	writeJSON(w, http.StatusOK, out)
}

// Health reports liveness and database reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.Store != nil {
		if err := h.Store.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "Database unavailable", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

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

// writeServiceError maps error categories to HTTP status codes.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case advancetax.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid input", err)
	case advancetax.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case advancetax.IsConflict(err):
		writeError(w, http.StatusConflict, "Conflict", err)
	case errors.Is(err, r.Context().Err()) && r.Context().Err() != nil:
		writeError(w, http.StatusServiceUnavailable, "Request cancelled", err)
	default:
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "Internal error", nil)
	}
}
