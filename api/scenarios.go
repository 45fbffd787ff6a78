/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with worked
	advance tax cases for FY 2024-25. Each scenario creates one estimate
	(with its payments) demonstrating a specific rule of the engine.

AVAILABLE SCENARIOS:

	no-payments:        100000 liability, nothing paid
	q1-paid:            Q1 installment paid on time, Q2 onwards short
	ninety-percent:     90% paid by year end, no default interest
	half-paid:          50% paid, assessed 2025-05-15, default interest
	auto-detect:        Payment without quarter, dated 2024-08-01 (Q2)
	below-threshold:    5000 liability, advance tax not required

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Parse the scenario's YAML document via factory
 3. Create the estimate and record its payments
 4. Each write recalculates the stored schedule

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "half-paid"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description, document

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: estimate endpoints
  - factory/estimate.go: Estimate document definitions
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/warp/advance-tax/estimate"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenario struct {
	ScenarioDTO
	document string
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "no-payments",
			Name:        "No Payments",
			Description: "100000 liability with nothing paid: every quarter's shortfall equals its cumulative due",
			Category:    "schedule",
		},
		document: `
taxpayer_id: AAAPA0001A
financial_year: 2024-25
net_tax_liability: 100000
`,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "q1-paid",
			Name:        "First Installment Paid",
			Description: "15000 paid for Q1 on 2024-06-10: Q1 clear, Q2 short by 30000",
			Category:    "schedule",
		},
		document: `
taxpayer_id: AAAPA0002A
financial_year: 2024-25
net_tax_liability: 100000
payments:
  - quarter: 1
    amount: 15000
    paid_on: 2024-06-10
    reference: CHL-0001
`,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "ninety-percent",
			Name:        "Ninety Percent Paid",
			Description: "90000 of 100000 paid by year end: default interest does not apply",
			Category:    "interest",
		},
		document: `
taxpayer_id: AAAPA0003A
financial_year: 2024-25
net_tax_liability: 100000
assessment_date: 2025-07-31
payments:
  - quarter: 1
    amount: 15000
    paid_on: 2024-06-10
  - quarter: 2
    amount: 30000
    paid_on: 2024-09-10
  - quarter: 3
    amount: 30000
    paid_on: 2024-12-10
  - quarter: 4
    amount: 15000
    paid_on: 2025-03-10
`,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "half-paid",
			Name:        "Half Paid",
			Description: "50000 of 100000 paid, assessed 2025-05-15: default interest on a 50000 shortfall",
			Category:    "interest",
		},
		document: `
taxpayer_id: AAAPA0004A
financial_year: 2024-25
net_tax_liability: 100000
assessment_date: 2025-05-15
payments:
  - quarter: 1
    amount: 15000
    paid_on: 2024-06-10
  - quarter: 2
    amount: 35000
    paid_on: 2024-09-10
`,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "auto-detect",
			Name:        "Quarter Auto-Detection",
			Description: "Payment dated 2024-08-01 with no quarter lands in Q2 (next due date Sep 15)",
			Category:    "allocation",
		},
		document: `
taxpayer_id: AAAPA0005A
financial_year: 2024-25
net_tax_liability: 100000
payments:
  - amount: 45000
    paid_on: 2024-08-01
`,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "below-threshold",
			Name:        "Below Threshold",
			Description: "5000 liability: advance tax not required, schedule still computed",
			Category:    "schedule",
		},
		document: `
taxpayer_id: AAAPA0006A
financial_year: 2024-25
net_tax_liability: 5000
`,
	},
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	out := make([]ScenarioDTO, 0, len(scenarios))
	for _, s := range scenarios {
		out = append(out, s.ScenarioDTO)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	current := h.currentScenario
	h.mu.RUnlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	if s, ok := findScenario(current); ok {
		writeJSON(w, http.StatusOK, s.ScenarioDTO)
		return
	}

	// Scenario ID exists but not in list (shouldn't happen)
	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:          current,
		Name:        current,
		Description: "Currently loaded scenario",
	})
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	s, ok := findScenario(req.ScenarioID)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := r.Context()

	// Reset first
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = "" // Clear current scenario on reset

	created, err := h.loadScenario(ctx, s)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	// Track the loaded scenario
	h.currentScenario = s.ID
	h.log.Info().Str("scenario", s.ID).Msg("scenario loaded")

	writeJSON(w, http.StatusOK, LoadScenarioResponse{
		Scenario:  s.ScenarioDTO,
		Estimates: toEstimateDTOs([]estimate.Estimate{*created}),
	})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadScenario(ctx context.Context, s scenario) (*estimate.Estimate, error) {
	doc, err := h.Factory.ParseEstimateYAML([]byte(s.document))
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.ID, err)
	}
	return h.createFromDocument(ctx, doc)
}
