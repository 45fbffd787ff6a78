/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine and persistence records from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

CURRENCY:
  Every money field is an integer number of whole units. The engine already
  rounds what it computes; inputs echoed back (liability, payment amounts)
  are rounded half-up for display only.

TYPES:
  Calendar:  DueDateDTO
  Analysis:  AnalysisDTO, ScheduleEntryDTO, DefaultPenaltyDTO, DefermentPenaltyDTO
  Estimates: EstimateDTO, UpdateEstimateRequest
  Payments:  PaymentDTO (requests use factory.PaymentJSON)
  Scheduler: RecalculationSummaryDTO, RecalculationRunDTO
  Scenarios: ScenarioDTO, LoadScenarioRequest, LoadScenarioResponse

SEE ALSO:
  - handlers.go: Uses these types
  - factory/estimate.go: EstimateJSON and PaymentJSON request documents
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/advance-tax/advancetax"
	"github.com/warp/advance-tax/estimate"
	"github.com/warp/advance-tax/factory"
	"github.com/warp/advance-tax/store/sqlite"
)

// =============================================================================
// CALENDAR & ANALYSIS
// =============================================================================

// DueDateDTO is one installment of the calendar.
type DueDateDTO struct {
	Quarter           int    `json:"quarter"`
	DueDate           string `json:"due_date"`
	CumulativePercent int64  `json:"cumulative_percent"`
	Label             string `json:"label"`
}

// DueDatesResponse wraps the calendar of one financial year.
type DueDatesResponse struct {
	FinancialYear string       `json:"financial_year"`
	DueDates      []DueDateDTO `json:"due_dates"`
}

// ScheduleEntryDTO is one quarter of a schedule.
type ScheduleEntryDTO struct {
	Quarter             int    `json:"quarter"`
	DueDate             string `json:"due_date"`
	CumulativePercent   int64  `json:"cumulative_percent"`
	CumulativeAmountDue int64  `json:"cumulative_amount_due"`
	QuarterAmountDue    int64  `json:"quarter_amount_due"`
	AmountPaid          int64  `json:"amount_paid"`
	CumulativePaid      int64  `json:"cumulative_paid"`
	Shortfall           int64  `json:"shortfall"`
	Status              string `json:"status"`
	DeferredInterest    int64  `json:"deferred_interest"`
}

// DefaultPenaltyDTO explains the year-end default interest.
type DefaultPenaltyDTO struct {
	Applicable        bool   `json:"applicable"`
	TotalTaxLiability int64  `json:"total_tax_liability"`
	TotalPaid         int64  `json:"total_paid"`
	Shortfall         int64  `json:"shortfall"`
	MonthsOfDefault   int64  `json:"months_of_default"`
	InterestAmount    int64  `json:"interest_amount"`
	Reason            string `json:"reason"`
}

// QuarterInterestDTO is one line of the deferment breakdown.
type QuarterInterestDTO struct {
	Quarter        int   `json:"quarter"`
	Shortfall      int64 `json:"shortfall"`
	Months         int64 `json:"months"`
	InterestAmount int64 `json:"interest_amount"`
}

// DefermentPenaltyDTO explains the per-installment deferment interest.
type DefermentPenaltyDTO struct {
	Breakdown           []QuarterInterestDTO `json:"breakdown"`
	TotalInterestAmount int64                `json:"total_interest_amount"`
}

// AnalysisDTO is the full engine result.
type AnalysisDTO struct {
	FinancialYear      string              `json:"financial_year"`
	NetTaxLiability    int64               `json:"net_tax_liability"`
	AdvanceTaxRequired bool                `json:"advance_tax_required"`
	TotalPaid          int64               `json:"total_paid"`
	Schedule           []ScheduleEntryDTO  `json:"schedule"`
	DefaultPenalty     DefaultPenaltyDTO   `json:"default_penalty"`
	DefermentPenalty   DefermentPenaltyDTO `json:"deferment_penalty"`
	TotalInterest      int64               `json:"total_interest"`
	AsOf               string              `json:"as_of"`
	AssessmentDate     string              `json:"assessment_date"`
}

// AnalyzeRequest is the body of POST /api/analyze.
type AnalyzeRequest = factory.EstimateJSON

// =============================================================================
// ESTIMATES & PAYMENTS
// =============================================================================

// EstimateDTO represents a stored estimate.
type EstimateDTO struct {
	ID                 string    `json:"id"`
	TaxpayerID         string    `json:"taxpayer_id"`
	FinancialYear      string    `json:"financial_year"`
	NetTaxLiability    int64     `json:"net_tax_liability"`
	AssessmentDate     *string   `json:"assessment_date,omitempty"`
	AdvanceTaxRequired bool      `json:"advance_tax_required"`
	TotalPaid          int64     `json:"total_paid"`
	DefaultInterest    int64     `json:"default_interest"`
	DefermentInterest  int64     `json:"deferment_interest"`
	TotalInterest      int64     `json:"total_interest"`
	CalculatedAsOf     string    `json:"calculated_as_of,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// CreateEstimateRequest is the body of POST /api/estimates. Payments listed
// in the document are recorded after the estimate is created.
type CreateEstimateRequest = factory.EstimateJSON

// UpdateEstimateRequest changes the inputs of an estimate. An empty
// assessment_date clears it.
type UpdateEstimateRequest struct {
	NetTaxLiability *factory.Amount `json:"net_tax_liability,omitempty"`
	AssessmentDate  *string         `json:"assessment_date,omitempty"`
}

// PaymentDTO represents a stored payment.
type PaymentDTO struct {
	ID         string    `json:"id"`
	EstimateID string    `json:"estimate_id"`
	Quarter    int       `json:"quarter"`
	Applied    int       `json:"applied_quarter"`
	Amount     int64     `json:"amount"`
	PaidOn     string    `json:"paid_on"`
	Reference  string    `json:"reference,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// PaymentRequest is the body of payment create/update.
type PaymentRequest = factory.PaymentJSON

// =============================================================================
// RECALCULATION
// =============================================================================

// RecalculationSummaryDTO reports one pass over all estimates.
type RecalculationSummaryDTO struct {
	Processed      int   `json:"processed"`
	StatusChanges  int   `json:"status_changes"`
	Failed         int   `json:"failed"`
	InterestBefore int64 `json:"interest_before"`
	InterestAfter  int64 `json:"interest_after"`
}

// RecalculationRunDTO is one audit row of the scheduler.
type RecalculationRunDTO struct {
	ID             string     `json:"id"`
	Status         string     `json:"status"`
	Processed      int        `json:"processed"`
	StatusChanges  int        `json:"status_changes"`
	Failed         int        `json:"failed"`
	InterestBefore int64      `json:"interest_before"`
	InterestAfter  int64      `json:"interest_after"`
	Error          string     `json:"error,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// =============================================================================
// SCENARIOS & ERRORS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// LoadScenarioRequest is the request body for loading a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// LoadScenarioResponse lists what a scenario created.
type LoadScenarioResponse struct {
	Scenario  ScenarioDTO   `json:"scenario"`
	Estimates []EstimateDTO `json:"estimates"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func money(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

// NewDueDatesResponse builds the calendar of fy.
func NewDueDatesResponse(fy advancetax.FinancialYear) DueDatesResponse {
	return DueDatesResponse{
		FinancialYear: string(fy),
		DueDates:      toDueDateDTOs(advancetax.DueDates(fy)),
	}
}

func toDueDateDTOs(dates [4]advancetax.DueDate) []DueDateDTO {
	out := make([]DueDateDTO, 0, len(dates))
	for _, d := range dates {
		out = append(out, DueDateDTO{
			Quarter:           int(d.Quarter),
			DueDate:           d.Date.String(),
			CumulativePercent: d.CumulativePercent,
			Label:             d.Label,
		})
	}
	return out
}

func toScheduleEntryDTO(e advancetax.ScheduleEntry) ScheduleEntryDTO {
	return ScheduleEntryDTO{
		Quarter:             int(e.Quarter),
		DueDate:             e.DueDate.String(),
		CumulativePercent:   e.CumulativePercent,
		CumulativeAmountDue: money(e.CumulativeAmountDue),
		QuarterAmountDue:    money(e.QuarterAmountDue),
		AmountPaid:          money(e.AmountPaid),
		CumulativePaid:      money(e.CumulativePaid),
		Shortfall:           money(e.Shortfall),
		Status:              string(e.Status),
		DeferredInterest:    money(e.DeferredInterest),
	}
}

func toScheduleRecordDTOs(rows []estimate.ScheduleRecord) []ScheduleEntryDTO {
	out := make([]ScheduleEntryDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, ScheduleEntryDTO{
			Quarter:             int(r.Quarter),
			DueDate:             r.DueDate.String(),
			CumulativePercent:   r.CumulativePercent,
			CumulativeAmountDue: money(r.CumulativeAmountDue),
			QuarterAmountDue:    money(r.QuarterAmountDue),
			AmountPaid:          money(r.AmountPaid),
			CumulativePaid:      money(r.CumulativePaid),
			Shortfall:           money(r.Shortfall),
			Status:              string(r.Status),
			DeferredInterest:    money(r.DeferredInterest),
		})
	}
	return out
}

// NewAnalysisDTO converts an engine result to its wire form.
func NewAnalysisDTO(r advancetax.AnalysisResult) AnalysisDTO {
	schedule := make([]ScheduleEntryDTO, 0, len(r.Schedule))
	for _, e := range r.Schedule {
		schedule = append(schedule, toScheduleEntryDTO(e))
	}

	breakdown := make([]QuarterInterestDTO, 0, len(r.DefermentPenalty.Breakdown))
	for _, b := range r.DefermentPenalty.Breakdown {
		breakdown = append(breakdown, QuarterInterestDTO{
			Quarter:        int(b.Quarter),
			Shortfall:      money(b.Shortfall),
			Months:         b.Months,
			InterestAmount: money(b.InterestAmount),
		})
	}

	dp := r.DefaultPenalty
	return AnalysisDTO{
		FinancialYear:      string(r.FinancialYear),
		NetTaxLiability:    money(r.NetTaxLiability),
		AdvanceTaxRequired: r.AdvanceTaxRequired,
		TotalPaid:          money(r.TotalPaid),
		Schedule:           schedule,
		DefaultPenalty: DefaultPenaltyDTO{
			Applicable:        dp.Applicable,
			TotalTaxLiability: money(dp.TotalTaxLiability),
			TotalPaid:         money(dp.TotalPaid),
			Shortfall:         money(dp.Shortfall),
			MonthsOfDefault:   dp.MonthsOfDefault,
			InterestAmount:    money(dp.InterestAmount),
			Reason:            dp.Reason,
		},
		DefermentPenalty: DefermentPenaltyDTO{
			Breakdown:           breakdown,
			TotalInterestAmount: money(r.DefermentPenalty.TotalInterestAmount),
		},
		TotalInterest:  money(r.TotalInterest),
		AsOf:           r.AsOf.String(),
		AssessmentDate: r.AssessmentDate.String(),
	}
}

func toEstimateDTO(e estimate.Estimate) EstimateDTO {
	dto := EstimateDTO{
		ID:                 e.ID,
		TaxpayerID:         e.TaxpayerID,
		FinancialYear:      string(e.FinancialYear),
		NetTaxLiability:    money(e.NetTaxLiability),
		AdvanceTaxRequired: e.AdvanceTaxRequired,
		TotalPaid:          money(e.TotalPaid),
		DefaultInterest:    money(e.DefaultInterest),
		DefermentInterest:  money(e.DefermentInterest),
		TotalInterest:      money(e.TotalInterest),
		CreatedAt:          e.CreatedAt,
		UpdatedAt:          e.UpdatedAt,
	}
	if e.AssessmentDate != nil {
		s := e.AssessmentDate.String()
		dto.AssessmentDate = &s
	}
	if !e.CalculatedAsOf.IsZero() {
		dto.CalculatedAsOf = e.CalculatedAsOf.String()
	}
	return dto
}

func toEstimateDTOs(list []estimate.Estimate) []EstimateDTO {
	out := make([]EstimateDTO, 0, len(list))
	for _, e := range list {
		out = append(out, toEstimateDTO(e))
	}
	return out
}

func toPaymentDTO(p estimate.PaymentRecord, fy advancetax.FinancialYear) PaymentDTO {
	applied := p.Quarter
	if !applied.Valid() {
		applied = advancetax.DetectQuarter(fy, p.PaidOn)
	}
	return PaymentDTO{
		ID:         p.ID,
		EstimateID: p.EstimateID,
		Quarter:    int(p.Quarter),
		Applied:    int(applied),
		Amount:     money(p.Amount),
		PaidOn:     p.PaidOn.String(),
		Reference:  p.Reference,
		CreatedAt:  p.CreatedAt,
	}
}

func toRecalculationRunDTO(r sqlite.RecalculationRun) RecalculationRunDTO {
	return RecalculationRunDTO{
		ID:             r.ID,
		Status:         r.Status,
		Processed:      r.Processed,
		StatusChanges:  r.StatusChanges,
		Failed:         r.Failed,
		InterestBefore: money(r.InterestBefore),
		InterestAfter:  money(r.InterestAfter),
		Error:          r.Error,
		StartedAt:      r.StartedAt,
		CompletedAt:    r.CompletedAt,
	}
}

func toRecalculationSummaryDTO(s estimate.RecalculationSummary) RecalculationSummaryDTO {
	return RecalculationSummaryDTO{
		Processed:      s.Processed,
		StatusChanges:  s.StatusChanges,
		Failed:         s.Failed,
		InterestBefore: money(s.InterestBefore),
		InterestAfter:  money(s.InterestAfter),
	}
}
