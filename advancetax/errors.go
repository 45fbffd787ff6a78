/*
errors.go - Centralized error types for the advance tax packages

PURPOSE:
  The engine itself never fails: every computation is arithmetic over inputs
  that the caller has already validated. The error types live here so the
  input layer (factory), the estimate service and the HTTP API classify
  failures the same way.

ERROR CATEGORIES:
  1. Input errors - malformed financial year, amount, quarter or date
  2. Lookup errors - estimate or payment does not exist
  3. Conflict errors - a second estimate for the same taxpayer and year

USAGE:
  if errors.Is(err, advancetax.ErrInvalidFinancialYear) {
      ...
  }
  var verr *advancetax.ValidationError
  if errors.As(err, &verr) {
      log.Printf("bad %s: %s", verr.Field, verr.Reason)
  }

SEE ALSO:
  - factory/estimate.go: Produces ValidationErrors
  - estimate/service.go: Wraps lookup errors with record IDs
  - api/handlers.go: Maps categories to HTTP status codes
*/
package advancetax

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidFinancialYear is returned when a label is not "YYYY-YY" or its
	// suffix does not follow the start year.
	ErrInvalidFinancialYear = errors.New("invalid financial year")

	// ErrInvalidAmount is returned for negative liabilities or non-positive payments.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidQuarter is returned when an explicit quarter is outside 1-4.
	ErrInvalidQuarter = errors.New("invalid quarter")

	// ErrInvalidDate is returned when a date cannot be parsed.
	ErrInvalidDate = errors.New("invalid date")

	// ErrEstimateNotFound is returned when a referenced estimate doesn't exist.
	ErrEstimateNotFound = errors.New("estimate not found")

	// ErrPaymentNotFound is returned when a referenced payment doesn't exist.
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrDuplicateEstimate is returned when a taxpayer already has an estimate
	// for the financial year.
	ErrDuplicateEstimate = errors.New("estimate already exists for financial year")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes which input field was rejected and why.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
	Err    error // one of the sentinel errors above
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr) ||
		errors.Is(err, ErrInvalidFinancialYear) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidQuarter) ||
		errors.Is(err, ErrInvalidDate)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEstimateNotFound) ||
		errors.Is(err, ErrPaymentNotFound)
}

// IsConflict returns true if the error indicates a uniqueness violation.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateEstimate)
}
