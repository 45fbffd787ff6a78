/*
Package factory converts estimate documents into validated engine inputs.

PURPOSE:
  Estimates arrive as JSON (API bodies) or YAML/JSON files (CLI). The factory
  decodes them, validates every field with go-playground/validator and turns
  the result into advancetax.AnalysisInput or estimate service commands. The
  engine never validates; everything it receives has passed through here.

DOCUMENT SCHEMA (YAML shown, JSON uses the same keys):
  taxpayer_id: ABCDE1234F
  financial_year: 2024-25
  net_tax_liability: 100000
  assessment_date: 2025-05-15   # optional, defaults to as_of
  as_of: 2024-10-01             # optional, defaults to today
  payments:
    - amount: 15000
      paid_on: 2024-06-10
      quarter: 1                # optional, 0 or absent = detect by date
      reference: CHL-001

VALIDATION:
  - financial_year: "YYYY-YY" with the suffix following the start year
  - net_tax_liability >= 0, payment amount > 0
  - quarter 0-4
  - dates "YYYY-MM-DD"
  The first failure is returned as *advancetax.ValidationError wrapping the
  matching sentinel (ErrInvalidFinancialYear, ErrInvalidAmount, ...).

USAGE:
  f := factory.NewEstimateFactory()
  doc, err := f.LoadFromFile("estimate.yaml")
  input, err := doc.ToInput(today)
  result := advancetax.Analyze(input)

SEE ALSO:
  - advancetax/analysis.go: AnalysisInput
  - estimate/service.go: CreateEstimate/AddPayment commands
*/
package factory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/warp/advance-tax/advancetax"
	"github.com/warp/advance-tax/estimate"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// DOCUMENT TYPES
// =============================================================================

// EstimateJSON is the document form of an estimate with its payments.
type EstimateJSON struct {
	TaxpayerID      string        `json:"taxpayer_id,omitempty" yaml:"taxpayer_id,omitempty"`
	FinancialYear   string        `json:"financial_year" yaml:"financial_year" validate:"required,financial_year"`
	NetTaxLiability Amount        `json:"net_tax_liability" yaml:"net_tax_liability" validate:"gte=0"`
	AssessmentDate  string        `json:"assessment_date,omitempty" yaml:"assessment_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	AsOf            string        `json:"as_of,omitempty" yaml:"as_of,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Payments        []PaymentJSON `json:"payments,omitempty" yaml:"payments,omitempty" validate:"dive"`
}

// PaymentJSON is one payment inside an EstimateJSON.
type PaymentJSON struct {
	Quarter   int    `json:"quarter,omitempty" yaml:"quarter,omitempty" validate:"min=0,max=4"`
	Amount    Amount `json:"amount" yaml:"amount" validate:"gt=0"`
	PaidOn    string `json:"paid_on" yaml:"paid_on" validate:"required,datetime=2006-01-02"`
	Reference string `json:"reference,omitempty" yaml:"reference,omitempty" validate:"max=64"`
}

// Amount is a decimal that decodes from JSON numbers or strings and YAML scalars.
type Amount struct {
	decimal.Decimal
}

// NewAmount wraps d.
func NewAmount(d decimal.Decimal) Amount { return Amount{Decimal: d} }

// UnmarshalYAML parses a YAML scalar as a decimal.
func (a *Amount) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("amount must be a scalar, got %s", value.Tag)
	}
	d, err := decimal.NewFromString(strings.TrimSpace(value.Value))
	if err != nil {
		return fmt.Errorf("amount %q: %w", value.Value, err)
	}
	a.Decimal = d
	return nil
}

// =============================================================================
// FACTORY
// =============================================================================

// EstimateFactory parses and validates estimate documents.
type EstimateFactory struct {
	validate *validator.Validate
}

// NewEstimateFactory creates a factory with the estimate validation rules
// registered.
func NewEstimateFactory() *EstimateFactory {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON field names in errors
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if a, ok := field.Interface().(Amount); ok {
			return a.InexactFloat64()
		}
		return nil
	}, Amount{})

	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("financial_year", func(fl validator.FieldLevel) bool {
		_, err := advancetax.ParseFinancialYear(fl.Field().String())
		return err == nil
	})

	return &EstimateFactory{validate: v}
}

// ParseEstimate decodes and validates a JSON document.
func (f *EstimateFactory) ParseEstimate(data []byte) (*EstimateJSON, error) {
	var doc EstimateJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid estimate JSON: %w", err)
	}
	if err := f.Validate(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ParseEstimateYAML decodes and validates a YAML document.
func (f *EstimateFactory) ParseEstimateYAML(data []byte) (*EstimateJSON, error) {
	var doc EstimateJSON
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid estimate YAML: %w", err)
	}
	if err := f.Validate(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// LoadFromFile reads a .json, .yaml or .yml estimate file.
func (f *EstimateFactory) LoadFromFile(path string) (*EstimateJSON, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read estimate file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return f.ParseEstimate(data)
	case ".yaml", ".yml":
		return f.ParseEstimateYAML(data)
	default:
		return nil, fmt.Errorf("unsupported estimate file extension %q (want .json, .yaml or .yml)", filepath.Ext(path))
	}
}

// Validate checks a document and returns the first failure as a
// *advancetax.ValidationError.
func (f *EstimateFactory) Validate(doc *EstimateJSON) error {
	return toValidationError(f.validate.Struct(doc))
}

// ValidatePayment checks a single payment entry.
func (f *EstimateFactory) ValidatePayment(p *PaymentJSON) error {
	return toValidationError(f.validate.Struct(p))
}

func toValidationError(err error) error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validate estimate: %w", err)
	}

	fe := verrs[0]
	return &advancetax.ValidationError{
		Field:  fieldPath(fe),
		Value:  fmt.Sprint(fe.Value()),
		Reason: validationMessage(fe),
		Err:    sentinelFor(fe),
	}
}

// =============================================================================
// CONVERSION
// =============================================================================

// ToInput converts a validated document into engine input. asOf is used
// when the document carries no as_of of its own.
func (doc *EstimateJSON) ToInput(asOf advancetax.Date) (advancetax.AnalysisInput, error) {
	fy, err := advancetax.ParseFinancialYear(doc.FinancialYear)
	if err != nil {
		return advancetax.AnalysisInput{}, err
	}

	if doc.AsOf != "" {
		if asOf, err = advancetax.ParseDate(doc.AsOf); err != nil {
			return advancetax.AnalysisInput{}, err
		}
	}

	assessment, err := doc.assessmentDate()
	if err != nil {
		return advancetax.AnalysisInput{}, err
	}

	payments := make([]advancetax.Payment, 0, len(doc.Payments))
	for _, p := range doc.Payments {
		np, err := p.ToNewPayment()
		if err != nil {
			return advancetax.AnalysisInput{}, err
		}
		payments = append(payments, advancetax.Payment{Quarter: np.Quarter, Amount: np.Amount, Date: np.PaidOn})
	}

	return advancetax.AnalysisInput{
		NetTaxLiability: doc.NetTaxLiability.Decimal,
		FinancialYear:   fy,
		Payments:        payments,
		AsOf:            asOf,
		AssessmentDate:  assessment,
	}, nil
}

// ToNewEstimate converts the document into a service command. Payments are
// returned separately since they are added after the estimate exists.
func (doc *EstimateJSON) ToNewEstimate() (estimate.NewEstimate, []estimate.NewPayment, error) {
	assessment, err := doc.assessmentDate()
	if err != nil {
		return estimate.NewEstimate{}, nil, err
	}

	payments := make([]estimate.NewPayment, 0, len(doc.Payments))
	for _, p := range doc.Payments {
		np, err := p.ToNewPayment()
		if err != nil {
			return estimate.NewEstimate{}, nil, err
		}
		payments = append(payments, np)
	}

	return estimate.NewEstimate{
		TaxpayerID:      doc.TaxpayerID,
		FinancialYear:   doc.FinancialYear,
		NetTaxLiability: doc.NetTaxLiability.Decimal,
		AssessmentDate:  assessment,
	}, payments, nil
}

// ToNewPayment converts one payment entry into a service command.
func (p PaymentJSON) ToNewPayment() (estimate.NewPayment, error) {
	paidOn, err := advancetax.ParseDate(p.PaidOn)
	if err != nil {
		return estimate.NewPayment{}, err
	}
	return estimate.NewPayment{
		Quarter:   advancetax.Quarter(p.Quarter),
		Amount:    p.Amount.Decimal,
		PaidOn:    paidOn,
		Reference: p.Reference,
	}, nil
}

func (doc *EstimateJSON) assessmentDate() (*advancetax.Date, error) {
	if doc.AssessmentDate == "" {
		return nil, nil
	}
	d, err := advancetax.ParseDate(doc.AssessmentDate)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// =============================================================================
// VALIDATION MESSAGES
// =============================================================================

// fieldPath drops the root struct name: "EstimateJSON.payments[0].amount"
// becomes "payments[0].amount".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func sentinelFor(fe validator.FieldError) error {
	switch {
	case fe.Tag() == "financial_year" || fe.Field() == "financial_year":
		return advancetax.ErrInvalidFinancialYear
	case fe.Tag() == "datetime" || strings.HasSuffix(fe.Field(), "date") ||
		fe.Field() == "paid_on" || fe.Field() == "as_of":
		return advancetax.ErrInvalidDate
	case fe.Field() == "quarter":
		return advancetax.ErrInvalidQuarter
	case fe.Field() == "net_tax_liability" || fe.Field() == "amount":
		return advancetax.ErrInvalidAmount
	default:
		return nil
	}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "financial_year":
		return "must be YYYY-YY with the suffix following the start year"
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	default:
		return "is invalid"
	}
}
