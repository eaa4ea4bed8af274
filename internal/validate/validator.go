// Package validate implements the input sanitization and validation
// gate that runs ahead of scoring.
package validate

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Validation bounds for the range checks.
const (
	MinAge        = 18
	MaxAge        = 99
	MaxYearsAtJob = 40
	MaxDependents = 10
	MinAmount     = 500.0
	MaxAmount     = 50000.0

	// Cross-field coherence limits
	JobAgeGap       = 15 // years_at_job <= age - 15
	DebtIncomeMonths = 24 // current_debt <= income * 24
	AmountIncomeMonths = 18 // requested_amount <= income * 18
)

var nonNumeric = regexp.MustCompile(`[^\d.\-]`)

// Validator runs the four ordered check groups (presence, types,
// ranges, coherence) and accumulates every applicable error. It never
// returns a Go error; a non-empty error list is the only failure
// signal.
type Validator struct{}

// New creates a Validator.
func New() *Validator {
	return &Validator{}
}

// Sanitize coerces loosely-typed raw values into canonical types:
// numeric strings are stripped of currency symbols and whitespace,
// categorical text is case-normalized. Coercion is best effort; values
// that cannot be converted pass through unchanged so validation can
// report them.
func (v *Validator) Sanitize(raw map[string]any) map[string]any {
	cleaned := make(map[string]any, len(raw))

	for field, value := range raw {
		if s, ok := value.(string); ok {
			value = strings.TrimSpace(s)
		}

		switch {
		case contains(domain.IntFields, field):
			value = toInt(value)
		case contains(domain.NumericFields, field):
			value = toFloat(value)
		case field == domain.FieldHousingType, field == domain.FieldLoanPurpose:
			value = capitalize(fmt.Sprintf("%v", value))
		}

		cleaned[field] = value
	}

	return cleaned
}

// Validate checks a cleaned input map. All applicable errors are
// accumulated; groups C and D are skipped when earlier groups make them
// meaningless (missing fields, wrong types).
func (v *Validator) Validate(cleaned map[string]any) domain.ValidationOutcome {
	var errs []string

	// Group A: required fields
	v.checkRequired(cleaned, &errs)
	if len(errs) > 0 {
		return domain.ValidationOutcome{Valid: false, Errors: errs}
	}

	// Group B: type correctness
	v.checkTypes(cleaned, &errs)
	if !v.typesCorrect(cleaned) {
		return domain.ValidationOutcome{Valid: len(errs) == 0, Errors: errs}
	}

	// Group C: ranges and categorical values
	v.checkRanges(cleaned, &errs)

	// Group D: cross-field coherence
	v.checkCoherence(cleaned, &errs)

	return domain.ValidationOutcome{Valid: len(errs) == 0, Errors: errs}
}

// Applicant builds the typed, immutable input from a cleaned map that
// already passed Validate.
func (v *Validator) Applicant(cleaned map[string]any) *domain.ApplicantInput {
	age, _ := asInt(cleaned[domain.FieldAge])
	history, _ := asInt(cleaned[domain.FieldCreditHistory])
	years, _ := asInt(cleaned[domain.FieldYearsAtJob])
	deps, _ := asInt(cleaned[domain.FieldDependents])
	income, _ := asFloat(cleaned[domain.FieldMonthlyIncome])
	debt, _ := asFloat(cleaned[domain.FieldCurrentDebt])
	amount, _ := asFloat(cleaned[domain.FieldRequestedAmount])
	housing, _ := cleaned[domain.FieldHousingType].(string)
	purpose, _ := cleaned[domain.FieldLoanPurpose].(string)

	return &domain.ApplicantInput{
		Age:             age,
		MonthlyIncome:   income,
		CurrentDebt:     debt,
		CreditHistory:   history,
		YearsAtJob:      years,
		Dependents:      deps,
		HousingType:     housing,
		LoanPurpose:     purpose,
		RequestedAmount: amount,
	}
}

func (v *Validator) checkRequired(data map[string]any, errs *[]string) {
	for _, field := range domain.RequiredFields {
		if _, ok := data[field]; !ok {
			*errs = append(*errs, fmt.Sprintf("missing required field: %s", field))
		}
	}
}

func (v *Validator) checkTypes(data map[string]any, errs *[]string) {
	for _, field := range domain.IntFields {
		if val, ok := data[field]; ok {
			if _, isInt := asInt(val); !isInt {
				*errs = append(*errs, fmt.Sprintf(
					"field %s has an invalid type: expected int, got %T", field, val))
			}
		}
	}
	for _, field := range domain.NumericFields {
		if val, ok := data[field]; ok {
			if _, isNum := asFloat(val); !isNum {
				*errs = append(*errs, fmt.Sprintf(
					"field %s has an invalid type: expected number, got %T", field, val))
			}
		}
	}
	for _, field := range domain.TextFields {
		if val, ok := data[field]; ok {
			if _, isStr := val.(string); !isStr {
				*errs = append(*errs, fmt.Sprintf(
					"field %s has an invalid type: expected string, got %T", field, val))
			}
		}
	}
}

func (v *Validator) typesCorrect(data map[string]any) bool {
	for _, field := range domain.IntFields {
		if val, ok := data[field]; ok {
			if _, isInt := asInt(val); !isInt {
				return false
			}
		}
	}
	for _, field := range domain.NumericFields {
		if val, ok := data[field]; ok {
			if _, isNum := asFloat(val); !isNum {
				return false
			}
		}
	}
	for _, field := range domain.TextFields {
		if val, ok := data[field]; ok {
			if _, isStr := val.(string); !isStr {
				return false
			}
		}
	}
	return true
}

// checkRanges evaluates every range check independently, so several
// simultaneous violations all surface in one pass.
func (v *Validator) checkRanges(data map[string]any, errs *[]string) {
	if age, ok := asInt(data[domain.FieldAge]); ok && (age < MinAge || age > MaxAge) {
		*errs = append(*errs, fmt.Sprintf(
			"age out of range: minimum %d, maximum %d, got %d", MinAge, MaxAge, age))
	}

	if income, ok := asFloat(data[domain.FieldMonthlyIncome]); ok && income <= 0 {
		*errs = append(*errs, "monthly income must be greater than zero")
	}

	if debt, ok := asFloat(data[domain.FieldCurrentDebt]); ok && debt < 0 {
		*errs = append(*errs, "current debt cannot be negative")
	}

	if hist, ok := asInt(data[domain.FieldCreditHistory]); ok &&
		hist != domain.HistoryBad && hist != domain.HistoryNeutral && hist != domain.HistoryGood {
		*errs = append(*errs, fmt.Sprintf(
			"invalid credit history: allowed values 0 (Bad), 1 (Neutral), 2 (Good), got %d", hist))
	}

	if years, ok := asInt(data[domain.FieldYearsAtJob]); ok && (years < 0 || years > MaxYearsAtJob) {
		*errs = append(*errs, fmt.Sprintf("years at job out of range (0-%d)", MaxYearsAtJob))
	}

	if deps, ok := asInt(data[domain.FieldDependents]); ok && (deps < 0 || deps > MaxDependents) {
		*errs = append(*errs, fmt.Sprintf("number of dependents out of range (0-%d)", MaxDependents))
	}

	if housing, ok := data[domain.FieldHousingType].(string); ok && !contains(domain.ValidHousingTypes, housing) {
		*errs = append(*errs, fmt.Sprintf(
			"invalid housing type: allowed values Owned, Family, Rented, got %s", housing))
	}

	if purpose, ok := data[domain.FieldLoanPurpose].(string); ok && !contains(domain.ValidPurposes, purpose) {
		*errs = append(*errs, "invalid loan purpose")
	}

	if amount, ok := asFloat(data[domain.FieldRequestedAmount]); ok && (amount < MinAmount || amount > MaxAmount) {
		*errs = append(*errs, fmt.Sprintf(
			"requested amount out of range ($%.0f - $%.0f)", MinAmount, MaxAmount))
	}
}

// checkCoherence evaluates every cross-field rule independently.
func (v *Validator) checkCoherence(data map[string]any, errs *[]string) {
	age, hasAge := asInt(data[domain.FieldAge])
	years, hasYears := asInt(data[domain.FieldYearsAtJob])
	income, hasIncome := asFloat(data[domain.FieldMonthlyIncome])
	debt, hasDebt := asFloat(data[domain.FieldCurrentDebt])
	amount, hasAmount := asFloat(data[domain.FieldRequestedAmount])

	if hasAge && hasYears {
		limit := age - JobAgeGap
		if years > limit {
			*errs = append(*errs, fmt.Sprintf(
				"incoherent input: years at job (%d) cannot exceed age minus %d = %d",
				years, JobAgeGap, limit))
		}
	}

	if hasIncome && hasDebt && income > 0 {
		limit := income * DebtIncomeMonths
		if debt > limit {
			*errs = append(*errs, fmt.Sprintf(
				"current debt (%.2f) exceeds the reasonable limit of %d months of income (%.2f)",
				debt, DebtIncomeMonths, limit))
		}
	}

	if hasIncome && hasAmount && income > 0 {
		limit := income * AmountIncomeMonths
		if amount > limit {
			*errs = append(*errs, fmt.Sprintf(
				"requested amount (%.2f) exceeds the limit of %d months of income (%.2f) for this applicant",
				amount, AmountIncomeMonths, limit))
		}
	}
}

// toInt attempts integer coercion: whole floats narrow, strings are
// stripped of non-numeric characters first. Failure returns the value
// unchanged.
func toInt(value any) any {
	switch v := value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		if v == math.Trunc(v) {
			return int(v)
		}
		return value
	case string:
		stripped := nonNumeric.ReplaceAllString(v, "")
		if f, err := strconv.ParseFloat(stripped, 64); err == nil {
			return int(f)
		}
		return value
	default:
		return value
	}
}

// toFloat attempts float coercion with the same best-effort contract.
func toFloat(value any) any {
	switch v := value.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		stripped := nonNumeric.ReplaceAllString(v, "")
		if f, err := strconv.ParseFloat(stripped, 64); err == nil {
			return f
		}
		return value
	default:
		return value
	}
}

func asInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	default:
		return 0, false
	}
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func capitalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
