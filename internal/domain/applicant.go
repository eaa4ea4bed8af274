// Package domain defines the core interfaces and types for Harrier.
package domain

// Canonical field identifiers for the 9 applicant inputs. Rules,
// error profiles and the weights file all reference fields by these
// names. FieldDTI is the virtual field the rule interpreter adds.
const (
	FieldAge             = "age"
	FieldMonthlyIncome   = "monthly_income"
	FieldCurrentDebt     = "current_debt"
	FieldCreditHistory   = "credit_history"
	FieldYearsAtJob      = "years_at_job"
	FieldDependents      = "dependents"
	FieldHousingType     = "housing_type"
	FieldLoanPurpose     = "loan_purpose"
	FieldRequestedAmount = "requested_amount"
	FieldDTI             = "dti"
)

// RequiredFields lists all 9 input fields in canonical order.
var RequiredFields = []string{
	FieldAge, FieldMonthlyIncome, FieldCurrentDebt,
	FieldCreditHistory, FieldYearsAtJob, FieldDependents,
	FieldHousingType, FieldLoanPurpose, FieldRequestedAmount,
}

// IntFields are fields that must carry integer values.
var IntFields = []string{
	FieldAge, FieldCreditHistory, FieldYearsAtJob, FieldDependents,
}

// NumericFields are fields that must carry numeric (float) values.
var NumericFields = []string{
	FieldMonthlyIncome, FieldCurrentDebt, FieldRequestedAmount,
}

// TextFields are the categorical text fields.
var TextFields = []string{
	FieldHousingType, FieldLoanPurpose,
}

// Credit history codes.
const (
	HistoryBad     = 0
	HistoryNeutral = 1
	HistoryGood    = 2
)

// Housing type values.
const (
	HousingOwned  = "Owned"
	HousingFamily = "Family"
	HousingRented = "Rented"
)

// ValidHousingTypes lists the accepted housing values.
var ValidHousingTypes = []string{HousingOwned, HousingFamily, HousingRented}

// Loan purpose values.
const (
	PurposeBusiness    = "Business"
	PurposeEducation   = "Education"
	PurposeConsumption = "Consumption"
	PurposeEmergency   = "Emergency"
	PurposeVacation    = "Vacation"
)

// ValidPurposes lists the accepted loan purposes.
var ValidPurposes = []string{
	PurposeBusiness, PurposeEducation, PurposeConsumption,
	PurposeEmergency, PurposeVacation,
}

// ApplicantInput is the validated, immutable snapshot of the 9 input
// fields. It is created per request after sanitization and validation
// succeed, and discarded once the evaluation completes.
type ApplicantInput struct {
	Age             int     `json:"age"`
	MonthlyIncome   float64 `json:"monthlyIncome"`
	CurrentDebt     float64 `json:"currentDebt"`
	CreditHistory   int     `json:"creditHistory"`
	YearsAtJob      int     `json:"yearsAtJob"`
	Dependents      int     `json:"dependents"`
	HousingType     string  `json:"housingType"`
	LoanPurpose     string  `json:"loanPurpose"`
	RequestedAmount float64 `json:"requestedAmount"`
}

// Fields returns the applicant as a field-name keyed map, the shape the
// rule interpreter and error profiling operate on.
func (a *ApplicantInput) Fields() map[string]any {
	return map[string]any{
		FieldAge:             a.Age,
		FieldMonthlyIncome:   a.MonthlyIncome,
		FieldCurrentDebt:     a.CurrentDebt,
		FieldCreditHistory:   a.CreditHistory,
		FieldYearsAtJob:      a.YearsAtJob,
		FieldDependents:      a.Dependents,
		FieldHousingType:     a.HousingType,
		FieldLoanPurpose:     a.LoanPurpose,
		FieldRequestedAmount: a.RequestedAmount,
	}
}

// ValidationOutcome reports the result of validating a cleaned input.
// Errors preserve the order the checks ran in; a non-empty list is the
// only failure signal the validator ever emits.
type ValidationOutcome struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// LabeledRecord pairs an already-mapped historical input with its real
// repayment label (1 = good payer, 0 = defaulted). Backtesting replays
// these through the pipeline.
type LabeledRecord struct {
	Input map[string]any `json:"input"`
	Label int            `json:"label"`
}
