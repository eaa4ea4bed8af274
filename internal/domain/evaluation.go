package domain

import "time"

// Decision is the three-way outcome of an evaluation.
type Decision string

const (
	DecisionApproved     Decision = "APPROVED"
	DecisionRejected     Decision = "REJECTED"
	DecisionManualReview Decision = "MANUAL_REVIEW"
)

// DTIClass classifies the debt-to-income ratio. Boundaries are
// right-exclusive: 0.25 is Moderate, 0.40 is High, 0.60 is Critical.
type DTIClass string

const (
	DTILow      DTIClass = "LOW"
	DTIModerate DTIClass = "MODERATE"
	DTIHigh     DTIClass = "HIGH"
	DTICritical DTIClass = "CRITICAL"
)

// SubScores holds the four independent score components.
type SubScores struct {
	Solvency  int `json:"solvency"`  // max 40
	Stability int `json:"stability"` // max 30
	History   int `json:"history"`   // max 20
	Profile   int `json:"profile"`   // max 10
}

// Total sums the four components.
func (s SubScores) Total() int {
	return s.Solvency + s.Stability + s.History + s.Profile
}

// EvaluationResult is the complete, immutable output of one evaluation.
// Callers always receive a structurally complete result; a non-empty
// Errors list is the only failure signal.
type EvaluationResult struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`

	FinalScore   int      `json:"finalScore"` // 0-100 inclusive
	DTIRatio     float64  `json:"dtiRatio"`
	DTIClass     DTIClass `json:"dtiClass"`
	SubScores    SubScores `json:"subScores"`
	Threshold    int      `json:"threshold"` // 80 or 85
	Decision     Decision `json:"decision"`

	// FiredRules preserves the order rules fired in; Compensations is
	// the subset of compensation kind.
	FiredRules    []FiredRule `json:"firedRules"`
	Compensations []FiredRule `json:"compensations,omitempty"`

	Errors []string `json:"errors,omitempty"`

	// Applicant is the validated input, present only on valid runs.
	Applicant *ApplicantInput `json:"applicant,omitempty"`

	// Index is the record's original position in a batch evaluation.
	Index int `json:"index"`

	ProcessMs int64 `json:"processMs"`
}

// IsValid reports whether the evaluation ran on valid input.
func (r *EvaluationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// SessionStats is a read-only snapshot of the running session counters
// maintained by the pipeline.
type SessionStats struct {
	Total        int     `json:"total"`
	Approved     int     `json:"approved"`
	Rejected     int     `json:"rejected"`
	ManualReview int     `json:"manualReview"`
	ApprovalRate float64 `json:"approvalRate"` // percent
	AvgScore     float64 `json:"avgScore"`
	AvgDTI       float64 `json:"avgDti"`
}
