// Package score implements the heuristic scoring engine: DTI
// computation, the four sub-score formulas, the data-driven rule
// interpreter, final-score aggregation and the decision machine.
package score

import (
	"math"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Sub-score caps.
const (
	MaxSolvency  = 40
	MaxStability = 30
	MaxHistory   = 20
	MaxProfile   = 10
)

// Approval thresholds by requested amount.
const (
	BaseThreshold      = 80
	HighAmountThreshold = 85
	HighAmountCutoff    = 20000.0

	// ReviewBand is subtracted from the threshold to form the lower
	// bound of the manual-review zone.
	ReviewBand = 20
)

// Engine is the scoring engine. Rules are loaded once at construction
// and read-only thereafter, so a single Engine is safe for concurrent
// Evaluate* calls.
type Engine struct {
	rules []domain.Rule
}

// NewEngine creates an engine over the given rule set. A nil or empty
// set is valid: scoring then runs on sub-scores alone.
func NewEngine(rules []domain.Rule) *Engine {
	return &Engine{rules: rules}
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	return len(e.rules)
}

// Rules returns the loaded rule set.
func (e *Engine) Rules() []domain.Rule {
	return e.rules
}

// CalculateDTI computes the debt-to-income ratio rounded to 4 decimals
// and classifies it. Non-positive income short-circuits to (1.0,
// Critical). Class boundaries are right-exclusive: 0.25 is Moderate,
// 0.40 is High, 0.60 is Critical.
func (e *Engine) CalculateDTI(income, debt float64) (float64, domain.DTIClass) {
	if income <= 0 {
		return 1.0, domain.DTICritical
	}

	dti := math.Round(debt/income*10000) / 10000

	switch {
	case dti < 0.25:
		return dti, domain.DTILow
	case dti < 0.40:
		return dti, domain.DTIModerate
	case dti < 0.60:
		return dti, domain.DTIHigh
	default:
		return dti, domain.DTICritical
	}
}

// CalculateSubScores computes the four independent components, each
// clamped to [0, max].
func (e *Engine) CalculateSubScores(in *domain.ApplicantInput, dti float64) domain.SubScores {
	return domain.SubScores{
		Solvency:  e.solvencyScore(in, dti),
		Stability: e.stabilityScore(in),
		History:   e.historyScore(in),
		Profile:   e.profileScore(in),
	}
}

// solvencyScore: income normalized to 0-20, a DTI adjustment, and a
// penalty per dependent.
func (e *Engine) solvencyScore(in *domain.ApplicantInput, dti float64) int {
	base := math.Min(in.MonthlyIncome/30000.0*20.0, 20.0)

	var dtiAdj float64
	switch {
	case dti < 0.25:
		dtiAdj = 10.0
	case dti < 0.40:
		dtiAdj = 5.0
	case dti < 0.60:
		dtiAdj = -5.0
	default:
		dtiAdj = -15.0
	}

	total := base + dtiAdj - float64(in.Dependents)*1.5
	return clampInt(total, 0, MaxSolvency)
}

// stabilityScore: tiered years at job plus a housing bonus, capped.
func (e *Engine) stabilityScore(in *domain.ApplicantInput) int {
	var jobPts int
	switch {
	case in.YearsAtJob < 1:
		jobPts = 0
	case in.YearsAtJob < 2:
		jobPts = 8
	case in.YearsAtJob < 5:
		jobPts = 18
	default:
		jobPts = 28
	}

	var housingPts int
	switch in.HousingType {
	case domain.HousingOwned:
		housingPts = 8
	case domain.HousingFamily:
		housingPts = 3
	}

	total := jobPts + housingPts
	if total > MaxStability {
		total = MaxStability
	}
	return total
}

func (e *Engine) historyScore(in *domain.ApplicantInput) int {
	switch in.CreditHistory {
	case domain.HistoryGood:
		return 20
	case domain.HistoryNeutral:
		return 10
	default:
		return 0
	}
}

// profileScore: purpose lookup plus a bonus for the 25-55 age band.
func (e *Engine) profileScore(in *domain.ApplicantInput) int {
	var pts int
	switch in.LoanPurpose {
	case domain.PurposeBusiness:
		pts = 10
	case domain.PurposeEducation:
		pts = 8
	case domain.PurposeEmergency:
		pts = 6
	case domain.PurposeConsumption:
		pts = 4
	case domain.PurposeVacation:
		pts = 0
	default:
		pts = 2
	}

	if in.Age >= 25 && in.Age <= 55 {
		pts += 2
	}

	if pts > MaxProfile {
		pts = MaxProfile
	}
	return pts
}

// FinalScore sums the sub-scores and the fired-rule impacts, clamps to
// [0, 100], and selects the threshold by requested amount.
func (e *Engine) FinalScore(sub domain.SubScores, fired []domain.FiredRule, amount float64) (int, int) {
	raw := sub.Total()
	for _, r := range fired {
		raw += r.Impact
	}

	score := raw
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	threshold := BaseThreshold
	if amount > HighAmountCutoff {
		threshold = HighAmountThreshold
	}

	return score, threshold
}

// Decide runs the stateless decision machine. A Critical DTI class
// rejects outright, overriding the score.
func (e *Engine) Decide(score, threshold int, dtiClass domain.DTIClass) domain.Decision {
	if dtiClass == domain.DTICritical {
		return domain.DecisionRejected
	}

	switch {
	case score >= threshold:
		return domain.DecisionApproved
	case score >= threshold-ReviewBand:
		return domain.DecisionManualReview
	default:
		return domain.DecisionRejected
	}
}

func clampInt(v float64, lo, hi int) int {
	i := int(v)
	if i < lo {
		return lo
	}
	if i > hi {
		return hi
	}
	return i
}
