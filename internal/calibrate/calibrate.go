// Package calibrate turns backtest error analysis into bounded weight
// and threshold adjustments. Proposals are simulated against the same
// scored dataset and applied only when they strictly reduce the
// asymmetric cost.
package calibrate

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/opensource-finance/harrier/internal/backtest"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/metrics"
	"github.com/opensource-finance/harrier/internal/score"
)

const (
	// MaterialityCutoff separates critical from noise-level variables.
	MaterialityCutoff = 0.5

	// Adjustment tiers by false-approval deviation.
	StrongDeviation = 0.15
	MildDeviation   = 0.08
	StrongDelta     = -0.02
	MildDelta       = -0.01

	// WeightFloor is the minimum any single weight may reach.
	WeightFloor = 0.02

	// ThresholdBound caps how far one calibration may move the decision
	// threshold from its current value.
	ThresholdBound = 3
)

// weightKey maps a diagnosed variable to the weight it adjusts. The
// derived debt ratio shares the debt weight.
var weightKey = map[string]string{
	domain.FieldAge:           domain.FieldAge,
	domain.FieldMonthlyIncome: domain.FieldMonthlyIncome,
	domain.FieldCurrentDebt:   domain.FieldCurrentDebt,
	domain.FieldDTI:           domain.FieldCurrentDebt,
}

// analysisOrder fixes the variable iteration order so proposals are
// deterministic. The score itself is never diagnosed.
var analysisOrder = []string{
	domain.FieldAge,
	domain.FieldMonthlyIncome,
	domain.FieldCurrentDebt,
	domain.FieldDTI,
}

// Diagnosis measures how differently one variable behaves inside the
// error quadrants versus their correct counterparts.
type Diagnosis struct {
	Variable string `json:"variable"`

	// DiffFP is the relative mean deviation between false approvals and
	// true rejections; DiffFN between false rejections and true
	// approvals. Both are fractions.
	DiffFP float64 `json:"diffFp"`
	DiffFN float64 `json:"diffFn"`

	// Criticality weighs the deviations by error cost.
	Criticality float64 `json:"criticality"`
	Critical    bool    `json:"critical"`
}

// Proposal is a full calibration proposal: new weights, the individual
// changes and a bounded threshold move.
type Proposal struct {
	Weights   *domain.WeightsConfig `json:"weights"`
	Changes   []domain.WeightChange `json:"changes"`
	Threshold int                   `json:"threshold"`
	Diagnoses []Diagnosis           `json:"diagnoses"`
}

// Simulation compares current decisions against the proposal on the
// same scored dataset, carrying the full metrics picture of both sides.
type Simulation struct {
	Before metrics.Snapshot `json:"before"`
	After  metrics.Snapshot `json:"after"`

	CostBefore float64 `json:"costBefore"`
	CostAfter  float64 `json:"costAfter"`
	Apply      bool    `json:"apply"`
}

// AnalyzeErrors diagnoses each calibratable numeric variable from the
// quadrant profiles of a backtest report, most critical first. A
// variable is critical when its cost-weighted deviation exceeds the
// materiality cutoff.
func AnalyzeErrors(report *backtest.Report) []Diagnosis {
	diagnoses := make([]Diagnosis, 0, len(analysisOrder))
	for _, name := range analysisOrder {
		d := Diagnosis{Variable: name}
		d.DiffFP = relativeDeviation(report, name, backtest.QuadrantFP, backtest.QuadrantTN)
		d.DiffFN = relativeDeviation(report, name, backtest.QuadrantFN, backtest.QuadrantTP)
		d.Criticality = round4(d.DiffFP*metrics.CostFalsePositive + d.DiffFN*metrics.CostFalseNegative)
		d.Critical = d.Criticality > MaterialityCutoff
		diagnoses = append(diagnoses, d)
	}
	sort.SliceStable(diagnoses, func(i, j int) bool {
		return diagnoses[i].Criticality > diagnoses[j].Criticality
	})
	return diagnoses
}

// relativeDeviation returns |mean(errQ) - mean(refQ)| / |mean(refQ)| for
// one variable, or 0 when either quadrant lacks data.
func relativeDeviation(report *backtest.Report, name string, errQ, refQ backtest.Quadrant) float64 {
	errProf, ok1 := report.Profiles[errQ]
	refProf, ok2 := report.Profiles[refQ]
	if !ok1 || !ok2 {
		return 0
	}
	errSum, ok1 := errProf.Numeric[name]
	refSum, ok2 := refProf.Numeric[name]
	if !ok1 || !ok2 || refSum.Mean == 0 {
		return 0
	}
	return round4(math.Abs(errSum.Mean-refSum.Mean) / math.Abs(refSum.Mean))
}

// ProposeAdjustments derives a bounded proposal from a backtest report
// and the current weight configuration. Weights only ever move down,
// in fixed steps, never below the floor, and the total is redistributed
// into the largest weight so it still sums to 1.0.
func ProposeAdjustments(report *backtest.Report, current *domain.WeightsConfig) (*Proposal, error) {
	if current == nil || len(current.Weights) == 0 {
		return nil, fmt.Errorf("calibrate: no current weights")
	}

	diagnoses := AnalyzeErrors(report)

	next := &domain.WeightsConfig{
		Weights: make(map[string]domain.WeightEntry, len(current.Weights)),
		Meta:    current.Meta,
	}
	for name, e := range current.Weights {
		next.Weights[name] = e
	}

	var changes []domain.WeightChange
	for _, d := range diagnoses {
		if !d.Critical {
			continue
		}
		delta := 0.0
		switch {
		case d.DiffFP > StrongDeviation:
			delta = StrongDelta
		case d.DiffFP > MildDeviation:
			delta = MildDelta
		}
		if delta == 0 {
			continue
		}
		key := weightKey[d.Variable]
		entry, ok := next.Weights[key]
		if !ok {
			continue
		}
		before := entry.Weight
		after := round2(math.Max(before+delta, WeightFloor))
		if after == before {
			continue
		}
		entry.Weight = after
		next.Weights[key] = entry
		changes = append(changes, domain.WeightChange{
			Variable: key,
			Before:   before,
			After:    after,
			Delta:    round2(after - before),
			Reason: fmt.Sprintf("%s deviates %.1f%% in false approvals (criticality %.2f)",
				d.Variable, d.DiffFP*100, d.Criticality),
		})
	}

	redistribute(next)

	proposed := int(report.BestThreshold)
	lo, hi := score.BaseThreshold-ThresholdBound, score.BaseThreshold+ThresholdBound
	if proposed < lo {
		proposed = lo
	}
	if proposed > hi {
		proposed = hi
	}

	return &Proposal{
		Weights:   next,
		Changes:   changes,
		Threshold: proposed,
		Diagnoses: diagnoses,
	}, nil
}

// redistribute folds the remainder into the currently-largest weight so
// the configuration sums to exactly 1.0 at two decimals.
func redistribute(cfg *domain.WeightsConfig) {
	names := make([]string, 0, len(cfg.Weights))
	for name := range cfg.Weights {
		names = append(names, name)
	}
	sort.Strings(names)

	sum := 0.0
	largest := names[0]
	for _, name := range names {
		w := cfg.Weights[name].Weight
		sum += w
		if w > cfg.Weights[largest].Weight {
			largest = name
		}
	}
	remainder := round2(1.0 - sum)
	if remainder == 0 {
		return
	}
	entry := cfg.Weights[largest]
	entry.Weight = round2(entry.Weight + remainder)
	cfg.Weights[largest] = entry
}

// Simulate replays the backtest's scored records against the proposed
// threshold and compares asymmetric costs. Apply is set only when the
// proposal strictly improves on the observed decisions.
func Simulate(ctx context.Context, report *backtest.Report, proposal *Proposal) (*Simulation, error) {
	if len(report.Labels) == 0 {
		return nil, fmt.Errorf("calibrate: report carries no scored records")
	}

	before := report.Metrics
	before.Cost = round4(metrics.CostOf(before.Confusion))

	thr := float64(proposal.Threshold)
	preds := make([]int, len(report.Scores))
	for i, sc := range report.Scores {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if sc >= thr {
			preds[i] = 1
		}
	}
	after, err := metrics.Calculate(report.Labels, preds, report.Scores)
	if err != nil {
		return nil, fmt.Errorf("calibrate: simulating proposal: %w", err)
	}

	return &Simulation{
		Before:     before,
		After:      after,
		CostBefore: before.Cost,
		CostAfter:  after.Cost,
		Apply:      after.Cost < before.Cost,
	}, nil
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}
