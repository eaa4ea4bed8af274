// Package backtest replays labeled historical applications through the
// evaluation pipeline and measures decision quality against the known
// outcomes.
package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/metrics"
	"github.com/opensource-finance/harrier/internal/pipeline"
)

// Variables profiled per error quadrant.
var (
	profileNumeric     = []string{"age", "monthly_income", "current_debt", "dti", "score"}
	profileCategorical = []string{"credit_history", "housing_type", "loan_purpose"}
)

// Quadrant names a confusion matrix cell.
type Quadrant string

const (
	QuadrantTP Quadrant = "TP"
	QuadrantFP Quadrant = "FP"
	QuadrantTN Quadrant = "TN"
	QuadrantFN Quadrant = "FN"
)

// Record pairs an evaluated application with its true outcome and the
// quadrant it landed in.
type Record struct {
	Index    int                      `json:"index"`
	Label    int                      `json:"label"`
	Pred     int                      `json:"pred"`
	Quadrant Quadrant                 `json:"quadrant"`
	Result   *domain.EvaluationResult `json:"result"`
}

// NumericSummary describes one numeric variable within a quadrant.
type NumericSummary struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
}

// ErrorProfile characterizes the applicants that fell into one quadrant.
type ErrorProfile struct {
	Count       int                           `json:"count"`
	Numeric     map[string]NumericSummary     `json:"numeric"`
	Categorical map[string]map[string]float64 `json:"categorical"`
}

// Report is the complete output of one backtest run.
type Report struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`

	Records   int   `json:"records"`
	Skipped   int   `json:"skipped"` // invalid rows, excluded from metrics
	ElapsedMs int64 `json:"elapsedMs"`

	Metrics        metrics.Snapshot       `json:"metrics"`
	Sweep          []metrics.SweepResult  `json:"sweep"`
	BestThreshold  float64                `json:"bestThreshold"`
	Decisions      map[string]int         `json:"decisions"`
	Profiles       map[Quadrant]ErrorProfile `json:"profiles"`
	Interpretation string                 `json:"interpretation"`
	Session        domain.SessionStats    `json:"session"`

	// Quadrants carries the partitioned records for downstream
	// calibration. It is excluded from the persisted report.
	Quadrants map[Quadrant][]Record `json:"-"`

	// Labels and Scores are the aligned vectors metrics were computed
	// from, kept for threshold simulation.
	Labels []int     `json:"-"`
	Scores []float64 `json:"-"`
}

// Backtester drives a pipeline over a labeled dataset.
type Backtester struct {
	pipe *pipeline.Pipeline
	repo domain.Repository
}

// New creates a backtester. The repository is optional; when present the
// final report is persisted as a JSON document.
func New(pipe *pipeline.Pipeline, repo domain.Repository) *Backtester {
	return &Backtester{pipe: pipe, repo: repo}
}

// Run evaluates every labeled record, computes classification metrics,
// sweeps candidate thresholds, partitions errors by quadrant and
// profiles each quadrant. Invalid records are counted and excluded from
// the metric vectors. The run is deterministic for a fixed dataset and
// rule set.
func (b *Backtester) Run(ctx context.Context, dataset []domain.LabeledRecord) (*Report, error) {
	if len(dataset) == 0 {
		return nil, fmt.Errorf("backtest: empty dataset")
	}
	start := time.Now()

	report := &Report{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Records:   len(dataset),
		Decisions: map[string]int{},
		Quadrants: map[Quadrant][]Record{},
	}

	// Step 1: replay every application through the pipeline.
	raws := make([]map[string]any, len(dataset))
	for i, rec := range dataset {
		raws[i] = rec.Input
	}
	results := b.pipe.EvaluateBatch(ctx, raws)

	// Step 2: build aligned label/prediction/score vectors. Manual
	// review is a non-approval, so it counts as a 0 prediction.
	var labels, preds []int
	var scores []float64
	var records []Record
	for i, res := range results {
		report.Decisions[string(res.Decision)]++
		if !res.IsValid() {
			report.Skipped++
			continue
		}
		pred := 0
		if res.Decision == domain.DecisionApproved {
			pred = 1
		}
		labels = append(labels, dataset[i].Label)
		preds = append(preds, pred)
		scores = append(scores, float64(res.FinalScore))
		records = append(records, Record{
			Index:  i,
			Label:  dataset[i].Label,
			Pred:   pred,
			Result: res,
		})
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("backtest: no valid records in dataset (%d skipped)", report.Skipped)
	}
	report.Labels = labels
	report.Scores = scores

	// Step 3: classification metrics.
	snap, err := metrics.Calculate(labels, preds, scores)
	if err != nil {
		return nil, fmt.Errorf("backtest: %w", err)
	}
	report.Metrics = snap

	// Step 4: threshold sweep.
	report.Sweep, report.BestThreshold = metrics.SweepThresholds(labels, scores)

	// Step 5: partition into confusion quadrants.
	for i := range records {
		q := quadrantOf(records[i].Label, records[i].Pred)
		records[i].Quadrant = q
		report.Quadrants[q] = append(report.Quadrants[q], records[i])
	}

	// Step 6: profile each quadrant.
	report.Profiles = map[Quadrant]ErrorProfile{}
	for q, recs := range report.Quadrants {
		report.Profiles[q] = profile(recs)
	}

	// Step 7: interpretation, session stats and persistence.
	report.Interpretation = metrics.Interpret(snap)
	report.Session = b.pipe.SessionStats()
	report.ElapsedMs = time.Since(start).Milliseconds()

	if b.repo != nil {
		if err := b.save(ctx, report); err != nil {
			slog.Error("failed to persist backtest report", "report_id", report.ID, "error", err)
		}
	}

	slog.Info("backtest complete",
		"report_id", report.ID,
		"records", report.Records,
		"skipped", report.Skipped,
		"accuracy", snap.Accuracy,
		"cost", snap.Cost,
		"duration_ms", report.ElapsedMs,
	)

	return report, nil
}

func quadrantOf(label, pred int) Quadrant {
	switch {
	case pred == 1 && label == 1:
		return QuadrantTP
	case pred == 1 && label == 0:
		return QuadrantFP
	case pred == 0 && label == 0:
		return QuadrantTN
	default:
		return QuadrantFN
	}
}

// profile summarizes the applicants in one quadrant: mean, median and
// standard deviation for numeric variables, value distributions for
// categorical ones.
func profile(recs []Record) ErrorProfile {
	p := ErrorProfile{
		Count:       len(recs),
		Numeric:     map[string]NumericSummary{},
		Categorical: map[string]map[string]float64{},
	}
	if len(recs) == 0 {
		return p
	}

	for _, name := range profileNumeric {
		var vals []float64
		for _, r := range recs {
			if v, ok := numericVar(r, name); ok {
				vals = append(vals, v)
			}
		}
		if len(vals) > 0 {
			p.Numeric[name] = summarize(vals)
		}
	}

	for _, name := range profileCategorical {
		dist := map[string]float64{}
		for _, r := range recs {
			dist[categoricalVar(r, name)]++
		}
		for k := range dist {
			dist[k] = round4(dist[k] / float64(len(recs)))
		}
		p.Categorical[name] = dist
	}

	return p
}

func numericVar(r Record, name string) (float64, bool) {
	a := r.Result.Applicant
	if a == nil {
		return 0, false
	}
	switch name {
	case "age":
		return float64(a.Age), true
	case "monthly_income":
		return a.MonthlyIncome, true
	case "current_debt":
		return a.CurrentDebt, true
	case "dti":
		return r.Result.DTIRatio, true
	case "score":
		return float64(r.Result.FinalScore), true
	}
	return 0, false
}

func categoricalVar(r Record, name string) string {
	a := r.Result.Applicant
	if a == nil {
		return ""
	}
	switch name {
	case "credit_history":
		return fmt.Sprintf("%d", a.CreditHistory)
	case "housing_type":
		return a.HousingType
	case "loan_purpose":
		return a.LoanPurpose
	}
	return ""
}

func summarize(vals []float64) NumericSummary {
	n := float64(len(vals))
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	mean := sum / n

	// Sample variance; a single value has none.
	variance := 0.0
	if len(vals) > 1 {
		for _, v := range vals {
			d := v - mean
			variance += d * d
		}
		variance /= n - 1
	}

	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	var median float64
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		median = sorted[mid]
	} else {
		median = (sorted[mid-1] + sorted[mid]) / 2
	}

	return NumericSummary{
		Mean:   round4(mean),
		Median: round4(median),
		Std:    round4(math.Sqrt(variance)),
	}
}

func (b *Backtester) save(ctx context.Context, report *Report) error {
	blob, err := marshalReport(report)
	if err != nil {
		return err
	}
	return b.repo.SaveBacktestReport(ctx, report.ID, blob)
}

func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}
