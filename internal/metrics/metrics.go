// Package metrics computes classification quality measures for credit
// decisions: confusion counts, derived ratios, asymmetric business cost,
// ROC/AUC and threshold sweeps.
package metrics

import (
	"fmt"
	"math"
	"sort"
)

// Asymmetric cost of the two error kinds. Approving a bad loan burns
// capital; rejecting a good one only loses margin.
const (
	CostFalsePositive = 4.0
	CostFalseNegative = 1.0
)

// SweepCandidates are the thresholds tried by SweepThresholds, in the
// order ties are broken.
var SweepCandidates = []float64{70, 75, 78, 80, 82, 85, 88, 90}

// Confusion holds the four quadrant counts. Convention: positive means
// "approved", the true label 1 means "repaid".
type Confusion struct {
	TP int `json:"tp"`
	FP int `json:"fp"`
	TN int `json:"tn"`
	FN int `json:"fn"`
}

// Total returns the number of classified records.
func (c Confusion) Total() int { return c.TP + c.FP + c.TN + c.FN }

// Snapshot is a full metrics report over one labeled evaluation run.
type Snapshot struct {
	Confusion   Confusion `json:"confusion"`
	Accuracy    float64   `json:"accuracy"`
	Precision   float64   `json:"precision"`
	Recall      float64   `json:"recall"`
	F1          float64   `json:"f1"`
	Specificity float64   `json:"specificity"`
	Cost        float64   `json:"cost"`
	AUC         float64   `json:"auc"`

	// PredictedDefaultRate is the share of approvals that actually
	// defaulted; UnfairRejectionRate is the share of rejections that
	// were actually solvent.
	PredictedDefaultRate float64 `json:"predictedDefaultRate"`
	UnfairRejectionRate  float64 `json:"unfairRejectionRate"`
}

// Calculate builds a Snapshot from parallel slices of true labels
// (1 repaid, 0 defaulted), predicted decisions (1 approved, 0 not)
// and raw scores. Slices must be the same length and non-empty.
func Calculate(labels, preds []int, scores []float64) (Snapshot, error) {
	if len(labels) == 0 {
		return Snapshot{}, fmt.Errorf("metrics: empty input")
	}
	if len(labels) != len(preds) || len(labels) != len(scores) {
		return Snapshot{}, fmt.Errorf("metrics: length mismatch labels=%d preds=%d scores=%d",
			len(labels), len(preds), len(scores))
	}

	var c Confusion
	for i, y := range labels {
		switch {
		case preds[i] == 1 && y == 1:
			c.TP++
		case preds[i] == 1 && y == 0:
			c.FP++
		case preds[i] == 0 && y == 0:
			c.TN++
		default:
			c.FN++
		}
	}

	s := Snapshot{Confusion: c}
	n := float64(c.Total())
	s.Accuracy = round4(float64(c.TP+c.TN) / n)
	s.Precision = round4(ratio(c.TP, c.TP+c.FP))
	s.Recall = round4(ratio(c.TP, c.TP+c.FN))
	s.Specificity = round4(ratio(c.TN, c.TN+c.FP))
	if s.Precision+s.Recall > 0 {
		s.F1 = round4(2 * s.Precision * s.Recall / (s.Precision + s.Recall))
	}
	s.Cost = round4((float64(c.FP)*CostFalsePositive + float64(c.FN)*CostFalseNegative) / n)
	s.AUC = round4(AUC(labels, scores))
	s.PredictedDefaultRate = round4(ratio(c.FP, c.TP+c.FP))
	s.UnfairRejectionRate = round4(ratio(c.FN, c.TN+c.FN))
	return s, nil
}

// CostOf returns the asymmetric per-record cost of a confusion matrix.
func CostOf(c Confusion) float64 {
	n := c.Total()
	if n == 0 {
		return 0
	}
	return (float64(c.FP)*CostFalsePositive + float64(c.FN)*CostFalseNegative) / float64(n)
}

// AUC computes the area under the ROC curve by sweeping every distinct
// score as a cut point and integrating with the trapezoid rule.
// Degenerate inputs (a single class) yield 0, matching the reporting
// convention that an unmeasurable separation scores as none.
func AUC(labels []int, scores []float64) float64 {
	pos, neg := 0, 0
	for _, y := range labels {
		if y == 1 {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return 0
	}

	cuts := make([]float64, len(scores))
	copy(cuts, scores)
	sort.Float64s(cuts)

	type point struct{ fpr, tpr float64 }
	pts := make([]point, 0, len(cuts)+2)
	pts = append(pts, point{1, 1})
	prev := math.Inf(-1)
	for _, cut := range cuts {
		if cut == prev {
			continue
		}
		prev = cut
		tp, fp := 0, 0
		for i, sc := range scores {
			if sc >= cut {
				if labels[i] == 1 {
					tp++
				} else {
					fp++
				}
			}
		}
		pts = append(pts, point{float64(fp) / float64(neg), float64(tp) / float64(pos)})
	}
	pts = append(pts, point{0, 0})

	sort.Slice(pts, func(i, j int) bool {
		if pts[i].fpr != pts[j].fpr {
			return pts[i].fpr < pts[j].fpr
		}
		return pts[i].tpr < pts[j].tpr
	})

	area := 0.0
	for i := 1; i < len(pts); i++ {
		area += (pts[i].fpr - pts[i-1].fpr) * (pts[i].tpr + pts[i-1].tpr) / 2
	}
	return area
}

// SweepResult records the full metrics snapshot obtained by classifying
// the scored set at one candidate threshold.
type SweepResult struct {
	Threshold float64  `json:"threshold"`
	Metrics   Snapshot `json:"metrics"`
}

// SweepThresholds recomputes the complete Snapshot at each candidate
// threshold and returns every result plus the threshold with the
// minimal asymmetric cost. Ties keep the earliest candidate.
func SweepThresholds(labels []int, scores []float64) ([]SweepResult, float64) {
	results := make([]SweepResult, 0, len(SweepCandidates))
	best := SweepCandidates[0]
	bestCost := math.Inf(1)
	preds := make([]int, len(scores))
	for _, thr := range SweepCandidates {
		for i, sc := range scores {
			if sc >= thr {
				preds[i] = 1
			} else {
				preds[i] = 0
			}
		}
		snap, err := Calculate(labels, preds, scores)
		if err != nil {
			return nil, 0
		}
		results = append(results, SweepResult{Threshold: thr, Metrics: snap})
		if snap.Cost < bestCost {
			bestCost = snap.Cost
			best = thr
		}
	}
	return results, best
}

// Interpret renders a short human-readable reading of a snapshot.
func Interpret(s Snapshot) string {
	out := ""
	switch {
	case s.Accuracy >= 0.9:
		out += "Accuracy is strong. "
	case s.Accuracy >= 0.75:
		out += "Accuracy is acceptable. "
	default:
		out += "Accuracy is weak; the model misclassifies a large share of applicants. "
	}
	if s.Confusion.FP > s.Confusion.FN {
		out += fmt.Sprintf("The dominant error is approving bad loans (%d false approvals vs %d false rejections), which is the costly direction. ",
			s.Confusion.FP, s.Confusion.FN)
	} else if s.Confusion.FN > s.Confusion.FP {
		out += fmt.Sprintf("The dominant error is rejecting good applicants (%d false rejections vs %d false approvals). ",
			s.Confusion.FN, s.Confusion.FP)
	}
	switch {
	case s.AUC >= 0.85:
		out += "Score separation between repaid and defaulted groups is strong."
	case s.AUC >= 0.7:
		out += "Score separation between groups is moderate."
	default:
		out += "Scores barely separate repaid from defaulted applicants; the rule weights need review."
	}
	return out
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}
