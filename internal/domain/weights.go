package domain

import "time"

// WeightsConfig is the persisted weight-per-variable map read by the
// calibration subsystem. The weights must sum to 1.0 within 0.001.
//
// The scoring formulas do not consult this map at evaluation time; it
// is calibration state. Applying a proposal therefore only changes
// future calibration baselines and the decision threshold, a known gap
// inherited deliberately from the reference configuration (see
// DESIGN.md).
type WeightsConfig struct {
	Weights map[string]WeightEntry `json:"weights"`
	Meta    WeightsMeta            `json:"_meta"`
}

// WeightEntry is one named variable weight.
type WeightEntry struct {
	Weight      float64 `json:"weight"`
	Description string  `json:"description,omitempty"`
}

// WeightsMeta carries versioning and the calibration audit trail.
type WeightsMeta struct {
	Version     string             `json:"version"`
	Calibration *CalibrationRecord `json:"calibration,omitempty"`
}

// CalibrationRecord is the history entry written on each ApplyWeights.
type CalibrationRecord struct {
	Date    time.Time      `json:"date"`
	Method  string         `json:"method"`
	Changes []WeightChange `json:"changes"`
}

// WeightChange documents one individual weight delta and its rationale.
type WeightChange struct {
	Variable string  `json:"variable"`
	Before   float64 `json:"before"`
	After    float64 `json:"after"`
	Delta    float64 `json:"delta"`
	Reason   string  `json:"reason"`
}

// Sum returns the total of all weights.
func (w *WeightsConfig) Sum() float64 {
	var total float64
	for _, e := range w.Weights {
		total += e.Weight
	}
	return total
}

// WeightMap returns the plain name->weight view.
func (w *WeightsConfig) WeightMap() map[string]float64 {
	m := make(map[string]float64, len(w.Weights))
	for name, e := range w.Weights {
		m[name] = e.Weight
	}
	return m
}

// DefaultWeights returns the reference weight configuration: one weight
// per input variable, summing to 1.0.
func DefaultWeights() *WeightsConfig {
	return &WeightsConfig{
		Weights: map[string]WeightEntry{
			FieldMonthlyIncome:   {Weight: 0.25, Description: "monthly income"},
			FieldCurrentDebt:     {Weight: 0.20, Description: "current total debt"},
			FieldCreditHistory:   {Weight: 0.15, Description: "credit history code"},
			FieldYearsAtJob:      {Weight: 0.12, Description: "years at current job"},
			FieldAge:             {Weight: 0.10, Description: "applicant age"},
			FieldHousingType:     {Weight: 0.06, Description: "housing type"},
			FieldDependents:      {Weight: 0.05, Description: "number of dependents"},
			FieldLoanPurpose:     {Weight: 0.04, Description: "loan purpose"},
			FieldRequestedAmount: {Weight: 0.03, Description: "requested amount"},
		},
		Meta: WeightsMeta{Version: "v1"},
	}
}
