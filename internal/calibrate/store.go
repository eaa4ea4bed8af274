package calibrate

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

// LoadWeights reads a weight configuration from disk and verifies it
// sums to 1.0 within tolerance.
func LoadWeights(path string) (*domain.WeightsConfig, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("calibrate: read weights: %w", err)
	}
	var cfg domain.WeightsConfig
	if err := json.Unmarshal(blob, &cfg); err != nil {
		return nil, fmt.Errorf("calibrate: parse weights: %w", err)
	}
	if math.Abs(cfg.Sum()-1.0) > 0.001 {
		return nil, fmt.Errorf("calibrate: weights sum to %.4f, want 1.0", cfg.Sum())
	}
	return &cfg, nil
}

// ApplyWeights persists an accepted proposal: the current file is
// backed up with a timestamp suffix, then the new configuration is
// written with a calibration record in its metadata.
func ApplyWeights(path string, proposal *Proposal) error {
	stamp := time.Now().UTC().Format("20060102_150405")

	if current, err := os.ReadFile(path); err == nil {
		ext := filepath.Ext(path)
		backup := strings.TrimSuffix(path, ext) + "_backup_" + stamp + ext
		if err := os.WriteFile(backup, current, 0o644); err != nil {
			return fmt.Errorf("calibrate: write backup: %w", err)
		}
		slog.Info("weights backed up", "backup", backup)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("calibrate: read current weights: %w", err)
	}

	out := *proposal.Weights
	out.Meta.Calibration = &domain.CalibrationRecord{
		Date:    time.Now().UTC(),
		Method:  "backtest_error_analysis",
		Changes: proposal.Changes,
	}

	blob, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return fmt.Errorf("calibrate: encode weights: %w", err)
	}
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		return fmt.Errorf("calibrate: write weights: %w", err)
	}

	slog.Info("weights applied",
		"path", path,
		"changes", len(proposal.Changes),
		"threshold", proposal.Threshold,
	)
	return nil
}

// GenerateReport renders a proposal and its simulation as plain text.
func GenerateReport(proposal *Proposal, sim *Simulation) string {
	var b strings.Builder

	b.WriteString("CALIBRATION PROPOSAL\n")
	b.WriteString("====================\n\n")

	b.WriteString("Variable diagnosis:\n")
	for _, d := range proposal.Diagnoses {
		mark := " "
		if d.Critical {
			mark = "*"
		}
		fmt.Fprintf(&b, "  %s %-16s diffFP=%.1f%%  diffFN=%.1f%%  criticality=%.2f\n",
			mark, d.Variable, d.DiffFP*100, d.DiffFN*100, d.Criticality)
	}

	b.WriteString("\nWeight changes:\n")
	if len(proposal.Changes) == 0 {
		b.WriteString("  none\n")
	}
	for _, ch := range proposal.Changes {
		fmt.Fprintf(&b, "  %-16s %.2f -> %.2f (%+.2f): %s\n",
			ch.Variable, ch.Before, ch.After, ch.Delta, ch.Reason)
	}

	b.WriteString("\nResulting weights:\n")
	names := make([]string, 0, len(proposal.Weights.Weights))
	for name := range proposal.Weights.Weights {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "  %-16s %.2f\n", name, proposal.Weights.Weights[name].Weight)
	}
	fmt.Fprintf(&b, "  %-16s %.2f\n", "total", proposal.Weights.Sum())

	fmt.Fprintf(&b, "\nProposed threshold: %d\n", proposal.Threshold)

	if sim != nil {
		b.WriteString("\nSimulation:\n")
		fmt.Fprintf(&b, "  cost before: %.4f\n", sim.CostBefore)
		fmt.Fprintf(&b, "  cost after:  %.4f\n", sim.CostAfter)
		fmt.Fprintf(&b, "  accuracy:    %.4f -> %.4f\n", sim.Before.Accuracy, sim.After.Accuracy)
		fmt.Fprintf(&b, "  recall:      %.4f -> %.4f\n", sim.Before.Recall, sim.After.Recall)
		if sim.Apply {
			b.WriteString("  verdict: APPLY (cost strictly decreases)\n")
		} else {
			b.WriteString("  verdict: KEEP CURRENT (no strict improvement)\n")
		}
	}

	return b.String()
}
