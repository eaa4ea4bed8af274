// Backtest tool for replaying labeled historical applications through
// the Harrier evaluation pipeline.
//
// Usage:
//   go run cmd/backtest/main.go -csv /path/to/history.csv
//
// This tool:
//   1. Reads a labeled application dataset (with repayment outcomes)
//   2. Evaluates every application with the local rule set
//   3. Compares decisions with the real outcomes (confusion matrix,
//      precision, recall, F1, asymmetric cost, AUC)
//   4. Diagnoses error quadrants and proposes bounded weight and
//      threshold adjustments, applied only with -apply and only when
//      simulation shows a strict cost improvement
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/opensource-finance/harrier/internal/backtest"
	"github.com/opensource-finance/harrier/internal/calibrate"
	"github.com/opensource-finance/harrier/internal/pipeline"
	"github.com/opensource-finance/harrier/internal/score"
	"github.com/opensource-finance/harrier/internal/validate"
)

func main() {
	csvPath := flag.String("csv", "", "Path to labeled application CSV file")
	rulesPath := flag.String("rules", "./knowledge/rules.json", "Path to the rule document")
	weightsPath := flag.String("weights", "./knowledge/weights.json", "Path to the weight configuration")
	workers := flag.Int("workers", 4, "Number of concurrent evaluation workers")
	apply := flag.Bool("apply", false, "Apply the calibration proposal when simulation approves it")
	verbose := flag.Bool("verbose", false, "Print per-threshold sweep results")
	flag.Parse()

	logLevel := slog.LevelWarn
	if os.Getenv("HARRIER_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	if *csvPath == "" {
		fmt.Println("Usage: backtest -csv /path/to/history.csv [-apply]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║           HARRIER BACKTEST - Decision Quality Replay          ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nCSV File:  %s\n", *csvPath)
	fmt.Printf("Rules:     %s\n", *rulesPath)
	fmt.Printf("Weights:   %s\n", *weightsPath)
	fmt.Printf("Workers:   %d\n", *workers)
	fmt.Printf("Apply:     %v\n", *apply)
	fmt.Println()

	dataset, err := backtest.LoadCSV(*csvPath)
	if err != nil {
		fmt.Printf("ERROR: failed to read dataset: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Loaded %d labeled applications\n", len(dataset))

	repaid := 0
	for _, rec := range dataset {
		repaid += rec.Label
	}
	fmt.Printf("  - Repaid:    %d (%.2f%%)\n", repaid, 100*float64(repaid)/float64(len(dataset)))
	fmt.Printf("  - Defaulted: %d (%.2f%%)\n", len(dataset)-repaid, 100*float64(len(dataset)-repaid)/float64(len(dataset)))

	engineRules := score.LoadRules(*rulesPath)
	if len(engineRules) == 0 {
		fmt.Println("  (rule document unavailable, using built-in rule set)")
		engineRules = score.DefaultRules()
	}

	pipe := pipeline.New(validate.New(), score.NewEngine(engineRules),
		pipeline.WithBatchWorkers(*workers))
	tester := backtest.New(pipe, nil)

	ctx := context.Background()
	start := time.Now()
	report, err := tester.Run(ctx, dataset)
	if err != nil {
		fmt.Printf("ERROR: backtest failed: %v\n", err)
		os.Exit(1)
	}
	printReport(report, time.Since(start), *verbose)

	weights, err := calibrate.LoadWeights(*weightsPath)
	if err != nil {
		fmt.Printf("\nERROR: failed to load weights: %v\n", err)
		os.Exit(1)
	}

	proposal, err := calibrate.ProposeAdjustments(report, weights)
	if err != nil {
		fmt.Printf("\nERROR: calibration failed: %v\n", err)
		os.Exit(1)
	}

	sim, err := calibrate.Simulate(ctx, report, proposal)
	if err != nil {
		fmt.Printf("\nERROR: simulation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Print(calibrate.GenerateReport(proposal, sim))

	if !*apply {
		fmt.Println("\nRe-run with -apply to persist an approved proposal.")
		return
	}
	if !sim.Apply {
		fmt.Println("\nProposal not applied: simulation shows no strict improvement.")
		return
	}
	if err := calibrate.ApplyWeights(*weightsPath, proposal); err != nil {
		fmt.Printf("\nERROR: failed to apply weights: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\n✓ Calibration applied to %s (previous file backed up)\n", *weightsPath)
}

func printReport(r *backtest.Report, duration time.Duration, verbose bool) {
	m := r.Metrics
	c := m.Confusion

	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                       BACKTEST RESULTS                        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\nDATASET\n")
	fmt.Printf("   Records:   %d\n", r.Records)
	fmt.Printf("   Skipped:   %d (invalid, excluded from metrics)\n", r.Skipped)
	decisions := make([]string, 0, len(r.Decisions))
	for d := range r.Decisions {
		decisions = append(decisions, d)
	}
	sort.Strings(decisions)
	for _, d := range decisions {
		fmt.Printf("   %-16s %d\n", d+":", r.Decisions[d])
	}

	fmt.Printf("\nCONFUSION MATRIX\n")
	fmt.Println("                       Predicted")
	fmt.Println("                  Approve     Reject")
	fmt.Println("             ┌──────────┬──────────┐")
	fmt.Printf("  Actual  R  │ %8d │ %8d │  (TP, FN)\n", c.TP, c.FN)
	fmt.Println("             ├──────────┼──────────┤")
	fmt.Printf("          D  │ %8d │ %8d │  (FP, TN)\n", c.FP, c.TN)
	fmt.Println("             └──────────┴──────────┘")

	fmt.Printf("\nMETRICS\n")
	fmt.Printf("   Accuracy:     %.4f\n", m.Accuracy)
	fmt.Printf("   Precision:    %.4f  (of approvals, how many repaid)\n", m.Precision)
	fmt.Printf("   Recall:       %.4f  (of good payers, how many approved)\n", m.Recall)
	fmt.Printf("   F1-Score:     %.4f\n", m.F1)
	fmt.Printf("   Specificity:  %.4f  (of defaulters, how many rejected)\n", m.Specificity)
	fmt.Printf("   Cost:         %.4f  (asymmetric, FP x4)\n", m.Cost)
	fmt.Printf("   AUC:          %.4f\n", m.AUC)

	fmt.Printf("\nTHRESHOLD SWEEP\n")
	fmt.Printf("   Best threshold: %.0f\n", r.BestThreshold)
	if verbose {
		for _, s := range r.Sweep {
			c := s.Metrics.Confusion
			fmt.Printf("   thr %.0f: cost %.4f acc %.4f (TP=%d FP=%d TN=%d FN=%d)\n",
				s.Threshold, s.Metrics.Cost, s.Metrics.Accuracy, c.TP, c.FP, c.TN, c.FN)
		}
	}

	fmt.Printf("\nINTERPRETATION\n   %s\n", r.Interpretation)

	fmt.Printf("\nPERFORMANCE\n")
	fmt.Printf("   Duration:   %v\n", duration.Round(time.Millisecond))
	if r.Records > 0 && duration.Seconds() > 0 {
		fmt.Printf("   Throughput: %.2f applications/sec\n", float64(r.Records)/duration.Seconds())
	}
}
