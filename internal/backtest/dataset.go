package backtest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
)

// LabelColumn is the CSV column holding the repayment outcome.
const LabelColumn = "repaid"

// LoadCSV reads a labeled dataset from a CSV file. The header row names
// the columns; the nine applicant fields plus the label column must be
// present. Values are kept as strings and handed to the pipeline raw,
// so sanitization applies the same coercions it applies to live input.
func LoadCSV(path string) ([]domain.LabeledRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("backtest: open dataset: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("backtest: read header: %w", err)
	}
	cols := map[string]int{}
	for i, name := range header {
		cols[strings.TrimSpace(strings.ToLower(name))] = i
	}

	labelIdx, ok := cols[LabelColumn]
	if !ok {
		return nil, fmt.Errorf("backtest: dataset missing %q column", LabelColumn)
	}
	for _, field := range domain.RequiredFields {
		if _, ok := cols[field]; !ok {
			return nil, fmt.Errorf("backtest: dataset missing %q column", field)
		}
	}

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("backtest: read rows: %w", err)
	}

	dataset := make([]domain.LabeledRecord, 0, len(rows))
	for i, row := range rows {
		input := map[string]any{}
		for _, field := range domain.RequiredFields {
			input[field] = row[cols[field]]
		}
		label := 0
		if strings.TrimSpace(row[labelIdx]) == "1" {
			label = 1
		} else if strings.TrimSpace(row[labelIdx]) != "0" {
			return nil, fmt.Errorf("backtest: row %d: label must be 0 or 1, got %q", i+2, row[labelIdx])
		}
		dataset = append(dataset, domain.LabeledRecord{Input: input, Label: label})
	}
	return dataset, nil
}

func marshalReport(report *Report) ([]byte, error) {
	return json.Marshal(report)
}
