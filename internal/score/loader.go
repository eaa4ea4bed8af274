package score

import (
	"encoding/json"
	"log/slog"
	"os"

	"github.com/opensource-finance/harrier/internal/domain"
)

// LoadRules reads the external rule document. A missing or malformed
// file degrades to an empty rule set: the engine still runs, scoring on
// sub-scores alone. The condition is logged, never fatal.
func LoadRules(path string) []domain.Rule {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Error("rule file not readable, running with empty rule set",
			"path", path,
			"error", err,
		)
		return nil
	}

	var set domain.RuleSet
	if err := json.Unmarshal(data, &set); err != nil {
		slog.Error("rule file malformed, running with empty rule set",
			"path", path,
			"error", err,
		)
		return nil
	}

	slog.Info("rules loaded",
		"path", path,
		"count", len(set.Rules),
	)
	return set.Rules
}
