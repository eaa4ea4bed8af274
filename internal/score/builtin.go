package score

import "github.com/opensource-finance/harrier/internal/domain"

// DefaultRules returns the reference rule set shipped in
// knowledge/rules.json. It is the set the engine is calibrated against
// and the one the test suite exercises.
func DefaultRules() []domain.Rule {
	return []domain.Rule{
		{
			ID:          "R001",
			Active:      true,
			Kind:        domain.RuleDirect,
			Field:       domain.FieldCreditHistory,
			Operator:    domain.OpEqual,
			Value:       2,
			Impact:      8,
			Description: "Good credit history",
		},
		{
			ID:          "R002",
			Active:      true,
			Kind:        domain.RuleDirect,
			Field:       domain.FieldDTI,
			Operator:    domain.OpLess,
			Value:       0.20,
			Impact:      7,
			Description: "Very low debt burden",
		},
		{
			ID:          "R003",
			Active:      true,
			Kind:        domain.RuleDirect,
			Field:       domain.FieldMonthlyIncome,
			Operator:    domain.OpGreater,
			Value:       20000.0,
			Impact:      5,
			Description: "High monthly income",
		},
		{
			ID:          "R004",
			Active:      true,
			Kind:        domain.RuleDirect,
			Field:       domain.FieldDTI,
			Operator:    domain.OpGreaterEqual,
			Value:       0.55,
			Impact:      -10,
			Description: "Debt burden near critical",
		},
		{
			ID:          "R005",
			Active:      true,
			Kind:        domain.RuleDirect,
			Field:       domain.FieldYearsAtJob,
			Operator:    domain.OpGreaterEqual,
			Value:       5,
			Impact:      4,
			Description: "Long job tenure",
		},
		{
			ID:     "R006",
			Active: true,
			Kind:   domain.RuleCompensation,
			Conditions: []domain.Condition{
				{Field: domain.FieldHousingType, Operator: domain.OpEqual, Value: domain.HousingRented},
				{Field: domain.FieldMonthlyIncome, Operator: domain.OpGreater, Value: 18000.0},
			},
			Impact:      5,
			Description: "High income compensates rented housing",
		},
		{
			ID:          "R007",
			Active:      true,
			Kind:        domain.RuleDirect,
			Field:       domain.FieldDependents,
			Operator:    domain.OpGreaterEqual,
			Value:       4,
			Impact:      -5,
			Description: "Large household",
		},
		{
			ID:          "R008",
			Active:      true,
			Kind:        domain.RuleDirect,
			Field:       domain.FieldCreditHistory,
			Operator:    domain.OpEqual,
			Value:       0,
			Impact:      -12,
			Description: "Bad credit history",
		},
		{
			ID:     "R009",
			Active: true,
			Kind:   domain.RuleCompensation,
			Conditions: []domain.Condition{
				{Field: domain.FieldRequestedAmount, Operator: domain.OpGreater, RefField: domain.FieldMonthlyIncome, Factor: 12},
				{Field: domain.FieldCreditHistory, Operator: domain.OpLessEqual, Value: 1},
			},
			Impact:      -8,
			Description: "Large loan relative to income without solid history",
		},
		{
			ID:     "R010",
			Active: true,
			Kind:   domain.RuleCompensation,
			Conditions: []domain.Condition{
				{Field: domain.FieldAge, Operator: domain.OpGreaterEqual, Value: 25},
				{Field: domain.FieldAge, Operator: domain.OpLessEqual, Value: 40},
				{Field: domain.FieldYearsAtJob, Operator: domain.OpGreaterEqual, Value: 2},
			},
			Impact:      6,
			Description: "Prime age with established tenure",
		},
	}
}
