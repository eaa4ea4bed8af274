package score

import (
	"testing"

	"github.com/opensource-finance/harrier/internal/domain"
)

func TestApplyRules(t *testing.T) {
	in := strongApplicant()

	t.Run("DefaultRulesAgainstStrongApplicant", func(t *testing.T) {
		e := NewEngine(DefaultRules())
		fired := e.ApplyRules(in, 0.12)

		want := []string{"R001", "R002", "R003", "R005", "R010"}
		if len(fired) != len(want) {
			t.Fatalf("fired %d rules, want %d: %+v", len(fired), len(want), fired)
		}
		for i, id := range want {
			if fired[i].ID != id {
				t.Errorf("fired[%d] = %s, want %s (rule order must be preserved)", i, fired[i].ID, id)
			}
		}
	})

	t.Run("InactiveRuleSkipped", func(t *testing.T) {
		e := NewEngine([]domain.Rule{{
			ID:       "R001",
			Active:   false,
			Kind:     domain.RuleDirect,
			Field:    domain.FieldCreditHistory,
			Operator: domain.OpEqual,
			Value:    2,
			Impact:   8,
		}})

		if fired := e.ApplyRules(in, 0.12); len(fired) != 0 {
			t.Errorf("inactive rule fired: %+v", fired)
		}
	})

	t.Run("UnknownKindSkipped", func(t *testing.T) {
		e := NewEngine([]domain.Rule{{
			ID:     "RX",
			Active: true,
			Kind:   "mystery",
			Impact: 50,
		}})

		if fired := e.ApplyRules(in, 0.12); len(fired) != 0 {
			t.Errorf("unknown kind fired: %+v", fired)
		}
	})

	t.Run("UnknownOperatorNeverFires", func(t *testing.T) {
		e := NewEngine([]domain.Rule{{
			ID:       "RX",
			Active:   true,
			Kind:     domain.RuleDirect,
			Field:    domain.FieldAge,
			Operator: "~",
			Value:    35,
			Impact:   5,
		}})

		if fired := e.ApplyRules(in, 0.12); len(fired) != 0 {
			t.Errorf("unknown operator fired: %+v", fired)
		}
	})

	t.Run("TypeIncompatibleComparisonNeverFires", func(t *testing.T) {
		e := NewEngine([]domain.Rule{{
			ID:       "RX",
			Active:   true,
			Kind:     domain.RuleDirect,
			Field:    domain.FieldHousingType,
			Operator: domain.OpGreater,
			Value:    100,
			Impact:   5,
		}})

		if fired := e.ApplyRules(in, 0.12); len(fired) != 0 {
			t.Errorf("incompatible comparison fired: %+v", fired)
		}
	})

	t.Run("UnknownFieldNeverFires", func(t *testing.T) {
		e := NewEngine([]domain.Rule{{
			ID:       "RX",
			Active:   true,
			Kind:     domain.RuleDirect,
			Field:    "shoe_size",
			Operator: domain.OpEqual,
			Value:    42,
			Impact:   5,
		}})

		if fired := e.ApplyRules(in, 0.12); len(fired) != 0 {
			t.Errorf("unknown field fired: %+v", fired)
		}
	})

	t.Run("MissingOperatorDefaultsToEquality", func(t *testing.T) {
		e := NewEngine([]domain.Rule{{
			ID:     "RX",
			Active: true,
			Kind:   domain.RuleDirect,
			Field:  domain.FieldCreditHistory,
			Value:  2,
			Impact: 8,
		}})

		if fired := e.ApplyRules(in, 0.12); len(fired) != 1 {
			t.Errorf("expected equality default to fire, got %+v", fired)
		}
	})

	t.Run("VirtualDTIField", func(t *testing.T) {
		e := NewEngine([]domain.Rule{{
			ID:       "RX",
			Active:   true,
			Kind:     domain.RuleDirect,
			Field:    domain.FieldDTI,
			Operator: domain.OpLess,
			Value:    0.20,
			Impact:   7,
		}})

		if fired := e.ApplyRules(in, 0.12); len(fired) != 1 {
			t.Error("expected rule on the virtual dti field to fire")
		}
		if fired := e.ApplyRules(in, 0.45); len(fired) != 0 {
			t.Error("rule fired above its dti cutoff")
		}
	})
}

func TestCompensationRules(t *testing.T) {
	t.Run("AllConditionsMustHold", func(t *testing.T) {
		e := NewEngine([]domain.Rule{{
			ID:     "RC",
			Active: true,
			Kind:   domain.RuleCompensation,
			Conditions: []domain.Condition{
				{Field: domain.FieldHousingType, Operator: domain.OpEqual, Value: domain.HousingRented},
				{Field: domain.FieldMonthlyIncome, Operator: domain.OpGreater, Value: 18000.0},
			},
			Impact: 5,
		}})

		renter := strongApplicant()
		renter.HousingType = domain.HousingRented
		if fired := e.ApplyRules(renter, 0.12); len(fired) != 1 {
			t.Error("expected compensation rule to fire for high-income renter")
		}

		// Owned housing fails the first condition
		if fired := e.ApplyRules(strongApplicant(), 0.12); len(fired) != 0 {
			t.Errorf("compensation fired with a failing condition: %+v", fired)
		}
	})

	t.Run("ReferenceFieldWithFactor", func(t *testing.T) {
		e := NewEngine([]domain.Rule{{
			ID:     "RC",
			Active: true,
			Kind:   domain.RuleCompensation,
			Conditions: []domain.Condition{
				{Field: domain.FieldRequestedAmount, Operator: domain.OpGreater, RefField: domain.FieldMonthlyIncome, Factor: 12},
			},
			Impact: -8,
		}})

		in := strongApplicant()
		in.MonthlyIncome = 1000.0
		in.RequestedAmount = 13000.0 // > 1000 * 12
		if fired := e.ApplyRules(in, 0.12); len(fired) != 1 {
			t.Error("expected reference-field condition to fire")
		}

		in.RequestedAmount = 12000.0 // == 1000 * 12, not greater
		if fired := e.ApplyRules(in, 0.12); len(fired) != 0 {
			t.Errorf("condition fired at exact boundary: %+v", fired)
		}
	})

	t.Run("ZeroFactorDefaultsToOne", func(t *testing.T) {
		e := NewEngine([]domain.Rule{{
			ID:     "RC",
			Active: true,
			Kind:   domain.RuleCompensation,
			Conditions: []domain.Condition{
				{Field: domain.FieldCurrentDebt, Operator: domain.OpLess, RefField: domain.FieldMonthlyIncome},
			},
			Impact: 3,
		}})

		// debt 3000 < income 25000 * 1.0
		if fired := e.ApplyRules(strongApplicant(), 0.12); len(fired) != 1 {
			t.Error("expected factor to default to 1.0")
		}
	})

	t.Run("EmptyConditionsNeverFires", func(t *testing.T) {
		e := NewEngine([]domain.Rule{{
			ID:     "RC",
			Active: true,
			Kind:   domain.RuleCompensation,
			Impact: 10,
		}})

		if fired := e.ApplyRules(strongApplicant(), 0.12); len(fired) != 0 {
			t.Errorf("compensation with no conditions fired: %+v", fired)
		}
	})

	t.Run("MissingReferenceFieldNeverFires", func(t *testing.T) {
		e := NewEngine([]domain.Rule{{
			ID:     "RC",
			Active: true,
			Kind:   domain.RuleCompensation,
			Conditions: []domain.Condition{
				{Field: domain.FieldCurrentDebt, Operator: domain.OpLess, RefField: "net_worth"},
			},
			Impact: 3,
		}})

		if fired := e.ApplyRules(strongApplicant(), 0.12); len(fired) != 0 {
			t.Errorf("rule with unknown reference field fired: %+v", fired)
		}
	})
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name     string
		actual   any
		op       domain.Operator
		expected any
		want     bool
	}{
		{"IntVsFloat", 35, domain.OpEqual, 35.0, true},
		{"FloatGreater", 0.55, domain.OpGreaterEqual, 0.55, true},
		{"StringEqual", "Owned", domain.OpEqual, "Owned", true},
		{"StringNotEqual", "Owned", domain.OpNotEqual, "Rented", true},
		{"StringOrdered", "b", domain.OpGreater, "a", true},
		{"NumberVsString", 35, domain.OpGreater, "35", false},
		{"MixedEquality", "x", domain.OpEqual, 1, false},
		{"MixedInequality", "x", domain.OpNotEqual, 1, true},
		{"UnknownOp", 1, "contains", 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := compare(tt.actual, tt.op, tt.expected); got != tt.want {
				t.Errorf("compare(%v, %s, %v) = %v, want %v",
					tt.actual, tt.op, tt.expected, got, tt.want)
			}
		})
	}
}
