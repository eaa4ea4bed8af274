package score

import (
	"log/slog"

	"github.com/opensource-finance/harrier/internal/domain"
)

// ApplyRules evaluates every active rule against the applicant extended
// with the virtual dti field, and returns the rules that fired, in rule
// order. A malformed rule or a type-incompatible comparison never
// fails the evaluation; the rule simply does not fire.
func (e *Engine) ApplyRules(in *domain.ApplicantInput, dti float64) []domain.FiredRule {
	fields := in.Fields()
	fields[domain.FieldDTI] = dti

	var fired []domain.FiredRule

	for _, rule := range e.rules {
		if !rule.Active {
			continue
		}

		var holds bool
		switch rule.Kind {
		case domain.RuleDirect:
			holds = evalDirect(fields, &rule)
		case domain.RuleCompensation:
			holds = evalCompensation(fields, &rule)
		default:
			slog.Warn("skipping rule with unknown kind",
				"rule_id", rule.ID,
				"kind", rule.Kind,
			)
			continue
		}

		if holds {
			fired = append(fired, domain.FiredRule{
				ID:          rule.ID,
				Impact:      rule.Impact,
				Description: rule.Description,
				Kind:        rule.Kind,
			})
		}
	}

	return fired
}

// evalDirect checks a single field/operator/literal condition.
func evalDirect(fields map[string]any, rule *domain.Rule) bool {
	actual, ok := fields[rule.Field]
	if !ok {
		return false
	}
	op := rule.Operator
	if op == "" {
		op = domain.OpEqual
	}
	return compare(actual, op, rule.Value)
}

// evalCompensation requires every condition to hold. A condition with a
// RefField compares against another field scaled by Factor.
func evalCompensation(fields map[string]any, rule *domain.Rule) bool {
	if len(rule.Conditions) == 0 {
		return false
	}

	for _, cond := range rule.Conditions {
		actual, ok := fields[cond.Field]
		if !ok {
			return false
		}

		var expected any
		if cond.RefField != "" {
			ref, ok := fields[cond.RefField]
			if !ok {
				return false
			}
			refNum, ok := numeric(ref)
			if !ok {
				return false
			}
			factor := cond.Factor
			if factor == 0 {
				factor = 1.0
			}
			expected = refNum * factor
		} else {
			expected = cond.Value
		}

		op := cond.Operator
		if op == "" {
			op = domain.OpEqual
		}
		if !compare(actual, op, expected) {
			return false
		}
	}

	return true
}

// compare applies an operator to two loosely-typed values. Numbers
// compare numerically, strings lexically for the ordered operators.
// Unknown operators and incompatible operand types yield false.
func compare(actual any, op domain.Operator, expected any) bool {
	if a, ok := numeric(actual); ok {
		if b, ok := numeric(expected); ok {
			return compareFloat(a, op, b)
		}
		return false
	}

	as, aok := actual.(string)
	bs, bok := expected.(string)
	if aok && bok {
		return compareString(as, op, bs)
	}

	// Mixed or unsupported types: equality operators still have a
	// defined answer, ordered ones do not.
	switch op {
	case domain.OpEqual:
		return actual == expected
	case domain.OpNotEqual:
		return actual != expected
	default:
		return false
	}
}

func compareFloat(a float64, op domain.Operator, b float64) bool {
	switch op {
	case domain.OpEqual:
		return a == b
	case domain.OpNotEqual:
		return a != b
	case domain.OpGreater:
		return a > b
	case domain.OpGreaterEqual:
		return a >= b
	case domain.OpLess:
		return a < b
	case domain.OpLessEqual:
		return a <= b
	default:
		return false
	}
}

func compareString(a string, op domain.Operator, b string) bool {
	switch op {
	case domain.OpEqual:
		return a == b
	case domain.OpNotEqual:
		return a != b
	case domain.OpGreater:
		return a > b
	case domain.OpGreaterEqual:
		return a >= b
	case domain.OpLess:
		return a < b
	case domain.OpLessEqual:
		return a <= b
	default:
		return false
	}
}

// numeric widens any supported numeric representation to float64.
// JSON-decoded rule literals arrive as float64; applicant fields as
// int or float64.
func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}
