package domain

// RuleKind discriminates the two rule shapes the interpreter accepts.
type RuleKind string

const (
	// RuleDirect is a single field/operator/literal condition.
	RuleDirect RuleKind = "directa"

	// RuleCompensation is an ordered list of conditions ANDed together.
	RuleCompensation RuleKind = "compensacion"
)

// Operator is the closed comparison set the interpreter understands.
// Anything else evaluates to false, never an error.
type Operator string

const (
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
)

// Rule is one declarative scoring rule. Rules are loaded once at engine
// construction from the external rule document and are read-only
// thereafter. The JSON tags follow the rule document schema.
type Rule struct {
	ID          string   `json:"id"`
	Active      bool     `json:"activa"`
	Kind        RuleKind `json:"tipo"`
	Description string   `json:"descripcion"`

	// Direct rules: one field/operator/literal triple.
	Field    string   `json:"condicion_campo,omitempty"`
	Operator Operator `json:"condicion_operador,omitempty"`
	Value    any      `json:"condicion_valor,omitempty"`

	// Compensation rules: every condition must hold.
	Conditions []Condition `json:"condiciones,omitempty"`

	// Signed score impact applied when the rule fires.
	Impact int `json:"impacto_puntos"`
}

// Condition is one clause of a compensation rule. It compares a field
// against a literal, or, when RefField is set, against another field
// scaled by Factor.
type Condition struct {
	Field    string   `json:"campo"`
	Operator Operator `json:"operador"`
	Value    any      `json:"valor,omitempty"`
	RefField string   `json:"campo_referencia,omitempty"`
	Factor   float64  `json:"factor,omitempty"`
}

// RuleSet is the top-level shape of the external rule document.
type RuleSet struct {
	Rules []Rule `json:"reglas"`
}

// FiredRule records one rule that contributed to an evaluation.
type FiredRule struct {
	ID          string   `json:"id"`
	Impact      int      `json:"impact"`
	Description string   `json:"description"`
	Kind        RuleKind `json:"kind"`
}
