// Package models defines the scorecard configuration entities: the config
// lineage per institution, its versioned factor/band snapshots, and the
// tagged rule variant each scoring factor carries.
package models

import (
	"time"

	id "scorewise/pkg/domain"
)

// RuleKind tags the rule variant carried by a scoring factor. The evaluator
// switches exhaustively on this tag; adding a kind is a compile-time-checked
// change, not a reflection lookup.
type RuleKind string

const (
	RuleKindThreshold  RuleKind = "threshold"
	RuleKindCondition  RuleKind = "condition"
	RuleKindExpression RuleKind = "expression"
)

// CompareOp is the closed set of comparison operators a condition rule may use.
type CompareOp string

const (
	OpEqual        CompareOp = "eq"
	OpNotEqual     CompareOp = "ne"
	OpLessThan     CompareOp = "lt"
	OpLessOrEqual  CompareOp = "lte"
	OpGreaterThan  CompareOp = "gt"
	OpGreaterEqual CompareOp = "gte"
)

// ValidCompareOp reports whether op belongs to the closed operator set.
func ValidCompareOp(op CompareOp) bool {
	switch op {
	case OpEqual, OpNotEqual, OpLessThan, OpLessOrEqual, OpGreaterThan, OpGreaterEqual:
		return true
	}
	return false
}

// PointRange awards Points when the field value falls inside [Min, Max],
// both bounds inclusive.
type PointRange struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Points float64 `json:"points"`
}

// ThresholdRule maps a numeric applicant field onto ordered, non-overlapping
// point ranges. First containing range wins; no range means zero points.
type ThresholdRule struct {
	Field  string       `json:"field"`
	Ranges []PointRange `json:"ranges"`
}

// Comparison is one field comparison inside a condition case.
type Comparison struct {
	Field string    `json:"field"`
	Op    CompareOp `json:"op"`
	Value any       `json:"value"`
}

// ConditionCase awards Points when every comparison in When holds.
type ConditionCase struct {
	When   []Comparison `json:"when"`
	Points float64      `json:"points"`
}

// ConditionRule evaluates its cases in order; the first case whose
// comparisons all hold determines the points. No match means zero points.
type ConditionRule struct {
	Cases []ConditionCase `json:"cases"`
}

// ExpressionRule computes points from a restricted arithmetic/boolean
// expression over applicant fields. The expression grammar is owned by
// internal/evaluation/expr; institution-supplied text never reaches a
// general-purpose evaluator.
type ExpressionRule struct {
	Expression string `json:"expression"`
}

// Rule is the tagged variant attached to a scoring factor. Exactly one of
// the payload pointers matching Kind is set.
type Rule struct {
	Kind       RuleKind        `json:"kind"`
	Threshold  *ThresholdRule  `json:"threshold,omitempty"`
	Condition  *ConditionRule  `json:"condition,omitempty"`
	Expression *ExpressionRule `json:"expression,omitempty"`
}

// Fields returns the applicant field names the rule reads. Used for
// data-completeness accounting. Expression field references are resolved
// by the expression engine, so expression rules report none here.
func (r Rule) Fields() []string {
	switch r.Kind {
	case RuleKindThreshold:
		if r.Threshold != nil {
			return []string{r.Threshold.Field}
		}
	case RuleKindCondition:
		if r.Condition == nil {
			return nil
		}
		seen := make(map[string]struct{})
		var fields []string
		for _, c := range r.Condition.Cases {
			for _, cmp := range c.When {
				if _, ok := seen[cmp.Field]; !ok {
					seen[cmp.Field] = struct{}{}
					fields = append(fields, cmp.Field)
				}
			}
		}
		return fields
	}
	return nil
}

// ScoringFactor is one named scoring input inside a version.
type ScoringFactor struct {
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Weight    float64 `json:"weight"`
	MaxPoints float64 `json:"max_points"`
	Rule      Rule    `json:"rule"`
}

// GradeBand maps the inclusive integer range [Min, Max] to a letter grade.
type GradeBand struct {
	Min   int    `json:"min"`
	Max   int    `json:"max"`
	Grade string `json:"grade"`
}

// ScorecardConfig is the scoring policy identity for one institution.
// Identity and score bounds are immutable; factors and bands change only
// through new versions.
type ScorecardConfig struct {
	ID            id.ScorecardID
	InstitutionID id.InstitutionID
	Name          string
	MinScore      int
	MaxScore      int
	PassingScore  int
	CreatedAt     time.Time
}

// ScorecardVersion is one ordered snapshot of a config's factors and bands.
// At most one version per config is active at any instant; activation flips
// the pointer atomically in the store.
type ScorecardVersion struct {
	ID          id.VersionID
	ScorecardID id.ScorecardID
	Number      int
	Factors     []ScoringFactor
	Bands       []GradeBand
	Active      bool
	CreatedAt   time.Time
}

// Snapshot bundles the config identity with the version an evaluation runs
// against. Orchestrator reads it once; no field is mutated afterwards.
type Snapshot struct {
	Config  ScorecardConfig
	Version ScorecardVersion
}
