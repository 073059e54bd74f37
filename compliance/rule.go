package compliance

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PREDICATE - When a rule applies
// =============================================================================

// Predicate decides whether a rule applies to a record. Predicates must be
// pure: they read the record and the table and nothing else.
type Predicate func(rec PayslipRecord, table *RateTable) bool

// GrossAboveCeiling applies when gross salary > multiple x ceiling.
// A record without a gross salary never matches.
func GrossAboveCeiling(multiple decimal.Decimal) Predicate {
	return func(rec PayslipRecord, table *RateTable) bool {
		return rec.GrossSalary.Valid &&
			rec.GrossSalary.Decimal.GreaterThan(table.CeilingMultiple(multiple))
	}
}

// GrossBelowCeiling applies when gross salary < multiple x ceiling.
func GrossBelowCeiling(multiple decimal.Decimal) Predicate {
	return func(rec PayslipRecord, table *RateTable) bool {
		return rec.GrossSalary.Valid &&
			rec.GrossSalary.Decimal.LessThan(table.CeilingMultiple(multiple))
	}
}

// CompareOp is a threshold comparison used by declarative rules.
type CompareOp string

const (
	OpGreater      CompareOp = "gt"
	OpGreaterEqual CompareOp = "gte"
	OpLess         CompareOp = "lt"
	OpLessEqual    CompareOp = "lte"
)

// FieldVsCeiling applies when the figure at path compares to
// multiple x ceiling with op. An unresolved figure never matches.
func FieldVsCeiling(path FieldPath, op CompareOp, multiple decimal.Decimal) (Predicate, error) {
	var cmp func(a, b decimal.Decimal) bool
	switch op {
	case OpGreater:
		cmp = decimal.Decimal.GreaterThan
	case OpGreaterEqual:
		cmp = decimal.Decimal.GreaterThanOrEqual
	case OpLess:
		cmp = decimal.Decimal.LessThan
	case OpLessEqual:
		cmp = decimal.Decimal.LessThanOrEqual
	default:
		return nil, fmt.Errorf("%w: unknown comparison %q", ErrInvalidRule, op)
	}
	return func(rec PayslipRecord, table *RateTable) bool {
		v, err := path.Resolve(rec)
		if err != nil {
			return false
		}
		return cmp(v, table.CeilingMultiple(multiple))
	}, nil
}

// HasContribution applies when the record carries the named line.
func HasContribution(name string) Predicate {
	return func(rec PayslipRecord, _ *RateTable) bool {
		_, ok := rec.Contributions[name]
		return ok
	}
}

// All applies when every predicate applies.
func All(preds ...Predicate) Predicate {
	return func(rec PayslipRecord, table *RateTable) bool {
		for _, p := range preds {
			if !p(rec, table) {
				return false
			}
		}
		return true
	}
}

// Always applies to every record.
func Always() Predicate {
	return func(PayslipRecord, *RateTable) bool { return true }
}

// =============================================================================
// RULE
// =============================================================================

// Rule is a declarative check: when Condition holds, the figure at Target
// must equal Expected.
type Rule struct {
	Name        string
	Description string
	Condition   Predicate
	Target      FieldPath
	Expected    decimal.Decimal
}

func (r Rule) validate() error {
	switch {
	case r.Name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidRule)
	case r.Condition == nil:
		return fmt.Errorf("%w: %s: no condition", ErrInvalidRule, r.Name)
	case r.Target.IsZero():
		return fmt.Errorf("%w: %s: no target", ErrInvalidRule, r.Name)
	}
	return nil
}

// =============================================================================
// RULE SET - Ordered, immutable collection of rules
// =============================================================================

// RuleSet keeps rules in insertion order, which is also evaluation and
// reporting order.
type RuleSet struct {
	rules []Rule
	index map[string]int
}

// NewRuleSet validates rules and rejects duplicate names.
func NewRuleSet(rules ...Rule) (*RuleSet, error) {
	rs := &RuleSet{
		rules: make([]Rule, 0, len(rules)),
		index: make(map[string]int, len(rules)),
	}
	for _, r := range rules {
		if err := r.validate(); err != nil {
			return nil, err
		}
		if _, dup := rs.index[r.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRule, r.Name)
		}
		rs.index[r.Name] = len(rs.rules)
		rs.rules = append(rs.rules, r)
	}
	return rs, nil
}

// MustRuleSet is NewRuleSet for statically declared rule sets.
func MustRuleSet(rules ...Rule) *RuleSet {
	rs, err := NewRuleSet(rules...)
	if err != nil {
		panic(err)
	}
	return rs
}

// Rules returns a copy of the rules in order.
func (rs *RuleSet) Rules() []Rule {
	out := make([]Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

func (rs *RuleSet) Len() int { return len(rs.rules) }

// Names returns the rule names in order.
func (rs *RuleSet) Names() []string {
	names := make([]string, len(rs.rules))
	for i, r := range rs.rules {
		names[i] = r.Name
	}
	return names
}

// Get returns the named rule.
func (rs *RuleSet) Get(name string) (Rule, bool) {
	i, ok := rs.index[name]
	if !ok {
		return Rule{}, false
	}
	return rs.rules[i], true
}

// Compose returns a new set with rs's rules followed by other's.
func (rs *RuleSet) Compose(other *RuleSet) (*RuleSet, error) {
	all := rs.Rules()
	if other != nil {
		all = append(all, other.rules...)
	}
	return NewRuleSet(all...)
}
