/*
engine.go - Rule evaluation

PURPOSE:
  Runs every rule of a RuleSet against one PayslipRecord and returns one
  verdict per rule, in RuleSet order. The engine is stateless; a rule is
  added by declaring it, never by touching this file.

EVALUATION PER RULE:
  1. Condition false           -> not-applicable, expected = actual = null
  2. Target does not resolve   -> non-compliant, actual = null, Reason set
  3. Target resolves           -> compliant iff actual == expected (exact
                                  decimal equality, rates as fractions)

RATES:
  Statement values are compared as-is. Expected rates are fractions; an
  export printing percentages is converted once per document at import
  (factory.Options.PercentRates), never guessed per value.

CONCURRENCY:
  Evaluate reads only its arguments. EvaluateAll fans out one goroutine
  per period; RateTable and RuleSet are read-only so no locking is needed.

SEE ALSO:
  - rule.go: Rule and RuleSet
  - fieldpath.go: Target resolution
*/
package compliance

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// VERDICT
// =============================================================================

type Status string

const (
	StatusNotApplicable Status = "not-applicable"
	StatusCompliant     Status = "compliant"
	StatusNonCompliant  Status = "non-compliant"
)

// Verdict is the outcome of one rule for one record. Expected and Actual
// are nil when there is nothing to report.
type Verdict struct {
	Rule     string           `json:"rule"`
	Status   Status           `json:"status"`
	Target   string           `json:"target"`
	Expected *decimal.Decimal `json:"expected"`
	Actual   *decimal.Decimal `json:"actual"`
	Reason   string           `json:"reason,omitempty"`
}

// Verdicts are ordered as the RuleSet that produced them.
type Verdicts []Verdict

// Get returns the verdict of the named rule.
func (vs Verdicts) Get(rule string) (Verdict, bool) {
	for _, v := range vs {
		if v.Rule == rule {
			return v, true
		}
	}
	return Verdict{}, false
}

// Map returns the verdicts keyed by rule name.
func (vs Verdicts) Map() map[string]Verdict {
	m := make(map[string]Verdict, len(vs))
	for _, v := range vs {
		m[v.Rule] = v
	}
	return m
}

// Summary counts verdicts per status.
type Summary struct {
	Compliant     int `json:"compliant"`
	NonCompliant  int `json:"non_compliant"`
	NotApplicable int `json:"not_applicable"`
}

func (vs Verdicts) Summary() Summary {
	var s Summary
	for _, v := range vs {
		switch v.Status {
		case StatusCompliant:
			s.Compliant++
		case StatusNonCompliant:
			s.NonCompliant++
		case StatusNotApplicable:
			s.NotApplicable++
		}
	}
	return s
}

// =============================================================================
// EVALUATE
// =============================================================================

// Evaluate applies every rule to rec. It always returns one verdict per
// rule; a rule that fails to resolve does not stop the others.
// table and rules must be non-nil; Evaluate panics otherwise.
func Evaluate(rec PayslipRecord, table *RateTable, rules *RuleSet) Verdicts {
	if table == nil || rules == nil {
		panic("compliance: Evaluate requires a rate table and a rule set")
	}
	out := make(Verdicts, 0, rules.Len())
	for _, rule := range rules.rules {
		out = append(out, evaluateRule(rec, table, rule))
	}
	return out
}

func evaluateRule(rec PayslipRecord, table *RateTable, rule Rule) Verdict {
	v := Verdict{
		Rule:   rule.Name,
		Status: StatusNotApplicable,
		Target: rule.Target.String(),
	}
	if !rule.Condition(rec, table) {
		return v
	}

	expected := rule.Expected
	v.Expected = &expected
	v.Status = StatusNonCompliant

	actual, err := rule.Target.Resolve(rec)
	if err != nil {
		v.Reason = err.Error()
		return v
	}
	v.Actual = &actual

	if actual.Equal(expected) {
		v.Status = StatusCompliant
	}
	return v
}

// =============================================================================
// EVALUATE ALL - Precompute verdicts for every period
// =============================================================================

// maxParallel bounds the goroutines EvaluateAll runs at once.
const maxParallel = 8

// EvaluateAll evaluates every period of agg. Periods are independent, so
// they are evaluated in parallel. It only fails if ctx is done.
func EvaluateAll(ctx context.Context, agg *Aggregation, table *RateTable, rules *RuleSet) (map[PeriodKey]Verdicts, error) {
	periods := agg.Periods()
	out := make(map[PeriodKey]Verdicts, len(periods))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for _, p := range periods {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			verdicts := Evaluate(p.Record, table, rules)
			mu.Lock()
			out[p.Key] = verdicts
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
