/*
Package compliance provides the payslip compliance engine.

PURPOSE:
  This package contains the jurisdiction-agnostic types and algorithms for
  checking payroll statements ("bulletins") against a table of regulatory
  rates. Whether the table describes French URSSAF contributions or any
  other scheme, the same engine groups statements by period, resolves the
  figures a rule points at, and produces one verdict per rule.

KEY CONCEPTS IN THIS FILE (types.go):
  - PayslipRecord: One statement for one employee for one period
  - ContributionLine: One row of the statement's deduction table
  - Side: Employee ("salarial") or employer ("patronal") column
  - MonthLabel: The period label as printed on the statement

DESIGN PRINCIPLES:
  1. Immutability: Records are values; nothing mutates a decoded record
  2. Precision: Uses decimal.Decimal so 0.13 on a statement equals 0.13 in a rule
  3. Absence is data: every figure is a NullDecimal, missing != zero
  4. Trust the statement: base x rate = amount is never recomputed

USAGE:
  var rec compliance.PayslipRecord
  if err := json.Unmarshal(data, &rec); err != nil { ... }
  rate, ok := rec.Contribution("maladie")

SEE ALSO:
  - ratetable.go: Reference rates for a fiscal year
  - rule.go: Rule and RuleSet definitions
  - engine.go: Rule evaluation
  - aggregate.go: Grouping records by period
*/
package compliance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SIDE - Which column of a contribution line
// =============================================================================

type Side string

const (
	SideEmployee Side = "salarial"
	SideEmployer Side = "patronal"
)

func (s Side) Valid() bool { return s == SideEmployee || s == SideEmployer }

// =============================================================================
// CONTRIBUTION LINE - One row of the deduction table
// =============================================================================

// ContributionLine holds the six figures a statement may print for one
// contribution. Any subset may be absent.
type ContributionLine struct {
	EmployeeBase   decimal.NullDecimal `json:"bases"`
	EmployeeRate   decimal.NullDecimal `json:"tauxs"`
	EmployeeAmount decimal.NullDecimal `json:"montants"`
	EmployerBase   decimal.NullDecimal `json:"basep"`
	EmployerRate   decimal.NullDecimal `json:"tauxp"`
	EmployerAmount decimal.NullDecimal `json:"montantp"`
}

// Rate returns the rate printed for the given side.
func (l ContributionLine) Rate(side Side) decimal.NullDecimal {
	if side == SideEmployer {
		return l.EmployerRate
	}
	return l.EmployeeRate
}

// field returns the figure stored under its statement key.
func (l ContributionLine) field(name string) (decimal.NullDecimal, bool) {
	switch name {
	case "bases":
		return l.EmployeeBase, true
	case "tauxs":
		return l.EmployeeRate, true
	case "montants":
		return l.EmployeeAmount, true
	case "basep":
		return l.EmployerBase, true
	case "tauxp":
		return l.EmployerRate, true
	case "montantp":
		return l.EmployerAmount, true
	}
	return decimal.NullDecimal{}, false
}

// scaleRates returns a copy with both rate columns multiplied by factor.
func (l ContributionLine) scaleRates(factor decimal.Decimal) ContributionLine {
	if l.EmployeeRate.Valid {
		l.EmployeeRate.Decimal = l.EmployeeRate.Decimal.Mul(factor)
	}
	if l.EmployerRate.Valid {
		l.EmployerRate.Decimal = l.EmployerRate.Decimal.Mul(factor)
	}
	return l
}

// =============================================================================
// MONTH LABEL - "Janvier" or 1..12
// =============================================================================

// MonthLabel is the period label as found in the document. Statements carry
// a French month name; some exports use the month number instead.
type MonthLabel string

func (m *MonthLabel) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*m = MonthLabel(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("month label must be a string or a number: %w", err)
	}
	*m = MonthLabel(n.String())
	return nil
}

// =============================================================================
// PAYSLIP RECORD
// =============================================================================

// PayslipRecord is one statement for one employee for one period.
type PayslipRecord struct {
	Year          int
	Month         MonthLabel
	GrossSalary   decimal.NullDecimal // salaire_brut
	TaxableNet    decimal.NullDecimal // net_imposable
	NetSocial     decimal.NullDecimal // net_social
	TotalCost     decimal.NullDecimal // cout_global
	Contributions map[string]ContributionLine
}

// Statement keys of the summary figures.
const (
	FieldGrossSalary = "salaire_brut"
	FieldTaxableNet  = "net_imposable"
	FieldNetSocial   = "net_social"
	FieldTotalCost   = "cout_global"

	fieldYear  = "annee"
	fieldMonth = "mois"
)

// Contribution returns the line stored under name.
func (r PayslipRecord) Contribution(name string) (ContributionLine, bool) {
	line, ok := r.Contributions[name]
	return line, ok
}

// Summary returns the figure stored under one of the Field* keys.
func (r PayslipRecord) Summary(name string) (decimal.NullDecimal, bool) {
	switch name {
	case FieldGrossSalary:
		return r.GrossSalary, true
	case FieldTaxableNet:
		return r.TaxableNet, true
	case FieldNetSocial:
		return r.NetSocial, true
	case FieldTotalCost:
		return r.TotalCost, true
	}
	return decimal.NullDecimal{}, false
}

// Clone returns a copy that shares no map with r.
func (r PayslipRecord) Clone() PayslipRecord {
	out := r
	out.Contributions = make(map[string]ContributionLine, len(r.Contributions))
	for k, v := range r.Contributions {
		out.Contributions[k] = v
	}
	return out
}

// WithPercentRates returns a copy whose rate columns are converted from
// percentages to fractions.
func (r PayslipRecord) WithPercentRates() PayslipRecord {
	out := r.Clone()
	hundredth := decimal.New(1, -2)
	for k, v := range out.Contributions {
		out.Contributions[k] = v.scaleRates(hundredth)
	}
	return out
}

// UnmarshalJSON decodes the flat statement shape: summary figures and
// contribution objects share the same level.
func (r *PayslipRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var rec PayslipRecord
	rec.Contributions = make(map[string]ContributionLine)

	for key, value := range raw {
		var err error
		switch key {
		case fieldYear:
			rec.Year, err = decodeYear(value)
		case fieldMonth:
			err = json.Unmarshal(value, &rec.Month)
		case FieldGrossSalary:
			err = json.Unmarshal(value, &rec.GrossSalary)
		case FieldTaxableNet:
			err = json.Unmarshal(value, &rec.TaxableNet)
		case FieldNetSocial:
			err = json.Unmarshal(value, &rec.NetSocial)
		case FieldTotalCost:
			err = json.Unmarshal(value, &rec.TotalCost)
		default:
			// Only objects are contribution lines; other keys (employee
			// name, employer id, ...) are outside what the engine reads.
			if v := bytes.TrimSpace(value); len(v) == 0 || v[0] != '{' {
				continue
			}
			var line ContributionLine
			err = json.Unmarshal(value, &line)
			rec.Contributions[key] = line
		}
		if err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
	}

	*r = rec
	return nil
}

func decodeYear(value json.RawMessage) (int, error) {
	var n json.Number
	if err := json.Unmarshal(value, &n); err == nil {
		year, err := strconv.Atoi(n.String())
		if err != nil {
			return 0, fmt.Errorf("year must be an integer: %w", err)
		}
		return year, nil
	}
	var s string
	if err := json.Unmarshal(value, &s); err != nil {
		return 0, fmt.Errorf("year must be an integer")
	}
	year, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("year must be an integer: %w", err)
	}
	return year, nil
}
