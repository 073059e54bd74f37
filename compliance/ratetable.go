package compliance

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RATE TABLE - Reference constants for one fiscal year
// =============================================================================

// Rates holds the reference rates of one contribution. A side with no rate
// defined is invalid, which is not the same as a zero rate.
type Rates struct {
	Employee decimal.NullDecimal
	Employer decimal.NullDecimal
}

// EmployeeRate builds Rates with only the employee side defined.
func EmployeeRate(rate string) Rates {
	return Rates{Employee: decimal.NewNullDecimal(decimal.RequireFromString(rate))}
}

// EmployerRate builds Rates with only the employer side defined.
func EmployerRate(rate string) Rates {
	return Rates{Employer: decimal.NewNullDecimal(decimal.RequireFromString(rate))}
}

// BothRates builds Rates with both sides defined.
func BothRates(employee, employer string) Rates {
	return Rates{
		Employee: decimal.NewNullDecimal(decimal.RequireFromString(employee)),
		Employer: decimal.NewNullDecimal(decimal.RequireFromString(employer)),
	}
}

func (r Rates) side(s Side) decimal.NullDecimal {
	if s == SideEmployer {
		return r.Employer
	}
	return r.Employee
}

// RateTable is immutable once built. All accessors return copies.
type RateTable struct {
	year    int
	ceiling decimal.Decimal
	rates   map[string]Rates
}

// NewRateTable copies rates so later changes by the caller are not observed.
func NewRateTable(year int, ceiling decimal.Decimal, rates map[string]Rates) *RateTable {
	own := make(map[string]Rates, len(rates))
	for name, r := range rates {
		own[name] = r
	}
	return &RateTable{year: year, ceiling: ceiling, rates: own}
}

func (t *RateTable) Year() int { return t.year }

// Ceiling returns the monthly social security ceiling (PMSS).
func (t *RateTable) Ceiling() decimal.Decimal { return t.ceiling }

// Rate returns the reference rate of a contribution for one side. ok is
// false when the contribution is unknown or has no rate on that side.
func (t *RateTable) Rate(contribution string, side Side) (rate decimal.Decimal, ok bool) {
	r, found := t.rates[contribution]
	if !found {
		return decimal.Zero, false
	}
	v := r.side(side)
	if !v.Valid {
		return decimal.Zero, false
	}
	return v.Decimal, true
}

// Rates returns the rates of one contribution.
func (t *RateTable) Rates(contribution string) (Rates, bool) {
	r, ok := t.rates[contribution]
	return r, ok
}

// Contributions returns every contribution name, sorted.
func (t *RateTable) Contributions() []string {
	names := make([]string, 0, len(t.rates))
	for name := range t.rates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CeilingMultiple returns multiple x ceiling.
func (t *RateTable) CeilingMultiple(multiple decimal.Decimal) decimal.Decimal {
	return t.ceiling.Mul(multiple)
}

// =============================================================================
// REGISTRY - Rate tables by fiscal year
// =============================================================================

// Registry maps fiscal years to rate tables. It is built once and never
// modified, so it can be shared freely.
type Registry struct {
	tables map[int]*RateTable
}

// NewRegistry builds a registry. Two tables for the same year is an error.
func NewRegistry(tables ...*RateTable) (*Registry, error) {
	r := &Registry{tables: make(map[int]*RateTable, len(tables))}
	for _, t := range tables {
		if t == nil {
			continue
		}
		if _, dup := r.tables[t.year]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateFiscalYear, t.year)
		}
		r.tables[t.year] = t
	}
	return r, nil
}

// Load returns the table registered for year, or an *UnknownFiscalYearError.
func (r *Registry) Load(year int) (*RateTable, error) {
	t, ok := r.tables[year]
	if !ok {
		return nil, &UnknownFiscalYearError{Year: year, Known: r.Years()}
	}
	return t, nil
}

// Years returns the registered years in ascending order.
func (r *Registry) Years() []int {
	years := make([]int, 0, len(r.tables))
	for y := range r.tables {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// With returns a new registry holding r's tables plus extra.
func (r *Registry) With(extra ...*RateTable) (*Registry, error) {
	all := make([]*RateTable, 0, len(r.tables)+len(extra))
	for _, y := range r.Years() {
		all = append(all, r.tables[y])
	}
	return NewRegistry(append(all, extra...)...)
}
