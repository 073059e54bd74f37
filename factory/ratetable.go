package factory

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/payslip-compliance/compliance"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// YAML SCHEMA TYPES
// =============================================================================

// RateTableYAML is the file representation of a rate table:
//
//	year: 2025
//	ceiling: 3925
//	rates:
//	  maladie: {salarial: 0, patronal: 0.13}
//	  csg_deductible: {salarial: 0.068}
type RateTableYAML struct {
	Year    int                  `yaml:"year"`
	Ceiling *Decimal             `yaml:"ceiling"`
	Rates   map[string]RatesYAML `yaml:"rates"`
}

// RatesYAML holds the optional sides of one contribution. A missing side
// and a zero rate are different things.
type RatesYAML struct {
	Employee *Decimal `yaml:"salarial"`
	Employer *Decimal `yaml:"patronal"`
}

// MarshalYAML writes the defined sides only, zero rates included, as a
// flow mapping: {salarial: 0, patronal: 0.13}.
func (r RatesYAML) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Style: yaml.FlowStyle}
	for _, side := range []struct {
		key  string
		rate *Decimal
	}{{"salarial", r.Employee}, {"patronal", r.Employer}} {
		if side.rate == nil {
			continue
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: side.key},
			&yaml.Node{Kind: yaml.ScalarNode, Value: side.rate.Decimal.String()},
		)
	}
	return node, nil
}

// Decimal reads a YAML scalar straight from its source text, so 0.0855
// never goes through float64.
type Decimal struct {
	decimal.Decimal
}

func (d *Decimal) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number", node.Line)
	}
	v, err := decimal.NewFromString(strings.TrimSpace(node.Value))
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	d.Decimal = v
	return nil
}

func (d Decimal) MarshalYAML() (any, error) {
	return d.Decimal.String(), nil
}

// =============================================================================
// PARSING
// =============================================================================

// ParseRateTableYAML decodes one rate table.
func ParseRateTableYAML(data []byte) (*compliance.RateTable, error) {
	var doc RateTableYAML
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse rate table: %w", err)
	}
	if doc.Year <= 0 {
		return nil, fmt.Errorf("parse rate table: missing year")
	}
	if doc.Ceiling == nil || !doc.Ceiling.IsPositive() {
		return nil, fmt.Errorf("parse rate table %d: ceiling must be positive", doc.Year)
	}

	rates := make(map[string]compliance.Rates, len(doc.Rates))
	for name, r := range doc.Rates {
		var out compliance.Rates
		if r.Employee != nil {
			out.Employee = decimal.NewNullDecimal(r.Employee.Decimal)
		}
		if r.Employer != nil {
			out.Employer = decimal.NewNullDecimal(r.Employer.Decimal)
		}
		rates[name] = out
	}
	return compliance.NewRateTable(doc.Year, doc.Ceiling.Decimal, rates), nil
}

// RateTableToYAML encodes a table in the ParseRateTableYAML format.
func RateTableToYAML(table *compliance.RateTable) ([]byte, error) {
	doc := RateTableYAML{
		Year:    table.Year(),
		Ceiling: &Decimal{table.Ceiling()},
		Rates:   make(map[string]RatesYAML),
	}
	for _, name := range table.Contributions() {
		var r RatesYAML
		if v, ok := table.Rate(name, compliance.SideEmployee); ok {
			r.Employee = &Decimal{v}
		}
		if v, ok := table.Rate(name, compliance.SideEmployer); ok {
			r.Employer = &Decimal{v}
		}
		doc.Rates[name] = r
	}
	return yaml.Marshal(doc)
}

// LoadRateTables parses every *.yaml / *.yml file of dir, in name order.
// An empty dir argument loads nothing.
func LoadRateTables(dir string) ([]*compliance.RateTable, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read rate tables: %w", err)
	}

	var names []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	tables := make([]*compliance.RateTable, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read rate table %s: %w", name, err)
		}
		table, err := ParseRateTableYAML(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		tables = append(tables, table)
	}
	return tables, nil
}
