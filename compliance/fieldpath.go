package compliance

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// FIELD PATH - Bounded lookup into a PayslipRecord
// =============================================================================

// FieldPath points at one figure of a record. Only two shapes exist:
//
//	salaire_brut          summary figure
//	maladie.tauxp         contribution line figure
//
// Paths are parsed once when a rule is declared and resolved by walking
// the record segment by segment.
type FieldPath struct {
	segments []string
}

var lineFields = map[string]bool{
	"bases": true, "tauxs": true, "montants": true,
	"basep": true, "tauxp": true, "montantp": true,
}

var summaryFields = map[string]bool{
	FieldGrossSalary: true, FieldTaxableNet: true,
	FieldNetSocial: true, FieldTotalCost: true,
}

// ParseFieldPath validates s against the known record shapes.
func ParseFieldPath(s string) (FieldPath, error) {
	segments := strings.Split(s, ".")
	for _, seg := range segments {
		if !validSegment(seg) {
			return FieldPath{}, fmt.Errorf("%w: %q: bad segment %q", ErrInvalidFieldPath, s, seg)
		}
	}
	switch len(segments) {
	case 1:
		if !summaryFields[segments[0]] {
			return FieldPath{}, fmt.Errorf("%w: %q is not a summary figure", ErrInvalidFieldPath, s)
		}
	case 2:
		if !lineFields[segments[1]] {
			return FieldPath{}, fmt.Errorf("%w: %q is not a contribution line field", ErrInvalidFieldPath, segments[1])
		}
	default:
		return FieldPath{}, fmt.Errorf("%w: %q has %d segments", ErrInvalidFieldPath, s, len(segments))
	}
	return FieldPath{segments: segments}, nil
}

// MustFieldPath is ParseFieldPath for statically declared rules.
func MustFieldPath(s string) FieldPath {
	p, err := ParseFieldPath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// ContributionField builds the path of one figure of a contribution line.
func ContributionField(contribution, field string) (FieldPath, error) {
	return ParseFieldPath(contribution + "." + field)
}

// RateField builds the path of a contribution's rate for one side.
func RateField(contribution string, side Side) (FieldPath, error) {
	if side == SideEmployer {
		return ContributionField(contribution, "tauxp")
	}
	return ContributionField(contribution, "tauxs")
}

func validSegment(seg string) bool {
	if seg == "" {
		return false
	}
	for _, c := range seg {
		if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_') {
			return false
		}
	}
	return true
}

func (p FieldPath) String() string { return strings.Join(p.segments, ".") }

func (p FieldPath) IsZero() bool { return len(p.segments) == 0 }

// Contribution returns the contribution name, or "" for summary paths.
func (p FieldPath) Contribution() string {
	if len(p.segments) != 2 {
		return ""
	}
	return p.segments[0]
}

func (p FieldPath) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *FieldPath) UnmarshalText(text []byte) error {
	parsed, err := ParseFieldPath(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Resolve looks the figure up in rec. It never panics; a missing segment
// or an absent figure yields an *UnresolvedFieldError.
func (p FieldPath) Resolve(rec PayslipRecord) (decimal.Decimal, error) {
	switch len(p.segments) {
	case 1:
		v, ok := rec.Summary(p.segments[0])
		if !ok || !v.Valid {
			return decimal.Zero, &UnresolvedFieldError{Path: p, Segment: p.segments[0]}
		}
		return v.Decimal, nil
	case 2:
		line, ok := rec.Contribution(p.segments[0])
		if !ok {
			return decimal.Zero, &UnresolvedFieldError{Path: p, Segment: p.segments[0]}
		}
		v, ok := line.field(p.segments[1])
		if !ok || !v.Valid {
			return decimal.Zero, &UnresolvedFieldError{Path: p, Segment: p.segments[1]}
		}
		return v.Decimal, nil
	}
	return decimal.Zero, &UnresolvedFieldError{Path: p}
}
