package compliance

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// PERIOD KEY - The unit statements are grouped by
// =============================================================================

// PeriodKey identifies one calendar month. Its string form (YYYY-MM) sorts
// in chronological order.
type PeriodKey struct {
	Year  int
	Month time.Month
}

func NewPeriodKey(year int, month time.Month) PeriodKey {
	return PeriodKey{Year: year, Month: month}
}

// String returns the sortable YYYY-MM form.
func (k PeriodKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

// Before reports whether k is chronologically before other.
func (k PeriodKey) Before(other PeriodKey) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	return k.Month < other.Month
}

// Label returns the human form used on statements, e.g. "Janvier 2024".
func (k PeriodKey) Label() string {
	return MonthName(k.Month) + " " + strconv.Itoa(k.Year)
}

func (k PeriodKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *PeriodKey) UnmarshalText(text []byte) error {
	parsed, err := ParsePeriodKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParsePeriodKey parses the YYYY-MM form.
func ParsePeriodKey(s string) (PeriodKey, error) {
	year, month, ok := strings.Cut(s, "-")
	if !ok || len(year) != 4 || len(month) != 2 {
		return PeriodKey{}, fmt.Errorf("%w: %q (want YYYY-MM)", ErrInvalidPeriodKey, s)
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return PeriodKey{}, fmt.Errorf("%w: %q", ErrInvalidPeriodKey, s)
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return PeriodKey{}, fmt.Errorf("%w: %q", ErrInvalidPeriodKey, s)
	}
	return PeriodKey{Year: y, Month: time.Month(m)}, nil
}

// =============================================================================
// MONTH TABLE - Fixed, static
// =============================================================================

var monthNames = [12]string{
	"Janvier", "Février", "Mars", "Avril", "Mai", "Juin",
	"Juillet", "Août", "Septembre", "Octobre", "Novembre", "Décembre",
}

// monthByName is keyed by lower case; accent-less spellings are common in
// hand-edited exports.
var monthByName = map[string]time.Month{
	"janvier":   time.January,
	"février":   time.February,
	"fevrier":   time.February,
	"mars":      time.March,
	"avril":     time.April,
	"mai":       time.May,
	"juin":      time.June,
	"juillet":   time.July,
	"août":      time.August,
	"aout":      time.August,
	"septembre": time.September,
	"octobre":   time.October,
	"novembre":  time.November,
	"décembre":  time.December,
	"decembre":  time.December,
}

// MonthName returns the statement spelling of m.
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return m.String()
	}
	return monthNames[m-1]
}

// MonthNumber translates a statement month label. Numeric labels 1-12 are
// accepted as-is.
func MonthNumber(label MonthLabel) (time.Month, error) {
	s := strings.TrimSpace(string(label))
	if m, ok := monthByName[strings.ToLower(s)]; ok {
		return m, nil
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= 12 {
		return time.Month(n), nil
	}
	return 0, &UnrecognizedMonthError{Label: label}
}

// KeyFor computes the period key of a record.
func KeyFor(rec PayslipRecord) (PeriodKey, error) {
	m, err := MonthNumber(rec.Month)
	if err != nil {
		return PeriodKey{}, err
	}
	return PeriodKey{Year: rec.Year, Month: m}, nil
}
