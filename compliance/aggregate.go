package compliance

import (
	"sort"
	"strconv"
	"strings"
)

// =============================================================================
// AGGREGATION - One canonical record per period
// =============================================================================

// Period is the canonical record of one PeriodKey.
type Period struct {
	Key    PeriodKey
	Label  string // e.g. "Janvier 2024"
	Record PayslipRecord
	Index  int // position of Record in the input
}

// SkippedRecord is an input record that could not be assigned a period.
type SkippedRecord struct {
	Index int
	Err   error
}

// Aggregation is the result of Aggregate. Keys are sorted when read, so
// the order never depends on input order.
type Aggregation struct {
	periods map[PeriodKey]Period

	// Skipped lists records whose month label is not recognized.
	Skipped []SkippedRecord
	// Duplicates lists input indexes discarded because their period
	// already had a canonical record.
	Duplicates []int
}

// Aggregate groups records by (year, month). The first record seen for a
// period wins; later ones are discarded. Records with an unrecognized
// month are skipped and reported instead of failing the batch.
func Aggregate(records []PayslipRecord) *Aggregation {
	agg := &Aggregation{periods: make(map[PeriodKey]Period)}
	for i, rec := range records {
		key, err := KeyFor(rec)
		if err != nil {
			agg.Skipped = append(agg.Skipped, SkippedRecord{Index: i, Err: err})
			continue
		}
		if _, exists := agg.periods[key]; exists {
			agg.Duplicates = append(agg.Duplicates, i)
			continue
		}
		agg.periods[key] = Period{
			Key:    key,
			Label:  periodLabel(rec, key),
			Record: rec,
			Index:  i,
		}
	}
	return agg
}

// periodLabel keeps the statement's own month spelling when it has one.
func periodLabel(rec PayslipRecord, key PeriodKey) string {
	name := strings.TrimSpace(string(rec.Month))
	if _, ok := monthByName[strings.ToLower(name)]; ok {
		return name + " " + strconv.Itoa(key.Year)
	}
	return key.Label()
}

// Len returns the number of periods.
func (a *Aggregation) Len() int { return len(a.periods) }

// Keys returns every period key in chronological order.
func (a *Aggregation) Keys() []PeriodKey {
	keys := make([]PeriodKey, 0, len(a.periods))
	for k := range a.periods {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
	return keys
}

// Periods returns every period in chronological order.
func (a *Aggregation) Periods() []Period {
	keys := a.Keys()
	out := make([]Period, len(keys))
	for i, k := range keys {
		out[i] = a.periods[k]
	}
	return out
}

// Get returns the canonical period of key.
func (a *Aggregation) Get(key PeriodKey) (Period, bool) {
	p, ok := a.periods[key]
	return p, ok
}

// Records returns the canonical records keyed by period.
func (a *Aggregation) Records() map[PeriodKey]PayslipRecord {
	out := make(map[PeriodKey]PayslipRecord, len(a.periods))
	for k, p := range a.periods {
		out[k] = p.Record
	}
	return out
}
