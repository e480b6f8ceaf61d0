package models

import (
	"math"
	"time"
)

// Reading represents a single submission of cumulative counter values
type Reading struct {
	ID        int64              `json:"id"`
	Timestamp int64              `json:"rdate"`  // Milliseconds since epoch
	Values    map[string]float64 `json:"values"` // Keyed by counter column

	// Calendar fields, filled on read
	Time        time.Time `json:"-"`
	DayOfYear   int       `json:"-"`
	MonthOfYear float64   `json:"-"` // Day of year scaled to 0..12
	Year        int       `json:"-"`
	GapDays     float64   `json:"-"` // NaN for the first reading
}

// NewReading builds a reading for the given instant
func NewReading(t time.Time, values map[string]float64) Reading {
	return Reading{
		Timestamp: t.UnixMilli(),
		Values:    values,
		Time:      t,
	}
}

// Value returns the counter value for column and whether it was recorded
func (r Reading) Value(column string) (float64, bool) {
	v, ok := r.Values[column]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Record is the import/export shape: rdate plus one value per counter
type Record struct {
	RDate  int64
	Values map[string]float64
}

// Reading converts the record to an unsaved reading
func (r Record) Reading() Reading {
	values := make(map[string]float64, len(r.Values))
	for k, v := range r.Values {
		values[k] = v
	}
	return Reading{Timestamp: r.RDate, Values: values}
}
