package derive

import (
	"math"
	"time"

	"github.com/jgoulah/meterlog/pkg/models"
)

const msPerDay = 24 * 60 * 60 * 1000

// Calendar returns the calendar position of t used to align years on one axis.
// monthOfYear is the day of year scaled to a 365-day year of 12 months.
func Calendar(t time.Time) (year, dayOfYear int, monthOfYear float64) {
	dayOfYear = t.YearDay()
	return t.Year(), dayOfYear, float64(dayOfYear) / 365.0 * 12.0
}

// GapDays returns the elapsed days between two millisecond timestamps
func GapDays(from, to int64) float64 {
	return float64(to-from) / msPerDay
}

// Annotate fills the calendar fields and gap days of readings in place.
// Readings must already be sorted by timestamp.
func Annotate(readings []models.Reading, loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}
	for i := range readings {
		r := &readings[i]
		r.Time = time.UnixMilli(r.Timestamp).In(loc)
		r.Year, r.DayOfYear, r.MonthOfYear = Calendar(r.Time)
		if i == 0 {
			r.GapDays = math.NaN()
			continue
		}
		r.GapDays = GapDays(readings[i-1].Timestamp, r.Timestamp)
	}
}

// readingTime falls back to UTC when a reading was never annotated
func readingTime(r models.Reading) time.Time {
	if r.Time.IsZero() {
		return time.UnixMilli(r.Timestamp).UTC()
	}
	return r.Time
}
