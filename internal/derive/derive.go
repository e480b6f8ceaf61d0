// Package derive turns cumulative counter readings into consumption trends.
//
// Derive is a composition of FilterMissing, ComputeDeltas, FilterNonPositive
// and GroupYears. Every stage is a pure function over its input.
package derive

import (
	"time"

	"github.com/jgoulah/meterlog/pkg/models"
)

// DailyPoint is one point of the per-day rate series
type DailyPoint struct {
	Time       time.Time
	RatePerDay float64
}

// OverlayPoint positions a rate on a shared January–December axis
type OverlayPoint struct {
	MonthOfYear float64
	RatePerDay  float64
	Year        int
	Highlighted bool
}

// Result holds everything derived for one counter
type Result struct {
	Column       string
	SelectedYear int
	CutoffDay    int // Day of year of the latest reading overall

	Daily   []DailyPoint
	Overlay []OverlayPoint
	Years   []YearTotal
}

type options struct {
	selectedYear int
}

// Option customizes Derive
type Option func(*options)

// WithSelectedYear highlights year in the overlay instead of the latest year
func WithSelectedYear(year int) Option {
	return func(o *options) {
		o.selectedYear = year
	}
}

// Derive computes the trend series of column from readings sorted by timestamp.
// Empty input or a column that was never recorded yields an empty Result.
func Derive(readings []models.Reading, column string, opts ...Option) Result {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	res := Result{Column: column}
	if len(readings) == 0 {
		return res
	}

	latest := readings[0]
	for _, r := range readings[1:] {
		if r.Timestamp >= latest.Timestamp {
			latest = r
		}
	}
	latestYear, latestDay, _ := Calendar(readingTime(latest))
	res.CutoffDay = latestDay
	res.SelectedYear = latestYear
	if o.selectedYear != 0 {
		res.SelectedYear = o.selectedYear
	}

	intervals := FilterNonPositive(ComputeDeltas(FilterMissing(readings, column)))
	if len(intervals) == 0 {
		return res
	}

	res.Daily = make([]DailyPoint, 0, len(intervals))
	res.Overlay = make([]OverlayPoint, 0, len(intervals))
	for _, iv := range intervals {
		res.Daily = append(res.Daily, DailyPoint{Time: iv.Time, RatePerDay: iv.RatePerDay})
		res.Overlay = append(res.Overlay, OverlayPoint{
			MonthOfYear: iv.MonthOfYear,
			RatePerDay:  iv.RatePerDay,
			Year:        iv.Year,
			Highlighted: iv.Year == res.SelectedYear,
		})
	}
	res.Years = GroupYears(intervals, res.CutoffDay)

	return res
}

// HasDailySeries reports whether any positive rate survived
func (r Result) HasDailySeries() bool {
	return len(r.Daily) > 0
}

// HasYearlyTotals reports whether at least one year has a total
func (r Result) HasYearlyTotals() bool {
	return len(r.Years) > 0
}

// Latest returns the most recent daily rate
func (r Result) Latest() (DailyPoint, bool) {
	if len(r.Daily) == 0 {
		return DailyPoint{}, false
	}
	return r.Daily[len(r.Daily)-1], true
}

// YearTotal returns the totals for year
func (r Result) YearTotal(year int) (YearTotal, bool) {
	for _, yt := range r.Years {
		if yt.Year == year {
			return yt, true
		}
	}
	return YearTotal{}, false
}

// OverlayYears returns the distinct years of the overlay, ascending
func (r Result) OverlayYears() []int {
	var years []int
	seen := make(map[int]bool)
	for _, p := range r.Overlay {
		if !seen[p.Year] {
			seen[p.Year] = true
			years = append(years, p.Year)
		}
	}
	// Overlay follows timestamp order, so years are already ascending
	return years
}
