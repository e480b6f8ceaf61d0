package derive

import (
	"math"
	"sort"
	"time"

	"github.com/jgoulah/meterlog/pkg/models"
)

// Sample is one recorded value of a single counter
type Sample struct {
	Timestamp int64
	Time      time.Time
	Value     float64
}

// Interval is the consumption between two consecutive samples, positioned at the later one
type Interval struct {
	Time        time.Time
	Year        int
	DayOfYear   int
	MonthOfYear float64
	GapDays     float64
	Delta       float64
	RatePerDay  float64
}

// YearTotal holds the consumption of one calendar year
type YearTotal struct {
	Year       int
	Total      float64
	YearToDate float64 // Only intervals up to the cutoff day of year
}

// FilterMissing keeps the readings that recorded a value for column
func FilterMissing(readings []models.Reading, column string) []Sample {
	samples := make([]Sample, 0, len(readings))
	for _, r := range readings {
		v, ok := r.Value(column)
		if !ok {
			continue
		}
		samples = append(samples, Sample{
			Timestamp: r.Timestamp,
			Time:      readingTime(r),
			Value:     v,
		})
	}
	return samples
}

// ComputeDeltas pairs each sample with its predecessor.
// The first sample has no predecessor and produces no interval.
func ComputeDeltas(samples []Sample) []Interval {
	if len(samples) < 2 {
		return nil
	}

	intervals := make([]Interval, 0, len(samples)-1)
	for i := 1; i < len(samples); i++ {
		prev, cur := samples[i-1], samples[i]
		gap := GapDays(prev.Timestamp, cur.Timestamp)
		delta := cur.Value - prev.Value

		year, doy, moy := Calendar(cur.Time)
		intervals = append(intervals, Interval{
			Time:        cur.Time,
			Year:        year,
			DayOfYear:   doy,
			MonthOfYear: moy,
			GapDays:     gap,
			Delta:       delta,
			RatePerDay:  delta / gap,
		})
	}
	return intervals
}

// FilterNonPositive drops intervals whose rate is not a positive finite number.
// Rollovers, corrections and same-timestamp duplicates all end up here.
func FilterNonPositive(intervals []Interval) []Interval {
	kept := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if math.IsNaN(iv.RatePerDay) || math.IsInf(iv.RatePerDay, 0) || iv.RatePerDay <= 0 {
			continue
		}
		kept = append(kept, iv)
	}
	return kept
}

// GroupYears sums interval deltas per calendar year, ascending by year.
// YearToDate only counts intervals on or before cutoffDay.
func GroupYears(intervals []Interval, cutoffDay int) []YearTotal {
	byYear := make(map[int]*YearTotal)
	for _, iv := range intervals {
		yt, ok := byYear[iv.Year]
		if !ok {
			yt = &YearTotal{Year: iv.Year}
			byYear[iv.Year] = yt
		}
		yt.Total += iv.Delta
		if iv.DayOfYear <= cutoffDay {
			yt.YearToDate += iv.Delta
		}
	}

	totals := make([]YearTotal, 0, len(byYear))
	for _, yt := range byYear {
		totals = append(totals, *yt)
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Year < totals[j].Year })
	return totals
}
