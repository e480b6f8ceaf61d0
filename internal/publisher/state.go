package publisher

import (
	"time"

	"github.com/jgoulah/meterlog/internal/derive"
	"github.com/jgoulah/meterlog/pkg/models"
)

// State is the latest known condition of one counter
type State struct {
	Counter    models.Counter
	Time       time.Time
	Value      float64 // Latest cumulative reading
	RatePerDay float64 // Latest positive daily rate
	HasRate    bool
	Year       int
	YearToDate float64
}

// Snapshot derives the current state of every counter that has at least one reading
func Snapshot(counters []models.Counter, readings []models.Reading) []State {
	var states []State
	for _, c := range counters {
		samples := derive.FilterMissing(readings, c.Column)
		if len(samples) == 0 {
			continue
		}
		last := samples[len(samples)-1]

		res := derive.Derive(readings, c.Column)
		s := State{
			Counter: c,
			Time:    last.Time,
			Value:   last.Value,
			Year:    res.SelectedYear,
		}
		if p, ok := res.Latest(); ok {
			s.RatePerDay = p.RatePerDay
			s.HasRate = true
		}
		if yt, ok := res.YearTotal(res.SelectedYear); ok {
			s.YearToDate = yt.YearToDate
		}
		states = append(states, s)
	}
	return states
}
