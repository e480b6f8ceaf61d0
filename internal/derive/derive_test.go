package derive

import (
	"math"
	"testing"
	"time"

	"github.com/jgoulah/meterlog/pkg/models"
)

var base = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func reading(day int, values map[string]float64) models.Reading {
	return models.NewReading(base.AddDate(0, 0, day), values)
}

func gas(v float64) map[string]float64 {
	return map[string]float64{"gas": v}
}

func rates(res Result) []float64 {
	out := make([]float64, 0, len(res.Daily))
	for _, p := range res.Daily {
		out = append(out, p.RatePerDay)
	}
	return out
}

func TestDeriveRates(t *testing.T) {
	readings := []models.Reading{
		reading(0, gas(10)),
		reading(1, gas(13)),
		reading(3, gas(15)),
	}

	res := Derive(readings, "gas")
	got := rates(res)
	want := []float64{3, 1}
	if len(got) != len(want) {
		t.Fatalf("expected %d rates, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("rate %d: expected %v, got %v", i, want[i], got[i])
		}
	}
	if !res.HasDailySeries() || !res.HasYearlyTotals() {
		t.Fatalf("expected daily series and yearly totals")
	}
	yt, ok := res.YearTotal(2024)
	if !ok || yt.Total != 5 {
		t.Fatalf("expected 2024 total 5, got %+v (found=%v)", yt, ok)
	}
}

func TestDeriveExcludesRollover(t *testing.T) {
	readings := []models.Reading{
		reading(0, gas(10)),
		reading(1, gas(13)),
		reading(2, gas(2)),
	}

	intervals := ComputeDeltas(FilterMissing(readings, "gas"))
	if len(intervals) != 2 {
		t.Fatalf("expected 2 computed intervals, got %d", len(intervals))
	}

	res := Derive(readings, "gas")
	got := rates(res)
	if len(got) != 1 || got[0] != 3 {
		t.Fatalf("expected single surviving rate 3, got %v", got)
	}
	yt, _ := res.YearTotal(2024)
	if yt.Total != 3 {
		t.Errorf("rollover delta must not count towards the total, got %v", yt.Total)
	}
}

func TestDeriveAllNonPositive(t *testing.T) {
	readings := []models.Reading{
		reading(0, gas(10)),
		reading(1, gas(10)),
		reading(2, gas(4)),
	}

	res := Derive(readings, "gas")
	if res.HasDailySeries() {
		t.Errorf("expected no daily series, got %v", res.Daily)
	}
	if res.HasYearlyTotals() {
		t.Errorf("expected no yearly totals, got %v", res.Years)
	}
	if _, ok := res.Latest(); ok {
		t.Errorf("expected no latest point")
	}
}

func TestDeriveEmptyInput(t *testing.T) {
	res := Derive(nil, "gas")
	if res.HasDailySeries() || res.HasYearlyTotals() {
		t.Fatalf("expected empty result, got %+v", res)
	}

	res = Derive([]models.Reading{reading(0, gas(1))}, "water")
	if res.HasDailySeries() || res.HasYearlyTotals() {
		t.Fatalf("expected empty result for unrecorded counter, got %+v", res)
	}
}

func TestDeriveMissingValueUsesLastRecorded(t *testing.T) {
	readings := []models.Reading{
		reading(0, map[string]float64{"gas": 1, "water": 10}),
		reading(1, map[string]float64{"gas": 2}),
		reading(3, map[string]float64{"gas": 3, "water": 16}),
	}

	samples := FilterMissing(readings, "water")
	if len(samples) != 2 {
		t.Fatalf("expected 2 water samples, got %d", len(samples))
	}

	intervals := ComputeDeltas(samples)
	if len(intervals) != 1 {
		t.Fatalf("expected 1 water interval, got %d", len(intervals))
	}
	if intervals[0].GapDays != 3 {
		t.Errorf("expected gap of 3 days, got %v", intervals[0].GapDays)
	}
	if intervals[0].RatePerDay != 2 {
		t.Errorf("expected rate 2, got %v", intervals[0].RatePerDay)
	}

	if got := rates(Derive(readings, "gas")); len(got) != 2 {
		t.Errorf("expected 2 gas rates, got %v", got)
	}
}

func TestDeriveYearToDateAlignment(t *testing.T) {
	day := func(year, doy int) time.Time {
		return time.Date(year, 1, 1, 12, 0, 0, 0, time.UTC).AddDate(0, 0, doy-1)
	}
	readings := []models.Reading{
		models.NewReading(day(2023, 1), gas(0)),
		models.NewReading(day(2023, 50), gas(100)),
		models.NewReading(day(2023, 150), gas(250)),
		models.NewReading(day(2023, 365), gas(400)),
		models.NewReading(day(2024, 10), gas(420)),
		models.NewReading(day(2024, 100), gas(500)),
	}

	res := Derive(readings, "gas")
	if res.CutoffDay != 100 {
		t.Fatalf("expected cutoff day 100, got %d", res.CutoffDay)
	}

	tests := []struct {
		year       int
		total      float64
		yearToDate float64
	}{
		{2023, 400, 100},
		{2024, 100, 100},
	}
	for _, tt := range tests {
		yt, ok := res.YearTotal(tt.year)
		if !ok {
			t.Fatalf("missing totals for %d", tt.year)
		}
		if yt.Total != tt.total {
			t.Errorf("%d total: expected %v, got %v", tt.year, tt.total, yt.Total)
		}
		if yt.YearToDate != tt.yearToDate {
			t.Errorf("%d year to date: expected %v, got %v", tt.year, tt.yearToDate, yt.YearToDate)
		}
	}
}

func TestDeriveCutoffUsesUnfilteredLatest(t *testing.T) {
	day := func(year, doy int) time.Time {
		return time.Date(year, 1, 1, 12, 0, 0, 0, time.UTC).AddDate(0, 0, doy-1)
	}
	readings := []models.Reading{
		models.NewReading(day(2023, 10), map[string]float64{"gas": 0, "water": 0}),
		models.NewReading(day(2023, 40), map[string]float64{"gas": 5, "water": 5}),
		models.NewReading(day(2023, 80), map[string]float64{"gas": 9, "water": 9}),
		models.NewReading(day(2024, 60), map[string]float64{"gas": 20}),
	}

	res := Derive(readings, "water")
	if res.CutoffDay != 60 {
		t.Fatalf("expected cutoff from latest reading overall (60), got %d", res.CutoffDay)
	}
	yt, ok := res.YearTotal(2023)
	if !ok {
		t.Fatal("missing 2023 totals")
	}
	if yt.Total != 9 || yt.YearToDate != 5 {
		t.Errorf("expected total 9 and year to date 5, got %+v", yt)
	}
}

func TestDeriveDuplicateTimestampExcluded(t *testing.T) {
	readings := []models.Reading{
		reading(0, gas(10)),
		reading(0, gas(12)),
		reading(2, gas(16)),
	}

	got := rates(Derive(readings, "gas"))
	if len(got) != 1 || got[0] != 2 {
		t.Fatalf("expected only the finite rate 2, got %v", got)
	}
}

func TestDeriveOverlayHighlight(t *testing.T) {
	readings := []models.Reading{
		models.NewReading(time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC), gas(0)),
		models.NewReading(time.Date(2023, 5, 11, 0, 0, 0, 0, time.UTC), gas(10)),
		models.NewReading(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), gas(100)),
		models.NewReading(time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC), gas(120)),
	}

	res := Derive(readings, "gas")
	if res.SelectedYear != 2024 {
		t.Fatalf("expected latest year selected, got %d", res.SelectedYear)
	}
	for _, p := range res.Overlay {
		if p.Highlighted != (p.Year == 2024) {
			t.Errorf("point %+v has wrong highlight", p)
		}
		if p.MonthOfYear <= 0 || p.MonthOfYear > 12.1 {
			t.Errorf("month of year out of range: %v", p.MonthOfYear)
		}
	}

	res = Derive(readings, "gas", WithSelectedYear(2023))
	for _, p := range res.Overlay {
		if p.Highlighted != (p.Year == 2023) {
			t.Errorf("point %+v has wrong highlight for 2023", p)
		}
	}
	if years := res.OverlayYears(); len(years) != 2 || years[0] != 2023 || years[1] != 2024 {
		t.Errorf("unexpected overlay years %v", years)
	}
}

func TestAnnotate(t *testing.T) {
	readings := []models.Reading{
		{Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()},
		{Timestamp: time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC).UnixMilli()},
	}
	Annotate(readings, time.UTC)

	if !math.IsNaN(readings[0].GapDays) {
		t.Errorf("expected NaN gap for first reading, got %v", readings[0].GapDays)
	}
	if readings[1].GapDays != 2.5 {
		t.Errorf("expected gap 2.5, got %v", readings[1].GapDays)
	}
	if readings[1].DayOfYear != 3 || readings[1].Year != 2024 {
		t.Errorf("unexpected calendar fields %+v", readings[1])
	}
	if want := 3.0 / 365.0 * 12.0; readings[1].MonthOfYear != want {
		t.Errorf("expected month of year %v, got %v", want, readings[1].MonthOfYear)
	}
}
