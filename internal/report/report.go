// Package report lays the derived series of every counter out as SVG charts
// in a standalone HTML page.
package report

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"math"
	"strings"
	"time"

	"github.com/jgoulah/meterlog/internal/derive"
	"github.com/jgoulah/meterlog/pkg/models"
)

//go:embed templates/*.html
var templatesFS embed.FS

var tmpl = template.Must(template.New("").Funcs(template.FuncMap{
	"num": func(v float64) string { return fmt.Sprintf("%.2f", v) },
}).ParseFS(templatesFS, "templates/*.html"))

// Chart geometry shared by every SVG
const (
	ChartWidth  = 640.0
	ChartHeight = 220.0
	padLeft     = 48.0
	padRight    = 12.0
	padTop      = 12.0
	padBottom   = 24.0
)

// Report is the whole page
type Report struct {
	Title        string
	GeneratedAt  time.Time
	SelectedYear int
	Sections     []Section
	Width        float64
	Height       float64
}

// Section holds the charts of one counter
type Section struct {
	Counter   models.Counter
	HasDaily  bool
	HasYearly bool
	MaxRate   float64
	Daily     string // SVG polyline points
	Overlay   []Series
	Bars      []Bar
	Years     []derive.YearTotal
}

// Series is one year of the calendar overlay
type Series struct {
	Year        int
	Points      string
	Color       string
	Highlighted bool
}

// Bar is the full-year bar of one year with its year-to-date bar in front
type Bar struct {
	Year       int
	X          float64
	Width      float64
	TotalY     float64
	TotalH     float64
	ToDateY    float64
	ToDateH    float64
	LabelX     float64
	Total      float64
	YearToDate float64
}

// Build derives every counter and lays out its charts.
// A selectedYear of 0 highlights the year of the latest reading.
func Build(counters []models.Counter, readings []models.Reading, selectedYear int) Report {
	r := Report{
		Title:        "Meter readings",
		GeneratedAt:  time.Now(),
		SelectedYear: selectedYear,
		Width:        ChartWidth,
		Height:       ChartHeight,
	}

	var opts []derive.Option
	if selectedYear != 0 {
		opts = append(opts, derive.WithSelectedYear(selectedYear))
	}

	for _, c := range counters {
		res := derive.Derive(readings, c.Column, opts...)
		if r.SelectedYear == 0 {
			r.SelectedYear = res.SelectedYear
		}
		r.Sections = append(r.Sections, buildSection(c, res))
	}
	return r
}

func buildSection(c models.Counter, res derive.Result) Section {
	s := Section{
		Counter:   c,
		HasDaily:  res.HasDailySeries(),
		HasYearly: res.HasYearlyTotals(),
		Years:     res.Years,
	}

	if s.HasDaily {
		for _, p := range res.Daily {
			s.MaxRate = math.Max(s.MaxRate, p.RatePerDay)
		}
		s.Daily = dailyPoints(res.Daily, s.MaxRate)
		s.Overlay = overlaySeries(c, res, s.MaxRate)
	}
	if s.HasYearly {
		s.Bars = yearBars(res.Years)
	}
	return s
}

func plotWidth() float64  { return ChartWidth - padLeft - padRight }
func plotHeight() float64 { return ChartHeight - padTop - padBottom }

// yPos maps v in [0, max] onto the plot, 0 at the bottom
func yPos(v, max float64) float64 {
	if max <= 0 {
		return padTop + plotHeight()
	}
	return padTop + plotHeight()*(1-v/max)
}

func point(x, y float64) string {
	return fmt.Sprintf("%.1f,%.1f", x, y)
}

func dailyPoints(daily []derive.DailyPoint, maxRate float64) string {
	first, last := daily[0].Time, daily[len(daily)-1].Time
	span := last.Sub(first).Seconds()

	pts := make([]string, 0, len(daily))
	for _, p := range daily {
		x := padLeft
		if span > 0 {
			x += plotWidth() * p.Time.Sub(first).Seconds() / span
		}
		pts = append(pts, point(x, yPos(p.RatePerDay, maxRate)))
	}
	return strings.Join(pts, " ")
}

func overlaySeries(c models.Counter, res derive.Result, maxRate float64) []Series {
	byYear := make(map[int][]string)
	for _, p := range res.Overlay {
		x := padLeft + plotWidth()*math.Min(p.MonthOfYear/12, 1)
		byYear[p.Year] = append(byYear[p.Year], point(x, yPos(p.RatePerDay, maxRate)))
	}

	var series []Series
	var selected *Series
	for _, year := range res.OverlayYears() {
		s := Series{
			Year:        year,
			Points:      strings.Join(byYear[year], " "),
			Color:       c.LightColor,
			Highlighted: year == res.SelectedYear,
		}
		if s.Highlighted {
			s.Color = c.DarkColor
			selected = &s
			continue
		}
		series = append(series, s)
	}
	// Selected year is drawn last so it sits on top
	if selected != nil {
		series = append(series, *selected)
	}
	return series
}

func yearBars(years []derive.YearTotal) []Bar {
	var maxTotal float64
	for _, y := range years {
		maxTotal = math.Max(maxTotal, y.Total)
	}

	slot := plotWidth() / float64(len(years))
	bars := make([]Bar, 0, len(years))
	for i, y := range years {
		x := padLeft + slot*float64(i) + slot*0.2
		totalY := yPos(y.Total, maxTotal)
		toDateY := yPos(y.YearToDate, maxTotal)
		bars = append(bars, Bar{
			Year:       y.Year,
			X:          x,
			Width:      slot * 0.6,
			TotalY:     totalY,
			TotalH:     padTop + plotHeight() - totalY,
			ToDateY:    toDateY,
			ToDateH:    padTop + plotHeight() - toDateY,
			LabelX:     x + slot*0.3,
			Total:      y.Total,
			YearToDate: y.YearToDate,
		})
	}
	return bars
}

// Render writes the report as a standalone HTML page
func Render(w io.Writer, r Report) error {
	if err := tmpl.ExecuteTemplate(w, "report.html", r); err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}
	return nil
}

// Baseline is the y coordinate of the x axis
func (r Report) Baseline() float64 {
	return padTop + plotHeight()
}

// PlotLeft is the x coordinate of the y axis
func (r Report) PlotLeft() float64 {
	return padLeft
}

// PlotRight is the x coordinate of the right edge of the plot
func (r Report) PlotRight() float64 {
	return ChartWidth - padRight
}
