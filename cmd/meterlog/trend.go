package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jgoulah/meterlog/internal/derive"
	"github.com/jgoulah/meterlog/pkg/models"
	"github.com/spf13/cobra"
)

var (
	trendYear int
	trendLast int
)

var trendCmd = &cobra.Command{
	Use:   "trend [counter]",
	Short: "Show daily consumption and yearly totals",
	Long: `Derives consumption per day from consecutive readings and sums it per calendar year.
The "to date" column only counts consumption up to the calendar day of the latest
reading, so an unfinished year can be compared with previous ones.

Without a counter argument every configured counter is shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTrend,
}

func init() {
	trendCmd.Flags().IntVar(&trendYear, "year", 0, "Year to highlight (default: year of the latest reading)")
	trendCmd.Flags().IntVar(&trendLast, "last", 10, "Number of daily rates to show (0 = all)")
	rootCmd.AddCommand(trendCmd)
}

func runTrend(cmd *cobra.Command, args []string) error {
	counters := cfg.GetCounters()
	if len(args) == 1 {
		c, ok := models.FindCounter(counters, args[0])
		if !ok {
			return fmt.Errorf("unknown counter %q (available: %s)", args[0], strings.Join(models.Columns(counters), ", "))
		}
		counters = []models.Counter{c}
	}

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	readings, err := db.ListAll()
	if err != nil {
		return fmt.Errorf("listing readings: %w", err)
	}

	var opts []derive.Option
	if trendYear != 0 {
		opts = append(opts, derive.WithSelectedYear(trendYear))
	}

	for _, c := range counters {
		printTrend(c, derive.Derive(readings, c.Column, opts...))
	}
	return nil
}

func printTrend(c models.Counter, res derive.Result) {
	fmt.Printf("\n%s (%s)\n", c.Name, c.Unit)
	fmt.Println("----------------------------------------")

	if !res.HasDailySeries() {
		fmt.Println("No data")
		return
	}

	daily := res.Daily
	if trendLast > 0 && len(daily) > trendLast {
		daily = daily[len(daily)-trendLast:]
	}
	fmt.Printf("%-16s  %14s\n", "Date", c.Unit+"/day")
	for _, p := range daily {
		fmt.Printf("%-16s  %14s\n", p.Time.Format("2006-01-02 15:04"), formatAmount(p.RatePerDay))
	}

	if !res.HasYearlyTotals() {
		return
	}

	fmt.Println("----------------------------------------")
	fmt.Printf("%-6s  %14s  %14s\n", "Year", "Total", "To date")
	for _, yt := range res.Years {
		marker := " "
		if yt.Year == res.SelectedYear {
			marker = "*"
		}
		fmt.Printf("%-5d%s  %14s  %14s\n", yt.Year, marker, formatAmount(yt.Total), formatAmount(yt.YearToDate))
	}
	fmt.Printf("(to date = through day %d of each year)\n", res.CutoffDay)
}

func formatAmount(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}
