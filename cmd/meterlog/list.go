package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var listLimit int

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored readings",
	Long:  `Displays all stored meter readings in timestamp order.`,
	RunE:  runList,
}

func init() {
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Only show the most recent N readings (0 = all)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	// Open database
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	readings, err := db.ListAll()
	if err != nil {
		return fmt.Errorf("listing readings: %w", err)
	}

	if len(readings) == 0 {
		fmt.Println("No readings found")
		return nil
	}

	total := len(readings)
	if listLimit > 0 && len(readings) > listLimit {
		readings = readings[len(readings)-listLimit:]
	}

	counters := db.Counters()
	width := 24 + 9 + 14*len(counters)

	fmt.Println(strings.Repeat("-", width))
	fmt.Printf("%6s  %-16s  %7s", "ID", "Date", "Gap (d)")
	for _, c := range counters {
		fmt.Printf("  %12s", c.Name)
	}
	fmt.Println()
	fmt.Println(strings.Repeat("-", width))

	for _, r := range readings {
		gap := "-"
		if !math.IsNaN(r.GapDays) {
			gap = fmt.Sprintf("%.1f", r.GapDays)
		}
		fmt.Printf("%6d  %-16s  %7s", r.ID, r.Time.Format("2006-01-02 15:04"), gap)
		for _, c := range counters {
			if v, ok := r.Value(c.Column); ok {
				fmt.Printf("  %12.3f", v)
			} else {
				fmt.Printf("  %12s", "-")
			}
		}
		fmt.Println()
	}

	fmt.Println(strings.Repeat("-", width))
	last := readings[len(readings)-1]
	fmt.Printf("%d readings, last one %s\n", total, humanize.Time(last.Time))
	return nil
}
