package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jgoulah/meterlog/pkg/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var addAt string

var addCmd = &cobra.Command{
	Use:   "add counter=value...",
	Short: "Record a meter reading",
	Long: `Stores one reading with a value for every configured counter.
Counters may be given by column or by name, e.g.:

  meterlog add gas=1234.567 water=89.1 electricity=10234 --at "2024-04-09 08:15"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addAt, "at", "", "Reading time (RFC3339, YYYY-MM-DD HH:MM or YYYY-MM-DD; default: now)")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	loc, err := cfg.GetLocation()
	if err != nil {
		return err
	}

	at := time.Now().In(loc)
	if addAt != "" {
		at, err = parseTime(addAt, loc)
		if err != nil {
			return err
		}
	}

	values, err := parseValues(args, cfg.GetCounters())
	if err != nil {
		return err
	}

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	reading := models.NewReading(at, values)
	id, err := db.Insert(&reading)
	if err != nil {
		return err
	}

	logger.Info("reading stored", zap.Int64("id", id), zap.Time("at", at))
	fmt.Printf("✓ Stored reading #%d at %s\n", id, at.Format("2006-01-02 15:04"))
	return nil
}

// parseValues turns counter=value arguments into a value per column
func parseValues(args []string, counters []models.Counter) (map[string]float64, error) {
	values := make(map[string]float64, len(args))
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid argument %q (use counter=value)", arg)
		}

		counter, ok := models.FindCounter(counters, strings.TrimSpace(key))
		if !ok {
			return nil, fmt.Errorf("unknown counter %q (available: %s)", key, strings.Join(models.Columns(counters), ", "))
		}

		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: %w", counter.Column, err)
		}
		if v < 0 {
			return nil, fmt.Errorf("invalid value for %s: must not be negative", counter.Column)
		}
		values[counter.Column] = v
	}
	return values, nil
}

// parseTime parses an absolute time in one of the accepted layouts
func parseTime(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time format: %s (use RFC3339, YYYY-MM-DD HH:MM or YYYY-MM-DD)", s)
}
