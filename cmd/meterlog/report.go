package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jgoulah/meterlog/internal/report"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	reportOut     string
	reportPDF     bool
	reportPNG     bool
	reportYear    int
	reportTimeout time.Duration
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render consumption charts to an HTML report",
	Long: `Renders one section per counter: the daily consumption time series, the
year-over-year overlay with the selected year highlighted, and the yearly totals.

With --pdf or --png the report is also printed through headless Chrome.`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportOut, "out", "meterlog-report.html", "HTML output file")
	reportCmd.Flags().BoolVar(&reportPDF, "pdf", false, "Also write a PDF next to the HTML file")
	reportCmd.Flags().BoolVar(&reportPNG, "png", false, "Also write a PNG screenshot next to the HTML file")
	reportCmd.Flags().IntVar(&reportYear, "year", 0, "Year to highlight (default: year of the latest reading)")
	reportCmd.Flags().DurationVar(&reportTimeout, "timeout", 60*time.Second, "Timeout for headless Chrome rendering")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	readings, err := db.ListAll()
	if err != nil {
		return fmt.Errorf("listing readings: %w", err)
	}

	r := report.Build(db.Counters(), readings, reportYear)

	var buf bytes.Buffer
	if err := report.Render(&buf, r); err != nil {
		return err
	}
	if err := os.WriteFile(reportOut, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	fmt.Printf("✓ Report written to %s\n", reportOut)

	if !reportPDF && !reportPNG {
		return nil
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), reportTimeout)
	defer cancel()

	base := strings.TrimSuffix(reportOut, ".html")
	if reportPDF {
		data, err := report.PDF(ctx, buf.Bytes())
		if err != nil {
			return err
		}
		if err := writeArtifact(base+".pdf", data); err != nil {
			return err
		}
	}
	if reportPNG {
		data, err := report.PNG(ctx, buf.Bytes())
		if err != nil {
			return err
		}
		if err := writeArtifact(base+".png", data); err != nil {
			return err
		}
	}
	return nil
}

func writeArtifact(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	logger.Debug("report artifact written", zap.String("path", path), zap.Int("bytes", len(data)))
	fmt.Printf("✓ Report written to %s\n", path)
	return nil
}
