package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jgoulah/meterlog/internal/database"
	"github.com/jgoulah/meterlog/internal/transfer"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var exportDir string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all readings to a JSON file",
	Long:  `Writes every stored reading as JSON (rdate in ms since epoch plus one key per counter) to a file named after the export time.`,
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace all readings with the contents of a JSON export",
	Long: `Validates the whole file first, then replaces all stored readings with it.
If any record is malformed nothing is changed.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Replace all readings with the example data set",
	Long:  `Loads the example file configured as example_file (default ./mr-examples.json) the same way import does.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return seedFromFile(cfg.GetExampleFile())
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportDir, "out", ".", "Directory to write the export file to")
	rootCmd.AddCommand(exportCmd, importCmd, seedCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	readings, err := db.ListAll()
	if err != nil {
		return fmt.Errorf("listing readings: %w", err)
	}

	if err := os.MkdirAll(exportDir, 0755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}
	path := filepath.Join(exportDir, transfer.ExportFilename(time.Now()))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	defer f.Close()

	if err := transfer.Encode(f, readings, db.Counters()); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing export file: %w", err)
	}

	fmt.Printf("✓ Exported %d readings to %s\n", len(readings), path)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	return seedFromFile(args[0])
}

// seedFromFile validates a JSON export and replaces all readings with it
func seedFromFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening import file: %w", err)
	}
	defer f.Close()

	records, err := transfer.Decode(f, cfg.GetCounters())
	if err != nil {
		if errors.Is(err, transfer.ErrMalformed) {
			fmt.Printf("⚠ %s was not imported, existing readings are unchanged\n", path)
		}
		return err
	}

	db, err := openDB(database.WithoutSchemaCheck())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := db.Seed(records); err != nil {
		return fmt.Errorf("importing readings: %w", err)
	}

	logger.Info("readings imported", zap.String("file", path), zap.Int("count", len(records)))
	fmt.Printf("✓ Imported %d readings from %s\n", len(records), path)
	return nil
}
