package main

import (
	"fmt"

	"github.com/jgoulah/meterlog/internal/database"
	"github.com/spf13/cobra"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all stored readings",
	Long: `Drops and recreates the readings table. This cannot be undone;
run export first if you want to keep a copy.`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "Confirm that all readings should be deleted")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetYes {
		return fmt.Errorf("refusing to delete all readings without --yes")
	}

	// The table is rebuilt, so it may have been created for other counters
	db, err := openDB(database.WithoutSchemaCheck())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	n, err := db.Count()
	if err != nil {
		return err
	}
	if err := db.Reset(); err != nil {
		return fmt.Errorf("resetting readings: %w", err)
	}

	fmt.Printf("✓ Deleted %d readings\n", n)
	return nil
}
