package main

import (
	"fmt"
	"time"

	"github.com/jgoulah/meterlog/internal/publisher"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish the latest counter state to MQTT and Home Assistant",
	Long: `Derives the latest reading, daily rate and year-to-date total of every counter
and sends them to the MQTT broker and/or Home Assistant configured in config.yaml.`,
	Args: cobra.NoArgs,
	RunE: runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Publish started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	if !cfg.MQTT.Enabled && !cfg.HomeAssistant.Enabled {
		return fmt.Errorf("neither MQTT nor Home Assistant is enabled in config")
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

	states := publisher.Snapshot(db.Counters(), readings)
	if len(states) == 0 {
		fmt.Println("No readings to publish")
		return nil
	}

	pub, err := publisher.New(cfg.MQTT, cfg.HomeAssistant, logger.Named("publisher"))
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	defer pub.Close()

	published := 0
	for i, s := range states {
		fmt.Printf("[%d/%d] Publishing %s (%.2f %s)... ", i+1, len(states), s.Counter.Name, s.Value, s.Counter.Unit)
		if err := pub.Publish(s); err != nil {
			fmt.Printf("FAILED: %v\n", err)
			logger.Warn("publish failed", zap.String("counter", s.Counter.Column), zap.Error(err))
			continue
		}
		fmt.Printf("✓\n")
		published++
	}

	fmt.Printf("\nSuccessfully published %d/%d counters\n", published, len(states))
	if published < len(states) {
		return fmt.Errorf("%d counters failed to publish", len(states)-published)
	}
	return nil
}
