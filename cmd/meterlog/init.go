package main

import (
	"fmt"
	"os"

	"github.com/jgoulah/meterlog/internal/config"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Long: `Writes config.yaml (or the file given with --config) with the default counters
and publishing disabled. Edit the counters before adding the first reading;
changing them later requires a reset or an import.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path := getConfigPath()
	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	// Secrets from the environment stay out of the file
	out := &config.Config{
		Database:    cfg.GetDatabase(),
		Timezone:    cfg.Timezone,
		ExampleFile: cfg.GetExampleFile(),
		LogLevel:    cfg.GetLogLevel(),
		LogFormat:   cfg.GetLogFormat(),
		Counters:    cfg.GetCounters(),
		MQTT: config.MQTTConfig{
			Broker:      "localhost:1883",
			TopicPrefix: cfg.MQTT.GetTopicPrefix(),
		},
		HomeAssistant: config.HAConfig{
			EntityPrefix: cfg.HomeAssistant.GetEntityPrefix(),
		},
	}
	if err := config.Save(path, out); err != nil {
		return err
	}

	fmt.Printf("✓ Config written to %s\n", path)
	return nil
}
