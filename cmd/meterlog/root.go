package main

import (
	"fmt"

	"github.com/jgoulah/meterlog/internal/config"
	"github.com/jgoulah/meterlog/internal/database"
	"github.com/jgoulah/meterlog/internal/logging"
	"github.com/jgoulah/meterlog/pkg/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile  string
	dbPath   string
	logLevel string

	cfg    *config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "meterlog",
	Short: "Log utility meter readings and chart consumption trends",
	Long: `MeterLog records cumulative gas, water and electricity meter readings in a
local SQLite database and derives daily consumption and year-over-year totals.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file (default is ./meterlog.db)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// setup loads and validates the config and builds the logger before any command runs
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if dbPath != "" {
		cfg.Database = dbPath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err = logging.NewLogger(cfg.GetLogLevel(), cfg.GetLogFormat())
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	logger.Debug("config loaded",
		zap.String("config", getConfigPath()),
		zap.String("database", cfg.GetDatabase()),
		zap.Strings("counters", models.Columns(cfg.GetCounters())))
	return nil
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// loadConfig loads the configuration file
func loadConfig() (*config.Config, error) {
	return config.Load(getConfigPath())
}

// openDB opens the database connection
func openDB(extra ...database.Option) (*database.DB, error) {
	loc, err := cfg.GetLocation()
	if err != nil {
		return nil, err
	}

	opts := []database.Option{
		database.WithLocation(loc),
		database.WithLogger(logger.Named("database")),
	}
	return database.New(cfg.GetDatabase(), cfg.GetCounters(), append(opts, extra...)...)
}
