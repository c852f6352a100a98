package cmd

import (
	"github.com/spf13/cobra"

	"github.com/formlab/formrules/internal/logger"
)

var (
	configFile string
	dbURL      string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "formrules",
	Short: "Formrules conditional rule engine",
	Long:  `Formrules evaluates form field and form rules per change event, serving derived field states and form actions over a JSON API.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logger.Setup(logLevel, logFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "database connection URL (sqlite://path or postgres://...)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format (json, text)")
}

func Execute() error {
	return rootCmd.Execute()
}
