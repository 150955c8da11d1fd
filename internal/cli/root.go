package cli

import (
	"context"

	"careerscope/internal/config"
	"careerscope/internal/errors"

	"github.com/spf13/cobra"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}

// Use variables of these types as the keys.
var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

var rootCmd = &cobra.Command{
	Use:   "careerscope",
	Short: "A guided resume-to-job fit analysis tool",
	Long: `CareerScope walks you through uploading a resume and job descriptions,
runs a multi-agent fit analysis on the remote engine, and presents scored
job matches with recommendations, interview preparation, and market insights.`,
}

func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	// Attach the config and logger to the context, making them available to all subcommands
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	rootCmd.SetContext(ctx)
	return rootCmd.Execute()
}

// getConfigFromContext is a helper function to get config from context
func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg
	}
	panic("config not found in context") // Should not happen if properly initialized
}

// getLoggerFromContext is a helper function to get logger from context
func getLoggerFromContext(ctx context.Context) *errors.Logger {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger
	}
	panic("logger not found in context") // Should not happen if properly initialized
}

func init() {
	rootCmd.AddCommand(wizardCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(resultsCmd)
	rootCmd.AddCommand(recommendationsCmd)
	rootCmd.AddCommand(interviewCmd)
	rootCmd.AddCommand(insightsCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(versionCmd)
}
