package cli

import (
	"context"
	"fmt"

	"careerscope/internal/common"

	"github.com/spf13/cobra"
)

// The explore commands share one flag set shape; each fetches a completed
// session's derived material and hands it to the output pipeline.

var recommendationsCmd = &cobra.Command{
	Use:     "recommendations",
	Short:   "Show resume improvement recommendations",
	PreRunE: exploreFormatCheck(&recommendationsConfig),
	RunE: exploreRun(&recommendationsConfig, func(ctx context.Context, a *app, sessionID string) (any, error) {
		return a.client.FetchRecommendations(ctx, sessionID)
	}),
}

var interviewCmd = &cobra.Command{
	Use:     "interview-prep",
	Short:   "Show interview preparation material",
	PreRunE: exploreFormatCheck(&interviewConfig),
	RunE: exploreRun(&interviewConfig, func(ctx context.Context, a *app, sessionID string) (any, error) {
		return a.client.FetchInterviewPrep(ctx, sessionID)
	}),
}

var insightsCmd = &cobra.Command{
	Use:     "market-insights",
	Short:   "Show market insights for the analyzed roles",
	PreRunE: exploreFormatCheck(&insightsConfig),
	RunE: exploreRun(&insightsConfig, func(ctx context.Context, a *app, sessionID string) (any, error) {
		return a.client.FetchMarketInsights(ctx, sessionID)
	}),
}

var (
	recommendationsConfig common.CommandConfig
	interviewConfig       common.CommandConfig
	insightsConfig        common.CommandConfig
)

func init() {
	for _, pair := range []struct {
		cmd  *cobra.Command
		conf *common.CommandConfig
	}{
		{recommendationsCmd, &recommendationsConfig},
		{interviewCmd, &interviewConfig},
		{insightsCmd, &insightsConfig},
	} {
		pair.cmd.Flags().StringVarP(&pair.conf.OutputFile, "output", "o", "", "Output file path (default: stdout)")
		pair.cmd.Flags().StringVar(&pair.conf.OutputFormat, "format", "", "Output format: json, text, or markdown")
	}
}

func exploreFormatCheck(conf *common.CommandConfig) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		if conf.OutputFormat == "" {
			conf.OutputFormat = cfg.App.DefaultFormat
		}
		return common.ValidateOutputFormat(conf.OutputFormat, cfg.App.SupportedFormats)
	}
}

func exploreRun(conf *common.CommandConfig, fetch func(context.Context, *app, string) (any, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.shutdown(context.Background())

		sessionID, err := a.requireSession()
		if err != nil {
			return err
		}

		data, err := fetch(cmd.Context(), a, sessionID)
		if err != nil {
			return fmt.Errorf("failed to fetch data: %w", err)
		}
		return a.output.HandleOutput(data, *conf)
	}
}
