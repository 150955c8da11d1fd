package cli

import (
	"context"
	"fmt"
	"sort"

	"careerscope/internal/common"
	"careerscope/internal/types"

	"github.com/spf13/cobra"
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Show the results of the current session's analysis",
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		if resultsConfig.OutputFormat == "" {
			resultsConfig.OutputFormat = cfg.App.DefaultFormat
		}
		return common.ValidateOutputFormat(resultsConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runResults,
}

var resultsConfig common.CommandConfig

func init() {
	resultsCmd.Flags().StringVarP(&resultsConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	resultsCmd.Flags().StringVar(&resultsConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")
}

func runResults(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.shutdown(context.Background())

	sessionID, err := a.requireSession()
	if err != nil {
		return err
	}

	resp, err := a.client.FetchResults(cmd.Context(), sessionID)
	if err != nil {
		return fmt.Errorf("failed to fetch results: %w", err)
	}

	switch resp.Status {
	case types.AnalysisInProgress:
		fmt.Println("Analysis is still in progress.")
		for _, agent := range sortedProgress(resp.AgentProgress) {
			fmt.Printf("  %-20s %s (%d%%)\n", agent.AgentName, agent.Status, agent.Progress)
		}
		return nil
	case types.AnalysisFailed:
		return fmt.Errorf("analysis failed: %s", resp.Error)
	}

	return a.output.HandleOutput(resp.Result(), resultsConfig)
}

func sortedProgress(progress map[string]types.AgentStatusUpdate) []types.AgentStatusUpdate {
	names := make([]string, 0, len(progress))
	for name := range progress {
		names = append(names, name)
	}
	sort.Strings(names)
	updates := make([]types.AgentStatusUpdate, 0, len(names))
	for _, name := range names {
		updates = append(updates, progress[name])
	}
	return updates
}
