package cli

import (
	"context"
	"fmt"
	"strings"

	"careerscope/internal/types"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Ask a free-form question about the fit analysis",
	Long: `Send one question about the completed analysis to the engine, for
example "why did the backend role score low on experience?". Requires a
session with completed results.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runChat,
}

var chatJobID string

func init() {
	chatCmd.Flags().StringVar(&chatJobID, "job", "", "Scope the question to one job id")
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.shutdown(context.Background())

	if _, err := a.requireSession(); err != nil {
		return err
	}

	resp, err := a.client.Chat(cmd.Context(), chatRequest(strings.Join(args, " "), chatJobID))
	if err != nil {
		return fmt.Errorf("chat request failed: %w", err)
	}

	fmt.Println(resp.Response)
	if len(resp.SuggestedQuestions) > 0 {
		fmt.Println(color.New(color.Faint).Sprint("You could also ask:"))
		for _, q := range resp.SuggestedQuestions {
			fmt.Printf("  - %s\n", q)
		}
	}
	return nil
}

func chatRequest(message, jobID string) types.ChatRequest {
	return types.ChatRequest{Message: message, JobID: jobID}
}
