package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard the current session and start fresh",
	Long: `Tear down any in-flight analysis, discard all uploaded material and
results, and create a brand-new session. The abandoned analysis keeps running
on the engine until its session expires.`,
	RunE: runReset,
}

func runReset(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.shutdown(context.Background())

	if err := a.orch.Reset(cmd.Context()); err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}

	fmt.Printf("New session: %s\n", a.sessions.ID())
	return nil
}
