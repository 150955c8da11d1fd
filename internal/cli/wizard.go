package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"careerscope/internal/state"
	"careerscope/internal/wizard"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var wizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Run the guided analysis wizard",
	Long: `Walk through the four analysis stages interactively: upload your resume
and job descriptions, run the analysis while watching per-agent progress,
review the scored job matches, and explore recommendations, interview
preparation, market insights, and follow-up chat.`,
	RunE: runWizard,
}

func runWizard(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.shutdown(context.Background())

	ctx := cmd.Context()
	if _, err := a.orch.EnsureSession(ctx); err != nil {
		return fmt.Errorf("failed to establish session: %w", err)
	}

	w := &wizardRunner{app: a, input: bufio.NewScanner(os.Stdin)}
	return w.run(ctx)
}

// wizardRunner drives the interactive stage loop. All stage-gating decisions
// go through the state machine; the runner only renders and collects input.
type wizardRunner struct {
	app   *app
	input *bufio.Scanner

	watcher *wizard.InputWatcher
}

func (w *wizardRunner) run(ctx context.Context) error {
	defer w.stopWatcher()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var err error
		var quit bool
		switch w.app.machine.Stage() {
		case wizard.StageUpload:
			quit, err = w.uploadStage(ctx)
		case wizard.StageAnalyze:
			quit, err = w.analyzeStage(ctx)
		case wizard.StageResults:
			quit, err = w.resultsStage(ctx)
		case wizard.StageExplore:
			quit, err = w.exploreStage(ctx)
		}
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
	}
}

func (w *wizardRunner) banner(title string) {
	fmt.Println()
	fmt.Println(color.New(color.Bold, color.FgCyan).Sprintf("-- Stage %d/4: %s --",
		w.app.machine.Stage(), title))
}

// prompt reads one line of input, returning false on EOF.
func (w *wizardRunner) prompt(label string) (string, bool) {
	fmt.Printf("%s ", color.CyanString(label))
	if !w.input.Scan() {
		return "", false
	}
	return strings.TrimSpace(w.input.Text()), true
}

func (w *wizardRunner) uploadStage(ctx context.Context) (bool, error) {
	w.banner("Upload")
	w.printUploadStatus()
	fmt.Println("Commands: resume <file>, job <file>, jobtext, list, next, quit")

	for {
		w.refreshUploadGate()

		line, ok := w.prompt(">")
		if !ok {
			return true, nil
		}
		cmd, arg, _ := strings.Cut(line, " ")

		switch cmd {
		case "resume":
			if arg == "" {
				fmt.Println("Usage: resume <file>")
				continue
			}
			if err := w.uploadResume(ctx, arg); err != nil {
				w.printError(err)
			}
		case "job":
			if arg == "" {
				fmt.Println("Usage: job <file>")
				continue
			}
			if err := w.uploadJobFile(ctx, arg); err != nil {
				w.printError(err)
			}
		case "jobtext":
			text := w.readMultiline()
			if text == "" {
				continue
			}
			if err := w.uploadJobText(ctx, text, "(pasted)"); err != nil {
				w.printError(err)
			}
		case "list":
			w.printUploadStatus()
		case "next":
			w.refreshUploadGate()
			if w.app.machine.RequestAdvance() {
				return false, nil
			}
			fmt.Println(color.YellowString("Upload a resume and at least one job description first."))
		case "quit", "exit":
			return true, nil
		case "":
		default:
			fmt.Printf("Unknown command: %s\n", cmd)
		}
	}
}

// refreshUploadGate recomputes the stage 1 exit guard from current state.
func (w *wizardRunner) refreshUploadGate() {
	ready := w.app.analysis.Resume() != nil && w.app.analysis.JobCount() > 0
	w.app.machine.SetCanProceed(ready)
}

func (w *wizardRunner) uploadResume(ctx context.Context, path string) error {
	if err := w.submitResume(ctx, path); err != nil {
		return err
	}
	if w.app.cfg.Wizard.WatchInputs {
		w.watchResume(ctx, path)
	}
	return nil
}

func (w *wizardRunner) submitResume(ctx context.Context, path string) error {
	resp, err := w.app.client.UploadResume(ctx, path)
	if err != nil {
		return err
	}
	skills := make([]string, 0, len(resp.Skills))
	for _, s := range resp.Skills {
		skills = append(skills, s.Name)
	}
	w.app.analysis.SetResume(&state.Resume{
		ResumeID: resp.ResumeID,
		Source:   path,
		Skills:   skills,
		Summary:  resp.Summary,
	})
	fmt.Printf("%s %d skills detected\n", color.GreenString("Resume parsed:"), len(skills))
	return nil
}

func (w *wizardRunner) uploadJobFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read job description %s: %w", path, err)
	}
	return w.uploadJobText(ctx, string(data), path)
}

func (w *wizardRunner) uploadJobText(ctx context.Context, text, source string) error {
	if w.app.analysis.JobCount() >= w.app.cfg.Wizard.MaxJobDescriptions {
		return fmt.Errorf("maximum of %d job descriptions reached", w.app.cfg.Wizard.MaxJobDescriptions)
	}
	resp, err := w.app.client.UploadJobDescription(ctx, text)
	if err != nil {
		return err
	}
	w.app.analysis.AddJob(state.JobDescription{
		JobID:   resp.JobID,
		Title:   resp.Title,
		Company: resp.Company,
		Source:  source,
	})
	fmt.Printf("%s %s", color.GreenString("Job added:"), resp.Title)
	if resp.Company != "" {
		fmt.Printf(" at %s", resp.Company)
	}
	fmt.Println()
	return nil
}

// readMultiline collects pasted text until a lone "." line.
func (w *wizardRunner) readMultiline() string {
	fmt.Println("Paste the job description, end with a single '.' line:")
	var lines []string
	for w.input.Scan() {
		line := w.input.Text()
		if strings.TrimSpace(line) == "." {
			break
		}
		lines = append(lines, line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func (w *wizardRunner) watchResume(ctx context.Context, path string) {
	w.stopWatcher()
	w.watcher = wizard.NewInputWatcher([]string{path}, w.app.cfg.Wizard.DebounceDelay,
		func(changed string) {
			fmt.Printf("\n%s re-uploading %s\n", color.YellowString("Resume changed on disk,"), changed)
			if err := w.submitResume(ctx, changed); err != nil {
				w.printError(err)
			}
		}, w.app.logger)
	if err := w.watcher.Start(); err != nil {
		w.app.logger.LogError(err, "Failed to start input watcher")
		w.watcher = nil
	}
}

func (w *wizardRunner) stopWatcher() {
	if w.watcher != nil {
		if err := w.watcher.Stop(); err != nil {
			w.app.logger.LogError(err, "Failed to stop input watcher")
		}
		w.watcher = nil
	}
}

func (w *wizardRunner) printUploadStatus() {
	if r := w.app.analysis.Resume(); r != nil {
		fmt.Printf("Resume: %s (%d skills)\n", r.Source, len(r.Skills))
	} else {
		fmt.Println("Resume: (not uploaded)")
	}
	jobs := w.app.analysis.Jobs()
	fmt.Printf("Job descriptions: %d/%d\n", len(jobs), w.app.cfg.Wizard.MaxJobDescriptions)
	for i, j := range jobs {
		fmt.Printf("  %d. %s", i+1, j.Title)
		if j.Company != "" {
			fmt.Printf(" at %s", j.Company)
		}
		fmt.Println()
	}
}

func (w *wizardRunner) analyzeStage(ctx context.Context) (bool, error) {
	w.banner("Analyze")
	w.stopWatcher()

	if err := w.app.orch.StartAnalysis(ctx); err != nil {
		w.printError(err)
		w.app.machine.RequestRetreat()
		return false, nil
	}

	if err := w.watchProgress(ctx); err != nil {
		return false, err
	}

	if msg := w.app.analysis.LastError(); msg != "" && w.app.analysis.Result() == nil {
		fmt.Println(color.RedString("Analysis failed: %s", msg))
		line, ok := w.prompt("Retry? [y/N]")
		if !ok || !strings.EqualFold(line, "y") {
			return true, nil
		}
		return false, nil
	}

	// Completion auto-advances the machine; nothing to do here.
	return false, nil
}

// watchProgress renders agent status lines until the run reaches a terminal
// state. Display-only: the orchestrator owns all state changes.
func (w *wizardRunner) watchProgress(ctx context.Context) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	var lastRendered string
	for w.app.analysis.Analyzing() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if rendered := w.renderAgents(); rendered != lastRendered {
			fmt.Print(rendered)
			lastRendered = rendered
		}
	}
	return nil
}

func (w *wizardRunner) renderAgents() string {
	var b strings.Builder
	for _, agent := range w.app.analysis.AgentStatuses() {
		var status string
		switch agent.Status {
		case "completed":
			status = color.GreenString("done")
		case "failed":
			status = color.RedString("failed")
		case "running":
			status = color.YellowString(fmt.Sprintf("%3d%%", agent.Progress))
		default:
			status = "waiting"
		}
		b.WriteString(fmt.Sprintf("  %-20s %s", agent.AgentName, status))
		if agent.CurrentStep != "" {
			b.WriteString("  " + agent.CurrentStep)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

func (w *wizardRunner) resultsStage(ctx context.Context) (bool, error) {
	w.banner("Results")

	result := w.app.analysis.Result()
	if result == nil {
		fmt.Println("No results available.")
		w.app.machine.RequestRetreat()
		return false, nil
	}

	rendered, err := w.app.output.Format(result, "text")
	if err != nil {
		return false, err
	}
	fmt.Println(rendered)

	fmt.Println("Commands: select <n>, next, back, quit")
	for {
		line, ok := w.prompt(">")
		if !ok {
			return true, nil
		}
		cmd, arg, _ := strings.Cut(line, " ")
		switch cmd {
		case "select":
			matches := result.JobMatches
			var n int
			if _, err := fmt.Sscanf(arg, "%d", &n); err != nil || n < 1 || n > len(matches) {
				fmt.Printf("Pick a match between 1 and %d\n", len(matches))
				continue
			}
			w.app.analysis.SelectJob(matches[n-1].JobID)
			fmt.Printf("Selected: %s\n", matches[n-1].JobTitle)
		case "next":
			w.app.machine.SetCanProceed(true)
			if w.app.machine.RequestAdvance() {
				return false, nil
			}
		case "back":
			if w.app.machine.RequestRetreat() {
				return false, nil
			}
		case "quit", "exit":
			return true, nil
		case "":
		default:
			fmt.Printf("Unknown command: %s\n", cmd)
		}
	}
}

func (w *wizardRunner) exploreStage(ctx context.Context) (bool, error) {
	w.banner("Explore")
	fmt.Println("Commands: recommendations, interview, insights, chat <message>, back, quit")

	sessionID := w.app.sessions.ID()
	for {
		line, ok := w.prompt(">")
		if !ok {
			return true, nil
		}
		cmd, arg, _ := strings.Cut(line, " ")

		switch cmd {
		case "recommendations":
			resp, err := w.app.client.FetchRecommendations(ctx, sessionID)
			if err != nil {
				w.printError(err)
				continue
			}
			w.printFormatted(resp)
		case "interview":
			resp, err := w.app.client.FetchInterviewPrep(ctx, sessionID)
			if err != nil {
				w.printError(err)
				continue
			}
			w.printFormatted(resp)
		case "insights":
			resp, err := w.app.client.FetchMarketInsights(ctx, sessionID)
			if err != nil {
				w.printError(err)
				continue
			}
			w.printFormatted(resp)
		case "chat":
			if arg == "" {
				fmt.Println("Usage: chat <message>")
				continue
			}
			if err := w.chat(ctx, arg); err != nil {
				w.printError(err)
			}
		case "back":
			if w.app.machine.RequestRetreat() {
				return false, nil
			}
		case "quit", "exit":
			return true, nil
		case "":
		default:
			fmt.Printf("Unknown command: %s\n", cmd)
		}
	}
}

func (w *wizardRunner) chat(ctx context.Context, message string) error {
	resp, err := w.app.client.Chat(ctx, chatRequest(message, w.app.analysis.SelectedJob()))
	if err != nil {
		return err
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

func (w *wizardRunner) printFormatted(data any) {
	rendered, err := w.app.output.Format(data, "text")
	if err != nil {
		w.printError(err)
		return
	}
	fmt.Println(rendered)
}

func (w *wizardRunner) printError(err error) {
	fmt.Println(color.RedString("Error: %v", err))
}
