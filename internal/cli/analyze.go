package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"careerscope/internal/common"
	"careerscope/internal/state"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [resume-file] [job-description-file...]",
	Short: "Run a complete analysis without the interactive wizard",
	Long: `Upload a resume and one or more job description files, run the fit
analysis, and print the scored job matches. Equivalent to stages 1 through 3
of the wizard in a single non-interactive pass.`,
	Args: cobra.MinimumNArgs(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		if analyzeConfig.OutputFormat == "" {
			analyzeConfig.OutputFormat = cfg.App.DefaultFormat
		}
		return common.ValidateOutputFormat(analyzeConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runAnalyze,
}

var analyzeConfig common.CommandConfig

var analyzeTimeout time.Duration

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	analyzeCmd.Flags().StringVar(&analyzeConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 10*time.Minute, "Maximum time to wait for the analysis")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.shutdown(context.Background())

	ctx, cancel := context.WithTimeout(cmd.Context(), analyzeTimeout)
	defer cancel()

	if _, err := a.orch.EnsureSession(ctx); err != nil {
		return fmt.Errorf("failed to establish session: %w", err)
	}

	resumePath, jobPaths := args[0], args[1:]
	if len(jobPaths) > a.cfg.Wizard.MaxJobDescriptions {
		return fmt.Errorf("at most %d job descriptions are supported, got %d",
			a.cfg.Wizard.MaxJobDescriptions, len(jobPaths))
	}

	resume, err := a.client.UploadResume(ctx, resumePath)
	if err != nil {
		return fmt.Errorf("failed to upload resume: %w", err)
	}
	skills := make([]string, 0, len(resume.Skills))
	for _, s := range resume.Skills {
		skills = append(skills, s.Name)
	}
	a.analysis.SetResume(&state.Resume{
		ResumeID: resume.ResumeID,
		Source:   resumePath,
		Skills:   skills,
		Summary:  resume.Summary,
	})
	a.logger.Info("Resume uploaded", "file", resumePath, "skills", len(skills))

	for _, path := range jobPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("cannot read job description %s: %w", path, err)
		}
		job, err := a.client.UploadJobDescription(ctx, string(data))
		if err != nil {
			return fmt.Errorf("failed to upload job description %s: %w", path, err)
		}
		a.analysis.AddJob(state.JobDescription{
			JobID:   job.JobID,
			Title:   job.Title,
			Company: job.Company,
			Source:  path,
		})
		a.logger.Info("Job description uploaded", "file", path, "title", job.Title)
	}

	if err := a.orch.StartAnalysis(ctx); err != nil {
		return fmt.Errorf("failed to start analysis: %w", err)
	}

	if err := waitForResult(ctx, a); err != nil {
		return err
	}

	result := a.analysis.Result()
	if result == nil {
		return fmt.Errorf("analysis failed: %s", a.analysis.LastError())
	}
	return a.output.HandleOutput(result, analyzeConfig)
}

// waitForResult blocks until the run reaches a terminal state or ctx expires.
func waitForResult(ctx context.Context, a *app) error {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for a.analysis.Analyzing() {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timed out waiting for analysis: %w", ctx.Err())
		case <-ticker.C:
		}
	}
	return nil
}
