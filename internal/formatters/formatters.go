package formatters

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"careerscope/internal/types"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "AnalysisResult", &ResultTextFormatter{})
	registry.RegisterFormatter("markdown", "AnalysisResult", &ResultMarkdownFormatter{})
	registry.RegisterFormatter("text", "RecommendationsResponse", &RecommendationsTextFormatter{})
	registry.RegisterFormatter("markdown", "RecommendationsResponse", &RecommendationsMarkdownFormatter{})
	registry.RegisterFormatter("text", "InterviewPrepResponse", &InterviewPrepTextFormatter{})
	registry.RegisterFormatter("markdown", "InterviewPrepResponse", &InterviewPrepMarkdownFormatter{})
	registry.RegisterFormatter("text", "MarketInsightsResponse", &MarketInsightsTextFormatter{})
	registry.RegisterFormatter("markdown", "MarketInsightsResponse", &MarketInsightsMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.AnalysisResult, *types.AnalysisResult:
		return "AnalysisResult"
	case types.RecommendationsResponse, *types.RecommendationsResponse:
		return "RecommendationsResponse"
	case types.InterviewPrepResponse, *types.InterviewPrepResponse:
		return "InterviewPrepResponse"
	case types.MarketInsightsResponse, *types.MarketInsightsResponse:
		return "MarketInsightsResponse"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// ResultTextFormatter renders job matches as a terminal table with a
// per-match skill breakdown.
type ResultTextFormatter struct{}

func (rtf *ResultTextFormatter) Format(data any) (string, error) {
	result, err := asResult(data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	output.WriteString(color.New(color.Bold).Sprint("Job Match Results"))
	output.WriteString("\n\n")

	if len(result.JobMatches) == 0 {
		output.WriteString("No job matches found.\n")
		return output.String(), nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Job Title", "Company", "Fit", "Skills", "Experience", "Education"})
	for i, m := range result.JobMatches {
		t.AppendRow(table.Row{
			i + 1,
			m.JobTitle,
			m.Company,
			scoreCell(m.FitScore),
			scoreCell(m.SkillMatchScore),
			scoreCell(m.ExperienceMatchScore),
			scoreCell(m.EducationMatchScore),
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})
	output.WriteString(t.Render())
	output.WriteString("\n")

	for _, m := range result.JobMatches {
		output.WriteString("\n")
		output.WriteString(color.New(color.Bold).Sprintf("%s", m.JobTitle))
		if m.Company != "" {
			output.WriteString(fmt.Sprintf(" at %s", m.Company))
		}
		output.WriteString("\n")

		if len(m.MatchingSkills) > 0 {
			output.WriteString(color.GreenString("  Matching skills:"))
			output.WriteString(" ")
			names := make([]string, 0, len(m.MatchingSkills))
			for _, s := range m.MatchingSkills {
				names = append(names, s.SkillName)
			}
			output.WriteString(strings.Join(names, ", "))
			output.WriteString("\n")
		}
		if len(m.MissingSkills) > 0 {
			output.WriteString(color.YellowString("  Missing skills:"))
			output.WriteString(" ")
			names := make([]string, 0, len(m.MissingSkills))
			for _, s := range m.MissingSkills {
				if s.Importance == "must_have" {
					names = append(names, s.SkillName+" (must have)")
				} else {
					names = append(names, s.SkillName)
				}
			}
			output.WriteString(strings.Join(names, ", "))
			output.WriteString("\n")
		}
		if len(m.TransferableSkills) > 0 {
			output.WriteString(fmt.Sprintf("  Transferable: %s\n", strings.Join(m.TransferableSkills, ", ")))
		}
	}

	return output.String(), nil
}

func (rtf *ResultTextFormatter) SupportedType() string {
	return "AnalysisResult"
}

// scoreCell colors a 0-100 score by band.
func scoreCell(score float64) string {
	formatted := fmt.Sprintf("%.0f%%", score)
	switch {
	case score >= 75:
		return color.GreenString(formatted)
	case score >= 50:
		return color.YellowString(formatted)
	default:
		return color.RedString(formatted)
	}
}

// ResultMarkdownFormatter renders job matches as a markdown document
type ResultMarkdownFormatter struct{}

func (rmf *ResultMarkdownFormatter) Format(data any) (string, error) {
	result, err := asResult(data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	output.WriteString("# Job Match Results\n\n")

	if len(result.JobMatches) == 0 {
		output.WriteString("No job matches found.\n")
		return output.String(), nil
	}

	output.WriteString("| Job Title | Company | Fit | Skills | Experience | Education |\n")
	output.WriteString("|-----------|---------|-----|--------|------------|----------|\n")
	for _, m := range result.JobMatches {
		output.WriteString(fmt.Sprintf("| %s | %s | %.0f%% | %.0f%% | %.0f%% | %.0f%% |\n",
			m.JobTitle, m.Company, m.FitScore, m.SkillMatchScore,
			m.ExperienceMatchScore, m.EducationMatchScore))
	}

	for _, m := range result.JobMatches {
		output.WriteString(fmt.Sprintf("\n## %s", m.JobTitle))
		if m.Company != "" {
			output.WriteString(fmt.Sprintf(" at %s", m.Company))
		}
		output.WriteString("\n\n")

		if len(m.MatchingSkills) > 0 {
			output.WriteString("**Matching skills:**\n")
			for _, s := range m.MatchingSkills {
				output.WriteString(fmt.Sprintf("- %s (%s)\n", s.SkillName, s.MatchQuality))
			}
			output.WriteString("\n")
		}
		if len(m.MissingSkills) > 0 {
			output.WriteString("**Missing skills:**\n")
			for _, s := range m.MissingSkills {
				output.WriteString(fmt.Sprintf("- %s (%s)\n", s.SkillName, s.Importance))
			}
			output.WriteString("\n")
		}
	}

	return output.String(), nil
}

func (rmf *ResultMarkdownFormatter) SupportedType() string {
	return "AnalysisResult"
}

// RecommendationsTextFormatter renders recommendations for the terminal
type RecommendationsTextFormatter struct{}

func (rtf *RecommendationsTextFormatter) Format(data any) (string, error) {
	resp, err := asRecommendations(data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	output.WriteString(color.New(color.Bold).Sprint("Recommendations"))
	output.WriteString("\n\n")

	if len(resp.Recommendations) == 0 {
		output.WriteString("No recommendations available.\n")
		return output.String(), nil
	}

	for i, rec := range resp.Recommendations {
		output.WriteString(fmt.Sprintf("%d. %s %s\n", i+1, priorityTag(rec.Priority), rec.Title))
		output.WriteString(fmt.Sprintf("   %s\n", rec.Description))
		for _, item := range rec.ActionItems {
			output.WriteString(fmt.Sprintf("   - %s\n", item))
		}
		if rec.EstimatedTime != "" {
			output.WriteString(fmt.Sprintf("   Estimated time: %s\n", rec.EstimatedTime))
		}
		output.WriteString("\n")
	}

	if resp.EstimatedImprovement > 0 {
		output.WriteString(fmt.Sprintf("Estimated fit improvement: +%.0f%%\n", resp.EstimatedImprovement))
	}

	return output.String(), nil
}

func (rtf *RecommendationsTextFormatter) SupportedType() string {
	return "RecommendationsResponse"
}

func priorityTag(priority string) string {
	switch strings.ToLower(priority) {
	case "high":
		return color.RedString("[HIGH]")
	case "medium":
		return color.YellowString("[MEDIUM]")
	case "low":
		return color.CyanString("[LOW]")
	default:
		return fmt.Sprintf("[%s]", strings.ToUpper(priority))
	}
}

// RecommendationsMarkdownFormatter renders recommendations as markdown
type RecommendationsMarkdownFormatter struct{}

func (rmf *RecommendationsMarkdownFormatter) Format(data any) (string, error) {
	resp, err := asRecommendations(data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	output.WriteString("# Recommendations\n\n")

	for _, rec := range resp.Recommendations {
		output.WriteString(fmt.Sprintf("## %s (%s priority)\n\n", rec.Title, rec.Priority))
		output.WriteString(rec.Description)
		output.WriteString("\n\n")
		if len(rec.ActionItems) > 0 {
			output.WriteString("**Action items:**\n")
			for _, item := range rec.ActionItems {
				output.WriteString(fmt.Sprintf("- %s\n", item))
			}
			output.WriteString("\n")
		}
	}

	return output.String(), nil
}

func (rmf *RecommendationsMarkdownFormatter) SupportedType() string {
	return "RecommendationsResponse"
}

// InterviewPrepTextFormatter renders interview prep material for the terminal
type InterviewPrepTextFormatter struct{}

func (itf *InterviewPrepTextFormatter) Format(data any) (string, error) {
	resp, err := asInterviewPrep(data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	output.WriteString(color.New(color.Bold).Sprint("Interview Preparation"))
	output.WriteString("\n\n")

	for i, q := range resp.Questions {
		output.WriteString(fmt.Sprintf("%d. %s\n", i+1, color.New(color.Bold).Sprint(q.Question)))
		output.WriteString(fmt.Sprintf("   (%s, %s)\n", q.Category, q.Difficulty))
		if q.SuggestedAnswer != "" {
			output.WriteString(fmt.Sprintf("   Suggested approach: %s\n", q.SuggestedAnswer))
		}
		output.WriteString("\n")
	}

	if len(resp.TalkingPoints) > 0 {
		output.WriteString("Talking points:\n")
		for _, p := range resp.TalkingPoints {
			output.WriteString(fmt.Sprintf("  - %s\n", p))
		}
		output.WriteString("\n")
	}
	if len(resp.QuestionsToAsk) > 0 {
		output.WriteString("Questions to ask:\n")
		for _, q := range resp.QuestionsToAsk {
			output.WriteString(fmt.Sprintf("  - %s\n", q))
		}
	}

	return output.String(), nil
}

func (itf *InterviewPrepTextFormatter) SupportedType() string {
	return "InterviewPrepResponse"
}

// InterviewPrepMarkdownFormatter renders interview prep material as markdown
type InterviewPrepMarkdownFormatter struct{}

func (imf *InterviewPrepMarkdownFormatter) Format(data any) (string, error) {
	resp, err := asInterviewPrep(data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	output.WriteString("# Interview Preparation\n\n")

	for _, q := range resp.Questions {
		output.WriteString(fmt.Sprintf("## %s\n\n", q.Question))
		output.WriteString(fmt.Sprintf("*%s, %s*\n\n", q.Category, q.Difficulty))
		if q.SuggestedAnswer != "" {
			output.WriteString(q.SuggestedAnswer)
			output.WriteString("\n\n")
		}
	}

	if len(resp.TalkingPoints) > 0 {
		output.WriteString("## Talking Points\n\n")
		for _, p := range resp.TalkingPoints {
			output.WriteString(fmt.Sprintf("- %s\n", p))
		}
		output.WriteString("\n")
	}

	return output.String(), nil
}

func (imf *InterviewPrepMarkdownFormatter) SupportedType() string {
	return "InterviewPrepResponse"
}

// MarketInsightsTextFormatter renders market insights as a terminal table
type MarketInsightsTextFormatter struct{}

func (mtf *MarketInsightsTextFormatter) Format(data any) (string, error) {
	resp, err := asMarketInsights(data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	output.WriteString(color.New(color.Bold).Sprint("Market Insights"))
	output.WriteString("\n\n")

	if len(resp.Insights) == 0 {
		output.WriteString("No market insights available.\n")
		return output.String(), nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Insight", "Value"})
	for _, key := range sortedKeys(resp.Insights) {
		t.AppendRow(table.Row{humanize(key), renderInsight(resp.Insights[key])})
	}
	output.WriteString(t.Render())
	output.WriteString("\n")

	return output.String(), nil
}

func (mtf *MarketInsightsTextFormatter) SupportedType() string {
	return "MarketInsightsResponse"
}

// MarketInsightsMarkdownFormatter renders market insights as markdown
type MarketInsightsMarkdownFormatter struct{}

func (mmf *MarketInsightsMarkdownFormatter) Format(data any) (string, error) {
	resp, err := asMarketInsights(data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	output.WriteString("# Market Insights\n\n")
	for _, key := range sortedKeys(resp.Insights) {
		output.WriteString(fmt.Sprintf("- **%s**: %s\n", humanize(key), renderInsight(resp.Insights[key])))
	}

	return output.String(), nil
}

func (mmf *MarketInsightsMarkdownFormatter) SupportedType() string {
	return "MarketInsightsResponse"
}

func asResult(data any) (*types.AnalysisResult, error) {
	switch v := data.(type) {
	case types.AnalysisResult:
		return &v, nil
	case *types.AnalysisResult:
		return v, nil
	}
	return nil, fmt.Errorf("expected AnalysisResult, got %T", data)
}

func asRecommendations(data any) (*types.RecommendationsResponse, error) {
	switch v := data.(type) {
	case types.RecommendationsResponse:
		return &v, nil
	case *types.RecommendationsResponse:
		return v, nil
	}
	return nil, fmt.Errorf("expected RecommendationsResponse, got %T", data)
}

func asInterviewPrep(data any) (*types.InterviewPrepResponse, error) {
	switch v := data.(type) {
	case types.InterviewPrepResponse:
		return &v, nil
	case *types.InterviewPrepResponse:
		return v, nil
	}
	return nil, fmt.Errorf("expected InterviewPrepResponse, got %T", data)
}

func asMarketInsights(data any) (*types.MarketInsightsResponse, error) {
	switch v := data.(type) {
	case types.MarketInsightsResponse:
		return &v, nil
	case *types.MarketInsightsResponse:
		return v, nil
	}
	return nil, fmt.Errorf("expected MarketInsightsResponse, got %T", data)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// humanize turns snake_case insight keys into titles.
func humanize(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func renderInsight(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return fmt.Sprintf("%.1f", val)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, renderInsight(item))
		}
		return strings.Join(parts, ", ")
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}
