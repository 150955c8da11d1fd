package formatters

import (
	"encoding/json"
	"strings"
	"testing"

	"careerscope/internal/types"

	"github.com/fatih/color"
)

func sampleResult() *types.AnalysisResult {
	return &types.AnalysisResult{
		SessionID: "sess-1",
		Status:    types.AnalysisCompleted,
		JobMatches: []types.JobMatch{
			{
				JobID:           "j1",
				JobTitle:        "Backend Engineer",
				Company:         "Acme",
				FitScore:        82,
				SkillMatchScore: 90,
				MatchingSkills:  []types.SkillMatch{{SkillName: "Go", MatchQuality: "exact"}},
				MissingSkills:   []types.MissingSkill{{SkillName: "Kubernetes", Importance: "must_have"}},
			},
		},
	}
}

func TestRegistryDispatch(t *testing.T) {
	color.NoColor = true
	registry := NewFormatterRegistry()

	tests := []struct {
		name     string
		data     any
		format   string
		contains string
	}{
		{"result as text", sampleResult(), "text", "Backend Engineer"},
		{"result as markdown", sampleResult(), "markdown", "# Job Match Results"},
		{"recommendations as text", &types.RecommendationsResponse{
			Recommendations: []types.Recommendation{{Title: "Learn Kubernetes", Priority: "high", Description: "d"}},
		}, "text", "Learn Kubernetes"},
		{"interview prep as markdown", &types.InterviewPrepResponse{
			Questions: []types.InterviewQuestion{{Question: "Tell me about Go", Category: "technical", Difficulty: "easy"}},
		}, "markdown", "Tell me about Go"},
		{"insights as text", &types.MarketInsightsResponse{
			Insights: map[string]any{"median_salary": "120k"},
		}, "text", "Median Salary"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := registry.Format(tt.data, tt.format)
			if err != nil {
				t.Fatalf("Format() error: %v", err)
			}
			if !strings.Contains(out, tt.contains) {
				t.Errorf("output missing %q:\n%s", tt.contains, out)
			}
		})
	}
}

func TestJSONFallbackForAnyType(t *testing.T) {
	registry := NewFormatterRegistry()
	out, err := registry.Format(map[string]string{"hello": "world"}, "json")
	if err != nil {
		t.Fatalf("Format() error: %v", err)
	}
	var decoded map[string]string
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["hello"] != "world" {
		t.Errorf("decoded = %v", decoded)
	}
}

func TestUnknownFormat(t *testing.T) {
	registry := NewFormatterRegistry()
	if _, err := registry.Format(sampleResult(), "yaml"); err == nil {
		t.Error("expected an error for an unregistered format")
	}
}

func TestTextFormatterRejectsWrongType(t *testing.T) {
	f := &ResultTextFormatter{}
	if _, err := f.Format("not a result"); err == nil {
		t.Error("expected a type mismatch error")
	}
}

func TestMissingSkillAnnotations(t *testing.T) {
	color.NoColor = true
	out, err := (&ResultTextFormatter{}).Format(sampleResult())
	if err != nil {
		t.Fatalf("Format() error: %v", err)
	}
	if !strings.Contains(out, "Kubernetes (must have)") {
		t.Errorf("must-have skills should be annotated:\n%s", out)
	}
}
