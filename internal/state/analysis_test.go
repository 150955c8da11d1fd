package state

import (
	"testing"

	"careerscope/internal/types"
)

func TestApplyAgentUpdate(t *testing.T) {
	t.Run("upserts by agent name", func(t *testing.T) {
		s := NewAnalysisStore()
		s.ApplyAgentUpdate(types.AgentStatusUpdate{AgentName: "resume_parser", Status: types.AgentRunning, Progress: 10})
		s.ApplyAgentUpdate(types.AgentStatusUpdate{AgentName: "skill_matcher", Status: types.AgentPending})
		s.ApplyAgentUpdate(types.AgentStatusUpdate{AgentName: "resume_parser", Status: types.AgentCompleted, Progress: 100})

		statuses := s.AgentStatuses()
		if len(statuses) != 2 {
			t.Fatalf("got %d agent statuses, want 2", len(statuses))
		}
		for _, st := range statuses {
			if st.AgentName == "resume_parser" {
				if st.Status != types.AgentCompleted || st.Progress != 100 {
					t.Errorf("resume_parser = %+v, want completed at 100", st)
				}
			}
		}
	})

	t.Run("ignores updates without an agent name", func(t *testing.T) {
		s := NewAnalysisStore()
		s.ApplyAgentUpdate(types.AgentStatusUpdate{Status: types.AgentRunning})
		if len(s.AgentStatuses()) != 0 {
			t.Error("unnamed update should be discarded")
		}
	})

	t.Run("snapshot order is stable", func(t *testing.T) {
		s := NewAnalysisStore()
		s.ApplyAgentUpdate(types.AgentStatusUpdate{AgentName: "skill_matcher"})
		s.ApplyAgentUpdate(types.AgentStatusUpdate{AgentName: "jd_analyzer"})
		s.ApplyAgentUpdate(types.AgentStatusUpdate{AgentName: "resume_parser"})

		statuses := s.AgentStatuses()
		for i := 1; i < len(statuses); i++ {
			if statuses[i-1].AgentName > statuses[i].AgentName {
				t.Fatalf("statuses not sorted: %q before %q", statuses[i-1].AgentName, statuses[i].AgentName)
			}
		}
	})
}

func TestSetResumeKeepsSkillNames(t *testing.T) {
	parsed := []types.Skill{{Name: "Go"}, {Name: "PostgreSQL"}}
	names := make([]string, 0, len(parsed))
	for _, sk := range parsed {
		names = append(names, sk.Name)
	}

	s := NewAnalysisStore()
	s.SetResume(&Resume{ResumeID: "r1", Source: "resume.txt", Skills: names})

	r := s.Resume()
	if r == nil {
		t.Fatal("Resume() = nil after SetResume")
	}
	if len(r.Skills) != 2 || r.Skills[0] != "Go" || r.Skills[1] != "PostgreSQL" {
		t.Errorf("skills = %v, want flattened names", r.Skills)
	}
}

func TestAnalysisStoreReset(t *testing.T) {
	s := NewAnalysisStore()
	s.SetResume(&Resume{ResumeID: "r1", Source: "resume.txt"})
	s.AddJob(JobDescription{JobID: "j1", Title: "Backend Engineer"})
	s.SelectJob("j1")
	s.SetAnalyzing(true)
	s.SetError("boom")
	s.ApplyAgentUpdate(types.AgentStatusUpdate{AgentName: "resume_parser"})
	s.SetResult(&types.AnalysisResult{Status: types.AnalysisCompleted})

	s.Reset()

	if s.Resume() != nil {
		t.Error("resume should be cleared")
	}
	if s.JobCount() != 0 {
		t.Error("jobs should be cleared")
	}
	if s.SelectedJob() != "" {
		t.Error("selected job should be cleared")
	}
	if s.Analyzing() {
		t.Error("analyzing flag should be cleared")
	}
	if s.LastError() != "" {
		t.Error("last error should be cleared")
	}
	if len(s.AgentStatuses()) != 0 {
		t.Error("agent statuses should be cleared")
	}
	if s.Result() != nil {
		t.Error("result should be cleared")
	}
}

func TestJobsReturnsCopy(t *testing.T) {
	s := NewAnalysisStore()
	s.AddJob(JobDescription{JobID: "j1", Title: "Backend Engineer"})

	jobs := s.Jobs()
	jobs[0].Title = "mutated"

	if got := s.Jobs()[0].Title; got != "Backend Engineer" {
		t.Errorf("store job title = %q, want unchanged original", got)
	}
}
