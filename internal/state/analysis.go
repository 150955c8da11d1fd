package state

import (
	"sort"
	"sync"

	"careerscope/internal/types"
)

// JobDescription is one uploaded job description as the wizard tracks it.
type JobDescription struct {
	JobID   string
	Title   string
	Company string
	Source  string // File path or "stdin"
}

// Resume is the uploaded resume artifact as the wizard tracks it. Skills are
// flattened to their names; the full parsed skill records stay server side.
type Resume struct {
	ResumeID string
	Source   string
	Skills   []string
	Summary  string
}

// AnalysisStore holds the uploaded artifacts, the per-agent progress mapping
// and the analysis result. Screens read through snapshot getters; only the
// orchestrator (and the upload path) mutate it, one event source at a time.
type AnalysisStore struct {
	mu sync.RWMutex

	resume        *Resume
	jobs          []JobDescription
	result        *types.AnalysisResult
	selectedJobID string

	analyzing     bool
	agentStatuses map[string]types.AgentStatusUpdate
	lastError     string
}

// NewAnalysisStore creates an empty analysis store.
func NewAnalysisStore() *AnalysisStore {
	return &AnalysisStore{
		agentStatuses: make(map[string]types.AgentStatusUpdate),
	}
}

// SetResume records the parsed resume artifact.
func (s *AnalysisStore) SetResume(r *Resume) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resume = r
}

// Resume returns the current resume artifact, or nil.
func (s *AnalysisStore) Resume() *Resume {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resume
}

// AddJob appends one uploaded job description.
func (s *AnalysisStore) AddJob(j JobDescription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, j)
}

// Jobs returns a copy of the uploaded job descriptions in upload order.
func (s *AnalysisStore) Jobs() []JobDescription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]JobDescription, len(s.jobs))
	copy(out, s.jobs)
	return out
}

// JobCount returns the number of uploaded job descriptions.
func (s *AnalysisStore) JobCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// SelectJob records the job currently chosen for detail views.
func (s *AnalysisStore) SelectJob(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedJobID = jobID
}

// SelectedJob returns the job id chosen for detail views, or "".
func (s *AnalysisStore) SelectedJob() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedJobID
}

// SetAnalyzing flips the "job running" flag.
func (s *AnalysisStore) SetAnalyzing(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyzing = v
}

// Analyzing reports whether an analysis job is in flight.
func (s *AnalysisStore) Analyzing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.analyzing
}

// SetResult records the terminal analysis artifact.
func (s *AnalysisStore) SetResult(r *types.AnalysisResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = r
}

// Result returns the analysis result, or nil if no run has completed.
func (s *AnalysisStore) Result() *types.AnalysisResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result
}

// SetError records a user-visible failure message.
func (s *AnalysisStore) SetError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = msg
}

// LastError returns the most recent user-visible failure message, or "".
func (s *AnalysisStore) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// ApplyAgentUpdate upserts one agent's status record. The mapping is keyed
// by agent name; applying N updates for the same agent leaves exactly one
// entry equal to the N-th update.
func (s *AnalysisStore) ApplyAgentUpdate(u types.AgentStatusUpdate) {
	if u.AgentName == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agentStatuses[u.AgentName] = u
}

// AgentStatuses returns a snapshot of the per-agent mapping sorted by name.
func (s *AnalysisStore) AgentStatuses() []types.AgentStatusUpdate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.AgentStatusUpdate, 0, len(s.agentStatuses))
	for _, u := range s.agentStatuses {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentName < out[j].AgentName })
	return out
}

// ClearAgentStatuses empties the per-agent mapping. Called at the start of
// every analysis run.
func (s *AnalysisStore) ClearAgentStatuses() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agentStatuses = make(map[string]types.AgentStatusUpdate)
}

// Reset returns the store to its initial empty values.
func (s *AnalysisStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resume = nil
	s.jobs = nil
	s.result = nil
	s.selectedJobID = ""
	s.analyzing = false
	s.lastError = ""
	s.agentStatuses = make(map[string]types.AgentStatusUpdate)
}
