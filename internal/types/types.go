package types

import "time"

// Session identifies one conversation with the backend. Sessions are
// replaced wholesale, never mutated in place.
type Session struct {
	ID        string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its lifetime bound.
func (s *Session) Expired() bool {
	return s == nil || time.Now().After(s.ExpiresAt)
}

// AgentStatus is the lifecycle state of one remote worker.
type AgentStatus string

const (
	AgentPending   AgentStatus = "pending"
	AgentRunning   AgentStatus = "running"
	AgentCompleted AgentStatus = "completed"
	AgentFailed    AgentStatus = "failed"
)

// AgentStatusUpdate is one named worker's state at a point in time.
// The collection of updates is keyed by AgentName; last write wins.
type AgentStatusUpdate struct {
	AgentName   string      `json:"agent_name"`
	Status      AgentStatus `json:"status"`
	Progress    int         `json:"progress"`
	CurrentStep string      `json:"current_step,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// AnalysisStatus is the terminal/in-flight state of one analysis run.
type AnalysisStatus string

const (
	AnalysisCompleted  AnalysisStatus = "completed"
	AnalysisInProgress AnalysisStatus = "in_progress"
	AnalysisFailed     AnalysisStatus = "failed"
)

// SkillMatch records one skill present on both sides of the comparison.
type SkillMatch struct {
	SkillName     string `json:"skill_name"`
	ResumeLevel   string `json:"resume_level"`
	RequiredLevel string `json:"required_level,omitempty"`
	MatchQuality  string `json:"match_quality"` // "exact", "partial", or "exceeds"
}

// MissingSkill records a job requirement absent from the resume.
type MissingSkill struct {
	SkillName           string `json:"skill_name"`
	Importance          string `json:"importance"` // "must_have" or "nice_to_have"
	DifficultyToAcquire string `json:"difficulty_to_acquire,omitempty"`
}

// JobMatch is the scored comparison of the resume against one job description.
type JobMatch struct {
	JobID                string         `json:"job_id"`
	JobTitle             string         `json:"job_title"`
	Company              string         `json:"company,omitempty"`
	FitScore             float64        `json:"fit_score"`
	SkillMatchScore      float64        `json:"skill_match_score"`
	ExperienceMatchScore float64        `json:"experience_match_score"`
	EducationMatchScore  float64        `json:"education_match_score"`
	MatchingSkills       []SkillMatch   `json:"matching_skills"`
	MissingSkills        []MissingSkill `json:"missing_skills"`
	TransferableSkills   []string       `json:"transferable_skills,omitempty"`
}

// AnalysisResult is the terminal artifact of one analysis run. Both
// notification channels race to deliver it; the orchestrator applies it
// at most once per run.
type AnalysisResult struct {
	SessionID   string         `json:"session_id"`
	AnalysisID  string         `json:"analysis_id,omitempty"`
	Status      AnalysisStatus `json:"status"`
	JobMatches  []JobMatch     `json:"job_matches"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// Push channel message types.
const (
	MsgAgentUpdate      = "agent_update"
	MsgAnalysisComplete = "analysis_complete"
	MsgError            = "error"
	MsgPing             = "ping"
	MsgPong             = "pong"
)

// PushMessage is the envelope for every inbound push-channel message.
// Fields beyond Type are populated depending on the message type.
type PushMessage struct {
	Type string `json:"type"`

	// agent_update fields
	AgentName   string      `json:"agent_name,omitempty"`
	Status      AgentStatus `json:"status,omitempty"`
	Progress    int         `json:"progress,omitempty"`
	CurrentStep string      `json:"current_step,omitempty"`

	// analysis_complete fields
	Success bool `json:"success,omitempty"`

	// error / failure detail
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// AgentUpdate extracts the per-agent status record from an agent_update message.
func (m *PushMessage) AgentUpdate() AgentStatusUpdate {
	return AgentStatusUpdate{
		AgentName:   m.AgentName,
		Status:      m.Status,
		Progress:    m.Progress,
		CurrentStep: m.CurrentStep,
		Error:       m.Error,
	}
}

// Skill is one parsed skill from a resume or job description.
type Skill struct {
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Level    string `json:"level,omitempty"`
}

// ResumeUploadResponse is the backend's summary of a parsed resume.
type ResumeUploadResponse struct {
	ResumeID    string  `json:"resume_id"`
	Status      string  `json:"status"`
	Skills      []Skill `json:"skills"`
	Summary     string  `json:"summary,omitempty"`
	PIIRedacted bool    `json:"pii_redacted"`
}

// JobDescriptionRequest uploads one job description as raw text.
type JobDescriptionRequest struct {
	Text string `json:"text"`
}

// JobUploadResponse is the backend's summary of a parsed job description.
type JobUploadResponse struct {
	JobID            string  `json:"job_id"`
	Status           string  `json:"status"`
	Title            string  `json:"title"`
	Company          string  `json:"company,omitempty"`
	RequiredSkills   []Skill `json:"required_skills"`
	NiceToHaveSkills []Skill `json:"nice_to_have_skills,omitempty"`
}

// AnalyzeRequest asks the backend to start the analysis job.
type AnalyzeRequest struct {
	SessionID string `json:"session_id"`
}

// AnalysisStartedResponse acknowledges a started (or queued) analysis job.
type AnalysisStartedResponse struct {
	AnalysisID               string `json:"analysis_id"`
	Status                   string `json:"status"` // "started" or "queued"
	WebsocketURL             string `json:"websocket_url,omitempty"`
	EstimatedDurationSeconds int    `json:"estimated_duration_seconds,omitempty"`
}

// ResultsResponse is the poll endpoint's view of the analysis run. Status is
// authoritative; JobMatches is populated once the run completes.
type ResultsResponse struct {
	SessionID     string                       `json:"session_id"`
	AnalysisID    string                       `json:"analysis_id,omitempty"`
	Status        AnalysisStatus               `json:"status"`
	StartedAt     *time.Time                   `json:"started_at,omitempty"`
	CompletedAt   *time.Time                   `json:"completed_at,omitempty"`
	JobMatches    []JobMatch                   `json:"job_matches"`
	AgentProgress map[string]AgentStatusUpdate `json:"agent_progress,omitempty"`
	Error         string                       `json:"error,omitempty"`
}

// Result converts a poll response into the terminal artifact.
func (r *ResultsResponse) Result() *AnalysisResult {
	return &AnalysisResult{
		SessionID:   r.SessionID,
		AnalysisID:  r.AnalysisID,
		Status:      r.Status,
		JobMatches:  r.JobMatches,
		CompletedAt: r.CompletedAt,
	}
}

// Recommendation is one improvement suggestion produced by the engine.
type Recommendation struct {
	ID            string   `json:"id"`
	Category      string   `json:"category"`
	Priority      string   `json:"priority"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	ActionItems   []string `json:"action_items,omitempty"`
	EstimatedTime string   `json:"estimated_time,omitempty"`
	Resources     []string `json:"resources,omitempty"`
}

// RecommendationsResponse carries the prioritized recommendation list.
type RecommendationsResponse struct {
	SessionID            string           `json:"session_id"`
	Recommendations      []Recommendation `json:"recommendations"`
	PriorityOrder        []string         `json:"priority_order,omitempty"`
	EstimatedImprovement float64          `json:"estimated_improvement,omitempty"`
}

// InterviewQuestion is one prepared question with a suggested answer.
type InterviewQuestion struct {
	ID              string `json:"id"`
	Question        string `json:"question"`
	Category        string `json:"category"`
	Difficulty      string `json:"difficulty"`
	SuggestedAnswer string `json:"suggested_answer"`
}

// InterviewPrepResponse carries interview preparation material.
type InterviewPrepResponse struct {
	SessionID      string              `json:"session_id"`
	Questions      []InterviewQuestion `json:"questions"`
	TalkingPoints  []string            `json:"talkingPoints,omitempty"`
	QuestionsToAsk []string            `json:"questionsToAsk,omitempty"`
}

// MarketInsightsResponse carries salary/demand/trend data keyed by insight name.
type MarketInsightsResponse struct {
	SessionID string         `json:"session_id"`
	Insights  map[string]any `json:"insights"`
}

// ChatRequest asks a free-form question about the fit analysis.
type ChatRequest struct {
	Message string `json:"message"`
	JobID   string `json:"job_id,omitempty"`
}

// ChatResponse is the engine's answer plus follow-up suggestions.
type ChatResponse struct {
	Response           string   `json:"response"`
	SuggestedQuestions []string `json:"suggested_questions,omitempty"`
}

// ErrorResponse is the backend's standard error body.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
