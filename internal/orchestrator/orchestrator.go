package orchestrator

import (
	"context"
	"sync"
	"time"

	"careerscope/internal/config"
	"careerscope/internal/errors"
	"careerscope/internal/observability"
	"careerscope/internal/state"
	"careerscope/internal/types"
	"careerscope/internal/wizard"

	"github.com/google/uuid"
)

// Backend is the slice of the API client the orchestrator depends on.
type Backend interface {
	CreateSession(ctx context.Context) (*types.Session, error)
	GetSession(ctx context.Context, sessionID string) (*types.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
	StartAnalysis(ctx context.Context, sessionID string) (*types.AnalysisStartedResponse, error)
	FetchResults(ctx context.Context, sessionID string) (*types.ResultsResponse, error)
}

// Orchestrator owns the lifecycle of both notification channels for exactly
// one in-flight analysis job. It reconciles their signals into a single
// progress/result view and guarantees the result is applied at most once per
// run, regardless of delivery order or duplication between the channels.
type Orchestrator struct {
	cfg     *config.Config
	backend Backend
	logger  *errors.Logger
	metrics *observability.Metrics

	sessions *state.SessionStore
	analysis *state.AnalysisStore
	wizard   *wizard.StateMachine

	// startMu serializes StartAnalysis so rapid repeated calls cannot arm
	// two sets of channels.
	startMu sync.Mutex

	mu  sync.Mutex
	run *run
}

// run is the per-analysis unit of channel ownership. A run's identity is the
// stale-event guard: events are only applied while their run is still the
// orchestrator's current one.
type run struct {
	id        string
	sessionID string

	ctx      context.Context
	cancel   context.CancelFunc
	stopPoll context.CancelFunc

	events chan inbound
	push   *pushChannel

	// completed is the one-shot terminal latch shared by both channels.
	// Guarded by Orchestrator.mu.
	completed bool
}

// inbound is the normalized event shape both channels feed into the single
// dispatcher.
type inbound struct {
	source string // "push" or "poll"
	msg    types.PushMessage

	// result is set when the poll source observed terminal completion; the
	// push source delivers completion without a payload.
	result *types.AnalysisResult
}

// msgPollDegraded is an internal event type: the poll channel's transient
// failures exceeded the budget and the condition should become user-visible.
const msgPollDegraded = "poll_degraded"

// New creates an orchestrator over the given stores and state machine.
func New(cfg *config.Config, backend Backend, sessions *state.SessionStore,
	analysis *state.AnalysisStore, machine *wizard.StateMachine,
	logger *errors.Logger, metrics *observability.Metrics) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		backend:  backend,
		logger:   logger,
		metrics:  metrics,
		sessions: sessions,
		analysis: analysis,
		wizard:   machine,
	}
}

// Sessions returns the session store (read-only use by screens).
func (o *Orchestrator) Sessions() *state.SessionStore { return o.sessions }

// Analysis returns the analysis store (read-only use by screens).
func (o *Orchestrator) Analysis() *state.AnalysisStore { return o.analysis }

// Wizard returns the stage machine.
func (o *Orchestrator) Wizard() *wizard.StateMachine { return o.wizard }

// EnsureSession resumes the persisted session if the backend still knows it,
// otherwise creates a fresh one. Both the in-memory session and one restored
// from disk are revalidated; a session the backend dropped is discarded even
// if its local expiry has not passed.
func (o *Orchestrator) EnsureSession(ctx context.Context) (*types.Session, error) {
	sess := o.sessions.Current()
	if sess == nil || sess.Expired() {
		sess = o.sessions.Restore()
	}
	if sess != nil {
		if _, err := o.backend.GetSession(ctx, sess.ID); err == nil {
			o.logger.Info("Resumed existing session", "session_id", sess.ID)
			return sess, nil
		}
		o.logger.Warn("Stored session no longer valid, creating a new one", "session_id", sess.ID)
		o.sessions.Clear()
	}

	sess, err := o.backend.CreateSession(ctx)
	if err != nil {
		return nil, err
	}
	if err := o.sessions.Set(sess); err != nil {
		o.logger.LogError(err, "Failed to persist session")
	}
	o.logger.Info("Created session", "session_id", sess.ID)
	return sess, nil
}

// StartAnalysis starts the remote job and arms both notification channels.
// Preconditions: a session exists, at least one job description exists, and
// no analysis is already running. If the job-start request fails, neither
// channel is armed and the analyzing flag is cleared.
func (o *Orchestrator) StartAnalysis(ctx context.Context) error {
	o.startMu.Lock()
	defer o.startMu.Unlock()

	sess := o.sessions.Current()
	if sess == nil {
		return errors.NewSessionError(errors.ErrCodeSessionNotFound, "no active session", nil)
	}
	if o.analysis.JobCount() == 0 {
		return errors.NewValidationError(errors.ErrCodeNoJobDescriptions,
			"at least one job description is required", nil)
	}

	o.mu.Lock()
	prev := o.run
	if prev != nil && !prev.completed {
		o.mu.Unlock()
		return errors.NewAnalysisError(errors.ErrCodeAnalysisRunning, "analysis already in progress", nil)
	}
	o.mu.Unlock()

	if prev != nil {
		// The finished run kept its push channel open for late agent
		// telemetry; release it before arming a second connection.
		prev.cancel()
	}

	o.analysis.SetError("")
	o.analysis.ClearAgentStatuses()
	o.analysis.SetAnalyzing(true)

	started, err := o.backend.StartAnalysis(ctx, sess.ID)
	if err != nil {
		o.analysis.SetAnalyzing(false)
		o.analysis.SetError(err.Error())
		return errors.NewAnalysisError(errors.ErrCodeStartRejected, "failed to start analysis", err)
	}

	o.logger.Info("Analysis started",
		"analysis_id", started.AnalysisID,
		"status", started.Status,
		"estimated_duration_seconds", started.EstimatedDurationSeconds)

	wsURL := started.WebsocketURL
	if wsURL == "" {
		wsURL = o.cfg.WebsocketURL(sess.ID)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	pollCtx, stopPoll := context.WithCancel(runCtx)
	r := &run{
		id:        uuid.NewString(),
		sessionID: sess.ID,
		ctx:       runCtx,
		cancel:    cancel,
		stopPoll:  stopPoll,
		events:    make(chan inbound, 32),
		push:      newPushChannel(wsURL, o.cfg.Channels.Push, o.logger, o.metrics),
	}

	o.mu.Lock()
	o.run = r
	o.mu.Unlock()
	o.wizard.ResetLatch()

	go o.dispatch(r)

	// A push-channel open failure is transport-level: log it and lean on
	// the poll channel, which remains the source of truth for results.
	if err := r.push.open(runCtx, r.events); err != nil {
		o.logger.LogError(err, "Push channel unavailable, relying on polling",
			"session_id", sess.ID)
	}

	go o.pollLoop(pollCtx, r)

	return nil
}

// Reset tears down any open channels, clears all state, and immediately
// requests a brand-new session. Safe at any point, including mid-analysis:
// the in-flight job is abandoned client-side.
func (o *Orchestrator) Reset(ctx context.Context) error {
	o.mu.Lock()
	r := o.run
	o.run = nil
	o.mu.Unlock()

	if r != nil {
		r.cancel()
	}

	oldID := o.sessions.ID()
	if err := o.sessions.Clear(); err != nil {
		o.logger.LogError(err, "Failed to clear session slot")
	}
	o.analysis.Reset()
	o.wizard.Reset()

	if oldID != "" {
		// Best effort: the backend reaps expired sessions on its own.
		delCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := o.backend.DeleteSession(delCtx, oldID); err != nil {
			o.logger.Debug("Failed to delete old session", "session_id", oldID, "error", err.Error())
		}
		cancel()
	}

	sess, err := o.backend.CreateSession(ctx)
	if err != nil {
		return errors.NewSessionError(errors.ErrCodeBackendRejected,
			"failed to create fresh session after reset", err)
	}
	if err := o.sessions.Set(sess); err != nil {
		o.logger.LogError(err, "Failed to persist session")
	}
	o.logger.Info("Reset complete", "session_id", sess.ID)
	return nil
}

// Disconnect closes only the push channel, leaving polling and all other
// state untouched. Bounds the channel's lifetime independently of the whole
// orchestration lifecycle.
func (o *Orchestrator) Disconnect() {
	o.mu.Lock()
	r := o.run
	o.mu.Unlock()
	if r != nil {
		r.push.Close()
	}
}

// dispatch is the single consumer of both event sources for one run. It is
// the only writer to AnalysisState while the run is live.
func (o *Orchestrator) dispatch(r *run) {
	for {
		select {
		case <-r.ctx.Done():
			return
		case ev := <-r.events:
			o.handle(r, ev)
		}
	}
}

func (o *Orchestrator) handle(r *run, ev inbound) {
	if !o.current(r) {
		return
	}

	switch ev.msg.Type {
	case types.MsgAgentUpdate:
		o.analysis.ApplyAgentUpdate(ev.msg.AgentUpdate())
		o.metrics.AgentUpdateApplied(ev.source)

	case types.MsgAnalysisComplete:
		if !ev.msg.Success {
			msg := ev.msg.Error
			if msg == "" {
				msg = "analysis failed"
			}
			o.fail(r, msg)
			return
		}
		result := ev.result
		if result == nil {
			// The push channel signals completion without a payload; the
			// results resource is the source of truth.
			fetched, err := o.backend.FetchResults(r.ctx, r.sessionID)
			if err != nil {
				o.logger.LogError(err, "Completion signaled but results fetch failed; polling will confirm",
					"session_id", r.sessionID)
				return
			}
			result = fetched.Result()
		}
		o.complete(r, ev.source, result)

	case types.MsgError:
		o.fail(r, ev.msg.Message)

	case msgPollDegraded:
		// Transient-but-persistent transport trouble: surface without
		// tearing anything down. Either channel can still finish the run.
		o.logger.Warn("Poll channel degraded", "session_id", r.sessionID, "detail", ev.msg.Message)
		o.analysis.SetError(ev.msg.Message)
	}
}

// complete applies the terminal result exactly once per run: populate the
// result, clear the analyzing flag, auto-advance the wizard, stop polling.
// The second writer loses and observes a no-op.
func (o *Orchestrator) complete(r *run, source string, result *types.AnalysisResult) {
	o.mu.Lock()
	if o.run != r || r.completed {
		o.mu.Unlock()
		o.metrics.CompletionDuplicate(source)
		o.logger.Debug("Duplicate completion ignored", "source", source, "session_id", r.sessionID)
		return
	}
	r.completed = true
	o.mu.Unlock()

	o.analysis.SetResult(result)
	o.analysis.SetAnalyzing(false)
	o.analysis.SetError("")
	if o.wizard.AutoAdvance() {
		o.metrics.WizardTransition("auto_advance")
	}
	r.stopPoll()

	o.metrics.CompletionApplied(source)
	o.logger.Info("Analysis complete",
		"source", source,
		"session_id", r.sessionID,
		"job_matches", len(result.JobMatches))
}

// fail marks the run terminally failed once: surface the error, clear the
// analyzing flag, tear down both channels.
func (o *Orchestrator) fail(r *run, msg string) {
	o.mu.Lock()
	if o.run != r || r.completed {
		o.mu.Unlock()
		return
	}
	r.completed = true
	o.mu.Unlock()

	o.analysis.SetAnalyzing(false)
	o.analysis.SetError(msg)
	r.cancel()

	o.metrics.RunFailed()
	o.logger.Warn("Analysis failed", "session_id", r.sessionID, "error", msg)
}

// current reports whether r is still the orchestrator's active run.
func (o *Orchestrator) current(r *run) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.run == r
}
