package wizard

import "sync"

// Stages of the guided intake flow.
const (
	StageUpload  = 1 // Resume upload
	StageAnalyze = 2 // Job descriptions + analysis
	StageResults = 3 // Fit scores per job
	StageExplore = 4 // Recommendations, insights, chat

	StageMin = StageUpload
	StageMax = StageExplore
)

// StateMachine is the four-stage sequence controller. Stages move by exactly
// one step per transition; the only exception is the externally driven
// auto-advance from StageAnalyze to StageResults when a run completes.
//
// canProceed is never carried across a stage change. It defaults to false on
// entry to a new stage and the owning screen re-derives it from its own
// completion predicate via SetCanProceed.
type StateMachine struct {
	mu sync.Mutex

	stage        int
	canProceed   bool
	completed    map[int]bool
	autoAdvanced bool // One-shot latch for the 2->3 transition
}

// NewStateMachine creates a machine positioned at the first stage.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		stage:     StageMin,
		completed: make(map[int]bool),
	}
}

// Stage returns the current stage.
func (m *StateMachine) Stage() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stage
}

// CanProceed reports whether the current stage's completion predicate holds.
func (m *StateMachine) CanProceed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.canProceed
}

// CompletedStages returns a snapshot of the stages completed so far.
func (m *StateMachine) CompletedStages() map[int]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int]bool, len(m.completed))
	for k, v := range m.completed {
		out[k] = v
	}
	return out
}

// SetStage forces the current stage. canProceed always resets; the caller
// must re-establish it for the new stage.
func (m *StateMachine) SetStage(n int) {
	if n < StageMin || n > StageMax {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stage = n
	m.canProceed = false
}

// SetCanProceed is the sole way a screen tells the machine its completion
// predicate is satisfied. The machine never computes the predicate itself.
func (m *StateMachine) SetCanProceed(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.canProceed = v
}

// RequestAdvance moves forward one stage iff canProceed is true and the
// terminal stage has not been reached. Returns whether a transition happened.
// On success the completed set records the stage being left and canProceed
// resets for the new stage.
func (m *StateMachine) RequestAdvance() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.canProceed || m.stage >= StageMax {
		return false
	}
	m.completed[m.stage] = true
	m.stage++
	m.canProceed = false
	return true
}

// RequestRetreat moves back one stage iff not already at the first stage.
// The entered screen recomputes canProceed itself.
func (m *StateMachine) RequestRetreat() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stage <= StageMin {
		return false
	}
	m.stage--
	m.canProceed = false
	return true
}

// AutoAdvance performs the externally driven 2->3 transition when a run
// completes. Latched: a second invocation for the same machine lifetime is a
// no-op until ResetLatch or Reset, so a replaced result cannot re-trigger the
// transition while already on a later stage.
func (m *StateMachine) AutoAdvance() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.autoAdvanced || m.stage != StageAnalyze {
		return false
	}
	m.autoAdvanced = true
	m.completed[StageAnalyze] = true
	m.stage = StageResults
	m.canProceed = false
	return true
}

// ResetLatch re-arms the auto-advance latch. Called when a new analysis run
// starts so its completion can advance the wizard again.
func (m *StateMachine) ResetLatch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autoAdvanced = false
}

// Reset returns the machine to the first stage with nothing completed.
func (m *StateMachine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stage = StageMin
	m.canProceed = false
	m.completed = make(map[int]bool)
	m.autoAdvanced = false
}
