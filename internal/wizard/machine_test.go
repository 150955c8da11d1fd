package wizard

import "testing"

func TestStateMachineAdvance(t *testing.T) {
	tests := []struct {
		name       string
		canProceed bool
		wantMoved  bool
		wantStage  int
	}{
		{
			name:       "advance allowed when gate is open",
			canProceed: true,
			wantMoved:  true,
			wantStage:  StageAnalyze,
		},
		{
			name:       "advance refused when gate is closed",
			canProceed: false,
			wantMoved:  false,
			wantStage:  StageUpload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewStateMachine()
			m.SetCanProceed(tt.canProceed)

			moved := m.RequestAdvance()
			if moved != tt.wantMoved {
				t.Errorf("RequestAdvance() = %v, want %v", moved, tt.wantMoved)
			}
			if m.Stage() != tt.wantStage {
				t.Errorf("Stage() = %d, want %d", m.Stage(), tt.wantStage)
			}
		})
	}
}

func TestStateMachineAdvanceResetsGate(t *testing.T) {
	m := NewStateMachine()
	m.SetCanProceed(true)
	if !m.RequestAdvance() {
		t.Fatal("expected advance to succeed")
	}
	if m.CanProceed() {
		t.Error("gate should close after a successful advance")
	}
	if m.RequestAdvance() {
		t.Error("second advance should be refused until the gate reopens")
	}
}

func TestStateMachineRetreat(t *testing.T) {
	m := NewStateMachine()
	if m.RequestRetreat() {
		t.Error("retreat from the first stage should be refused")
	}

	m.SetCanProceed(true)
	m.RequestAdvance()
	if !m.RequestRetreat() {
		t.Error("retreat from the second stage should succeed")
	}
	if m.Stage() != StageUpload {
		t.Errorf("Stage() = %d, want %d", m.Stage(), StageUpload)
	}
}

func TestStateMachineAdvanceStopsAtLastStage(t *testing.T) {
	m := NewStateMachine()
	for i := 0; i < 3; i++ {
		m.SetCanProceed(true)
		if !m.RequestAdvance() {
			t.Fatal("expected advance to succeed")
		}
	}
	if m.Stage() != StageExplore {
		t.Fatalf("Stage() = %d, want %d", m.Stage(), StageExplore)
	}

	m.SetCanProceed(true)
	if m.RequestAdvance() {
		t.Error("advance past the last stage should be refused")
	}
	if m.Stage() != StageExplore {
		t.Errorf("Stage() = %d, want %d", m.Stage(), StageExplore)
	}
}

func TestAutoAdvance(t *testing.T) {
	t.Run("fires once from the analyze stage", func(t *testing.T) {
		m := NewStateMachine()
		m.SetStage(StageAnalyze)
		m.ResetLatch()

		if !m.AutoAdvance() {
			t.Fatal("first AutoAdvance should fire")
		}
		if m.Stage() != StageResults {
			t.Errorf("Stage() = %d, want %d", m.Stage(), StageResults)
		}
		if m.AutoAdvance() {
			t.Error("second AutoAdvance should be a no-op until the latch is re-armed")
		}
	})

	t.Run("ignored outside the analyze stage", func(t *testing.T) {
		m := NewStateMachine()
		m.ResetLatch()
		if m.AutoAdvance() {
			t.Error("AutoAdvance from the upload stage should be a no-op")
		}
		if m.Stage() != StageUpload {
			t.Errorf("Stage() = %d, want %d", m.Stage(), StageUpload)
		}
	})

	t.Run("re-arms per run", func(t *testing.T) {
		m := NewStateMachine()
		m.SetStage(StageAnalyze)
		m.ResetLatch()
		if !m.AutoAdvance() {
			t.Fatal("first run should auto-advance")
		}

		m.SetStage(StageAnalyze)
		if m.AutoAdvance() {
			t.Error("stale latch should not fire for a new run before ResetLatch")
		}
		m.ResetLatch()
		if !m.AutoAdvance() {
			t.Error("re-armed latch should fire")
		}
	})
}

func TestStateMachineReset(t *testing.T) {
	m := NewStateMachine()
	m.SetCanProceed(true)
	m.RequestAdvance()
	m.SetCanProceed(true)
	m.RequestAdvance()

	m.Reset()
	if m.Stage() != StageUpload {
		t.Errorf("Stage() = %d, want %d", m.Stage(), StageUpload)
	}
	if m.CanProceed() {
		t.Error("gate should be closed after reset")
	}
	if len(m.CompletedStages()) != 0 {
		t.Error("completed stages should be cleared after reset")
	}
}

func TestSetStageIgnoresOutOfRange(t *testing.T) {
	m := NewStateMachine()
	m.SetStage(StageResults)

	m.SetStage(0)
	if m.Stage() != StageResults {
		t.Errorf("Stage() = %d, want unchanged %d", m.Stage(), StageResults)
	}
	m.SetStage(9)
	if m.Stage() != StageResults {
		t.Errorf("Stage() = %d, want unchanged %d", m.Stage(), StageResults)
	}
}
