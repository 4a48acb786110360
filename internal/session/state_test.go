package session

import (
	"testing"

	"github.com/localdictate/engine/internal/config"
)

func TestStateMachineInitialStateIsInactive(t *testing.T) {
	sm := NewStateMachine()
	if got := sm.Current().State; got != StateInactive {
		t.Fatalf("initial state = %v, want Inactive", got)
	}
}

func TestStateMachineValidTransitionSequence(t *testing.T) {
	sm := NewStateMachine()

	sequence := []State{StatePreparing, StateListening, StateCapturing, StateTranscribing, StateDelivering, StateListening}
	for _, next := range sequence {
		if !sm.Transition(Snapshot{State: next, Mode: config.ModeDictate}) {
			t.Fatalf("transition to %v rejected, current=%v", next, sm.Current().State)
		}
	}

	if got := sm.Current().State; got != StateListening {
		t.Fatalf("final state = %v, want Listening", got)
	}
}

func TestStateMachineRejectsInvalidTransition(t *testing.T) {
	sm := NewStateMachine()
	// Inactive cannot jump straight to Capturing.
	if sm.Transition(Snapshot{State: StateCapturing}) {
		t.Fatal("expected transition Inactive->Capturing to be rejected")
	}
	if got := sm.Current().State; got != StateInactive {
		t.Fatalf("state changed after rejected transition: %v", got)
	}
}

func TestStateMachineAnyStateCanShutdownToInactive(t *testing.T) {
	for _, from := range []State{StatePreparing, StateListening, StateCapturing, StateTranscribing, StateProcessing, StateDelivering} {
		sm := &StateMachine{current: Snapshot{State: from}}
		if !sm.Transition(Snapshot{State: StateInactive}) {
			t.Errorf("expected %v->Inactive to be accepted", from)
		}
	}
}

func TestStateMachineProofreadPathGoesThroughProcessing(t *testing.T) {
	sm := NewStateMachine()
	for _, next := range []State{StatePreparing, StateListening, StateCapturing, StateTranscribing} {
		if !sm.Transition(Snapshot{State: next, Mode: config.ModeProofread}) {
			t.Fatalf("transition to %v rejected", next)
		}
	}
	if !sm.Transition(Snapshot{State: StateProcessing, Mode: config.ModeProofread}) {
		t.Fatal("expected Transcribing->Processing to be accepted for proofread mode")
	}
	if !sm.Transition(Snapshot{State: StateDelivering, Mode: config.ModeProofread}) {
		t.Fatal("expected Processing->Delivering to be accepted")
	}
}

func TestStateMachineAbortReturnsDirectlyToListening(t *testing.T) {
	sm := NewStateMachine()
	for _, next := range []State{StatePreparing, StateListening, StateCapturing} {
		sm.Transition(Snapshot{State: next})
	}
	if !sm.Transition(Snapshot{State: StateListening}) {
		t.Fatal("expected Capturing->Listening (abort) to be accepted")
	}
}

func TestStateMachineSuppressesDuplicateSnapshot(t *testing.T) {
	sm := NewStateMachine()
	sm.Transition(Snapshot{State: StatePreparing})
	sm.Transition(Snapshot{State: StateListening})

	if sm.Transition(Snapshot{State: StateListening}) {
		t.Fatal("expected a snapshot identical to the current one to be suppressed")
	}
}

func TestStateMachineNotifiesListenersOnAcceptedTransition(t *testing.T) {
	sm := NewStateMachine()
	var gotOld, gotNew Snapshot
	calls := 0
	sm.AddListener(func(old, new Snapshot) {
		calls++
		gotOld, gotNew = old, new
	})

	sm.Transition(Snapshot{State: StatePreparing})

	if calls != 1 {
		t.Fatalf("listener called %d times, want 1", calls)
	}
	if gotOld.State != StateInactive || gotNew.State != StatePreparing {
		t.Errorf("listener saw (%v -> %v), want (Inactive -> Preparing)", gotOld.State, gotNew.State)
	}
}

func TestStateMachineDoesNotNotifyListenersOnRejectedTransition(t *testing.T) {
	sm := NewStateMachine()
	calls := 0
	sm.AddListener(func(old, new Snapshot) { calls++ })

	sm.Transition(Snapshot{State: StateCapturing})

	if calls != 0 {
		t.Fatalf("listener called %d times on rejected transition, want 0", calls)
	}
}

func TestStateMachineIsActive(t *testing.T) {
	sm := NewStateMachine()
	if sm.IsActive() {
		t.Fatal("Inactive should not report IsActive")
	}

	sm.Transition(Snapshot{State: StatePreparing})
	if !sm.IsActive() {
		t.Fatal("Preparing should report IsActive")
	}

	sm.Transition(Snapshot{State: StateListening})
	if sm.IsActive() {
		t.Fatal("Listening should not report IsActive")
	}

	sm.Transition(Snapshot{State: StateCapturing})
	if !sm.IsActive() {
		t.Fatal("Capturing should report IsActive")
	}
}

func TestSnapshotEqualComparesStateAndMode(t *testing.T) {
	a := Snapshot{State: StateCapturing, Mode: config.ModeDictate}
	b := Snapshot{State: StateCapturing, Mode: config.ModeDictate}
	c := Snapshot{State: StateCapturing, Mode: config.ModeLetter}

	if !a.Equal(b) {
		t.Error("expected identical state+mode snapshots to be Equal")
	}
	if a.Equal(c) {
		t.Error("expected snapshots with different modes to not be Equal")
	}
}
