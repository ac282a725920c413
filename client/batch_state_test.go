package client

import "testing"

func TestBatchState_String(t *testing.T) {
	tests := []struct {
		state    BatchState
		expected string
	}{
		{UNINITIALIZED, "UNINITIALIZED"},
		{STARTED, "STARTED"},
		{IN_ENTRY, "IN_ENTRY"},
		{CLOSED, "CLOSED"},
		{BatchState(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.expected {
			t.Errorf("BatchState(%d).String() = %s, want %s", tt.state, got, tt.expected)
		}
	}
}

func TestIsLegalBatchTransition(t *testing.T) {
	tests := []struct {
		from, to BatchState
		legal    bool
	}{
		{UNINITIALIZED, STARTED, true},
		{UNINITIALIZED, CLOSED, true},
		{UNINITIALIZED, IN_ENTRY, false},
		{STARTED, IN_ENTRY, true},
		{STARTED, CLOSED, true},
		{STARTED, UNINITIALIZED, false},
		{IN_ENTRY, STARTED, true},
		{IN_ENTRY, CLOSED, false},
		{IN_ENTRY, IN_ENTRY, false},
		{CLOSED, STARTED, false},
		{CLOSED, CLOSED, false},
	}

	for _, tt := range tests {
		if got := isLegalBatchTransition(tt.from, tt.to); got != tt.legal {
			t.Errorf("%s -> %s: legal = %v, want %v", tt.from, tt.to, got, tt.legal)
		}
	}
}

func TestBatchStateMachine_Transitions(t *testing.T) {
	var seen []BatchTransition
	sm := newBatchStateMachine(func(tr BatchTransition) {
		seen = append(seen, tr)
	})

	if sm.state() != UNINITIALIZED {
		t.Fatalf("expected UNINITIALIZED, got %s", sm.state())
	}

	for _, next := range []BatchState{STARTED, IN_ENTRY, STARTED, CLOSED} {
		if err := sm.transitionTo(next, "test"); err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
	}

	if len(seen) != 4 {
		t.Fatalf("expected 4 transitions, got %d", len(seen))
	}
	if seen[1].From != STARTED || seen[1].To != IN_ENTRY {
		t.Errorf("unexpected transition %+v", seen[1])
	}
	if seen[3].Timestamp.Before(seen[0].Timestamp) {
		t.Error("transition timestamps went backwards")
	}
}

func TestBatchStateMachine_Errors(t *testing.T) {
	sm := newBatchStateMachine(nil)

	err := sm.transitionTo(IN_ENTRY, "PutInt")
	stateErr, ok := err.(*StateError)
	if !ok {
		t.Fatalf("expected *StateError, got %T", err)
	}
	if stateErr.Code != "INVALID_STATE" {
		t.Errorf("expected INVALID_STATE, got %s", stateErr.Code)
	}
	if sm.state() != UNINITIALIZED {
		t.Errorf("failed transition changed state to %s", sm.state())
	}

	if err := sm.require(STARTED, "EndEntry"); err == nil {
		t.Error("expected require to fail")
	}

	sm.transitionTo(CLOSED, "Finish")
	err = sm.require(IN_ENTRY, "PutInt")
	if stateErr, ok := err.(*StateError); !ok || stateErr.Code != "E_BATCH_CLOSED" {
		t.Errorf("expected E_BATCH_CLOSED, got %v", err)
	}
}
