package client

import "time"

// BatchState represents the phase of a BatchInsertStatement.
type BatchState int

const (
	// UNINITIALIZED accepts field declarations; no SQL has been produced.
	UNINITIALIZED BatchState = iota
	// STARTED has a frozen column list and an emitted header, between entries.
	STARTED
	// IN_ENTRY is inside BeginEntry/EndEntry and accepts values.
	IN_ENTRY
	// CLOSED is terminal, reached through Finish.
	CLOSED
)

// String returns the string representation of the batch state.
func (s BatchState) String() string {
	switch s {
	case UNINITIALIZED:
		return "UNINITIALIZED"
	case STARTED:
		return "STARTED"
	case IN_ENTRY:
		return "IN_ENTRY"
	case CLOSED:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// BatchTransition records one change of batch state.
type BatchTransition struct {
	From      BatchState
	To        BatchState
	Timestamp time.Time
	// Duration is how long the previous state was held.
	Duration time.Duration
}

// batchStateMachine guards batch phase changes. It is not safe for concurrent
// use; a batch belongs to one goroutine.
type batchStateMachine struct {
	current        BatchState
	lastTransition time.Time
	onChange       func(BatchTransition)
}

func newBatchStateMachine(onChange func(BatchTransition)) *batchStateMachine {
	return &batchStateMachine{
		current:        UNINITIALIZED,
		lastTransition: time.Now(),
		onChange:       onChange,
	}
}

// transitionTo moves to newState or returns a StateError naming operation.
//
// Legal transitions:
//   - UNINITIALIZED → STARTED
//   - UNINITIALIZED → CLOSED (finish without any entry)
//   - STARTED → IN_ENTRY
//   - STARTED → CLOSED
//   - IN_ENTRY → STARTED
func (sm *batchStateMachine) transitionTo(newState BatchState, operation string) error {
	if !isLegalBatchTransition(sm.current, newState) {
		if sm.current == CLOSED {
			return ErrBatchClosed(operation)
		}
		return ErrInvalidBatchState(operation, sm.current)
	}

	now := time.Now()
	transition := BatchTransition{
		From:      sm.current,
		To:        newState,
		Timestamp: now,
		Duration:  now.Sub(sm.lastTransition),
	}

	sm.current = newState
	sm.lastTransition = now

	if sm.onChange != nil {
		sm.onChange(transition)
	}
	return nil
}

// require returns a StateError unless the machine is in want.
func (sm *batchStateMachine) require(want BatchState, operation string) error {
	if sm.current == want {
		return nil
	}
	if sm.current == CLOSED {
		return ErrBatchClosed(operation)
	}
	return ErrInvalidBatchState(operation, sm.current)
}

func (sm *batchStateMachine) state() BatchState {
	return sm.current
}

func isLegalBatchTransition(from, to BatchState) bool {
	switch from {
	case UNINITIALIZED:
		return to == STARTED || to == CLOSED
	case STARTED:
		return to == IN_ENTRY || to == CLOSED
	case IN_ENTRY:
		return to == STARTED
	default:
		return false
	}
}
