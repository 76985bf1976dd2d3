package agentloop

import (
	"time"
)

// State is a step of the generation state machine.
type State string

const (
	StateInit       State = "INIT"
	StateGenerating State = "GENERATING"
	StateWriting    State = "WRITING"
	StateCompiling  State = "COMPILING"
	StateSucceeded  State = "SUCCEEDED"
	StateCorrecting State = "CORRECTING"
	StateFailed     State = "FAILED"
)

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// EventKind identifies the type of loop event.
type EventKind string

const (
	EventTransition     EventKind = "transition"
	EventCompileFailed  EventKind = "compile_failed"
	EventRepeatedSource EventKind = "repeated_source"
	EventWarning        EventKind = "warning"
)

// Event is delivered to observers as the loop runs.
type Event struct {
	Kind      EventKind              `json:"kind"`
	RunID     string                 `json:"run_id"`
	State     State                  `json:"state"`
	Iteration int                    `json:"iteration"`
	Timestamp time.Time              `json:"timestamp"`
	Err       error                  `json:"-"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Observer receives loop events. It runs on the loop goroutine and must
// not block.
type Observer func(Event)

// emitter stamps events and fans them out to observers.
type emitter struct {
	runID     string
	observers []Observer
}

func (e *emitter) emit(kind EventKind, state State, iteration int, err error, data map[string]interface{}) {
	if len(e.observers) == 0 {
		return
	}
	event := Event{
		Kind:      kind,
		RunID:     e.runID,
		State:     state,
		Iteration: iteration,
		Timestamp: time.Now(),
		Err:       err,
		Data:      data,
	}
	for _, obs := range e.observers {
		obs(event)
	}
}
