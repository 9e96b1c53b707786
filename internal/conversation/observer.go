package conversation

import "time"

// Transition describes one completed state change.
type Transition struct {
	SessionID string
	From      State
	To        State
	Trigger   Trigger
	// Appended is the message the transition added to history, if any.
	Appended *Message
	// Err is a provider or guard error absorbed by the transition.
	Err error
	// Elapsed is the duration of the provider call that produced the event.
	Elapsed    time.Duration
	HistoryLen int
}

// Observer is notified synchronously, on the goroutine running Send, after
// every transition.
type Observer func(Transition)

func (e *Engine) notify(t Transition) {
	for _, o := range e.observers {
		o(t)
	}
}
