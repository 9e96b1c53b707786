package conversation

import "errors"

var (
	// ErrBusy is returned when a user message arrives while a provider call is
	// outstanding. History is left untouched.
	ErrBusy = errors.New("conversation: engine is busy")
	// ErrTerminated is returned once a session has reached the Terminated state.
	ErrTerminated = errors.New("conversation: session terminated")
	// ErrProviderUnavailable marks transport failures reaching a provider.
	ErrProviderUnavailable = errors.New("conversation: provider unavailable")
	// ErrMalformedResult marks provider output that cannot become a message.
	ErrMalformedResult = errors.New("conversation: malformed provider result")
	// ErrGuardEvaluation marks content the trigger guard could not interpret.
	ErrGuardEvaluation = errors.New("conversation: content does not match envelope")
	// ErrTimeout is returned when the turn deadline expires mid-call.
	ErrTimeout = errors.New("conversation: turn timed out")
	// ErrActionLimit is returned when a single turn requested too many actions.
	ErrActionLimit = errors.New("conversation: action round limit reached")
)
