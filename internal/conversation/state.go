package conversation

import "github.com/qmuntal/stateless"

// State is a node of the conversation state machine.
type State string

const (
	StateAwaitingUserMessage  State = "AwaitingUserMessage"
	StateAwaitingCompletion   State = "AwaitingCompletion"
	StateEvaluatingCompletion State = "EvaluatingCompletion" // transient, never observed at rest
	StateAwaitingActionResult State = "AwaitingActionResult"
	StateTerminated           State = "Terminated"
)

// IsTerminal reports whether no further input is accepted.
func (s State) IsTerminal() bool { return s == StateTerminated }

func (s State) String() string { return string(s) }

// Trigger is an event that moves the machine between states.
type Trigger string

const (
	TriggerUserMessage        Trigger = "UserMessage"
	TriggerCompletionReceived Trigger = "CompletionReceived"
	TriggerActionRequested    Trigger = "ActionRequested"
	TriggerReplyReady         Trigger = "ReplyReady"
	TriggerActionCompleted    Trigger = "ActionCompleted"
	TriggerActionLimitReached Trigger = "ActionLimitReached"
	TriggerCountVerified      Trigger = "CountVerified"
	TriggerCountComplete      Trigger = "CountComplete"
	TriggerCountMismatch      Trigger = "CountMismatch"
	TriggerInterrupted        Trigger = "Interrupted" // deadline or cancellation during a provider call
)

func (t Trigger) String() string { return string(t) }

// newMachine builds the transition table. Every transition that appends to
// history receives the message as its single firing argument; onAppend
// stores it.
func newMachine(onAppend stateless.ActionFunc, counting stateless.GuardFunc) *stateless.StateMachine {
	fsm := stateless.NewStateMachine(StateAwaitingUserMessage)

	fsm.Configure(StateAwaitingUserMessage).
		Permit(TriggerUserMessage, StateAwaitingCompletion)

	fsm.Configure(StateAwaitingCompletion).
		OnEntryFrom(TriggerUserMessage, onAppend).
		OnEntryFrom(TriggerActionCompleted, onAppend).
		OnEntryFrom(TriggerCountVerified, onAppend).
		Permit(TriggerCompletionReceived, StateEvaluatingCompletion).
		Permit(TriggerInterrupted, StateAwaitingUserMessage)

	fsm.Configure(StateEvaluatingCompletion).
		OnEntryFrom(TriggerCompletionReceived, onAppend).
		Permit(TriggerActionRequested, StateAwaitingActionResult).
		Permit(TriggerReplyReady, StateAwaitingUserMessage).
		Permit(TriggerActionLimitReached, StateAwaitingUserMessage).
		Permit(TriggerCountVerified, StateAwaitingCompletion, counting).
		Permit(TriggerCountComplete, StateAwaitingUserMessage, counting).
		Permit(TriggerCountMismatch, StateTerminated, counting)

	fsm.Configure(StateAwaitingActionResult).
		Permit(TriggerActionCompleted, StateAwaitingCompletion).
		Permit(TriggerInterrupted, StateAwaitingUserMessage)

	fsm.Configure(StateTerminated)

	return fsm
}

func appendedArg(args []any) (Message, bool) {
	if len(args) == 0 {
		return Message{}, false
	}
	m, ok := args[0].(Message)
	return m, ok
}
