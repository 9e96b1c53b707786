package conversation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qmuntal/stateless"
)

// DefaultMaxActionRounds bounds how many actions a single user message may
// trigger before the engine gives the turn back to the caller.
const DefaultMaxActionRounds = 5

// Engine drives one conversation session. It is safe to call its accessors
// from any goroutine; Send rejects concurrent input with ErrBusy.
type Engine struct {
	completion      CompletionProvider
	action          ActionProvider
	protocol        Protocol
	observers       []Observer
	sessionID       string
	systemPrompt    string
	maxActionRounds int
	turnTimeout     time.Duration
	counter         *counter

	turn sync.Mutex // held for the whole of Send

	mu      sync.RWMutex // guards history and counter
	history []Message

	pending *ActionRequest // owned by the goroutine holding turn
	fsm     *stateless.StateMachine
}

// Option configures an Engine.
type Option func(*Engine)

// WithSystemPrompt seeds history with a single system message.
func WithSystemPrompt(prompt string) Option {
	return func(e *Engine) { e.systemPrompt = prompt }
}

// WithProtocol selects the envelope schema. Structured is the default.
func WithProtocol(p Protocol) Option {
	return func(e *Engine) { e.protocol = p }
}

// WithObserver registers a callback invoked after every transition.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

// WithSessionID overrides the generated session identifier.
func WithSessionID(id string) Option {
	return func(e *Engine) { e.sessionID = id }
}

// WithMaxActionRounds caps actions per user message; n <= 0 removes the cap.
func WithMaxActionRounds(n int) Option {
	return func(e *Engine) { e.maxActionRounds = n }
}

// WithTurnTimeout bounds the provider calls made on behalf of one user
// message. Zero disables the deadline.
func WithTurnTimeout(d time.Duration) Option {
	return func(e *Engine) { e.turnTimeout = d }
}

// New creates an engine in StateAwaitingUserMessage.
func New(completion CompletionProvider, action ActionProvider, opts ...Option) *Engine {
	e := &Engine{
		completion:      completion,
		action:          action,
		protocol:        Structured{},
		maxActionRounds: DefaultMaxActionRounds,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.sessionID == "" {
		e.sessionID = uuid.NewString()
	}
	if e.systemPrompt != "" {
		e.history = append(e.history, Message{Role: RoleSystem, Content: e.systemPrompt})
	}
	e.fsm = newMachine(e.onAppend, e.counting)
	return e
}

// SessionID returns the session identifier.
func (e *Engine) SessionID() string { return e.sessionID }

// State returns the current state.
func (e *Engine) State() State {
	return e.fsm.MustState().(State)
}

// History returns a copy of the accumulated messages, oldest first.
func (e *Engine) History() []Message {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.history)
}

// Send delivers one user message and runs the machine until it rests again.
// The returned string is the reply surfaced to the caller.
//
// Provider failures never surface here; they are folded into history and
// reported to observers. Send returns ErrBusy while another Send is running,
// ErrTerminated after the session ended, ErrTimeout when the turn deadline
// expires mid-call and ErrActionLimit when the model keeps requesting actions.
func (e *Engine) Send(ctx context.Context, content string) (string, error) {
	if !e.turn.TryLock() {
		return "", ErrBusy
	}
	defer e.turn.Unlock()

	switch st := e.State(); st {
	case StateAwaitingUserMessage:
	case StateTerminated:
		return "", ErrTerminated
	default:
		return "", fmt.Errorf("%w: in state %s", ErrBusy, st)
	}

	if e.turnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.turnTimeout)
		defer cancel()
	}

	user := Message{Role: RoleUser, Content: content}
	if err := e.fire(ctx, TriggerUserMessage, step{appended: &user}); err != nil {
		return "", err
	}
	return e.run(ctx)
}

// step carries what a transition contributes besides its trigger.
type step struct {
	appended *Message
	err      error
	elapsed  time.Duration
}

func (e *Engine) run(ctx context.Context) (string, error) {
	rounds := 0
	// absorbed is the provider error behind the completion being evaluated.
	var absorbed error
	for {
		switch st := e.State(); st {
		case StateAwaitingCompletion:
			var err error
			if absorbed, err = e.awaitCompletion(ctx); err != nil {
				return "", err
			}
		case StateEvaluatingCompletion:
			reply, done, err := e.evaluate(ctx, &rounds, absorbed)
			if done || err != nil {
				return reply, err
			}
		case StateAwaitingActionResult:
			if err := e.awaitAction(ctx); err != nil {
				return "", err
			}
		default:
			return "", fmt.Errorf("conversation: driver reached unexpected state %s", st)
		}
	}
}

// awaitCompletion appends the next assistant message. It returns the provider
// error absorbed by substituting DefaultContent, if any.
func (e *Engine) awaitCompletion(ctx context.Context) (absorbed error, err error) {
	if err := ctx.Err(); err != nil {
		return nil, e.interrupt(ctx, err)
	}

	start := time.Now()
	msg, err := e.complete(ctx)
	elapsed := time.Since(start)
	if err != nil && ctx.Err() != nil {
		return nil, e.interrupt(ctx, ctx.Err())
	}
	if err == nil {
		switch msg.Role {
		case RoleAssistant:
		case "":
			msg.Role = RoleAssistant
		default:
			err = fmt.Errorf("%w: completion has role %q", ErrMalformedResult, msg.Role)
		}
	}
	if err != nil {
		msg = Message{Role: RoleAssistant, Content: e.protocol.DefaultContent()}
	}
	return err, e.fire(ctx, TriggerCompletionReceived, step{appended: &msg, err: err, elapsed: elapsed})
}

func (e *Engine) complete(ctx context.Context) (Message, error) {
	if e.completion == nil {
		return Message{}, fmt.Errorf("%w: no completion provider configured", ErrProviderUnavailable)
	}
	msg, err := e.completion.Complete(ctx, e.History())
	return msg, classify(err)
}

// evaluate applies the trigger guard to the message just appended. done is
// true when the machine came to rest and reply should reach the caller. A
// substituted completion (absorbed != nil) always ends the turn, and is never
// checked by the counter.
func (e *Engine) evaluate(ctx context.Context, rounds *int, absorbed error) (reply string, done bool, err error) {
	last := e.last()
	req, isAction, guardErr := e.protocol.ActionRequest(last)

	if isAction {
		if e.maxActionRounds > 0 && *rounds >= e.maxActionRounds {
			if err := e.fire(ctx, TriggerActionLimitReached, step{err: ErrActionLimit}); err != nil {
				return "", true, err
			}
			return e.protocol.Reply(last), true, ErrActionLimit
		}
		*rounds++
		e.pending = &req
		return "", false, e.fire(ctx, TriggerActionRequested, step{})
	}

	reply = e.protocol.Reply(last)
	if absorbed != nil {
		return reply, true, e.fire(ctx, TriggerReplyReady, step{err: absorbed})
	}
	if e.counter != nil {
		return e.verifyCount(ctx, reply, guardErr)
	}
	return reply, true, e.fire(ctx, TriggerReplyReady, step{err: guardErr})
}

func (e *Engine) awaitAction(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return e.interrupt(ctx, err)
	}
	req := *e.pending

	start := time.Now()
	res, err := e.perform(ctx, req)
	elapsed := time.Since(start)
	if err != nil && ctx.Err() != nil {
		return e.interrupt(ctx, ctx.Err())
	}
	if err == nil && res.Status != ActionSuccess && res.Status != ActionFailure {
		err = fmt.Errorf("%w: action status %q", ErrMalformedResult, res.Status)
		res.Status = ActionFailure
	}
	if err != nil && res.Status != ActionFailure {
		res = ActionResult{Status: ActionFailure, Content: err.Error()}
	}

	e.pending = nil
	msg := Message{Role: RoleTool, Content: e.protocol.ToolContent(res)}
	return e.fire(ctx, TriggerActionCompleted, step{appended: &msg, err: err, elapsed: elapsed})
}

func (e *Engine) perform(ctx context.Context, req ActionRequest) (ActionResult, error) {
	if e.action == nil {
		return ActionResult{}, fmt.Errorf("%w: no action provider configured for %q", ErrProviderUnavailable, req.Target)
	}
	res, err := e.action.Perform(ctx, req)
	return res, classify(err)
}

// interrupt abandons the outstanding call and returns the engine to idle.
func (e *Engine) interrupt(ctx context.Context, cause error) error {
	e.pending = nil
	if err := e.fire(ctx, TriggerInterrupted, step{err: cause}); err != nil {
		return err
	}
	if errors.Is(cause, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, cause)
	}
	return cause
}

func (e *Engine) fire(ctx context.Context, trigger Trigger, s step) error {
	from := e.State()
	var args []any
	if s.appended != nil {
		args = append(args, *s.appended)
	}
	// Transitions must complete even when the turn context has expired.
	if err := e.fsm.FireCtx(context.WithoutCancel(ctx), trigger, args...); err != nil {
		return fmt.Errorf("conversation: fire %s in %s: %w", trigger, from, err)
	}
	e.notify(Transition{
		SessionID:  e.sessionID,
		From:       from,
		To:         e.State(),
		Trigger:    trigger,
		Appended:   s.appended,
		Err:        s.err,
		Elapsed:    s.elapsed,
		HistoryLen: e.historyLen(),
	})
	return nil
}

func (e *Engine) onAppend(_ context.Context, args ...any) error {
	m, ok := appendedArg(args)
	if !ok {
		return errors.New("conversation: transition fired without a message")
	}
	e.mu.Lock()
	e.history = append(e.history, m)
	e.mu.Unlock()
	return nil
}

func (e *Engine) last() Message {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if len(e.history) == 0 {
		return Message{}
	}
	return e.history[len(e.history)-1]
}

func (e *Engine) historyLen() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.history)
}

// classify makes sure every provider error matches one of the provider
// sentinels.
func classify(err error) error {
	if err == nil || errors.Is(err, ErrProviderUnavailable) || errors.Is(err, ErrMalformedResult) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
}
