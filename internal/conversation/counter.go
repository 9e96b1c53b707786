package conversation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrCountMismatch is wrapped together with ErrTerminated when a counting
// session receives an unexpected value.
var ErrCountMismatch = errors.New("conversation: count mismatch")

// DefaultCountInstruction is re-issued after every verified count.
const DefaultCountInstruction = "Reply with the next integer and nothing else."

// Counter turns a session into a self-test: every plain reply must be the
// next integer, starting at Start. A verified reply re-issues Instruction as
// a new user message; a wrong one terminates the session.
type Counter struct {
	Start       int
	Instruction string
	// Limit ends the run successfully once it has been verified. Zero counts
	// until the first mismatch.
	Limit int
}

type counter struct {
	cfg  Counter
	next int
}

// WithCounter enables the counting self-test.
func WithCounter(c Counter) Option {
	return func(e *Engine) {
		if c.Start == 0 {
			c.Start = 1
		}
		if c.Instruction == "" {
			c.Instruction = DefaultCountInstruction
		}
		e.counter = &counter{cfg: c, next: c.Start}
	}
}

// Counter returns the next value a counting session expects, or zero when the
// engine has no counter.
func (e *Engine) Counter() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.counter == nil {
		return 0
	}
	return e.counter.next
}

func (e *Engine) counting(context.Context, ...any) bool { return e.counter != nil }

// verifyCount checks reply against the expected value. guardErr is the
// guard's parse error for the reply, reported on whichever transition fires.
func (e *Engine) verifyCount(ctx context.Context, reply string, guardErr error) (string, bool, error) {
	e.mu.RLock()
	want := e.counter.next
	e.mu.RUnlock()

	got, err := strconv.Atoi(strings.TrimSpace(reply))
	if err != nil || got != want {
		cause := fmt.Errorf("%w: expected %d, got %q", ErrCountMismatch, want, reply)
		if ferr := e.fire(ctx, TriggerCountMismatch, step{err: errors.Join(cause, guardErr)}); ferr != nil {
			return "", true, ferr
		}
		return reply, true, fmt.Errorf("%w: %w", ErrTerminated, cause)
	}

	e.mu.Lock()
	e.counter.next++
	e.mu.Unlock()

	if limit := e.counter.cfg.Limit; limit > 0 && got >= limit {
		return reply, true, e.fire(ctx, TriggerCountComplete, step{err: guardErr})
	}
	instruction := Message{Role: RoleUser, Content: e.protocol.UserContent(e.counter.cfg.Instruction)}
	return "", false, e.fire(ctx, TriggerCountVerified, step{appended: &instruction, err: guardErr})
}
