package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/comigor/amy/internal/conversation"
)

// CalendarURL is the resource the simulated model asks for when the user
// mentions their schedule.
const CalendarURL = "http://user-calendar/user1?day=tomorrow"

// Simulated is a deterministic stand-in for the real model that speaks the
// structured envelope protocol.
type Simulated struct{}

func (Simulated) Complete(_ context.Context, history []conversation.Message) (conversation.Message, error) {
	reply := conversation.Envelope{Message: "ok", Type: conversation.TypeDefault, From: "assistant", To: "system"}

	if env, err := conversation.ParseEnvelope(lastContent(history)); err == nil {
		switch {
		case env.Type == conversation.TypeUserMessage && strings.Contains(strings.ToLower(env.Message), "schedule"):
			reply = conversation.Envelope{Message: CalendarURL, Type: conversation.TypeRequestAction, From: "assistant", To: "tool"}
		case env.Type == conversation.TypeHTTPResponse && env.Status == conversation.ActionFailure:
			reply = conversation.Envelope{Message: "I could not reach your calendar right now.", Type: conversation.TypeUserResponse, From: "assistant", To: "user"}
		case env.Type == conversation.TypeHTTPResponse:
			msg := fmt.Sprintf("You have %d events scheduled", countEvents(env.Message))
			reply = conversation.Envelope{Message: msg, Type: conversation.TypeUserResponse, From: "assistant", To: "user"}
		}
	}
	return conversation.Message{Role: conversation.RoleAssistant, Content: reply.Encode()}, nil
}

// countEvents accepts either a bare JSON array or an object with an "events"
// array.
func countEvents(payload string) int {
	var list []json.RawMessage
	if err := json.Unmarshal([]byte(payload), &list); err == nil {
		return len(list)
	}
	var obj struct {
		Events []json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal([]byte(payload), &obj); err == nil {
		return len(obj.Events)
	}
	return 0
}

// Echo replies "Reply to: <last content>".
type Echo struct{}

func (Echo) Complete(_ context.Context, history []conversation.Message) (conversation.Message, error) {
	return conversation.Message{Role: conversation.RoleAssistant, Content: "Reply to: " + lastContent(history)}, nil
}

// Counting replies with the number of user turns seen so far, which is what
// a counting session expects from a well-behaved model.
type Counting struct{}

func (Counting) Complete(_ context.Context, history []conversation.Message) (conversation.Message, error) {
	n := 0
	for _, m := range history {
		if m.Role == conversation.RoleUser {
			n++
		}
	}
	return conversation.Message{Role: conversation.RoleAssistant, Content: strconv.Itoa(n)}, nil
}

// Scripted replays a fixed list of replies, then reports malformed results.
type Scripted struct {
	mu      sync.Mutex
	replies []string
}

// NewScripted returns a provider that answers with replies in order.
func NewScripted(replies ...string) *Scripted {
	return &Scripted{replies: replies}
}

func (s *Scripted) Complete(context.Context, []conversation.Message) (conversation.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.replies) == 0 {
		return conversation.Message{}, fmt.Errorf("%w: script exhausted", conversation.ErrMalformedResult)
	}
	next := s.replies[0]
	s.replies = s.replies[1:]
	return conversation.Message{Role: conversation.RoleAssistant, Content: next}, nil
}

func lastContent(history []conversation.Message) string {
	if len(history) == 0 {
		return ""
	}
	return history[len(history)-1].Content
}
