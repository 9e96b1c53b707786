package conversation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Protocol is the envelope schema shared by the engine and the model. It owns
// the trigger guard, so swapping protocols swaps how action requests are
// recognized.
type Protocol interface {
	// UserContent wraps caller text into the schema's user message form.
	UserContent(text string) string
	// ActionRequest is the trigger guard. It is a pure function of the message
	// content. Content the protocol cannot interpret yields false together
	// with an error wrapping ErrGuardEvaluation.
	ActionRequest(m Message) (ActionRequest, bool, error)
	// ToolContent encodes an action result as message content.
	ToolContent(res ActionResult) string
	// DefaultContent is substituted for a failed completion. It never
	// satisfies the trigger guard.
	DefaultContent() string
	// Reply extracts the user-visible text of a completion.
	Reply(m Message) string
}

// MessageType is the discriminant of a structured envelope.
type MessageType string

const (
	TypeUserMessage     MessageType = "user_message"
	TypeRequestAction   MessageType = "request_action"
	TypeHTTPResponse    MessageType = "http_response"
	TypeUserResponse    MessageType = "user_response"
	TypeDefault         MessageType = "default"
	TypeSelfTalk        MessageType = "self_talk"
	TypeActionRequested MessageType = "action_requested"
)

// Envelope is the JSON shape carried in Message.Content by the structured
// protocol.
type Envelope struct {
	Message string       `json:"message"`
	Type    MessageType  `json:"message_type"`
	From    string       `json:"from"`
	To      string       `json:"to"`
	Status  ActionStatus `json:"status,omitempty"`
}

// Encode returns the JSON form of e.
func (e Envelope) Encode() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// ParseEnvelope decodes content as an envelope. A non-string "message" field
// (models sometimes inline JSON) is kept as its raw JSON text.
func ParseEnvelope(content string) (Envelope, error) {
	var raw struct {
		Message json.RawMessage `json:"message"`
		Type    MessageType     `json:"message_type"`
		From    string          `json:"from"`
		To      string          `json:"to"`
		Status  ActionStatus    `json:"status"`
	}
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "{") {
		return Envelope{}, fmt.Errorf("%w: not a JSON object", ErrGuardEvaluation)
	}
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrGuardEvaluation, err)
	}
	env := Envelope{Type: raw.Type, From: raw.From, To: raw.To, Status: raw.Status}
	if len(raw.Message) > 0 && !bytes.Equal(raw.Message, []byte("null")) {
		if err := json.Unmarshal(raw.Message, &env.Message); err != nil {
			env.Message = string(raw.Message)
		}
	}
	return env, nil
}

// Structured is the canonical protocol: action requests carry
// message_type "request_action" and name their target in "message".
type Structured struct{}

func (Structured) UserContent(text string) string {
	return Envelope{Message: text, Type: TypeUserMessage, From: string(RoleUser), To: string(RoleAssistant)}.Encode()
}

func (Structured) ActionRequest(m Message) (ActionRequest, bool, error) {
	env, err := ParseEnvelope(m.Content)
	if err != nil {
		return ActionRequest{}, false, err
	}
	if env.Type != TypeRequestAction {
		return ActionRequest{}, false, nil
	}
	return ActionRequest{Target: strings.TrimSpace(env.Message), Message: m}, true, nil
}

func (Structured) ToolContent(res ActionResult) string {
	return Envelope{
		Message: res.Content,
		Type:    TypeHTTPResponse,
		From:    string(RoleTool),
		To:      string(RoleAssistant),
		Status:  res.Status,
	}.Encode()
}

func (Structured) DefaultContent() string {
	return Envelope{Type: TypeDefault, From: string(RoleAssistant), To: string(RoleUser)}.Encode()
}

func (Structured) Reply(m Message) string {
	env, err := ParseEnvelope(m.Content)
	if err != nil {
		return m.Content
	}
	return env.Message
}

// DefaultSentinel is the marker recognized by a zero Sentinel.
const DefaultSentinel = "TRIGGER"

// Sentinel treats any content containing Marker as an action request whose
// target is the remaining text.
type Sentinel struct {
	Marker string
}

func (s Sentinel) marker() string {
	if s.Marker == "" {
		return DefaultSentinel
	}
	return s.Marker
}

func (Sentinel) UserContent(text string) string { return text }

func (s Sentinel) ActionRequest(m Message) (ActionRequest, bool, error) {
	if !strings.Contains(m.Content, s.marker()) {
		return ActionRequest{}, false, nil
	}
	target := strings.Join(strings.Fields(strings.Replace(m.Content, s.marker(), "", 1)), " ")
	return ActionRequest{Target: target, Message: m}, true, nil
}

func (Sentinel) ToolContent(res ActionResult) string {
	if res.Status == ActionFailure {
		return "action failed: " + res.Content
	}
	return res.Content
}

func (Sentinel) DefaultContent() string { return "" }

func (Sentinel) Reply(m Message) string { return m.Content }
