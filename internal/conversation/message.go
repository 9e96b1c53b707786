package conversation

import "context"

// Role identifies who authored a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one turn of the conversation. Content is opaque to the engine
// except where the active Protocol inspects it.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ActionStatus reports the outcome of an action.
type ActionStatus string

const (
	ActionSuccess ActionStatus = "success"
	ActionFailure ActionStatus = "failure"
)

// ActionRequest is derived from an assistant message that asked for an action.
type ActionRequest struct {
	// Target names the resource to act on, e.g. a URL.
	Target string
	// Message is the assistant message that triggered the request.
	Message Message
}

// ActionResult is what an ActionProvider hands back.
type ActionResult struct {
	Status  ActionStatus
	Content string
}

// CompletionProvider turns a history snapshot into the next assistant message.
type CompletionProvider interface {
	Complete(ctx context.Context, history []Message) (Message, error)
}

// ActionProvider performs a side-effecting call on behalf of the model.
type ActionProvider interface {
	Perform(ctx context.Context, req ActionRequest) (ActionResult, error)
}

// CompletionFunc adapts a function to CompletionProvider.
type CompletionFunc func(ctx context.Context, history []Message) (Message, error)

func (f CompletionFunc) Complete(ctx context.Context, history []Message) (Message, error) {
	return f(ctx, history)
}

// ActionFunc adapts a function to ActionProvider.
type ActionFunc func(ctx context.Context, req ActionRequest) (ActionResult, error)

func (f ActionFunc) Perform(ctx context.Context, req ActionRequest) (ActionResult, error) {
	return f(ctx, req)
}
