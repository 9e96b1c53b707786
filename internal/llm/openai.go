package llm

import (
	"context"
	"fmt"

	"github.com/comigor/amy/internal/conversation"
	"github.com/sashabaranov/go-openai"
)

// OpenAI completes conversations through a chat-completions endpoint.
type OpenAI struct {
	client      Client
	model       string
	temperature float32
}

// NewOpenAI wraps client. The request always asks for a single,
// non-streamed choice.
func NewOpenAI(client Client, model string, temperature float32) *OpenAI {
	return &OpenAI{client: client, model: model, temperature: temperature}
}

// Complete implements conversation.CompletionProvider.
func (o *OpenAI) Complete(ctx context.Context, history []conversation.Message) (conversation.Message, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    toOpenAI(history),
		Temperature: o.temperature,
		Stream:      false,
	})
	if err != nil {
		return conversation.Message{}, fmt.Errorf("%w: %w", conversation.ErrProviderUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return conversation.Message{}, fmt.Errorf("%w: response has no choices", conversation.ErrMalformedResult)
	}

	msg := resp.Choices[0].Message
	if msg.Role != "" && msg.Role != openai.ChatMessageRoleAssistant {
		return conversation.Message{}, fmt.Errorf("%w: first choice has role %q", conversation.ErrMalformedResult, msg.Role)
	}
	return conversation.Message{Role: conversation.RoleAssistant, Content: msg.Content}, nil
}

// toOpenAI maps history onto chat messages. Action results travel as user
// messages: the endpoint only accepts tool messages that answer a native
// tool call, and the envelope already records who sent them.
func toOpenAI(history []conversation.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(history))
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case conversation.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case conversation.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}
