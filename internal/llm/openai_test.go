package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/comigor/amy/internal/config"
	"github.com/comigor/amy/internal/conversation"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
)

type mockLLM struct {
	resp openai.ChatCompletionResponse
	err  error
	reqs []openai.ChatCompletionRequest
}

func (m *mockLLM) CreateChatCompletion(_ context.Context, r openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.reqs = append(m.reqs, r)
	return m.resp, m.err
}

var sampleHistory = []conversation.Message{
	{Role: conversation.RoleSystem, Content: "be amy"},
	{Role: conversation.RoleUser, Content: "schedule?"},
	{Role: conversation.RoleAssistant, Content: "fetching"},
	{Role: conversation.RoleTool, Content: "[]"},
}

func TestOpenAI_MapsHistory(t *testing.T) {
	client := &mockLLM{resp: openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{
		{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "nothing today"}},
	}}}
	p := NewOpenAI(client, "gpt-4", 1)

	msg, err := p.Complete(context.Background(), sampleHistory)
	require.NoError(t, err)
	require.Equal(t, conversation.Message{Role: conversation.RoleAssistant, Content: "nothing today"}, msg)

	require.Len(t, client.reqs, 1)
	req := client.reqs[0]
	require.Equal(t, "gpt-4", req.Model)
	require.False(t, req.Stream)
	require.Equal(t, float32(1), req.Temperature)
	roles := make([]string, len(req.Messages))
	for i, m := range req.Messages {
		roles[i] = m.Role
	}
	require.Equal(t, []string{"system", "user", "assistant", "user"}, roles)
}

func TestOpenAI_NoChoicesIsMalformed(t *testing.T) {
	p := NewOpenAI(&mockLLM{}, "gpt-4", 1)
	_, err := p.Complete(context.Background(), sampleHistory)
	require.ErrorIs(t, err, conversation.ErrMalformedResult)
}

func TestOpenAI_TransportErrorIsUnavailable(t *testing.T) {
	p := NewOpenAI(&mockLLM{err: errors.New("connection reset")}, "gpt-4", 1)
	_, err := p.Complete(context.Background(), sampleHistory)
	require.ErrorIs(t, err, conversation.ErrProviderUnavailable)
}

func TestOpenAI_AgainstHTTPServer(t *testing.T) {
	var (
		body    map[string]any
		path    string
		authHdr string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		authHdr = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"gpt-4","choices":[{"index":0,"message":{"role":"assistant","content":"Reply to: hello"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	p, err := NewProvider(config.LLMConfig{Provider: "openai", BaseURL: srv.URL + "/v1", APIKey: "sk-test", Model: "gpt-4", Temperature: 0.5})
	require.NoError(t, err)

	msg, err := p.Complete(context.Background(), []conversation.Message{{Role: conversation.RoleUser, Content: "hello"}})
	require.NoError(t, err)
	require.Equal(t, "Reply to: hello", msg.Content)

	require.Equal(t, "/v1/chat/completions", path)
	require.Equal(t, "Bearer sk-test", authHdr)
	require.Equal(t, "gpt-4", body["model"])
	require.Equal(t, 0.5, body["temperature"])
	require.Len(t, body["messages"], 1)
}

func TestOpenAI_HTTPErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded","type":"server_error"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewOpenAI(NewClient(config.LLMConfig{BaseURL: srv.URL, APIKey: "k"}), "gpt-4", 1)
	_, err := p.Complete(context.Background(), sampleHistory)
	require.ErrorIs(t, err, conversation.ErrProviderUnavailable)
}

func TestNewProvider(t *testing.T) {
	_, err := NewProvider(config.LLMConfig{Provider: "openai"})
	require.Error(t, err, "api key is required")

	p, err := NewProvider(config.LLMConfig{Provider: "echo"})
	require.NoError(t, err)
	require.IsType(t, Echo{}, p)

	_, err = NewProvider(config.LLMConfig{Provider: "bogus"})
	require.Error(t, err)
}
