package actions

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/comigor/amy/internal/conversation"
	"github.com/comigor/amy/internal/logger"
)

// maxBody caps how much of a response is fed back to the model.
const maxBody = 1 << 20

// HTTP fetches the request target with a GET.
type HTTP struct {
	token  string
	client *http.Client
}

// NewHTTP creates an HTTP action provider. A non-empty token is sent as a
// bearer credential.
func NewHTTP(token string, timeout time.Duration) *HTTP {
	return &HTTP{
		token:  token,
		client: &http.Client{Timeout: timeout},
	}
}

// Perform implements conversation.ActionProvider. Non-200 responses are
// failures carrying the status and body; transport errors are returned.
func (h *HTTP) Perform(ctx context.Context, req conversation.ActionRequest) (conversation.ActionResult, error) {
	logger.L.Debug("http action invoked", "target", req.Target)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.Target, nil)
	if err != nil {
		return conversation.ActionResult{}, err
	}
	if h.token != "" {
		httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", h.token))
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return conversation.ActionResult{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return conversation.ActionResult{}, err
	}

	if resp.StatusCode != http.StatusOK {
		return conversation.ActionResult{
			Status:  conversation.ActionFailure,
			Content: fmt.Sprintf("unexpected status code: %d: %s", resp.StatusCode, body),
		}, nil
	}
	return conversation.ActionResult{Status: conversation.ActionSuccess, Content: string(body)}, nil
}
