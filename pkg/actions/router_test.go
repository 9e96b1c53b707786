package actions

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/comigor/amy/internal/config"
	"github.com/comigor/amy/internal/conversation"
	"github.com/stretchr/testify/require"
)

func TestRouter_DispatchesByScheme(t *testing.T) {
	r := NewRouter()
	var hit string
	r.Register("HTTP", conversation.ActionFunc(func(_ context.Context, req conversation.ActionRequest) (conversation.ActionResult, error) {
		hit = req.Target
		return conversation.ActionResult{Status: conversation.ActionSuccess, Content: "ok"}, nil
	}))
	require.Equal(t, []string{"http"}, r.Schemes())

	res, err := r.Perform(context.Background(), conversation.ActionRequest{Target: "http://user-calendar/user1"})
	require.NoError(t, err)
	require.Equal(t, "ok", res.Content)
	require.Equal(t, "http://user-calendar/user1", hit)

	_, err = r.Perform(context.Background(), conversation.ActionRequest{Target: "ftp://x"})
	require.ErrorContains(t, err, "no provider")
	_, err = r.Perform(context.Background(), conversation.ActionRequest{Target: "::bad"})
	require.Error(t, err)
}

func TestNewFromConfig_MockServesCalendar(t *testing.T) {
	r, err := NewFromConfig(context.Background(), config.ActionsConfig{Mode: "mock"})
	require.NoError(t, err)
	require.Equal(t, []string{"http", "https"}, r.Schemes())

	res, err := r.Perform(context.Background(), conversation.ActionRequest{Target: "http://user-calendar/user1?day=tomorrow"})
	require.NoError(t, err)
	require.Equal(t, conversation.ActionSuccess, res.Status)

	var payload struct {
		Events []Event `json:"events"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Content), &payload))
	require.Len(t, payload.Events, 2)
	require.Equal(t, "2am meeting", payload.Events[0].Name)
	require.NoError(t, r.Close())
}

func TestNewFromConfig_Live(t *testing.T) {
	r, err := NewFromConfig(context.Background(), config.ActionsConfig{Mode: "live"})
	require.NoError(t, err)
	p, err := r.Get("https")
	require.NoError(t, err)
	require.IsType(t, &HTTP{}, p)

	_, err = NewFromConfig(context.Background(), config.ActionsConfig{Mode: "psychic"})
	require.Error(t, err)
}
