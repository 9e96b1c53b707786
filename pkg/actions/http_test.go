package actions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/comigor/amy/internal/conversation"
	"github.com/stretchr/testify/require"
)

func TestHTTP_FetchesTarget(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"events":[]}`))
	}))
	defer srv.Close()

	res, err := NewHTTP("secret", time.Second).Perform(context.Background(), conversation.ActionRequest{Target: srv.URL + "/user1?day=tomorrow"})
	require.NoError(t, err)
	require.Equal(t, conversation.ActionResult{Status: conversation.ActionSuccess, Content: `{"events":[]}`}, res)
	require.Equal(t, "Bearer secret", auth)
}

func TestHTTP_NonOKIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	res, err := NewHTTP("", time.Second).Perform(context.Background(), conversation.ActionRequest{Target: srv.URL})
	require.NoError(t, err)
	require.Equal(t, conversation.ActionFailure, res.Status)
	require.Contains(t, res.Content, "404")
}

func TestHTTP_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTP("", time.Second).Perform(context.Background(), conversation.ActionRequest{Target: url})
	require.Error(t, err)
}
