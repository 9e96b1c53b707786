package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/comigor/amy/internal/config"
	"github.com/comigor/amy/internal/conversation"
	"github.com/comigor/amy/internal/llm"
	"github.com/comigor/amy/pkg/actions"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Chdir(t.TempDir())
	c, err := config.LoadFile("")
	require.NoError(t, err)
	return c
}

func post(t *testing.T, url, body string) (int, string) {
	t.Helper()
	resp, err := http.Post(url, "text/plain", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func TestProtocolFor(t *testing.T) {
	p, err := protocolFor(config.EngineConfig{Protocol: "structured"})
	require.NoError(t, err)
	require.IsType(t, conversation.Structured{}, p)

	p, err = protocolFor(config.EngineConfig{Protocol: "Sentinel", Sentinel: "DO"})
	require.NoError(t, err)
	require.Equal(t, conversation.Sentinel{Marker: "DO"}, p)

	_, err = protocolFor(config.EngineConfig{Protocol: "xml"})
	require.Error(t, err)
}

func TestDemo_SimulatedSchedule(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer

	err := runDemo(context.Background(), cfg, llm.Simulated{}, &out, demoMessage, 0)
	require.NoError(t, err)
	require.Contains(t, out.String(), "You have 2 events scheduled")
}

func TestDemo_CancelledDuringDelay(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runDemo(ctx, cfg, llm.Simulated{}, io.Discard, demoMessage, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCount_ReachesLimit(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer

	require.NoError(t, runCount(context.Background(), cfg, llm.Counting{}, &out, 3))
	require.Equal(t, "counted to 3\n", out.String())
}

func TestCount_MismatchTerminates(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer

	err := runCount(context.Background(), cfg, llm.NewScripted("1", "3"), &out, 0)
	require.ErrorIs(t, err, conversation.ErrTerminated)
	require.ErrorIs(t, err, conversation.ErrCountMismatch)
	require.Contains(t, out.String(), "expecting 2")
}

func TestCount_ProviderFailurePauses(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer
	calls := 0
	completion := conversation.CompletionFunc(func(context.Context, []conversation.Message) (conversation.Message, error) {
		calls++
		if calls == 2 {
			return conversation.Message{}, errors.New("connection refused")
		}
		return conversation.Message{Role: conversation.RoleAssistant, Content: strconv.Itoa(calls)}, nil
	})

	require.NoError(t, runCount(context.Background(), cfg, completion, &out, 3))
	require.Equal(t, "counting paused at 1: model unavailable\n", out.String())
}

func TestServe_MessageHistoryAndMetrics(t *testing.T) {
	cfg := testConfig(t)
	cfg.History.Enabled = true
	cfg.History.Path = filepath.Join(t.TempDir(), "history.db")

	s, err := newSession(cfg, llm.Simulated{}, actions.NewCalendar())
	require.NoError(t, err)
	defer s.Close()
	ts := httptest.NewServer(newServer(s).routes())
	defer ts.Close()

	code, body := post(t, ts.URL+"/", "What is my schedule for tomorrow?")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "You have 2 events scheduled", body)

	resp, err := http.Get(ts.URL + "/history")
	require.NoError(t, err)
	defer resp.Body.Close()
	var hist historyResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&hist))
	require.Equal(t, s.engine.SessionID(), hist.SessionID)
	require.Equal(t, conversation.StateAwaitingUserMessage, hist.State)
	require.Len(t, hist.Messages, 5) // system, user, assistant, tool, assistant
	require.Len(t, hist.Transcript, 4)
	require.Equal(t, "tool", hist.Transcript[2].Role)

	metrics, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer metrics.Body.Close()
	b, err := io.ReadAll(metrics.Body)
	require.NoError(t, err)
	require.Contains(t, string(b), "amy_transitions_total")
}

func TestServe_BusyIsConflict(t *testing.T) {
	cfg := testConfig(t)
	started := make(chan struct{})
	release := make(chan struct{})
	completion := conversation.CompletionFunc(func(context.Context, []conversation.Message) (conversation.Message, error) {
		close(started)
		<-release
		return conversation.Message{Role: conversation.RoleAssistant, Content: "done"}, nil
	})

	s, err := newSession(cfg, completion, nil)
	require.NoError(t, err)
	ts := httptest.NewServer(newServer(s).routes())
	defer ts.Close()

	type result struct {
		code int
		body string
	}
	first := make(chan result, 1)
	go func() {
		resp, err := http.Post(ts.URL+"/", "text/plain", strings.NewReader("first"))
		if err != nil {
			first <- result{}
			return
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		first <- result{resp.StatusCode, string(b)}
	}()
	<-started

	code, _ := post(t, ts.URL+"/", "second")
	require.Equal(t, http.StatusConflict, code)

	close(release)
	got := <-first
	require.Equal(t, http.StatusOK, got.code)
	require.Equal(t, "done", got.body)
	require.Len(t, s.engine.History(), 3, "the rejected message never reached history")
}

func TestServe_TerminatedIsGone(t *testing.T) {
	cfg := testConfig(t)
	s, err := newSession(cfg, llm.NewScripted("5"), nil, conversation.WithCounter(conversation.Counter{}))
	require.NoError(t, err)
	ts := httptest.NewServer(newServer(s).routes())
	defer ts.Close()

	code, _ := post(t, ts.URL+"/", "count")
	require.Equal(t, http.StatusGone, code)

	code, _ = post(t, ts.URL+"/", "again")
	require.Equal(t, http.StatusGone, code)
	require.Equal(t, conversation.StateTerminated, s.engine.State())
}
