package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/comigor/amy/internal/conversation"
	"github.com/comigor/amy/internal/history"
	"github.com/comigor/amy/internal/llm"
	"github.com/comigor/amy/internal/logger"
	"github.com/comigor/amy/internal/observability"
	"github.com/comigor/amy/pkg/actions"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve one conversation session over HTTP",
	Long: `Serve a single session. POST / delivers one user message and answers with
the reply, GET /history returns the transcript and /metrics exposes
Prometheus metrics.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		completion, err := llm.NewProvider(cfg.LLM)
		if err != nil {
			return err
		}
		router, err := actions.NewFromConfig(ctx, cfg.Actions)
		if err != nil {
			return err
		}
		defer router.Close()

		s, err := newSession(cfg, completion, router)
		if err != nil {
			return err
		}
		defer s.Close()

		srv := &http.Server{
			Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
			Handler: newServer(s).routes(),
		}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		logger.L.Info("starting server", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

type server struct {
	session *session
}

func newServer(s *session) *server { return &server{session: s} }

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /{$}", s.handleMessage)
	mux.HandleFunc("GET /history", s.handleHistory)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// handleMessage is the inference endpoint: the body is one user message.
func (s *server) handleMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.L.Error("read body error", "err", err)
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	logger.L.Info("inference request", "body", string(body))

	reply, err := s.session.engine.Send(r.Context(), s.session.protocol.UserContent(string(body)))
	switch {
	case err == nil:
	case errors.Is(err, conversation.ErrBusy):
		observability.BusyRejectionsTotal.Inc()
		http.Error(w, "a message is already being processed", http.StatusConflict)
		return
	case errors.Is(err, conversation.ErrTerminated):
		http.Error(w, "session terminated", http.StatusGone)
		return
	case errors.Is(err, conversation.ErrTimeout):
		http.Error(w, "timed out waiting for a provider", http.StatusGatewayTimeout)
		return
	case errors.Is(err, conversation.ErrActionLimit):
		logger.L.Warn("action limit reached", "session_id", s.session.engine.SessionID())
	default:
		logger.L.Error("process error", "err", err, "body", string(body))
		http.Error(w, "failed to process request", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(reply))
}

type historyResponse struct {
	SessionID  string                 `json:"session_id"`
	State      conversation.State     `json:"state"`
	Messages   []conversation.Message `json:"messages"`
	Transcript []history.Record       `json:"transcript,omitempty"`
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	e := s.session.engine
	resp := historyResponse{
		SessionID: e.SessionID(),
		State:     e.State(),
		Messages:  e.History(),
	}
	if s.session.store != nil {
		resp.Transcript = s.session.store.List(r.Context(), e.SessionID())
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.L.Error("encode history error", "err", err)
	}
}
