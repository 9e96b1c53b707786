package main

import (
	"fmt"
	"strings"

	"github.com/comigor/amy/internal/config"
	"github.com/comigor/amy/internal/conversation"
	"github.com/comigor/amy/internal/history"
	"github.com/comigor/amy/internal/llm"
	"github.com/comigor/amy/internal/logger"
	"github.com/comigor/amy/internal/observability"
)

// session bundles an engine with the pieces the commands need around it.
type session struct {
	engine   *conversation.Engine
	protocol conversation.Protocol
	store    *history.Store
}

func protocolFor(cfg config.EngineConfig) (conversation.Protocol, error) {
	switch strings.ToLower(cfg.Protocol) {
	case "", "structured":
		return conversation.Structured{}, nil
	case "sentinel":
		return conversation.Sentinel{Marker: cfg.Sentinel}, nil
	default:
		return nil, fmt.Errorf("unknown protocol %q", cfg.Protocol)
	}
}

// newSession builds an engine from cfg. The structured protocol gets the
// built-in system prompt unless one is configured.
func newSession(cfg *config.Config, completion conversation.CompletionProvider, action conversation.ActionProvider, extra ...conversation.Option) (*session, error) {
	protocol, err := protocolFor(cfg.Engine)
	if err != nil {
		return nil, err
	}

	prompt := cfg.LLM.SystemPrompt
	if _, ok := protocol.(conversation.Structured); ok && prompt == "" {
		prompt = llm.SystemPrompt
	}

	s := &session{protocol: protocol}
	opts := []conversation.Option{
		conversation.WithProtocol(protocol),
		conversation.WithSystemPrompt(prompt),
		conversation.WithMaxActionRounds(cfg.Engine.MaxActionRounds),
		conversation.WithTurnTimeout(cfg.Engine.TurnTimeout),
		conversation.WithObserver(observability.MetricsObserver()),
		conversation.WithObserver(observability.LogObserver(logger.L)),
	}
	if cfg.History.Enabled {
		s.store = history.Open(cfg.History.Path)
		opts = append(opts, conversation.WithObserver(history.Recorder(s.store)))
	}
	s.engine = conversation.New(completion, action, append(opts, extra...)...)

	logger.L.Info("session started", "session_id", s.engine.SessionID(), "protocol", cfg.Engine.Protocol)
	return s, nil
}

func (s *session) Close() error {
	observability.LogTranscript(logger.L, s.engine.SessionID(), s.engine.History())
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}
