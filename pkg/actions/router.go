package actions

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/comigor/amy/internal/config"
	"github.com/comigor/amy/internal/conversation"
	"github.com/comigor/amy/internal/logger"
)

// Router dispatches action requests to providers keyed by the URL scheme of
// the request target.
type Router struct {
	providers map[string]conversation.ActionProvider
	closers   []func() error
}

// NewRouter creates an empty Router.
func NewRouter() *Router {
	return &Router{providers: make(map[string]conversation.ActionProvider)}
}

// Register routes targets with the given scheme to p, replacing any previous
// registration.
func (r *Router) Register(scheme string, p conversation.ActionProvider) {
	r.providers[strings.ToLower(scheme)] = p
}

// Get retrieves the provider for scheme.
func (r *Router) Get(scheme string) (conversation.ActionProvider, error) {
	p, ok := r.providers[strings.ToLower(scheme)]
	if !ok {
		return nil, fmt.Errorf("actions: no provider for scheme %q", scheme)
	}
	return p, nil
}

// Schemes lists the registered schemes in order.
func (r *Router) Schemes() []string {
	out := make([]string, 0, len(r.providers))
	for s := range r.providers {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Perform implements conversation.ActionProvider.
func (r *Router) Perform(ctx context.Context, req conversation.ActionRequest) (conversation.ActionResult, error) {
	u, err := url.Parse(req.Target)
	if err != nil {
		return conversation.ActionResult{}, fmt.Errorf("actions: invalid target %q: %w", req.Target, err)
	}
	p, err := r.Get(u.Scheme)
	if err != nil {
		return conversation.ActionResult{}, err
	}
	return p.Perform(ctx, req)
}

// Close releases providers that hold connections.
func (r *Router) Close() error {
	var errs []error
	for _, c := range r.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// NewFromConfig wires the providers selected by cfg. In mock mode web
// targets are answered by the Calendar mock; in live mode they are fetched.
// MCP servers, when configured, serve mcp:// targets in either mode.
func NewFromConfig(ctx context.Context, cfg config.ActionsConfig) (*Router, error) {
	r := NewRouter()

	var web conversation.ActionProvider
	switch strings.ToLower(cfg.Mode) {
	case "", "mock":
		web = NewCalendar()
	case "live":
		web = NewHTTP(cfg.HTTPToken, cfg.HTTPTimeout)
	default:
		return nil, fmt.Errorf("actions: unknown mode %q", cfg.Mode)
	}
	r.Register("http", web)
	r.Register("https", web)

	if len(cfg.MCPServers) > 0 {
		m, err := DialMCP(ctx, cfg.MCPServers)
		if err != nil {
			return nil, err
		}
		r.Register(SchemeMCP, m)
		r.closers = append(r.closers, m.Close)
	}

	logger.L.Info("action providers ready", "mode", cfg.Mode, "schemes", r.Schemes())
	return r, nil
}
