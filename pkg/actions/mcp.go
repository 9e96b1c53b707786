package actions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"

	"github.com/comigor/amy/internal/config"
	"github.com/comigor/amy/internal/conversation"
	"github.com/comigor/amy/internal/logger"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
)

// SchemeMCP is the target scheme served by MCP: mcp://<tool>?<arg>=<value>.
const SchemeMCP = "mcp"

// MCPClient defines the methods the MCP provider expects from an MCP client.
type MCPClient interface {
	Initialize(ctx context.Context, req mcp.InitializeRequest) (*mcp.InitializeResult, error)
	ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// MCP performs actions by calling tools exposed by MCP servers.
type MCP struct {
	clients []MCPClient
	tools   map[string]MCPClient
}

// NewMCP initializes clients and indexes their tools. A client that fails to
// initialize is closed and skipped; the first server to offer a tool name
// owns it.
func NewMCP(ctx context.Context, clients ...MCPClient) (*MCP, error) {
	m := &MCP{tools: make(map[string]MCPClient)}

	for i, c := range clients {
		initReq := mcp.InitializeRequest{
			Params: mcp.InitializeParams{
				ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
				ClientInfo:      mcp.Implementation{Name: "amy", Version: "0.1.0"},
				Capabilities:    mcp.ClientCapabilities{},
			},
		}
		if _, err := c.Initialize(ctx, initReq); err != nil {
			logger.L.Error("Failed to initialize MCP client", "index", i, "error", err)
			if cerr := c.Close(); cerr != nil {
				logger.L.Warn("MCP client close error after init failure", "error", cerr)
			}
			continue
		}
		m.clients = append(m.clients, c)

		listed, err := c.ListTools(ctx, mcp.ListToolsRequest{})
		if err != nil || listed == nil {
			logger.L.Warn("Failed to list tools for MCP client", "index", i, "error", err)
			continue
		}
		for _, tool := range listed.Tools {
			if _, exists := m.tools[tool.Name]; exists {
				logger.L.Warn("Tool already registered from another server. Skipping.", "tool", tool.Name, "index", i)
				continue
			}
			m.tools[tool.Name] = c
			logger.L.Info("Registered MCP tool", "tool", tool.Name, "index", i)
		}
	}

	if len(m.clients) == 0 && len(clients) > 0 {
		return nil, errors.New("actions: no MCP client could be initialized")
	}
	return m, nil
}

// DialMCP connects to every configured server and builds an MCP provider.
func DialMCP(ctx context.Context, servers []config.MCPServerConfig) (*MCP, error) {
	var clients []MCPClient
	for _, serverCfg := range servers {
		var mcpC *client.Client
		var err error

		switch serverCfg.Type {
		case config.ClientTypeSSE:
			var sseOpts []transport.ClientOption
			if len(serverCfg.Headers) > 0 {
				sseOpts = append(sseOpts, transport.WithHeaders(serverCfg.Headers))
			}
			mcpC, err = client.NewSSEMCPClient(serverCfg.URL, sseOpts...)
		case config.ClientTypeStreamableHTTP:
			var httpOpts []transport.StreamableHTTPCOption
			if len(serverCfg.Headers) > 0 {
				httpOpts = append(httpOpts, transport.WithHTTPHeaders(serverCfg.Headers))
			}
			mcpC, err = client.NewStreamableHttpClient(serverCfg.URL, httpOpts...)
		case config.ClientTypeStdio:
			var env []string
			for k, v := range serverCfg.Env {
				env = append(env, fmt.Sprintf("%s=%s", k, v))
			}
			mcpC, err = client.NewStdioMCPClient(serverCfg.Command, env, serverCfg.Args...)
		default:
			logger.L.Warn("Unsupported MCP server type. Skipping.", "type", serverCfg.Type, "name", serverCfg.Name)
			continue
		}
		if err != nil {
			logger.L.Error("Failed to create MCP client", "name", serverCfg.Name, "error", err)
			continue
		}

		// stdio clients start their transport on creation
		if serverCfg.Type != config.ClientTypeStdio {
			if err := mcpC.Start(ctx); err != nil {
				logger.L.Error("Failed to start MCP client transport", "name", serverCfg.Name, "error", err)
				if cerr := mcpC.Close(); cerr != nil {
					logger.L.Warn("MCP client close error after start failure", "error", cerr)
				}
				continue
			}
		}
		clients = append(clients, mcpC)
	}
	if len(clients) == 0 {
		return nil, errors.New("actions: no MCP server could be reached")
	}
	return NewMCP(ctx, clients...)
}

// Tools lists the indexed tool names.
func (m *MCP) Tools() []string {
	out := make([]string, 0, len(m.tools))
	for name := range m.tools {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Perform implements conversation.ActionProvider. Query parameters of the
// target become string arguments of the tool call.
func (m *MCP) Perform(ctx context.Context, req conversation.ActionRequest) (conversation.ActionResult, error) {
	name, args, err := parseToolTarget(req.Target)
	if err != nil {
		return conversation.ActionResult{}, err
	}
	c, ok := m.tools[name]
	if !ok {
		return conversation.ActionResult{}, fmt.Errorf("actions: MCP tool not found: %s", name)
	}

	logger.L.Debug("Calling MCP tool", "tool", name, "arguments", args)
	result, err := c.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	})
	if err != nil {
		return conversation.ActionResult{}, err
	}
	if result == nil {
		return conversation.ActionResult{Status: conversation.ActionFailure, Content: "MCP tool returned no result: " + name}, nil
	}

	status := conversation.ActionSuccess
	if result.IsError {
		status = conversation.ActionFailure
	}
	return conversation.ActionResult{Status: status, Content: toolText(result)}, nil
}

// Close closes every initialized client.
func (m *MCP) Close() error {
	var errs []error
	for _, c := range m.clients {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func parseToolTarget(target string) (string, map[string]any, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", nil, fmt.Errorf("actions: invalid MCP target %q: %w", target, err)
	}
	if u.Scheme != SchemeMCP || u.Host == "" {
		return "", nil, fmt.Errorf("actions: MCP target must look like mcp://<tool>, got %q", target)
	}
	args := make(map[string]any)
	for k, vs := range u.Query() {
		if len(vs) == 1 {
			args[k] = vs[0]
		} else {
			args[k] = vs
		}
	}
	return u.Host, args, nil
}

// toolText returns the first text content of result, or the whole result as
// JSON when there is none.
func toolText(result *mcp.CallToolResult) string {
	for _, item := range result.Content {
		if text, ok := item.(mcp.TextContent); ok {
			return text.Text
		}
	}
	b, err := json.Marshal(result)
	if err != nil {
		return "tool returned a result that could not be formatted"
	}
	return string(b)
}
