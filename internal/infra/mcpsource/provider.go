// Package mcpsource exposes the tools of connected MCP servers as a grouped
// function provider.
package mcpsource

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"toolscope/internal/domain"
	"toolscope/internal/infra/mcpcodec"
)

// NamespaceStrategy controls how tool names from several servers are combined.
type NamespaceStrategy string

const (
	// NamespaceFlat keeps tool names as reported by the server.
	NamespaceFlat NamespaceStrategy = "flat"
	// NamespacePrefix prefixes tool names with the server name, e.g. "docs.search".
	NamespacePrefix NamespaceStrategy = "prefix"
)

// ToolLister lists tools from an MCP server. *mcp.ClientSession satisfies it.
type ToolLister interface {
	ListTools(ctx context.Context, params *mcp.ListToolsParams) (*mcp.ListToolsResult, error)
}

// Provider is a snapshot of tools listed from one or more MCP sessions.
type Provider struct {
	strategy NamespaceStrategy
	logger   *zap.Logger

	mu        sync.RWMutex
	sessions  map[string]ToolLister
	functions []domain.Function
}

// NewProvider creates an empty provider.
func NewProvider(strategy NamespaceStrategy, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strategy == "" {
		strategy = NamespaceFlat
	}
	return &Provider{
		strategy: strategy,
		logger:   logger.Named("mcpsource"),
		sessions: make(map[string]ToolLister),
	}
}

// AddSession registers a named server session. Call Refresh to list its tools.
func (p *Provider) AddSession(name string, session ToolLister) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions[name] = session
}

// Refresh lists tools from every session, in server-name order, and replaces the snapshot.
// The previous snapshot is kept when any server fails.
func (p *Provider) Refresh(ctx context.Context) error {
	p.mu.RLock()
	names := make([]string, 0, len(p.sessions))
	for name := range p.sessions {
		names = append(names, name)
	}
	sessions := make(map[string]ToolLister, len(p.sessions))
	for name, session := range p.sessions {
		sessions[name] = session
	}
	p.mu.RUnlock()
	sort.Strings(names)

	var functions []domain.Function
	for _, name := range names {
		tools, err := fetchTools(ctx, sessions[name])
		if err != nil {
			return fmt.Errorf("list tools from %s: %w", name, err)
		}
		for _, tool := range tools {
			desc, err := mcpcodec.DescriptorFromMCP(tool, p.toolName(name, tool))
			if err != nil {
				p.logger.Warn("skipping MCP tool", zap.String("server", name), zap.Error(err))
				continue
			}
			functions = append(functions, function{desc: desc})
		}
	}

	p.mu.Lock()
	p.functions = functions
	p.mu.Unlock()
	p.logger.Debug("MCP tools refreshed", zap.Int("servers", len(names)), zap.Int("tools", len(functions)))
	return nil
}

// Functions returns the current tool snapshot.
func (p *Provider) Functions() []domain.Function {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.Function, len(p.functions))
	copy(out, p.functions)
	return out
}

func (p *Provider) toolName(server string, tool *mcp.Tool) string {
	if tool == nil || p.strategy != NamespacePrefix {
		return ""
	}
	return fmt.Sprintf("%s.%s", server, tool.Name)
}

func fetchTools(ctx context.Context, session ToolLister) ([]*mcp.Tool, error) {
	if session == nil {
		return nil, fmt.Errorf("nil session")
	}
	var tools []*mcp.Tool
	cursor := ""

	for {
		result, err := session.ListTools(ctx, &mcp.ListToolsParams{Cursor: cursor})
		if err != nil {
			return nil, err
		}
		if result == nil {
			return nil, fmt.Errorf("empty tools/list result")
		}
		tools = append(tools, result.Tools...)
		if result.NextCursor == "" {
			break
		}
		cursor = result.NextCursor
	}

	return tools, nil
}

type function struct {
	desc domain.FunctionDescriptor
}

func (f function) Describe() domain.FunctionDescriptor {
	return f.desc
}

var (
	_ domain.FunctionProvider = (*Provider)(nil)
	_ ToolLister              = (*mcp.ClientSession)(nil)
)
