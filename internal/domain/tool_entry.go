package domain

import (
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
)

// ToolOwner is anything that exposes tools to an agent, typically the agent itself.
// Key must be stable for the owner's lifetime; it identifies the cached catalog.
type ToolOwner interface {
	Key() string
	Tools() []ToolEntry
}

// NewOwnerKey returns a fresh owner key for hosts without a natural name.
func NewOwnerKey() string {
	return uuid.NewString()
}

// ToolEntry is one tool-like entry of an owner. The variants are
// GroupedProvider, NamedToolkit, SelfDescribingFunction and BareCallable.
type ToolEntry interface {
	toolEntry()
}

// FunctionDescriptor is the self-reported description of a function.
type FunctionDescriptor struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
	// ParameterOrder lists property names in declaration order. Properties it
	// does not name follow in lexical order.
	ParameterOrder []string
}

// Function is a tool that already knows how to describe itself.
type Function interface {
	Describe() FunctionDescriptor
}

// FunctionProvider exposes a group of named functions, such as the tools of
// one or more MCP servers.
type FunctionProvider interface {
	Functions() []Function
}

// Callable is a plain Go function exposed as a tool.
type Callable struct {
	// Name overrides the name derived from the function symbol.
	Name string
	Doc  string
	// Fn must be a func value.
	Fn any
	// ParamNames names positional parameters in order; missing names become argN.
	ParamNames []string
	// Defaults maps parameter names to their default values.
	Defaults map[string]any
}

// GroupedProvider contributes every function of Provider under the MCP toolkit.
type GroupedProvider struct {
	Provider FunctionProvider
}

// NamedToolkit groups callables under the toolkit's own name. Functions holds
// members that describe themselves, such as tools declared in catalog files.
type NamedToolkit struct {
	Name      string
	Members   []Callable
	Functions []Function
}

// SelfDescribingFunction wraps a Function under the default toolkit.
type SelfDescribingFunction struct {
	Function Function
}

// BareCallable wraps a Callable under the default toolkit.
type BareCallable struct {
	Callable Callable
}

func (GroupedProvider) toolEntry()        {}
func (NamedToolkit) toolEntry()           {}
func (SelfDescribingFunction) toolEntry() {}
func (BareCallable) toolEntry()           {}

// StaticOwner is a ToolOwner over a fixed entry list.
type StaticOwner struct {
	OwnerKey string
	Entries  []ToolEntry
}

// Key returns the owner key.
func (o *StaticOwner) Key() string {
	return o.OwnerKey
}

// Tools returns the owner's entries.
func (o *StaticOwner) Tools() []ToolEntry {
	return o.Entries
}

var _ ToolOwner = (*StaticOwner)(nil)
