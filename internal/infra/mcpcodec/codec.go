package mcpcodec

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"toolscope/internal/domain"
)

// DescriptorFromMCP converts an MCP tool into a function descriptor.
// name overrides the tool name when non-empty.
func DescriptorFromMCP(tool *mcp.Tool, name string) (domain.FunctionDescriptor, error) {
	if tool == nil {
		return domain.FunctionDescriptor{}, fmt.Errorf("nil MCP tool")
	}
	if name == "" {
		name = tool.Name
	}
	schema, err := SchemaFromMCP(tool.InputSchema)
	if err != nil {
		return domain.FunctionDescriptor{}, fmt.Errorf("tool %s input schema: %w", tool.Name, err)
	}
	description := tool.Description
	if description == "" && tool.Annotations != nil {
		description = tool.Annotations.Title
	}
	if description == "" {
		description = tool.Title
	}
	return domain.FunctionDescriptor{
		Name:        name,
		Description: description,
		InputSchema: schema,
	}, nil
}

// SchemaFromMCP decodes an MCP input schema, which arrives as a decoded JSON value
// on the client side, into a typed schema.
func SchemaFromMCP(value any) (*jsonschema.Schema, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case *jsonschema.Schema:
		return v.CloneSchemas(), nil
	case json.RawMessage:
		return decodeSchema(v)
	case []byte:
		return decodeSchema(v)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal schema: %w", err)
		}
		return decodeSchema(raw)
	}
}

func decodeSchema(raw []byte) (*jsonschema.Schema, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	return &schema, nil
}
