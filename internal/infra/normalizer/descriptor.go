package normalizer

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"toolscope/internal/domain"
)

// recordFromFunction derives a tool record from a self-describing function.
func recordFromFunction(fn domain.Function, toolkit string) (domain.ToolRecord, error) {
	if fn == nil {
		return domain.ToolRecord{}, fmt.Errorf("%w: nil function", domain.ErrUnsupportedTool)
	}
	desc := fn.Describe()
	name := strings.TrimSpace(desc.Name)
	if name == "" {
		return domain.ToolRecord{}, fmt.Errorf("%w: function descriptor has no name", domain.ErrUnsupportedTool)
	}
	params := schemaParameters(desc.InputSchema, desc.ParameterOrder)
	return domain.ToolRecord{
		Name:       name,
		Docstring:  desc.Description,
		Parameters: params,
		Toolkit:    domain.ToolkitOrDefault(toolkit),
		Signature:  domain.RenderSignature(name, params),
	}, nil
}

// schemaParameters lists the properties of an object schema as keyword parameters.
// Names in order come first; the rest are ordered by name.
func schemaParameters(schema *jsonschema.Schema, order []string) []domain.Parameter {
	if schema == nil || len(schema.Properties) == 0 {
		return []domain.Parameter{}
	}
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	names := make([]string, 0, len(schema.Properties))
	listed := make(map[string]bool, len(order))
	for _, name := range order {
		if _, ok := schema.Properties[name]; ok && !listed[name] {
			listed[name] = true
			names = append(names, name)
		}
	}
	rest := make([]string, 0, len(schema.Properties)-len(names))
	for name := range schema.Properties {
		if !listed[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	names = append(names, rest...)

	params := make([]domain.Parameter, 0, len(names))
	for _, name := range names {
		prop := schema.Properties[name]
		param := domain.Parameter{
			Name:     name,
			Kind:     domain.ParameterKeyword,
			Required: required[name],
		}
		if prop != nil {
			param.Type = schemaType(prop)
			param.Description = prop.Description
			if len(prop.Default) > 0 {
				var value any
				if err := json.Unmarshal(prop.Default, &value); err == nil {
					param.Default = value
					param.HasDefault = true
				}
			}
		}
		params = append(params, param)
	}
	return params
}
