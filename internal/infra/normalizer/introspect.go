package normalizer

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"toolscope/internal/domain"
)

var contextType = reflect.TypeOf((*context.Context)(nil)).Elem()

// recordFromCallable derives a tool record from a Go function value.
func recordFromCallable(callable domain.Callable, toolkit string) (domain.ToolRecord, error) {
	if callable.Fn == nil {
		return domain.ToolRecord{}, fmt.Errorf("%w: callable has no function", domain.ErrUnsupportedTool)
	}
	fn := reflect.ValueOf(callable.Fn)
	if fn.Kind() != reflect.Func {
		return domain.ToolRecord{}, fmt.Errorf("%w: %T is not a function", domain.ErrUnsupportedTool, callable.Fn)
	}
	if fn.IsNil() {
		return domain.ToolRecord{}, fmt.Errorf("%w: nil function", domain.ErrUnsupportedTool)
	}

	name := strings.TrimSpace(callable.Name)
	if name == "" {
		name = funcName(fn)
	}
	if name == "" {
		return domain.ToolRecord{}, fmt.Errorf("%w: unable to resolve function name", domain.ErrUnsupportedTool)
	}

	params := callableParameters(fn.Type(), callable.ParamNames, callable.Defaults)
	return domain.ToolRecord{
		Name:       name,
		Docstring:  callable.Doc,
		Parameters: params,
		Toolkit:    domain.ToolkitOrDefault(toolkit),
		Signature:  domain.RenderSignature(name, params),
	}, nil
}

// funcName returns the symbol name of fn without its package path or receiver.
func funcName(fn reflect.Value) string {
	rf := runtime.FuncForPC(fn.Pointer())
	if rf == nil {
		return ""
	}
	full := rf.Name()
	if idx := strings.LastIndex(full, "/"); idx >= 0 {
		full = full[idx+1:]
	}
	full = strings.TrimSuffix(full, "-fm")
	if idx := strings.LastIndex(full, "."); idx >= 0 {
		full = full[idx+1:]
	}
	return full
}

func callableParameters(fnType reflect.Type, names []string, defaults map[string]any) []domain.Parameter {
	inputs := make([]reflect.Type, 0, fnType.NumIn())
	for i := 0; i < fnType.NumIn(); i++ {
		inputs = append(inputs, fnType.In(i))
	}
	// context.Context is supplied by the host, not the model.
	if len(inputs) > 0 && inputs[0] == contextType {
		inputs = inputs[1:]
	}

	if len(inputs) == 1 && !fnType.IsVariadic() {
		if structType, ok := structOf(inputs[0]); ok {
			return structParameters(structType, defaults)
		}
	}

	params := make([]domain.Parameter, 0, len(inputs))
	for i, in := range inputs {
		param := domain.Parameter{
			Name: positionalName(names, i),
			Kind: domain.ParameterPositional,
		}
		if fnType.IsVariadic() && i == len(inputs)-1 {
			param.Kind = domain.ParameterVariadic
			in = in.Elem()
		}
		param.Type = schemaTypeName(in)
		applyDefault(&param, defaults)
		param.Required = param.Kind == domain.ParameterPositional && !param.HasDefault
		params = append(params, param)
	}
	return params
}

func positionalName(names []string, index int) string {
	if index < len(names) {
		if name := strings.TrimSpace(names[index]); name != "" {
			return name
		}
	}
	return fmt.Sprintf("arg%d", index)
}

func structOf(t reflect.Type) (reflect.Type, bool) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, false
	}
	return t, true
}

// structParameters expands an argument struct into keyword parameters in field order.
func structParameters(structType reflect.Type, defaults map[string]any) []domain.Parameter {
	schema, err := jsonschema.ForType(structType, &jsonschema.ForOptions{})
	if err != nil {
		schema = nil
	}
	required := make(map[string]bool)
	if schema != nil {
		for _, name := range schema.Required {
			required[name] = true
		}
	}

	var params []domain.Parameter
	for _, field := range jsonFields(structType) {
		param := domain.Parameter{
			Name: field.name,
			Kind: domain.ParameterKeyword,
		}
		if schema != nil {
			if prop := schema.Properties[field.name]; prop != nil {
				param.Type = schemaType(prop)
				param.Description = prop.Description
			}
			param.Required = required[field.name]
		} else {
			param.Type = field.goType.String()
			param.Required = !field.omitEmpty
		}
		applyDefault(&param, defaults)
		if param.HasDefault {
			param.Required = false
		}
		params = append(params, param)
	}
	return params
}

type jsonField struct {
	name      string
	goType    reflect.Type
	omitEmpty bool
}

func jsonFields(structType reflect.Type) []jsonField {
	var fields []jsonField
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		tag := field.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		if field.Anonymous && name == "" {
			if embedded, ok := structOf(field.Type); ok {
				fields = append(fields, jsonFields(embedded)...)
				continue
			}
		}
		if !field.IsExported() {
			continue
		}
		if name == "" {
			name = field.Name
		}
		fields = append(fields, jsonField{
			name:      name,
			goType:    field.Type,
			omitEmpty: strings.Contains(opts, "omitempty") || strings.Contains(opts, "omitzero"),
		})
	}
	return fields
}

func applyDefault(param *domain.Parameter, defaults map[string]any) {
	if defaults == nil {
		return
	}
	if value, ok := defaults[param.Name]; ok {
		param.Default = value
		param.HasDefault = true
	}
}

// schemaTypeName returns the JSON schema type of t, or the Go type name when t has no schema.
func schemaTypeName(t reflect.Type) string {
	if t.Kind() == reflect.Interface {
		return ""
	}
	schema, err := jsonschema.ForType(t, &jsonschema.ForOptions{})
	if err != nil {
		return t.String()
	}
	return schemaType(schema)
}

func schemaType(schema *jsonschema.Schema) string {
	if schema == nil {
		return ""
	}
	if schema.Type != "" {
		return schema.Type
	}
	return strings.Join(schema.Types, "|")
}
