package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParameterKind describes how a parameter is supplied at call time.
type ParameterKind string

const (
	// ParameterPositional is a parameter passed by position.
	ParameterPositional ParameterKind = "positional"
	// ParameterKeyword is a parameter passed by name, e.g. a field of an argument object.
	ParameterKeyword ParameterKind = "keyword"
	// ParameterVariadic collects any remaining positional arguments.
	ParameterVariadic ParameterKind = "variadic"
)

// Parameter describes one parameter of a tool's call shape.
type Parameter struct {
	Name        string        `json:"name"`
	Type        string        `json:"type,omitempty"`
	Default     any           `json:"default,omitempty"`
	HasDefault  bool          `json:"hasDefault,omitempty"`
	Kind        ParameterKind `json:"kind"`
	Required    bool          `json:"required,omitempty"`
	Description string        `json:"description,omitempty"`
}

// ToolRecord is the normalized description of a single tool.
type ToolRecord struct {
	Name       string      `json:"name"`
	Docstring  string      `json:"docstring"`
	Parameters []Parameter `json:"parameters"`
	Toolkit    string      `json:"toolkit"`
	Signature  string      `json:"signature,omitempty"`
}

// CloneToolRecord returns a deep copy of a tool record.
func CloneToolRecord(record ToolRecord) ToolRecord {
	out := record
	if record.Parameters != nil {
		out.Parameters = make([]Parameter, len(record.Parameters))
		copy(out.Parameters, record.Parameters)
	}
	return out
}

// CloneToolRecords returns a deep copy of a record slice.
func CloneToolRecords(records []ToolRecord) []ToolRecord {
	if records == nil {
		return nil
	}
	out := make([]ToolRecord, len(records))
	for i, record := range records {
		out[i] = CloneToolRecord(record)
	}
	return out
}

// ToolkitOrDefault returns the toolkit label, substituting DefaultToolkit when blank.
func ToolkitOrDefault(toolkit string) string {
	if strings.TrimSpace(toolkit) == "" {
		return DefaultToolkit
	}
	return toolkit
}

// RenderSignature formats the call shape of a record, e.g. "search(query string, limit int = 10)".
func RenderSignature(name string, params []Parameter) string {
	var sb strings.Builder
	sb.WriteString(name)
	sb.WriteByte('(')
	for i, p := range params {
		if i > 0 {
			sb.WriteString(", ")
		}
		if p.Kind == ParameterVariadic {
			sb.WriteString("...")
		}
		sb.WriteString(p.Name)
		if p.Type != "" {
			sb.WriteByte(' ')
			sb.WriteString(p.Type)
		}
		if p.HasDefault {
			sb.WriteString(" = ")
			sb.WriteString(formatDefault(p.Default))
		}
	}
	sb.WriteByte(')')
	return sb.String()
}

func formatDefault(value any) string {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprint(value)
	}
	return string(raw)
}
