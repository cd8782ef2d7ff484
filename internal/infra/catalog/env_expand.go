package catalog

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// expandYAMLEnv replaces ${VAR} references inside string scalars of a YAML
// document. Names that are not set in the environment expand to "" and are
// reported in missing.
func expandYAMLEnv(raw []byte) ([]byte, []string, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, nil, fmt.Errorf("parse yaml: %w", err)
	}

	missing := make(map[string]struct{})
	walkNode(&root, missing)

	expanded, err := yaml.Marshal(&root)
	if err != nil {
		return nil, nil, fmt.Errorf("encode expanded yaml: %w", err)
	}
	return expanded, sortedNames(missing), nil
}

func walkNode(node *yaml.Node, missing map[string]struct{}) {
	switch node.Kind {
	case yaml.MappingNode:
		// keys stay literal
		for i := 1; i < len(node.Content); i += 2 {
			walkNode(node.Content[i], missing)
		}
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, child := range node.Content {
			walkNode(child, missing)
		}
	case yaml.AliasNode:
		if node.Alias != nil {
			walkNode(node.Alias, missing)
		}
	case yaml.ScalarNode:
		rewriteScalar(node, missing)
	}
}

func rewriteScalar(node *yaml.Node, missing map[string]struct{}) {
	if node.Tag != "" && node.Tag != "!!str" {
		return
	}
	if !strings.Contains(node.Value, "$") {
		return
	}

	expanded := os.Expand(node.Value, func(name string) string {
		value, ok := os.LookupEnv(name)
		if !ok {
			missing[name] = struct{}{}
		}
		return value
	})
	if expanded == node.Value {
		return
	}

	// Quoted scalars remain strings; plain scalars take the type of their value.
	if node.Style != 0 {
		node.Tag, node.Value = "!!str", expanded
		return
	}
	node.Tag, node.Value = scalarTag(expanded)
}

func scalarTag(value string) (string, string) {
	if strings.TrimSpace(value) == "" {
		return "!!str", value
	}
	var parsed any
	if err := yaml.Unmarshal([]byte(value), &parsed); err != nil {
		return "!!str", value
	}
	switch v := parsed.(type) {
	case nil:
		return "!!null", "null"
	case bool:
		return "!!bool", strconv.FormatBool(v)
	case int:
		return "!!int", strconv.Itoa(v)
	case int64:
		return "!!int", strconv.FormatInt(v, 10)
	case uint64:
		return "!!int", strconv.FormatUint(v, 10)
	case float64:
		return "!!float", strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return "!!str", value
	}
}

func sortedNames(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
