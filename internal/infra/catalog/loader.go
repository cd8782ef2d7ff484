package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"toolscope/internal/domain"
)

// Loader reads tool catalog files and selector settings.
type Loader struct {
	logger *zap.Logger
}

func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		return &Loader{logger: zap.NewNop()}
	}
	return &Loader{logger: logger.Named("catalog")}
}

// Catalog is a tool catalog file: the tools one owner exposes.
type Catalog struct {
	Path     string
	OwnerKey string
	Tools    []ToolSpec
}

// ToolSpec declares one tool of a catalog file.
type ToolSpec struct {
	Name        string
	Description string
	Toolkit     string
	Parameters  []ParameterSpec
}

// ParameterSpec declares one keyword parameter of a tool.
type ParameterSpec struct {
	Name        string
	Type        string
	Description string
	Required    bool
	Default     any
	HasDefault  bool
}

type rawCatalog struct {
	Owner string    `mapstructure:"owner"`
	Tools []rawTool `mapstructure:"tools"`
}

type rawTool struct {
	Name        string         `mapstructure:"name"`
	Description string         `mapstructure:"description"`
	Toolkit     string         `mapstructure:"toolkit"`
	Parameters  []rawParameter `mapstructure:"parameters"`
}

type rawParameter struct {
	Name        string `mapstructure:"name"`
	Type        string `mapstructure:"type"`
	Description string `mapstructure:"description"`
	Required    bool   `mapstructure:"required"`
	Default     any    `mapstructure:"default"`
}

var parameterTypes = map[string]struct{}{
	"":        {},
	"string":  {},
	"integer": {},
	"number":  {},
	"boolean": {},
	"array":   {},
	"object":  {},
	"null":    {},
}

// Load reads and validates the catalog file at path. YAML, TOML and JSON are
// accepted, chosen by file extension.
func (l *Loader) Load(ctx context.Context, path string) (Catalog, error) {
	if path == "" {
		return Catalog{}, errors.New("catalog path is required")
	}

	v := viper.New()
	if err := l.readInto(v, path); err != nil {
		return Catalog{}, err
	}

	var raw rawCatalog
	if err := v.Unmarshal(&raw); err != nil {
		return Catalog{}, fmt.Errorf("decode catalog: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Catalog{}, err
	}

	catalog, errs := normalizeCatalog(raw)
	if len(errs) > 0 {
		return Catalog{}, errors.New(strings.Join(errs, "; "))
	}
	catalog.Path = path
	l.logger.Debug("catalog loaded",
		zap.String("path", path),
		zap.String("owner", catalog.OwnerKey),
		zap.Int("tools", len(catalog.Tools)),
	)
	return catalog, nil
}

func (l *Loader) readInto(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		expanded, missing, err := expandYAMLEnv(data)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			l.logger.Warn("missing environment variables in config", zap.String("path", path), zap.Strings("missing", missing))
		}
		v.SetConfigType("yaml")
		if err := v.ReadConfig(bytes.NewReader(expanded)); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
	case ".toml":
		var doc map[string]any
		if err := toml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse toml: %w", err)
		}
		if err := v.MergeConfigMap(doc); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
	case ".json":
		v.SetConfigType("json")
		if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
	return nil
}

func normalizeCatalog(raw rawCatalog) (Catalog, []string) {
	var errs []string
	owner := strings.TrimSpace(raw.Owner)
	if owner == "" {
		errs = append(errs, "owner is required")
	}

	tools := make([]ToolSpec, 0, len(raw.Tools))
	for i, tool := range raw.Tools {
		spec, toolErrs := normalizeTool(tool, i)
		if len(toolErrs) > 0 {
			errs = append(errs, toolErrs...)
			continue
		}
		tools = append(tools, spec)
	}
	return Catalog{OwnerKey: owner, Tools: tools}, errs
}

func normalizeTool(raw rawTool, index int) (ToolSpec, []string) {
	var errs []string
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		errs = append(errs, fmt.Sprintf("tools[%d]: name is required", index))
	}

	spec := ToolSpec{
		Name:        name,
		Description: strings.TrimSpace(raw.Description),
		Toolkit:     normalizeToolkit(raw.Toolkit),
		Parameters:  make([]ParameterSpec, 0, len(raw.Parameters)),
	}

	seen := make(map[string]struct{}, len(raw.Parameters))
	for j, param := range raw.Parameters {
		pname := strings.TrimSpace(param.Name)
		ptype := strings.ToLower(strings.TrimSpace(param.Type))
		switch {
		case pname == "":
			errs = append(errs, fmt.Sprintf("tools[%d].parameters[%d]: name is required", index, j))
			continue
		case hasKey(seen, pname):
			errs = append(errs, fmt.Sprintf("tools[%d].parameters[%d]: duplicate name %q", index, j, pname))
			continue
		}
		seen[pname] = struct{}{}
		if _, ok := parameterTypes[ptype]; !ok {
			errs = append(errs, fmt.Sprintf("tools[%d].parameters[%d]: unknown type %q", index, j, param.Type))
			continue
		}
		if param.Default != nil {
			if _, err := json.Marshal(param.Default); err != nil {
				errs = append(errs, fmt.Sprintf("tools[%d].parameters[%d]: default: %v", index, j, err))
				continue
			}
		}
		spec.Parameters = append(spec.Parameters, ParameterSpec{
			Name:        pname,
			Type:        ptype,
			Description: strings.TrimSpace(param.Description),
			Required:    param.Required,
			Default:     param.Default,
			HasDefault:  param.Default != nil,
		})
	}
	return spec, errs
}

func normalizeToolkit(toolkit string) string {
	trimmed := strings.TrimSpace(toolkit)
	switch {
	case trimmed == "" || strings.EqualFold(trimmed, domain.DefaultToolkit):
		return domain.DefaultToolkit
	case strings.EqualFold(trimmed, domain.MCPToolkit):
		return domain.MCPToolkit
	default:
		return trimmed
	}
}

func hasKey(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}

// Owner builds the tool owner described by the catalog. Default-toolkit tools
// become self-describing functions, MCP tools share one grouped provider and
// every other toolkit becomes a named toolkit, each placed at the position of
// its first tool.
func (c Catalog) Owner() *domain.StaticOwner {
	owner := &domain.StaticOwner{OwnerKey: c.OwnerKey}
	toolkits := make(map[string]int)
	grouped := -1
	var mcpTools staticProvider

	for _, tool := range c.Tools {
		fn := toolFunction{spec: tool}
		switch tool.Toolkit {
		case domain.DefaultToolkit:
			owner.Entries = append(owner.Entries, domain.SelfDescribingFunction{Function: fn})
		case domain.MCPToolkit:
			mcpTools = append(mcpTools, fn)
			if grouped < 0 {
				grouped = len(owner.Entries)
				owner.Entries = append(owner.Entries, nil)
			}
		default:
			idx, ok := toolkits[tool.Toolkit]
			if !ok {
				idx = len(owner.Entries)
				toolkits[tool.Toolkit] = idx
				owner.Entries = append(owner.Entries, domain.NamedToolkit{Name: tool.Toolkit})
			}
			toolkit := owner.Entries[idx].(domain.NamedToolkit)
			toolkit.Functions = append(toolkit.Functions, fn)
			owner.Entries[idx] = toolkit
		}
	}
	if grouped >= 0 {
		owner.Entries[grouped] = domain.GroupedProvider{Provider: mcpTools}
	}
	return owner
}

type staticProvider []domain.Function

func (p staticProvider) Functions() []domain.Function {
	return append([]domain.Function(nil), p...)
}

type toolFunction struct {
	spec ToolSpec
}

func (f toolFunction) Describe() domain.FunctionDescriptor {
	schema := &jsonschema.Schema{
		Type:       "object",
		Properties: make(map[string]*jsonschema.Schema, len(f.spec.Parameters)),
	}
	order := make([]string, 0, len(f.spec.Parameters))
	for _, param := range f.spec.Parameters {
		order = append(order, param.Name)
		prop := &jsonschema.Schema{Type: param.Type, Description: param.Description}
		if param.HasDefault {
			if raw, err := json.Marshal(param.Default); err == nil {
				prop.Default = raw
			}
		}
		schema.Properties[param.Name] = prop
		if param.Required {
			schema.Required = append(schema.Required, param.Name)
		}
	}
	return domain.FunctionDescriptor{
		Name:           f.spec.Name,
		Description:    f.spec.Description,
		InputSchema:    schema,
		ParameterOrder: order,
	}
}

var (
	_ domain.FunctionProvider = staticProvider(nil)
	_ domain.Function         = toolFunction{}
)
