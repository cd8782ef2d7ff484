package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"toolscope/internal/domain"
	"toolscope/internal/infra/normalizer"
)

func TestLoader_YAML(t *testing.T) {
	file := writeTempFile(t, "catalog.yaml", `
owner: travel-agent
tools:
  - name: get_weather
    description: Get the current weather for a city
    toolkit: weather
    parameters:
      - name: city
        type: string
        description: City name
        required: true
      - name: units
        type: string
        default: metric
  - name: send_email
    description: Send an email
`)

	catalog, err := NewLoader(zap.NewNop()).Load(context.Background(), file)
	require.NoError(t, err)

	want := Catalog{
		Path:     file,
		OwnerKey: "travel-agent",
		Tools: []ToolSpec{
			{
				Name:        "get_weather",
				Description: "Get the current weather for a city",
				Toolkit:     "weather",
				Parameters: []ParameterSpec{
					{Name: "city", Type: "string", Description: "City name", Required: true},
					{Name: "units", Type: "string", Default: "metric", HasDefault: true},
				},
			},
			{
				Name:        "send_email",
				Description: "Send an email",
				Toolkit:     domain.DefaultToolkit,
				Parameters:  []ParameterSpec{},
			},
		},
	}
	if diff := cmp.Diff(want, catalog); diff != "" {
		t.Fatalf("catalog mismatch (-want +got):\n%s", diff)
	}
}

func TestLoader_EnvExpansion(t *testing.T) {
	t.Setenv("TOOL_OWNER", "ops")
	t.Setenv("TOOL_DOC", "Restart a \"service\"")
	t.Setenv("TOOL_FORCE", "true")
	file := writeTempFile(t, "catalog.yml", `
owner: ${TOOL_OWNER}
tools:
  - name: restart
    description: "${TOOL_DOC}"
    parameters:
      - name: force
        type: boolean
        default: ${TOOL_FORCE}
        description: ${TOOL_FORCE_DOC}
`)

	core, logs := observer.New(zapcore.WarnLevel)
	catalog, err := NewLoader(zap.New(core)).Load(context.Background(), file)
	require.NoError(t, err)

	assert.Equal(t, "ops", catalog.OwnerKey)
	require.Len(t, catalog.Tools, 1)
	assert.Equal(t, `Restart a "service"`, catalog.Tools[0].Description)
	force := catalog.Tools[0].Parameters[0]
	assert.Equal(t, true, force.Default)
	assert.Empty(t, force.Description)

	entries := logs.FilterMessage("missing environment variables in config").All()
	require.Len(t, entries, 1)
	assert.Equal(t, []any{"TOOL_FORCE_DOC"}, entries[0].ContextMap()["missing"])
}

func TestLoader_TOML(t *testing.T) {
	file := writeTempFile(t, "catalog.toml", `
owner = "search-agent"

[[tools]]
name = "web_search"
description = "Search the web"
toolkit = "MCP"

[[tools.parameters]]
name = "query"
type = "string"
required = true

[[tools.parameters]]
name = "limit"
type = "integer"
default = 10
`)

	catalog, err := NewLoader(nil).Load(context.Background(), file)
	require.NoError(t, err)

	require.Len(t, catalog.Tools, 1)
	tool := catalog.Tools[0]
	assert.Equal(t, "web_search", tool.Name)
	assert.Equal(t, domain.MCPToolkit, tool.Toolkit)
	require.Len(t, tool.Parameters, 2)
	assert.True(t, tool.Parameters[0].Required)
	assert.True(t, tool.Parameters[1].HasDefault)
	assert.EqualValues(t, 10, tool.Parameters[1].Default)
}

func TestLoader_JSON(t *testing.T) {
	file := writeTempFile(t, "catalog.json", `{
  "owner": "mail-agent",
  "tools": [
    {"name": "send_email", "description": "Send an email", "toolkit": "Default"}
  ]
}`)

	catalog, err := NewLoader(nil).Load(context.Background(), file)
	require.NoError(t, err)
	require.Len(t, catalog.Tools, 1)
	assert.Equal(t, domain.DefaultToolkit, catalog.Tools[0].Toolkit)
}

func TestLoader_ValidationErrors(t *testing.T) {
	file := writeTempFile(t, "catalog.yaml", `
tools:
  - description: nameless
  - name: lookup
    parameters:
      - name: id
        type: uuid
      - name: id
        type: string
      - type: string
`)

	_, err := NewLoader(nil).Load(context.Background(), file)
	require.Error(t, err)
	for _, want := range []string{
		"owner is required",
		"tools[0]: name is required",
		`tools[1].parameters[0]: unknown type "uuid"`,
		`tools[1].parameters[1]: duplicate name "id"`,
		"tools[1].parameters[2]: name is required",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestLoader_Errors(t *testing.T) {
	loader := NewLoader(nil)

	_, err := loader.Load(context.Background(), "")
	require.EqualError(t, err, "catalog path is required")

	_, err = loader.Load(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "read config")

	unknown := writeTempFile(t, "catalog.ini", "owner=x")
	_, err = loader.Load(context.Background(), unknown)
	require.ErrorContains(t, err, `unsupported config format ".ini"`)

	badTOML := writeTempFile(t, "catalog.toml", "owner = ")
	_, err = loader.Load(context.Background(), badTOML)
	require.ErrorContains(t, err, "parse toml")

	valid := writeTempFile(t, "ok.yaml", "owner: x\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = loader.Load(ctx, valid)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCatalog_OwnerNormalizes(t *testing.T) {
	catalog := Catalog{
		OwnerKey: "mixed",
		Tools: []ToolSpec{
			{Name: "send_email", Description: "Send an email", Toolkit: domain.DefaultToolkit},
			{Name: "web_search", Description: "Search the web", Toolkit: domain.MCPToolkit},
			{
				Name:        "get_weather",
				Description: "Get the current weather for a city",
				Toolkit:     "weather",
				Parameters: []ParameterSpec{
					{Name: "units", Type: "string", Default: "metric", HasDefault: true},
					{Name: "city", Type: "string", Required: true},
				},
			},
			{Name: "fetch_page", Description: "Fetch a page", Toolkit: domain.MCPToolkit},
			{Name: "get_forecast", Description: "Forecast", Toolkit: "weather"},
		},
	}

	owner := catalog.Owner()
	require.Equal(t, "mixed", owner.Key())
	require.Len(t, owner.Tools(), 3)

	records := normalizer.New(zap.NewNop(), nil, nil).Normalize(owner)
	var names, toolkits []string
	for _, record := range records {
		names = append(names, record.Name)
		toolkits = append(toolkits, record.Toolkit)
	}
	assert.Equal(t, []string{"send_email", "web_search", "fetch_page", "get_weather", "get_forecast"}, names)
	assert.Equal(t, []string{"default", "MCP", "MCP", "weather", "weather"}, toolkits)

	weather := records[3]
	want := []domain.Parameter{
		{Name: "units", Type: "string", Default: "metric", HasDefault: true, Kind: domain.ParameterKeyword},
		{Name: "city", Type: "string", Kind: domain.ParameterKeyword, Required: true},
	}
	if diff := cmp.Diff(want, weather.Parameters); diff != "" {
		t.Fatalf("parameters mismatch (-want +got):\n%s", diff)
	}
}

func TestCatalog_KeepsDeclaredParameterOrder(t *testing.T) {
	file := writeTempFile(t, "catalog.yaml", `owner: docs-agent
tools:
  - name: search
    description: Search the documentation
    parameters:
      - name: query
        type: string
        required: true
      - name: limit
        type: integer
`)

	catalog, err := NewLoader(nil).Load(context.Background(), file)
	require.NoError(t, err)

	records := normalizer.New(zap.NewNop(), nil, nil).Normalize(catalog.Owner())
	require.Len(t, records, 1)
	assert.Equal(t, "search(query string, limit integer)", records[0].Signature)
}

func writeTempFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}
