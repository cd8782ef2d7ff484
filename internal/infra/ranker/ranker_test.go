package ranker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"toolscope/internal/domain"
	"toolscope/internal/infra/telemetry"
)

type mockJudge struct {
	judgeFn  func(ctx context.Context, req domain.JudgeRequest) (domain.JudgeResponse, error)
	requests []domain.JudgeRequest
}

func (m *mockJudge) Judge(ctx context.Context, req domain.JudgeRequest) (domain.JudgeResponse, error) {
	m.requests = append(m.requests, req)
	if m.judgeFn != nil {
		return m.judgeFn(ctx, req)
	}
	return domain.JudgeResponse{Content: "[]"}, nil
}

func (m *mockJudge) Provider() string { return "mock" }

func (m *mockJudge) Model() string { return "mock-model" }

func respondWith(content string) *mockJudge {
	return &mockJudge{judgeFn: func(context.Context, domain.JudgeRequest) (domain.JudgeResponse, error) {
		return domain.JudgeResponse{Content: content, TotalTokens: 42}, nil
	}}
}

type rankRecorder struct {
	telemetry.NoopMetrics
	ranks []domain.RankMetric
}

func (r *rankRecorder) ObserveRank(metric domain.RankMetric) {
	r.ranks = append(r.ranks, metric)
}

func TestRank_ParsesJudgeAnswer(t *testing.T) {
	judge := respondWith(`[{"name":"get_weather","toolkit":"default","relevance":9},{"name":"send_email","relevance":2}]`)
	metrics := &rankRecorder{}
	r := New(judge, metrics, zap.NewNop())

	got, err := r.Rank(context.Background(), "What's the weather in Paris?", nil, weatherEmailCatalog(), 50, 3)
	require.NoError(t, err)
	assert.Equal(t, []domain.ToolSelection{
		{Name: "get_weather", Toolkit: "default", Relevance: 9},
		{Name: "send_email", Toolkit: "default", Relevance: 2},
	}, got)

	require.Len(t, metrics.ranks, 1)
	assert.Equal(t, 42, metrics.ranks[0].Tokens)
	assert.Equal(t, "mock", metrics.ranks[0].Provider)
	assert.NoError(t, metrics.ranks[0].Err)
}

func TestRank_BuildsRequest(t *testing.T) {
	judge := respondWith(`[]`)
	history := []domain.HistoryMessage{{"role": "user", "content": "hi there"}}

	_, err := New(judge, nil, nil).Rank(context.Background(), "forecast please", history, weatherEmailCatalog(), 7, 3)
	require.NoError(t, err)
	require.Len(t, judge.requests, 1)

	req := judge.requests[0]
	assert.Equal(t, systemPrompt, req.System)
	assert.Equal(t, float32(0), req.Temperature)
	require.NotNil(t, req.ResponseSchema)
	assert.Equal(t, "array", req.ResponseSchema.Type)

	for _, want := range []string{
		"###Latest user message:\nforecast please",
		"###Conversation history:\n[{\"content\":\"hi there\",\"role\":\"user\"}]",
		"###Available tools:",
		`"name":"get_weather"`,
		"a minimum of 3 up to a maximum of 7",
	} {
		assert.Contains(t, req.Prompt, want)
	}
}

func TestRank_FailsClosed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "not json", content: "I think get_weather"},
		{name: "empty", content: "   "},
		{name: "object instead of array", content: `{"name":"get_weather","relevance":5}`},
		{name: "unknown tool", content: `[{"name":"get_weather","relevance":9},{"name":"book_flight","relevance":8}]`},
		{name: "relevance too high", content: `[{"name":"get_weather","relevance":11}]`},
		{name: "negative relevance", content: `[{"name":"get_weather","relevance":-1}]`},
		{name: "fractional relevance", content: `[{"name":"get_weather","relevance":7.5}]`},
		{name: "missing relevance", content: `[{"name":"get_weather"}]`},
		{name: "string relevance", content: `[{"name":"get_weather","toolkit":"default","relevance":"7"}]`},
		{name: "null relevance", content: `[{"name":"get_weather","relevance":null}]`},
		{name: "boolean relevance", content: `[{"name":"get_weather","relevance":true}]`},
		{name: "missing name", content: `[{"relevance":3}]`},
		{name: "empty name", content: `[{"name":"","relevance":3}]`},
		{name: "trailing data", content: `[] []`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(respondWith(tt.content), nil, nil).Rank(context.Background(), "weather", nil, weatherEmailCatalog(), 50, 3)
			require.Error(t, err)
			assert.Nil(t, got)
			assert.ErrorIs(t, err, domain.ErrRankingFailed)
			code, ok := domain.CodeFrom(err)
			require.True(t, ok)
			assert.Equal(t, domain.CodeRankingFailed, code)
		})
	}
}

func TestRank_JudgeError(t *testing.T) {
	boom := errors.New("quota exceeded")
	judge := &mockJudge{judgeFn: func(context.Context, domain.JudgeRequest) (domain.JudgeResponse, error) {
		return domain.JudgeResponse{}, boom
	}}
	metrics := &rankRecorder{}

	_, err := New(judge, metrics, nil).Rank(context.Background(), "weather", nil, weatherEmailCatalog(), 50, 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRankingFailed)
	assert.ErrorIs(t, err, boom)
	require.Len(t, metrics.ranks, 1)
	assert.ErrorIs(t, metrics.ranks[0].Err, boom)
}

func TestRank_NoJudge(t *testing.T) {
	_, err := New(nil, nil, nil).Rank(context.Background(), "weather", nil, weatherEmailCatalog(), 50, 3)
	assert.ErrorIs(t, err, domain.ErrRankingFailed)
}

func TestRank_AcceptsFewerThanMinTools(t *testing.T) {
	judge := respondWith(`[{"name":"get_weather","relevance":9},{"name":"send_email","relevance":1}]`)

	got, err := New(judge, nil, nil).Rank(context.Background(), "weather", nil, weatherEmailCatalog(), 50, 3)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestRank_TruncatesToMaxTools(t *testing.T) {
	judge := respondWith(`[{"name":"get_weather","relevance":9},{"name":"send_email","relevance":1}]`)

	got, err := New(judge, nil, nil).Rank(context.Background(), "weather", nil, weatherEmailCatalog(), 1, 3)
	require.NoError(t, err)
	assert.Equal(t, []domain.ToolSelection{{Name: "get_weather", Toolkit: "default", Relevance: 9}}, got)
}

func TestRank_NonPositiveMaxSkipsJudge(t *testing.T) {
	judge := respondWith(`[{"name":"get_weather","relevance":9}]`)

	got, err := New(judge, nil, nil).Rank(context.Background(), "weather", nil, weatherEmailCatalog(), 0, 3)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, judge.requests)
}

func TestRank_FillsToolkitFromCatalog(t *testing.T) {
	catalog := []domain.ToolRecord{{Name: "docs_search", Docstring: "Search docs", Toolkit: "MCP"}}
	judge := respondWith("```json\n[{\"name\":\"docs_search\",\"relevance\":7.0}]\n```")

	got, err := New(judge, nil, nil).Rank(context.Background(), "search docs", nil, catalog, 5, 3)
	require.NoError(t, err)
	assert.Equal(t, []domain.ToolSelection{{Name: "docs_search", Toolkit: "MCP", Relevance: 7}}, got)
}

func TestRank_PropagatesContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	judge := &mockJudge{judgeFn: func(ctx context.Context, _ domain.JudgeRequest) (domain.JudgeResponse, error) {
		return domain.JudgeResponse{}, ctx.Err()
	}}

	_, err := New(judge, nil, nil).Rank(ctx, "weather", nil, weatherEmailCatalog(), 5, 3)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, domain.ErrRankingFailed)
}

func TestResponseSchema(t *testing.T) {
	schema, err := ResponseSchema()
	require.NoError(t, err)
	require.NotNil(t, schema.Items)

	assert.ElementsMatch(t, []string{"name", "relevance"}, schema.Items.Required)
	relevance := schema.Items.Properties["relevance"]
	require.NotNil(t, relevance)
	assert.Equal(t, "integer", relevance.Type)
	require.NotNil(t, relevance.Maximum)
	assert.Equal(t, float64(10), *relevance.Maximum)
	assert.True(t, strings.Contains(relevance.Description, "out of 10"))

	schema.Items.Required = nil
	again, err := ResponseSchema()
	require.NoError(t, err)
	assert.Len(t, again.Items.Required, 2)
}

func TestRank_DuplicateNameUsesFirstToolkit(t *testing.T) {
	catalog := []domain.ToolRecord{
		{Name: "search", Docstring: "Search docs", Toolkit: "docs"},
		{Name: "search", Docstring: "Search the web", Toolkit: "MCP"},
	}
	judge := respondWith(`[{"name":"search","relevance":8}]`)

	got, err := New(judge, nil, nil).Rank(context.Background(), "search", nil, catalog, 5, 1)
	require.NoError(t, err)
	assert.Equal(t, []domain.ToolSelection{{Name: "search", Toolkit: "docs", Relevance: 8}}, got)
}
