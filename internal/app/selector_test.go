package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"toolscope/internal/domain"
	"toolscope/internal/infra/normalizer"
	"toolscope/internal/infra/ranker"
	"toolscope/internal/infra/telemetry"
)

type countingOwner struct {
	key     string
	entries []domain.ToolEntry
	calls   atomic.Int32
}

func (o *countingOwner) Key() string { return o.key }

func (o *countingOwner) Tools() []domain.ToolEntry {
	o.calls.Add(1)
	return o.entries
}

func weatherEmailOwner() *countingOwner {
	return &countingOwner{
		key: "travel-agent",
		entries: []domain.ToolEntry{
			domain.BareCallable{Callable: domain.Callable{
				Name: "send_email",
				Doc:  "Send an email",
				Fn:   func(to, body string) error { return nil },
			}},
			domain.BareCallable{Callable: domain.Callable{
				Name:       "get_weather",
				Doc:        "Get the current weather for a city",
				Fn:         func(city string) (string, error) { return "", nil },
				ParamNames: []string{"city"},
			}},
		},
	}
}

type selectionCall struct {
	provenance  domain.Provenance
	selected    int
	catalogSize int
}

type recordingMetrics struct {
	telemetry.NoopMetrics
	mu         sync.Mutex
	selections []selectionCall
}

func (m *recordingMetrics) ObserveSelection(provenance domain.Provenance, selected int, catalogSize int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selections = append(m.selections, selectionCall{provenance, selected, catalogSize})
}

type judgeStub struct {
	mu       sync.Mutex
	requests []domain.JudgeRequest
	respond  func(ctx context.Context, req domain.JudgeRequest) (domain.JudgeResponse, error)
}

func (j *judgeStub) Judge(ctx context.Context, req domain.JudgeRequest) (domain.JudgeResponse, error) {
	j.mu.Lock()
	j.requests = append(j.requests, req)
	j.mu.Unlock()
	return j.respond(ctx, req)
}

func (j *judgeStub) Provider() string { return "stub" }
func (j *judgeStub) Model() string    { return "stub-model" }

func (j *judgeStub) Requests() []domain.JudgeRequest {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]domain.JudgeRequest(nil), j.requests...)
}

func answer(content string) *judgeStub {
	return &judgeStub{respond: func(context.Context, domain.JudgeRequest) (domain.JudgeResponse, error) {
		return domain.JudgeResponse{Content: content, TotalTokens: 42}, nil
	}}
}

func newTestSelector(t *testing.T, judge domain.Judge, cfg domain.SelectorConfig, metrics domain.Metrics, logger *zap.Logger) *Selector {
	t.Helper()
	opts := SelectorOptions{
		Catalogs: normalizer.New(logger, metrics, nil),
		Config:   cfg,
		Metrics:  metrics,
		Logger:   logger,
	}
	if judge != nil {
		opts.Ranker = ranker.New(judge, metrics, logger)
	}
	selector, err := NewSelector(opts)
	require.NoError(t, err)
	return selector
}

func TestSelector_PrimaryRanking(t *testing.T) {
	judge := answer(`[{"name": "get_weather", "toolkit": "default", "relevance": 9}]`)
	metrics := &recordingMetrics{}
	selector := newTestSelector(t, judge, domain.DefaultSelectorConfig(), metrics, zap.NewNop())

	selection := selector.Select(context.Background(), weatherEmailOwner(), "what's the weather in Paris", nil, 5)

	want := []domain.ToolSelection{{Name: "get_weather", Toolkit: "default", Relevance: 9}}
	if diff := cmp.Diff(want, selection.Tools); diff != "" {
		t.Fatalf("selection mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, domain.ProvenancePrimary, selection.Provenance)
	assert.False(t, selection.Degraded())
	assert.NoError(t, selection.RankError)
	assert.Equal(t, "travel-agent", selection.OwnerKey)
	assert.Equal(t, 2, selection.CatalogSize)
	assert.Equal(t, []selectionCall{{domain.ProvenancePrimary, 1, 2}}, metrics.selections)

	requests := judge.Requests()
	require.Len(t, requests, 1)
	assert.Contains(t, requests[0].Prompt, "###Conversation history:\n[]")
	assert.Contains(t, requests[0].Prompt, "a minimum of 3 up to a maximum of 5")
}

func TestSelector_JudgeFailureFallsBack(t *testing.T) {
	judge := &judgeStub{respond: func(context.Context, domain.JudgeRequest) (domain.JudgeResponse, error) {
		return domain.JudgeResponse{}, errors.New("quota exceeded")
	}}
	core, logs := observer.New(zapcore.ErrorLevel)
	metrics := &recordingMetrics{}
	selector := newTestSelector(t, judge, domain.DefaultSelectorConfig(), metrics, zap.New(core))

	selection := selector.Select(context.Background(), weatherEmailOwner(), "what's the weather in Paris", nil, 5)

	want := []domain.ToolSelection{
		{Name: "get_weather", Toolkit: "default", Relevance: 4},
		{Name: "send_email", Toolkit: "default", Relevance: 0},
	}
	if diff := cmp.Diff(want, selection.Tools); diff != "" {
		t.Fatalf("selection mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, selection.Degraded())
	assert.True(t, domain.IsRankingFailure(selection.RankError))
	assert.ErrorContains(t, selection.RankError, "quota exceeded")
	assert.Equal(t, []selectionCall{{domain.ProvenanceFallback, 2, 2}}, metrics.selections)

	entries := logs.FilterMessage("relevance ranking failed, using keyword fallback").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, telemetry.EventFallback, fields[telemetry.FieldEvent])
	assert.Equal(t, "travel-agent", fields[telemetry.FieldOwnerKey])
	assert.NotEmpty(t, fields[telemetry.FieldRequestID])
	assert.Contains(t, fields["error"], "quota exceeded")
}

func TestSelector_MalformedAnswerFallsBack(t *testing.T) {
	selector := newTestSelector(t, answer(`[{"name": "book_flight", "relevance": 8}]`), domain.DefaultSelectorConfig(), nil, nil)

	tools := selector.SelectTools(context.Background(), weatherEmailOwner(), "send an email to Bob", nil, 1)

	assert.Equal(t, []domain.ToolSelection{{Name: "send_email", Toolkit: "default", Relevance: 6}}, tools)
}

func TestSelector_OfflineUsesFallback(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	selector := newTestSelector(t, nil, domain.DefaultSelectorConfig(), nil, zap.New(core))

	selection := selector.Select(context.Background(), weatherEmailOwner(), "weather", nil, 1)

	assert.Equal(t, domain.ProvenanceFallback, selection.Provenance)
	assert.Equal(t, []domain.ToolSelection{{Name: "get_weather", Toolkit: "default", Relevance: 2}}, selection.Tools)
	assert.Zero(t, logs.Len())
}

func TestSelector_EmptyCatalog(t *testing.T) {
	judge := answer(`[]`)
	metrics := &recordingMetrics{}
	selector := newTestSelector(t, judge, domain.DefaultSelectorConfig(), metrics, nil)

	for _, owner := range []domain.ToolOwner{
		&domain.StaticOwner{OwnerKey: "empty"},
		nil,
	} {
		selection := selector.Select(context.Background(), owner, "anything", nil, 5)
		assert.Equal(t, []domain.ToolSelection{}, selection.Tools)
		assert.Equal(t, domain.ProvenancePrimary, selection.Provenance)
		assert.Zero(t, selection.CatalogSize)
	}
	assert.Empty(t, judge.Requests())
	assert.Len(t, metrics.selections, 2)
}

func TestSelector_FewerThanMinToolsAccepted(t *testing.T) {
	judge := answer(`[{"name": "get_weather", "relevance": 9}, {"name": "send_email", "relevance": 1}]`)
	cfg := domain.DefaultSelectorConfig()
	cfg.MinTools = 3
	selector := newTestSelector(t, judge, cfg, nil, nil)

	selection := selector.Select(context.Background(), weatherEmailOwner(), "weather", nil, 10)

	assert.Equal(t, domain.ProvenancePrimary, selection.Provenance)
	assert.Len(t, selection.Tools, 2)
}

func TestSelector_DefaultMaxTools(t *testing.T) {
	judge := answer(`[]`)
	cfg := domain.DefaultSelectorConfig()
	cfg.MaxTools = 0
	selector := newTestSelector(t, judge, cfg, nil, nil)
	require.Equal(t, domain.DefaultMaxTools, selector.Config().MaxTools)

	selector.SelectTools(context.Background(), weatherEmailOwner(), "weather", []domain.HistoryMessage{{"role": "user", "content": "hi"}}, 0)

	requests := judge.Requests()
	require.Len(t, requests, 1)
	assert.Contains(t, requests[0].Prompt, "up to a maximum of 50")
	assert.Contains(t, requests[0].Prompt, `"content":"hi"`)
}

func TestSelector_CachesCatalogPerOwner(t *testing.T) {
	selector := newTestSelector(t, answer(`[]`), domain.DefaultSelectorConfig(), nil, nil)
	owner := weatherEmailOwner()

	for i := 0; i < 3; i++ {
		selector.SelectTools(context.Background(), owner, "weather", nil, 5)
	}
	assert.Equal(t, int32(1), owner.calls.Load())

	selector.Invalidate(owner.Key())
	selector.SelectTools(context.Background(), owner, "weather", nil, 5)
	assert.Equal(t, int32(2), owner.calls.Load())

	selector.ClearCache()
	selector.SelectTools(context.Background(), owner, "weather", nil, 5)
	assert.Equal(t, int32(3), owner.calls.Load())
}

func TestSelector_RankTimeout(t *testing.T) {
	judge := &judgeStub{respond: func(ctx context.Context, _ domain.JudgeRequest) (domain.JudgeResponse, error) {
		<-ctx.Done()
		return domain.JudgeResponse{}, ctx.Err()
	}}
	cfg := domain.DefaultSelectorConfig()
	cfg.RankTimeout = 20 * time.Millisecond
	selector := newTestSelector(t, judge, cfg, nil, nil)

	selection := selector.Select(context.Background(), weatherEmailOwner(), "weather", nil, 5)

	assert.Equal(t, domain.ProvenanceFallback, selection.Provenance)
	assert.ErrorIs(t, selection.RankError, context.DeadlineExceeded)
	assert.Len(t, selection.Tools, 2)
}

type panickingRanker struct{}

func (panickingRanker) Rank(context.Context, string, []domain.HistoryMessage, []domain.ToolRecord, int, int) ([]domain.ToolSelection, error) {
	panic("judge exploded")
}

func TestSelector_RankerPanicFallsBack(t *testing.T) {
	selector, err := NewSelector(SelectorOptions{
		Catalogs: normalizer.New(nil, nil, nil),
		Ranker:   panickingRanker{},
		Config:   domain.DefaultSelectorConfig(),
	})
	require.NoError(t, err)

	selection := selector.Select(context.Background(), weatherEmailOwner(), "email", nil, 5)

	assert.True(t, selection.Degraded())
	assert.True(t, strings.Contains(selection.RankError.Error(), "judge exploded"))
	assert.Equal(t, "send_email", selection.Tools[0].Name)
}

func TestSelector_ConcurrentSelections(t *testing.T) {
	selector := newTestSelector(t, answer(`[{"name": "get_weather", "relevance": 7}]`), domain.DefaultSelectorConfig(), nil, nil)
	owner := weatherEmailOwner()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tools := selector.SelectTools(context.Background(), owner, "weather", nil, 5)
			assert.Len(t, tools, 1)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), owner.calls.Load())
}

func TestNewSelector_RequiresCatalogs(t *testing.T) {
	_, err := NewSelector(SelectorOptions{})
	code, ok := domain.CodeFrom(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeConfiguration, code)
}

func TestNewJudge_UnsupportedProvider(t *testing.T) {
	_, err := NewJudge(context.Background(), domain.SelectorConfig{Provider: "anthropic"}, nil)
	assert.ErrorIs(t, err, domain.ErrUnsupportedProvider)
	code, _ := domain.CodeFrom(err)
	assert.Equal(t, domain.CodeConfiguration, code)
}

func TestInitializeSelector_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	cfg := domain.DefaultSelectorConfig()
	_, err := InitializeSelector(context.Background(), cfg, LoggingConfig{}, nil)
	assert.ErrorIs(t, err, domain.ErrMissingCredentials)
}

func TestInitializeOfflineSelector(t *testing.T) {
	selector, err := InitializeOfflineSelector(domain.DefaultSelectorConfig(), LoggingConfig{Logger: zap.NewNop()}, NewMetricsRegistry())
	require.NoError(t, err)

	selection := selector.Select(context.Background(), weatherEmailOwner(), "weather", nil, 5)
	assert.Equal(t, domain.ProvenanceFallback, selection.Provenance)
}
