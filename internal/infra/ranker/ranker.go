package ranker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"toolscope/internal/domain"
	"toolscope/internal/infra/telemetry"
)

const opRank = "ranker.Rank"

// Ranker asks a relevance judge to score catalog tools against a request.
type Ranker struct {
	judge   domain.Judge
	metrics domain.Metrics
	logger  *zap.Logger
}

// New creates a Ranker backed by judge.
func New(judge domain.Judge, metrics domain.Metrics, logger *zap.Logger) *Ranker {
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ranker{
		judge:   judge,
		metrics: metrics,
		logger:  logger.Named("ranker"),
	}
}

// Rank returns up to maxTools selections ordered by the judge. Any judge, decoding
// or validation failure fails the whole call with an error matching
// domain.ErrRankingFailed; partial answers are never returned. minTools is
// passed to the judge as guidance only.
func (r *Ranker) Rank(
	ctx context.Context,
	message string,
	history []domain.HistoryMessage,
	catalog []domain.ToolRecord,
	maxTools int,
	minTools int,
) ([]domain.ToolSelection, error) {
	if r.judge == nil {
		return nil, domain.RankingFailure(opRank, fmt.Errorf("no relevance judge configured"))
	}
	if maxTools <= 0 {
		return []domain.ToolSelection{}, nil
	}

	prompt, err := buildPrompt(message, history, catalog, maxTools, minTools)
	if err != nil {
		return nil, domain.RankingFailure(opRank, err)
	}
	schema, err := ResponseSchema()
	if err != nil {
		return nil, domain.RankingFailure(opRank, fmt.Errorf("response schema: %w", err))
	}

	started := time.Now()
	response, err := r.judge.Judge(ctx, domain.JudgeRequest{
		System:         systemPrompt,
		Prompt:         prompt,
		Temperature:    0,
		ResponseSchema: schema,
	})
	elapsed := time.Since(started)
	r.metrics.ObserveRank(domain.RankMetric{
		Provider: r.judge.Provider(),
		Model:    r.judge.Model(),
		Duration: elapsed,
		Tokens:   response.TotalTokens,
		Err:      err,
	})
	if err != nil {
		return nil, domain.RankingFailure(opRank, fmt.Errorf("judge: %w", err))
	}

	selections, err := parseSelections(response.Content, domain.CatalogIndex(catalog))
	if err != nil {
		return nil, domain.RankingFailure(opRank, err)
	}
	if len(selections) > maxTools {
		r.logger.Debug("truncating judge answer",
			zap.Int("returned", len(selections)),
			zap.Int("max_tools", maxTools),
		)
		selections = selections[:maxTools]
	}

	telemetry.LoggerWithSelection(ctx, r.logger).Debug("tools ranked",
		telemetry.EventField(telemetry.EventRankSuccess),
		telemetry.ProviderField(r.judge.Provider()),
		telemetry.ModelField(r.judge.Model()),
		telemetry.DurationField(elapsed),
		zap.Int("selected", len(selections)),
	)
	return selections, nil
}

type rawSelection struct {
	Name      *string         `json:"name"`
	Toolkit   *string         `json:"toolkit"`
	Relevance json.RawMessage `json:"relevance"`
}

// parseSelections decodes and validates a judge answer against the catalog.
func parseSelections(content string, catalog map[string]domain.ToolRecord) ([]domain.ToolSelection, error) {
	payload := stripCodeFence(content)
	if payload == "" {
		return nil, fmt.Errorf("empty judge response")
	}

	decoder := json.NewDecoder(strings.NewReader(payload))
	decoder.UseNumber()
	var raw []rawSelection
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}
	if decoder.More() {
		return nil, fmt.Errorf("invalid JSON response: trailing data")
	}

	result := make([]domain.ToolSelection, 0, len(raw))
	for i, item := range raw {
		if item.Name == nil {
			return nil, fmt.Errorf("%w: entry %d has no name", domain.ErrInvalidSelection, i)
		}
		if len(item.Relevance) == 0 || string(item.Relevance) == "null" {
			return nil, fmt.Errorf("%w: entry %d (%s) has no relevance", domain.ErrInvalidSelection, i, *item.Name)
		}
		relevance, err := numericRelevance(item.Relevance)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d (%s): %v", domain.ErrInvalidSelection, i, *item.Name, err)
		}

		selection := domain.ToolSelection{
			Name:      *item.Name,
			Relevance: relevance,
		}
		if item.Toolkit != nil && strings.TrimSpace(*item.Toolkit) != "" {
			selection.Toolkit = *item.Toolkit
		} else if record, ok := catalog[selection.Name]; ok {
			selection.Toolkit = domain.ToolkitOrDefault(record.Toolkit)
		} else {
			selection.Toolkit = domain.DefaultToolkit
		}

		if err := selection.Validate(catalog); err != nil {
			return nil, err
		}
		result = append(result, selection)
	}
	return result, nil
}

// numericRelevance rejects any relevance token that is not a JSON number, such as "7".
func numericRelevance(raw json.RawMessage) (int, error) {
	token := bytes.TrimSpace(raw)
	if len(token) == 0 || (token[0] != '-' && (token[0] < '0' || token[0] > '9')) {
		return 0, fmt.Errorf("relevance %s is not a number", token)
	}
	return integerRelevance(json.Number(token))
}

// integerRelevance accepts integral JSON numbers only; 7 and 7.0 pass, 7.5 fails.
func integerRelevance(number json.Number) (int, error) {
	if value, err := number.Int64(); err == nil {
		if value < math.MinInt32 || value > math.MaxInt32 {
			return 0, fmt.Errorf("relevance %s out of range", number)
		}
		return int(value), nil
	}
	value, err := number.Float64()
	if err != nil {
		return 0, fmt.Errorf("relevance %q is not a number", number.String())
	}
	if value != math.Trunc(value) || math.IsInf(value, 0) || value < math.MinInt32 || value > math.MaxInt32 {
		return 0, fmt.Errorf("relevance %s is not an integer", number)
	}
	return int(value), nil
}

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
