// Package eino implements the relevance judge on OpenAI-compatible chat models.
package eino

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"toolscope/internal/domain"
	"toolscope/internal/infra/judge"
)

const providerName = domain.ProviderOpenAI

// Judge asks a chat model for JSON answers.
type Judge struct {
	chat   model.BaseChatModel
	model  string
	logger *zap.Logger
}

// New creates a judge backed by an OpenAI-compatible endpoint.
func New(ctx context.Context, cfg domain.SelectorConfig, logger *zap.Logger) (*Judge, error) {
	chat, err := initializeModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewWithModel(chat, cfg, logger), nil
}

// NewWithModel wraps an existing chat model.
func NewWithModel(chat model.BaseChatModel, cfg domain.SelectorConfig, logger *zap.Logger) *Judge {
	if logger == nil {
		logger = zap.NewNop()
	}
	name := strings.TrimSpace(cfg.Model)
	if name == "" {
		name = domain.DefaultOpenAIModel
	}
	return &Judge{
		chat:   chat,
		model:  name,
		logger: logger.Named("eino"),
	}
}

// initializeModel creates the chat model based on configuration.
func initializeModel(ctx context.Context, cfg domain.SelectorConfig) (model.BaseChatModel, error) {
	apiKey, err := judge.ResolveAPIKey(cfg, domain.DefaultOpenAIKeyEnv)
	if err != nil {
		return nil, err
	}
	chat, err := openai.NewChatModel(ctx, chatModelConfig(cfg, apiKey))
	if err != nil {
		return nil, domain.E(domain.CodeConfiguration, "eino.New", "", fmt.Errorf("initialize model: %w", err))
	}
	return chat, nil
}

// chatModelConfig requests JSON object replies. The reply is a top-level array,
// which strict JSON schema mode does not accept, so the schema travels in the
// system message instead.
func chatModelConfig(cfg domain.SelectorConfig, apiKey string) *openai.ChatModelConfig {
	modelName := strings.TrimSpace(cfg.Model)
	if modelName == "" {
		modelName = domain.DefaultOpenAIModel
	}
	chatCfg := &openai.ChatModelConfig{
		Model:  modelName,
		APIKey: apiKey,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
	if cfg.BaseURL != "" {
		chatCfg.BaseURL = cfg.BaseURL
	}
	return chatCfg
}

// Judge sends the system and user prompt and returns the reply content.
func (j *Judge) Judge(ctx context.Context, req domain.JudgeRequest) (domain.JudgeResponse, error) {
	system, err := systemWithSchema(req)
	if err != nil {
		return domain.JudgeResponse{}, err
	}
	messages := []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(req.Prompt),
	}

	response, err := j.chat.Generate(ctx, messages, model.WithTemperature(req.Temperature))
	if err != nil {
		return domain.JudgeResponse{}, fmt.Errorf("LLM generate: %w", err)
	}
	if response == nil {
		return domain.JudgeResponse{}, fmt.Errorf("LLM generate: empty response")
	}

	out := domain.JudgeResponse{Content: response.Content}
	if response.ResponseMeta != nil && response.ResponseMeta.Usage != nil {
		out.TotalTokens = response.ResponseMeta.Usage.TotalTokens
	}
	return out, nil
}

// systemWithSchema appends the response schema to the system prompt, since chat
// models without native structured output only see it as text.
func systemWithSchema(req domain.JudgeRequest) (string, error) {
	if req.ResponseSchema == nil {
		return req.System, nil
	}
	raw, err := json.Marshal(req.ResponseSchema)
	if err != nil {
		return "", fmt.Errorf("marshal response schema: %w", err)
	}
	var sb strings.Builder
	sb.WriteString(req.System)
	sb.WriteString("\n\nRespond with JSON only, without markdown fences, matching this JSON schema:\n")
	sb.Write(raw)
	return sb.String(), nil
}

// Provider returns the provider label used in metrics.
func (j *Judge) Provider() string { return providerName }

// Model returns the chat model name.
func (j *Judge) Model() string { return j.model }

var _ domain.Judge = (*Judge)(nil)
