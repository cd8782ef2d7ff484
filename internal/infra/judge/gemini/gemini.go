// Package gemini implements the relevance judge on Google's Gemini models.
package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"toolscope/internal/domain"
	"toolscope/internal/infra/judge"
)

const providerName = domain.ProviderGoogle

// generator is the subset of genai.Models used by the judge.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Judge asks a Gemini model for structured JSON answers.
type Judge struct {
	models         generator
	model          string
	thinkingBudget int32
	logger         *zap.Logger
}

// New creates a Gemini judge from the selector configuration. The API key is read
// from cfg.APIKey, cfg.APIKeyEnvVar, or GOOGLE_API_KEY in that order.
func New(ctx context.Context, cfg domain.SelectorConfig, httpClient *http.Client, logger *zap.Logger) (*Judge, error) {
	apiKey, err := judge.ResolveAPIKey(cfg, domain.DefaultGoogleKeyEnv)
	if err != nil {
		return nil, err
	}
	clientConfig := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}
	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, domain.E(domain.CodeConfiguration, "gemini.New", "", fmt.Errorf("creating GenAI client: %w", err))
	}
	return newJudge(client.Models, cfg, logger), nil
}

func newJudge(models generator, cfg domain.SelectorConfig, logger *zap.Logger) *Judge {
	if logger == nil {
		logger = zap.NewNop()
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = domain.DefaultGeminiModel
	}
	budget := cfg.ThinkingBudget
	if budget <= 0 {
		budget = domain.DefaultThinkingBudget
	}
	return &Judge{
		models:         models,
		model:          model,
		thinkingBudget: int32(budget),
		logger:         logger.Named("gemini"),
	}
}

// Judge sends req as a single user turn and returns the model's JSON text.
func (j *Judge) Judge(ctx context.Context, req domain.JudgeRequest) (domain.JudgeResponse, error) {
	config, err := j.generateConfig(req)
	if err != nil {
		return domain.JudgeResponse{}, err
	}
	contents := []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}

	resp, err := j.models.GenerateContent(ctx, j.model, contents, config)
	if err != nil {
		return domain.JudgeResponse{}, fmt.Errorf("generating content: %w", err)
	}
	if resp == nil {
		return domain.JudgeResponse{}, fmt.Errorf("empty completion response")
	}

	out := domain.JudgeResponse{Content: resp.Text()}
	if resp.UsageMetadata != nil {
		out.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	if out.Content == "" {
		j.logger.Debug("gemini returned no text", zap.Int("candidates", len(resp.Candidates)))
	}
	return out, nil
}

func (j *Judge) generateConfig(req domain.JudgeRequest) (*genai.GenerateContentConfig, error) {
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(req.Temperature),
		ResponseMIMEType: "application/json",
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  genai.Ptr(j.thinkingBudget),
		},
	}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{genai.NewPartFromText(req.System)}}
	}
	if req.ResponseSchema != nil {
		schema, err := judge.SchemaValue(req.ResponseSchema)
		if err != nil {
			return nil, err
		}
		config.ResponseJsonSchema = schema
	}
	return config, nil
}

// Provider returns the provider label used in metrics.
func (j *Judge) Provider() string { return providerName }

// Model returns the Gemini model name.
func (j *Judge) Model() string { return j.model }

var _ domain.Judge = (*Judge)(nil)
