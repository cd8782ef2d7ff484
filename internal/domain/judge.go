package domain

import (
	"context"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
)

// SelectorConfig configures the relevance judge and selection bounds.
type SelectorConfig struct {
	Provider       string        `json:"provider"`     // "google" or "openai"
	Model          string        `json:"model"`        // e.g. "gemini-2.5-flash-lite"
	APIKey         string        `json:"apiKey"`       // optional inline API key
	APIKeyEnvVar   string        `json:"apiKeyEnvVar"` // e.g. "GOOGLE_API_KEY"
	BaseURL        string        `json:"baseURL"`      // optional endpoint override
	MaxTools       int           `json:"maxTools"`
	MinTools       int           `json:"minTools"`
	ThinkingBudget int           `json:"thinkingBudget"`
	RankTimeout    time.Duration `json:"rankTimeout,omitempty"` // zero disables the deadline
}

// DefaultSelectorConfig returns the stock configuration.
func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{
		Provider:       DefaultProvider,
		Model:          DefaultGeminiModel,
		APIKeyEnvVar:   DefaultGoogleKeyEnv,
		MaxTools:       DefaultMaxTools,
		MinTools:       DefaultMinTools,
		ThinkingBudget: DefaultThinkingBudget,
		RankTimeout:    DefaultRankTimeout,
	}
}

// JudgeRequest is a single structured-output request to a language model.
type JudgeRequest struct {
	System         string
	Prompt         string
	Temperature    float32
	ResponseSchema *jsonschema.Schema
}

// JudgeResponse carries the raw model output.
type JudgeResponse struct {
	Content     string
	TotalTokens int
}

// Judge asks an external model to answer a JudgeRequest.
type Judge interface {
	Judge(ctx context.Context, req JudgeRequest) (JudgeResponse, error)
	Provider() string
	Model() string
}

// JudgeFunc adapts a function to the Judge interface.
type JudgeFunc func(ctx context.Context, req JudgeRequest) (JudgeResponse, error)

// Judge calls f.
func (f JudgeFunc) Judge(ctx context.Context, req JudgeRequest) (JudgeResponse, error) {
	return f(ctx, req)
}

// Provider returns a fixed label for function judges.
func (f JudgeFunc) Provider() string { return "func" }

// Model returns a fixed label for function judges.
func (f JudgeFunc) Model() string { return "func" }
