package domain

import "time"

const (
	ProviderGoogle = "google"
	ProviderOpenAI = "openai"
)

const (
	DefaultProvider       = ProviderGoogle
	DefaultGeminiModel    = "gemini-2.5-flash-lite"
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultGoogleKeyEnv   = "GOOGLE_API_KEY"
	DefaultOpenAIKeyEnv   = "OPENAI_API_KEY"
	DefaultMaxTools       = 50
	DefaultMinTools       = 3
	DefaultThinkingBudget = 1024
	DefaultRankTimeout    = time.Duration(0)
	DefaultToolkit        = "default"
	MCPToolkit            = "MCP"
	MinRelevance          = 0
	MaxRelevance          = 10
)
