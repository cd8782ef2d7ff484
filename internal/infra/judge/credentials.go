// Package judge holds helpers shared by the relevance judge backends.
package judge

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"toolscope/internal/domain"
)

const opResolveKey = "judge.ResolveAPIKey"

// ResolveAPIKey returns the inline API key or reads it from the configured env var,
// falling back to defaultEnvVar when none is configured.
func ResolveAPIKey(cfg domain.SelectorConfig, defaultEnvVar string) (string, error) {
	if apiKey := strings.TrimSpace(cfg.APIKey); apiKey != "" {
		return apiKey, nil
	}
	envVar := strings.TrimSpace(cfg.APIKeyEnvVar)
	if envVar == "" {
		envVar = defaultEnvVar
	}
	if envVar == "" {
		return "", domain.E(domain.CodeConfiguration, opResolveKey,
			"API key is required: set apiKey or apiKeyEnvVar", domain.ErrMissingCredentials)
	}
	apiKey := strings.TrimSpace(os.Getenv(envVar))
	if apiKey == "" {
		return "", domain.E(domain.CodeConfiguration, opResolveKey,
			fmt.Sprintf("API key not found in env var %s", envVar), domain.ErrMissingCredentials)
	}
	return apiKey, nil
}

// SchemaValue converts a schema into a plain JSON value for SDKs that accept
// an untyped JSON schema.
func SchemaValue(schema *jsonschema.Schema) (any, error) {
	if schema == nil {
		return nil, nil
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal response schema: %w", err)
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("unmarshal response schema: %w", err)
	}
	return value, nil
}
