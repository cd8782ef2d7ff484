package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"toolscope/internal/domain"
)

// EnvPrefix prefixes environment overrides, e.g. TOOLSCOPE_SELECTOR_PROVIDER.
const EnvPrefix = "TOOLSCOPE"

type rawSettings struct {
	Selector rawSelectorConfig `mapstructure:"selector"`
}

type rawSelectorConfig struct {
	Provider       string        `mapstructure:"provider"`
	Model          string        `mapstructure:"model"`
	APIKey         string        `mapstructure:"apiKey"`
	APIKeyEnvVar   string        `mapstructure:"apiKeyEnvVar"`
	BaseURL        string        `mapstructure:"baseURL"`
	MaxTools       int           `mapstructure:"maxTools"`
	MinTools       int           `mapstructure:"minTools"`
	ThinkingBudget int           `mapstructure:"thinkingBudget"`
	RankTimeout    time.Duration `mapstructure:"rankTimeout"`
}

func newSettingsViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setSettingsDefaults(v)
	return v
}

func setSettingsDefaults(v *viper.Viper) {
	v.SetDefault("selector.provider", domain.DefaultProvider)
	v.SetDefault("selector.model", "")
	v.SetDefault("selector.apiKey", "")
	v.SetDefault("selector.apiKeyEnvVar", "")
	v.SetDefault("selector.baseURL", "")
	v.SetDefault("selector.maxTools", domain.DefaultMaxTools)
	v.SetDefault("selector.minTools", domain.DefaultMinTools)
	v.SetDefault("selector.thinkingBudget", domain.DefaultThinkingBudget)
	v.SetDefault("selector.rankTimeout", domain.DefaultRankTimeout)
}

// LoadSettings reads the selector settings at path. An empty path yields the
// defaults with environment overrides applied.
func (l *Loader) LoadSettings(ctx context.Context, path string) (domain.SelectorConfig, error) {
	v := newSettingsViper()
	if path != "" {
		if err := l.readInto(v, path); err != nil {
			return domain.SelectorConfig{}, err
		}
	}

	var raw rawSettings
	if err := v.Unmarshal(&raw); err != nil {
		return domain.SelectorConfig{}, fmt.Errorf("decode settings: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return domain.SelectorConfig{}, err
	}

	cfg, errs := normalizeSelectorConfig(raw.Selector)
	if len(errs) > 0 {
		return domain.SelectorConfig{}, domain.E(domain.CodeConfiguration, "catalog.LoadSettings", "", errors.New(strings.Join(errs, "; ")))
	}
	l.logger.Debug("settings loaded",
		zap.String("path", path),
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
	)
	return cfg, nil
}

func normalizeSelectorConfig(raw rawSelectorConfig) (domain.SelectorConfig, []string) {
	cfg := domain.SelectorConfig{
		Provider:       strings.ToLower(strings.TrimSpace(raw.Provider)),
		Model:          strings.TrimSpace(raw.Model),
		APIKey:         strings.TrimSpace(raw.APIKey),
		APIKeyEnvVar:   strings.TrimSpace(raw.APIKeyEnvVar),
		BaseURL:        strings.TrimSpace(raw.BaseURL),
		MaxTools:       raw.MaxTools,
		MinTools:       raw.MinTools,
		ThinkingBudget: raw.ThinkingBudget,
		RankTimeout:    raw.RankTimeout,
	}

	var errs []string
	switch cfg.Provider {
	case "", domain.ProviderGoogle:
		cfg.Provider = domain.ProviderGoogle
		if cfg.Model == "" {
			cfg.Model = domain.DefaultGeminiModel
		}
		if cfg.APIKeyEnvVar == "" {
			cfg.APIKeyEnvVar = domain.DefaultGoogleKeyEnv
		}
	case domain.ProviderOpenAI:
		if cfg.Model == "" {
			cfg.Model = domain.DefaultOpenAIModel
		}
		if cfg.APIKeyEnvVar == "" {
			cfg.APIKeyEnvVar = domain.DefaultOpenAIKeyEnv
		}
	default:
		errs = append(errs, fmt.Sprintf("selector.provider: unsupported provider %q", raw.Provider))
	}
	if cfg.MaxTools < 0 {
		errs = append(errs, "selector.maxTools must be >= 0")
	}
	if cfg.MinTools < 0 {
		errs = append(errs, "selector.minTools must be >= 0")
	}
	if cfg.MaxTools > 0 && cfg.MinTools > cfg.MaxTools {
		errs = append(errs, "selector.minTools must not exceed selector.maxTools")
	}
	if cfg.ThinkingBudget < 0 {
		errs = append(errs, "selector.thinkingBudget must be >= 0")
	}
	if cfg.RankTimeout < 0 {
		errs = append(errs, "selector.rankTimeout must be >= 0")
	}
	return cfg, errs
}
