package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"toolscope/internal/app"
	"toolscope/internal/domain"
	"toolscope/internal/infra/catalog"
)

type cliOptions struct {
	configPath  string
	logLevel    string
	provider    string
	model       string
	minTools    int
	rankTimeout time.Duration
	jsonOutput  bool

	logger   *zap.Logger
	settings domain.SelectorConfig
}

func newRootCommand() *cobra.Command {
	opts := cliOptions{
		logLevel: "warn",
		logger:   zap.NewNop(),
	}

	root := &cobra.Command{
		Use:           "toolscope",
		Short:         "Select the tools relevant to a request from a tool catalog",
		Version:       fmt.Sprintf("%s (%s)", app.Version, app.Build),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(opts.logLevel)
			if err != nil {
				return err
			}
			opts.logger = logger

			settings, err := catalog.NewLoader(logger).LoadSettings(cmd.Context(), opts.configPath)
			if err != nil {
				return err
			}
			opts.settings = settings
			applyRootFlagBindings(cmd.Flags(), &opts)
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = opts.logger.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "selector settings file (yaml, toml or json)")
	flags.StringVar(&opts.logLevel, "log-level", opts.logLevel, "log level (debug, info, warn, error)")
	flags.StringVar(&opts.provider, "provider", "", "relevance judge provider (google or openai)")
	flags.StringVar(&opts.model, "model", "", "relevance judge model")
	flags.IntVar(&opts.minTools, "min", 0, "minimum number of tools requested from the judge")
	flags.DurationVar(&opts.rankTimeout, "rank-timeout", 0, "deadline for the judge call (0 disables)")
	flags.BoolVar(&opts.jsonOutput, "json", false, "output JSON")

	root.AddCommand(
		newSelectCmd(&opts),
		newCatalogCmd(&opts),
		newWatchCmd(&opts),
	)
	return root
}

// applyRootFlagBindings overrides loaded settings with flags set on the command line.
func applyRootFlagBindings(flags *pflag.FlagSet, opts *cliOptions) {
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "provider":
			provider, _ := flags.GetString("provider")
			if provider != opts.settings.Provider {
				// model and key env var were defaulted for the configured provider
				opts.settings.Provider = provider
				opts.settings.Model = ""
				opts.settings.APIKeyEnvVar = ""
			}
		}
	})
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "model":
			opts.settings.Model, _ = flags.GetString("model")
		case "min":
			opts.settings.MinTools, _ = flags.GetInt("min")
		case "rank-timeout":
			opts.settings.RankTimeout, _ = flags.GetDuration("rank-timeout")
		}
	})
}

func newLogger(level string) (*zap.Logger, error) {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid --log-level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parsed)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func signalAwareContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
