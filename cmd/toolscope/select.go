package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"toolscope/internal/app"
	"toolscope/internal/domain"
	"toolscope/internal/infra/catalog"
)

type selectOptions struct {
	catalogPath string
	message     string
	historyPath string
	maxTools    int
	offline     bool
	strict      bool
	metrics     bool
}

func newSelectCmd(opts *cliOptions) *cobra.Command {
	selectOpts := selectOptions{}

	cmd := &cobra.Command{
		Use:   "select",
		Short: "Rank the catalog tools against a message",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(selectOpts.message) == "" {
				return errors.New("--message is required")
			}
			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()

			toolCatalog, err := catalog.NewLoader(opts.logger).Load(ctx, selectOpts.catalogPath)
			if err != nil {
				return err
			}
			history, err := loadHistory(selectOpts.historyPath)
			if err != nil {
				return err
			}

			registry := app.NewMetricsRegistry()
			selector, err := buildSelector(ctx, opts, selectOpts.offline, registry)
			if err != nil {
				return err
			}

			selection := selector.Select(ctx, toolCatalog.Owner(), selectOpts.message, history, selectOpts.maxTools)
			if err := printSelection(selection, opts.jsonOutput); err != nil {
				return err
			}
			if selectOpts.metrics {
				if err := writeMetrics(os.Stderr, registry); err != nil {
					return err
				}
			}
			if selectOpts.strict && selection.Degraded() {
				return exitWithMessage(2, fmt.Sprintf("ranking failed: %v", selection.RankError))
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&selectOpts.catalogPath, "catalog", "", "tool catalog file")
	flags.StringVar(&selectOpts.message, "message", "", "latest user message")
	flags.StringVar(&selectOpts.historyPath, "history", "", "conversation history as a JSON array of messages")
	flags.IntVar(&selectOpts.maxTools, "max", 0, "maximum number of tools (0 uses the configured default)")
	flags.BoolVar(&selectOpts.offline, "offline", false, "skip the judge and rank by keyword overlap")
	flags.BoolVar(&selectOpts.strict, "strict", false, "exit with status 2 when the keyword fallback answered")
	flags.BoolVar(&selectOpts.metrics, "metrics", false, "print selector metrics to stderr")
	_ = cmd.MarkFlagRequired("catalog")

	return cmd
}

func buildSelector(ctx context.Context, opts *cliOptions, offline bool, registerer prometheus.Registerer) (*app.Selector, error) {
	logging := app.LoggingConfig{Logger: opts.logger}
	if offline {
		return app.InitializeOfflineSelector(opts.settings, logging, registerer)
	}
	return app.InitializeSelector(ctx, opts.settings, logging, registerer)
}

func loadHistory(path string) ([]domain.HistoryMessage, error) {
	if path == "" {
		return []domain.HistoryMessage{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	var history []domain.HistoryMessage
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("parse history: %w", err)
	}
	return history, nil
}
