package main

import (
	"github.com/spf13/cobra"

	"toolscope/internal/app"
	"toolscope/internal/infra/catalog"
)

func newCatalogCmd(opts *cliOptions) *cobra.Command {
	var catalogPath string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the normalized tool records of a catalog file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			toolCatalog, err := catalog.NewLoader(opts.logger).Load(cmd.Context(), catalogPath)
			if err != nil {
				return err
			}
			logger := app.NewLogger(app.LoggingConfig{Logger: opts.logger})
			normalizer := app.NewNormalizer(logger, app.NewMetrics(nil), app.NewCatalogCache())
			return printCatalog(normalizer.Snapshot(toolCatalog.Owner()), opts.jsonOutput)
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "", "tool catalog file")
	_ = cmd.MarkFlagRequired("catalog")
	return cmd
}
