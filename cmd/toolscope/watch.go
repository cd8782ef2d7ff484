package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	appCatalog "toolscope/internal/app/catalog"
	"toolscope/internal/domain"
)

func newWatchCmd(opts *cliOptions) *cobra.Command {
	var (
		catalogPath string
		maxTools    int
		offline     bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Select tools for each stdin line, reloading the catalog when it changes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()

			selector, err := buildSelector(ctx, opts, offline, nil)
			if err != nil {
				return err
			}
			watcher, err := appCatalog.NewWatcher(ctx, catalogPath, selector, opts.logger)
			if err != nil {
				return err
			}

			go func() {
				if err := watcher.Run(ctx); err != nil {
					opts.logger.Warn("catalog watcher stopped", zap.Error(err))
				}
			}()
			updates := watcher.Subscribe(ctx)
			go func() {
				for {
					select {
					case <-ctx.Done():
						return
					case update := <-updates:
						fmt.Fprintf(os.Stderr, "catalog reloaded: owner=%s revision=%d tools=%d\n",
							update.Catalog.OwnerKey, update.Revision, len(update.Catalog.Tools))
					}
				}
			}()

			var history []domain.HistoryMessage
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				message := strings.TrimSpace(scanner.Text())
				if message == "" {
					continue
				}
				selection := selector.Select(ctx, watcher.Owner(), message, history, maxTools)
				if err := printSelection(selection, opts.jsonOutput); err != nil {
					return err
				}
				history = append(history, domain.HistoryMessage{"role": "user", "content": message})
			}
			return scanner.Err()
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&catalogPath, "catalog", "", "tool catalog file")
	flags.IntVar(&maxTools, "max", 0, "maximum number of tools (0 uses the configured default)")
	flags.BoolVar(&offline, "offline", false, "skip the judge and rank by keyword overlap")
	_ = cmd.MarkFlagRequired("catalog")
	return cmd
}
