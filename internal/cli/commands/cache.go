package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wpkernel/wpkgen/internal/cli/ui"
)

func newCacheCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the build cache",
	}
	cmd.AddCommand(newCacheClearCommand(a))
	return cmd
}

func newCacheClearCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached build",
		Long: `Delete every artifact stored under cache.prefix. Only the redis backend
outlives a process; the memory cache of a running "wpkgen serve" is
cleared by restarting it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()

			switch a.cfg.Cache.Backend {
			case "none":
				ui.Message{Level: ui.LevelInfo, Problem: "The build cache is disabled; nothing to clear", NoColor: a.noColor}.Write(stdout)
				return nil
			case "memory":
				ui.Message{Level: ui.LevelInfo, Problem: "The memory cache lives inside each process; nothing to clear", NoColor: a.noColor}.Write(stdout)
				return nil
			}

			backend, err := a.cacheBackend(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to open cache: %w", err)
			}
			defer backend.Close()

			if err := backend.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
			ui.Success(stdout, fmt.Sprintf("Cleared %s cache (prefix %q)", a.cfg.Cache.Backend, a.cfg.Cache.Prefix), a.noColor)
			return nil
		},
	}
	cmd.Flags().String("cache", "", "Cache backend: memory, redis or none")
	return cmd
}
