package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Maverick-D-Aece/dirstat-pro/internal/cache"
	"github.com/Maverick-D-Aece/dirstat-pro/internal/config"
)

// NewCacheCommand creates the cache command group
func NewCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the persisted results cache",
	}
	cmd.AddCommand(newCacheClearCommand())
	cmd.AddCommand(newCachePruneCommand())
	return cmd
}

func newCacheClearCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear [path]",
		Short: "Remove cached results",
		Long: `Clear removes cached results for a tree. With --pattern, only entries
whose key contains the pattern are removed; keys include the absolute path
of the audited root, so a subdirectory path drops every result that covers it.

Examples:
  dirstat cache clear
  dirstat cache clear /srv/data --pattern large_files`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern, _ := cmd.Flags().GetString("pattern")
			return withStore(cmd, args, func(rc *cache.ResultsCache) error {
				n := rc.Invalidate(pattern)
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cache entries\n", n)
				return nil
			})
		},
	}
	cmd.Flags().String("pattern", "", "Only remove entries whose key contains this substring")
	cmd.Flags().String("config", "", "Path to config file (default: <path>/.dirstat/config.yaml)")
	return cmd
}

func newCachePruneCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune [path]",
		Short: "Remove expired cached results",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, args, func(rc *cache.ResultsCache) error {
				n := rc.Prune()
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d expired entries, %d remain\n", n, rc.Len())
				return nil
			})
		},
	}
	cmd.Flags().String("config", "", "Path to config file (default: <path>/.dirstat/config.yaml)")
	return cmd
}

// withStore opens the persisted cache of the tree in args and runs fn on it.
// A tree that was never audited has nothing to clear.
func withStore(cmd *cobra.Command, args []string, fn func(*cache.ResultsCache) error) error {
	root, err := rootArg(args)
	if err != nil {
		return err
	}

	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = config.Path(root)
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	maxAge, err := cfg.CacheMaxAge()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	dbPath := filepath.Join(cfg.CacheDir(root), cache.DBFileName)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Fprintf(cmd.OutOrStdout(), "No cache at %s\n", dbPath)
		return nil
	}

	backend, err := cache.OpenSQLite(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	rc := cache.New(backend, cache.WithMaxAge(maxAge))
	defer rc.Close()

	return fn(rc)
}
