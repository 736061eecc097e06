package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for dirstat
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dirstat",
		Short: "Storage optimization audit for directory trees",
		Long: `dirstat audits a directory tree for storage optimization opportunities:
duplicate content, large files, stale temp and backup files, and files that
would compress well. It reports how many bytes each could recover.

Results are cached per tree under .dirstat_cache, and the monitor command
keeps them current as files change.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.AddCommand(NewAuditCommand())
	cmd.AddCommand(NewMonitorCommand())
	cmd.AddCommand(NewCacheCommand())

	return cmd
}
