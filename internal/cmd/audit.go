package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Maverick-D-Aece/dirstat-pro/internal/filelock"
	"github.com/Maverick-D-Aece/dirstat-pro/internal/logger"
	"github.com/Maverick-D-Aece/dirstat-pro/internal/models"
	"github.com/Maverick-D-Aece/dirstat-pro/internal/optimizer"
)

// NewAuditCommand creates the audit command
func NewAuditCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit [path]",
		Short: "Report storage optimization opportunities",
		Long: `Audit scans a directory tree (default: the current directory) and
reports duplicate files, large files, stale temp and backup files, and
compression candidates, with an estimate of recoverable bytes.

Configuration is loaded from <path>/.dirstat/config.yaml if present.
CLI flags override configuration file settings.

Examples:
  dirstat audit ~/projects
  dirstat audit --exclude 'node_modules/*' --large-threshold 500MB .
  dirstat audit --min-age 90d --ext .log,.csv /var/data
  dirstat audit --no-cache --jobs 8 --output report.json /srv`,
		Args: cobra.MaximumNArgs(1),
		RunE: runAudit,
	}
	addAuditFlags(cmd)
	return cmd
}

func runAudit(cmd *cobra.Command, args []string) error {
	root, err := rootArg(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, root)
	if err != nil {
		return err
	}

	s, err := openSession(root, cfg, logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel), nil)
	if err != nil {
		return err
	}
	defer s.Close()

	th, err := cfg.AuditThresholds()
	if err != nil {
		return err
	}
	report, err := s.opt.Audit(cmd.Context(), th)
	if err != nil {
		return fmt.Errorf("audit failed: %w", err)
	}

	printSummary(cmd.OutOrStdout(), report)
	logHistogram(s.log, report)

	output, _ := cmd.Flags().GetString("output")
	if output != "" {
		if err := writeReport(output, report); err != nil {
			return err
		}
		s.log.Infof("report written to %s", output)
	}
	return nil
}

// printSummary writes one line per bucket and the recoverable total.
func printSummary(w io.Writer, r *models.Report) {
	fmt.Fprintf(w, "Storage audit of %s: %s files, %s\n",
		r.Root, humanize.Comma(int64(r.TotalFiles)), humanize.IBytes(uint64(r.TotalSize)))

	reclaim := r.Savings.ByBucket()
	for _, name := range models.Buckets {
		b := r.Buckets[name]
		fmt.Fprintf(w, "  %s\n", logger.FormatBucketLine(name, b.Count, b.Size, reclaim[name]))
	}
	if n := len(r.DuplicateGroups); n > 0 {
		fmt.Fprintf(w, "  %d duplicate groups, largest: %s x%d\n",
			n, humanize.IBytes(uint64(r.DuplicateGroups[0].Size)), len(r.DuplicateGroups[0].Paths))
	}
	fmt.Fprintf(w, "  %s\n", logger.FormatTotalLine(r.Savings.Total()))
}

func logHistogram(log logger.Logger, r *models.Report) {
	for _, k := range optimizer.SortedHistogramKeys(r.SizeDistribution) {
		log.Debugf("size >= %s: %d files", humanize.IBytes(uint64(k)), r.SizeDistribution[k])
	}
}

// reportFileMode is the mode of exported JSON reports.
const reportFileMode = 0644

// writeReport exports r as indented JSON, replacing path atomically.
func writeReport(path string, r *models.Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := filelock.LockAndWrite(path, append(data, '\n'), reportFileMode); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
