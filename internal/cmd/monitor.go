package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/Maverick-D-Aece/dirstat-pro/internal/filelock"
	"github.com/Maverick-D-Aece/dirstat-pro/internal/logger"
	"github.com/Maverick-D-Aece/dirstat-pro/internal/metrics"
	"github.com/Maverick-D-Aece/dirstat-pro/internal/monitor"
)

// MonitorLockName is the lock file, inside the cache directory, that keeps
// one monitor per tree.
const MonitorLockName = "monitor.lock"

// NewMonitorCommand creates the monitor command
func NewMonitorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor [path]",
		Short: "Audit a tree and keep the results current as files change",
		Long: `Monitor runs a full audit, then watches the tree and applies each
change to the cached and in-memory results without rescanning. Bursts of
events are collapsed into one update per path per debounce window.

Only one monitor may run per tree. Stop it with Ctrl-C; the final report is
printed and, with --output, written to a file.

Examples:
  dirstat monitor /srv/data
  dirstat monitor --metrics-addr :9102 --debounce 2s .`,
		Args: cobra.MaximumNArgs(1),
		RunE: runMonitor,
	}
	addAuditFlags(cmd)
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9102)")
	cmd.Flags().Duration("debounce", 0, "Event window (default from config, 1s)")
	cmd.Flags().String("log-dir", "", `Directory for run logs (default: <cache dir>/logs, "none" to disable)`)
	return cmd
}

func runMonitor(cmd *cobra.Command, args []string) error {
	root, err := rootArg(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, root)
	if err != nil {
		return err
	}

	debounce, err := cfg.Debounce()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("debounce") {
		debounce, _ = cmd.Flags().GetDuration("debounce")
	}

	lock, err := filelock.Acquire(filepath.Join(cfg.CacheDir(root), MonitorLockName))
	if err != nil {
		if errors.Is(err, filelock.ErrLocked) {
			return fmt.Errorf("another monitor is already running for %s", root)
		}
		return err
	}
	defer lock.Unlock()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	log := logger.Logger(logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel))
	if logDir, _ := cmd.Flags().GetString("log-dir"); logDir != "none" {
		if logDir == "" {
			logDir = filepath.Join(cfg.CacheDir(root), "logs")
		}
		fl, err := logger.NewFileLogger(logDir, "monitor", cfg.LogLevel)
		if err != nil {
			return err
		}
		defer fl.Close()
		log = logger.Tee(log, fl)
	}

	s, err := openSession(root, cfg, log, m)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		srv := &http.Server{Addr: addr, Handler: metricsMux(reg)}
		go func() {
			s.log.Infof("metrics server listening on %s", addr)
			if err := srv.ListenAndServe(); err != http.ErrServerClosed {
				s.log.Errorf("metrics server error: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	th, err := cfg.AuditThresholds()
	if err != nil {
		return err
	}
	report, err := s.opt.Audit(ctx, th)
	if err != nil {
		return fmt.Errorf("initial audit failed: %w", err)
	}
	printSummary(cmd.OutOrStdout(), report)

	w, err := monitor.NewWatcher(root, s.scanner.SkipDirs())
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", root, err)
	}
	defer w.Close()

	mon := monitor.New(w, s.opt,
		monitor.WithDebounce(debounce),
		monitor.WithLogger(s.log),
		monitor.WithMetrics(m),
	)
	s.log.Infof("watching %s (debounce %s)", w.Root(), mon.Debounce())
	if err := mon.Run(ctx); err != nil {
		return err
	}

	// ctx is done; the final report must not be cut short by it.
	report, err = s.opt.GenerateReport(context.Background())
	if err != nil {
		return err
	}
	printSummary(cmd.OutOrStdout(), report)

	if output, _ := cmd.Flags().GetString("output"); output != "" {
		if err := writeReport(output, report); err != nil {
			return err
		}
		s.log.Infof("report written to %s", output)
	}
	return nil
}

func metricsMux(g prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(g))
	return mux
}
