package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"bookstitch/internal/config"
	"bookstitch/internal/pipeline"
)

var (
	runStrategy    string
	runOutput      string
	runNoBrowser   bool
	runInclude     string
	runExclude     string
	runConcurrency int
	runDelay       time.Duration
	runTimeout     time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run <url>",
	Short: "Reconstruct one documentation site and write the stitched document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := slog.New(slog.NewJSONHandler(os.Stderr, nil))

		cfg := config.Load()
		if err := cfg.ApplyFile(configFile); err != nil {
			return err
		}
		if runStrategy != "" {
			cfg.Strategy = runStrategy
		}
		if runOutput != "" {
			cfg.OutputFile = runOutput
		}
		if runNoBrowser {
			cfg.UseBrowser = false
		}
		if runInclude != "" {
			cfg.IncludePattern = runInclude
		}
		if runExclude != "" {
			cfg.ExcludePatterns = runExclude
		}
		if runConcurrency > 0 {
			cfg.MaxConcurrent = runConcurrency
		}
		if cmd.Flags().Changed("delay") {
			cfg.RequestDelay = runDelay
		}
		if runTimeout > 0 {
			cfg.FetchTimeout = runTimeout
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		go func() {
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh
			log.Info("interrupted, stopping")
			cancel()
		}()

		run := pipeline.NewRun(args[0], cfg.Strategy)

		done := make(chan struct{})
		go func() {
			defer close(done)
			for ev := range run.Events() {
				log.Info("progress", "stage", ev.Stage, "current", ev.Current, "total", ev.Total, "message", ev.Message)
			}
		}()

		pipeline.NewRunner(cfg, log).Execute(ctx, run)
		<-done

		snap := run.Snapshot()
		if snap.Status != pipeline.StatusCompleted {
			return fmt.Errorf("run %s: %s", snap.Status, snap.Stage)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d pages, %d native markdown)\n",
			cfg.OutputFile, snap.Progress.PagesTotal, snap.Progress.NativeHits)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runStrategy, "strategy", "", "Discovery strategy (auto, github, sitemap, scraping, universal, fusion)")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "Output file path")
	runCmd.Flags().BoolVar(&runNoBrowser, "no-browser", false, "Disable browser rendering")
	runCmd.Flags().StringVar(&runInclude, "include", "", "Only keep URLs containing this substring")
	runCmd.Flags().StringVar(&runExclude, "exclude", "", "Comma-separated substrings of URLs to skip")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 0, "Maximum concurrent page fetches")
	runCmd.Flags().DurationVar(&runDelay, "delay", 0, "Delay between page fetches")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Per-request fetch timeout")

	rootCmd.AddCommand(runCmd)
}
