package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/grayforge/internal/config"
	"github.com/ppiankov/grayforge/internal/imaging"
	"github.com/ppiankov/grayforge/internal/reporter"
	"github.com/ppiankov/grayforge/internal/runner"
	"github.com/ppiankov/grayforge/internal/task"
	"github.com/ppiankov/grayforge/internal/watch"
)

func newWatchCmd() *cobra.Command {
	var (
		inputDir    string
		outputDir   string
		initial     bool
		poll        bool
		debounce    time.Duration
		jpegQuality int
		noHistory   bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Convert new images as they appear in a directory",
		Long:  "Watch converts images dropped into the input directory as they arrive. Ctrl-C ends the session and prints its report.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadSettings(configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if !cmd.Flags().Changed("input") && cfg.InputDir != "" {
				inputDir = cfg.InputDir
			}
			if !cmd.Flags().Changed("output") && cfg.OutputDir != "" {
				outputDir = cfg.OutputDir
			}
			if !cmd.Flags().Changed("jpeg-quality") && cfg.JPEGQuality > 0 {
				jpegQuality = cfg.JPEGQuality
			}
			if !cmd.Flags().Changed("no-history") && !cfg.HistoryEnabled() {
				noHistory = true
			}
			if outputDir == "" {
				outputDir = suffixedDir(inputDir, "gray")
			}
			return runWatchSession(watchOptions{
				inputDir:    inputDir,
				outputDir:   outputDir,
				initial:     initial,
				poll:        poll,
				debounce:    debounce,
				jpegQuality: jpegQuality,
				history:     !noHistory,
				historyPath: cfg.HistoryPath,
			})
		},
	}

	cmd.Flags().StringVar(&inputDir, "input", "images", "directory to watch for images")
	cmd.Flags().StringVar(&outputDir, "output", "", "directory for converted images (default <input>_gray)")
	cmd.Flags().BoolVar(&initial, "initial", false, "convert images already present before watching")
	cmd.Flags().BoolVar(&poll, "poll", false, "poll the directory instead of using fsnotify")
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "settle delay after a create event (default 200ms)")
	cmd.Flags().IntVar(&jpegQuality, "jpeg-quality", 0, "JPEG encode quality 1-100 (0 = encoder default)")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record this session in the run ledger")

	return cmd
}

// watchOptions holds resolved parameters for runWatchSession.
type watchOptions struct {
	inputDir    string
	outputDir   string
	initial     bool
	poll        bool
	debounce    time.Duration
	jpegQuality int
	history     bool
	historyPath string
}

func runWatchSession(opts watchOptions) error {
	if err := os.MkdirAll(opts.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := runner.Acquire(opts.outputDir, runner.ModeWatch); err != nil {
		return err
	}
	defer runner.Release(opts.outputDir)

	w, err := watch.New(watch.Config{
		InputDir:  opts.inputDir,
		OutputDir: opts.outputDir,
		Initial:   opts.initial,
		Poll:      opts.poll,
		Debounce:  opts.debounce,
		Codec:     imaging.NewStdCodec(opts.jpegQuality),
		OnResult: func(res task.Result) {
			if res.Failed() {
				fmt.Fprintf(os.Stdout, "  ✗ %s: %s\n", filepath.Base(res.Source), res.Error)
			} else {
				fmt.Fprintf(os.Stdout, "  ✓ %s (%dx%d, %s)\n",
					filepath.Base(res.Source), res.Width, res.Height, res.Duration.Truncate(time.Millisecond))
			}
		},
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "watching %s — press Ctrl-C to stop\n\n", opts.inputDir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nstopping watch...")
		cancel()
	}()

	report, err := w.Run(ctx)
	if err != nil {
		return err
	}

	textRep := reporter.NewText(os.Stdout, isTerminal())
	textRep.PrintReport(report)

	if opts.history {
		recordRuns(opts.historyPath, opts.inputDir, []passOutcome{{report, opts.outputDir}})
	}
	return nil
}
