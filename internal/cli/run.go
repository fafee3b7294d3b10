package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ppiankov/grayforge/internal/config"
	"github.com/ppiankov/grayforge/internal/history"
	"github.com/ppiankov/grayforge/internal/imaging"
	"github.com/ppiankov/grayforge/internal/reporter"
	"github.com/ppiankov/grayforge/internal/runner"
	"github.com/ppiankov/grayforge/internal/scan"
	"github.com/ppiankov/grayforge/internal/task"
)

func newRunCmd() *cobra.Command {
	var (
		inputDir    string
		outputDir   string
		mode        string
		workers     int
		jpegQuality int
		display     string
		reportFile  string
		noHistory   bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Convert a directory of images to grayscale",
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
			if !cmd.Flags().Changed("mode") && cfg.Mode != "" {
				mode = cfg.Mode
			}
			if !cmd.Flags().Changed("workers") && cfg.Workers > 0 {
				workers = cfg.Workers
			}
			if !cmd.Flags().Changed("jpeg-quality") && cfg.JPEGQuality > 0 {
				jpegQuality = cfg.JPEGQuality
			}
			if !cmd.Flags().Changed("display") && cfg.Display != "" {
				display = cfg.Display
			}
			if !cmd.Flags().Changed("no-history") && !cfg.HistoryEnabled() {
				noHistory = true
			}
			return runBatch(batchOptions{
				inputDir:    inputDir,
				outputDir:   outputDir,
				mode:        mode,
				workers:     workers,
				jpegQuality: jpegQuality,
				display:     display,
				reportFile:  reportFile,
				history:     !noHistory,
				historyPath: cfg.HistoryPath,
			})
		},
	}

	cmd.Flags().StringVar(&inputDir, "input", "images", "directory to scan for images")
	cmd.Flags().StringVar(&outputDir, "output", "", "directory for converted images (default <input>_gray)")
	cmd.Flags().StringVar(&mode, "mode", runner.ModeConcurrent, "execution mode: sequential, concurrent, or both")
	cmd.Flags().IntVar(&workers, "workers", 0, "worker goroutines for concurrent mode (0 = logical CPUs)")
	cmd.Flags().IntVar(&jpegQuality, "jpeg-quality", 0, "JPEG encode quality 1-100 (0 = encoder default)")
	cmd.Flags().StringVar(&display, "display", "auto", "display mode: full (interactive TUI), minimal (live status), bar (progress bar), off (summary only), auto (detect TTY)")
	cmd.Flags().StringVar(&reportFile, "report-file", "", "write the batch report as JSON to this path")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record this batch in the run ledger")

	return cmd
}

// batchOptions holds resolved parameters for runBatch.
type batchOptions struct {
	inputDir    string
	outputDir   string
	mode        string
	workers     int
	jpegQuality int
	display     string
	reportFile  string
	history     bool
	historyPath string
}

// passOutcome pairs a finished report with the directory it wrote to.
type passOutcome struct {
	report    *task.BatchReport
	outputDir string
}

func runBatch(opts batchOptions) error {
	switch opts.mode {
	case runner.ModeSequential, runner.ModeConcurrent, "both":
	default:
		return fmt.Errorf("invalid mode %q (want sequential, concurrent, or both)", opts.mode)
	}

	names, err := scan.Images(opts.inputDir)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return fmt.Errorf("no images (.jpg, .jpeg, .png) found in %s", opts.inputDir)
	}

	outputDir := opts.outputDir
	if outputDir == "" {
		outputDir = suffixedDir(opts.inputDir, "gray")
	}
	workers := opts.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	// resolve display mode: full TUI, minimal live status, or off
	isTTY := isTerminal()
	displayMode := opts.display
	if displayMode == "" || displayMode == "auto" {
		if isTTY {
			displayMode = "full"
		} else {
			displayMode = "off"
		}
	}
	if opts.mode == "both" {
		// a comparison run prints two reports back to back; a live
		// display would interleave with them
		displayMode = "off"
	}

	codec := imaging.NewStdCodec(opts.jpegQuality)
	textRep := reporter.NewText(os.Stdout, isTTY)

	headerWorkers := workers
	if opts.mode == runner.ModeSequential {
		headerWorkers = 1
	}
	slog.Info("starting batch", "images", len(names), "mode", opts.mode, "workers", headerWorkers, "input", opts.inputDir)
	textRep.PrintHeader(len(names), headerWorkers, opts.mode)

	// setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\ninterrupted — abandoning unfinished conversions...")
		cancel()
	}()

	var outcomes []passOutcome
	if opts.mode == "both" {
		seqDir := suffixedDir(outputDir, "sequential")
		seq, err := runPass(ctx, cancel, passConfig{
			mode:      runner.ModeSequential,
			names:     names,
			inputDir:  opts.inputDir,
			outputDir: seqDir,
			workers:   1,
			codec:     codec,
			display:   "off",
			color:     isTTY,
		})
		if err != nil {
			return err
		}
		textRep.PrintReport(seq)

		concDir := suffixedDir(outputDir, "concurrent")
		conc, err := runPass(ctx, cancel, passConfig{
			mode:      runner.ModeConcurrent,
			names:     names,
			inputDir:  opts.inputDir,
			outputDir: concDir,
			workers:   workers,
			codec:     codec,
			display:   "off",
			color:     isTTY,
		})
		if err != nil {
			return err
		}
		textRep.PrintReport(conc)
		textRep.PrintSpeedup(seq, conc)

		outcomes = append(outcomes, passOutcome{seq, seqDir}, passOutcome{conc, concDir})
	} else {
		rep, err := runPass(ctx, cancel, passConfig{
			mode:      opts.mode,
			names:     names,
			inputDir:  opts.inputDir,
			outputDir: outputDir,
			workers:   workers,
			codec:     codec,
			display:   displayMode,
			color:     isTTY,
		})
		if err != nil {
			return err
		}
		textRep.PrintReport(rep)
		outcomes = append(outcomes, passOutcome{rep, outputDir})
	}

	if opts.reportFile != "" {
		if opts.mode == "both" {
			slog.Warn("report file skipped: both mode produces two reports", "path", opts.reportFile)
		} else if err := reporter.WriteJSONReport(outcomes[0].report, opts.reportFile); err != nil {
			slog.Warn("failed to write report", "error", err)
		} else {
			fmt.Fprintf(os.Stdout, "\nReport: %s\n", opts.reportFile)
		}
	}

	if opts.history {
		recordRuns(opts.historyPath, opts.inputDir, outcomes)
	}

	return nil
}

// passConfig holds parameters for a single conversion pass.
type passConfig struct {
	mode      string
	names     []string // image filenames within inputDir
	inputDir  string
	outputDir string
	workers   int
	codec     imaging.Codec
	display   string // full, minimal, off
	color     bool
}

// runPass converts every named image into the pass output directory and
// returns the folded report. The output directory is locked for the
// duration of the pass.
func runPass(ctx context.Context, cancel context.CancelFunc, cfg passConfig) (*task.BatchReport, error) {
	if err := os.MkdirAll(cfg.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	if err := runner.Acquire(cfg.outputDir, cfg.mode); err != nil {
		return nil, err
	}
	defer runner.Release(cfg.outputDir)

	sources := make([]string, len(cfg.names))
	tasks := make([]task.Task, len(cfg.names))
	for i, name := range cfg.names {
		item := task.WorkItem{Source: filepath.Join(cfg.inputDir, name), DestDir: cfg.outputDir}
		sources[i] = item.Source
		tasks[i] = task.NewTransformTask(item, cfg.codec)
	}

	prog := reporter.NewProgress(sources)
	rcfg := runner.Config{
		Workers:  cfg.workers,
		OnStart:  prog.Start,
		OnResult: prog.Finish,
	}

	var live *reporter.Live
	var tuiProgram *tea.Program
	var bar *progressbar.ProgressBar
	switch cfg.display {
	case "full":
		tuiModel := reporter.NewTUIModel(prog.Snapshot, cancel)
		tuiProgram = tea.NewProgram(tuiModel, tea.WithAltScreen())
		go func() {
			if _, err := tuiProgram.Run(); err != nil {
				slog.Warn("TUI error", "error", err)
			}
		}()
	case "minimal":
		live = reporter.NewLive(os.Stdout, cfg.color, prog)
		live.Start()
	case "bar":
		bar = progressbar.NewOptions(len(tasks),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("converting"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		finish := rcfg.OnResult
		rcfg.OnResult = func(res task.Result) {
			finish(res)
			_ = bar.Add(1)
		}
	default:
		// "off" or unrecognized — no live display
	}

	var r runner.Runner
	if cfg.mode == runner.ModeSequential {
		r = runner.NewSequential(rcfg)
	} else {
		r = runner.NewPool(rcfg)
	}

	report, runErr := r.RunAll(ctx, tasks)

	if tuiProgram != nil {
		tuiProgram.Quit()
		time.Sleep(100 * time.Millisecond)
	}
	if live != nil {
		live.Stop()
	}
	if bar != nil {
		_ = bar.Finish()
	}

	return report, runErr
}

// recordRuns appends finished batches to the run ledger. A ledger problem
// is logged, never turned into a batch failure.
func recordRuns(path, inputDir string, outcomes []passOutcome) {
	if path == "" {
		path = history.DefaultPath()
	}
	store, err := history.Open(path)
	if err != nil {
		slog.Warn("run ledger unavailable", "error", err)
		return
	}
	defer func() { _ = store.Close() }()

	for _, o := range outcomes {
		run := history.Run{
			StartedAt:  o.report.StartedAt,
			Mode:       o.report.Mode,
			Workers:    o.report.Workers,
			Total:      o.report.Total,
			Succeeded:  o.report.Succeeded,
			LoadFailed: o.report.LoadFailed,
			SaveFailed: o.report.SaveFailed,
			IOErrors:   o.report.IOErrors,
			Elapsed:    o.report.Elapsed,
			InputDir:   inputDir,
			OutputDir:  o.outputDir,
		}
		if _, err := store.Record(context.Background(), run); err != nil {
			slog.Warn("record run", "error", err)
		}
	}
}

// suffixedDir appends a suffix to dir, so comparison passes write to
// sibling directories instead of overwriting each other.
func suffixedDir(dir, suffix string) string {
	return strings.TrimRight(dir, string(os.PathSeparator)) + "_" + suffix
}

// isTerminal checks if stdout is a terminal.
func isTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}
