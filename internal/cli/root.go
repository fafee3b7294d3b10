package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version, Commit and BuildDate are set via LDFLAGS at build time.
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var (
	verbose    bool
	configFile string
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "grayforge",
		Short: "Concurrent batch grayscale converter",
		Long:  "grayforge scans a directory for images and converts each one to grayscale, sequentially or across a bounded worker pool.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			})))
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&configFile, "config", ".grayforge.yml", "path to config file")

	root.AddCommand(newRunCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newHistoryCmd())
	root.AddCommand(newUnlockCmd())
	root.AddCommand(newVersionCmd())

	return root
}
