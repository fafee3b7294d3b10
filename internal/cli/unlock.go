package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/grayforge/internal/runner"
)

func newUnlockCmd() *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "unlock",
		Short: "Remove a stale output directory lock file",
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := runner.ReadLock(outputDir)
			if err != nil {
				if os.IsNotExist(err) {
					fmt.Fprintf(os.Stdout, "No lock found in %s\n", outputDir)
					return nil
				}
				return fmt.Errorf("read lock: %w", err)
			}

			lockPath := filepath.Join(outputDir, ".grayforge.lock")
			if err := os.Remove(lockPath); err != nil {
				return fmt.Errorf("remove lock: %w", err)
			}

			fmt.Fprintf(os.Stdout, "Removed lock in %s (was PID %d, %s batch, since %s)\n",
				outputDir, info.PID, info.Mode, info.StartedAt.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&outputDir, "output", "", "locked output directory")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}
