package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

func newSubmitCmd(opts *options) *cobra.Command {
	var (
		parallel bool
		watch    bool
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "submit <file.xlsx>",
		Short: "Upload a workbook to sheetloadd",
		Long: `Submit sends a workbook to the server and prints the task id.

Examples:
  sheetload submit contacts.xlsx
  sheetload submit contacts.xlsx --parallel --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			c, closeConn, err := opts.client()
			if err != nil {
				return err
			}
			defer closeConn()

			taskID, err := c.Upload(cmd.Context(), opts.operator, opts.job, filepath.Base(args[0]), data, parallel)
			if err != nil {
				return fmt.Errorf("upload: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), taskID)

			if !watch {
				return nil
			}
			return runWatch(cmd.Context(), c, taskID, interval)
		},
	}
	cmd.Flags().BoolVarP(&parallel, "parallel", "p", false, "process chunks in parallel")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "follow the task until it finishes")
	cmd.Flags().DurationVar(&interval, "interval", defaultPollInterval, "poll interval for --watch")
	return cmd
}
