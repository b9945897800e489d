package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newExportCmd(opts *options) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export <task-id>",
		Short: "Download the failure workbook of a task",
		Long: `Export writes the rows that failed in a task, with an Error column, to an
xlsx file. Failures are kept for ten minutes after the task ends.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closeConn, err := opts.client()
			if err != nil {
				return err
			}
			defer closeConn()

			data, name, err := c.ExportFailures(cmd.Context(), opts.job, args[0])
			if err != nil {
				return fmt.Errorf("export failures: %w", err)
			}
			dst := filepath.Join(dir, filepath.Base(name))
			if err := os.WriteFile(dst, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", dst, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", dst, len(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "out", "o", ".", "output directory")
	return cmd
}
