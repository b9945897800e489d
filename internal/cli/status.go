package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/sheetload/internal/entity"
)

func newStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status <task-id>",
		Short: "Show the progress of an upload task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closeConn, err := opts.client()
			if err != nil {
				return err
			}
			defer closeConn()

			p, err := c.GetTask(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get task: %w", err)
			}
			printProgress(cmd.OutOrStdout(), p)
			return nil
		},
	}
}

func printProgress(w io.Writer, p *entity.Progress) {
	fmt.Fprintf(w, "Task: %s\n", p.TaskID)
	fmt.Fprintf(w, "  Job: %s\n", p.Job)
	fmt.Fprintf(w, "  Operator: %s\n", p.Operator)
	fmt.Fprintf(w, "  State: %s\n", p.State())
	fmt.Fprintf(w, "  Progress: %d/%d (%.0f%%)\n", p.Processed, p.Total, p.Percent()*100)
	fmt.Fprintf(w, "  Succeeded: %d\n", p.Success)
	fmt.Fprintf(w, "  Started: %s\n", p.StartedAt.Format(time.RFC3339))
	if p.FinishedAt != nil {
		fmt.Fprintf(w, "  Finished: %s\n", p.FinishedAt.Format(time.RFC3339))
	}
	if p.Message != "" {
		fmt.Fprintf(w, "  Message: %s\n", p.Message)
	}
}
