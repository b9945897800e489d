package upload

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/joseph-ayodele/sheetload/internal/sheet"
)

// ErrorColumn is appended to exported failure workbooks.
var ErrorColumn = sheet.Column{Field: "error_message", Header: "Error"}

// ExportFailures writes the failed rows of taskID to w and returns how many
// were written. Nothing is written when the failures are missing, which
// covers both "no failures" and "expired".
func (s *Service[T]) ExportFailures(ctx context.Context, taskID string, w io.Writer) (int, error) {
	start := time.Now()
	rows, err := s.failures.Load(ctx, taskID)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		s.logger.Info("export.failures.empty", "job", s.spec.Name, "task_id", taskID)
		return 0, nil
	}
	if err := s.encoder.Encode(w, rows, s.spec.Columns, ErrorColumn); err != nil {
		return 0, fmt.Errorf("encode failures: %w", err)
	}
	s.logger.Info("export.xlsx.ok",
		"job", s.spec.Name,
		"task_id", taskID,
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return len(rows), nil
}
