package upload

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/sheetload/constants"
	"github.com/joseph-ayodele/sheetload/internal/common"
)

// CheckContext validates the job context before any side effect.
func (s *Service[T]) CheckContext(jc *JobContext[T]) error {
	if jc == nil {
		return common.NewAppError(common.CodeInvalidContext, "job context is required", common.ErrInvalidContext)
	}
	v := common.NewValidator().Field("operator", jc.Operator, common.Required, common.LengthBetween(1, 128))
	if v.HasErrors() {
		return common.NewAppError(common.CodeInvalidContext, v.ErrorMessage(), common.ErrInvalidContext)
	}
	if jc.File == nil || jc.File.Open == nil {
		return common.NewAppError(common.CodeInvalidContext, "file is required", common.ErrInvalidContext)
	}
	if !constants.AllowedExt(jc.File.Ext()) {
		return common.NewAppError(common.CodeInvalidContext,
			fmt.Sprintf("unsupported file extension %q", jc.File.Ext()), common.ErrUnsupportedExt)
	}
	if s.spec.CheckContext != nil {
		if err := s.spec.CheckContext(jc); err != nil {
			return common.NewAppError(common.CodeInvalidContext, err.Error(), fmt.Errorf("%w: %w", common.ErrInvalidContext, err))
		}
	}
	return nil
}

// ingest admits the job and decodes its rows. On success the operator's lock
// stays held; on any failure after admission, a panic included, it is released.
func (s *Service[T]) ingest(ctx context.Context, jc *JobContext[T]) (rows []T, err error) {
	if err := s.CheckContext(jc); err != nil {
		return nil, err
	}
	if !s.locker.Acquire(ctx, jc.Operator) {
		return nil, common.NewAppError(common.CodeBusy, constants.MsgBusy, common.ErrBusy)
	}
	defer func() {
		if r := recover(); r != nil {
			s.locker.Release(ctx, jc.Operator)
			panic(r)
		}
		if err != nil {
			s.locker.Release(ctx, jc.Operator)
		}
	}()

	start := time.Now()
	rows, err = s.decode(jc)
	if err != nil {
		s.logger.Warn("upload.ingest.failed", "job", s.spec.Name, "operator", jc.Operator, "file", jc.File.Name, "error", err)
		return nil, common.NewAppError(common.CodeIngestFailed, "could not read spreadsheet: "+err.Error(), err)
	}
	if len(rows) == 0 {
		return nil, common.NewAppError(common.CodeIngestFailed, common.ErrEmptyFile.Error(), common.ErrEmptyFile)
	}
	if s.spec.MaxRows > 0 && len(rows) > s.spec.MaxRows {
		return nil, common.NewAppError(common.CodeIngestFailed,
			fmt.Sprintf("spreadsheet has %d rows, the limit is %d", len(rows), s.spec.MaxRows), common.ErrTooManyRows)
	}

	s.logger.Info("upload.ingest.ok",
		"job", s.spec.Name,
		"operator", jc.Operator,
		"file", jc.File.Name,
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return rows, nil
}

func (s *Service[T]) decode(jc *JobContext[T]) ([]T, error) {
	if len(s.spec.Columns) == 0 {
		return nil, common.ErrNoColumns
	}
	rc, err := jc.File.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", jc.File.Name, err)
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil {
			s.logger.Warn("upload.file.close_failed", "file", jc.File.Name, "error", cerr)
		}
	}()
	return s.decoder.Decode(rc, s.spec.Columns)
}

func (s *Service[T]) jobLogger(jc *JobContext[T]) *slog.Logger {
	return s.logger.With("job", s.spec.Name, "task_id", jc.TaskID(), "operator", jc.Operator)
}
