package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/sheetload/constants"
	"github.com/joseph-ayodele/sheetload/internal/async"
	"github.com/joseph-ayodele/sheetload/internal/cache"
	"github.com/joseph-ayodele/sheetload/internal/common"
	"github.com/joseph-ayodele/sheetload/internal/entity"
	"github.com/joseph-ayodele/sheetload/internal/sheet"
)

// Runner is the type-erased surface of a Service used by transports.
type Runner interface {
	Name() string
	// Submit ingests the file and processes it in the background.
	Submit(ctx context.Context, operator string, file *File, mode Mode) (string, error)
	// Run ingests and processes the file before returning its final progress.
	Run(ctx context.Context, operator string, file *File, mode Mode) (*entity.Progress, error)
	GetTask(ctx context.Context, taskID string) (*entity.Progress, error)
	ExportFailures(ctx context.Context, taskID string, w io.Writer) (int, error)
	FailFileName() string
}

// Service runs uploads of one job type.
type Service[T entity.Record] struct {
	spec     Spec[T]
	pool     async.Executor
	logger   *slog.Logger
	locker   *Locker
	tracker  *Tracker
	failures *FailureStore[T]
	decoder  Decoder[T]
	encoder  Encoder[T]
	ownsPool bool
}

var _ Runner = (*Service[entity.Record])(nil)

// NewService validates spec and wires it to the cache. A nil pool gets a
// default async.Pool owned by the service, which Close shuts down. A supplied
// pool stays the caller's to shut down.
func NewService[T entity.Record](spec Spec[T], c cache.Cache, pool async.Executor, logger *slog.Logger) (*Service[T], error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch {
	case spec.Name == "":
		return nil, common.NewAppError(common.CodeConfig, "job name is required", common.ErrInvalidInput)
	case len(spec.Columns) == 0:
		return nil, common.NewAppError(common.CodeConfig, "job "+spec.Name+": columns are required", common.ErrNoColumns)
	case spec.ChunkSize < 1:
		return nil, common.NewAppError(common.CodeConfig, "job "+spec.Name+": chunk size must be at least 1", common.ErrInvalidInput)
	case spec.MaxRows < 0:
		return nil, common.NewAppError(common.CodeConfig, "job "+spec.Name+": max rows must not be negative", common.ErrInvalidInput)
	case spec.New == nil:
		return nil, common.NewAppError(common.CodeConfig, "job "+spec.Name+": record factory is required", common.ErrInvalidInput)
	case spec.Handle == nil:
		return nil, common.NewAppError(common.CodeConfig, "job "+spec.Name+": handler is required", common.ErrInvalidInput)
	case c == nil:
		return nil, common.NewAppError(common.CodeConfig, "cache is required", common.ErrInvalidInput)
	}
	owned := pool == nil
	if owned {
		pool = async.NewPool(logger)
	}

	s := &Service[T]{
		spec:     spec,
		pool:     pool,
		logger:   logger,
		locker:   NewLocker(c, logger),
		tracker:  NewTracker(c, logger),
		failures: NewFailureStore[T](c, logger),
		decoder:  spec.Decoder,
		encoder:  spec.Encoder,
		ownsPool: owned,
	}
	if s.decoder == nil {
		s.decoder = sheet.Reader[T]{New: spec.New, Logger: logger}
	}
	if s.encoder == nil {
		s.encoder = sheet.Writer[T]{Logger: logger}
	}
	return s, nil
}

func (s *Service[T]) Name() string { return s.spec.Name }

// Close shuts down the pool NewService created, waiting for running uploads
// until ctx ends. It does nothing for a caller supplied pool.
func (s *Service[T]) Close(ctx context.Context) {
	if s.ownsPool {
		s.pool.Shutdown(ctx)
	}
}

// Execute runs the whole job on the calling goroutine. It only returns
// admission and ingestion errors; later failures end up in the progress.
func (s *Service[T]) Execute(ctx context.Context, jc *JobContext[T], mode Mode) error {
	rows, err := s.admit(ctx, jc)
	if err != nil {
		return err
	}
	s.process(context.WithoutCancel(ctx), jc, rows, mode, s.pool)
	return nil
}

// AsyncExecute ingests synchronously and processes on the service pool.
func (s *Service[T]) AsyncExecute(ctx context.Context, jc *JobContext[T], mode Mode) error {
	return s.AsyncExecuteOn(ctx, jc, mode, s.pool)
}

// AsyncExecuteOn is AsyncExecute on a caller supplied executor, which also
// runs the chunks in parallel mode.
func (s *Service[T]) AsyncExecuteOn(ctx context.Context, jc *JobContext[T], mode Mode, ex async.Executor) error {
	if ex == nil {
		return common.NewAppError(common.CodeExecutor, "executor is required", common.ErrInvalidInput)
	}
	rows, err := s.admit(ctx, jc)
	if err != nil {
		return err
	}

	bg := context.WithoutCancel(ctx)
	if err := ex.Submit(func() { s.process(bg, jc, rows, mode, ex) }); err != nil {
		s.tracker.interrupt(bg, &jc.progress, err.Error())
		s.locker.Release(bg, jc.Operator)
		return common.NewAppError(common.CodeExecutor, "could not schedule upload", err)
	}
	return nil
}

// admit ingests the rows and stores the initial progress so the task is
// visible before processing starts.
func (s *Service[T]) admit(ctx context.Context, jc *JobContext[T]) ([]T, error) {
	if jc == nil {
		return nil, s.CheckContext(jc)
	}
	jc.bind(s.spec.Name)
	rows, err := s.ingest(ctx, jc)
	if err != nil {
		return nil, err
	}
	s.tracker.start(ctx, &jc.progress, len(rows))
	return rows, nil
}

// process runs every stage after ingestion. Teardown releases the lock, then
// persists failures, whatever happened before.
func (s *Service[T]) process(ctx context.Context, jc *JobContext[T], rows []T, mode Mode, ex async.Executor) {
	taskID := jc.TaskID()
	ctx = common.WithOperator(common.WithTaskID(ctx, taskID), jc.Operator)
	logger := s.jobLogger(jc)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("upload.process.panic", "panic", r)
			s.tracker.interrupt(ctx, &jc.progress, fmt.Sprint(r))
		}
		s.locker.Release(ctx, jc.Operator)
		if err := s.failures.Persist(ctx, taskID, jc.Failures()); err != nil {
			logger.Error("upload.failures.persist_failed", "error", err)
		}
		p := jc.Progress()
		logger.Info("upload.process.done",
			"total", p.Total,
			"success", p.Success,
			"failed", jc.FailSize(),
			"interrupted", p.Interrupted,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}()

	if err := s.stages(ctx, jc, rows, mode, ex, logger); err != nil {
		logger.Error("upload.process.interrupted", "error", err)
		s.tracker.interrupt(ctx, &jc.progress, err.Error())
	}
}

func (s *Service[T]) stages(ctx context.Context, jc *JobContext[T], rows []T, mode Mode, ex async.Executor, logger *slog.Logger) error {
	total := len(rows)

	rows, dups := dedup(rows, s.spec.DedupKey)
	jc.AddFailures(dups, s.spec.DuplicateMessage)
	s.tracker.add(ctx, &jc.progress, len(dups), 0)

	rows, invalid := validate(rows)
	jc.AddFailures(invalid, "")
	s.tracker.add(ctx, &jc.progress, len(invalid), 0)

	logger.Info("upload.validate.ok", "duplicates", len(dups), "invalid", len(invalid), "valid", len(rows))
	if len(rows) == 0 {
		s.tracker.finish(ctx, &jc.progress, constants.MsgNoValidRows)
		return nil
	}

	if s.spec.Filter != nil {
		kept, err := s.spec.Filter(ctx, rows, jc)
		if err != nil {
			return fmt.Errorf("business filter: %w", err)
		}
		if dropped := len(rows) - len(kept); dropped > 0 {
			s.tracker.add(ctx, &jc.progress, dropped, 0)
		}
		rows = kept
		if len(rows) == 0 {
			s.tracker.finish(ctx, &jc.progress, constants.MsgNoValidRows)
			return nil
		}
	}

	chunks := Partition(rows, s.spec.ChunkSize)
	logger.Info("upload.execute.start", "mode", mode.String(), "rows", len(rows), "chunks", len(chunks))
	if err := s.run(ctx, jc, chunks, mode, ex, logger); err != nil {
		return err
	}

	success := jc.Progress().Success
	msg := constants.MsgTaskSucceeded
	if success != total {
		msg = fmt.Sprintf(constants.MsgTaskFinished, total, success)
	}
	s.tracker.finish(ctx, &jc.progress, msg)
	return nil
}

// Submit builds a job context and runs it in the background.
func (s *Service[T]) Submit(ctx context.Context, operator string, file *File, mode Mode) (string, error) {
	jc := NewJobContext[T](operator, file)
	if err := s.AsyncExecute(ctx, jc, mode); err != nil {
		return "", err
	}
	return jc.TaskID(), nil
}

// Run builds a job context and runs it to completion.
func (s *Service[T]) Run(ctx context.Context, operator string, file *File, mode Mode) (*entity.Progress, error) {
	jc := NewJobContext[T](operator, file)
	if err := s.Execute(ctx, jc, mode); err != nil {
		return nil, err
	}
	p := jc.Progress()
	return &p, nil
}

// GetTask returns the stored progress, or ErrNotFound once it expired.
func (s *Service[T]) GetTask(ctx context.Context, taskID string) (*entity.Progress, error) {
	p, err := s.tracker.Read(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("task %s: %w", taskID, common.ErrNotFound)
	}
	return p, nil
}

// FailFileName returns the download name for a failure workbook.
func (s *Service[T]) FailFileName() string {
	base := s.spec.FailFileName
	if base == "" {
		base = s.spec.Name + "_failures"
	}
	return fmt.Sprintf("%s_%s.xlsx", base, time.Now().Format("2006_01_02_15_04_05"))
}

// IsAdmissionError reports whether err was returned before a job started.
func IsAdmissionError(err error) bool {
	return errors.Is(err, common.ErrBusy) || errors.Is(err, common.ErrInvalidContext) || errors.Is(err, common.ErrUnsupportedExt)
}
