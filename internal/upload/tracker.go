package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/sheetload/constants"
	"github.com/joseph-ayodele/sheetload/internal/cache"
	"github.com/joseph-ayodele/sheetload/internal/entity"
)

// Tracker persists Progress snapshots. Every write replaces the whole
// snapshot and refreshes its TTL.
type Tracker struct {
	cache  cache.Cache
	logger *slog.Logger
}

func NewTracker(c cache.Cache, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{cache: c, logger: logger}
}

func (t *Tracker) Save(ctx context.Context, p *entity.Progress) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	return t.cache.SetEx(ctx, constants.ProgressKeyPrefix+p.TaskID, string(b), constants.ProgressTTL)
}

// Read returns nil when the task is unknown or expired.
func (t *Tracker) Read(ctx context.Context, taskID string) (*entity.Progress, error) {
	v, ok, err := t.cache.Get(ctx, constants.ProgressKeyPrefix+taskID)
	if err != nil {
		return nil, fmt.Errorf("read progress: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var p entity.Progress
	if err := json.Unmarshal([]byte(v), &p); err != nil {
		return nil, fmt.Errorf("unmarshal progress: %w", err)
	}
	return &p, nil
}

// The methods below mutate and persist under the job's progress lock so the
// stored snapshots never go backwards.

func (t *Tracker) start(ctx context.Context, st *progressState, total int) {
	st.do(func(p *entity.Progress) {
		p.SetTotal(total)
		p.AddProgress(0, time.Now())
		t.persist(ctx, p)
	})
}

func (t *Tracker) add(ctx context.Context, st *progressState, processed, success int) {
	st.do(func(p *entity.Progress) {
		p.AddSuccess(success)
		p.AddProgress(processed, time.Now())
		t.persist(ctx, p)
	})
}

func (t *Tracker) finish(ctx context.Context, st *progressState, msg string) {
	st.do(func(p *entity.Progress) {
		p.Message = msg
		t.persist(ctx, p)
	})
}

func (t *Tracker) interrupt(ctx context.Context, st *progressState, msg string) {
	st.do(func(p *entity.Progress) {
		p.Interrupt(msg, time.Now())
		t.persist(ctx, p)
	})
}

func (t *Tracker) persist(ctx context.Context, p *entity.Progress) {
	if err := t.Save(ctx, p); err != nil {
		t.logger.Error("upload.progress.save_failed", "task_id", p.TaskID, "error", err)
	}
}
