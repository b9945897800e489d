package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/sheetload/constants"
)

// Progress is the persisted, pollable state of one upload task.
type Progress struct {
	TaskID      string     `json:"task_id"`
	Job         string     `json:"job"`
	Operator    string     `json:"operator"`
	Total       int        `json:"total"`
	Processed   int        `json:"processed"`
	Success     int        `json:"success"`
	Running     bool       `json:"running"`
	Interrupted bool       `json:"interrupted"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Message     string     `json:"message,omitempty"`
}

// NewTaskID derives a task id from the operator and the start time. The random
// suffix keeps ids unique for uploads started in the same millisecond.
func NewTaskID(operator string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("upload.%s.%d.%s", operator, now.UnixMilli(), suffix)
}

// NewProgress starts a running task with zero counters.
func NewProgress(job, operator string, now time.Time) *Progress {
	return &Progress{
		TaskID:    NewTaskID(operator, now),
		Job:       job,
		Operator:  operator,
		Running:   true,
		StartedAt: now,
	}
}

// SetTotal records the number of ingested rows.
func (p *Progress) SetTotal(total int) {
	p.Total = total
}

// AddProgress counts n more rows as processed. Negative deltas are ignored.
// The task stops running exactly once, when processed reaches total.
func (p *Progress) AddProgress(n int, now time.Time) {
	if n < 0 {
		return
	}
	p.Processed += n
	if p.Running && p.Processed >= p.Total {
		p.finish(now)
	}
}

func (p *Progress) AddSuccess(n int) {
	if n > 0 {
		p.Success += n
	}
}

// Interrupt force-stops the task after a stage-level failure.
func (p *Progress) Interrupt(msg string, now time.Time) {
	p.Interrupted = true
	p.Message = msg
	if p.Running {
		p.finish(now)
	}
}

func (p *Progress) finish(now time.Time) {
	p.Running = false
	t := now
	p.FinishedAt = &t
}

// State derives the human-facing state.
func (p *Progress) State() constants.TaskState {
	switch {
	case p == nil:
		return constants.TaskStateUnknown
	case p.Interrupted:
		return constants.TaskStateInterrupted
	case p.Running:
		return constants.TaskStateRunning
	default:
		return constants.TaskStateCompleted
	}
}

// Percent returns processed/total in [0, 1]; an empty task counts as done.
func (p *Progress) Percent() float64 {
	if p == nil {
		return 0
	}
	if p.Total <= 0 {
		if p.Running {
			return 0
		}
		return 1
	}
	v := float64(p.Processed) / float64(p.Total)
	if v > 1 {
		return 1
	}
	return v
}
