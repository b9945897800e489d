package upload

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/joseph-ayodele/sheetload/internal/entity"
)

// File is an uploaded spreadsheet. Open may be called more than once.
type File struct {
	Name string
	Open func() (io.ReadCloser, error)
}

func FileFromBytes(name string, data []byte) *File {
	return &File{
		Name: name,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func FileFromPath(path string) *File {
	return &File{
		Name: filepath.Base(path),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}

// Ext returns the file extension without the dot.
func (f *File) Ext() string {
	ext := filepath.Ext(f.Name)
	if ext == "" {
		return ""
	}
	return ext[1:]
}

// progressState owns the in-memory Progress of one job.
type progressState struct {
	mu       sync.Mutex
	job      string
	operator string
	p        *entity.Progress
}

func (s *progressState) do(fn func(p *entity.Progress)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.p == nil {
		s.p = entity.NewProgress(s.job, s.operator, time.Now())
	}
	fn(s.p)
}

// JobContext is the state of one upload invocation. It is safe for concurrent
// use by handlers running on worker goroutines.
type JobContext[T entity.Record] struct {
	Operator string
	File     *File

	progress progressState

	mu       sync.Mutex
	failures []T
	reported map[any]struct{}
}

func NewJobContext[T entity.Record](operator string, file *File) *JobContext[T] {
	jc := &JobContext[T]{Operator: operator, File: file}
	jc.progress.operator = operator
	return jc
}

// bind names the job type before Progress is first created.
func (jc *JobContext[T]) bind(job string) {
	jc.progress.mu.Lock()
	defer jc.progress.mu.Unlock()
	if jc.progress.p == nil {
		jc.progress.job = job
		jc.progress.operator = jc.Operator
	}
}

// TaskID returns the id under which progress and failures are stored.
func (jc *JobContext[T]) TaskID() string {
	var id string
	jc.progress.do(func(p *entity.Progress) { id = p.TaskID })
	return id
}

// Progress returns a snapshot of the current progress.
func (jc *JobContext[T]) Progress() entity.Progress {
	var snap entity.Progress
	jc.progress.do(func(p *entity.Progress) { snap = *p })
	return snap
}

// AddFailure records rec as failed. A non-empty msg replaces the record's own
// error message.
func (jc *JobContext[T]) AddFailure(rec T, msg string) {
	jc.mu.Lock()
	defer jc.mu.Unlock()
	jc.addLocked(rec, msg)
}

func (jc *JobContext[T]) AddFailures(recs []T, msg string) {
	if len(recs) == 0 {
		return
	}
	jc.mu.Lock()
	defer jc.mu.Unlock()
	for _, rec := range recs {
		jc.addLocked(rec, msg)
	}
}

// addUnreported records the rows of recs not yet in the failure list and
// leaves the message of those already there untouched.
func (jc *JobContext[T]) addUnreported(recs []T, msg string) {
	jc.mu.Lock()
	defer jc.mu.Unlock()
	for _, rec := range recs {
		if jc.reportedLocked(rec) {
			continue
		}
		jc.addLocked(rec, msg)
	}
}

func (jc *JobContext[T]) addLocked(rec T, msg string) {
	if msg != "" {
		rec.SetErrorMessage(msg)
	}
	jc.failures = append(jc.failures, rec)
	if k, ok := recordKey(rec); ok {
		if jc.reported == nil {
			jc.reported = make(map[any]struct{})
		}
		jc.reported[k] = struct{}{}
	}
}

func (jc *JobContext[T]) reportedLocked(rec T) bool {
	if k, ok := recordKey(rec); ok {
		_, seen := jc.reported[k]
		return seen
	}
	// records without identity count as reported once they carry a message
	return rec.ErrorMessage() != ""
}

// recordKey returns the identity of rec when it is a pointer.
func recordKey(rec any) (any, bool) {
	t := reflect.TypeOf(rec)
	if t == nil || t.Kind() != reflect.Pointer {
		return nil, false
	}
	return rec, true
}

// Failures returns a copy of the failure list.
func (jc *JobContext[T]) Failures() []T {
	jc.mu.Lock()
	defer jc.mu.Unlock()
	out := make([]T, len(jc.failures))
	copy(out, jc.failures)
	return out
}

func (jc *JobContext[T]) FailSize() int {
	jc.mu.Lock()
	defer jc.mu.Unlock()
	return len(jc.failures)
}
