package upload

import (
	"context"
	"io"

	"github.com/joseph-ayodele/sheetload/internal/entity"
	"github.com/joseph-ayodele/sheetload/internal/sheet"
)

// Mode selects how chunks are handed to the handler.
type Mode int

const (
	Sequential Mode = iota
	Parallel
)

func (m Mode) String() string {
	if m == Parallel {
		return "parallel"
	}
	return "sequential"
}

// Decoder turns an uploaded file into records.
type Decoder[T entity.Record] interface {
	Decode(r io.Reader, cols sheet.Columns) ([]T, error)
}

// Encoder writes records, plus an optional error column, as a spreadsheet.
type Encoder[T entity.Record] interface {
	Encode(w io.Writer, rows []T, cols sheet.Columns, extra sheet.Column) error
}

// FilterFunc applies domain checks to validated rows. It returns the rows that
// survive and is responsible for reporting the ones it drops through
// jc.AddFailure.
type FilterFunc[T entity.Record] func(ctx context.Context, rows []T, jc *JobContext[T]) ([]T, error)

// HandleFunc processes one chunk and returns how many rows succeeded. Rows it
// rejects should be reported through jc.AddFailure. When it returns an error
// the whole chunk is reported as failed.
type HandleFunc[T entity.Record] func(ctx context.Context, chunk []T, jc *JobContext[T]) (int, error)

// Spec configures one job type.
type Spec[T entity.Record] struct {
	// Name identifies the job type, e.g. "contacts".
	Name string
	// Columns maps record fields to spreadsheet headers. Must not be empty.
	Columns sheet.Columns
	// ChunkSize is the number of rows per handler call. Must be at least 1.
	ChunkSize int
	// MaxRows rejects larger uploads; 0 disables the check.
	MaxRows int
	// New allocates an empty record for decoding.
	New func() T

	// DedupKey extracts the uniqueness key; nil disables deduplication.
	DedupKey         func(T) any
	DuplicateMessage string

	Filter FilterFunc[T]
	Handle HandleFunc[T]

	// FailFileName is the base name of the failure workbook.
	FailFileName string

	// CheckContext adds job specific admission checks.
	CheckContext func(jc *JobContext[T]) error

	// Decoder and Encoder default to the excelize adapters in package sheet.
	Decoder Decoder[T]
	Encoder Encoder[T]
}
