package sheet

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/go-viper/mapstructure/v2"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/sheetload/internal/entity"
)

const (
	sheetName   = "Sheet1"
	columnWidth = 22
)

// Writer encodes records into a single-sheet workbook.
type Writer[T entity.Record] struct {
	Logger *slog.Logger
}

// Encode writes a header row then one row per record. When extra has a
// header, an additional column carries each record's error message.
func (w Writer[T]) Encode(dst io.Writer, rows []T, cols Columns, extra Column) error {
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warn("sheet.close.failed", "error", err)
		}
	}()

	headers := cols.Headers()
	if extra.Header != "" {
		headers = append(headers, extra.Header)
	}

	style, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return fmt.Errorf("xlsx style: %w", err)
	}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return fmt.Errorf("xlsx stream: %w", err)
	}
	if err := sw.SetColWidth(1, len(headers), columnWidth); err != nil {
		return fmt.Errorf("xlsx width: %w", err)
	}

	if err := sw.SetRow("A1", toCells(headers), excelize.RowOpts{StyleID: style}); err != nil {
		return fmt.Errorf("xlsx header: %w", err)
	}

	for i, rec := range rows {
		m, err := toMap(rec)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
		values := make([]any, 0, len(headers))
		for _, col := range cols {
			values = append(values, cellValue(m[col.Field]))
		}
		if extra.Header != "" {
			values = append(values, rec.ErrorMessage())
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, values, excelize.RowOpts{StyleID: style}); err != nil {
			return fmt.Errorf("xlsx row %d: %w", i+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("xlsx flush: %w", err)
	}
	if err := f.Write(dst); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

func toCells(headers []string) []any {
	out := make([]any, len(headers))
	for i, h := range headers {
		out[i] = h
	}
	return out
}

func toMap(rec any) (map[string]any, error) {
	out := map[string]any{}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &out,
		TagName: "json",
		Squash:  true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(rec); err != nil {
		return nil, err
	}
	return out, nil
}

func cellValue(v any) any {
	switch v.(type) {
	case nil:
		return ""
	case string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return v
	default:
		return fmt.Sprint(v)
	}
}
