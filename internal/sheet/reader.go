package sheet

import (
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/sheetload/internal/common"
	"github.com/joseph-ayodele/sheetload/internal/entity"
)

// Reader decodes the first worksheet of a workbook into records. The first
// row holds the headers; blank rows are skipped.
type Reader[T entity.Record] struct {
	New    func() T
	Logger *slog.Logger
}

func (r Reader[T]) Decode(src io.Reader, cols Columns) ([]T, error) {
	if len(cols) == 0 {
		return nil, common.ErrNoColumns
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %v", common.ErrInvalidInput, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warn("sheet.close.failed", "error", err)
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, common.ErrEmptyFile
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	fields, err := mapHeader(rows[0], cols)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		values := make(map[string]any, len(fields))
		for idx, field := range fields {
			if field == "" {
				continue
			}
			cell := ""
			if idx < len(row) {
				cell = strings.TrimSpace(row[idx])
			}
			values[field] = cell
		}
		rec := r.New()
		if err := bind(values, rec); err != nil {
			// header is row 1
			return nil, fmt.Errorf("%w: row %d: %v", common.ErrInvalidInput, i+2, err)
		}
		out = append(out, rec)
	}

	logger.Debug("sheet.decode.ok", "sheet", sheets[0], "rows", len(out))
	return out, nil
}

// mapHeader resolves each header cell to a field, "" for unknown headers.
func mapHeader(header []string, cols Columns) ([]string, error) {
	lookup := cols.byHeader()
	fields := make([]string, len(header))
	found := 0
	for i, h := range header {
		if f, ok := lookup[normalizeHeader(h)]; ok {
			fields[i] = f
			found++
		}
	}
	if found == 0 {
		return nil, fmt.Errorf("%w: no recognised header columns, expected %s",
			common.ErrInvalidInput, strings.Join(cols.Headers(), ", "))
	}
	return fields, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func bind(values map[string]any, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "json",
		WeaklyTypedInput: true,
		Squash:           true,
		DecodeHook:       emptyStringToZero,
	})
	if err != nil {
		return err
	}
	return dec.Decode(values)
}

// emptyStringToZero lets blank cells bind to any field type.
func emptyStringToZero(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() == reflect.String {
		return data, nil
	}
	if s, ok := data.(string); ok && s == "" {
		return reflect.Zero(to).Interface(), nil
	}
	return data, nil
}
