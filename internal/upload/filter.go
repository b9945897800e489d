package upload

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/joseph-ayodele/sheetload/internal/common"
	"github.com/joseph-ayodele/sheetload/internal/entity"
)

// dedup drops every row whose key occurs more than once, first occurrence
// included. Rows with a blank key are always kept.
func dedup[T entity.Record](rows []T, key func(T) any) (kept, dropped []T) {
	if key == nil {
		return rows, nil
	}

	seen := make(map[string]struct{}, len(rows))
	dupKeys := make(map[string]struct{})
	first := make([]T, 0, len(rows))
	for _, r := range rows {
		k, ok := dedupKey(key(r))
		if !ok {
			first = append(first, r)
			continue
		}
		if _, dup := seen[k]; dup {
			dropped = append(dropped, r)
			dupKeys[k] = struct{}{}
			continue
		}
		seen[k] = struct{}{}
		first = append(first, r)
	}

	if len(dupKeys) == 0 {
		return first, dropped
	}
	kept = make([]T, 0, len(first))
	for _, r := range first {
		if k, ok := dedupKey(key(r)); ok {
			if _, dup := dupKeys[k]; dup {
				dropped = append(dropped, r)
				continue
			}
		}
		kept = append(kept, r)
	}
	return kept, dropped
}

func dedupKey(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return "", false
	}
	k := strings.TrimSpace(fmt.Sprint(v))
	return k, k != ""
}

// validate splits rows by their own Validate result. Rejected rows carry the
// validation error as their message.
func validate[T entity.Record](rows []T) (kept, rejected []T) {
	kept = make([]T, 0, len(rows))
	for _, r := range rows {
		if err := r.Validate(); err != nil {
			r.SetErrorMessage(strings.TrimPrefix(err.Error(), common.ErrValidation.Error()+": "))
			rejected = append(rejected, r)
			continue
		}
		kept = append(kept, r)
	}
	return kept, rejected
}
