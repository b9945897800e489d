package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/sheetload/constants"
	"github.com/joseph-ayodele/sheetload/internal/cache"
	"github.com/joseph-ayodele/sheetload/internal/entity"
)

// FailureStore keeps failed rows in the cache as JSON shards.
type FailureStore[T entity.Record] struct {
	cache  cache.Cache
	logger *slog.Logger
}

func NewFailureStore[T entity.Record](c cache.Cache, logger *slog.Logger) *FailureStore[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &FailureStore[T]{cache: c, logger: logger}
}

// Persist writes rows in shards of constants.FailureShardSize. Nothing is
// written for an empty list.
func (s *FailureStore[T]) Persist(ctx context.Context, taskID string, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	chunks := Partition(rows, constants.FailureShardSize)
	shards := make([]string, 0, len(chunks))
	for _, c := range chunks {
		b, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshal failure shard: %w", err)
		}
		shards = append(shards, string(b))
	}
	if _, err := s.cache.SAdd(ctx, constants.FailureKeyPrefix+taskID, shards, constants.FailureTTL); err != nil {
		return fmt.Errorf("store failure shards: %w", err)
	}
	s.logger.Info("upload.failures.persisted", "task_id", taskID, "rows", len(rows), "shards", len(shards))
	return nil
}

// Load returns every stored failed row, in no particular shard order.
func (s *FailureStore[T]) Load(ctx context.Context, taskID string) ([]T, error) {
	shards, err := s.cache.SMembers(ctx, constants.FailureKeyPrefix+taskID)
	if err != nil {
		return nil, fmt.Errorf("load failure shards: %w", err)
	}
	var out []T
	for i, shard := range shards {
		var rows []T
		if err := json.Unmarshal([]byte(shard), &rows); err != nil {
			return nil, fmt.Errorf("unmarshal failure shard %d: %w", i, err)
		}
		out = append(out, rows...)
	}
	return out, nil
}
