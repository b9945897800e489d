package upload

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/joseph-ayodele/sheetload/constants"
	"github.com/joseph-ayodele/sheetload/internal/cache"
)

// Locker admits at most one running upload per operator, across job types.
type Locker struct {
	cache  cache.Cache
	logger *slog.Logger
}

func NewLocker(c cache.Cache, logger *slog.Logger) *Locker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Locker{cache: c, logger: logger}
}

// Acquire reports whether the operator's lock was taken. Cache errors count
// as not acquired.
func (l *Locker) Acquire(ctx context.Context, operator string) bool {
	key := constants.LockKeyPrefix + operator
	ok, err := l.cache.SetNX(ctx, key, strconv.FormatInt(time.Now().UnixMilli(), 10), constants.LockTTL)
	if err != nil {
		l.logger.Error("upload.lock.acquire_failed", "operator", operator, "error", err)
		return false
	}
	if !ok {
		l.logger.Info("upload.lock.busy", "operator", operator)
	}
	return ok
}

// Release drops the lock. Errors are logged only.
func (l *Locker) Release(ctx context.Context, operator string) {
	key := constants.LockKeyPrefix + operator
	if _, err := l.cache.Del(ctx, key); err != nil {
		l.logger.Error("upload.lock.release_failed", "operator", operator, "error", err)
	}
}
