package constants

import "time"

// Cache key prefixes. Progress and failure keys are suffixed with the task id,
// the lock key with the operator id.
const (
	ProgressKeyPrefix = "sheetload:upload:progress:"
	FailureKeyPrefix  = "sheetload:upload:failures:"
	LockKeyPrefix     = "sheetload:upload:lock:"
)

const (
	ProgressTTL = time.Hour
	FailureTTL  = 10 * time.Minute
	LockTTL     = time.Hour

	// FailureShardSize bounds the number of rows serialized into one cache value.
	FailureShardSize = 200
)

// Default worker pool shape used when the caller does not supply an executor.
const (
	DefaultPoolCoreWorkers = 4
	DefaultPoolMaxWorkers  = 10
	DefaultPoolQueueSize   = 100
	DefaultPoolKeepAlive   = time.Minute
)
