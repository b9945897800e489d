package constants

// TaskState is the derived, human-facing state of an upload task.
type TaskState string

// Stable values (shown by the CLI and returned over gRPC).
const (
	TaskStateRunning     TaskState = "RUNNING"     // rows still being processed
	TaskStateCompleted   TaskState = "COMPLETED"   // processed == total
	TaskStateInterrupted TaskState = "INTERRUPTED" // stage-level failure
	TaskStateUnknown     TaskState = "UNKNOWN"     // expired or never existed
)

// Terminal and admission messages recorded on Progress or returned to callers.
const (
	MsgBusy          = "an upload is already in progress for this operator, please wait for it to finish and try again"
	MsgNoValidRows   = "no valid rows in spreadsheet"
	MsgTaskSucceeded = "task completed successfully"
	MsgTaskFinished  = "task completed: %d rows total, %d processed successfully"
)
