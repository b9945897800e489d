package common

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error codes carried by AppError.
const (
	CodeBusy           = "UPLOAD_BUSY"
	CodeInvalidContext = "INVALID_CONTEXT"
	CodeIngestFailed   = "INGEST_FAILED"
	CodeConfig         = "CONFIG_ERROR"
	CodeExecutor       = "EXECUTOR_ERROR"
)

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")
	ErrCache        = errors.New("cache error")

	// upload admission and ingestion
	ErrBusy           = errors.New("upload already in progress")
	ErrInvalidContext = errors.New("invalid upload context")
	ErrNoColumns      = errors.New("header columns are not configured")
	ErrEmptyFile      = errors.New("uploaded file has no rows")
	ErrTooManyRows    = errors.New("uploaded file exceeds the maximum row count")
	ErrUnsupportedExt = errors.New("unsupported file extension")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func NotFoundError(message string) error {
	return status.Error(codes.NotFound, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

func InvalidArgumentErrorf(format string, args ...interface{}) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}

func InternalErrorf(format string, args ...interface{}) error {
	return InternalError(fmt.Sprintf(format, args...))
}

// ToStatus maps application errors onto gRPC status errors. Errors that already
// carry a status are returned unchanged.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	msg := err.Error()
	var appErr *AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	switch {
	case errors.Is(err, ErrBusy):
		return status.Error(codes.ResourceExhausted, msg)
	case errors.Is(err, ErrNotFound):
		return status.Error(codes.NotFound, msg)
	case errors.Is(err, ErrInvalidContext),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrNoColumns),
		errors.Is(err, ErrEmptyFile),
		errors.Is(err, ErrTooManyRows),
		errors.Is(err, ErrUnsupportedExt),
		errors.Is(err, ErrValidation):
		return status.Error(codes.InvalidArgument, msg)
	default:
		return status.Error(codes.Internal, msg)
	}
}
