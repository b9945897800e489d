package common

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code codes.Code
		msg  string
	}{
		{"busy", NewAppError(CodeBusy, "already running", ErrBusy), codes.ResourceExhausted, "already running"},
		{"not found", fmt.Errorf("lookup: %w", ErrNotFound), codes.NotFound, "lookup: resource not found"},
		{"invalid context", NewAppError(CodeInvalidContext, "operator is required", ErrInvalidContext), codes.InvalidArgument, "operator is required"},
		{"too many rows", ErrTooManyRows, codes.InvalidArgument, ErrTooManyRows.Error()},
		{"other", errors.New("boom"), codes.Internal, "boom"},
		{"already status", status.Error(codes.Unavailable, "down"), codes.Unavailable, "down"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, ok := status.FromError(ToStatus(tt.err))
			require.True(t, ok)
			assert.Equal(t, tt.code, st.Code())
			assert.Equal(t, tt.msg, st.Message())
		})
	}
	assert.NoError(t, ToStatus(nil))
}

func TestAppErrorUnwrap(t *testing.T) {
	err := NewAppError(CodeBusy, "busy", ErrBusy)
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, "UPLOAD_BUSY: busy: upload already in progress", err.Error())
}

func TestValidator(t *testing.T) {
	v := NewValidator().
		Field("name", "", Required).
		Field("email", "not-an-email", Email).
		Field("company", "ab", LengthBetween(3, 10))
	require.True(t, v.HasErrors())
	assert.Len(t, v.Errors(), 3)
	assert.True(t, IsValidation(v.Error()))
	assert.Contains(t, v.ErrorMessage(), "name is required")

	ok := NewValidator().
		Field("email", "", Email).
		Field("email", "a.b@example.com", Email).
		Field("company", "Acme", LengthBetween(3, 10))
	assert.False(t, ok.HasErrors())
	assert.NoError(t, ok.Error())
}

func TestValidateAgainstSchema(t *testing.T) {
	schema := MustCompileSchema("test.json", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"email": map[string]any{"type": "string", "format": "email"},
			"quota": map[string]any{"type": "integer", "minimum": 0},
		},
	})

	assert.NoError(t, ValidateAgainstSchema(schema, map[string]any{"email": "a@example.com", "quota": 3}))

	err := ValidateAgainstSchema(schema, map[string]any{"email": "nope", "quota": -1})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "email")
	assert.Contains(t, err.Error(), "quota")
}

func TestLoadJobProfiles(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		p, err := LoadJobProfiles("")
		require.NoError(t, err)
		require.Contains(t, p, "contacts")
		assert.Equal(t, 100, p["contacts"].ChunkSize)
	})

	t.Run("overlay", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "jobs.yaml")
		body := `
jobs:
  contacts:
    chunk_size: 50
    columns:
      - field: email
        header: E-mail
`
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
		p, err := LoadJobProfiles(path)
		require.NoError(t, err)
		c := p["contacts"]
		assert.Equal(t, 50, c.ChunkSize)
		assert.Equal(t, 10000, c.MaxRows)
		assert.Equal(t, []ColumnAlias{{Field: "email", Header: "E-mail"}}, c.Columns)
	})

	t.Run("unknown job without columns", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "jobs.yaml")
		require.NoError(t, os.WriteFile(path, []byte("jobs:\n  orders:\n    chunk_size: 10\n"), 0o600))
		_, err := LoadJobProfiles(path)
		assert.ErrorIs(t, err, ErrNoColumns)
	})
}

func TestConfigValidate(t *testing.T) {
	t.Setenv("POOL_CORE_WORKERS", "8")
	t.Setenv("POOL_MAX_WORKERS", "4")
	cfg := LoadConfig()
	assert.Equal(t, 8, cfg.Pool.CoreWorkers)
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidInput)

	t.Setenv("POOL_MAX_WORKERS", "16")
	t.Setenv("LOG_LEVEL", "debug")
	cfg = LoadConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, slog.LevelDebug, cfg.Logging.Level)
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)
	logger.Info("upload.ingest.ok", "rows", 3)
	logger.Debug("hidden")

	assert.Contains(t, stderr.String(), "upload.ingest.ok")
	assert.Contains(t, file.String(), `"msg":"upload.ingest.ok"`)
	assert.NotContains(t, file.String(), "hidden")
}
