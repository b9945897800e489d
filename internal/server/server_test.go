package server

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/joseph-ayodele/sheetload/constants"
	"github.com/joseph-ayodele/sheetload/internal/async"
	"github.com/joseph-ayodele/sheetload/internal/cache"
	"github.com/joseph-ayodele/sheetload/internal/common"
	"github.com/joseph-ayodele/sheetload/internal/contacts"
	"github.com/joseph-ayodele/sheetload/internal/repository"
	"github.com/joseph-ayodele/sheetload/internal/upload"
)

func startServer(t *testing.T) *Client {
	t.Helper()
	ctx := context.Background()

	mr := miniredis.RunT(t)
	c := cache.NewRedis(common.RedisConfig{Addr: mr.Addr()}, nil)
	pool := async.NewPool(nil, async.WithCoreWorkers(2))
	db, err := repository.OpenInMemory(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(ctx, db))

	svc, err := contacts.NewService(repository.NewContactRepository(db, nil),
		common.DefaultProfiles()[contacts.JobName], c, pool, nil)
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer(grpc.UnaryInterceptor(RequestLogger(nil)))
	RegisterUploadsServer(gs, NewUploadService(upload.NewRegistry(svc), upload.NewTracker(c, nil), nil))
	go func() { _ = gs.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return lis.Dial() }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		gs.Stop()
		pool.Shutdown(ctx)
		_ = c.Close()
		_ = db.Close()
	})
	return NewClient(conn)
}

func contactsWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	rows := [][]any{
		{"Name", "Email"},
		{"Ada", "ada@example.com"},
		{"Bob", "bob@example.com"},
		{"", "nobody@example.com"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestUploadLifecycle(t *testing.T) {
	client := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	taskID, err := client.Upload(ctx, "alice", contacts.JobName, "people.xlsx", contactsWorkbook(t), true)
	require.NoError(t, err)
	require.NotEmpty(t, taskID)

	require.Eventually(t, func() bool {
		p, err := client.GetTask(ctx, taskID)
		return err == nil && !p.Running
	}, 5*time.Second, 20*time.Millisecond)

	p, err := client.GetTask(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Total)
	assert.Equal(t, 2, p.Success)
	assert.Equal(t, constants.TaskStateCompleted, p.State())
	assert.Equal(t, "alice", p.Operator)
	assert.Equal(t, contacts.JobName, p.Job)

	// failures are persisted after the lock is released, which follows the last progress write
	var data []byte
	var name string
	require.Eventually(t, func() bool {
		data, name, err = client.ExportFailures(ctx, contacts.JobName, taskID)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
	assert.Regexp(t, `^contacts_failures_.*\.xlsx$`, name)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "nobody@example.com", rows[1][1])
}

func TestUploadErrors(t *testing.T) {
	client := startServer(t)
	ctx := context.Background()
	data := contactsWorkbook(t)

	tests := []struct {
		name     string
		operator string
		job      string
		file     string
		data     []byte
		code     codes.Code
	}{
		{"missing operator", "", contacts.JobName, "a.xlsx", data, codes.InvalidArgument},
		{"empty body", "alice", contacts.JobName, "a.xlsx", nil, codes.InvalidArgument},
		{"unknown job", "alice", "orders", "a.xlsx", data, codes.NotFound},
		{"bad extension", "alice", contacts.JobName, "a.csv", data, codes.InvalidArgument},
		{"not a workbook", "alice", contacts.JobName, "a.xlsx", []byte("nope"), codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Upload(ctx, tt.operator, tt.job, tt.file, tt.data, false)
			assert.Equal(t, tt.code, status.Code(err), "error: %v", err)
		})
	}

	_, err := client.GetTask(ctx, "upload.alice.1.deadbeef")
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, _, err = client.ExportFailures(ctx, contacts.JobName, "upload.alice.1.deadbeef")
	assert.Equal(t, codes.NotFound, status.Code(err))
}
