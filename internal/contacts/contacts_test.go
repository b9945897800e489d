package contacts

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/sheetload/internal/async"
	"github.com/joseph-ayodele/sheetload/internal/cache"
	"github.com/joseph-ayodele/sheetload/internal/common"
	"github.com/joseph-ayodele/sheetload/internal/entity"
	"github.com/joseph-ayodele/sheetload/internal/repository"
	"github.com/joseph-ayodele/sheetload/internal/upload"
)

func workbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

type fixture struct {
	svc  *upload.Service[*entity.Contact]
	repo repository.ContactRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	mr := miniredis.RunT(t)
	c := cache.NewRedis(common.RedisConfig{Addr: mr.Addr()}, nil)
	pool := async.NewPool(nil, async.WithCoreWorkers(2))
	db, err := repository.OpenInMemory(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		pool.Shutdown(ctx)
		_ = c.Close()
		_ = db.Close()
	})
	require.NoError(t, repository.Migrate(ctx, db))

	repo := repository.NewContactRepository(db, nil)
	profile := common.DefaultProfiles()[JobName]
	profile.ChunkSize = 2
	svc, err := NewService(repo, profile, c, pool, nil)
	require.NoError(t, err)
	return &fixture{svc: svc, repo: repo}
}

func TestContactsImport(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	_, err := fx.repo.InsertBatch(ctx, []*entity.Contact{{Name: "Old", Email: "old@example.com", Segment: "Other"}})
	require.NoError(t, err)

	data := workbook(t, [][]any{
		{"Name", "Email", "Phone", "Company", "Segment", "Quota"},
		{"Ada", "ada@example.com", "+44 20 7946 0000", "Acme", "client", 10},
		{"Bob", "bob@example.com", "", "", "prospect", ""},
		{"Dup 1", "dup@example.com", "", "", "", ""},
		{"Dup 2", "DUP@example.com", "", "", "", ""},
		{"", "noname@example.com", "", "", "", ""},
		{"Old again", "old@example.com", "", "", "", ""},
		{"Cy", "cy@example.com", "", "", "vendor", 3},
	})

	p, err := fx.svc.Run(ctx, "alice", upload.FileFromBytes("contacts.xlsx", data), upload.Sequential)
	require.NoError(t, err)

	assert.Equal(t, 7, p.Total)
	assert.Equal(t, 7, p.Processed)
	assert.Equal(t, 3, p.Success)
	assert.False(t, p.Interrupted)
	assert.Equal(t, fmt.Sprintf("task completed: %d rows total, %d processed successfully", 7, 3), p.Message)

	n, err := fx.repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	var buf bytes.Buffer
	exported, err := fx.svc.ExportFailures(ctx, p.TaskID, &buf)
	require.NoError(t, err)
	assert.Equal(t, 4, exported)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	_ = f.Close()
	require.Len(t, rows, 5)
	assert.Equal(t, "Error", rows[0][len(rows[0])-1])

	msgs := map[string]string{}
	for _, r := range rows[1:] {
		msgs[r[1]] = r[len(r)-1]
	}
	assert.Equal(t, "duplicate e-mail in spreadsheet", msgs["dup@example.com"])
	assert.Equal(t, "duplicate e-mail in spreadsheet", msgs["DUP@example.com"])
	assert.Equal(t, MsgExists, msgs["old@example.com"])
	assert.Contains(t, msgs["noname@example.com"], "name is required")
}

func TestContactsSecondImportIsFiltered(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	data := workbook(t, [][]any{
		{"Email", "Name", "Segment"},
		{"ada@example.com", "Ada", "Supplier"},
	})
	p, err := fx.svc.Run(ctx, "bob", upload.FileFromBytes("c.xlsx", data), upload.Parallel)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Success)

	// a second import of the same e-mail is filtered out
	p, err = fx.svc.Run(ctx, "bob", upload.FileFromBytes("c.xlsx", data), upload.Parallel)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Success)
	assert.Equal(t, "no valid rows in spreadsheet", p.Message)
}

func TestContactsHandlerKeepsSegment(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	_, err := fx.repo.InsertBatch(ctx, []*entity.Contact{{Name: "Old", Email: "old@example.com"}})
	require.NoError(t, err)

	j := &job{repo: fx.repo, logger: slog.Default()}
	jc := upload.NewJobContext[*entity.Contact]("bob", nil)
	fresh := &entity.Contact{Name: "Ada", Email: "ada@example.com", Segment: "supplier"}
	raced := &entity.Contact{Name: "Old again", Email: "old@example.com", Segment: "prospect"}

	n, err := j.handle(ctx, []*entity.Contact{fresh, raced}, jc)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "supplier", fresh.Segment)

	failed := jc.Failures()
	require.Len(t, failed, 1)
	assert.Equal(t, "prospect", failed[0].Segment)
	assert.Equal(t, MsgExists, failed[0].ErrorMessage())
}
