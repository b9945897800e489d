package repository

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/sheetload/internal/entity"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	db, err := OpenInMemory(context.Background(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { Close(db, logger) })
	require.NoError(t, Migrate(context.Background(), db))
	return db
}

func TestRebind(t *testing.T) {
	pg := &DB{dialect: Postgres}
	assert.Equal(t, "SELECT 1 WHERE a = $1 AND b IN ($2, $3)", pg.rebind("SELECT 1 WHERE a = ? AND b IN (?, ?)"))

	lite := &DB{dialect: SQLite}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}

func TestContactRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewContactRepository(db, nil)

	res, err := repo.InsertBatch(ctx, []*entity.Contact{
		{Name: "Ada", Email: "Ada@Example.com", Segment: "Customer", Quota: 5},
		{Name: "Bob", Email: "bob@example.com", Segment: "Lead"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)
	assert.Empty(t, res.Skipped)

	dup := &entity.Contact{Name: "Ada again", Email: "ada@example.com", Segment: "Other"}
	res, err = repo.InsertBatch(ctx, []*entity.Contact{dup, {Name: "Cy", Email: "cy@example.com", Segment: "Other"}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, []*entity.Contact{dup}, res.Skipped)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	found, err := repo.ExistingEmails(ctx, []string{"ADA@example.com", "nobody@example.com", " cy@example.com "})
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"ada@example.com": {}, "cy@example.com": {}}, found)
}

func TestInsertBatchCanonicalizesSegment(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewContactRepository(db, nil)

	client := &entity.Contact{Name: "Ada", Email: "ada@example.com", Segment: "client"}
	blank := &entity.Contact{Name: "Bob", Email: "bob@example.com"}
	_, err := repo.InsertBatch(ctx, []*entity.Contact{client, blank})
	require.NoError(t, err)

	stored := func(email string) string {
		var seg string
		require.NoError(t, db.QueryRowContext(ctx, db.rebind("SELECT segment FROM contacts WHERE email = ?"), email).Scan(&seg))
		return seg
	}
	assert.Equal(t, "Customer", stored("ada@example.com"))
	assert.Equal(t, "Other", stored("bob@example.com"))
	assert.Equal(t, "client", client.Segment)
	assert.Empty(t, blank.Segment)
}

func TestExistingEmailsBatches(t *testing.T) {
	ctx := context.Background()
	repo := NewContactRepository(newTestDB(t), nil)

	contacts := make([]*entity.Contact, 0, 1200)
	emails := make([]string, 0, 1200)
	for i := 0; i < 1200; i++ {
		e := fmt.Sprintf("user%d@example.com", i)
		contacts = append(contacts, &entity.Contact{Name: "u", Email: e, Segment: "Other"})
		emails = append(emails, e)
	}
	res, err := repo.InsertBatch(ctx, contacts)
	require.NoError(t, err)
	require.Equal(t, 1200, res.Inserted)

	found, err := repo.ExistingEmails(ctx, emails)
	require.NoError(t, err)
	assert.Len(t, found, 1200)
}

func TestHealthCheck(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, HealthCheck(context.Background(), db, 0, slog.Default()))
}
