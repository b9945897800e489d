package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/sheetload/constants"
	"github.com/joseph-ayodele/sheetload/internal/common"
	"github.com/joseph-ayodele/sheetload/internal/entity"
)

const lookupBatch = 500

// InsertResult reports the outcome of InsertBatch.
type InsertResult struct {
	Inserted int
	// Skipped holds rows whose e-mail was already stored.
	Skipped []*entity.Contact
}

type ContactRepository interface {
	// ExistingEmails returns the subset of emails already stored, lowercased.
	ExistingEmails(ctx context.Context, emails []string) (map[string]struct{}, error)
	// InsertBatch inserts contacts in one transaction, skipping known e-mails.
	// Segments are stored in canonical form; the contacts are left unchanged.
	InsertBatch(ctx context.Context, contacts []*entity.Contact) (InsertResult, error)
	Count(ctx context.Context) (int, error)
}

type contactRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewContactRepository(db *DB, logger *slog.Logger) ContactRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &contactRepository{db: db, logger: logger}
}

func (r *contactRepository) ExistingEmails(ctx context.Context, emails []string) (map[string]struct{}, error) {
	found := make(map[string]struct{})
	for start := 0; start < len(emails); start += lookupBatch {
		end := min(start+lookupBatch, len(emails))
		batch := emails[start:end]

		args := make([]any, len(batch))
		for i, e := range batch {
			args[i] = strings.ToLower(strings.TrimSpace(e))
		}
		q := "SELECT email FROM contacts WHERE email IN (" + placeholders(len(batch)) + ")"
		rows, err := r.db.QueryContext(ctx, r.db.rebind(q), args...)
		if err != nil {
			r.logger.Error("failed to look up contacts", "error", err)
			return nil, fmt.Errorf("%w: lookup emails: %v", common.ErrDatabase, err)
		}
		for rows.Next() {
			var e string
			if err := rows.Scan(&e); err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("%w: scan email: %v", common.ErrDatabase, err)
			}
			found[e] = struct{}{}
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("%w: lookup emails: %v", common.ErrDatabase, err)
		}
		_ = rows.Close()
	}
	return found, nil
}

func (r *contactRepository) InsertBatch(ctx context.Context, contacts []*entity.Contact) (res InsertResult, err error) {
	if len(contacts) == 0 {
		return res, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("%w: begin: %v", common.ErrDatabase, err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.logger.Error("failed to roll back contact batch", "error", rbErr)
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, r.db.rebind(`INSERT INTO contacts
		(id, name, email, phone, company, segment, quota, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (email) DO NOTHING`))
	if err != nil {
		return InsertResult{}, fmt.Errorf("%w: prepare insert: %v", common.ErrDatabase, err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, c := range contacts {
		seg, _ := constants.Canonicalize(c.Segment)
		out, err := stmt.ExecContext(ctx,
			uuid.NewString(), c.Name, strings.ToLower(c.Email), c.Phone, c.Company, string(seg), c.Quota, now)
		if err != nil {
			return InsertResult{}, fmt.Errorf("%w: insert %s: %v", common.ErrDatabase, c.Email, err)
		}
		n, err := out.RowsAffected()
		if err != nil {
			return InsertResult{}, fmt.Errorf("%w: rows affected: %v", common.ErrDatabase, err)
		}
		if n == 0 {
			res.Skipped = append(res.Skipped, c)
			continue
		}
		res.Inserted++
	}

	if err := tx.Commit(); err != nil {
		return InsertResult{}, fmt.Errorf("%w: commit: %v", common.ErrDatabase, err)
	}
	r.logger.Debug("inserted contact batch", "inserted", res.Inserted, "skipped", len(res.Skipped))
	return res, nil
}

func (r *contactRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM contacts").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count contacts: %v", common.ErrDatabase, err)
	}
	return n, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
