// Package contacts is the contact import job type.
package contacts

import (
	"context"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/sheetload/internal/async"
	"github.com/joseph-ayodele/sheetload/internal/cache"
	"github.com/joseph-ayodele/sheetload/internal/common"
	"github.com/joseph-ayodele/sheetload/internal/entity"
	"github.com/joseph-ayodele/sheetload/internal/repository"
	"github.com/joseph-ayodele/sheetload/internal/sheet"
	"github.com/joseph-ayodele/sheetload/internal/upload"
)

const (
	JobName        = "contacts"
	MsgExists      = "contact already exists"
	defaultDupText = "duplicate e-mail in spreadsheet"
)

type job struct {
	repo   repository.ContactRepository
	logger *slog.Logger
}

// NewSpec builds the contacts job from its profile.
func NewSpec(repo repository.ContactRepository, profile common.JobProfile, logger *slog.Logger) upload.Spec[*entity.Contact] {
	if logger == nil {
		logger = slog.Default()
	}
	j := &job{repo: repo, logger: logger.With("job", JobName)}

	dupMsg := profile.DuplicateMessage
	if dupMsg == "" {
		dupMsg = defaultDupText
	}
	return upload.Spec[*entity.Contact]{
		Name:             JobName,
		Columns:          sheet.FromAliases(profile.Columns),
		ChunkSize:        profile.ChunkSize,
		MaxRows:          profile.MaxRows,
		New:              func() *entity.Contact { return &entity.Contact{} },
		DedupKey:         func(c *entity.Contact) any { return strings.ToLower(c.Email) },
		DuplicateMessage: dupMsg,
		Filter:           j.filter,
		Handle:           j.handle,
		FailFileName:     profile.FailFileName,
	}
}

// NewService wires the contacts job to its collaborators.
func NewService(repo repository.ContactRepository, profile common.JobProfile, c cache.Cache, pool async.Executor, logger *slog.Logger) (*upload.Service[*entity.Contact], error) {
	return upload.NewService(NewSpec(repo, profile, logger), c, pool, logger)
}

// filter drops contacts whose e-mail is already stored.
func (j *job) filter(ctx context.Context, rows []*entity.Contact, jc *upload.JobContext[*entity.Contact]) ([]*entity.Contact, error) {
	emails := make([]string, len(rows))
	for i, c := range rows {
		emails[i] = c.Email
	}
	existing, err := j.repo.ExistingEmails(ctx, emails)
	if err != nil {
		return nil, err
	}
	if len(existing) == 0 {
		return rows, nil
	}
	kept := make([]*entity.Contact, 0, len(rows))
	for _, c := range rows {
		if _, ok := existing[strings.ToLower(strings.TrimSpace(c.Email))]; ok {
			jc.AddFailure(c, MsgExists)
			continue
		}
		kept = append(kept, c)
	}
	j.logger.Debug("contacts.filter.ok", "task_id", jc.TaskID(), "existing", len(rows)-len(kept))
	return kept, nil
}

// handle stores one chunk. Rows that lost a race with another insert are
// reported as already existing.
func (j *job) handle(ctx context.Context, chunk []*entity.Contact, jc *upload.JobContext[*entity.Contact]) (int, error) {
	res, err := j.repo.InsertBatch(ctx, chunk)
	if err != nil {
		return 0, err
	}
	jc.AddFailures(res.Skipped, MsgExists)
	j.logger.Debug("contacts.chunk.stored",
		"task_id", common.TaskIDFromContext(ctx),
		"operator", common.OperatorFromContext(ctx),
		"inserted", res.Inserted,
		"skipped", len(res.Skipped),
	)
	return res.Inserted, nil
}
