package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/sheetload/internal/async"
	"github.com/joseph-ayodele/sheetload/internal/cache"
	"github.com/joseph-ayodele/sheetload/internal/common"
	"github.com/joseph-ayodele/sheetload/internal/contacts"
	"github.com/joseph-ayodele/sheetload/internal/repository"
	"github.com/joseph-ayodele/sheetload/internal/upload"
)

type runFlags struct {
	inMemory bool
	parallel bool
	failures string
}

func newRunCmd(opts *options) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run <file.xlsx>",
		Short: "Import a workbook in this process and wait for the result",
		Long: `Run ingests and processes a workbook without a server.

The database comes from DB_URL unless --inmem is given. Progress and
failures are still kept in Redis (REDIS_ADDR).

Examples:
  sheetload run contacts.xlsx --inmem
  sheetload run contacts.xlsx --parallel --failures ./out`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLocal(cmd.Context(), cmd, opts, f, args[0])
		},
	}
	cmd.Flags().BoolVar(&f.inMemory, "inmem", false, "use a throwaway in-memory database")
	cmd.Flags().BoolVarP(&f.parallel, "parallel", "p", false, "process chunks in parallel")
	cmd.Flags().StringVar(&f.failures, "failures", "", "directory to write the failure workbook into")
	return cmd
}

func runLocal(ctx context.Context, cmd *cobra.Command, opts *options, f *runFlags, path string) error {
	cfg, logger := opts.cfg, opts.logger

	var (
		db  *repository.DB
		err error
	)
	if f.inMemory {
		db, err = repository.OpenInMemory(ctx, logger)
	} else {
		if cfg.Database.DSN == "" {
			return fmt.Errorf("DB_URL is required unless --inmem is set")
		}
		db, err = repository.Open(ctx, cfg.Database, logger)
	}
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer repository.Close(db, logger)
	if err := repository.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	rc := cache.NewRedis(cfg.Redis, logger)
	defer rc.Close()
	if err := rc.Ping(ctx, cfg.Redis.DialTimeout); err != nil {
		return fmt.Errorf("redis %s: %w", cfg.Redis.Addr, err)
	}

	profiles, err := common.LoadJobProfiles(cfg.Jobs.ProfilesPath)
	if err != nil {
		return err
	}

	pool := async.NewPool(logger,
		async.WithCoreWorkers(cfg.Pool.CoreWorkers),
		async.WithMaxWorkers(cfg.Pool.MaxWorkers),
		async.WithQueueSize(cfg.Pool.QueueSize),
		async.WithKeepAlive(cfg.Pool.KeepAlive),
	)
	defer pool.Shutdown(context.Background())

	contactsSvc, err := contacts.NewService(repository.NewContactRepository(db, logger),
		profiles[contacts.JobName], rc, pool, logger)
	if err != nil {
		return err
	}
	runner, err := upload.NewRegistry(contactsSvc).Get(opts.job)
	if err != nil {
		return err
	}

	mode := upload.Sequential
	if f.parallel {
		mode = upload.Parallel
	}
	p, err := runner.Run(ctx, opts.operator, upload.FileFromPath(path), mode)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printProgress(out, p)

	if f.failures == "" || p.Processed == p.Success {
		return nil
	}
	dst := filepath.Join(f.failures, runner.FailFileName())
	file, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	n, err := runner.ExportFailures(ctx, p.TaskID, file)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("export failures: %w", err)
	}
	if n == 0 {
		_ = os.Remove(dst)
		return nil
	}
	fmt.Fprintf(out, "Failures: %d rows written to %s\n", n, dst)
	return nil
}
