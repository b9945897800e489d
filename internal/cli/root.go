package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/sheetload/internal/common"
	"github.com/joseph-ayodele/sheetload/internal/server"
)

// Version is set at build time.
var Version = "dev"

// options carries the global flags and what PersistentPreRunE derives from them.
type options struct {
	addr     string
	operator string
	job      string
	logLevel string
	logFile  string

	cfg      *common.Config
	logger   *slog.Logger
	closeLog func() error
}

// NewRootCmd builds the sheetload command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "sheetload",
		Short: "Bulk-load spreadsheets in chunks",
		Long: `sheetload imports xlsx workbooks row by row, isolating failures per chunk.

Uploads can run locally against a database (run) or be handed to a
sheetloadd server (submit) and followed with status, watch and export.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.cfg = common.LoadConfig()
			level := opts.cfg.Logging.Level
			if opts.logLevel != "" {
				level = common.ParseLogLevel(opts.logLevel)
			}
			opts.logger, opts.closeLog = common.SetupLogger(opts.logFile, level)
			if opts.operator == "" {
				opts.operator = os.Getenv("USER")
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.closeLog != nil {
				return opts.closeLog()
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.addr, "addr", "", "sheetloadd address (default GRPC_ADDR)")
	cmd.PersistentFlags().StringVarP(&opts.operator, "operator", "u", "", "operator running the upload (default $USER)")
	cmd.PersistentFlags().StringVarP(&opts.job, "job", "j", "contacts", "job type")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (default LOG_LEVEL)")
	cmd.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "also write JSON logs to this file")

	cmd.AddCommand(
		newRunCmd(opts),
		newSubmitCmd(opts),
		newStatusCmd(opts),
		newWatchCmd(opts),
		newExportCmd(opts),
	)
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().ExecuteContext(context.Background())
}

// client dials the configured server. The returned func closes the connection.
func (o *options) client() (*server.Client, func(), error) {
	addr := o.addr
	if addr == "" {
		addr = o.cfg.Server.GRPCAddr
	}
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	conn, err := server.Dial(addr)
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return server.NewClient(conn), func() { _ = conn.Close() }, nil
}
