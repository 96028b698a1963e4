package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewRootCmd returns the root cobra command for the auto-backup CLI. Run without
// a subcommand it watches the source and backs it up after every burst of changes.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var initial bool
	cmd := &cobra.Command{
		Use:   "auto-backup",
		Short: "Watch a directory and keep a rolling set of backups of it",
		Long: `auto-backup watches a directory tree and, once changes have settled for the
cooldown period, copies it into a timestamped backup (a folder or a ZIP archive).
Only the newest --buffer-size backups are kept.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, stderr, initial)
		},
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	addConfigFlags(cmd)
	cmd.Flags().BoolVar(&initial, "initial", false, "Take a backup immediately at startup")

	cmd.AddCommand(newVersionCmd(stdout))
	cmd.AddCommand(newBackupCmd(stdout, stderr))
	cmd.AddCommand(newListCmd(stdout, stderr))
	cmd.AddCommand(newPruneCmd(stdout, stderr))
	cmd.AddCommand(newVerifyCmd(stdout, stderr))

	return cmd
}

// Execute runs the CLI with the process stdio. SIGINT and SIGTERM stop the
// watcher cleanly with exit code 0.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd(os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
