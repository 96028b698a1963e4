package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"auto-backup/src/config"
	"auto-backup/src/retention"
	"auto-backup/src/safety"
)

func newPruneCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete the oldest backups beyond --buffer-size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := mergeConfig(cmd.Flags())
			if err != nil {
				return err
			}
			if cfg.MaxBackups < 0 {
				return fmt.Errorf("%w: buffer size must be >= 0, got %d", config.ErrInvalid, cfg.MaxBackups)
			}
			if cfg.MaxBackups == 0 {
				fmt.Fprintln(stdout, "Buffer size 0 keeps every backup; nothing to prune")
				return nil
			}
			be, err := openBackend(cmd)
			if err != nil {
				return err
			}
			entries, err := be.List()
			if err != nil {
				return err
			}
			toDelete := retention.Plan(entries, cfg.MaxBackups)

			// Preview
			tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tKIND\tMODIFIED\tACTION")
			for _, e := range toDelete {
				fmt.Fprintf(tw, "%s\t%s\t%s\tdelete\n", e.Name, e.Kind, e.ModTime.Format(time.RFC3339))
			}
			_ = tw.Flush()

			opts := getSafetyOptions(cmd)
			if opts.DryRun || len(toDelete) == 0 {
				return nil
			}
			ok, err := safety.Confirm(opts, cmd.InOrStdin(), stdout, fmt.Sprintf("Delete %d backups?", len(toDelete)))
			if err != nil || !ok {
				return err
			}

			logFile, err := cfg.ResolveLogFile()
			if err != nil {
				return err
			}
			log, closeLog, err := newLogger(cfg, logFile, stderr)
			if err != nil {
				return err
			}
			defer closeLog()

			report, err := retention.Prune(be, cfg.MaxBackups, retention.Options{Log: log})
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Deleted %d backups\n", len(report.Removed))
			if n := len(report.Failed); n > 0 {
				return fmt.Errorf("could not delete %d backups: %w", n, firstFailure(report.Failed))
			}
			return nil
		},
	}
	addSafetyFlags(cmd)
	return cmd
}

func firstFailure(failed []retention.Failure) error {
	f := failed[0]
	return fmt.Errorf("%s: %w", f.Entry.Name, f.Err)
}
