package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"auto-backup/src/backup"
)

func newBackupCmd(stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Take one backup now, apply retention and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.EnsureBackupRoot(); err != nil {
				return err
			}
			log, closeLog, err := newLogger(cfg, cfg.LogFile, stderr)
			if err != nil {
				return err
			}
			defer closeLog()

			res, err := backup.NewExecutor(cfg, backup.WithLogger(log)).Run(commandContext(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Created %s (%d files, %d bytes", res.Entry.Name, res.Files, res.Bytes)
			if res.Skipped > 0 {
				fmt.Fprintf(stdout, ", %d skipped", res.Skipped)
			}
			fmt.Fprintln(stdout, ")")
			for _, e := range res.Removed {
				fmt.Fprintf(stdout, "Removed %s\n", e.Name)
			}
			return nil
		},
	}
}
