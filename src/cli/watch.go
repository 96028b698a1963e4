package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"auto-backup/src/backup"
	"auto-backup/src/notify"
	"auto-backup/src/trigger"
)

// runWatch is the root command: notifier and trigger loop run side by side until
// the context is cancelled or the source disappears.
func runWatch(cmd *cobra.Command, stderr io.Writer, initial bool) error {
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

	ignore := []string{cfg.BackupRoot}
	if cfg.LogToFile() {
		ignore = append(ignore, cfg.LogFile)
	}
	watcher, err := notify.New(cfg.SourcePath, notify.Options{Ignore: ignore, Log: log})
	if err != nil {
		return fmt.Errorf("watch %s: %w", cfg.SourcePath, err)
	}
	defer watcher.Close()

	exec := backup.NewExecutor(cfg, backup.WithLogger(log))
	trig := trigger.New(cfg.Cooldown, trigger.WithPollInterval(cfg.PollInterval), trigger.WithLogger(log))

	log.WithField("path", cfg.SourcePath).Info("watching source")
	log.WithField("path", cfg.BackupRoot).Info("backups stored in")
	log.WithFields(logrus.Fields{
		"cooldown": cfg.Cooldown,
		"buffer":   cfg.MaxBackups,
		"zip":      cfg.UseZip,
	}).Info("settings")

	fire := func(ctx context.Context) error {
		_, err := exec.Run(ctx)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, backup.ErrSourceMissing):
			log.WithError(err).Error("source disappeared, stopping")
			return err
		case ctx.Err() != nil:
			return nil
		default:
			log.WithError(err).Error("backup failed")
			return nil
		}
	}

	ctx := commandContext(cmd)
	if initial {
		if err := fire(ctx); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return watcher.Run(gctx, func(notify.Event) { trig.Notify() })
	})
	g.Go(func() error {
		return trig.Run(gctx, fire)
	})
	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("stopped watching")
	return nil
}
