package retention

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"auto-backup/src/backend"
)

// Options controls a prune pass.
type Options struct {
	DryRun bool
	Log    logrus.FieldLogger
}

// Failure records an entry that could not be deleted.
type Failure struct {
	Entry backend.Entry
	Err   error
}

// Report summarizes a prune pass.
type Report struct {
	Kept    []backend.Entry
	Planned []backend.Entry
	Removed []backend.Entry
	Failed  []Failure
}

// Plan returns the oldest entries that exceed keep. entries need not be sorted.
// keep <= 0 keeps everything.
func Plan(entries []backend.Entry, keep int) []backend.Entry {
	if keep <= 0 || len(entries) <= keep {
		return nil
	}
	sorted := append([]backend.Entry(nil), entries...)
	backend.SortByStamp(sorted)
	return sorted[:len(sorted)-keep]
}

// Prune deletes the oldest entries of be until at most keep remain. A failed
// deletion is logged and recorded; the remaining candidates are still processed.
func Prune(be backend.StorageBackend, keep int, opts Options) (Report, error) {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	entries, err := be.List()
	if err != nil {
		return Report{}, fmt.Errorf("list backups: %w", err)
	}
	backend.SortByStamp(entries)

	planned := Plan(entries, keep)
	report := Report{
		Kept:    entries[len(planned):],
		Planned: planned,
	}
	if opts.DryRun {
		return report, nil
	}
	for _, e := range planned {
		if err := be.Remove(e); err != nil {
			log.WithFields(logrus.Fields{"entry": e.Name, "err": err}).Warn("could not remove old backup")
			report.Failed = append(report.Failed, Failure{Entry: e, Err: err})
			continue
		}
		log.WithField("entry", e.Name).Info("removed old backup")
		report.Removed = append(report.Removed, e)
	}
	return report, nil
}
