package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"auto-backup/src/backend"
	dir "auto-backup/src/backend/directory"
)

func newListCmd(stdout, stderr io.Writer) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List backups in the backup path, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			be, err := openBackend(cmd)
			if err != nil {
				return err
			}
			entries, err := be.List()
			if err != nil {
				return err
			}
			switch output {
			case "json":
				if entries == nil {
					entries = []backend.Entry{}
				}
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			case "table", "":
				return renderTable(stdout, entries)
			default:
				return fmt.Errorf("unsupported --output: %s", output)
			}
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table|json")
	return cmd
}

// openBackend opens the backup root named by the flags or config file. The
// source does not need to exist.
func openBackend(cmd *cobra.Command) (*dir.Backend, error) {
	cfg, err := mergeConfig(cmd.Flags())
	if err != nil {
		return nil, err
	}
	root, err := cfg.ResolveBackupRoot()
	if err != nil {
		return nil, err
	}
	return dir.New(root)
}

func renderTable(w io.Writer, entries []backend.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tSIZE\tMODIFIED")
	for _, e := range entries {
		size := "-"
		if e.Kind == backend.KindZip {
			size = fmt.Sprintf("%d", e.Size)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Name, e.Kind, size, e.ModTime.Format(time.RFC3339))
	}
	return tw.Flush()
}
