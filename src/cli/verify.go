package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"auto-backup/src/backup"
)

const verifyWorkers = 4

type verifyResult struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Files  int    `json:"files"`
	Status string `json:"status"`
	Path   string `json:"path"`
}

func newVerifyCmd(stdout, stderr io.Writer) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Read every backup back and report damaged entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch output {
			case "table", "json", "":
			default:
				return fmt.Errorf("unsupported --output: %s", output)
			}
			be, err := openBackend(cmd)
			if err != nil {
				return err
			}
			entries, err := be.List()
			if err != nil {
				return err
			}

			ctx := commandContext(cmd)
			results := make([]verifyResult, len(entries))
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(verifyWorkers)
			for i, e := range entries {
				g.Go(func() error {
					files, err := backup.Verify(gctx, e)
					status := "ok"
					if err != nil {
						status = err.Error()
					}
					results[i] = verifyResult{Name: e.Name, Kind: e.Kind, Files: files, Status: status, Path: e.Path}
					return nil
				})
			}
			_ = g.Wait()
			if err := ctx.Err(); err != nil {
				return err
			}

			switch output {
			case "json":
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(results); err != nil {
					return err
				}
			default:
				tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tKIND\tFILES\tSTATUS")
				for _, r := range results {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.Name, r.Kind, r.Files, r.Status)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
			}

			bad := 0
			for _, r := range results {
				if r.Status != "ok" {
					bad++
				}
			}
			if bad > 0 {
				return fmt.Errorf("%d of %d backups failed verification", bad, len(results))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table|json")
	return cmd
}
