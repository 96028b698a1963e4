package cli_test

import (
	"testing"

	"auto-backup/src/cli"
)

func TestConfigFlags_Present(t *testing.T) {
	cmd := cli.NewRootCmd(nil, nil)
	for _, name := range []string{
		"config", "source-path", "backup-path", "buffer-size", "cooldown",
		"poll-interval", "zip", "log-file", "log-level", "log-format",
	} {
		if f := cmd.PersistentFlags().Lookup(name); f == nil {
			t.Fatalf("missing global flag --%s", name)
		}
	}
	if f := cmd.Flags().Lookup("initial"); f == nil {
		t.Fatal("missing --initial flag")
	}
}

func TestConfigFlags_Defaults(t *testing.T) {
	cmd := cli.NewRootCmd(nil, nil)
	want := map[string]string{
		"buffer-size": "5",
		"cooldown":    "5",
		"zip":         "false",
	}
	for name, def := range want {
		if got := cmd.PersistentFlags().Lookup(name).DefValue; got != def {
			t.Fatalf("--%s default = %q, want %q", name, got, def)
		}
	}
}

func TestPruneFlags_Present(t *testing.T) {
	cmd := cli.NewRootCmd(nil, nil)
	prune, _, err := cmd.Find([]string{"prune"})
	if err != nil {
		t.Fatalf("find prune: %v", err)
	}
	for _, name := range []string{"dry-run", "yes"} {
		if f := prune.Flags().Lookup(name); f == nil {
			t.Fatalf("missing prune flag --%s", name)
		}
	}
}
