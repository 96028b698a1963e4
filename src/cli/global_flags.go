package cli

import (
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"auto-backup/src/config"
	"auto-backup/src/logging"
	"auto-backup/src/safety"
)

// addConfigFlags adds the persistent flags shared by every command. Flags left
// unset fall back to the --config file, then to the built-in defaults.
func addConfigFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.String("config", "", "Path to a TOML config file")
	f.String("source-path", "", "Directory to watch and back up")
	f.String("backup-path", "", "Directory holding the backups (default: AutoBackups next to the source)")
	f.Int("buffer-size", config.DefaultMaxBackups, "Number of backups to keep (0 keeps all)")
	f.Float64("cooldown", config.DefaultCooldown.Seconds(), "Seconds without changes before a backup is taken")
	f.Float64("poll-interval", config.DefaultPollInterval.Seconds(), "Seconds between cooldown checks")
	f.Bool("zip", false, "Write ZIP archives instead of folder copies")
	f.String("log-file", "", `Log file (default: backup_log.txt in the backup path, "-" disables)`)
	f.String("log-level", config.DefaultLogLevel, "Log level: debug|info|warn|error")
	f.String("log-format", config.DefaultLogFormat, "Log format: text|json")
}

// mergeConfig layers the config file and explicitly set flags over the defaults.
// Paths are not resolved yet.
func mergeConfig(flags *pflag.FlagSet) (config.Config, error) {
	cfg := config.Default()
	if path, _ := flags.GetString("config"); path != "" {
		file, err := config.LoadFile(path)
		if err != nil {
			return cfg, err
		}
		file.Apply(&cfg)
	}
	if flags.Changed("source-path") {
		cfg.SourcePath, _ = flags.GetString("source-path")
	}
	if flags.Changed("backup-path") {
		cfg.BackupRoot, _ = flags.GetString("backup-path")
	}
	if flags.Changed("buffer-size") {
		cfg.MaxBackups, _ = flags.GetInt("buffer-size")
	}
	if flags.Changed("cooldown") {
		s, _ := flags.GetFloat64("cooldown")
		cfg.Cooldown = config.Seconds(s)
	}
	if flags.Changed("poll-interval") {
		s, _ := flags.GetFloat64("poll-interval")
		cfg.PollInterval = config.Seconds(s)
	}
	if flags.Changed("zip") {
		cfg.UseZip, _ = flags.GetBool("zip")
	}
	if flags.Changed("log-file") {
		cfg.LogFile, _ = flags.GetString("log-file")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.LogFormat, _ = flags.GetString("log-format")
	}
	return cfg, nil
}

// loadConfig returns the finalized configuration for commands that read the source.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := mergeConfig(cmd.Flags())
	if err != nil {
		return cfg, err
	}
	if err := cfg.Finalize(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newLogger(cfg config.Config, logFile string, stderr io.Writer) (*logrus.Logger, func() error, error) {
	return logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   logFile,
		Stderr: stderr,
	})
}

func addSafetyFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("dry-run", false, "Show planned actions without making changes")
	cmd.Flags().BoolP("yes", "y", false, "Assume 'yes' to prompts and run non-interactively")
}

func getSafetyOptions(cmd *cobra.Command) safety.Options {
	dry, _ := cmd.Flags().GetBool("dry-run")
	yes, _ := cmd.Flags().GetBool("yes")
	return safety.Options{DryRun: dry, Yes: yes}
}
