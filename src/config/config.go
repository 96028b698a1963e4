package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"

	"auto-backup/src/target"
)

const (
	DefaultMaxBackups   = 5
	DefaultCooldown     = 5 * time.Second
	DefaultPollInterval = time.Second
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"

	// DefaultBackupDirName is created next to the source when no backup path is given.
	DefaultBackupDirName = "AutoBackups"
	// LogFileName is the log written inside the backup root.
	LogFileName = "backup_log.txt"
	// LogFileDisabled turns off the log file when used as the log file path.
	LogFileDisabled = "-"
)

var (
	ErrInvalid        = errors.New("invalid configuration")
	ErrSourceNotFound = errors.New("source path does not exist")
)

// Config is the immutable runtime configuration of a backup session.
type Config struct {
	SourcePath   string
	BackupRoot   string
	MaxBackups   int // 0 keeps every backup
	Cooldown     time.Duration
	PollInterval time.Duration
	UseZip       bool

	LogFile   string
	LogLevel  string
	LogFormat string // text|json
}

// Default returns a Config populated with the tool's defaults. Paths are left empty.
func Default() Config {
	return Config{
		MaxBackups:   DefaultMaxBackups,
		Cooldown:     DefaultCooldown,
		PollInterval: DefaultPollInterval,
		LogLevel:     DefaultLogLevel,
		LogFormat:    DefaultLogFormat,
	}
}

// File mirrors the TOML config file. Unset keys leave the Config untouched.
type File struct {
	SourcePath   *string  `toml:"source_path"`
	BackupPath   *string  `toml:"backup_path"`
	BufferSize   *int     `toml:"buffer_size"`
	Cooldown     *float64 `toml:"cooldown"`      // seconds
	PollInterval *float64 `toml:"poll_interval"` // seconds
	Zip          *bool    `toml:"zip"`
	LogFile      *string  `toml:"log_file"`
	LogLevel     *string  `toml:"log_level"`
	LogFormat    *string  `toml:"log_format"`
}

// LoadFile decodes a TOML config file. Unknown keys are rejected so typos do not
// silently fall back to defaults.
func LoadFile(path string) (File, error) {
	var f File
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return File{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return File{}, fmt.Errorf("%w: unknown keys in %s: %s", ErrInvalid, path, strings.Join(keys, ", "))
	}
	return f, nil
}

// Apply copies every key set in f onto c.
func (f File) Apply(c *Config) {
	if f.SourcePath != nil {
		c.SourcePath = *f.SourcePath
	}
	if f.BackupPath != nil {
		c.BackupRoot = *f.BackupPath
	}
	if f.BufferSize != nil {
		c.MaxBackups = *f.BufferSize
	}
	if f.Cooldown != nil {
		c.Cooldown = Seconds(*f.Cooldown)
	}
	if f.PollInterval != nil {
		c.PollInterval = Seconds(*f.PollInterval)
	}
	if f.Zip != nil {
		c.UseZip = *f.Zip
	}
	if f.LogFile != nil {
		c.LogFile = *f.LogFile
	}
	if f.LogLevel != nil {
		c.LogLevel = *f.LogLevel
	}
	if f.LogFormat != nil {
		c.LogFormat = *f.LogFormat
	}
}

// Seconds converts a (possibly fractional) number of seconds to a Duration.
func Seconds(s float64) time.Duration {
	if math.IsNaN(s) {
		return -1
	}
	return time.Duration(s * float64(time.Second))
}

// Finalize resolves paths, fills derived defaults and validates the result.
func (c *Config) Finalize() error {
	if strings.TrimSpace(c.SourcePath) == "" {
		return fmt.Errorf("%w: source path is required (--source-path or source_path in the config file)", ErrInvalid)
	}
	src, err := target.Resolve(c.SourcePath)
	if err != nil {
		return fmt.Errorf("%w: source path: %v", ErrInvalid, err)
	}
	c.SourcePath = src

	root, err := c.ResolveBackupRoot()
	if err != nil {
		return err
	}
	c.BackupRoot = root

	logFile, err := c.ResolveLogFile()
	if err != nil {
		return err
	}
	c.LogFile = logFile
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	return c.Validate()
}

// ResolveBackupRoot returns the absolute backup root: the configured path, or
// AutoBackups next to the source. It does not require the source to exist.
func (c Config) ResolveBackupRoot() (string, error) {
	if strings.TrimSpace(c.BackupRoot) != "" {
		root, err := target.Resolve(c.BackupRoot)
		if err != nil {
			return "", fmt.Errorf("%w: backup path: %v", ErrInvalid, err)
		}
		return root, nil
	}
	if strings.TrimSpace(c.SourcePath) == "" {
		return "", fmt.Errorf("%w: --backup-path or --source-path is required", ErrInvalid)
	}
	src, err := target.Resolve(c.SourcePath)
	if err != nil {
		return "", fmt.Errorf("%w: source path: %v", ErrInvalid, err)
	}
	return filepath.Join(filepath.Dir(src), DefaultBackupDirName), nil
}

// ResolveLogFile returns the absolute log file path, LogFileDisabled, or the
// default backup_log.txt inside the backup root.
func (c Config) ResolveLogFile() (string, error) {
	switch strings.TrimSpace(c.LogFile) {
	case LogFileDisabled:
		return LogFileDisabled, nil
	case "":
		root, err := c.ResolveBackupRoot()
		if err != nil {
			return "", err
		}
		return filepath.Join(root, LogFileName), nil
	default:
		logFile, err := target.Resolve(c.LogFile)
		if err != nil {
			return "", fmt.Errorf("%w: log file: %v", ErrInvalid, err)
		}
		return logFile, nil
	}
}

// Validate checks a finalized Config.
func (c Config) Validate() error {
	info, err := os.Stat(c.SourcePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrSourceNotFound, c.SourcePath)
		}
		return fmt.Errorf("%w: stat source %s: %v", ErrInvalid, c.SourcePath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: source is not a directory: %s", ErrInvalid, c.SourcePath)
	}
	if c.BackupRoot == "" {
		return fmt.Errorf("%w: backup path is required", ErrInvalid)
	}
	if target.Within(c.SourcePath, c.BackupRoot) {
		return fmt.Errorf("%w: backup path %s must not be inside the source %s", ErrInvalid, c.BackupRoot, c.SourcePath)
	}
	if c.MaxBackups < 0 {
		return fmt.Errorf("%w: buffer size must be >= 0 (0 keeps every backup), got %d", ErrInvalid, c.MaxBackups)
	}
	if c.Cooldown < 0 {
		return fmt.Errorf("%w: cooldown must be >= 0, got %s", ErrInvalid, c.Cooldown)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval must be > 0, got %s", ErrInvalid, c.PollInterval)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unsupported log format %q (text|json)", ErrInvalid, c.LogFormat)
	}
	return nil
}

// EnsureBackupRoot creates the backup root if needed.
func (c Config) EnsureBackupRoot() error {
	if err := os.MkdirAll(c.BackupRoot, 0o755); err != nil {
		return fmt.Errorf("create backup path %s: %w", c.BackupRoot, err)
	}
	return nil
}

// LogToFile reports whether a log file should be written.
func (c Config) LogToFile() bool {
	return c.LogFile != "" && c.LogFile != LogFileDisabled
}
