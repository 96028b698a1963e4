package safety

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Options carries the flags that guard destructive commands.
type Options struct {
	DryRun bool // report only
	Yes    bool // skip the prompt
}

// Confirm asks before a destructive action such as deleting backups.
// DryRun always declines without reading input; Yes accepts without prompting.
// Anything but y/yes (case-insensitive) declines.
func Confirm(opts Options, in io.Reader, out io.Writer, question string) (bool, error) {
	switch {
	case opts.DryRun:
		return false, nil
	case opts.Yes:
		return true, nil
	}
	if out != nil {
		fmt.Fprintf(out, "%s [y/N]: ", strings.TrimSpace(question))
	}
	if in == nil {
		return false, nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
