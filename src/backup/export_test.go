package backup

import "io"

// SetOpenSource replaces how source files are opened and returns a func that
// restores the original.
func SetOpenSource(open func(path string) (io.ReadCloser, error)) func() {
	prev := openSource
	openSource = open
	return func() { openSource = prev }
}
