package utils

import (
	"io"
)

// Close closes c and ignores any error.
// Use for best-effort cleanup in defer where error handling is not critical.
func Close(c io.Closer) {
	_ = c.Close()
}

// ReadAllAndClose reads at most limit bytes from rc, then closes it.
// Whatever lies past the limit is discarded, not reported.
func ReadAllAndClose(rc io.ReadCloser, limit int64) ([]byte, error) {
	defer Close(rc)
	return io.ReadAll(io.LimitReader(rc, limit))
}
