package scan

import (
	"context"
	"fmt"
	"os"
)

// FileAcquirer serves saved HTML dumps from disk instead of a browser. The
// "url" passed to Acquire is a filesystem path. Used by the -file CLI mode
// and anywhere a scan must be replayed without network access.
type FileAcquirer struct{}

// Acquire reads the dump file. A missing or unreadable file is an
// acquisition failure, same as a browser that will not start.
func (FileAcquirer) Acquire(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrAcquisition, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: read dump %s: %v", ErrAcquisition, path, err)
	}
	return string(data), nil
}

// Close is a no-op; there is no session to tear down.
func (FileAcquirer) Close() error { return nil }
