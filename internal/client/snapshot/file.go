package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/weeklog/internal/filex"
	"github.com/dmitrijs2005/weeklog/internal/logging"
)

// ExportFile writes a snapshot to path, replacing any existing file.
func ExportFile(ctx context.Context, src WeekLister, path string, now time.Time, passphrase []byte) (int, error) {
	var buf bytes.Buffer
	n, err := Export(ctx, src, &buf, now, passphrase)
	if err != nil {
		return 0, err
	}
	if err := filex.WriteFileAtomic(path, buf.Bytes(), 0o600); err != nil {
		return 0, err
	}
	return n, nil
}

// RestoreFile replays the snapshot stored at path.
func RestoreFile(ctx context.Context, dst WeekSaver, path string, passphrase PassphraseFunc, log logging.Logger) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close() //nolint:errcheck

	return Restore(ctx, dst, f, passphrase, log)
}
