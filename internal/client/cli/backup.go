package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/weeklog/internal/client/snapshot"
	"github.com/dmitrijs2005/weeklog/internal/common"
)

const (
	usageExport = "export <file|s3> [-seal]"
	usageImport = "import <file|s3:key>"
)

// Export writes the cached weeks to a file or to the configured S3 bucket.
// With -seal the snapshot is encrypted with a passphrase.
func (a *App) Export(ctx context.Context, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return usageError(usageExport)
	}
	target := args[0]

	var passphrase []byte
	if len(args) == 2 {
		if args[1] != "-seal" {
			return usageError(usageExport)
		}
		p, err := getSecret(a.reader, "Passphrase", a.out)
		if err != nil {
			return err
		}
		if len(p) == 0 {
			return errors.New("passphrase must not be empty")
		}
		passphrase = p
		defer common.WipeByteArray(passphrase)
	}

	if target == "s3" {
		store, err := a.s3Store(ctx)
		if err != nil {
			return err
		}
		key, n, err := snapshot.ExportS3(ctx, a.gateway, store, passphrase)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Exported %d weeks to s3:%s\n", n, key)
		return nil
	}

	n, err := snapshot.ExportFile(ctx, a.gateway, target, a.now(), passphrase)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Exported %d weeks to %s\n", n, target)
	return nil
}

// Import replays a snapshot through the gateway.
func (a *App) Import(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError(usageImport)
	}
	source := args[0]

	ask := func() ([]byte, error) {
		return getSecret(a.reader, "Passphrase", a.out)
	}

	var (
		res snapshot.Result
		err error
	)
	if key, ok := strings.CutPrefix(source, "s3:"); ok {
		if key == "" {
			return usageError(usageImport)
		}
		store, serr := a.s3Store(ctx)
		if serr != nil {
			return serr
		}
		res, err = snapshot.RestoreS3(ctx, a.gateway, store, key, ask, a.log)
	} else {
		res, err = snapshot.RestoreFile(ctx, a.gateway, source, ask, a.log)
	}

	if err != nil && res == (snapshot.Result{}) {
		return err
	}
	fmt.Fprintf(a.out, "Restored %d weeks, skipped %d, failed %d\n", res.Restored, res.Skipped, res.Failed)
	return err
}

func (a *App) s3Store(ctx context.Context) (*snapshot.S3Store, error) {
	if a.openS3 == nil {
		return nil, errors.New("s3 bucket is not configured")
	}
	return a.openS3(ctx)
}
