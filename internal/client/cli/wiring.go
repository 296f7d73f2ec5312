package cli

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/dmitrijs2005/weeklog/internal/client/auth"
	"github.com/dmitrijs2005/weeklog/internal/client/cache"
	"github.com/dmitrijs2005/weeklog/internal/client/config"
	"github.com/dmitrijs2005/weeklog/internal/client/keyring"
	"github.com/dmitrijs2005/weeklog/internal/client/services"
	"github.com/dmitrijs2005/weeklog/internal/client/snapshot"
	"github.com/dmitrijs2005/weeklog/internal/filex"
	"github.com/dmitrijs2005/weeklog/internal/logging"
	"github.com/dmitrijs2005/weeklog/internal/remote"
	"github.com/dmitrijs2005/weeklog/internal/remote/mongostore"
	"github.com/dmitrijs2005/weeklog/internal/remote/pgstore"
)

// remoteOpener picks the remote store implementation from the URI scheme.
func remoteOpener(cfg *config.Config) (remote.OpenFunc, error) {
	u, err := url.Parse(cfg.RemoteURI)
	if err != nil {
		return nil, fmt.Errorf("parse remote uri: %w", err)
	}

	switch u.Scheme {
	case "mongodb", "mongodb+srv":
		return func(ctx context.Context) (remote.Store, error) {
			s, err := mongostore.Connect(ctx, cfg.RemoteURI, cfg.RemoteDatabase, cfg.RemoteTimeout)
			if err != nil {
				return nil, err
			}
			return s, nil
		}, nil
	case "postgres", "postgresql":
		return func(ctx context.Context) (remote.Store, error) {
			s, err := pgstore.Open(ctx, cfg.RemoteURI, cfg.RemoteTimeout)
			if err != nil {
				return nil, err
			}
			return s, nil
		}, nil
	default:
		return nil, fmt.Errorf("unsupported remote store scheme %q", u.Scheme)
	}
}

// tokenSource prefers a token given in configuration over the keyring.
func tokenSource(cfg *config.Config, kr *keyring.Store) auth.TokenSource {
	if cfg.Token != "" {
		return auth.StaticTokenSource(cfg.Token)
	}
	return kr
}

// s3Opener connects to the snapshot bucket on first use.
func s3Opener(cfg *config.Config) func(ctx context.Context) (*snapshot.S3Store, error) {
	if cfg.S3.Bucket == "" {
		return nil
	}
	var (
		mu    sync.Mutex
		store *snapshot.S3Store
	)
	return func(ctx context.Context) (*snapshot.S3Store, error) {
		mu.Lock()
		defer mu.Unlock()
		if store != nil {
			return store, nil
		}
		s, err := snapshot.OpenS3Store(ctx, snapshot.S3Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		})
		if err != nil {
			return nil, err
		}
		store = s
		return store, nil
	}
}

// Build opens the local cache, prepares the remote store described by cfg
// (connected lazily, so the client starts offline) and returns a ready App.
// opts are passed to the gateway, typically for metrics and tracing.
func Build(ctx context.Context, cfg *config.Config, log logging.Logger, opts ...services.Option) (*App, error) {
	open, err := remoteOpener(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.CacheDSN != ":memory:" {
		if err := filex.EnsureParentDir(cfg.CacheDSN); err != nil {
			return nil, err
		}
	}
	db, err := cache.OpenDB(ctx, cfg.CacheDSN)
	if err != nil {
		return nil, err
	}
	cacheStore := cache.NewSQLiteStore(db, cache.WithTTL(cfg.CacheTTL), cache.WithLogger(log))

	remoteStore := remote.NewLazy(open)

	kr := keyring.New()
	identity := auth.NewJWTProvider(tokenSource(cfg, kr), []byte(cfg.TokenSecret))

	gwOpts := append([]services.Option{
		services.WithLogger(log),
		services.WithConflictTolerance(cfg.ConflictTolerance),
	}, opts...)
	gw := services.NewGateway(cacheStore, remoteStore, identity, gwOpts...)

	app := NewApp(cfg, gw, identity, kr, log)
	app.openS3 = s3Opener(cfg)
	app.closers = append(app.closers,
		func(context.Context) error { return db.Close() },
		remoteStore.Close,
	)
	return app, nil
}
