package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/weeklog/internal/client/codec"
	"github.com/dmitrijs2005/weeklog/internal/common"
)

// OpenFunc connects to a store.
type OpenFunc func(ctx context.Context) (Store, error)

// Lazy is a Store that connects on first use. A failed connect is reported
// as common.ErrRemoteUnavailable and retried on the next call, so a client
// can start while the remote store is unreachable and pick it up later.
type Lazy struct {
	open OpenFunc

	mu    sync.Mutex
	store Store
}

func NewLazy(open OpenFunc) *Lazy {
	return &Lazy{open: open}
}

func (l *Lazy) connect(ctx context.Context) (Store, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.store != nil {
		return l.store, nil
	}
	s, err := l.open(ctx)
	if err != nil {
		if !errors.Is(err, common.ErrRemoteUnavailable) {
			err = fmt.Errorf("%w: %w", common.ErrRemoteUnavailable, err)
		}
		return nil, err
	}
	l.store = s
	return s, nil
}

func (l *Lazy) Get(ctx context.Context, path DocumentPath) (*codec.StoredDocument, error) {
	s, err := l.connect(ctx)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, path)
}

func (l *Lazy) RunTransaction(ctx context.Context, path DocumentPath, fn TxFunc) error {
	s, err := l.connect(ctx)
	if err != nil {
		return err
	}
	return s.RunTransaction(ctx, path, fn)
}

func (l *Lazy) Ping(ctx context.Context) error {
	s, err := l.connect(ctx)
	if err != nil {
		return err
	}
	return s.Ping(ctx)
}

// Close closes the underlying store if it was ever opened.
func (l *Lazy) Close(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.store == nil {
		return nil
	}
	err := l.store.Close(ctx)
	l.store = nil
	return err
}
