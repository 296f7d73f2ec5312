package cli

import (
	"bufio"
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/weeklog/internal/client/auth"
	"github.com/dmitrijs2005/weeklog/internal/client/config"
	"github.com/dmitrijs2005/weeklog/internal/client/models"
	"github.com/dmitrijs2005/weeklog/internal/client/snapshot"
	"github.com/dmitrijs2005/weeklog/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// Gateway is the storage surface the commands work against.
type Gateway interface {
	LoadWeek(ctx context.Context, isoYear, isoWeek int) (*models.WeekView, error)
	SaveWeek(ctx context.Context, rec models.WeekRecord, expectedUpdatedAt *time.Time) error
	SaveDayLog(ctx context.Context, date string, entry models.DailyLogEntry) error
	SaveTarget(ctx context.Context, isoYear, isoWeek int, value float64, unit string) error
	ClearAllCache(ctx context.Context) error
	ListCachedWeeks(ctx context.Context) []models.WeekRecord
	RemoteStatus(ctx context.Context) error
}

// TokenStore keeps the identity token between runs.
type TokenStore interface {
	Get() (string, error)
	Set(token string) error
	Delete() error
}

type App struct {
	config   *config.Config
	gateway  Gateway
	identity auth.IdentityProvider
	tokens   TokenStore
	log      logging.Logger
	openS3   func(ctx context.Context) (*snapshot.S3Store, error)
	closers  []func(ctx context.Context) error

	reader *bufio.Reader
	out    io.Writer
	now    func() time.Time

	mu    sync.Mutex
	mode  Mode
	owner string
}

// NewApp assembles an App from already opened dependencies. Use Build to
// open them from configuration.
func NewApp(cfg *config.Config, gw Gateway, identity auth.IdentityProvider, tokens TokenStore, log logging.Logger) *App {
	if log == nil {
		log = logging.NewNop()
	}
	return &App{
		config:   cfg,
		gateway:  gw,
		identity: identity,
		tokens:   tokens,
		log:      log,
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
		now:      time.Now,
	}
}

// Run starts the REPL and releases resources when it returns.
func (a *App) Run(ctx context.Context) {
	defer a.Close(context.WithoutCancel(ctx))
	a.Root(ctx)
}

// Close releases what Build opened, in reverse order.
func (a *App) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.log.Warn(ctx, "close failed", "err", err)
		}
	}
	a.closers = nil
}

func (a *App) setMode(ctx context.Context, mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		a.log.Info(ctx, "connectivity changed", "mode", string(mode))
	}
}

func (a *App) currentMode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) setOwner(owner string) {
	a.mu.Lock()
	a.owner = owner
	a.mu.Unlock()
}

func (a *App) currentOwner() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.owner
}

func (a *App) isLoggedIn() bool {
	return a.currentOwner() != ""
}

// refreshOwner re-resolves the identity, e.g. from a token stored by an
// earlier run.
func (a *App) refreshOwner(ctx context.Context) {
	id, err := a.identity.ResolveCallerID(ctx)
	if err != nil {
		a.log.Debug(ctx, "no identity", "err", err)
		id = ""
	}
	a.setOwner(id)
}

// StartOnlineStatusWatcher pings the remote store every interval and keeps
// the mode shown in the prompt current until ctx is cancelled.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	a.checkOnline(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, a.config.RemoteTimeout)
	err := a.gateway.RemoteStatus(pingCtx)
	cancel()

	if err != nil {
		a.setMode(ctx, ModeOffline)
		return
	}
	a.setMode(ctx, ModeOnline)
}
