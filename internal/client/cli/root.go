package cli

import (
	"context"
	"fmt"
)

func (a *App) getStatus() string {
	s := ""
	if owner := a.currentOwner(); owner != "" {
		s = owner + " "
	}
	if mode := a.currentMode(); mode != "" {
		s = s + string(mode)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// Root resolves the stored identity, starts the connectivity watcher and
// runs the REPL until the user exits.
func (a *App) Root(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	printlnFn("Welcome to weeklog (type 'help' for commands)")

	a.refreshOwner(ctx)
	if !a.isLoggedIn() {
		printlnFn("Not logged in, type 'login' to enter your token")
	}

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader)
}
