package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/weeklog/internal/client/auth"
	"github.com/dmitrijs2005/weeklog/internal/common"
)

// getSecret is an indirection used to facilitate testing.
var getSecret = GetSecret

// Login reads an identity token, verifies it locally and stores it in the
// keyring. Switching to a different owner clears the local cache so weeks
// cached for one owner are never served to another.
func (a *App) Login(ctx context.Context) error {
	if a.config.Token != "" {
		return errors.New("identity is fixed by configuration (WEEKLOG_TOKEN or -token)")
	}
	if a.config.TokenSecret == "" {
		return errors.New("token secret is not configured")
	}

	token, err := getSecret(a.reader, "Enter token", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(token)

	owner, err := auth.GetUserIDFromToken(string(token), []byte(a.config.TokenSecret))
	if err != nil {
		a.log.Warn(ctx, "login rejected", "err", err)
		return fmt.Errorf("%w: %w", common.ErrNotAuthenticated, err)
	}

	if err := a.tokens.Set(string(token)); err != nil {
		return err
	}

	if previous := a.currentOwner(); previous != owner {
		if err := a.gateway.ClearAllCache(ctx); err != nil {
			a.log.Warn(ctx, "cache not cleared on identity change", "err", err)
		}
	}
	a.setOwner(owner)
	a.log.Info(ctx, "logged in", "owner", owner)

	fmt.Fprintf(a.out, "Logged in as %s\n", owner)
	return nil
}

// Logout clears the local cache and forgets the stored token.
func (a *App) Logout(ctx context.Context) error {
	if err := a.gateway.ClearAllCache(ctx); err != nil {
		return err
	}
	if err := a.tokens.Delete(); err != nil {
		return err
	}
	a.setOwner("")
	a.log.Info(ctx, "logged out")

	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	a.refreshOwner(ctx)
	if owner := a.currentOwner(); owner != "" {
		fmt.Fprintf(a.out, "Logged in as %s\n", owner)
		return nil
	}
	return common.ErrNotAuthenticated
}
