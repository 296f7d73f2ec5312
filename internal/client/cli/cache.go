package cli

import (
	"context"
	"fmt"
)

// Cached lists the weeks held in the local cache.
func (a *App) Cached(ctx context.Context) error {
	weeks := a.gateway.ListCachedWeeks(ctx)
	if len(weeks) == 0 {
		fmt.Fprintln(a.out, "Cache is empty")
		return nil
	}
	for _, w := range weeks {
		fmt.Fprintf(a.out, "%s  target %s %s  total %s  (%d days)\n",
			w.Key(), formatValue(w.Target.Value), w.Target.Unit, formatValue(w.Total()), len(w.DailyLogs))
	}
	return nil
}

func (a *App) ClearCache(ctx context.Context) error {
	if err := a.gateway.ClearAllCache(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Cache cleared")
	return nil
}

// Status checks the remote store now and prints the result.
func (a *App) Status(ctx context.Context) error {
	a.checkOnline(ctx)
	fmt.Fprintf(a.out, "Remote store: %s\n", a.currentMode())
	return nil
}
