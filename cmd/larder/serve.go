package main

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Run executes the serve command. It serves until the context is cancelled
// while running selector repair and image cleanup on their intervals.
func (c *ServeCmd) Run(deps *Dependencies) error {
	g, ctx := errgroup.WithContext(deps.Ctx)

	g.Go(func() error {
		fmt.Fprintf(deps.Stdout, "Listening on %s\n", c.Addr)
		return deps.Server.ListenAndServe(ctx, c.Addr)
	})

	if deps.Repairer != nil && c.RepairInterval > 0 {
		g.Go(func() error {
			every(ctx, c.RepairInterval, func() {
				outcomes, err := deps.Repairer.Repair(ctx)
				if err != nil {
					deps.Logger.Error("scheduled repair failed", "error", err)
					return
				}
				deps.Logger.Info("scheduled repair finished", "count", len(outcomes))
			})
			return nil
		})
	}

	if deps.Cache != nil && c.CleanupInterval > 0 {
		g.Go(func() error {
			every(ctx, c.CleanupInterval, func() {
				n, err := deps.Cache.Cleanup(ctx, c.Retention)
				if err != nil {
					deps.Logger.Error("scheduled image cleanup failed", "error", err)
					return
				}
				deps.Logger.Info("scheduled image cleanup finished", "count", n)
			})
			return nil
		})
	}

	return g.Wait()
}

// every calls fn each interval until ctx is done.
func every(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
