package main_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/larder"
	main "github.com/fwojciec/larder/cmd/larder"
	"github.com/fwojciec/larder/search"
)

type repairer struct {
	RepairFn func(ctx context.Context) ([]search.RepairOutcome, error)
}

func (r *repairer) Repair(ctx context.Context) ([]search.RepairOutcome, error) {
	return r.RepairFn(ctx)
}

type maintainer struct {
	DetachFn  func(urls []string)
	CleanupFn func(ctx context.Context, retention time.Duration) (int, error)
}

func (m *maintainer) Detach(urls []string) { m.DetachFn(urls) }

func (m *maintainer) Cleanup(ctx context.Context, retention time.Duration) (int, error) {
	return m.CleanupFn(ctx, retention)
}

type recipeWriter struct {
	WriteRecipeFn func(ctx context.Context, r *larder.Recipe) (string, error)
}

func (w *recipeWriter) WriteRecipe(ctx context.Context, r *larder.Recipe) (string, error) {
	return w.WriteRecipeFn(ctx, r)
}

// newDeps returns Dependencies writing to fresh buffers.
func newDeps() (*main.Dependencies, *bytes.Buffer, *bytes.Buffer) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	return &main.Dependencies{
		Ctx:    context.Background(),
		Stdout: stdout,
		Stderr: stderr,
	}, stdout, stderr
}

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
