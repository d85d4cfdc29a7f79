package mock

import (
	"context"

	"github.com/fwojciec/larder"
)

var _ larder.SourceService = (*SourceService)(nil)

// SourceService is a mock implementation of larder.SourceService.
type SourceService struct {
	CreateSourceFn       func(ctx context.Context, source *larder.SearchSource) error
	FindSourceByHostFn   func(ctx context.Context, host string) (*larder.SearchSource, error)
	FindSourcesFn        func(ctx context.Context, filter larder.SourceFilter) ([]*larder.SearchSource, error)
	UpdateSourceFn       func(ctx context.Context, host string, upd larder.SourceUpdate) (*larder.SearchSource, error)
	UpdateSourceHealthFn func(ctx context.Context, host string, health larder.SourceHealth) error
	DeleteSourceFn       func(ctx context.Context, host string) error
}

func (s *SourceService) CreateSource(ctx context.Context, source *larder.SearchSource) error {
	return s.CreateSourceFn(ctx, source)
}

func (s *SourceService) FindSourceByHost(ctx context.Context, host string) (*larder.SearchSource, error) {
	return s.FindSourceByHostFn(ctx, host)
}

func (s *SourceService) FindSources(ctx context.Context, filter larder.SourceFilter) ([]*larder.SearchSource, error) {
	return s.FindSourcesFn(ctx, filter)
}

func (s *SourceService) UpdateSource(ctx context.Context, host string, upd larder.SourceUpdate) (*larder.SearchSource, error) {
	return s.UpdateSourceFn(ctx, host, upd)
}

func (s *SourceService) UpdateSourceHealth(ctx context.Context, host string, health larder.SourceHealth) error {
	return s.UpdateSourceHealthFn(ctx, host, health)
}

func (s *SourceService) DeleteSource(ctx context.Context, host string) error {
	return s.DeleteSourceFn(ctx, host)
}

var _ larder.HealthTracker = (*HealthTracker)(nil)

// HealthTracker is a mock implementation of larder.HealthTracker.
type HealthTracker struct {
	RecordSuccessFn func(ctx context.Context, source *larder.SearchSource) error
	RecordFailureFn func(ctx context.Context, source *larder.SearchSource) error
}

func (h *HealthTracker) RecordSuccess(ctx context.Context, source *larder.SearchSource) error {
	return h.RecordSuccessFn(ctx, source)
}

func (h *HealthTracker) RecordFailure(ctx context.Context, source *larder.SearchSource) error {
	return h.RecordFailureFn(ctx, source)
}
