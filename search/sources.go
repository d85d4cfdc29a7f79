package search

import (
	"context"

	"github.com/fwojciec/larder"
)

// ImportResult counts what ImportSources changed.
type ImportResult struct {
	Created int
	Updated int
}

// ImportSources creates each source, or updates its configuration if the
// host already exists. Health fields of existing sources are kept.
func ImportSources(ctx context.Context, svc larder.SourceService, sources []*larder.SearchSource) (ImportResult, error) {
	var res ImportResult
	for _, s := range sources {
		err := svc.CreateSource(ctx, s)
		if err == nil {
			res.Created++
			continue
		}
		if larder.ErrorCode(err) != larder.ECONFLICT {
			return res, err
		}

		if _, err := svc.UpdateSource(ctx, s.Host, larder.SourceUpdate{
			Name:      &s.Name,
			Enabled:   &s.Enabled,
			SearchURL: &s.SearchURL,
			Selector:  &s.Selector,
		}); err != nil {
			return res, err
		}
		res.Updated++
	}
	return res, nil
}
