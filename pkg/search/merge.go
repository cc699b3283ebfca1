package search

import (
	"context"
	"sort"
	"sync"

	"github.com/nimbuscrm/searchcore/pkg/core"
	scerrors "github.com/nimbuscrm/searchcore/pkg/errors"
	"github.com/nimbuscrm/searchcore/pkg/query"
)

// SearchMultiCollection fans one condition set out to several
// collections concurrently and merges the pages.
//
// The merge is fail-fast: if any per-collection query fails the whole
// call fails, because a caller otherwise cannot distinguish an empty
// collection from one that was silently omitted.
//
// When sortField is given, the concatenated set is fully re-sorted by
// that field (stable, so equal values keep per-collection order) and
// then truncated to limit. A collection with many matches can starve
// another's contribution in the final page; scatter-gather without
// weighted interleaving accepts that.
func (e *Executor) SearchMultiCollection(ctx context.Context, collections []string, conditions []query.Condition, sortField, direction string, limit int) ([]core.Document, error) {
	if len(collections) == 0 {
		return nil, scerrors.New("searchMultiCollection", "", scerrors.KindValidation, scerrors.ErrEmptyCollections)
	}
	if limit <= 0 {
		return nil, scerrors.New("searchMultiCollection", "", scerrors.KindValidation, scerrors.ErrInvalidLimit)
	}

	results := make([]*core.SearchResult, len(collections))
	errs := make([]error, len(collections))

	var wg sync.WaitGroup
	for i, collection := range collections {
		wg.Add(1)
		go func(i int, collection string) {
			defer wg.Done()
			results[i], errs[i] = e.Search(ctx, collection, conditions, nil, limit, "")
		}(i, collection)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, scerrors.New("searchMultiCollection", collections[i], scerrors.KindMergeFailure, err)
		}
	}

	var merged []core.Document
	for _, result := range results {
		merged = append(merged, result.Items...)
	}

	if sortField != "" {
		desc := direction == query.Desc
		sort.SliceStable(merged, func(i, j int) bool {
			cmp := core.CompareValues(core.FieldValue(merged[i], sortField), core.FieldValue(merged[j], sortField))
			if desc {
				return cmp > 0
			}
			return cmp < 0
		})
	}

	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}
