package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/nimbuscrm/searchcore/pkg/core"
	"github.com/nimbuscrm/searchcore/pkg/query"
)

// FacetedResult pairs a result page with its facet breakdowns.
type FacetedResult struct {
	Results *core.SearchResult    `json:"results"`
	Facets  map[string]core.Facet `json:"facets"`
}

// FacetedSearch runs Search and computes facets over the returned page.
func (e *Executor) FacetedSearch(ctx context.Context, collection string, conditions []query.Condition, sorts []query.SortSpec, limit int, cursor string, facetFields []string) (*FacetedResult, error) {
	result, err := e.Search(ctx, collection, conditions, sorts, limit, cursor)
	if err != nil {
		return nil, err
	}
	return &FacetedResult{
		Results: result,
		Facets:  ComputeFacets(result.Items, facetFields),
	}, nil
}

// ComputeFacets tallies value→count buckets per requested field across
// the given page. It is a pure function over the page already fetched,
// not the full matching set: the store cannot cheaply compute global
// distinct-value counts without a secondary aggregation index, so
// facets approximate the page only.
//
// Array values are normalized to a sorted, comma-joined string, so
// ["a","b"] and ["b","a"] land in the same bucket. Items missing the
// field contribute nothing to that field's facet. Buckets are ordered
// by count descending, ties broken by first-seen order.
func ComputeFacets(items []core.Document, facetFields []string) map[string]core.Facet {
	facets := make(map[string]core.Facet, len(facetFields))
	for _, field := range facetFields {
		counts := make(map[string]int)
		var order []string

		for _, item := range items {
			value := core.FieldValue(item, field)
			if value == nil {
				continue
			}
			key := facetKey(value)
			if _, seen := counts[key]; !seen {
				order = append(order, key)
			}
			counts[key]++
		}

		values := make([]core.FacetValue, len(order))
		for i, key := range order {
			values[i] = core.FacetValue{Value: key, Count: counts[key]}
		}
		sort.SliceStable(values, func(i, j int) bool {
			return values[i].Count > values[j].Count
		})

		facets[field] = core.Facet{Field: field, Values: values}
	}
	return facets
}

// facetKey flattens a field value into a bucket key. Array fields
// become an order-insensitive composite key.
func facetKey(value any) string {
	var elems []string
	switch v := value.(type) {
	case []string:
		elems = append(elems, v...)
	case []any:
		for _, e := range v {
			elems = append(elems, fmt.Sprintf("%v", e))
		}
	default:
		return fmt.Sprintf("%v", value)
	}
	sort.Strings(elems)
	return strings.Join(elems, ",")
}
