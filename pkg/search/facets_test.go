package search_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbuscrm/searchcore/pkg/core"
	"github.com/nimbuscrm/searchcore/pkg/search"
)

func TestComputeFacetsCountsAndOrders(t *testing.T) {
	items := []core.Document{
		{"status": "open"},
		{"status": "open"},
		{"status": "won"},
		{"status": "open"},
		{"status": "lost"},
		{"status": "won"},
	}

	facets := search.ComputeFacets(items, []string{"status"})
	require.Contains(t, facets, "status")

	assert.Equal(t, []core.FacetValue{
		{Value: "open", Count: 3},
		{Value: "won", Count: 2},
		{Value: "lost", Count: 1},
	}, facets["status"].Values)
}

func TestComputeFacetsTieBreakIsFirstSeen(t *testing.T) {
	items := []core.Document{
		{"source": "web"},
		{"source": "referral"},
		{"source": "web"},
		{"source": "referral"},
	}

	facets := search.ComputeFacets(items, []string{"source"})
	assert.Equal(t, []core.FacetValue{
		{Value: "web", Count: 2},
		{Value: "referral", Count: 2},
	}, facets["source"].Values)
}

func TestComputeFacetsNormalizesArrays(t *testing.T) {
	// ["a","b"] and ["b","a"] must land in the same bucket.
	items := []core.Document{
		{"tags": []string{"hot", "enterprise"}},
		{"tags": []any{"enterprise", "hot"}},
		{"tags": []string{"hot"}},
	}

	facets := search.ComputeFacets(items, []string{"tags"})
	assert.Equal(t, []core.FacetValue{
		{Value: "enterprise,hot", Count: 2},
		{Value: "hot", Count: 1},
	}, facets["tags"].Values)
}

func TestComputeFacetsCountConservation(t *testing.T) {
	// P6: counts sum to the number of items carrying the field.
	items := []core.Document{
		{"region": "emea"},
		{"region": "amer"},
		{"name": "no region"},
		{"region": "emea"},
		{"region": "apac"},
	}

	facets := search.ComputeFacets(items, []string{"region"})
	sum := 0
	for _, v := range facets["region"].Values {
		sum += v.Count
	}
	assert.Equal(t, 4, sum)
}

func TestComputeFacetsDotPathAndMultipleFields(t *testing.T) {
	items := []core.Document{
		{"company": map[string]any{"size": "smb"}, "status": "open"},
		{"company": map[string]any{"size": "smb"}, "status": "won"},
		{"company": map[string]any{"size": "enterprise"}, "status": "open"},
	}

	facets := search.ComputeFacets(items, []string{"company.size", "status"})
	require.Len(t, facets, 2)
	assert.Equal(t, []core.FacetValue{
		{Value: "smb", Count: 2},
		{Value: "enterprise", Count: 1},
	}, facets["company.size"].Values)
	assert.Equal(t, 2, facets["status"].Values[0].Count)
}

func TestComputeFacetsEmptyPage(t *testing.T) {
	facets := search.ComputeFacets(nil, []string{"status"})
	require.Contains(t, facets, "status")
	assert.Empty(t, facets["status"].Values)
}

func TestFacetedSearchReflectsCurrentPageOnly(t *testing.T) {
	exec, store := newExecutor(t, search.Config{})
	ctx := context.Background()
	for i, status := range []string{"open", "open", "won", "lost", "open"} {
		_, err := store.Put(ctx, "leads", "", core.Document{"status": status, "rank": i})
		require.NoError(t, err)
	}

	result, err := exec.FacetedSearch(ctx, "leads", nil, nil, 3, "", []string{"status"})
	require.NoError(t, err)
	require.Len(t, result.Results.Items, 3)

	sum := 0
	for _, v := range result.Facets["status"].Values {
		sum += v.Count
	}
	assert.Equal(t, 3, sum, "facets cover the fetched page, not the full set")
}
