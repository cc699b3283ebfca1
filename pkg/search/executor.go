// Package search implements the collection-agnostic search facility:
// filtered, sorted, paginated queries with transparent result caching,
// faceted counting, geo radius search and multi-collection merge.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nimbuscrm/searchcore/pkg/cache"
	"github.com/nimbuscrm/searchcore/pkg/core"
	scerrors "github.com/nimbuscrm/searchcore/pkg/errors"
	"github.com/nimbuscrm/searchcore/pkg/query"
)

const (
	// DefaultLimit is the page size used by callers that have no
	// specific preference.
	DefaultLimit = 20

	// DefaultCacheTTL bounds result staleness for read-heavy dashboards.
	DefaultCacheTTL = 5 * time.Minute

	// textSearchUpperBound closes a lowercase prefix range; it sorts
	// after every code point that can follow the prefix.
	textSearchUpperBound = ""
)

// Config tunes an Executor.
type Config struct {
	// CacheTTL is the lifetime of cached first pages. Zero selects
	// DefaultCacheTTL; negative disables caching.
	CacheTTL time.Duration
}

// Executor runs built queries against the store and caches first-page
// results. The cache is an explicit dependency so tests can substitute
// an isolated instance per case.
type Executor struct {
	store core.DocumentStore
	cache *cache.Cache
	ttl   time.Duration
}

// NewExecutor creates an executor over the given store and cache.
func NewExecutor(store core.DocumentStore, c *cache.Cache, cfg Config) *Executor {
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}
	return &Executor{
		store: store,
		cache: c,
		ttl:   ttl,
	}
}

// Search runs a filtered, sorted, paginated query against a collection.
//
// The store is asked for limit+1 documents; the sentinel row, when
// present, proves a further page exists and is never returned to the
// caller. The page cursor resumes after the last returned row.
//
// Only first pages (no cursor) are cached: a cursor is single-use, so
// caching cursor-bearing pages has no reuse value. A cache hit is
// returned verbatim with no re-validation against the live store;
// staleness is bounded by the configured TTL.
func (e *Executor) Search(ctx context.Context, collection string, conditions []query.Condition, sorts []query.SortSpec, limit int, cursor string) (*core.SearchResult, error) {
	if limit <= 0 {
		return nil, scerrors.New("search", collection, scerrors.KindValidation,
			fmt.Errorf("%w: got %d", scerrors.ErrInvalidLimit, limit))
	}

	shape := query.Shape(collection, conditions, sorts)

	var token string
	if cursor != "" {
		decoded, err := query.DecodeCursor(cursor)
		if err != nil {
			return nil, scerrors.New("search", collection, scerrors.KindValidation, err)
		}
		if decoded.Shape != shape {
			return nil, scerrors.New("search", collection, scerrors.KindValidation,
				fmt.Errorf("%w: cursor shape %s, query shape %s", scerrors.ErrCursorMismatch, decoded.Shape, shape))
		}
		token = decoded.Token
	}

	firstPage := token == ""
	cacheKey := query.CacheKey(collection, conditions, sorts, limit)
	if firstPage && e.ttl > 0 {
		if cached, ok := e.cache.Get(cacheKey); ok {
			if result, ok := cached.(*core.SearchResult); ok {
				return result, nil
			}
		}
	}

	q, err := query.Build(e.store, collection, conditions, sorts, limit, token)
	if err != nil {
		return nil, err
	}

	snaps, err := q.GetDocs(ctx)
	if err != nil {
		return nil, wrapStoreError("search", collection, err)
	}

	result := shapePage(snaps, limit, shape)

	if firstPage && e.ttl > 0 {
		e.cache.Set(cacheKey, result, e.ttl, Namespace(collection))
	}
	return result, nil
}

// TextSearch runs a case-insensitive prefix search over a field. It
// requires the caller to maintain a denormalized "<field>_lowercase"
// attribute on every document; this layer depends on that invariant
// but cannot enforce it.
func (e *Executor) TextSearch(ctx context.Context, collection, field, term string, sorts []query.SortSpec, limit int, cursor string) (*core.SearchResult, error) {
	lowered := strings.ToLower(strings.TrimSpace(term))
	prefixField := field + "_lowercase"
	conditions := []query.Condition{
		{Field: prefixField, Operator: ">=", Value: lowered},
		{Field: prefixField, Operator: "<=", Value: lowered + textSearchUpperBound},
	}
	return e.Search(ctx, collection, conditions, sorts, limit, cursor)
}

// ClearCache evicts cached results for one collection, or for every
// collection when collection is empty.
func (e *Executor) ClearCache(collection string) {
	if collection == "" {
		e.cache.Clear()
		return
	}
	e.cache.ClearNamespace(Namespace(collection))
}

// Namespace is the cache namespace tagging a collection's results.
func Namespace(collection string) string {
	return "search:" + collection
}

// shapePage turns fetched snapshots into one result page. snaps holds
// up to limit+1 rows; the sentinel is dropped and recorded as HasMore.
// The cursor points at the last kept row.
func shapePage(snaps []core.Snapshot, limit int, shape string) *core.SearchResult {
	hasMore := len(snaps) > limit
	if hasMore {
		snaps = snaps[:limit]
	}

	items := make([]core.Document, len(snaps))
	for i, snap := range snaps {
		items[i] = snap.Doc()
	}

	var nextCursor string
	if len(snaps) > 0 {
		nextCursor = query.EncodeCursor(snaps[len(snaps)-1].Cursor, shape)
	}

	return &core.SearchResult{
		Items:      items,
		TotalCount: len(items),
		HasMore:    hasMore,
		NextCursor: nextCursor,
	}
}

// wrapStoreError surfaces a store failure unchanged. Stores that
// already classified their error pass through; anything untagged is
// treated as a transport failure, the retry-safe default.
func wrapStoreError(op, collection string, err error) error {
	if scerrors.KindOf(err) != 0 {
		return err
	}
	return scerrors.New(op, collection, scerrors.KindStoreTransport, err)
}
