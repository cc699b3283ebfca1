// Package searchcore is a collection-agnostic search layer for a
// multi-tenant CRM over a managed document store. It builds filtered,
// sorted, paginated queries, supports faceted counting, approximate
// geospatial radius search and multi-collection merge, and caches
// first-page results with TTL invalidation.
package searchcore

import (
	"context"
	"fmt"
	"time"

	"github.com/nimbuscrm/searchcore/pkg/cache"
	"github.com/nimbuscrm/searchcore/pkg/core"
	"github.com/nimbuscrm/searchcore/pkg/query"
	"github.com/nimbuscrm/searchcore/pkg/search"
	"github.com/nimbuscrm/searchcore/pkg/session"
	"github.com/nimbuscrm/searchcore/pkg/store/dynamostore"
)

// Convenience aliases so most callers only import this package.
type (
	// Condition is a single field/operator/value filter predicate.
	Condition = query.Condition

	// SortSpec is one sort key of a composite sort order.
	SortSpec = query.SortSpec

	// SearchResult is one page of search results.
	SearchResult = core.SearchResult

	// Document is an opaque key/value record from the store.
	Document = core.Document

	// Facet is a value→count breakdown of one field across a page.
	Facet = core.Facet

	// FacetedResult pairs a result page with its facet breakdowns.
	FacetedResult = search.FacetedResult

	// Config configures the store client and search defaults.
	Config = session.Config

	// TableKeys is the key schema of one collection's backing table.
	TableKeys = session.TableKeys
)

// Sort directions.
const (
	Asc  = query.Asc
	Desc = query.Desc
)

// Client is the inbound surface consumed by dashboards, list views,
// lead-assignment rule evaluation and reporting.
//
// Callers must include a tenant-identifying Condition themselves; the
// client never injects one.
type Client struct {
	store        core.DocumentStore
	cache        *cache.Cache
	executor     *search.Executor
	defaultLimit int
}

// New creates a client backed by DynamoDB, configured by cfg.
func New(cfg Config) (*Client, error) {
	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	store, err := dynamostore.New(sess)
	if err != nil {
		return nil, err
	}
	return NewWithStore(store, cfg.CacheTTL, cfg.DefaultLimit), nil
}

// NewWithStore creates a client over any DocumentStore with its own
// isolated cache. Passing the cache and store explicitly, rather than
// sharing module-level state, lets tests substitute both per case.
func NewWithStore(store core.DocumentStore, cacheTTL time.Duration, defaultLimit int) *Client {
	if defaultLimit <= 0 {
		defaultLimit = search.DefaultLimit
	}
	c := cache.New()
	return &Client{
		store:        store,
		cache:        c,
		executor:     search.NewExecutor(store, c, search.Config{CacheTTL: cacheTTL}),
		defaultLimit: defaultLimit,
	}
}

// Store exposes the underlying document store for direct CRUD.
func (c *Client) Store() core.DocumentStore {
	return c.store
}

// DefaultLimit is the page size used when a caller passes limit 0 to
// the convenience methods on Client. An explicit negative limit is
// still rejected.
func (c *Client) DefaultLimit() int {
	return c.defaultLimit
}

// Search runs a filtered, sorted, paginated query. A limit of 0
// selects the configured default page size.
func (c *Client) Search(ctx context.Context, collection string, conditions []Condition, sorts []SortSpec, limit int, cursor string) (*SearchResult, error) {
	return c.executor.Search(ctx, collection, conditions, sorts, c.effectiveLimit(limit), cursor)
}

// TextSearch runs a case-insensitive prefix search over a field,
// against the caller-maintained "<field>_lowercase" attribute.
func (c *Client) TextSearch(ctx context.Context, collection, field, term string, sorts []SortSpec, limit int, cursor string) (*SearchResult, error) {
	return c.executor.TextSearch(ctx, collection, field, term, sorts, c.effectiveLimit(limit), cursor)
}

// FacetedSearch runs Search and computes facets over the returned page.
func (c *Client) FacetedSearch(ctx context.Context, collection string, conditions []Condition, sorts []SortSpec, limit int, cursor string, facetFields []string) (*FacetedResult, error) {
	return c.executor.FacetedSearch(ctx, collection, conditions, sorts, c.effectiveLimit(limit), cursor, facetFields)
}

// GeoSearch finds documents within radiusKm of a center point.
func (c *Client) GeoSearch(ctx context.Context, collection, latField, lngField string, centerLat, centerLng, radiusKm float64, extraConditions []Condition, sorts []SortSpec, limit int) (*SearchResult, error) {
	return c.executor.GeoSearch(ctx, collection, latField, lngField, centerLat, centerLng, radiusKm, extraConditions, sorts, c.effectiveLimit(limit))
}

// SearchMultiCollection fans a condition set out to several
// collections in parallel and merges the results.
func (c *Client) SearchMultiCollection(ctx context.Context, collections []string, conditions []Condition, sortField, direction string, limit int) ([]Document, error) {
	return c.executor.SearchMultiCollection(ctx, collections, conditions, sortField, direction, c.effectiveLimit(limit))
}

// ClearCache evicts cached results for one collection, or for all
// collections when collection is empty.
func (c *Client) ClearCache(collection string) {
	c.executor.ClearCache(collection)
}

func (c *Client) effectiveLimit(limit int) int {
	if limit == 0 {
		return c.defaultLimit
	}
	return limit
}
