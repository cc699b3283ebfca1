// Package core defines the core interfaces and types shared by the search layer
package core

import (
	"context"
)

// DocumentStore is the outbound surface this library requires of the
// underlying document database. Implementations live under pkg/store;
// callers may supply their own.
//
// Tenant scoping is a caller responsibility: conditions reaching a
// DocumentStore are expected to already carry a tenant-identifying
// filter. This layer never injects one.
type DocumentStore interface {
	// Query starts a new query against the named collection.
	Query(collection string) StoreQuery

	// Get retrieves a single document by ID.
	Get(ctx context.Context, collection, id string) (Document, error)

	// Put creates or overwrites a document. An empty id asks the store
	// to generate one; the assigned ID is returned.
	Put(ctx context.Context, collection, id string, doc Document) (string, error)

	// Delete removes a document by ID.
	Delete(ctx context.Context, collection, id string) error
}

// StoreQuery is a chainable, store-native query under construction.
// Implementations accumulate constraints and execute on GetDocs.
type StoreQuery interface {
	// Where adds a filter predicate. Operators follow the document-store
	// vocabulary: ==, !=, >, >=, <, <=, in, not-in, array-contains,
	// array-contains-any.
	Where(field string, op string, value any) StoreQuery

	// OrderBy appends a sort key. Direction is "asc" or "desc".
	OrderBy(field string, direction string) StoreQuery

	// Limit caps the number of returned documents.
	Limit(n int) StoreQuery

	// StartAfter resumes the query after the document identified by a
	// cursor token previously returned in a Snapshot. Only meaningful
	// with the same sort order that produced the token.
	StartAfter(token string) StoreQuery

	// GetDocs executes the query and returns documents in sort order,
	// each paired with its own cursor token.
	GetDocs(ctx context.Context) ([]Snapshot, error)
}

// Document is an opaque key/value record as returned by the store.
// The document ID is mirrored into the "id" field.
type Document map[string]any

// Snapshot is one document plus the opaque cursor token that resumes
// a query immediately after it.
type Snapshot struct {
	ID     string
	Fields Document
	Cursor string
}

// Doc returns the snapshot's fields with the document ID mirrored in.
// The returned map is a copy; mutating it does not affect the snapshot.
func (s Snapshot) Doc() Document {
	doc := make(Document, len(s.Fields)+1)
	for k, v := range s.Fields {
		doc[k] = v
	}
	doc["id"] = s.ID
	return doc
}

// SearchResult is one page of search results.
type SearchResult struct {
	// Items contains the page's documents in sort order.
	Items []Document `json:"items"`

	// TotalCount is the number of items on this page, not the true
	// total across all pages.
	TotalCount int `json:"totalCount"`

	// HasMore reports whether at least one more matching document
	// exists beyond this page.
	HasMore bool `json:"hasMore"`

	// NextCursor resumes the query after the last item of this page.
	// Empty when the page is empty.
	NextCursor string `json:"nextCursor,omitempty"`
}

// Facet is a value→count breakdown of one field across a result page,
// sorted by count descending.
type Facet struct {
	Field  string       `json:"field"`
	Values []FacetValue `json:"values"`
}

// FacetValue is a single facet bucket. Array field values are
// normalized to a sorted, comma-joined string before bucketing.
type FacetValue struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}
