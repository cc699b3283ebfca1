// Package mocks provides mock implementations of the searchcore store
// interfaces. They are designed to be used with
// github.com/stretchr/testify/mock for unit testing code that depends
// on a document store.
//
// Example usage:
//
//	mockStore := new(mocks.MockStore)
//	mockQuery := new(mocks.MockStoreQuery)
//
//	mockStore.On("Query", "leads").Return(mockQuery)
//	mockQuery.On("Where", "status", "==", "open").Return(mockQuery)
//	mockQuery.On("Limit", 11).Return(mockQuery)
//	mockQuery.On("GetDocs", mock.Anything).Return([]core.Snapshot{}, nil)
//
//	// ... exercise the code under test ...
//
//	mockStore.AssertExpectations(t)
//	mockQuery.AssertExpectations(t)
//
// Chainable methods return the mock itself so expectations compose the
// same way the real fluent query does.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/nimbuscrm/searchcore/pkg/core"
)

// MockStore is a mock implementation of core.DocumentStore.
type MockStore struct {
	mock.Mock
}

// Query starts a new query against the named collection.
func (m *MockStore) Query(collection string) core.StoreQuery {
	args := m.Called(collection)
	return args.Get(0).(core.StoreQuery)
}

// Get retrieves a single document by ID.
func (m *MockStore) Get(ctx context.Context, collection, id string) (core.Document, error) {
	args := m.Called(ctx, collection, id)
	if doc := args.Get(0); doc != nil {
		return doc.(core.Document), args.Error(1)
	}
	return nil, args.Error(1)
}

// Put creates or overwrites a document.
func (m *MockStore) Put(ctx context.Context, collection, id string, doc core.Document) (string, error) {
	args := m.Called(ctx, collection, id, doc)
	return args.String(0), args.Error(1)
}

// Delete removes a document by ID.
func (m *MockStore) Delete(ctx context.Context, collection, id string) error {
	args := m.Called(ctx, collection, id)
	return args.Error(0)
}

// MockStoreQuery is a mock implementation of core.StoreQuery.
type MockStoreQuery struct {
	mock.Mock
}

// Where adds a filter predicate.
func (m *MockStoreQuery) Where(field, op string, value any) core.StoreQuery {
	args := m.Called(field, op, value)
	return args.Get(0).(core.StoreQuery)
}

// OrderBy appends a sort key.
func (m *MockStoreQuery) OrderBy(field, direction string) core.StoreQuery {
	args := m.Called(field, direction)
	return args.Get(0).(core.StoreQuery)
}

// Limit caps the number of returned documents.
func (m *MockStoreQuery) Limit(n int) core.StoreQuery {
	args := m.Called(n)
	return args.Get(0).(core.StoreQuery)
}

// StartAfter resumes the query after a cursor token.
func (m *MockStoreQuery) StartAfter(token string) core.StoreQuery {
	args := m.Called(token)
	return args.Get(0).(core.StoreQuery)
}

// GetDocs executes the query.
func (m *MockStoreQuery) GetDocs(ctx context.Context) ([]core.Snapshot, error) {
	args := m.Called(ctx)
	if snaps := args.Get(0); snaps != nil {
		return snaps.([]core.Snapshot), args.Error(1)
	}
	return nil, args.Error(1)
}
