// Package memstore implements core.DocumentStore in memory. It exists
// for tests and local development, playing the role DynamoDB Local
// plays for the real store: deterministic, dependency-free, and
// instrumented with a query counter so tests can assert cache behavior.
package memstore

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/nimbuscrm/searchcore/pkg/core"
	scerrors "github.com/nimbuscrm/searchcore/pkg/errors"
	"github.com/nimbuscrm/searchcore/pkg/query"
)

// Store is an in-memory document store.
type Store struct {
	mu          sync.RWMutex
	collections map[string][]record
	queryCalls  int64
}

// record keeps insertion order so unsorted queries stay deterministic.
type record struct {
	id  string
	doc core.Document
}

// New creates an empty store.
func New() *Store {
	return &Store{collections: make(map[string][]record)}
}

// QueryCalls reports how many times GetDocs has executed, across all
// collections. Cache tests assert on it.
func (s *Store) QueryCalls() int64 {
	return atomic.LoadInt64(&s.queryCalls)
}

// Query starts a new query against the named collection.
func (s *Store) Query(collection string) core.StoreQuery {
	return &storeQuery{store: s, collection: collection}
}

// Get retrieves a single document by ID.
func (s *Store) Get(_ context.Context, collection, id string) (core.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.collections[collection] {
		if rec.id == id {
			return cloneDoc(rec.doc, rec.id), nil
		}
	}
	return nil, scerrors.New("get", collection, scerrors.KindStoreQuery, scerrors.ErrNotFound)
}

// Put creates or overwrites a document. An empty id gets a generated
// UUID; the assigned ID is returned.
func (s *Store) Put(_ context.Context, collection, id string, doc core.Document) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	stored := cloneDoc(doc, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.collections[collection]
	for i, rec := range records {
		if rec.id == id {
			records[i].doc = stored
			return id, nil
		}
	}
	s.collections[collection] = append(records, record{id: id, doc: stored})
	return id, nil
}

// Delete removes a document by ID. Deleting a missing document is a
// no-op.
func (s *Store) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.collections[collection]
	for i, rec := range records {
		if rec.id == id {
			s.collections[collection] = append(records[:i:i], records[i+1:]...)
			return nil
		}
	}
	return nil
}

type storeQuery struct {
	store      *Store
	collection string
	wheres     []query.Condition
	orders     []query.SortSpec
	limit      int
	startAfter string
}

func (q *storeQuery) Where(field, op string, value any) core.StoreQuery {
	q.wheres = append(q.wheres, query.Condition{Field: field, Operator: op, Value: value})
	return q
}

func (q *storeQuery) OrderBy(field, direction string) core.StoreQuery {
	q.orders = append(q.orders, query.SortSpec{Field: field, Direction: direction})
	return q
}

func (q *storeQuery) Limit(n int) core.StoreQuery {
	q.limit = n
	return q
}

func (q *storeQuery) StartAfter(token string) core.StoreQuery {
	q.startAfter = token
	return q
}

func (q *storeQuery) GetDocs(_ context.Context) ([]core.Snapshot, error) {
	atomic.AddInt64(&q.store.queryCalls, 1)

	q.store.mu.RLock()
	records := q.store.collections[q.collection]
	matched := make([]record, 0, len(records))
	for _, rec := range records {
		ok, err := matchesAll(rec.doc, q.wheres)
		if err != nil {
			q.store.mu.RUnlock()
			return nil, scerrors.New("query", q.collection, scerrors.KindStoreQuery, err)
		}
		if ok {
			matched = append(matched, rec)
		}
	}
	q.store.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		for _, order := range q.orders {
			a := core.FieldValue(matched[i].doc, order.Field)
			b := core.FieldValue(matched[j].doc, order.Field)
			var cmp int
			switch {
			case a == nil && b == nil:
				cmp = 0
			case a == nil:
				cmp = -1
			case b == nil:
				cmp = 1
			default:
				cmp = core.CompareValues(a, b)
			}
			if cmp == 0 {
				continue
			}
			if order.Direction == query.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})

	if q.startAfter != "" {
		idx := -1
		for i, rec := range matched {
			if rec.id == q.startAfter {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, scerrors.New("query", q.collection, scerrors.KindValidation, scerrors.ErrInvalidCursor)
		}
		matched = matched[idx+1:]
	}

	if q.limit > 0 && len(matched) > q.limit {
		matched = matched[:q.limit]
	}

	snaps := make([]core.Snapshot, len(matched))
	for i, rec := range matched {
		snaps[i] = core.Snapshot{ID: rec.id, Fields: cloneDoc(rec.doc, rec.id), Cursor: rec.id}
	}
	return snaps, nil
}

func matchesAll(doc core.Document, conditions []query.Condition) (bool, error) {
	for _, cond := range conditions {
		ok, err := matches(doc, cond)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// matches evaluates one condition against a document. Documents
// missing the conditioned field never match, matching the document
// store's treatment of absent attributes.
func matches(doc core.Document, cond query.Condition) (bool, error) {
	value := core.FieldValue(doc, cond.Field)

	switch cond.Operator {
	case "==":
		return value != nil && equalValues(value, cond.Value), nil
	case "!=":
		return value != nil && !equalValues(value, cond.Value), nil
	case ">", ">=", "<", "<=":
		if value == nil {
			return false, nil
		}
		cmp := core.CompareValues(value, cond.Value)
		switch cond.Operator {
		case ">":
			return cmp > 0, nil
		case ">=":
			return cmp >= 0, nil
		case "<":
			return cmp < 0, nil
		default:
			return cmp <= 0, nil
		}
	case "in":
		if value == nil {
			return false, nil
		}
		candidates, err := sliceValues(cond.Value, cond.Operator)
		if err != nil {
			return false, err
		}
		for _, candidate := range candidates {
			if equalValues(value, candidate) {
				return true, nil
			}
		}
		return false, nil
	case "not-in":
		if value == nil {
			return false, nil
		}
		candidates, err := sliceValues(cond.Value, cond.Operator)
		if err != nil {
			return false, err
		}
		for _, candidate := range candidates {
			if equalValues(value, candidate) {
				return false, nil
			}
		}
		return true, nil
	case "array-contains":
		elems, err := sliceValues(value, cond.Operator)
		if err != nil {
			return false, nil
		}
		for _, elem := range elems {
			if equalValues(elem, cond.Value) {
				return true, nil
			}
		}
		return false, nil
	case "array-contains-any":
		elems, elemsErr := sliceValues(value, cond.Operator)
		if elemsErr != nil {
			return false, nil
		}
		candidates, err := sliceValues(cond.Value, cond.Operator)
		if err != nil {
			return false, err
		}
		for _, elem := range elems {
			for _, candidate := range candidates {
				if equalValues(elem, candidate) {
					return true, nil
				}
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", scerrors.ErrInvalidOperator, cond.Operator)
	}
}

// equalValues compares with numeric widening so that int 3 equals
// float64 3 the way it would after a JSON round trip.
func equalValues(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	aStr, aIsStr := a.(string)
	bStr, bIsStr := b.(string)
	if aIsStr || bIsStr {
		return aIsStr && bIsStr && aStr == bStr
	}
	switch a.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		switch b.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
			return core.CompareValues(a, b) == 0
		}
	}
	return false
}

func sliceValues(value any, operator string) ([]any, error) {
	switch v := value.(type) {
	case []any:
		return v, nil
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, nil
	}
	v := reflect.ValueOf(value)
	if value == nil || v.Kind() != reflect.Slice {
		return nil, fmt.Errorf("operator %q requires a slice value, got %T", operator, value)
	}
	out := make([]any, v.Len())
	for i := 0; i < v.Len(); i++ {
		out[i] = v.Index(i).Interface()
	}
	return out, nil
}

func cloneDoc(doc core.Document, id string) core.Document {
	out := make(core.Document, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}
	out["id"] = id
	return out
}
