package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbuscrm/searchcore/pkg/core"
	scerrors "github.com/nimbuscrm/searchcore/pkg/errors"
)

// recorder captures the store calls Build makes, in order.
type recorder struct {
	collection string
	calls      []string
	limit      int
}

func (r *recorder) Query(collection string) core.StoreQuery {
	r.collection = collection
	return (*recorderQuery)(r)
}

func (r *recorder) Get(context.Context, string, string) (core.Document, error) { return nil, nil }
func (r *recorder) Put(context.Context, string, string, core.Document) (string, error) {
	return "", nil
}
func (r *recorder) Delete(context.Context, string, string) error { return nil }

type recorderQuery recorder

func (q *recorderQuery) Where(field, op string, value any) core.StoreQuery {
	q.calls = append(q.calls, "where "+field+" "+op)
	return q
}

func (q *recorderQuery) OrderBy(field, direction string) core.StoreQuery {
	q.calls = append(q.calls, "orderBy "+field+" "+direction)
	return q
}

func (q *recorderQuery) Limit(n int) core.StoreQuery {
	q.limit = n
	q.calls = append(q.calls, "limit")
	return q
}

func (q *recorderQuery) StartAfter(token string) core.StoreQuery {
	q.calls = append(q.calls, "startAfter "+token)
	return q
}

func (q *recorderQuery) GetDocs(context.Context) ([]core.Snapshot, error) { return nil, nil }

func TestBuildEmitsConstraintsInOrder(t *testing.T) {
	rec := &recorder{}

	_, err := Build(rec, "leads",
		[]Condition{
			{Field: "tenantId", Operator: "==", Value: "t1"},
			{Field: "status", Operator: "==", Value: "open"},
		},
		[]SortSpec{
			{Field: "createdAt", Direction: Desc},
			{Field: "name", Direction: Asc},
		},
		10, "tok-9")
	require.NoError(t, err)

	assert.Equal(t, "leads", rec.collection)
	assert.Equal(t, []string{
		"where tenantId ==",
		"where status ==",
		"orderBy createdAt desc",
		"orderBy name asc",
		"startAfter tok-9",
		"limit",
	}, rec.calls)
}

func TestBuildAddsSentinelRow(t *testing.T) {
	// The emitted limit is always requested+1; the extra row is how
	// hasMore is detected without a count query.
	rec := &recorder{}
	_, err := Build(rec, "leads", nil, nil, 25, "")
	require.NoError(t, err)
	assert.Equal(t, 26, rec.limit)
}

func TestBuildRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name       string
		conditions []Condition
		sorts      []SortSpec
		limit      int
		want       error
	}{
		{
			name:  "zero limit",
			limit: 0,
			want:  scerrors.ErrInvalidLimit,
		},
		{
			name:  "negative limit",
			limit: -5,
			want:  scerrors.ErrInvalidLimit,
		},
		{
			name:       "unknown operator",
			conditions: []Condition{{Field: "status", Operator: "like", Value: "x"}},
			limit:      10,
			want:       scerrors.ErrInvalidOperator,
		},
		{
			name:       "empty field path",
			conditions: []Condition{{Field: "", Operator: "==", Value: "x"}},
			limit:      10,
			want:       scerrors.ErrInvalidFieldPath,
		},
		{
			name:       "dangling dot in path",
			conditions: []Condition{{Field: "company.", Operator: "==", Value: "x"}},
			limit:      10,
			want:       scerrors.ErrInvalidFieldPath,
		},
		{
			name:  "bad sort direction",
			sorts: []SortSpec{{Field: "name", Direction: "descending"}},
			limit: 10,
			want:  scerrors.ErrInvalidDirection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(&recorder{}, "leads", tt.conditions, tt.sorts, tt.limit, "")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, scerrors.IsValidation(err))
		})
	}
}

func TestBuildPrependsInequalityField(t *testing.T) {
	// The store requires an inequality-filtered field to lead the sort
	// order; Build satisfies that when explicit sorts omit it.
	rec := &recorder{}
	_, err := Build(rec, "leads",
		[]Condition{{Field: "score", Operator: ">", Value: 50}},
		[]SortSpec{{Field: "name", Direction: Asc}},
		10, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"where score >",
		"orderBy score asc",
		"orderBy name asc",
		"limit",
	}, rec.calls)
}

func TestBuildKeepsLeadingInequalitySort(t *testing.T) {
	rec := &recorder{}
	_, err := Build(rec, "leads",
		[]Condition{{Field: "score", Operator: ">", Value: 50}},
		[]SortSpec{{Field: "score", Direction: Desc}, {Field: "name", Direction: Asc}},
		10, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"where score >",
		"orderBy score desc",
		"orderBy name asc",
		"limit",
	}, rec.calls)
}

func TestBuildNoSortsEmitsNoOrderBy(t *testing.T) {
	rec := &recorder{}
	_, err := Build(rec, "leads",
		[]Condition{{Field: "score", Operator: ">=", Value: 10}},
		nil, 10, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"where score >=", "limit"}, rec.calls)
}

func TestCacheKeyDeterministic(t *testing.T) {
	conditions := []Condition{{Field: "status", Operator: "==", Value: "open"}}
	sorts := []SortSpec{{Field: "createdAt", Direction: Desc}}

	a := CacheKey("leads", conditions, sorts, 10)
	b := CacheKey("leads", conditions, sorts, 10)
	assert.Equal(t, a, b)

	assert.NotEqual(t, a, CacheKey("leads", conditions, sorts, 20))
	assert.NotEqual(t, a, CacheKey("customers", conditions, sorts, 10))
	assert.NotEqual(t, a, CacheKey("leads", nil, sorts, 10))
}

func TestShapeIgnoresLimit(t *testing.T) {
	conditions := []Condition{{Field: "status", Operator: "==", Value: "open"}}
	sorts := []SortSpec{{Field: "createdAt", Direction: Desc}}

	assert.Equal(t,
		Shape("leads", conditions, sorts),
		Shape("leads", conditions, sorts))
	assert.NotEqual(t,
		Shape("leads", conditions, sorts),
		Shape("leads", conditions, nil))
	assert.NotEqual(t,
		Shape("leads", conditions, sorts),
		Shape("customers", conditions, sorts))
}

func TestCursorRoundTrip(t *testing.T) {
	shape := Shape("leads", nil, nil)
	encoded := EncodeCursor("doc-42", shape)
	require.NotEmpty(t, encoded)

	decoded, err := DecodeCursor(encoded)
	require.NoError(t, err)
	assert.Equal(t, "doc-42", decoded.Token)
	assert.Equal(t, shape, decoded.Shape)
}

func TestDecodeCursorEmpty(t *testing.T) {
	decoded, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, decoded)
}

func TestDecodeCursorInvalid(t *testing.T) {
	for _, bad := range []string{"not base64!!", "AAAA", "e30="} {
		_, err := DecodeCursor(bad)
		assert.ErrorIs(t, err, scerrors.ErrInvalidCursor, "input %q", bad)
	}
}

func TestEncodeCursorEmptyToken(t *testing.T) {
	assert.Empty(t, EncodeCursor("", "shape"))
}
