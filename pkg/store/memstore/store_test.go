package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbuscrm/searchcore/pkg/core"
	scerrors "github.com/nimbuscrm/searchcore/pkg/errors"
	"github.com/nimbuscrm/searchcore/pkg/query"
)

func seed(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	docs := []core.Document{
		{"name": "Acme", "score": 80, "tags": []any{"hot", "smb"}, "region": "emea"},
		{"name": "Globex", "score": 55, "tags": []any{"cold"}, "region": "amer"},
		{"name": "Initech", "score": 92, "tags": []any{"hot", "enterprise"}, "region": "amer"},
		{"name": "Umbrella", "score": 12, "region": "apac"},
	}
	for i, doc := range docs {
		_, err := s.Put(ctx, "accounts", string(rune('a'+i)), doc)
		require.NoError(t, err)
	}
}

func names(snaps []core.Snapshot) []string {
	out := make([]string, len(snaps))
	for i, snap := range snaps {
		out[i] = snap.Fields["name"].(string)
	}
	return out
}

func TestQueryOperators(t *testing.T) {
	s := New()
	seed(t, s)
	ctx := context.Background()

	tests := []struct {
		name string
		cond query.Condition
		want []string
	}{
		{"equality", query.Condition{Field: "region", Operator: "==", Value: "amer"}, []string{"Globex", "Initech"}},
		{"inequality", query.Condition{Field: "region", Operator: "!=", Value: "amer"}, []string{"Acme", "Umbrella"}},
		{"greater than", query.Condition{Field: "score", Operator: ">", Value: 80}, []string{"Initech"}},
		{"greater or equal", query.Condition{Field: "score", Operator: ">=", Value: 80}, []string{"Acme", "Initech"}},
		{"less than", query.Condition{Field: "score", Operator: "<", Value: 55}, []string{"Umbrella"}},
		{"in", query.Condition{Field: "region", Operator: "in", Value: []any{"emea", "apac"}}, []string{"Acme", "Umbrella"}},
		{"not-in", query.Condition{Field: "region", Operator: "not-in", Value: []any{"emea", "apac"}}, []string{"Globex", "Initech"}},
		{"array-contains", query.Condition{Field: "tags", Operator: "array-contains", Value: "hot"}, []string{"Acme", "Initech"}},
		{"array-contains-any", query.Condition{Field: "tags", Operator: "array-contains-any", Value: []any{"cold", "enterprise"}}, []string{"Globex", "Initech"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snaps, err := s.Query("accounts").
				Where(tt.cond.Field, tt.cond.Operator, tt.cond.Value).
				GetDocs(ctx)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, names(snaps))
		})
	}
}

func TestQueryMissingFieldNeverMatches(t *testing.T) {
	s := New()
	seed(t, s)

	// Umbrella has no tags attribute at all.
	snaps, err := s.Query("accounts").
		Where("tags", "array-contains", "hot").
		GetDocs(context.Background())
	require.NoError(t, err)
	for _, snap := range snaps {
		assert.NotEqual(t, "Umbrella", snap.Fields["name"])
	}
}

func TestQueryCompositeSort(t *testing.T) {
	s := New()
	seed(t, s)

	snaps, err := s.Query("accounts").
		OrderBy("region", query.Asc).
		OrderBy("score", query.Desc).
		GetDocs(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Initech", "Globex", "Umbrella", "Acme"}, names(snaps))
}

func TestQueryLimitAndStartAfter(t *testing.T) {
	s := New()
	seed(t, s)
	ctx := context.Background()

	page1, err := s.Query("accounts").
		OrderBy("score", query.Asc).
		Limit(2).
		GetDocs(ctx)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.Equal(t, []string{"Umbrella", "Globex"}, names(page1))

	page2, err := s.Query("accounts").
		OrderBy("score", query.Asc).
		StartAfter(page1[1].Cursor).
		Limit(2).
		GetDocs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme", "Initech"}, names(page2))
}

func TestQueryStartAfterUnknownToken(t *testing.T) {
	s := New()
	seed(t, s)

	_, err := s.Query("accounts").StartAfter("no-such-doc").GetDocs(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, scerrors.ErrInvalidCursor)
}

func TestQueryUnknownOperator(t *testing.T) {
	s := New()
	seed(t, s)

	_, err := s.Query("accounts").Where("name", "~", "x").GetDocs(context.Background())
	require.Error(t, err)
	assert.True(t, scerrors.IsStoreQuery(err))
}

func TestPutGeneratesID(t *testing.T) {
	s := New()
	ctx := context.Background()

	id, err := s.Put(ctx, "leads", "", core.Document{"name": "fresh"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	doc, err := s.Get(ctx, "leads", id)
	require.NoError(t, err)
	assert.Equal(t, "fresh", doc["name"])
	assert.Equal(t, id, doc["id"])
}

func TestPutOverwrites(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.Put(ctx, "leads", "x", core.Document{"v": 1})
	require.NoError(t, err)
	_, err = s.Put(ctx, "leads", "x", core.Document{"v": 2})
	require.NoError(t, err)

	doc, err := s.Get(ctx, "leads", "x")
	require.NoError(t, err)
	assert.Equal(t, 2, doc["v"])
}

func TestDeleteAndGetMissing(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.Put(ctx, "leads", "x", core.Document{})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "leads", "x"))

	_, err = s.Get(ctx, "leads", "x")
	require.Error(t, err)
	assert.True(t, scerrors.IsNotFound(err))

	// Deleting again is a no-op.
	assert.NoError(t, s.Delete(ctx, "leads", "x"))
}

func TestNumericWideningEquality(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.Put(ctx, "leads", "x", core.Document{"score": float64(7)})
	require.NoError(t, err)

	snaps, err := s.Query("leads").Where("score", "==", 7).GetDocs(ctx)
	require.NoError(t, err)
	assert.Len(t, snaps, 1)
}
