package expr

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderEquality(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddCondition("status", "==", "open"))

	c := b.Build()
	assert.Equal(t, "#n0 = :v0", c.FilterExpression)
	assert.Equal(t, map[string]string{"#n0": "status"}, c.ExpressionAttributeNames)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "open"},
		c.ExpressionAttributeValues[":v0"])
}

func TestBuilderOperatorForms(t *testing.T) {
	tests := []struct {
		name     string
		operator string
		value    any
		want     string
	}{
		{"not equal", "!=", 1, "#n0 <> :v0"},
		{"greater than", ">", 1, "#n0 > :v0"},
		{"at most", "<=", 1, "#n0 <= :v0"},
		{"in", "in", []any{"a", "b"}, "#n0 IN (:v0, :v1)"},
		{"not-in", "not-in", []any{"a", "b"}, "NOT #n0 IN (:v0, :v1)"},
		{"array-contains", "array-contains", "x", "contains(#n0, :v0)"},
		{"array-contains-any", "array-contains-any", []any{"x", "y"},
			"(contains(#n0, :v0) OR contains(#n0, :v1))"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder()
			require.NoError(t, b.AddCondition("f", tt.operator, tt.value))
			assert.Equal(t, tt.want, b.Build().FilterExpression)
		})
	}
}

func TestBuilderJoinsConditionsWithAnd(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddCondition("status", "==", "open"))
	require.NoError(t, b.AddCondition("score", ">=", 50))

	c := b.Build()
	assert.Equal(t, "#n0 = :v0 AND #n1 >= :v1", c.FilterExpression)
}

func TestBuilderAliasesDotPaths(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddCondition("company.city", "==", "Oslo"))

	c := b.Build()
	assert.Equal(t, "#n0.#n1 = :v0", c.FilterExpression)
	assert.Equal(t, "company", c.ExpressionAttributeNames["#n0"])
	assert.Equal(t, "city", c.ExpressionAttributeNames["#n1"])
}

func TestBuilderAliasesReservedWords(t *testing.T) {
	// "name" and "status" are DynamoDB reserved words; aliasing every
	// segment means no special casing is needed.
	b := NewBuilder()
	require.NoError(t, b.AddCondition("name", "==", "Acme"))

	c := b.Build()
	assert.NotContains(t, c.FilterExpression, "name")
	assert.Equal(t, "name", c.ExpressionAttributeNames["#n0"])
}

func TestBuilderRejectsUnknownOperator(t *testing.T) {
	b := NewBuilder()
	assert.Error(t, b.AddCondition("f", "like", "x"))
}

func TestBuilderRejectsScalarForListOperator(t *testing.T) {
	b := NewBuilder()
	assert.Error(t, b.AddCondition("f", "in", "not-a-slice"))
}

func TestBuilderEmpty(t *testing.T) {
	c := NewBuilder().Build()
	assert.Empty(t, c.FilterExpression)
	assert.Nil(t, c.ExpressionAttributeNames)
	assert.Nil(t, c.ExpressionAttributeValues)
}

func TestConvertToAttributeValue(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value any
		want  types.AttributeValue
	}{
		{"string", "hi", &types.AttributeValueMemberS{Value: "hi"}},
		{"int", 42, &types.AttributeValueMemberN{Value: "42"}},
		{"float", 1.5, &types.AttributeValueMemberN{Value: "1.5"}},
		{"bool", true, &types.AttributeValueMemberBOOL{Value: true}},
		{"nil", nil, &types.AttributeValueMemberNULL{Value: true}},
		{"bytes", []byte{1, 2}, &types.AttributeValueMemberB{Value: []byte{1, 2}}},
		{"time", ts, &types.AttributeValueMemberS{Value: "2026-03-01T12:00:00Z"}},
		{"list", []any{"a", 1}, &types.AttributeValueMemberL{Value: []types.AttributeValue{
			&types.AttributeValueMemberS{Value: "a"},
			&types.AttributeValueMemberN{Value: "1"},
		}}},
		{"map", map[string]any{"k": "v"}, &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
			"k": &types.AttributeValueMemberS{Value: "v"},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ConvertToAttributeValue(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConvertToAttributeValueUnsupported(t *testing.T) {
	_, err := ConvertToAttributeValue(make(chan int))
	assert.Error(t, err)

	_, err = ConvertToAttributeValue(struct{ X int }{1})
	assert.Error(t, err)
}

func TestFromAttributeValueRoundTrip(t *testing.T) {
	av := &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
		"name":  &types.AttributeValueMemberS{Value: "Acme"},
		"score": &types.AttributeValueMemberN{Value: "80"},
		"tags": &types.AttributeValueMemberL{Value: []types.AttributeValue{
			&types.AttributeValueMemberS{Value: "hot"},
		}},
		"active": &types.AttributeValueMemberBOOL{Value: true},
		"gone":   &types.AttributeValueMemberNULL{Value: true},
	}}

	got := FromAttributeValue(av).(map[string]any)
	assert.Equal(t, "Acme", got["name"])
	assert.Equal(t, float64(80), got["score"])
	assert.Equal(t, []any{"hot"}, got["tags"])
	assert.Equal(t, true, got["active"])
	assert.Nil(t, got["gone"])
}

func TestFromAttributeValueBadNumber(t *testing.T) {
	got := FromAttributeValue(&types.AttributeValueMemberN{Value: "not-a-number"})
	assert.Equal(t, "not-a-number", got)
}
