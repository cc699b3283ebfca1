// Package dynamostore implements core.DocumentStore over DynamoDB.
//
// Collections map to tables whose key schemas come from session
// configuration. Arbitrary condition/sort combinations are served by
// filtered scans materialized client-side before sorting and paging;
// that favors correctness over cost and suits CRM-scale collections.
// A deployment with large tables would model its hot sort orders as
// GSIs and query those instead.
package dynamostore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/nimbuscrm/searchcore/internal/expr"
	"github.com/nimbuscrm/searchcore/pkg/core"
	scerrors "github.com/nimbuscrm/searchcore/pkg/errors"
	"github.com/nimbuscrm/searchcore/pkg/query"
	"github.com/nimbuscrm/searchcore/pkg/session"
)

// keySeparator joins partition and sort key values into a document ID
// for composite-key tables.
const keySeparator = "#"

// Store is a DynamoDB-backed document store.
type Store struct {
	client *dynamodb.Client
	tables map[string]session.TableKeys
}

// New creates a store from a configured session.
func New(sess *session.Session) (*Store, error) {
	client, err := sess.Client()
	if err != nil {
		return nil, err
	}
	return NewWithClient(client, sess.Config().Tables), nil
}

// NewWithClient creates a store from an existing client, for callers
// that manage their own AWS configuration.
func NewWithClient(client *dynamodb.Client, tables map[string]session.TableKeys) *Store {
	return &Store{client: client, tables: tables}
}

// Query starts a new query against the named collection.
func (s *Store) Query(collection string) core.StoreQuery {
	return &storeQuery{store: s, collection: collection}
}

// Get retrieves a single document by ID.
func (s *Store) Get(ctx context.Context, collection, id string) (core.Document, error) {
	keys, err := s.tableKeys(collection)
	if err != nil {
		return nil, err
	}
	key, err := buildKey(keys, id)
	if err != nil {
		return nil, scerrors.New("get", collection, scerrors.KindValidation, err)
	}

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(collection),
		Key:       key,
	})
	if err != nil {
		return nil, classify("get", collection, err)
	}
	if out.Item == nil {
		return nil, scerrors.New("get", collection, scerrors.KindStoreQuery, scerrors.ErrNotFound)
	}
	return itemToDocument(out.Item, keys), nil
}

// Put creates or overwrites a document. An empty id gets a generated
// UUID; the assigned ID is returned.
func (s *Store) Put(ctx context.Context, collection, id string, doc core.Document) (string, error) {
	keys, err := s.tableKeys(collection)
	if err != nil {
		return "", err
	}
	if id == "" {
		id = uuid.NewString()
	}
	key, err := buildKey(keys, id)
	if err != nil {
		return "", scerrors.New("put", collection, scerrors.KindValidation, err)
	}

	item := make(map[string]types.AttributeValue, len(doc)+2)
	for field, value := range doc {
		if field == "id" {
			continue
		}
		av, convErr := expr.ConvertToAttributeValue(value)
		if convErr != nil {
			return "", scerrors.New("put", collection, scerrors.KindValidation,
				fmt.Errorf("field %q: %w", field, convErr))
		}
		item[field] = av
	}
	for k, v := range key {
		item[k] = v
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(collection),
		Item:      item,
	})
	if err != nil {
		return "", classify("put", collection, err)
	}
	return id, nil
}

// Delete removes a document by ID.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	keys, err := s.tableKeys(collection)
	if err != nil {
		return err
	}
	key, err := buildKey(keys, id)
	if err != nil {
		return scerrors.New("delete", collection, scerrors.KindValidation, err)
	}

	_, err = s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(collection),
		Key:       key,
	})
	if err != nil {
		return classify("delete", collection, err)
	}
	return nil
}

func (s *Store) tableKeys(collection string) (session.TableKeys, error) {
	keys, ok := s.tables[collection]
	if !ok {
		return session.TableKeys{}, scerrors.New("query", collection, scerrors.KindStoreQuery,
			fmt.Errorf("collection %q has no configured table", collection))
	}
	if keys.PartitionKey == "" {
		return session.TableKeys{}, scerrors.New("query", collection, scerrors.KindStoreQuery,
			fmt.Errorf("collection %q has no partition key configured", collection))
	}
	return keys, nil
}

// storeQuery accumulates constraints for one execution.
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

// GetDocs executes the query. Matching items are fully materialized,
// sorted, positioned after any cursor and truncated to the limit.
func (q *storeQuery) GetDocs(ctx context.Context) ([]core.Snapshot, error) {
	keys, err := q.store.tableKeys(q.collection)
	if err != nil {
		return nil, err
	}

	builder := expr.NewBuilder()
	for _, cond := range q.wheres {
		if err := builder.AddCondition(cond.Field, cond.Operator, cond.Value); err != nil {
			return nil, scerrors.New("query", q.collection, scerrors.KindStoreQuery, err)
		}
	}
	components := builder.Build()

	docs, err := q.scanAll(ctx, components)
	if err != nil {
		return nil, err
	}

	sortDocuments(docs, q.orders, keys)

	if q.startAfter != "" {
		idx := -1
		for i, doc := range docs {
			if doc.ID == q.startAfter {
				idx = i
				break
			}
		}
		if idx < 0 {
			// The anchor document is gone or the token belongs to a
			// different sort order.
			return nil, scerrors.New("query", q.collection, scerrors.KindValidation, scerrors.ErrInvalidCursor)
		}
		docs = docs[idx+1:]
	}

	if q.limit > 0 && len(docs) > q.limit {
		docs = docs[:q.limit]
	}
	return docs, nil
}

func (q *storeQuery) scanAll(ctx context.Context, components expr.Components) ([]core.Snapshot, error) {
	keys := q.store.tables[q.collection]

	input := &dynamodb.ScanInput{
		TableName: aws.String(q.collection),
	}
	if components.FilterExpression != "" {
		input.FilterExpression = aws.String(components.FilterExpression)
		input.ExpressionAttributeNames = components.ExpressionAttributeNames
		input.ExpressionAttributeValues = components.ExpressionAttributeValues
	}

	var docs []core.Snapshot
	for {
		out, err := q.store.client.Scan(ctx, input)
		if err != nil {
			return nil, classify("query", q.collection, err)
		}
		for _, item := range out.Items {
			doc := itemToDocument(item, keys)
			id, _ := doc["id"].(string)
			docs = append(docs, core.Snapshot{ID: id, Fields: doc, Cursor: id})
		}
		if out.LastEvaluatedKey == nil {
			return docs, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// sortDocuments applies the composite sort order. Documents missing a
// sort field order before those that have it; final ties fall back to
// the ID so ordering, and therefore cursor positioning, stays
// deterministic across executions.
func sortDocuments(docs []core.Snapshot, orders []query.SortSpec, keys session.TableKeys) {
	sort.SliceStable(docs, func(i, j int) bool {
		for _, order := range orders {
			a := core.FieldValue(docs[i].Fields, order.Field)
			b := core.FieldValue(docs[j].Fields, order.Field)
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
		return docs[i].ID < docs[j].ID
	})
}

func itemToDocument(item map[string]types.AttributeValue, keys session.TableKeys) core.Document {
	doc := make(core.Document, len(item)+1)
	for field, av := range item {
		doc[field] = expr.FromAttributeValue(av)
	}
	doc["id"] = documentID(item, keys)
	return doc
}

func documentID(item map[string]types.AttributeValue, keys session.TableKeys) string {
	pk := stringValue(item[keys.PartitionKey])
	if keys.SortKey == "" {
		return pk
	}
	return pk + keySeparator + stringValue(item[keys.SortKey])
}

func stringValue(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	default:
		return fmt.Sprintf("%v", expr.FromAttributeValue(av))
	}
}

func buildKey(keys session.TableKeys, id string) (map[string]types.AttributeValue, error) {
	key := make(map[string]types.AttributeValue, 2)
	if keys.SortKey == "" {
		key[keys.PartitionKey] = &types.AttributeValueMemberS{Value: id}
		return key, nil
	}
	parts := strings.SplitN(id, keySeparator, 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("id %q must be %q-separated for a composite-key table", id, keySeparator)
	}
	key[keys.PartitionKey] = &types.AttributeValueMemberS{Value: parts[0]}
	key[keys.SortKey] = &types.AttributeValueMemberS{Value: parts[1]}
	return key, nil
}

// retryableCodes are availability failures rather than query rejections.
var retryableCodes = map[string]bool{
	"ProvisionedThroughputExceededException": true,
	"RequestLimitExceeded":                   true,
	"InternalServerError":                    true,
	"ServiceUnavailable":                     true,
	"ThrottlingException":                    true,
}

// classify maps a DynamoDB client error onto the search error
// taxonomy. The original error stays attached unchanged.
func classify(op, collection string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if retryableCodes[apiErr.ErrorCode()] {
			return scerrors.New(op, collection, scerrors.KindStoreTransport, err)
		}
		return scerrors.New(op, collection, scerrors.KindStoreQuery, err)
	}
	return scerrors.New(op, collection, scerrors.KindStoreTransport, err)
}
