// Package expr builds DynamoDB filter expressions from search
// conditions.
package expr

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Components holds the built expression and its attribute mappings.
type Components struct {
	FilterExpression          string
	ExpressionAttributeNames  map[string]string
	ExpressionAttributeValues map[string]types.AttributeValue
}

// Builder accumulates AND-combined filter conditions. Every attribute
// name is aliased through ExpressionAttributeNames, which sidesteps
// DynamoDB's reserved-word list entirely.
type Builder struct {
	names      map[string]string
	values     map[string]types.AttributeValue
	conditions []string
	nameIdx    int
	valueIdx   int
}

// NewBuilder creates a new expression builder.
func NewBuilder() *Builder {
	return &Builder{
		names:  make(map[string]string),
		values: make(map[string]types.AttributeValue),
	}
}

// AddCondition appends one field/operator/value predicate.
func (b *Builder) AddCondition(field, operator string, value any) error {
	nameRef := b.addName(field)

	switch operator {
	case "==":
		valueRef, err := b.addValue(value)
		if err != nil {
			return err
		}
		b.conditions = append(b.conditions, fmt.Sprintf("%s = %s", nameRef, valueRef))
	case "!=":
		valueRef, err := b.addValue(value)
		if err != nil {
			return err
		}
		b.conditions = append(b.conditions, fmt.Sprintf("%s <> %s", nameRef, valueRef))
	case ">", ">=", "<", "<=":
		valueRef, err := b.addValue(value)
		if err != nil {
			return err
		}
		b.conditions = append(b.conditions, fmt.Sprintf("%s %s %s", nameRef, operator, valueRef))
	case "in", "not-in":
		refs, err := b.addValueList(value)
		if err != nil {
			return err
		}
		expr := fmt.Sprintf("%s IN (%s)", nameRef, strings.Join(refs, ", "))
		if operator == "not-in" {
			expr = "NOT " + expr
		}
		b.conditions = append(b.conditions, expr)
	case "array-contains":
		valueRef, err := b.addValue(value)
		if err != nil {
			return err
		}
		b.conditions = append(b.conditions, fmt.Sprintf("contains(%s, %s)", nameRef, valueRef))
	case "array-contains-any":
		refs, err := b.addValueList(value)
		if err != nil {
			return err
		}
		parts := make([]string, len(refs))
		for i, ref := range refs {
			parts[i] = fmt.Sprintf("contains(%s, %s)", nameRef, ref)
		}
		b.conditions = append(b.conditions, "("+strings.Join(parts, " OR ")+")")
	default:
		return fmt.Errorf("unsupported operator: %q", operator)
	}
	return nil
}

// Build assembles the accumulated conditions into expression components.
func (b *Builder) Build() Components {
	components := Components{}
	if len(b.conditions) > 0 {
		components.FilterExpression = strings.Join(b.conditions, " AND ")
	}
	if len(b.names) > 0 {
		components.ExpressionAttributeNames = b.names
	}
	if len(b.values) > 0 {
		components.ExpressionAttributeValues = b.values
	}
	return components
}

// addName aliases a dot-path field, segment by segment, so that
// "company.city" becomes "#n0.#n1".
func (b *Builder) addName(field string) string {
	segments := strings.Split(field, ".")
	refs := make([]string, len(segments))
	for i, segment := range segments {
		ref := fmt.Sprintf("#n%d", b.nameIdx)
		b.nameIdx++
		b.names[ref] = segment
		refs[i] = ref
	}
	return strings.Join(refs, ".")
}

func (b *Builder) addValue(value any) (string, error) {
	av, err := ConvertToAttributeValue(value)
	if err != nil {
		return "", err
	}
	ref := fmt.Sprintf(":v%d", b.valueIdx)
	b.valueIdx++
	b.values[ref] = av
	return ref, nil
}

func (b *Builder) addValueList(value any) ([]string, error) {
	v := reflect.ValueOf(value)
	if v.Kind() != reflect.Slice {
		return nil, fmt.Errorf("operator requires a slice value, got %T", value)
	}
	refs := make([]string, v.Len())
	for i := 0; i < v.Len(); i++ {
		ref, err := b.addValue(v.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		refs[i] = ref
	}
	return refs, nil
}

// ConvertToAttributeValue converts a Go value to a DynamoDB AttributeValue.
func ConvertToAttributeValue(value any) (types.AttributeValue, error) {
	if value == nil {
		return &types.AttributeValueMemberNULL{Value: true}, nil
	}

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.String:
		return &types.AttributeValueMemberS{Value: v.String()}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", v.Int())}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", v.Uint())}, nil
	case reflect.Float32, reflect.Float64:
		return &types.AttributeValueMemberN{Value: fmt.Sprintf("%g", v.Float())}, nil
	case reflect.Bool:
		return &types.AttributeValueMemberBOOL{Value: v.Bool()}, nil
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return &types.AttributeValueMemberB{Value: v.Bytes()}, nil
		}
		list := make([]types.AttributeValue, v.Len())
		for i := 0; i < v.Len(); i++ {
			item, err := ConvertToAttributeValue(v.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			list[i] = item
		}
		return &types.AttributeValueMemberL{Value: list}, nil
	case reflect.Map:
		if v.Type().Key().Kind() == reflect.String {
			m := make(map[string]types.AttributeValue)
			for _, key := range v.MapKeys() {
				val, err := ConvertToAttributeValue(v.MapIndex(key).Interface())
				if err != nil {
					return nil, err
				}
				m[key.String()] = val
			}
			return &types.AttributeValueMemberM{Value: m}, nil
		}
		return nil, fmt.Errorf("unsupported map type: %v", v.Type())
	case reflect.Struct:
		if t, ok := value.(time.Time); ok {
			return &types.AttributeValueMemberS{Value: t.Format(time.RFC3339Nano)}, nil
		}
		return nil, fmt.Errorf("unsupported struct type: %v", v.Type())
	case reflect.Ptr:
		if v.IsNil() {
			return &types.AttributeValueMemberNULL{Value: true}, nil
		}
		return ConvertToAttributeValue(v.Elem().Interface())
	default:
		return nil, fmt.Errorf("unsupported type: %v", v.Type())
	}
}

// FromAttributeValue converts a DynamoDB AttributeValue to a plain Go
// value. Numbers come back as float64; number parsing failures
// degrade to the raw string.
func FromAttributeValue(av types.AttributeValue) any {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		var f float64
		if _, err := fmt.Sscanf(v.Value, "%g", &f); err != nil {
			return v.Value
		}
		return f
	case *types.AttributeValueMemberBOOL:
		return v.Value
	case *types.AttributeValueMemberNULL:
		return nil
	case *types.AttributeValueMemberB:
		return v.Value
	case *types.AttributeValueMemberL:
		list := make([]any, len(v.Value))
		for i, item := range v.Value {
			list[i] = FromAttributeValue(item)
		}
		return list
	case *types.AttributeValueMemberM:
		m := make(map[string]any, len(v.Value))
		for k, item := range v.Value {
			m[k] = FromAttributeValue(item)
		}
		return m
	case *types.AttributeValueMemberSS:
		list := make([]any, len(v.Value))
		for i, s := range v.Value {
			list[i] = s
		}
		return list
	default:
		return nil
	}
}
