// Package query translates abstract condition/sort/limit/cursor
// specifications into store-native queries.
package query

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nimbuscrm/searchcore/pkg/core"
	scerrors "github.com/nimbuscrm/searchcore/pkg/errors"
)

// Condition is a single field/operator/value filter predicate. A list
// of conditions is implicitly AND-combined.
type Condition struct {
	Field    string `json:"field"`
	Operator string `json:"op"`
	Value    any    `json:"value"`
}

// SortSpec is one sort key. An ordered list defines composite sort order.
type SortSpec struct {
	Field     string `json:"field"`
	Direction string `json:"dir"` // "asc" or "desc"
}

// Directions accepted by SortSpec.
const (
	Asc  = "asc"
	Desc = "desc"
)

var validOperators = map[string]bool{
	"==": true, "!=": true,
	">": true, ">=": true, "<": true, "<=": true,
	"in": true, "not-in": true,
	"array-contains": true, "array-contains-any": true,
}

// inequalityOperators are the operators the store constrains: a field
// filtered by one of these must lead the sort order.
var inequalityOperators = map[string]bool{
	"!=": true, ">": true, ">=": true, "<": true, "<=": true, "not-in": true,
}

// Build applies conditions, sorts, cursor and limit to a fresh store
// query for the collection.
//
// Filters and order-bys are emitted in input order. The emitted limit
// is always limit+1: the extra sentinel row is how the executor detects
// a further page without a separate count query. When a cursor token is
// supplied it is appended last; the token is only valid under the exact
// sort order that produced it, which Build cannot verify — the executor
// checks the cursor's shape tag before calling here.
func Build(store core.DocumentStore, collection string, conditions []Condition, sorts []SortSpec, limit int, cursorToken string) (core.StoreQuery, error) {
	if limit <= 0 {
		return nil, scerrors.New("build", collection, scerrors.KindValidation,
			fmt.Errorf("%w: got %d", scerrors.ErrInvalidLimit, limit))
	}
	if err := Validate(conditions, sorts); err != nil {
		return nil, scerrors.New("build", collection, scerrors.KindValidation, err)
	}

	q := store.Query(collection)
	for _, cond := range conditions {
		q = q.Where(cond.Field, cond.Operator, cond.Value)
	}
	for _, sort := range normalizeSorts(conditions, sorts) {
		q = q.OrderBy(sort.Field, sort.Direction)
	}
	if cursorToken != "" {
		q = q.StartAfter(cursorToken)
	}
	return q.Limit(limit + 1), nil
}

// Validate checks conditions and sorts for malformed field paths,
// unknown operators and bad directions. Store-level constraints such
// as composite index coverage are not checked here; the store rejects
// those itself and the error surfaces unchanged.
func Validate(conditions []Condition, sorts []SortSpec) error {
	for _, cond := range conditions {
		if err := validateFieldPath(cond.Field); err != nil {
			return err
		}
		if !validOperators[cond.Operator] {
			return fmt.Errorf("%w: %q", scerrors.ErrInvalidOperator, cond.Operator)
		}
	}
	for _, sort := range sorts {
		if err := validateFieldPath(sort.Field); err != nil {
			return err
		}
		if sort.Direction != Asc && sort.Direction != Desc {
			return fmt.Errorf("%w: %q", scerrors.ErrInvalidDirection, sort.Direction)
		}
	}
	return nil
}

// normalizeSorts enforces the store's rule that an inequality-filtered
// field must be the first sort key. When explicit sorts are present and
// the first inequality field does not lead them, it is prepended
// ascending. With no explicit sorts the store applies its own implicit
// order and no order-by is emitted.
func normalizeSorts(conditions []Condition, sorts []SortSpec) []SortSpec {
	if len(sorts) == 0 {
		return sorts
	}
	for _, cond := range conditions {
		if !inequalityOperators[cond.Operator] {
			continue
		}
		if sorts[0].Field == cond.Field {
			return sorts
		}
		for _, sort := range sorts {
			if sort.Field == cond.Field {
				// Present but not first; reordering would change the
				// composite sort the caller asked for, so leave it to
				// the store to reject.
				return sorts
			}
		}
		out := make([]SortSpec, 0, len(sorts)+1)
		out = append(out, SortSpec{Field: cond.Field, Direction: Asc})
		return append(out, sorts...)
	}
	return sorts
}

func validateFieldPath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty path", scerrors.ErrInvalidFieldPath)
	}
	for _, segment := range strings.Split(path, ".") {
		if segment == "" {
			return fmt.Errorf("%w: %q", scerrors.ErrInvalidFieldPath, path)
		}
	}
	return nil
}

// CacheKey is a deterministic serialization of a first-page query
// shape, used as the result cache key.
func CacheKey(collection string, conditions []Condition, sorts []SortSpec, limit int) string {
	payload := struct {
		Collection string      `json:"c"`
		Conditions []Condition `json:"f,omitempty"`
		Sorts      []SortSpec  `json:"s,omitempty"`
		Limit      int         `json:"l"`
	}{collection, conditions, sorts, limit}

	// Struct field order makes json.Marshal stable here; condition
	// values are caller-supplied scalars or slices.
	data, err := json.Marshal(payload)
	if err != nil {
		// Unserializable condition values degrade to Go syntax, which
		// is still deterministic for a given caller.
		return fmt.Sprintf("%s|%+v|%+v|%d", collection, conditions, sorts, limit)
	}
	return string(data)
}
