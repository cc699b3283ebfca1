package query

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"

	scerrors "github.com/nimbuscrm/searchcore/pkg/errors"
)

// PageCursor wraps a store cursor token with a tag identifying the
// query shape that produced it. A token is only meaningful under the
// exact conditions and sort order it was minted for; the tag lets a
// mismatched replay fail fast instead of silently returning a wrong
// page.
type PageCursor struct {
	Token string `json:"token"`
	Shape string `json:"shape"`
}

// Shape hashes a query's conditions and sorts into a short tag.
// The limit is deliberately excluded: a caller may change page size
// mid-pagination without invalidating its cursor.
func Shape(collection string, conditions []Condition, sorts []SortSpec) string {
	payload := struct {
		Collection string      `json:"c"`
		Conditions []Condition `json:"f,omitempty"`
		Sorts      []SortSpec  `json:"s,omitempty"`
	}{collection, conditions, sorts}

	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte(fmt.Sprintf("%s|%+v|%+v", collection, conditions, sorts))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// EncodeCursor encodes a store token and shape tag into an opaque
// cursor string.
func EncodeCursor(token, shape string) string {
	if token == "" {
		return ""
	}
	data, _ := json.Marshal(PageCursor{Token: token, Shape: shape})
	return base64.URLEncoding.EncodeToString(data)
}

// DecodeCursor decodes an opaque cursor string. An empty input decodes
// to nil with no error.
func DecodeCursor(encoded string) (*PageCursor, error) {
	if encoded == "" {
		return nil, nil
	}

	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", scerrors.ErrInvalidCursor, err)
	}

	var cursor PageCursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, fmt.Errorf("%w: %v", scerrors.ErrInvalidCursor, err)
	}
	if cursor.Token == "" {
		return nil, fmt.Errorf("%w: missing token", scerrors.ErrInvalidCursor)
	}
	return &cursor, nil
}
