package pagination

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultLimit applies when a caller sends no limit.
	DefaultLimit = 10
	// MaxLimit caps a caller supplied limit.
	MaxLimit = 100
)

// Cursor is a keyset position in a listing ordered by (created_at, id)
// descending. The id breaks ties between rows created in the same instant.
type Cursor struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
}

// Encode serializes the cursor as URL-safe base64 JSON.
func (c Cursor) Encode() string {
	raw, _ := json.Marshal(c)
	return base64.URLEncoding.EncodeToString(raw)
}

// Decode parses a cursor produced by Encode. An empty string is not a valid
// cursor; callers should treat it as "start from the beginning" before
// calling Decode.
func Decode(encoded string) (Cursor, error) {
	raw, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return Cursor{}, errors.Wrap(err, "[Decode] base64")
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return Cursor{}, errors.Wrap(err, "[Decode] json")
	}
	if c.ID == "" || c.CreatedAt.IsZero() {
		return Cursor{}, errors.New("[Decode] incomplete cursor")
	}
	return c, nil
}

// NormalizeLimit clamps limit into [1, MaxLimit], substituting DefaultLimit
// for zero or negative values.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Page wraps one page of results with the cursor for the next one.
type Page[T any] struct {
	Items       []T    `json:"items"`
	NextCursor  string `json:"nextCursor,omitempty"`
	HasNextPage bool   `json:"hasNextPage"`
}
