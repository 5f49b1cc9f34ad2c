// Package docstore is the remote document database collaborator: records are
// addressed by collection and id, and queried with equality filters plus one
// ordering key.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/goccy/go-json"
)

var (
	// ErrUnavailable marks transport, permission and backend failures.
	// Callers with a local fallback treat it as the signal to degrade.
	ErrUnavailable = errors.New("document store unavailable")
	ErrNotFound    = errors.New("document not found")
	ErrBadField    = errors.New("invalid field name")
)

var fieldName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Document is a flat JSON-like record. The "id" key is reserved for the
// store-assigned identifier.
type Document map[string]any

// ID returns the document identifier or an empty string.
func (d Document) ID() string {
	id, _ := d["id"].(string)
	return id
}

// Clone returns a shallow copy.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Decode fills out (a pointer to a record struct) from the document.
func (d Document) Decode(out any) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

// FromRecord converts a record struct (or map) into a Document using its JSON shape.
func FromRecord(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("record is not an object: %w", err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

// Query holds the constraints a remote store evaluates itself.
type Query struct {
	Equals  map[string]any
	OrderBy string
	Desc    bool
}

// Validate rejects field names that cannot be safely embedded in a backend query.
func (q Query) Validate() error {
	for k := range q.Equals {
		if !fieldName.MatchString(k) {
			return fmt.Errorf("%w: %q", ErrBadField, k)
		}
	}
	if q.OrderBy != "" && !fieldName.MatchString(q.OrderBy) {
		return fmt.Errorf("%w: %q", ErrBadField, q.OrderBy)
	}
	return nil
}

type Store interface {
	Create(ctx context.Context, collection string, doc Document) (string, error)
	// Get returns nil, nil when the document does not exist.
	Get(ctx context.Context, collection, id string) (Document, error)
	Update(ctx context.Context, collection, id string, partial Document) error
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, collection string, q Query) ([]Document, error)
	Close() error
}

// Unavailable wraps err so that errors.Is(err, ErrUnavailable) holds.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
