// Package store defines the document store abstraction the messaging core is
// built on: collection/document/subcollection addressing, query-by-field,
// merge-upserts, and transactional read-modify-write. Backends live in the
// firestore and memstore subpackages.
package store

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Document is a single stored document: its ID, full path, and field data.
type Document struct {
	ID   string
	Path string
	Data map[string]any
}

// DataTo unmarshals the document's field data into v via a JSON round-trip.
// Timestamps stored as time.Time survive the round-trip as RFC 3339 strings.
func (d *Document) DataTo(v any) error {
	raw, err := json.Marshal(d.Data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// Op is a query filter operator.
type Op string

// Supported filter operators. They mirror the query model of a document
// store: equality, closed string/number ranges, and array membership.
const (
	OpEqual          Op = "=="
	OpGreaterOrEqual Op = ">="
	OpLessOrEqual    Op = "<="
	OpArrayContains  Op = "array-contains"
)

// Filter constrains a single field.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Query describes a collection query: conjunctive filters, optional ordering
// on one field, and an optional result limit (0 means unlimited).
type Query struct {
	Filters []Filter
	OrderBy string
	Desc    bool
	Limit   int
}

// Where appends a filter and returns the query for chaining.
func (q Query) Where(field string, op Op, value any) Query {
	q.Filters = append(q.Filters, Filter{Field: field, Op: op, Value: value})
	return q
}

// Tx is the handle passed to a transaction function. Reads observe the state
// at transaction start; writes are applied atomically at commit.
type Tx interface {
	Get(path string) (*Document, error)
	Set(path string, data map[string]any) error
	Update(path string, data map[string]any) error
}

// Store is the document store adapter. All paths alternate
// collection/document segments (e.g. "chats/abc/messages/def").
type Store interface {
	// Get fetches a document, returning ErrNotFound when absent.
	Get(ctx context.Context, path string) (*Document, error)
	// Create adds a document with a generated ID to a collection.
	Create(ctx context.Context, collection string, data map[string]any) (*Document, error)
	// Set writes a document at path. With merge, only the given fields are
	// replaced and the document is created if absent (merge-upsert).
	Set(ctx context.Context, path string, data map[string]any, merge bool) error
	// Update replaces the given fields of an existing document, returning
	// ErrNotFound when the document is absent.
	Update(ctx context.Context, path string, data map[string]any) error
	// Delete removes a document. Deleting an absent document is a no-op.
	Delete(ctx context.Context, path string) error
	// Query runs a collection query.
	Query(ctx context.Context, collection string, q Query) ([]*Document, error)
	// DeleteCollection removes every document in a collection in one batch
	// and returns the number deleted. Non-incremental by design.
	DeleteCollection(ctx context.Context, collection string) (int, error)
	// RunTransaction executes fn atomically and in isolation from other
	// transactions on the same documents.
	RunTransaction(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}
