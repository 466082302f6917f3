// Package docstore is the document database boundary.
//
// Callers see collections of schemaless documents addressed by an opaque,
// store-assigned id. Three backends implement Client: MongoDB, Cloud
// Firestore and an in-process memory store.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a document addressed by id does not exist.
	ErrNotFound = errors.New("docstore: document not found")
	// ErrDuplicate is returned when a write violates a unique index.
	ErrDuplicate = errors.New("docstore: duplicate key")
	// ErrUnsupported is returned by backends lacking an optional capability.
	ErrUnsupported = errors.New("docstore: operation not supported by backend")
)

// Backend names accepted by the store_backend setting.
const (
	BackendMongo     = "mongo"
	BackendFirestore = "firestore"
	BackendMemory    = "memory"
)

// Filter is an exact-match condition on one field.
type Filter struct {
	Field string
	Value any
}

// Query selects documents from one collection.
type Query struct {
	Collection string
	Where      []Filter
	OrderBy    string // empty means unspecified order
	Desc       bool
}

// Eq is shorthand for a Filter.
func Eq(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

// String renders the query for log fields.
func (q Query) String() string {
	var b strings.Builder
	b.WriteString(q.Collection)
	for _, f := range q.Where {
		fmt.Fprintf(&b, " %s==%v", f.Field, f.Value)
	}
	if q.OrderBy != "" {
		b.WriteString(" order by " + q.OrderBy)
		if q.Desc {
			b.WriteString(" desc")
		}
	}
	return b.String()
}

// Document is one stored record. Fields never contains the id.
type Document struct {
	ID     string
	Fields map[string]any
}

// String returns the named field as a string, or "" when missing or not a string.
func (d Document) String(key string) string {
	s, _ := d.Fields[key].(string)
	return s
}

// Bool returns the named field as a bool, or false when missing or not a bool.
func (d Document) Bool(key string) bool {
	b, _ := d.Fields[key].(bool)
	return b
}

// Client is implemented by every backend.
type Client interface {
	// Create inserts a document and returns its generated id.
	Create(ctx context.Context, collection string, fields map[string]any) (string, error)
	// Get loads one document by id. ErrNotFound if absent.
	Get(ctx context.Context, collection, id string) (Document, error)
	// Update merges fields into an existing document. ErrNotFound if absent.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
	// Find runs a one-shot query.
	Find(ctx context.Context, q Query) ([]Document, error)
	// Listen registers a live subscription on q. See Subscription.
	Listen(ctx context.Context, q Query, onData func([]Document), onError func(error)) *Subscription
	// EnsureUnique declares a unique index over fields. ErrUnsupported when
	// the backend has no such primitive.
	EnsureUnique(ctx context.Context, collection string, fields ...string) error
	// Ping checks connectivity.
	Ping(ctx context.Context) error
	// Close releases the backend connection.
	Close(ctx context.Context) error
}
