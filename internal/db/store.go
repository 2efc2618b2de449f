package db

import "context"

// serverTimestamp marks a field the store fills with its own clock at write time.
type serverTimestamp struct{}

// ServerTimestamp is replaced by the store's current UTC time when a document is written.
var ServerTimestamp = serverTimestamp{}

// Document is one stored record: its key plus its fields as raw values.
// Timestamps come back as time.Time.
type Document struct {
	ID     string
	Fields map[string]interface{}
}

// Snapshot is the full ordered result set of a query at one point in time.
type Snapshot []Document

// Condition is an equality filter on one field.
type Condition struct {
	Field string
	Value interface{}
}

// Query selects and orders documents within one collection.
type Query struct {
	Where      []Condition
	OrderBy    string
	Descending bool
}

// Subscription is a live query. Cancel stops delivery and releases the
// underlying stream; it is safe to call more than once. It must not be
// called from inside the subscription's own callbacks.
type Subscription interface {
	Cancel()
}

// DocumentStore is the remote data store the views and services talk to.
type DocumentStore interface {
	// Create inserts a document under a freshly generated key and returns the key.
	Create(ctx context.Context, collection string, fields map[string]interface{}) (string, error)
	// Set writes a document under a caller-chosen key, replacing any existing one.
	Set(ctx context.Context, collection, id string, fields map[string]interface{}) error
	// GetByID returns nil, nil when no document has the key.
	GetByID(ctx context.Context, collection, id string) (*Document, error)
	// Subscribe delivers the full result of q now and again after every change
	// to the collection, until cancelled or until the stream fails. A stream
	// failure is reported once through onError and ends the subscription.
	Subscribe(ctx context.Context, collection string, q Query, onSnapshot func(Snapshot), onError func(error)) (Subscription, error)
}
