// Package storage is a minimal client for an S3-compatible object store
// (Cloudflare R2). It supports exactly four single-object operations, each
// signed afresh with SigV4 and sent once.
package storage

import "context"

// ObjectStore is the set of object operations the rest of Sigil relies on.
// *Client implements it.
type ObjectStore interface {
	// Ready returns domain.ErrNotConfigured when the store cannot be used.
	Ready() error

	// ListPrefix lists at most maxKeys keys under prefix. It is a
	// connectivity check, not a paginated listing.
	ListPrefix(ctx context.Context, prefix string, maxKeys int) (*ListResult, error)

	// PutObject stores body under key.
	PutObject(ctx context.Context, key string, body []byte, contentType string) error

	// GetObject returns the body stored under key. Parsing is up to the caller.
	GetObject(ctx context.Context, key string) (string, error)

	// DeleteObject removes key. Deleting a missing key may succeed.
	DeleteObject(ctx context.Context, key string) error
}

var _ ObjectStore = (*Client)(nil)
