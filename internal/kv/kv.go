// Package kv provides the browser-style key-value store that backs the
// local persistence backend. Values are opaque blobs addressed by fixed
// string keys, one per entity kind.
package kv

import "errors"

// ErrQuotaExceeded is returned by SetItem when a configured byte quota
// would be exceeded. Callers surface it distinctly so the UI can prompt
// for cleanup instead of retrying.
var ErrQuotaExceeded = errors.New("kv: quota exceeded")

// Store is the synchronous key-value contract. GetItem returns (nil, nil)
// when the key is absent, mirroring localStorage's null.
type Store interface {
	GetItem(key string) ([]byte, error)
	SetItem(key string, value []byte) error
	RemoveItem(key string) error
	Close() error
}
