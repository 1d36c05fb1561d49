// Package docstore stores application documents and issues presigned URLs
// for downloading them. The interface is the contract; blob backends plug in
// behind it without touching callers.
package docstore

import (
	"context"
	"time"
)

// Storage persists document content by opaque reference.
type Storage interface {
	// Store saves content and returns the reference callers persist.
	Store(ctx context.Context, content []byte, purpose string, ownerRef string) (string, error)
	// Delete removes the referenced document. Unknown refs return
	// sentinel.ErrNotFound.
	Delete(ctx context.Context, ref string) error
	// PresignedURL returns a time-limited download URL for the referenced
	// document.
	PresignedURL(ctx context.Context, ref string, expiry time.Duration) (string, error)
}
