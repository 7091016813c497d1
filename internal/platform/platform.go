// Package platform has the adapters of the external services the router passes
// requests through: key-value store, blob store, image transformations,
// inference and secondary services.
package platform

import (
	"context"
	"encoding/json"
)

// KVStore gets values by key. Implemented by the storage repositories.
type KVStore interface {
	// GetValue returns nil if the key doesn't exist.
	GetValue(ctx context.Context, key string) (*string, error)
}

// Blob is a stored object.
type Blob struct {
	Key         string
	ContentType string
	Data        []byte
}

// BlobStore gets blobs by key.
type BlobStore interface {
	// Get returns model.ErrNotFound if the blob doesn't exist.
	Get(ctx context.Context, key string) (*Blob, error)
}

// ImageOptions are the options of an image transformation.
type ImageOptions struct {
	Width  int
	Height int
	Fit    string
	Format string
}

// ImageTransformer transforms images.
type ImageTransformer interface {
	Transform(ctx context.Context, blob *Blob, opts ImageOptions) (*Blob, error)
}

// Inference runs AI models.
type Inference interface {
	Run(ctx context.Context, model, prompt string) (json.RawMessage, error)
}
