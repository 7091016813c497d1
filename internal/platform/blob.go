package platform

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path"

	"github.com/slok/execgate/internal/log"
	"github.com/slok/execgate/internal/model"
)

// DirBlobStoreConfig is the configuration for the directory blob store.
type DirBlobStoreConfig struct {
	// Dir is the root directory of the blobs, keys are paths relative to it.
	Dir string
	// FS overrides Dir.
	FS     fs.FS
	Logger log.Logger
}

func (c *DirBlobStoreConfig) defaults() error {
	if c.FS == nil {
		if c.Dir == "" {
			return fmt.Errorf("dir is required")
		}
		c.FS = os.DirFS(c.Dir)
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "platform.DirBlobStore"})
	return nil
}

// DirBlobStore is a BlobStore backed by a filesystem tree.
type DirBlobStore struct {
	fs     fs.FS
	logger log.Logger
}

// NewDirBlobStore creates a new directory blob store.
func NewDirBlobStore(cfg DirBlobStoreConfig) (*DirBlobStore, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &DirBlobStore{fs: cfg.FS, logger: cfg.Logger}, nil
}

// Get returns the blob stored at key.
func (d *DirBlobStore) Get(ctx context.Context, key string) (*Blob, error) {
	if !fs.ValidPath(key) || key == "." {
		return nil, fmt.Errorf("invalid blob key %q: %w", key, model.ErrNotValid)
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	data, err := fs.ReadFile(d.fs, key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("blob %s: %w", key, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not read blob %s: %w", key, err)
	}

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	d.logger.Debugf("Blob %s read (%d bytes)", key, len(data))

	return &Blob{Key: key, ContentType: contentType, Data: data}, nil
}
