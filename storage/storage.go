// Package storage opens the object store backing one bucket.
//
// # Supported Backends
//
//   - filesystem: a local directory, using os.Root for sandboxing
//   - s3: Amazon S3 or any S3-compatible server
//   - memory: an in-process map, lost on restart
//
// # Usage
//
//	store, cleanup, err := storage.Open(ctx, storage.Config{
//	    Type: "filesystem",
//	    Path: "/srv/webdav/docs",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cleanup()
package storage

import (
	"context"
	"fmt"

	"github.com/sagarc03/davgate"
	"github.com/sagarc03/davgate/storage/filesystem"
	"github.com/sagarc03/davgate/storage/memory"
	s3store "github.com/sagarc03/davgate/storage/s3"
)

// Config selects and configures an object store backend.
type Config struct {
	// Type is "filesystem", "s3" or "memory".
	Type string `mapstructure:"type" validate:"required,oneof=filesystem s3 memory"`
	// Path is the root directory for the filesystem backend.
	Path string `mapstructure:"path" validate:"required_if=Type filesystem"`
	// S3 configures the s3 backend.
	S3 s3store.Config `mapstructure:"s3"`
}

// Open returns the ObjectStore described by cfg. The cleanup function
// releases any handle the backend holds and is safe to call once.
func Open(ctx context.Context, cfg Config) (davgate.ObjectStore, func(), error) {
	switch cfg.Type {
	case "filesystem":
		if cfg.Path == "" {
			return nil, nil, fmt.Errorf("filesystem storage: path is required")
		}
		store, err := filesystem.Open(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open filesystem storage: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	case "s3":
		store, err := s3store.Open(ctx, cfg.S3)
		if err != nil {
			return nil, nil, fmt.Errorf("open s3 storage: %w", err)
		}
		return store, func() {}, nil
	case "memory":
		return memory.New(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
