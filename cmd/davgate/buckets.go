package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sagarc03/davgate"
	"github.com/sagarc03/davgate/config"
	"github.com/sagarc03/davgate/storage"
)

// openBuckets opens the store behind every configured bucket. On error the
// stores already opened are released.
func openBuckets(ctx context.Context, cfgs []config.BucketConfig) ([]*davgate.Bucket, func(), error) {
	var (
		buckets  []*davgate.Bucket
		cleanups []func()
	)

	closeAll := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	for _, bc := range cfgs {
		store, cleanup, err := storage.Open(ctx, bc.Config)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("bucket %s: %w", bc.Name, err)
		}
		cleanups = append(cleanups, cleanup)

		bucket, err := davgate.NewBucket(bc.Name, store)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("bucket %s: %w", bc.Name, err)
		}
		buckets = append(buckets, bucket)

		slog.Info("bucket ready", "name", bc.Name, "type", bc.Type)
	}

	return buckets, closeAll, nil
}
