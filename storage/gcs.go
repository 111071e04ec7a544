package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCS implements Store for Google Cloud Storage.
type GCS struct {
	bucket *gcs.BucketHandle
	prefix keyPrefix
}

// NewGCS creates a GCS store. When an endpoint is configured (e.g. an emulator)
// requests are sent unauthenticated.
func NewGCS(ctx context.Context, cfg Config) (*GCS, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("gcs storage requires a bucket")
	}

	opts := []option.ClientOption{option.WithScopes(gcs.ScopeReadWrite)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs client: %w", err)
	}

	return &GCS{bucket: client.Bucket(cfg.Bucket), prefix: keyPrefix(cfg.Prefix)}, nil
}

func (g *GCS) Put(ctx context.Context, key string, r io.Reader, _ int64) error {
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := g.bucket.Object(g.prefix.full(key)).NewWriter(wctx)
	if _, err := io.Copy(w, r); err != nil {
		// cancelling the context aborts the upload
		cancel()
		w.Close()
		return fmt.Errorf("gcs put %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs put %s: %w", key, err)
	}
	return nil
}

func (g *GCS) Get(ctx context.Context, key string) ([]byte, error) {
	rc, err := g.bucket.Object(g.prefix.full(key)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("gcs get %s: %w", key, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (g *GCS) Delete(ctx context.Context, key string) error {
	err := g.bucket.Object(g.prefix.full(key)).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("gcs delete %s: %w", key, err)
	}
	return nil
}

func (g *GCS) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	it := g.bucket.Objects(ctx, &gcs.Query{Prefix: g.prefix.full(prefix)})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return keys, nil
		}
		if err != nil {
			return nil, fmt.Errorf("gcs list %s: %w", prefix, err)
		}
		keys = append(keys, g.prefix.strip(attrs.Name))
	}
}
