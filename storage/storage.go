// Package storage provides the blob stores a repository is written to: the
// local filesystem and the S3, OCI, GCS and Azure object stores.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Common errors for storage operations.
var (
	ErrNotFound       = errors.New("object not found")
	ErrUnknownBackend = errors.New("unknown storage backend")
	ErrInvalidKey     = errors.New("invalid object key")
)

// Store is a flat key/value blob store. Keys use '/' as separator.
// Implementations must be safe for concurrent use.
type Store interface {
	// Put writes size bytes read from r under key, replacing any existing blob.
	Put(ctx context.Context, key string, r io.Reader, size int64) error

	// Get returns the content stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns every key beginning with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Backend names accepted by Open.
const (
	BackendFS    = "fs"
	BackendS3    = "s3"
	BackendOCI   = "oci"
	BackendGCS   = "gcs"
	BackendAzure = "azure"
)

// Config selects and configures a Store.
type Config struct {
	Backend string

	// Dir is the root directory of the fs backend.
	Dir string

	// Bucket is the bucket (S3, OCI, GCS) or container (Azure) name.
	Bucket string
	// Prefix is prepended to every key in the bucket.
	Prefix string
	// Region is the S3 region.
	Region string
	// Endpoint overrides the service endpoint (MinIO, emulators, OCI host, Azure URL).
	Endpoint string
	// PathStyle enables S3 path-style addressing.
	PathStyle bool
	// Profile is the AWS shared config profile.
	Profile string

	// Namespace is the OCI namespace; fetched from the service when empty.
	Namespace string
	// OCIConfigFile is the path to the OCI config file.
	OCIConfigFile string
}

// Open builds the Store described by cfg.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendFS, "":
		return NewLocal(cfg.Dir)
	case BackendS3:
		return NewS3(ctx, cfg)
	case BackendOCI:
		return NewOCI(ctx, cfg)
	case BackendGCS:
		return NewGCS(ctx, cfg)
	case BackendAzure:
		return NewAzure(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

// keyPrefix joins the configured bucket prefix with key.
type keyPrefix string

func (p keyPrefix) full(key string) string {
	if p == "" {
		return key
	}
	return strings.TrimSuffix(string(p), "/") + "/" + key
}

func (p keyPrefix) strip(key string) string {
	if p == "" {
		return key
	}
	return strings.TrimPrefix(key, strings.TrimSuffix(string(p), "/")+"/")
}
