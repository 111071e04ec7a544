package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/objectstorage"

	"ocflbench/config"
)

// OCI implements Store for OCI Object Storage.
type OCI struct {
	client    objectstorage.ObjectStorageClient
	namespace string
	bucket    string
	prefix    keyPrefix
}

// NewOCI creates an OCI store from cfg. The namespace is fetched from the
// service when not configured.
func NewOCI(ctx context.Context, cfg Config) (*OCI, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("oci storage requires a bucket")
	}

	provider, err := config.LoadOCIConfig(cfg.OCIConfigFile)
	if err != nil {
		return nil, err
	}
	client, err := objectstorage.NewObjectStorageClientWithConfigurationProvider(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}
	httpClient, err := newHTTPClient()
	if err != nil {
		return nil, err
	}
	client.HTTPClient = httpClient

	// Use the host override if provided, otherwise use the SDK default
	if cfg.Endpoint != "" {
		client.Host = cfg.Endpoint
	}

	namespace := cfg.Namespace
	if namespace == "" {
		resp, err := client.GetNamespace(ctx, objectstorage.GetNamespaceRequest{})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch namespace: %w", err)
		}
		namespace = *resp.Value
	}

	return &OCI{
		client:    client,
		namespace: namespace,
		bucket:    cfg.Bucket,
		prefix:    keyPrefix(cfg.Prefix),
	}, nil
}

// ociPutRetries bounds the attempts of a throttled or unavailable put.
const ociPutRetries = 3

// Put uploads r under key. A put rejected with 429 or 503 is retried with a
// growing pause when r can be rewound.
func (o *OCI) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	request := objectstorage.PutObjectRequest{
		NamespaceName: common.String(o.namespace),
		BucketName:    common.String(o.bucket),
		ObjectName:    common.String(o.prefix.full(key)),
		ContentLength: common.Int64(size),
		PutObjectBody: io.NopCloser(r),
	}
	seeker, canRetry := r.(io.Seeker)

	var err error
	for i := 0; i < ociPutRetries; i++ {
		if _, err = o.client.PutObject(ctx, request); err == nil {
			return nil
		}
		if !canRetry || !isOCIRetryable(err) || ctx.Err() != nil {
			break
		}
		if _, serr := seeker.Seek(0, io.SeekStart); serr != nil {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("oci put %s: %w", key, ctx.Err())
		case <-time.After(time.Duration(i+1) * time.Second):
		}
	}
	return fmt.Errorf("oci put %s: %w", key, err)
}

func (o *OCI) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := o.client.GetObject(ctx, objectstorage.GetObjectRequest{
		NamespaceName: common.String(o.namespace),
		BucketName:    common.String(o.bucket),
		ObjectName:    common.String(o.prefix.full(key)),
	})
	if err != nil {
		if isOCINotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("oci get %s: %w", key, err)
	}
	defer resp.Content.Close()
	return io.ReadAll(resp.Content)
}

func (o *OCI) Delete(ctx context.Context, key string) error {
	_, err := o.client.DeleteObject(ctx, objectstorage.DeleteObjectRequest{
		NamespaceName: common.String(o.namespace),
		BucketName:    common.String(o.bucket),
		ObjectName:    common.String(o.prefix.full(key)),
	})
	if err != nil && !isOCINotFound(err) {
		return fmt.Errorf("oci delete %s: %w", key, err)
	}
	return nil
}

func (o *OCI) List(ctx context.Context, prefix string) ([]string, error) {
	var (
		keys  []string
		start *string
	)
	for {
		resp, err := o.client.ListObjects(ctx, objectstorage.ListObjectsRequest{
			NamespaceName: common.String(o.namespace),
			BucketName:    common.String(o.bucket),
			Prefix:        common.String(o.prefix.full(prefix)),
			Start:         start,
			Limit:         common.Int(1000),
		})
		if err != nil {
			return nil, fmt.Errorf("oci list %s: %w", prefix, err)
		}
		for _, obj := range resp.Objects {
			keys = append(keys, o.prefix.strip(*obj.Name))
		}
		if resp.NextStartWith == nil {
			return keys, nil
		}
		start = resp.NextStartWith
	}
}

func isOCIRetryable(err error) bool {
	serviceErr, ok := common.IsServiceError(err)
	if !ok {
		return false
	}
	code := serviceErr.GetHTTPStatusCode()
	return code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable
}

func isOCINotFound(err error) bool {
	serviceErr, ok := common.IsServiceError(err)
	return ok && serviceErr.GetHTTPStatusCode() == http.StatusNotFound
}
