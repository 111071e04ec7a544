package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// Environment variables holding the Azure storage account credentials.
const (
	envAzureAccount = "AZURE_STORAGE_ACCOUNT"
	envAzureKey     = "AZURE_STORAGE_KEY"
)

// Azure implements Store for Azure Blob Storage.
type Azure struct {
	client    *azblob.Client
	container string
	prefix    keyPrefix
}

// NewAzure creates an Azure store using shared key credentials from the
// environment. cfg.Bucket names the container.
func NewAzure(cfg Config) (*Azure, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("azure storage requires a container")
	}
	account, key := os.Getenv(envAzureAccount), os.Getenv(envAzureKey)
	if account == "" || key == "" {
		return nil, fmt.Errorf("azure storage requires %s and %s", envAzureAccount, envAzureKey)
	}

	creds, err := azblob.NewSharedKeyCredential(account, key)
	if err != nil {
		return nil, fmt.Errorf("invalid azure credentials: %w", err)
	}
	httpClient, err := newHTTPClient()
	if err != nil {
		return nil, err
	}

	url := cfg.Endpoint
	if url == "" {
		url = fmt.Sprintf("https://%s.blob.core.windows.net/", account)
	}
	client, err := azblob.NewClientWithSharedKeyCredential(url, creds, &azblob.ClientOptions{
		ClientOptions: azcore.ClientOptions{Transport: httpClient},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create azure client: %w", err)
	}

	return &Azure{client: client, container: cfg.Bucket, prefix: keyPrefix(cfg.Prefix)}, nil
}

func (a *Azure) Put(ctx context.Context, key string, r io.Reader, _ int64) error {
	if _, err := a.client.UploadStream(ctx, a.container, a.prefix.full(key), r, nil); err != nil {
		return fmt.Errorf("azure put %s: %w", key, err)
	}
	return nil
}

func (a *Azure) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := a.client.DownloadStream(ctx, a.container, a.prefix.full(key), nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("azure get %s: %w", key, err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (a *Azure) Delete(ctx context.Context, key string) error {
	_, err := a.client.DeleteBlob(ctx, a.container, a.prefix.full(key), nil)
	if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
		return fmt.Errorf("azure delete %s: %w", key, err)
	}
	return nil
}

func (a *Azure) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	full := a.prefix.full(prefix)
	pager := a.client.NewListBlobsFlatPager(a.container, &azblob.ListBlobsFlatOptions{Prefix: &full})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("azure list %s: %w", prefix, err)
		}
		for _, item := range page.Segment.BlobItems {
			keys = append(keys, a.prefix.strip(*item.Name))
		}
	}
	return keys, nil
}
