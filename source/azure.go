package source

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/jpl-au/ldt"
)

// Azure reads ranges from one blob container.
type Azure struct {
	client    *azblob.Client
	container string
}

// NewAzure returns a source over container.
func NewAzure(client *azblob.Client, container string) *Azure {
	return &Azure{client: client, container: container}
}

// NewAzureClient connects with a connection string when one is given and
// with the default Azure credential chain otherwise.
func NewAzureClient(accountURL, connectionString string) (*azblob.Client, error) {
	if connectionString != "" {
		client, err := azblob.NewClientFromConnectionString(connectionString, nil)
		if err != nil {
			return nil, fmt.Errorf("azure client: %w", err)
		}
		return client, nil
	}
	if accountURL == "" {
		return nil, fmt.Errorf("%w: azure source needs an account URL or a connection string", ldt.ErrConfiguration)
	}
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}
	var token azcore.TokenCredential = cred
	client, err := azblob.NewClient(accountURL, token, nil)
	if err != nil {
		return nil, fmt.Errorf("azure client: %w", err)
	}
	return client, nil
}

// ReadRange implements ldt.RangeReader.
func (s *Azure) ReadRange(ctx context.Context, key string, r ldt.ByteRange) (io.ReadCloser, error) {
	ctx, span := startFetch(ctx, ProviderAzure, key, r)
	defer span.End()

	resp, err := s.client.DownloadStream(ctx, s.container, key, &azblob.DownloadStreamOptions{
		Range: blob.HTTPRange{Offset: r.Start, Count: r.Length},
	})
	if err != nil {
		switch {
		case bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound):
			recordFetch(ctx, ProviderAzure, r, "not_found")
			return nil, fmt.Errorf("%w: %s/%s", ldt.ErrNotFound, s.container, key)
		case bloberror.HasCode(err, bloberror.InvalidRange):
			recordFetch(ctx, ProviderAzure, r, "")
			return emptyBody(), nil
		}
		recordFetch(ctx, ProviderAzure, r, "unknown")
		span.RecordError(err)
		return nil, fmt.Errorf("download %s/%s: %w", s.container, key, err)
	}
	recordFetch(ctx, ProviderAzure, r, "")
	return resp.Body, nil
}

// Close is a no-op; the client is shared.
func (s *Azure) Close() error {
	return nil
}
