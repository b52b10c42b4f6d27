package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	apperrors "go-image-loader/internal/errors"
)

const blobHostSuffix = ".blob.core.windows.net"

// AzureFetcher downloads blobs from one storage account.
type AzureFetcher struct {
	client   *azblob.Client
	maxBytes int64
}

// NewAzureFetcher authenticates with a shared key. maxBytes <= 0 uses
// DefaultMaxImageBytes.
func NewAzureFetcher(accountName, accountKey string, maxBytes int64) (*AzureFetcher, error) {
	if accountName == "" || accountKey == "" {
		return nil, apperrors.NewValidationError("azure storage account and key are required", nil)
	}

	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid azure storage credentials", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s%s", accountName, blobHostSuffix),
		credential,
		nil,
	)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to create azure blob client", err)
	}

	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &AzureFetcher{client: client, maxBytes: maxBytes}, nil
}

// IsBlobURL reports whether location names an Azure blob.
func IsBlobURL(location string) bool {
	u, err := url.Parse(location)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "azblob":
		return true
	case "https":
		return strings.HasSuffix(strings.ToLower(u.Hostname()), blobHostSuffix)
	}
	return false
}

// ParseBlobURL splits a blob location into container and blob name.
// Accepted forms:
//
//	azblob://container/path/to/blob
//	https://account.blob.core.windows.net/container/path/to/blob
//	https://account.blob.core.windows.net/container?blob=path/to/blob
func ParseBlobURL(location string) (container, blob string, err error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", "", apperrors.NewValidationError("invalid blob URL", err)
	}

	var path string
	switch strings.ToLower(u.Scheme) {
	case "azblob":
		path = u.Host + u.Path
	case "https":
		path = strings.TrimPrefix(u.Path, "/")
	default:
		return "", "", apperrors.NewValidationError(fmt.Sprintf("unsupported blob URL scheme %q", u.Scheme), nil)
	}

	container, blob, _ = strings.Cut(path, "/")
	if q := u.Query().Get("blob"); q != "" && blob == "" {
		blob = q
	}
	if container == "" || blob == "" {
		return "", "", apperrors.NewValidationError("blob URL must name a container and a blob", nil)
	}
	return container, blob, nil
}

// Fetch downloads the blob named by location.
func (s *AzureFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	containerName, blobName, err := ParseBlobURL(location)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.DownloadStream(ctx, containerName, blobName, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound, bloberror.ResourceNotFound) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("blob %s/%s not found", containerName, blobName), err)
		}
		if ctx.Err() != nil {
			return nil, contextError(ctx.Err(), location)
		}
		return nil, apperrors.NewNetworkError("blob download failed", err)
	}
	body := resp.Body
	defer body.Close()

	if resp.ContentLength != nil && *resp.ContentLength > s.maxBytes {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("image exceeds maximum size of %d bytes", s.maxBytes), nil)
	}
	return readLimited(body, s.maxBytes)
}
