package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// AzureSlotStore keeps each slot as a blob in one container
type AzureSlotStore struct {
	client    *azblob.Client
	container string
}

func NewAzureSlotStore(ctx context.Context, accountName, accountKey, containerName string) (*AzureSlotStore, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("azure client: %w", err)
	}

	if _, err := client.CreateContainer(ctx, containerName, nil); err != nil &&
		!bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return nil, fmt.Errorf("create container %s: %w", containerName, err)
	}

	return &AzureSlotStore{client: client, container: containerName}, nil
}

func (s *AzureSlotStore) Get(ctx context.Context, key string) (string, bool, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, key, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("download failed: %w", err)
	}

	retryReader := resp.Body
	defer retryReader.Close()

	data, err := io.ReadAll(retryReader)
	if err != nil {
		return "", false, fmt.Errorf("read blob %s: %w", key, err)
	}
	return string(data), true, nil
}

func (s *AzureSlotStore) Put(ctx context.Context, key, value string) error {
	if _, err := s.client.UploadBuffer(ctx, s.container, key, []byte(value), nil); err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	return nil
}

func (s *AzureSlotStore) Delete(ctx context.Context, key string) error {
	if _, err := s.client.DeleteBlob(ctx, s.container, key, nil); err != nil &&
		!bloberror.HasCode(err, bloberror.BlobNotFound) {
		return fmt.Errorf("delete failed: %w", err)
	}
	return nil
}

func (s *AzureSlotStore) Close() error {
	return nil
}
