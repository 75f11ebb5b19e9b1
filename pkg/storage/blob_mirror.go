// Package storage mirrors vertex diagnostic artifacts to durable storage so
// failures survive the host reclaiming the vertex working directory.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"go.uber.org/zap"
)

// BlobMirror copies diagnostics to an Azure Blob container using shared key
// auth. HTTP endpoints are allowed so local Azurite instances work in
// development.
type BlobMirror struct {
	client        *azblob.Client
	serviceURL    string
	containerName string
	prefix        string
	logger        *zap.Logger
	containerInit bool
}

// NewBlobMirror creates a mirror from a standard storage connection string.
// prefix namespaces this job's diagnostics inside the container; empty means
// no prefix.
func NewBlobMirror(connectionString, containerName, prefix string, logger *zap.Logger) (*BlobMirror, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if connectionString == "" {
		return nil, fmt.Errorf("connection string is required")
	}
	if containerName == "" {
		return nil, fmt.Errorf("container name is required")
	}

	params := parseConnectionString(connectionString)
	accountName := params["AccountName"]
	accountKey := params["AccountKey"]
	serviceURL := params["BlobEndpoint"]
	if accountName == "" || accountKey == "" {
		return nil, fmt.Errorf("account name and key are required in the connection string")
	}
	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net", accountName)
	}

	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create shared key credential: %w", err)
	}

	var clientOpts *azblob.ClientOptions
	if strings.HasPrefix(strings.ToLower(serviceURL), "http://") {
		clientOpts = &azblob.ClientOptions{
			ClientOptions: azcore.ClientOptions{
				InsecureAllowCredentialWithHTTP: true,
			},
		}
	}

	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, credential, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	return &BlobMirror{
		client:        client,
		serviceURL:    strings.TrimRight(serviceURL, "/"),
		containerName: containerName,
		prefix:        strings.Trim(prefix, "/"),
		logger:        logger,
	}, nil
}

// MirrorDiagnostic stores one diagnostic artifact under the given name.
func (m *BlobMirror) MirrorDiagnostic(ctx context.Context, name string, data []byte) error {
	if err := m.ensureContainer(ctx); err != nil {
		return err
	}

	blobPath := m.blobPath(name)
	containerClient := m.client.ServiceClient().NewContainerClient(m.containerName)
	blobClient := containerClient.NewBlockBlobClient(blobPath)

	_, err := blobClient.UploadBuffer(ctx, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType: to.Ptr("text/plain"),
		},
	})
	if err != nil {
		m.logger.Error("Failed to mirror diagnostic",
			zap.String("blob_path", blobPath),
			zap.Int("size", len(data)),
			zap.Error(err))
		return fmt.Errorf("blob upload failed: %w", err)
	}

	m.logger.Info("Mirrored diagnostic",
		zap.String("blob_path", blobPath),
		zap.Int("size_bytes", len(data)))

	return nil
}

// FetchDiagnostic retrieves a previously mirrored artifact by name.
func (m *BlobMirror) FetchDiagnostic(ctx context.Context, name string) ([]byte, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("diagnostic name is required")
	}

	containerClient := m.client.ServiceClient().NewContainerClient(m.containerName)
	blobClient := containerClient.NewBlobClient(m.blobPath(name))

	resp, err := blobClient.DownloadStream(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to download diagnostic: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read diagnostic data: %w", err)
	}

	return data, nil
}

func (m *BlobMirror) blobPath(name string) string {
	name = strings.TrimPrefix(name, "/")
	if m.prefix == "" {
		return name
	}
	return m.prefix + "/" + name
}

func (m *BlobMirror) ensureContainer(ctx context.Context) error {
	if m.containerInit {
		return nil
	}

	_, err := m.client.CreateContainer(ctx, m.containerName, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if strings.Contains(strings.ToLower(err.Error()), "containeralreadyexists") {
			m.containerInit = true
			return nil
		}
		if errors.As(err, &respErr) {
			if respErr.ErrorCode == "ContainerAlreadyExists" {
				m.containerInit = true
				return nil
			}
		}
		return fmt.Errorf("failed to ensure container: %w", err)
	}

	m.containerInit = true
	return nil
}

func parseConnectionString(connectionString string) map[string]string {
	parts := strings.Split(connectionString, ";")
	params := make(map[string]string, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx := strings.Index(part, "=")
		if idx <= 0 {
			continue
		}
		key := part[:idx]
		value := part[idx+1:]
		params[key] = value
	}
	return params
}
