package blob

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"go.uber.org/zap"
)

// Storage is the interface for previsit packet and symptom image storage.
// Services depend on it so that storage stays optional: a nil Storage
// means packets are rendered inline only and symptom images cannot be
// attached. Upload and download address packets by the same filename.
type Storage interface {
	UploadPDF(ctx context.Context, filename string, data []byte) (string, error)
	DownloadPDF(ctx context.Context, filename string) ([]byte, error)
	UploadImage(ctx context.Context, filename string, imageStream io.Reader) (string, error)
}

// Client wraps Azure Blob Storage for packet and image operations
type Client struct {
	client        *azblob.Client
	containerName string
	logger        *zap.Logger
}

// NewClient creates a new Azure Blob Storage client
func NewClient(accountName, accountKey, containerName string, logger *zap.Logger) (*Client, error) {
	if accountName == "" || accountKey == "" || containerName == "" {
		return nil, fmt.Errorf("accountName, accountKey, and containerName are required")
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)

	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create shared key credential: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	return &Client{
		client:        client,
		containerName: containerName,
		logger:        logger,
	}, nil
}

// UploadPDF uploads a previsit packet PDF
func (c *Client) UploadPDF(ctx context.Context, filename string, data []byte) (string, error) {
	c.logger.Info("uploading packet PDF to blob storage",
		zap.String("filename", filename),
		zap.Int("size_bytes", len(data)),
	)

	blobName := fmt.Sprintf("packets/%s", filename)

	blobClient := c.client.ServiceClient().NewContainerClient(c.containerName).NewBlockBlobClient(blobName)

	_, err := blobClient.UploadBuffer(ctx, data, &azblob.UploadBufferOptions{
		Metadata: map[string]*string{
			"contenttype": toPtr("application/pdf"),
		},
	})

	if err != nil {
		c.logger.Error("failed to upload packet PDF",
			zap.String("filename", filename),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to upload packet PDF: %w", err)
	}

	c.logger.Info("packet PDF uploaded successfully",
		zap.String("blob_name", blobName),
	)

	return blobName, nil
}

// DownloadPDF downloads a previsit packet PDF previously stored under the
// same filename
func (c *Client) DownloadPDF(ctx context.Context, filename string) ([]byte, error) {
	blobName := fmt.Sprintf("packets/%s", filename)

	c.logger.Info("downloading packet PDF from blob storage",
		zap.String("blob_name", blobName),
	)

	blobClient := c.client.ServiceClient().NewContainerClient(c.containerName).NewBlockBlobClient(blobName)

	downloadResponse, err := blobClient.DownloadStream(ctx, nil)
	if err != nil {
		c.logger.Error("failed to download packet PDF",
			zap.String("blob_name", blobName),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to download packet PDF: %w", err)
	}
	defer downloadResponse.Body.Close()

	data, err := io.ReadAll(downloadResponse.Body)
	if err != nil {
		c.logger.Error("failed to read packet PDF data",
			zap.String("blob_name", blobName),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to read packet PDF data: %w", err)
	}

	c.logger.Info("packet PDF downloaded successfully",
		zap.String("blob_name", blobName),
		zap.Int("size_bytes", len(data)),
	)

	return data, nil
}

// UploadImage uploads a symptom photo attached to a report
func (c *Client) UploadImage(ctx context.Context, filename string, imageStream io.Reader) (string, error) {
	c.logger.Info("uploading symptom image to blob storage",
		zap.String("filename", filename),
	)

	blobName := fmt.Sprintf("symptoms/%s", filename)

	blobClient := c.client.ServiceClient().NewContainerClient(c.containerName).NewBlockBlobClient(blobName)

	imageData, err := io.ReadAll(imageStream)
	if err != nil {
		c.logger.Error("failed to read image stream",
			zap.String("filename", filename),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to read image stream: %w", err)
	}

	_, err = blobClient.UploadBuffer(ctx, imageData, &azblob.UploadBufferOptions{
		Metadata: map[string]*string{
			"contenttype": toPtr("image/jpeg"),
		},
	})

	if err != nil {
		c.logger.Error("failed to upload symptom image",
			zap.String("filename", filename),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to upload symptom image: %w", err)
	}

	c.logger.Info("symptom image uploaded successfully",
		zap.String("blob_name", blobName),
		zap.Int("size_bytes", len(imageData)),
	)

	return blobName, nil
}

// toPtr is a helper function to convert a value to a pointer
func toPtr(s string) *string {
	return &s
}
